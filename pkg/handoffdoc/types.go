// Package handoffdoc implements C2: the schema-versioned handoff document
// that carries a terminating agent's full state to its successor, plus the
// canonical text codec described in spec §6.
package handoffdoc

import (
	"time"

	"github.com/kodelet-systems/agentlifecycle/pkg/tokentracker"
)

// SchemaVersion is the current document schema version (spec §3).
const SchemaVersion = "1.0.0"

// TaskStatus is the terminating agent's self-reported progress state.
type TaskStatus string

const (
	TaskStatusInProgress       TaskStatus = "in_progress"
	TaskStatusBlocked          TaskStatus = "blocked"
	TaskStatusReadyForHandoff  TaskStatus = "ready_for_handoff"
)

// Priority is a TODO item's urgency band.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// SourceAgent identifies the agent instance a handoff was extracted from.
type SourceAgent struct {
	AgentID           string    `yaml:"agent_id"`
	AgentType         string    `yaml:"agent_type"`
	Version           int       `yaml:"version"`
	SpawnTime         time.Time `yaml:"spawn_time"`
	TerminationTime   time.Time `yaml:"termination_time"`
	TerminationReason string    `yaml:"termination_reason"`
}

// TokenUsageSummary mirrors tokentracker.Snapshot plus the full history,
// frozen at handoff time.
type TokenUsageSummary struct {
	Total           int                  `yaml:"total"`
	Input           int                  `yaml:"input"`
	Output          int                  `yaml:"output"`
	CacheRead       int                  `yaml:"cache_read"`
	CacheCreate     int                  `yaml:"cache_create"`
	UsagePercentage float64              `yaml:"usage_percentage"`
	History         []tokentracker.Usage `yaml:"-"`
}

// Decision records a choice the terminating agent made, with the
// alternatives it considered and how confident it was.
type Decision struct {
	ID                     string    `yaml:"id"`
	Title                  string    `yaml:"title"`
	Rationale              string    `yaml:"rationale"`
	Confidence             float64   `yaml:"confidence"`
	AlternativesConsidered []string  `yaml:"alternatives"`
	Timestamp              time.Time `yaml:"timestamp"`
}

// RejectedAlternative records an option the agent considered and discarded.
type RejectedAlternative struct {
	Option         string `yaml:"option"`
	ReasonRejected string `yaml:"reason_rejected"`
	Context        string `yaml:"context"`
}

// WorkItem records one piece of completed work.
type WorkItem struct {
	ArtifactKind string `yaml:"artifact_kind"`
	Identifier   string `yaml:"identifier"`
	Summary      string `yaml:"summary"`
}

// TodoItem is one ordered pending item for the successor.
type TodoItem struct {
	Priority           Priority `yaml:"priority"`
	Description        string   `yaml:"description"`
	AcceptanceCriteria string   `yaml:"acceptance_criteria"`
}

// Dependencies records the task's upstream and downstream relationships.
type Dependencies struct {
	Upstream   []string `yaml:"upstream"`
	Downstream []string `yaml:"downstream"`
}

// ErrorEntry records one error the terminating agent encountered and
// whether it was recovered from before handoff.
type ErrorEntry struct {
	Message   string    `yaml:"message"`
	Timestamp time.Time `yaml:"timestamp"`
	Recovered bool      `yaml:"recovered"`
}

// Document is the complete, immutable handoff record (spec §3). Once
// constructed by the lifecycle manager at handoff time, it is written once
// and never mutated.
type Document struct {
	SchemaVersion          string
	HandoffID              string
	TraceID                string
	TaskID                 string
	UserID                 string
	ProjectID              string
	PredecessorHandoffID   string // empty string means root (null)

	SourceAgent SourceAgent
	TokenUsage  TokenUsageSummary

	OriginalRequest      string
	TaskDescription      string
	CurrentPhase         string
	CompletionPercentage int
	TaskStatus           TaskStatus

	Decisions             []Decision
	RejectedAlternatives  []RejectedAlternative
	WorkCompleted         []WorkItem
	WorkInProgress        map[string]string
	TodoList              []TodoItem
	ToolState             map[string]string
	Assumptions           []string
	Constraints           []string
	Dependencies          Dependencies
	ErrorHistory          []ErrorEntry
	References            []string
	Performance           string
	Testing               string
	Metadata              map[string]string
	// Signature is an opaque, caller-supplied integrity marker. The codec
	// never computes or verifies it; it is carried through unchanged.
	Signature string

	// Degraded is true when this handoff was produced by the minimal
	// fallback path (state-extraction call itself exhausted) rather than
	// a full 17-section extraction.
	Degraded bool
}

// IsRoot reports whether this document has no predecessor.
func (d *Document) IsRoot() bool {
	return d.PredecessorHandoffID == ""
}
