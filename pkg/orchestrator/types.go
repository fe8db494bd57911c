// Package orchestrator implements C5: per-user request coordination —
// classifying inbound messages, selecting a workflow template, and driving
// the template's agent steps under a lifecycle.Manager, recovering from
// context-window exhaustion via HandoffAndRespawn.
package orchestrator

import (
	"time"

	"github.com/kodelet-systems/agentlifecycle/pkg/agenttype"
)

// Classification is the routing label a message is sorted into (spec §4.5).
type Classification string

const (
	ClassGreeting     Classification = "greeting"
	ClassStatusQuery  Classification = "status_query"
	ClassRefinement   Classification = "refinement"
	ClassCancellation Classification = "cancellation"
	ClassNewTask      Classification = "new_task"
	ClassSmalltalk    Classification = "smalltalk"
)

// IncomingMessage is one inbound user message to route.
type IncomingMessage struct {
	UserID          string
	ProjectID       string
	MessageID       string // platform message id, used for dedup
	Text            string
	CancelRequested bool
}

// Result summarizes how a single message was handled, for the caller (a
// webhook handler or the demo CLI) to report back to the platform.
type Result struct {
	Classification Classification
	Workflow       agenttype.Workflow
	TaskID         string
	FinalAgentID   string
	Deduplicated   bool
	HandoffCount   int
	CompletedAt    time.Time
}
