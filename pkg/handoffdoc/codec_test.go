package handoffdoc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc() *Document {
	return &Document{
		SchemaVersion:        SchemaVersion,
		HandoffID:            "h-2",
		TraceID:              "t-1",
		TaskID:               "task-1",
		UserID:               "user-1",
		ProjectID:            "proj-1",
		PredecessorHandoffID: "h-1",
		SourceAgent: SourceAgent{
			AgentID:           "agent-2",
			AgentType:         "build",
			Version:           2,
			SpawnTime:         time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC),
			TerminationTime:   time.Date(2026, 7, 30, 11, 0, 0, 0, time.UTC),
			TerminationReason: "context_window_critical",
		},
		TokenUsage: TokenUsageSummary{
			Total: 150000, Input: 120000, Output: 30000,
			UsagePercentage: 75.0,
		},
		OriginalRequest:      "Build the export pipeline.",
		TaskDescription:      "Implement CSV export with streaming writer.",
		CurrentPhase:         "implementation",
		CompletionPercentage: 60,
		TaskStatus:           TaskStatusInProgress,
		Decisions: []Decision{
			{ID: "D1", Title: "Use streaming writer", Rationale: "avoids buffering whole file in memory", Confidence: 0.9,
				AlternativesConsidered: []string{"buffer then write"}, Timestamp: time.Date(2026, 7, 30, 10, 30, 0, 0, time.UTC)},
		},
		RejectedAlternatives: []RejectedAlternative{
			{Option: "in-memory buffering", ReasonRejected: "exceeds memory budget for large exports", Context: "export pipeline"},
		},
		WorkCompleted: []WorkItem{
			{ArtifactKind: "file", Identifier: "pkg/export/writer.go", Summary: "streaming CSV writer"},
		},
		WorkInProgress: map[string]string{"pkg/export/reader.go": "50% — reading rows in batches"},
		TodoList: []TodoItem{
			{Priority: PriorityP0, Description: "Finish batched reader referencing D1", AcceptanceCriteria: "handles 1M row input without OOM"},
			{Priority: PriorityP2, Description: "Add progress logging"},
		},
		ToolState:   map[string]string{"cwd": "/repo", "branch": "export-feature"},
		Assumptions: []string{"input files are UTF-8 encoded"},
		Constraints: []string{"must not load full file into memory"},
		Dependencies: Dependencies{
			Upstream:   []string{"task-0"},
			Downstream: []string{"task-2"},
		},
		ErrorHistory: []ErrorEntry{
			{Message: "transient disk write failure", Timestamp: time.Date(2026, 7, 30, 10, 45, 0, 0, time.UTC), Recovered: true},
		},
		Performance: "export of 10k rows took 1.2s",
		Testing:     "unit tests cover writer; reader tests pending",
		References:  []string{"https://internal/design/export-pipeline"},
		Metadata:    map[string]string{"priority": "high"},
		Signature:   "opaque-sig-abc123",
		Degraded:    false,
	}
}

func TestEncodeDecode_RoundTripLaw(t *testing.T) {
	doc := sampleDoc()

	encoded1, err := Encode(doc)
	require.NoError(t, err)

	decoded, err := Decode(encoded1)
	require.NoError(t, err)

	encoded2, err := Encode(decoded)
	require.NoError(t, err)

	assert.Equal(t, string(encoded1), string(encoded2), "Encode(Decode(Encode(doc))) must equal Encode(doc) byte-for-byte")
}

func TestEncodeDecode_PreservesFields(t *testing.T) {
	doc := sampleDoc()

	encoded, err := Encode(doc)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, doc.HandoffID, decoded.HandoffID)
	assert.Equal(t, doc.PredecessorHandoffID, decoded.PredecessorHandoffID)
	assert.Equal(t, doc.CompletionPercentage, decoded.CompletionPercentage)
	assert.Equal(t, doc.TaskStatus, decoded.TaskStatus)
	assert.Equal(t, doc.Decisions, decoded.Decisions)
	assert.Equal(t, doc.TodoList, decoded.TodoList)
	assert.Equal(t, doc.WorkInProgress, decoded.WorkInProgress)
	assert.Equal(t, doc.ToolState, decoded.ToolState)
	assert.Equal(t, doc.Dependencies, decoded.Dependencies)
	assert.Equal(t, doc.ErrorHistory, decoded.ErrorHistory)
	assert.Equal(t, doc.Signature, decoded.Signature)
}

func TestEncodeDecode_EmptySectionsRenderAsNone(t *testing.T) {
	doc := &Document{
		SchemaVersion: SchemaVersion,
		HandoffID:     "h-1",
		TraceID:       "t-1",
		TaskID:        "task-1",
		SourceAgent:   SourceAgent{AgentID: "agent-1"},
		TaskStatus:    TaskStatusInProgress,
	}

	encoded, err := Encode(doc)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	assert.Nil(t, decoded.Decisions)
	assert.Nil(t, decoded.TodoList)
	assert.Nil(t, decoded.WorkInProgress)
	assert.Nil(t, decoded.ToolState)
	assert.Nil(t, decoded.Assumptions)
	assert.True(t, decoded.IsRoot())
}

func TestEncodeDecode_RootHandoffHasEmptyPredecessor(t *testing.T) {
	doc := sampleDoc()
	doc.PredecessorHandoffID = ""

	encoded, err := Encode(doc)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	assert.True(t, decoded.IsRoot())
	assert.Empty(t, decoded.PredecessorHandoffID)
}

func TestDecode_RejectsMajorVersionMismatch(t *testing.T) {
	doc := sampleDoc()
	doc.SchemaVersion = "2.0.0"

	encoded, err := Encode(doc)
	require.NoError(t, err)

	_, err = Decode(encoded)
	assert.Error(t, err)
}

func TestDecode_RejectsMissingSections(t *testing.T) {
	_, err := Decode([]byte("---\nschema_version: 1.0.0\n---\nnot a valid section body"))
	assert.Error(t, err)
}

func TestDecode_RejectsDanglingTodoDecisionReference(t *testing.T) {
	doc := sampleDoc()
	doc.TodoList = []TodoItem{
		{Priority: PriorityP0, Description: "Follow up on D99 which does not exist"},
	}

	encoded, err := Encode(doc)
	require.NoError(t, err)

	_, err = Decode(encoded)
	assert.Error(t, err)
}

func TestValidate_CatchesMultipleViolations(t *testing.T) {
	doc := &Document{
		CompletionPercentage: 150,
		TaskStatus:           "bogus",
	}
	err := Validate(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema_version")
	assert.Contains(t, err.Error(), "completion_percentage")
	assert.Contains(t, err.Error(), "task_status")
}

func TestValidate_DegradedDocSkipsTodoChecks(t *testing.T) {
	doc := sampleDoc()
	doc.Degraded = true
	doc.TodoList = []TodoItem{{Priority: "P9", Description: ""}}
	err := Validate(doc)
	assert.NoError(t, err)
}

func TestContinuationPrompt_OrdersTodosBeforeDecisionsBeforeRejected(t *testing.T) {
	doc := sampleDoc()
	prompt := ContinuationPrompt(doc)

	todoIdx := indexOf(prompt, "What to do next")
	decisionsIdx := indexOf(prompt, "Decisions already made")
	rejectedIdx := indexOf(prompt, "Already tried and rejected")

	require.Greater(t, todoIdx, -1)
	require.Greater(t, decisionsIdx, -1)
	require.Greater(t, rejectedIdx, -1)
	assert.Less(t, todoIdx, decisionsIdx)
	assert.Less(t, decisionsIdx, rejectedIdx)
}

func TestContinuationPrompt_OrdersTodosByPriority(t *testing.T) {
	doc := sampleDoc()
	doc.TodoList = []TodoItem{
		{Priority: PriorityP2, Description: "low priority item"},
		{Priority: PriorityP0, Description: "urgent item"},
	}
	prompt := ContinuationPrompt(doc)

	urgentIdx := indexOf(prompt, "urgent item")
	lowIdx := indexOf(prompt, "low priority item")
	require.Greater(t, urgentIdx, -1)
	require.Greater(t, lowIdx, -1)
	assert.Less(t, urgentIdx, lowIdx)
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
