package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodelet-systems/agentlifecycle/pkg/agenttype"
	"github.com/kodelet-systems/agentlifecycle/pkg/config"
	"github.com/kodelet-systems/agentlifecycle/pkg/handoffstore"
	"github.com/kodelet-systems/agentlifecycle/pkg/lifecycle"
	"github.com/kodelet-systems/agentlifecycle/pkg/modelclient"
	"github.com/kodelet-systems/agentlifecycle/pkg/notifier"
	"github.com/kodelet-systems/agentlifecycle/pkg/sessionstore"
	"github.com/kodelet-systems/agentlifecycle/pkg/tokentracker"
)

func newTestOrchestrator(t *testing.T, model modelclient.Client) (*Orchestrator, *lifecycle.Manager) {
	t.Helper()
	dir := t.TempDir()
	store, err := handoffstore.Open(context.Background(), filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	cfg.ContextWindowLimit = 1000

	manager := lifecycle.NewManager(cfg, store, model, &notifier.ConsoleNotifier{Silent: true}, nil)
	o := New(manager, sessionstore.NewInMemoryStore(), model, &notifier.ConsoleNotifier{Silent: true}, nil)
	return o, manager
}

func TestOrchestrator_NewTask_ConversationalWorkflow(t *testing.T) {
	model := &modelclient.Fake{
		CallResponses: []modelclient.CallResult{
			{Text: "new_task:conversational"},
			{Usage: tokentracker.Usage{InputTokens: 10}},
		},
	}
	o, _ := newTestOrchestrator(t, model)

	result, err := o.HandleMessage(context.Background(), IncomingMessage{
		UserID:    "u1",
		MessageID: "m1",
		Text:      "hey, just checking in",
	})
	require.NoError(t, err)
	assert.Equal(t, ClassNewTask, result.Classification)
	assert.Equal(t, agenttype.WorkflowConversational, result.Workflow)
	assert.NotEmpty(t, result.FinalAgentID)
	assert.Equal(t, 0, result.HandoffCount)
}

func TestOrchestrator_DeduplicatesByMessageID(t *testing.T) {
	model := &modelclient.Fake{
		CallResponses: []modelclient.CallResult{
			{Text: "new_task:conversational"},
			{Usage: tokentracker.Usage{InputTokens: 10}},
		},
	}
	o, _ := newTestOrchestrator(t, model)
	ctx := context.Background()

	_, err := o.HandleMessage(ctx, IncomingMessage{UserID: "u1", MessageID: "dup", Text: "hi"})
	require.NoError(t, err)

	result, err := o.HandleMessage(ctx, IncomingMessage{UserID: "u1", MessageID: "dup", Text: "hi"})
	require.NoError(t, err)
	assert.True(t, result.Deduplicated)
}

func TestOrchestrator_ClassificationFailureDefaultsToNewTask(t *testing.T) {
	model := &modelclient.Fake{
		CallErrs: []error{assertAnError},
		CallResponses: []modelclient.CallResult{
			{}, // consumed by the failed classification attempt, ignored
			{Usage: tokentracker.Usage{InputTokens: 10}},
		},
	}
	o, _ := newTestOrchestrator(t, model)

	result, err := o.HandleMessage(context.Background(), IncomingMessage{UserID: "u1", MessageID: "m1", Text: "???"})
	require.NoError(t, err)
	assert.Equal(t, ClassNewTask, result.Classification)
	assert.Equal(t, agenttype.WorkflowFullBuild, result.Workflow)
}

func TestOrchestrator_Cancellation_ClearsSession(t *testing.T) {
	o, _ := newTestOrchestrator(t, &modelclient.Fake{})
	ctx := context.Background()
	require.NoError(t, o.sessions.Save(ctx, &sessionstore.Session{
		UserID:         "u1",
		ActiveTaskID:   "t1",
		ActiveWorkflow: agenttype.WorkflowBugFix,
		CurrentPhase:   "execution",
	}))

	result, err := o.HandleMessage(ctx, IncomingMessage{UserID: "u1", MessageID: "m1", CancelRequested: true})
	require.NoError(t, err)
	assert.Equal(t, ClassCancellation, result.Classification)

	sess, err := o.sessions.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Empty(t, sess.ActiveTaskID)
	assert.Empty(t, sess.ActiveWorkflow)
	assert.Equal(t, "cancelled", sess.CurrentPhase)
}

func TestOrchestrator_FatalFailure_NotifiesFixedPhrasing(t *testing.T) {
	model := &modelclient.Fake{
		CallResponses: []modelclient.CallResult{{Text: "new_task:conversational"}},
		CallErrs:      []error{nil, assertAnError},
	}
	notify := &recordingNotifier{}

	dir := t.TempDir()
	store, err := handoffstore.Open(context.Background(), filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	manager := lifecycle.NewManager(config.Default(), store, model, notify, nil)
	o := New(manager, sessionstore.NewInMemoryStore(), model, notify, nil)

	_, err = o.HandleMessage(context.Background(), IncomingMessage{UserID: "u1", MessageID: "m1", Text: "hi"})
	require.Error(t, err)

	require.Len(t, notify.messages, 1)
	assert.Equal(t, "The task could not be completed (internal error). Partial work has been saved and can be resumed.", notify.messages[0])
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notify(_ context.Context, _, message string) error {
	n.messages = append(n.messages, message)
	return nil
}

var assertAnError = errTest("boom")

type errTest string

func (e errTest) Error() string { return string(e) }
