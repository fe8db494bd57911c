package lifecycle

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodelet-systems/agentlifecycle/pkg/agenttype"
	"github.com/kodelet-systems/agentlifecycle/pkg/config"
	"github.com/kodelet-systems/agentlifecycle/pkg/handoffdoc"
	"github.com/kodelet-systems/agentlifecycle/pkg/handoffstore"
	"github.com/kodelet-systems/agentlifecycle/pkg/lifecycleerrors"
	"github.com/kodelet-systems/agentlifecycle/pkg/modelclient"
	"github.com/kodelet-systems/agentlifecycle/pkg/tokentracker"
)

func newTestStore(t *testing.T) *handoffstore.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := handoffstore.Open(context.Background(), filepath.Join(dir, "test.db"), handoffstore.WithFallbackDir(filepath.Join(dir, "fallback")))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// fakeNotifier records every notification it receives.
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Notify(ctx context.Context, userID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ContextWindowLimit = 1000
	cfg.WarningThreshold = 0.75
	cfg.CriticalThreshold = 0.90
	cfg.MaxHandoffsPerTask = 2
	cfg.HandoffRepairAttempts = 1
	return cfg
}

func validDoc(completion int) *handoffdoc.Document {
	return &handoffdoc.Document{
		TaskDescription:      "continue the thing",
		CompletionPercentage: completion,
		TaskStatus:           handoffdoc.TaskStatusInProgress,
	}
}

func newTestManager(t *testing.T, model modelclient.Client, notify *fakeNotifier) *Manager {
	t.Helper()
	store := newTestStore(t)
	return NewManager(testConfig(), store, model, notify, nil)
}

// forceCritical pushes inst straight into CRITICAL in a single call. The
// returned ContextWindowExhausted error on first crossing is the expected
// signal, not a test failure, and is swallowed here.
func forceCritical(m *Manager, inst *AgentInstance) error {
	_, err := m.RecordUsage(context.Background(), inst.AgentID, "force_critical", tokentracker.Usage{InputTokens: m.cfg.ContextWindowLimit})
	if err == nil {
		return nil
	}
	if kind, ok := lifecycleerrors.KindOf(err); ok && kind == lifecycleerrors.KindContextWindowExhausted {
		return nil
	}
	return err
}

func TestManager_Spawn_RootAgent(t *testing.T) {
	m := newTestManager(t, &modelclient.Fake{}, &fakeNotifier{})

	inst, err := m.Spawn(context.Background(), SpawnParams{
		AgentType:       agenttype.Backend,
		UserID:          "user-1",
		TaskID:          "task-1",
		OriginalRequest: "build the thing",
		BasePrompt:      "you are a backend agent",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, inst.Version)
	assert.Equal(t, "", inst.PredecessorHandoffID)
	assert.Equal(t, 0, inst.CompletionFloor)
	assert.Equal(t, StateActive, inst.State())
	assert.Equal(t, "you are a backend agent", inst.SystemPrompt)

	id, ok := m.registry.activeForTask("task-1")
	assert.True(t, ok)
	assert.Equal(t, inst.AgentID, id)
}

func TestManager_Spawn_Continuation(t *testing.T) {
	m := newTestManager(t, &modelclient.Fake{}, &fakeNotifier{})

	doc := &handoffdoc.Document{
		HandoffID:            "h-1",
		OriginalRequest:      "build the thing",
		CompletionPercentage: 42,
		SourceAgent:          handoffdoc.SourceAgent{Version: 1},
	}

	inst, err := m.Spawn(context.Background(), SpawnParams{
		AgentType:    agenttype.Backend,
		UserID:       "user-1",
		TaskID:       "task-1",
		BasePrompt:   "you are a backend agent",
		Continuation: doc,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, inst.Version)
	assert.Equal(t, "h-1", inst.PredecessorHandoffID)
	assert.Equal(t, 42, inst.CompletionFloor)
	assert.Equal(t, "build the thing", inst.OriginalRequest)
	assert.Contains(t, inst.SystemPrompt, "you are a backend agent")
	assert.Contains(t, inst.SystemPrompt, "task \"\"")
}

func TestManager_RecordUsage_WarningFiresOnce(t *testing.T) {
	notify := &fakeNotifier{}
	m := newTestManager(t, &modelclient.Fake{}, notify)

	inst, err := m.Spawn(context.Background(), SpawnParams{AgentType: agenttype.Backend, UserID: "u", TaskID: "t"})
	require.NoError(t, err)

	ctx := context.Background()

	// 80% of 1000 -> WARNING.
	_, err = m.RecordUsage(ctx, inst.AgentID, "op1", tokentracker.Usage{InputTokens: 800})
	require.NoError(t, err)
	assert.Equal(t, StateWarning, inst.State())
	assert.Equal(t, 1, notify.count())

	// A second RecordUsage call still in WARNING zone must not refire.
	_, err = m.RecordUsage(ctx, inst.AgentID, "op2", tokentracker.Usage{InputTokens: 1})
	require.NoError(t, err)
	assert.Equal(t, StateWarning, inst.State())
	assert.Equal(t, 1, notify.count())
}

func TestManager_RecordUsage_CriticalReturnsContextWindowExhausted(t *testing.T) {
	notify := &fakeNotifier{}
	m := newTestManager(t, &modelclient.Fake{}, notify)

	inst, err := m.Spawn(context.Background(), SpawnParams{AgentType: agenttype.Backend, UserID: "u", TaskID: "t"})
	require.NoError(t, err)

	ctx := context.Background()

	_, err = m.RecordUsage(ctx, inst.AgentID, "op1", tokentracker.Usage{InputTokens: 950})
	require.Error(t, err)
	kind, ok := lifecycleerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, lifecycleerrors.KindContextWindowExhausted, kind)
	assert.Equal(t, StateCritical, inst.State())

	// Further usage while already CRITICAL must not return the error again
	// (threshold callbacks fire at most once per crossing).
	_, err = m.RecordUsage(ctx, inst.AgentID, "op2", tokentracker.Usage{InputTokens: 1})
	assert.NoError(t, err)
}

func TestManager_CreateHandoff_PersistsAndClampsCompletion(t *testing.T) {
	model := &modelclient.Fake{ExtractDocs: []*handoffdoc.Document{validDoc(30)}}
	m := newTestManager(t, model, &fakeNotifier{})

	inst, err := m.Spawn(context.Background(), SpawnParams{AgentType: agenttype.Backend, UserID: "u", TaskID: "t", TraceID: "trace-1", OriginalRequest: "do it"})
	require.NoError(t, err)
	inst.CompletionFloor = 50 // simulate a successor whose predecessor was already at 50%

	require.NoError(t, forceCritical(m, inst))

	doc, err := m.CreateHandoff(context.Background(), inst.AgentID, "token budget exhausted")
	require.NoError(t, err)

	assert.Equal(t, 50, doc.CompletionPercentage, "regressed completion must clamp up to predecessor floor")
	assert.False(t, doc.Degraded)
	assert.Equal(t, handoffdoc.SchemaVersion, doc.SchemaVersion)
	assert.Equal(t, "do it", doc.OriginalRequest)

	loaded, err := m.store.Load(context.Background(), doc.HandoffID)
	require.NoError(t, err)
	assert.Equal(t, doc.HandoffID, loaded.HandoffID)
}

func TestManager_CreateHandoff_DegradesOnExtractionExhaustion(t *testing.T) {
	model := &modelclient.Fake{ExtractErrs: []error{modelclient.ErrExhausted}}
	m := newTestManager(t, model, &fakeNotifier{})

	inst, err := m.Spawn(context.Background(), SpawnParams{AgentType: agenttype.Backend, UserID: "u", TaskID: "t", TraceID: "trace-1", OriginalRequest: "do it"})
	require.NoError(t, err)
	require.NoError(t, forceCritical(m, inst))

	doc, err := m.CreateHandoff(context.Background(), inst.AgentID, "exhausted")
	require.NoError(t, err)

	assert.True(t, doc.Degraded)
	assert.Equal(t, handoffdoc.TaskStatusBlocked, doc.TaskStatus)
}

func TestManager_CreateHandoff_RepairsOnceThenDegrades(t *testing.T) {
	invalid := &handoffdoc.Document{} // fails ValidateContent: empty task_status
	model := &modelclient.Fake{ExtractDocs: []*handoffdoc.Document{invalid, invalid}}
	m := newTestManager(t, model, &fakeNotifier{})

	inst, err := m.Spawn(context.Background(), SpawnParams{AgentType: agenttype.Backend, UserID: "u", TaskID: "t", TraceID: "trace-1"})
	require.NoError(t, err)
	require.NoError(t, forceCritical(m, inst))

	doc, err := m.CreateHandoff(context.Background(), inst.AgentID, "bad extraction")
	require.NoError(t, err)

	assert.True(t, doc.Degraded)
	require.Len(t, model.Extractions, 2)
	assert.False(t, model.Extractions[0].Repair)
	assert.True(t, model.Extractions[1].Repair)
}

func TestManager_Terminate_RemovesFromRegistry(t *testing.T) {
	m := newTestManager(t, &modelclient.Fake{}, &fakeNotifier{})

	inst, err := m.Spawn(context.Background(), SpawnParams{AgentType: agenttype.Backend, UserID: "u", TaskID: "t"})
	require.NoError(t, err)

	require.NoError(t, m.Terminate(context.Background(), inst.AgentID, "done"))
	assert.Equal(t, StateTerminated, inst.State())

	_, ok := m.registry.get(inst.AgentID)
	assert.False(t, ok)
	_, ok = m.registry.activeForTask("t")
	assert.False(t, ok)
}

func TestManager_HandoffAndRespawn_FullCycle(t *testing.T) {
	model := &modelclient.Fake{ExtractDocs: []*handoffdoc.Document{validDoc(40)}}
	notify := &fakeNotifier{}
	m := newTestManager(t, model, notify)

	inst, err := m.Spawn(context.Background(), SpawnParams{AgentType: agenttype.Backend, UserID: "u", TaskID: "t", TraceID: "trace-1", OriginalRequest: "do it"})
	require.NoError(t, err)
	require.NoError(t, forceCritical(m, inst))

	newInst, err := m.HandoffAndRespawn(context.Background(), inst.AgentID, "context exhausted", "you are a backend agent")
	require.NoError(t, err)

	assert.Equal(t, 2, newInst.Version)
	assert.Equal(t, 40, newInst.CompletionFloor)
	assert.Equal(t, StateActive, newInst.State())

	_, ok := m.registry.get(inst.AgentID)
	assert.False(t, ok, "predecessor must be terminated and removed")

	active, ok := m.registry.activeForTask("t")
	assert.True(t, ok)
	assert.Equal(t, newInst.AgentID, active, "exactly one ACTIVE instance per task_id")
}

// TestManager_HandoffAndRespawn_ExceedsLimit mirrors the scenario in which
// three consecutive CRITICAL crossings on the same task are forced: with
// MaxHandoffsPerTask=2, the first two respawn successfully and the third
// fails with HandoffLimitExceeded after all three handoff extractions
// ran, while the two handoff documents behind the successful respawns
// remain retrievable.
func TestManager_HandoffAndRespawn_ExceedsLimit(t *testing.T) {
	model := &modelclient.Fake{ExtractDocs: []*handoffdoc.Document{validDoc(10), validDoc(20), validDoc(30)}}
	notify := &fakeNotifier{}
	m := newTestManager(t, model, notify)
	ctx := context.Background()

	inst, err := m.Spawn(ctx, SpawnParams{AgentType: agenttype.Backend, UserID: "u", TaskID: "t", TraceID: "trace-1", OriginalRequest: "do it"})
	require.NoError(t, err)

	var handoffIDs []string
	cur := inst
	for i := 0; i < 2; i++ {
		require.NoError(t, forceCritical(m, cur))
		next, err := m.HandoffAndRespawn(ctx, cur.AgentID, "exhausted", "continue")
		require.NoError(t, err, "respawn %d should succeed", i+1)
		handoffIDs = append(handoffIDs, next.PredecessorHandoffID)
		cur = next
	}

	require.NoError(t, forceCritical(m, cur))
	_, err = m.HandoffAndRespawn(ctx, cur.AgentID, "exhausted", "continue")
	require.Error(t, err)
	kind, ok := lifecycleerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, lifecycleerrors.KindHandoffLimitExceeded, kind)

	// All three handoff extractions ran (two successful respawns plus the
	// handoff persisted just before the would-be third respawn failed),
	// and the first two handoff documents remain retrievable for
	// post-mortem even though the task ultimately failed.
	assert.Len(t, model.Extractions, 3)
	for _, id := range handoffIDs {
		_, err := m.store.Load(ctx, id)
		assert.NoError(t, err)
	}
}
