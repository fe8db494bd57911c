// Package lifecycle implements C4: the single authority over agent
// instance lifecycle — spawning, usage tracking, threshold-triggered
// handoff, and termination.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kodelet-systems/agentlifecycle/pkg/agenttype"
	"github.com/kodelet-systems/agentlifecycle/pkg/config"
	"github.com/kodelet-systems/agentlifecycle/pkg/handoffdoc"
	"github.com/kodelet-systems/agentlifecycle/pkg/handoffstore"
	"github.com/kodelet-systems/agentlifecycle/pkg/lifecycleerrors"
	"github.com/kodelet-systems/agentlifecycle/pkg/modelclient"
	"github.com/kodelet-systems/agentlifecycle/pkg/notifier"
	"github.com/kodelet-systems/agentlifecycle/pkg/observability"
	"github.com/kodelet-systems/agentlifecycle/pkg/tokentracker"
)

// Manager is the lifecycle authority described in spec §4.4. It owns the
// agent registry; every state mutation and handoff decision passes
// through it.
type Manager struct {
	cfg      *config.Config
	store    *handoffstore.Store
	model    modelclient.Client
	notify   notifier.Notifier
	bus      *observability.Bus
	registry *registry

	handoffCountMu sync.Mutex
	handoffCount   map[string]int // task_id -> handoffs issued so far
}

// NewManager constructs a Manager. All dependencies are required except
// bus, which may be nil; a nil bus is replaced by a Bus on the global
// tracer provider, so spans are still recorded whenever tracing is
// initialised.
func NewManager(cfg *config.Config, store *handoffstore.Store, model modelclient.Client, notify notifier.Notifier, bus *observability.Bus) *Manager {
	if bus == nil {
		bus = observability.NewBus("agentlifecycle")
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		model:        model,
		notify:       notify,
		bus:          bus,
		registry:     newRegistry(),
		handoffCount: make(map[string]int),
	}
}

// SpawnParams are the inputs to Spawn. Continuation is nil for a root
// agent and set to the predecessor's handoff for a successor.
type SpawnParams struct {
	AgentType       agenttype.Type
	UserID          string
	ProjectID       string
	TraceID         string
	TaskID          string
	OriginalRequest string
	BasePrompt      string
	Continuation    *handoffdoc.Document
}

// Spawn creates and activates a fresh AgentInstance (spec §4.4).
func (m *Manager) Spawn(ctx context.Context, p SpawnParams) (*AgentInstance, error) {
	version := 1
	predecessorHandoffID := ""
	originalRequest := p.OriginalRequest
	completionFloor := 0
	systemPrompt := p.BasePrompt

	if p.Continuation != nil {
		version = p.Continuation.SourceAgent.Version + 1
		predecessorHandoffID = p.Continuation.HandoffID
		if p.Continuation.OriginalRequest != "" {
			originalRequest = p.Continuation.OriginalRequest
		}
		completionFloor = p.Continuation.CompletionPercentage
		systemPrompt = handoffdoc.ContinuationPrompt(p.Continuation) + "\n\n" + p.BasePrompt
	}

	inst := &AgentInstance{
		AgentID:              uuid.NewString(),
		AgentType:            p.AgentType,
		Version:              version,
		SpawnTime:            time.Now(),
		UserID:               p.UserID,
		ProjectID:            p.ProjectID,
		TraceID:              p.TraceID,
		TaskID:               p.TaskID,
		PredecessorHandoffID: predecessorHandoffID,
		OriginalRequest:      originalRequest,
		CompletionFloor:      completionFloor,
		SystemPrompt:         systemPrompt,
		Tracker:              tokentracker.NewTracker(m.tokenPolicy()),
		state:                StateSpawning,
	}

	if err := inst.transition(StateActive); err != nil {
		return nil, err
	}

	m.registry.insert(inst)
	m.bus.EmitAgentSpawned(ctx, inst.AgentID, string(inst.AgentType), inst.Version)

	logrus.WithFields(logrus.Fields{
		"agent_id":   inst.AgentID,
		"agent_type": inst.AgentType,
		"version":    inst.Version,
		"task_id":    inst.TaskID,
	}).Info("lifecycle: agent spawned")

	return inst, nil
}

func (m *Manager) tokenPolicy() tokentracker.Policy {
	return tokentracker.Policy{
		Limit:             m.cfg.ContextWindowLimit,
		WarningThreshold:  m.cfg.WarningThreshold,
		CriticalThreshold: m.cfg.CriticalThreshold,
	}
}

// Get returns the instance registered under agentID.
func (m *Manager) Get(agentID string) (*AgentInstance, bool) {
	return m.registry.get(agentID)
}

// RecordUsage delegates to the agent's tracker and then evaluates
// threshold status, the only mutation path for tracker-driven state
// (spec §4.4). A first-time crossing into WARNING fires an advisory; a
// first-time crossing into CRITICAL fires the advisory, transitions the
// instance, and returns ErrContextWindowExhausted so the caller (the
// Orchestrator) knows not to attempt another model call on this instance.
func (m *Manager) RecordUsage(ctx context.Context, agentID, operationName string, usage tokentracker.Usage) (tokentracker.Snapshot, error) {
	inst, ok := m.registry.get(agentID)
	if !ok {
		return tokentracker.Snapshot{}, lifecycleerrors.New(lifecycleerrors.KindNotFound, "unknown agent_id: "+agentID)
	}

	if _, err := inst.Tracker.RecordUsage(operationName, usage); err != nil {
		return tokentracker.Snapshot{}, errors.Wrap(err, "lifecycle: failed to record usage")
	}

	snap := inst.Tracker.Snapshot()
	firstTime := inst.observeStatus(snap.Status)

	if firstTime && snap.Status == tokentracker.StatusWarning {
		if err := inst.transition(StateWarning); err == nil {
			_, span := m.bus.StartAgentThreshold(ctx, agentID, "warning", snap.UsagePercentage)
			m.bus.EmitThresholdCrossed(ctx, agentID, "warning", snap.UsagePercentage)
			observability.EndOK(span)
			m.sendNotification(ctx, inst.UserID, fmt.Sprintf("%s at %.0f%% token usage — approaching context limit.", inst.AgentType, snap.UsagePercentage))
		}
	}

	if firstTime && snap.Status == tokentracker.StatusCritical {
		if err := inst.transition(StateCritical); err == nil {
			_, span := m.bus.StartAgentThreshold(ctx, agentID, "critical", snap.UsagePercentage)
			m.bus.EmitThresholdCrossed(ctx, agentID, "critical", snap.UsagePercentage)
			observability.EndOK(span)
			m.sendNotification(ctx, inst.UserID, fmt.Sprintf("%s at critical usage — preparing handoff.", inst.AgentType))
			return snap, lifecycleerrors.Wrap(lifecycleerrors.KindContextWindowExhausted, nil, "agent token budget exhausted")
		}
	}

	return snap, nil
}

func (m *Manager) sendNotification(ctx context.Context, userID, message string) {
	if m.notify == nil {
		return
	}
	if err := m.notify.Notify(ctx, userID, message); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("lifecycle: failed to deliver notification")
	}
}

func (m *Manager) incrementHandoffCount(taskID string) int {
	m.handoffCountMu.Lock()
	defer m.handoffCountMu.Unlock()
	m.handoffCount[taskID]++
	return m.handoffCount[taskID]
}
