package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kodelet-systems/agentlifecycle/pkg/handoffdoc"
	"github.com/kodelet-systems/agentlifecycle/pkg/lifecycleerrors"
	"github.com/kodelet-systems/agentlifecycle/pkg/modelclient"
	"github.com/kodelet-systems/agentlifecycle/pkg/observability"
)

// CreateHandoff runs the state-extraction half of the handoff protocol
// (spec §4.4 steps 3-4): transition to HANDOFF_IN_PROGRESS, extract the
// terminating agent's state (falling back to a degraded minimal handoff
// if extraction itself exhausts or repeatedly fails validation), stamp
// the fields only the manager knows, enforce completion monotonicity,
// and persist.
func (m *Manager) CreateHandoff(ctx context.Context, agentID, reason string) (doc *handoffdoc.Document, err error) {
	inst, ok := m.registry.get(agentID)
	if !ok {
		return nil, lifecycleerrors.New(lifecycleerrors.KindNotFound, "unknown agent_id: "+agentID)
	}

	if err := inst.transition(StateHandoffInProgress); err != nil {
		return nil, errors.Wrap(err, "lifecycle: cannot create handoff")
	}

	doc, degraded := m.extractState(ctx, inst)

	doc.SchemaVersion = handoffdoc.SchemaVersion
	doc.HandoffID = uuid.NewString()

	ctx, span := m.bus.StartAgentHandoff(ctx, agentID, doc.HandoffID, inst.CompletionFloor)
	defer func() { observability.EndErr(span, err) }()

	doc.TraceID = inst.TraceID
	doc.TaskID = inst.TaskID
	doc.UserID = inst.UserID
	doc.ProjectID = inst.ProjectID
	doc.PredecessorHandoffID = inst.PredecessorHandoffID
	doc.SourceAgent = handoffdoc.SourceAgent{
		AgentID:           inst.AgentID,
		AgentType:         string(inst.AgentType),
		Version:           inst.Version,
		SpawnTime:         inst.SpawnTime,
		TerminationTime:   time.Now(),
		TerminationReason: reason,
	}

	snap := inst.Tracker.Snapshot()
	doc.TokenUsage = handoffdoc.TokenUsageSummary{
		Total:           snap.Total,
		Input:           snap.Input,
		Output:          snap.Output,
		CacheRead:       snap.CacheRead,
		CacheCreate:     snap.CacheCreate,
		UsagePercentage: snap.UsagePercentage,
		History:         inst.Tracker.History(),
	}
	doc.Degraded = degraded

	if doc.OriginalRequest == "" {
		doc.OriginalRequest = inst.OriginalRequest
	}
	if doc.CompletionPercentage < inst.CompletionFloor {
		logrus.WithFields(logrus.Fields{
			"agent_id": agentID, "reported": doc.CompletionPercentage, "floor": inst.CompletionFloor,
		}).Warn("lifecycle: handoff reported regressed completion_percentage, clamping to predecessor floor")
		doc.CompletionPercentage = inst.CompletionFloor
	}

	if err := m.store.Save(ctx, doc); err != nil {
		return nil, errors.Wrap(err, "lifecycle: failed to persist handoff")
	}

	m.bus.EmitHandoffSaved(ctx, doc.HandoffID, doc.CompletionPercentage)
	return doc, nil
}

// extractState implements the extraction/repair/degrade sequence from
// spec §4.4 step 3 and the "malformed handoff state" row of the failure
// table in §7: one extraction attempt, one repair attempt on validation
// failure, and a minimal degraded handoff if extraction itself exhausts
// or both attempts fail to validate.
func (m *Manager) extractState(ctx context.Context, inst *AgentInstance) (*handoffdoc.Document, bool) {
	maxAttempts := 1 + m.cfg.HandoffRepairAttempts

	for attempt := 0; attempt < maxAttempts; attempt++ {
		extractCtx, cancel := context.WithTimeout(ctx, m.cfg.HandoffExtractionDeadline)
		doc, usage, err := m.model.ExtractHandoffState(extractCtx, modelclient.ExtractionRequest{
			AgentID:  inst.AgentID,
			Deadline: m.cfg.HandoffExtractionDeadline,
			Repair:   attempt > 0,
		})
		cancel()

		if usage.Total() > 0 {
			_, _ = inst.Tracker.RecordUsage("handoff_extraction", usage)
		}

		if err != nil {
			if isExhaustionLike(err) {
				logrus.WithField("agent_id", inst.AgentID).Warn("lifecycle: state extraction itself exhausted, degrading to minimal handoff")
				return m.minimalHandoff(inst), true
			}
			logrus.WithError(err).WithField("agent_id", inst.AgentID).Warn("lifecycle: state extraction call failed")
			continue
		}

		if verr := handoffdoc.ValidateContent(doc); verr != nil {
			logrus.WithError(verr).WithField("agent_id", inst.AgentID).Warn("lifecycle: extracted handoff failed validation")
			continue
		}

		return doc, false
	}

	return m.minimalHandoff(inst), true
}

func (m *Manager) minimalHandoff(inst *AgentInstance) *handoffdoc.Document {
	description := inst.ConversationTail()
	if description == "" {
		description = inst.OriginalRequest
	}
	if description == "" {
		description = "(no conversation tail was captured before this degraded handoff)"
	}
	return &handoffdoc.Document{
		OriginalRequest:      inst.OriginalRequest,
		TaskDescription:      description,
		CompletionPercentage: inst.CompletionFloor,
		TaskStatus:           handoffdoc.TaskStatusBlocked,
	}
}

func isExhaustionLike(err error) bool {
	kind, ok := lifecycleerrors.KindOf(err)
	if !ok {
		return false
	}
	return kind == lifecycleerrors.KindContextWindowExhausted || kind == lifecycleerrors.KindModelCallTimeout
}
