package lifecycle

import (
	"context"
	"fmt"

	"github.com/kodelet-systems/agentlifecycle/pkg/lifecycleerrors"
)

// HandoffAndRespawn is the composite operation the Orchestrator drives on
// ContextWindowExhausted (spec §4.4): CreateHandoff → Terminate(old) →
// Spawn(continuation=doc). The per-task handoff count is checked only
// after the handoff is persisted and the old agent terminated, so a task
// that hits the limit still ends up with every handoff document retained
// for post-mortem (spec §7's failure table) even though no successor is
// spawned.
func (m *Manager) HandoffAndRespawn(ctx context.Context, agentID, reason, basePrompt string) (*AgentInstance, error) {
	inst, ok := m.registry.get(agentID)
	if !ok {
		return nil, lifecycleerrors.New(lifecycleerrors.KindNotFound, "unknown agent_id: "+agentID)
	}

	doc, err := m.CreateHandoff(ctx, agentID, reason)
	if err != nil {
		return nil, err
	}

	agentType, userID, projectID, traceID, taskID := inst.AgentType, inst.UserID, inst.ProjectID, inst.TraceID, inst.TaskID

	if err := m.Terminate(ctx, agentID, reason); err != nil {
		return nil, err
	}

	count := m.incrementHandoffCount(taskID)
	if count > m.cfg.MaxHandoffsPerTask {
		m.sendNotification(ctx, userID, fmt.Sprintf("%s task failed: exceeded the maximum of %d handoffs without completing.", agentType, m.cfg.MaxHandoffsPerTask))
		return nil, lifecycleerrors.Wrap(lifecycleerrors.KindHandoffLimitExceeded, nil,
			fmt.Sprintf("task %s exceeded max handoffs (%d)", taskID, m.cfg.MaxHandoffsPerTask))
	}

	newInst, err := m.Spawn(ctx, SpawnParams{
		AgentType:  agentType,
		UserID:     userID,
		ProjectID:  projectID,
		TraceID:    traceID,
		TaskID:     taskID,
		BasePrompt: basePrompt,
		Continuation: doc,
	})
	if err != nil {
		return nil, err
	}

	m.sendNotification(ctx, userID, fmt.Sprintf("New %s spawned; continuing from %d%% completion.", agentType, doc.CompletionPercentage))
	return newInst, nil
}
