package lifecycle

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kodelet-systems/agentlifecycle/pkg/lifecycleerrors"
)

// Terminate transitions agentID to TERMINATED, removes it from the
// registry, and emits agent_terminated with its lifetime and final token
// totals (spec §4.4).
func (m *Manager) Terminate(ctx context.Context, agentID, reason string) error {
	return m.terminate(ctx, agentID, reason, StateTerminated)
}

// TerminateWithError transitions agentID to the TERMINATED_ERROR sink,
// for unrecoverable agent failures rather than ordinary handoff/task
// completion.
func (m *Manager) TerminateWithError(ctx context.Context, agentID, reason string) error {
	return m.terminate(ctx, agentID, reason, StateTerminatedError)
}

func (m *Manager) terminate(ctx context.Context, agentID, reason string, target State) error {
	inst, ok := m.registry.get(agentID)
	if !ok {
		return lifecycleerrors.New(lifecycleerrors.KindNotFound, "unknown agent_id: "+agentID)
	}

	if err := inst.transition(target); err != nil {
		return errors.Wrap(err, "lifecycle: cannot terminate")
	}

	m.registry.remove(inst.AgentID, inst.TaskID)

	lifetime := time.Since(inst.SpawnTime)
	snap := inst.Tracker.Snapshot()
	m.bus.EmitAgentTerminated(ctx, agentID, lifetime, snap.Total)

	logrus.WithFields(logrus.Fields{
		"agent_id":    agentID,
		"reason":      reason,
		"lifetime_ms": lifetime.Milliseconds(),
		"tokens":      snap.Total,
	}).Info("lifecycle: agent terminated")

	return nil
}
