package orchestrator

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kodelet-systems/agentlifecycle/pkg/agenttype"
	"github.com/kodelet-systems/agentlifecycle/pkg/lifecycle"
	"github.com/kodelet-systems/agentlifecycle/pkg/lifecycleerrors"
	"github.com/kodelet-systems/agentlifecycle/pkg/modelclient"
	"github.com/kodelet-systems/agentlifecycle/pkg/observability"
)

// basePromptFor returns the fixed system prompt prefix for an agent type.
// A real deployment loads these from a prompt library; this core only
// needs something stable to thread through Spawn/HandoffAndRespawn.
func basePromptFor(t agenttype.Type) string {
	return "You are the " + string(t) + " agent for this task."
}

// runWorkflow drives every agent-type step of a workflow template
// sequentially under the lifecycle manager (spec §4.5 step 3, §5 "within a
// request, agent steps are executed sequentially"). It returns the last
// agent_id used and the number of handoffs that occurred along the way.
func (o *Orchestrator) runWorkflow(ctx context.Context, userID, projectID, traceID, taskID, originalRequest string, wf agenttype.Workflow) (lastAgentID string, handoffs int, err error) {
	ctx, span := o.bus.StartWorkflow(ctx, userID, string(wf))
	defer func() { observability.EndErr(span, err) }()

	steps := agenttype.Template(wf)
	if len(steps) == 0 {
		return "", 0, errors.Errorf("orchestrator: no steps for workflow %q", wf)
	}

	for _, agentType := range steps {
		agentID, stepHandoffs, err := o.runStep(ctx, userID, projectID, traceID, taskID, originalRequest, agentType)
		handoffs += stepHandoffs
		if err != nil {
			return "", handoffs, err
		}
		lastAgentID = agentID
	}

	return lastAgentID, handoffs, nil
}

// runStep spawns one agent, drives it through a single model call, and
// transparently recovers from context-window exhaustion via
// HandoffAndRespawn until the step either completes or the manager fails
// the task with HandoffLimitExceeded (spec §4.4 step 7).
func (o *Orchestrator) runStep(ctx context.Context, userID, projectID, traceID, taskID, originalRequest string, agentType agenttype.Type) (agentID string, handoffs int, err error) {
	basePrompt := basePromptFor(agentType)

	inst, err := o.manager.Spawn(ctx, lifecycle.SpawnParams{
		AgentType:       agentType,
		UserID:          userID,
		ProjectID:       projectID,
		TraceID:         traceID,
		TaskID:          taskID,
		OriginalRequest: originalRequest,
		BasePrompt:      basePrompt,
	})
	if err != nil {
		return "", 0, errors.Wrap(err, "orchestrator: spawn failed")
	}

	ctx, lifecycleSpan := o.bus.StartAgentLifecycle(ctx, inst.AgentID, string(agentType))
	defer func() { observability.EndErr(lifecycleSpan, err) }()

	ctx, taskSpan := o.bus.StartAgentTaskExecution(ctx, inst.AgentID, string(agentType)+"_step")
	defer func() { observability.EndErr(taskSpan, err) }()

	ctx, phaseSpan := o.bus.StartPhase(ctx, "execution_phase")
	defer func() { observability.EndErr(phaseSpan, err) }()

	agentID = inst.AgentID

	for {
		result, callErr := o.model.Call(ctx, modelclient.CallRequest{
			AgentID:       agentID,
			SystemPrompt:  inst.SystemPrompt,
			Prompt:        originalRequest,
			OperationName: string(agentType) + "_step",
		})
		if callErr != nil {
			return "", handoffs, errors.Wrapf(callErr, "orchestrator: model call failed for %s", agentType)
		}

		snap, usageErr := o.manager.RecordUsage(ctx, agentID, string(agentType)+"_step", result.Usage)
		_, tokenSpan := o.bus.StartTokenUsage(ctx, string(agentType)+"_step", result.Usage.Total(), snap.UsagePercentage)
		if usageErr == nil {
			observability.EndOK(tokenSpan)
			break
		}
		observability.EndErr(tokenSpan, usageErr)

		kind, ok := lifecycleerrors.KindOf(usageErr)
		if !ok || kind != lifecycleerrors.KindContextWindowExhausted {
			return "", handoffs, errors.Wrap(usageErr, "orchestrator: unexpected usage-recording failure")
		}

		logrus.WithFields(logrus.Fields{"agent_id": agentID, "agent_type": agentType, "task_id": taskID}).
			Info("orchestrator: context window exhausted mid-step, handing off")

		next, respawnErr := o.manager.HandoffAndRespawn(ctx, agentID, "context window exhausted", basePrompt)
		if respawnErr != nil {
			return "", handoffs, respawnErr
		}
		handoffs++
		agentID = next.AgentID
		inst = next
	}

	if err := o.manager.Terminate(ctx, agentID, "step complete"); err != nil {
		return "", handoffs, errors.Wrap(err, "orchestrator: terminate failed")
	}

	return agentID, handoffs, nil
}
