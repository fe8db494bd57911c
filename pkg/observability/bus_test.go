package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_SpanHierarchyDoesNotPanicWithNoopProvider(t *testing.T) {
	b := NewBus("agentlifecycle-test")
	ctx := context.Background()

	ctx, userSpan := b.StartUserRequest(ctx, "user-1")
	ctx, workflowSpan := b.StartWorkflow(ctx, "user-1", "full_build")
	ctx, lifecycleSpan := b.StartAgentLifecycle(ctx, "agent-1", "backend")
	ctx, taskSpan := b.StartAgentTaskExecution(ctx, "agent-1", "implement_export")
	ctx, phaseSpan := b.StartPhase(ctx, "execution_phase")
	_, tokenSpan := b.StartTokenUsage(ctx, "model_call", 1000, 50.0)

	b.EmitAgentSpawned(ctx, "agent-1", "backend", 1)
	b.EmitThresholdCrossed(ctx, "agent-1", "warning", 76.0)
	b.EmitHandoffSaved(ctx, "handoff-1", 60)
	b.EmitAgentTerminated(ctx, "agent-1", 0, 150000)

	EndOK(tokenSpan)
	EndOK(phaseSpan)
	EndOK(taskSpan)
	EndOK(lifecycleSpan)
	EndOK(workflowSpan)
	EndOK(userSpan)

	assert.True(t, true, "span hierarchy start/end sequence completes without panicking against the no-op provider")
}

func TestBus_StartCLICommandDoesNotPanicWithNoopProvider(t *testing.T) {
	b := NewBus("agentlifecycle-test")
	_, span := b.StartCLICommand(context.Background())
	EndOK(span)
}
