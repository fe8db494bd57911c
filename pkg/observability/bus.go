package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Bus is the lifecycle core's handle onto the span tree described in
// spec §4.6: user_request → workflow → agent_lifecycle → task →
// token_usage/threshold/handoff, plus the four discrete events.
type Bus struct {
	tracer trace.Tracer
}

// NewBus returns a Bus backed by the named tracer. Call InitTracer first
// if exporting is desired; a Bus works against the no-op provider too.
func NewBus(serviceName string) *Bus {
	return &Bus{tracer: otel.GetTracerProvider().Tracer(serviceName)}
}

func (b *Bus) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return b.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartUserRequest opens the root span for an inbound user message.
func (b *Bus) StartUserRequest(ctx context.Context, userID string) (context.Context, trace.Span) {
	return b.start(ctx, "user_request", attribute.String("user_id", userID))
}

// StartWorkflow opens the workflow span under a user_request span.
func (b *Bus) StartWorkflow(ctx context.Context, userID string, workflowType string) (context.Context, trace.Span) {
	return b.start(ctx, fmt.Sprintf("workflow:%s", workflowType),
		attribute.String("user_id", userID),
		attribute.String("workflow_type", workflowType),
	)
}

// StartAgentLifecycle opens the per-agent span under a workflow span.
func (b *Bus) StartAgentLifecycle(ctx context.Context, agentID, agentType string) (context.Context, trace.Span) {
	return b.start(ctx, fmt.Sprintf("agent_lifecycle:%s", agentID),
		attribute.String("agent_id", agentID),
		attribute.String("agent_type", agentType),
	)
}

// StartAgentSpawn opens the agent_spawn leaf span.
func (b *Bus) StartAgentSpawn(ctx context.Context, agentID, agentType string) (context.Context, trace.Span) {
	return b.start(ctx, "agent_spawn",
		attribute.String("agent_id", agentID),
		attribute.String("agent_type", agentType),
	)
}

// StartAgentTaskExecution opens the per-task span under agent_lifecycle.
func (b *Bus) StartAgentTaskExecution(ctx context.Context, agentID, taskType string) (context.Context, trace.Span) {
	return b.start(ctx, fmt.Sprintf("agent_task_execution:%s", taskType),
		attribute.String("agent_id", agentID),
	)
}

// StartPhase opens one of research_phase/planning_phase/execution_phase.
func (b *Bus) StartPhase(ctx context.Context, phase string) (context.Context, trace.Span) {
	return b.start(ctx, phase)
}

// StartTokenUsage opens the token_usage leaf span for a single model/tool
// call, recording the measures required by spec §6.
func (b *Bus) StartTokenUsage(ctx context.Context, operation string, tokens int, usagePercentage float64) (context.Context, trace.Span) {
	return b.start(ctx, fmt.Sprintf("token_usage:%s", operation),
		attribute.Int("tokens", tokens),
		attribute.Float64("usage_percentage", usagePercentage),
	)
}

// StartAgentThreshold opens the agent_threshold span for a warning or
// critical crossing.
func (b *Bus) StartAgentThreshold(ctx context.Context, agentID, level string, usagePercentage float64) (context.Context, trace.Span) {
	return b.start(ctx, fmt.Sprintf("agent_threshold:%s", level),
		attribute.String("agent_id", agentID),
		attribute.Float64("usage_percentage", usagePercentage),
	)
}

// StartAgentHandoff opens the agent_handoff span.
func (b *Bus) StartAgentHandoff(ctx context.Context, agentID, handoffID string, completionPercentage int) (context.Context, trace.Span) {
	return b.start(ctx, "agent_handoff",
		attribute.String("agent_id", agentID),
		attribute.String("handoff_id", handoffID),
		attribute.Int("completion_percentage", completionPercentage),
	)
}

// StartCLICommand opens a cli.command span for one lifecycled invocation,
// grounded on the teacher's withTracing command wrapper.
func (b *Bus) StartCLICommand(ctx context.Context, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return b.start(ctx, "cli.command", attrs...)
}

// StartDatabaseSave opens the database_save:{op} leaf span.
func (b *Bus) StartDatabaseSave(ctx context.Context, op string, dataSizeKB float64) (context.Context, trace.Span) {
	return b.start(ctx, fmt.Sprintf("database_save:%s", op),
		attribute.Float64("data_size_kb", dataSizeKB),
	)
}

// EndOK ends span with an Ok status.
func EndOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
	span.End()
}

// EndErr ends span recording err with an Error status.
func EndErr(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// EmitAgentSpawned records the agent_spawned discrete event.
func (b *Bus) EmitAgentSpawned(ctx context.Context, agentID, agentType string, version int) {
	trace.SpanFromContext(ctx).AddEvent("agent_spawned", trace.WithAttributes(
		attribute.String("agent_id", agentID),
		attribute.String("agent_type", agentType),
		attribute.Int("version", version),
	))
}

// EmitAgentTerminated records the agent_terminated discrete event with
// the agent's lifetime and final token totals.
func (b *Bus) EmitAgentTerminated(ctx context.Context, agentID string, lifetime time.Duration, totalTokens int) {
	trace.SpanFromContext(ctx).AddEvent("agent_terminated", trace.WithAttributes(
		attribute.String("agent_id", agentID),
		attribute.Float64("duration_ms", float64(lifetime.Milliseconds())),
		attribute.Int("tokens", totalTokens),
	))
}

// EmitHandoffSaved records the handoff_saved discrete event.
func (b *Bus) EmitHandoffSaved(ctx context.Context, handoffID string, completionPercentage int) {
	trace.SpanFromContext(ctx).AddEvent("handoff_saved", trace.WithAttributes(
		attribute.String("handoff_id", handoffID),
		attribute.Int("completion_percentage", completionPercentage),
	))
}

// EmitThresholdCrossed records the threshold_crossed discrete event.
func (b *Bus) EmitThresholdCrossed(ctx context.Context, agentID, level string, usagePercentage float64) {
	trace.SpanFromContext(ctx).AddEvent("threshold_crossed", trace.WithAttributes(
		attribute.String("agent_id", agentID),
		attribute.String("level", level),
		attribute.Float64("usage_percentage", usagePercentage),
	))
}
