package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kodelet-systems/agentlifecycle/pkg/agenttype"
	"github.com/kodelet-systems/agentlifecycle/pkg/modelclient"
)

const classifierSystemPrompt = `Classify the user's message given their active task and current phase.
Respond with exactly one label on its own line: greeting, status_query,
refinement, cancellation, new_task, or smalltalk. If the label is new_task,
follow it with a colon and one of: full_build, bug_fix, design_only,
deploy_only, conversational — your best guess at which workflow the request
needs.`

// classificationDeadline bounds the classification call to a small slice of
// the overall model-call deadline (spec §4.5: "strict small-token budget").
const classificationDeadline = 10 * time.Second

// classifyResult is the parsed outcome of a classification call.
type classifyResult struct {
	Label    Classification
	Workflow agenttype.Workflow // only meaningful when Label == ClassNewTask
}

// classify asks the model to route msg given the session's active task and
// phase. Any failure — a call error, a timeout, or output that doesn't
// parse into a known label — defaults to new_task/full_build rather than
// blocking the message (spec §4.5 step 1).
func classify(ctx context.Context, model modelclient.Client, agentID, activeTaskID, currentPhase, msg string) classifyResult {
	fallback := classifyResult{Label: ClassNewTask, Workflow: agenttype.WorkflowFullBuild}

	prompt := "Active task: " + orNone(activeTaskID) + "\nCurrent phase: " + orNone(currentPhase) + "\nMessage: " + msg

	result, err := model.Call(ctx, modelclient.CallRequest{
		AgentID:       agentID,
		SystemPrompt:  classifierSystemPrompt,
		Prompt:        prompt,
		OperationName: "classification",
		Deadline:      classificationDeadline,
	})
	if err != nil {
		logrus.WithError(err).Warn("orchestrator: classification call failed, defaulting to new_task")
		return fallback
	}

	parsed, ok := parseClassification(result.Text)
	if !ok {
		logrus.WithField("raw", result.Text).Warn("orchestrator: classification output unparseable, defaulting to new_task")
		return fallback
	}
	return parsed
}

func parseClassification(text string) (classifyResult, bool) {
	line := strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	label, workflowHint, _ := strings.Cut(line, ":")
	label = strings.ToLower(strings.TrimSpace(label))

	switch Classification(label) {
	case ClassGreeting, ClassStatusQuery, ClassRefinement, ClassCancellation, ClassSmalltalk:
		return classifyResult{Label: Classification(label)}, true
	case ClassNewTask:
		wf := parseWorkflow(strings.TrimSpace(workflowHint))
		return classifyResult{Label: ClassNewTask, Workflow: wf}, true
	default:
		return classifyResult{}, false
	}
}

func parseWorkflow(hint string) agenttype.Workflow {
	switch agenttype.Workflow(hint) {
	case agenttype.WorkflowFullBuild, agenttype.WorkflowBugFix, agenttype.WorkflowDesignOnly,
		agenttype.WorkflowDeployOnly, agenttype.WorkflowConversational:
		return agenttype.Workflow(hint)
	default:
		return agenttype.WorkflowFullBuild
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
