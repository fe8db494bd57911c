package modelclient

import (
	"context"
	"strings"

	"github.com/kodelet-systems/agentlifecycle/pkg/handoffdoc"
	"github.com/kodelet-systems/agentlifecycle/pkg/tokentracker"
)

// DemoClient is a deterministic, heuristic stand-in for a vendor LLM
// backend. It exists so the lifecycled demo binary can exercise the full
// lifecycle core — classification, workflow steps, handoff extraction —
// without a real model call, the same way the teacher's test suite drives
// pkg/llm against a scripted mock rather than a live provider.
//
// Each step call reports TokensPerStep/2 input and TokensPerStep/2 output
// tokens whatever the input, so a demo run against a small
// --context-window-limit can be made to exhaust and hand off within a
// handful of turns; only classification usage grows with the prompt length.
type DemoClient struct {
	TokensPerStep int
}

var _ Client = (*DemoClient)(nil)

func (c *DemoClient) perStep() int {
	if c.TokensPerStep <= 0 {
		return 5000
	}
	return c.TokensPerStep
}

// Call implements Client. Classification requests are answered by simple
// keyword matching against the inbound message; ordinary step calls
// return a canned acknowledgement and a fixed chunk of synthetic usage.
func (c *DemoClient) Call(_ context.Context, req CallRequest) (CallResult, error) {
	if req.OperationName == "classification" {
		return CallResult{
			Text:  classifyHeuristically(req.Prompt),
			Usage: tokentracker.Usage{InputTokens: len(req.Prompt) / 4, OutputTokens: 8},
		}, nil
	}

	return CallResult{
		Text: "Acknowledged: " + req.OperationName,
		Usage: tokentracker.Usage{
			InputTokens:  c.perStep() / 2,
			OutputTokens: c.perStep() / 2,
		},
	}, nil
}

// ExtractHandoffState implements Client with a minimal, always-valid
// document: enough content for handoffdoc.ValidateContent to accept, with
// a single placeholder TODO item for the successor to pick up.
func (c *DemoClient) ExtractHandoffState(_ context.Context, req ExtractionRequest) (*handoffdoc.Document, tokentracker.Usage, error) {
	doc := &handoffdoc.Document{
		TaskDescription:      "Demo task driven by lifecycled serve",
		CurrentPhase:         "execution",
		CompletionPercentage: 40,
		TaskStatus:           handoffdoc.TaskStatusInProgress,
		TodoList: []handoffdoc.TodoItem{
			{
				Priority:           handoffdoc.PriorityP1,
				Description:        "Continue the work the predecessor started",
				AcceptanceCriteria: "Task reaches ready_for_handoff",
			},
		},
	}
	if req.Repair {
		doc.TaskDescription += " (repaired extraction)"
	}
	return doc, tokentracker.Usage{InputTokens: 500, OutputTokens: 300}, nil
}

func classifyHeuristically(prompt string) string {
	_, msg, found := strings.Cut(prompt, "Message: ")
	if !found {
		msg = prompt
	}
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "cancel") || strings.Contains(lower, "nevermind") || strings.Contains(lower, "stop"):
		return "cancellation"
	case strings.Contains(lower, "status") || strings.Contains(lower, "progress") || strings.Contains(lower, "how's it going"):
		return "status_query"
	case strings.Contains(lower, "hi") || strings.Contains(lower, "hello") || strings.Contains(lower, "hey"):
		return "greeting"
	case strings.Contains(lower, "bug") || strings.Contains(lower, "fix"):
		return "new_task:bug_fix"
	case strings.Contains(lower, "design") || strings.Contains(lower, "spec out"):
		return "new_task:design_only"
	case strings.Contains(lower, "deploy") || strings.Contains(lower, "release"):
		return "new_task:deploy_only"
	case strings.Contains(lower, "chat") || strings.Contains(lower, "talk") || strings.Contains(lower, "just checking"):
		return "new_task:conversational"
	case strings.TrimSpace(lower) == "":
		return "smalltalk"
	default:
		return "new_task:full_build"
	}
}
