// Package modelclient defines the boundary between the lifecycle core and
// the vendor-specific LLM backends it drives. Vendor SDKs (Anthropic,
// OpenAI, Gemini, ...) are explicitly out of scope for this core; callers
// supply a Client implementation that wraps whichever vendor they use.
package modelclient

import (
	"context"
	"time"

	"github.com/kodelet-systems/agentlifecycle/pkg/handoffdoc"
	"github.com/kodelet-systems/agentlifecycle/pkg/tokentracker"
)

// CallRequest is one model invocation on behalf of a specific agent.
type CallRequest struct {
	AgentID       string
	SystemPrompt  string
	Prompt        string
	OperationName string
	Deadline      time.Duration
}

// CallResult is the outcome of a model invocation.
type CallResult struct {
	Text  string
	Usage tokentracker.Usage
}

// ExtractionRequest asks the terminating agent to emit its full state as
// the 17 handoff sections. Repair is true on the second attempt after a
// malformed first response (spec §7's "retry extraction once with a
// repair prompt").
type ExtractionRequest struct {
	AgentID  string
	Deadline time.Duration
	Repair   bool
}

// Client is the minimal surface the lifecycle core needs from a model
// backend: ordinary calls that consume budget, and the one specialized
// call used during handoff extraction.
type Client interface {
	Call(ctx context.Context, req CallRequest) (CallResult, error)
	ExtractHandoffState(ctx context.Context, req ExtractionRequest) (*handoffdoc.Document, tokentracker.Usage, error)
}
