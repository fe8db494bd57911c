// Package agenttool defines the boundary to MCP tool invocation, which is
// out of scope for this core: a tool call is opaque except for the token
// usage it produces, which still counts against the calling agent's
// budget.
package agenttool

import (
	"context"

	"github.com/kodelet-systems/agentlifecycle/pkg/tokentracker"
)

// Tool is a single invocable capability available to an agent.
type Tool interface {
	Name() string
	Invoke(ctx context.Context, args map[string]any) (result string, usage tokentracker.Usage, err error)
}
