// Package sessionstore defines the boundary to multi-turn chat history
// storage, which is out of scope for this core (spec's Non-goals exclude
// persisting full conversation transcripts).
package sessionstore

import (
	"context"
	"time"

	"github.com/kodelet-systems/agentlifecycle/pkg/agenttype"
)

// Session is a per-user orchestration session: the active task and
// workflow phase, kept across requests so classification and routing can
// see prior context.
type Session struct {
	UserID           string
	ActiveTaskID     string
	ActiveWorkflow   agenttype.Workflow
	CurrentPhase     string
	LastMessageID    string
	UpdatedAt        time.Time
}

// Store persists per-user Sessions. Implementations own whatever backing
// store the surrounding platform uses; this core never inspects
// conversation content, only the routing state above.
type Store interface {
	Get(ctx context.Context, userID string) (*Session, error)
	Save(ctx context.Context, session *Session) error
}
