package handoffstore

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/kodelet-systems/agentlifecycle/pkg/handoffdoc"
	"github.com/kodelet-systems/agentlifecycle/pkg/lifecycleerrors"
)

// Chain walks the predecessor links backward from handoffID to the root
// and returns the full lineage ordered oldest-to-newest. It fails closed:
// a predecessor id that does not resolve to a stored row is reported as
// ChainBroken, and a predecessor id seen twice during the walk is reported
// as ChainCycle, rather than silently truncating or looping forever.
func (s *Store) Chain(ctx context.Context, handoffID string) ([]*handoffdoc.Document, error) {
	var reversed []*handoffdoc.Document
	seen := make(map[string]bool)

	current := handoffID
	for current != "" {
		if seen[current] {
			return nil, lifecycleerrors.New(lifecycleerrors.KindChainCycle, "handoff chain contains a cycle at "+current)
		}
		seen[current] = true

		doc, err := s.Load(ctx, current)
		if err != nil {
			if kind, ok := lifecycleerrors.KindOf(err); ok && kind == lifecycleerrors.KindNotFound {
				return nil, lifecycleerrors.New(lifecycleerrors.KindChainBroken, "handoff chain references missing predecessor "+current)
			}
			return nil, errors.Wrap(err, "handoffstore: failed to load chain link")
		}

		reversed = append(reversed, doc)
		current = doc.PredecessorHandoffID
	}

	chain := make([]*handoffdoc.Document, len(reversed))
	for i, doc := range reversed {
		chain[len(reversed)-1-i] = doc
	}
	return chain, nil
}

// Head returns the most recently created handoff for a task, i.e. the one
// no other stored handoff names as its predecessor.
func (s *Store) Head(ctx context.Context, taskID string) (*handoffdoc.Document, error) {
	var handoffID string
	row := s.db.QueryRowContext(ctx, `
		SELECT handoff_id FROM handoffs h
		WHERE h.task_id = ?
		AND NOT EXISTS (
			SELECT 1 FROM handoffs child WHERE child.predecessor_handoff_id = h.handoff_id
		)
		ORDER BY h.created_at DESC
		LIMIT 1
	`, taskID)
	if err := row.Scan(&handoffID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, lifecycleerrors.New(lifecycleerrors.KindNotFound, "no handoffs found for task: "+taskID)
		}
		return nil, errors.Wrap(err, "handoffstore: failed to find chain head")
	}

	return s.Load(ctx, handoffID)
}
