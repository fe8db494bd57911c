package handoffstore

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/kodelet-systems/agentlifecycle/pkg/handoffdoc"
	"github.com/kodelet-systems/agentlifecycle/pkg/lifecycleerrors"
	"github.com/kodelet-systems/agentlifecycle/pkg/tokentracker"
)

// Load retrieves the handoff document with the given id, reconstituting
// the token usage history that Encode/Decode deliberately omit from the
// canonical text form (spec §6 treats history as storage-layer detail, not
// part of the human-readable handoff).
func (s *Store) Load(ctx context.Context, handoffID string) (*handoffdoc.Document, error) {
	var documentText string
	err := s.db.QueryRowContext(ctx, `SELECT document_text FROM handoffs WHERE handoff_id = ?`, handoffID).Scan(&documentText)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, lifecycleerrors.New(lifecycleerrors.KindNotFound, "handoff not found: "+handoffID)
		}
		return nil, errors.Wrap(err, "handoffstore: failed to load handoff row")
	}

	doc, err := handoffdoc.Decode([]byte(documentText))
	if err != nil {
		return nil, errors.Wrap(err, "handoffstore: failed to decode stored handoff")
	}

	history, err := s.loadUsageHistory(ctx, handoffID)
	if err != nil {
		return nil, err
	}
	doc.TokenUsage.History = history

	return doc, nil
}

func (s *Store) loadUsageHistory(ctx context.Context, handoffID string) ([]tokentracker.Usage, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT operation_name, input_tokens, output_tokens, cache_read_tokens, cache_create_tokens, recorded_at
		FROM handoff_usage_history
		WHERE handoff_id = ?
		ORDER BY seq ASC
	`, handoffID)
	if err != nil {
		return nil, errors.Wrap(err, "handoffstore: failed to query usage history")
	}
	defer rows.Close()

	var history []tokentracker.Usage
	for rows.Next() {
		var u tokentracker.Usage
		if err := rows.Scan(&u.OperationName, &u.InputTokens, &u.OutputTokens, &u.CacheReadTokens, &u.CacheCreateTokens, &u.Timestamp); err != nil {
			return nil, errors.Wrap(err, "handoffstore: failed to scan usage history row")
		}
		history = append(history, u)
	}
	return history, rows.Err()
}

// Exists reports whether a handoff with the given id has been saved.
func (s *Store) Exists(ctx context.Context, handoffID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM handoffs WHERE handoff_id = ?`, handoffID).Scan(&count)
	if err != nil {
		return false, errors.Wrap(err, "handoffstore: failed to check handoff existence")
	}
	return count > 0, nil
}
