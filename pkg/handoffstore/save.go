package handoffstore

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kodelet-systems/agentlifecycle/pkg/handoffdoc"
	"github.com/kodelet-systems/agentlifecycle/pkg/lifecycleerrors"
	"github.com/kodelet-systems/agentlifecycle/pkg/observability"
)

// Save persists doc idempotently: saving the same handoff_id twice replaces
// the prior row rather than erroring or duplicating it. Transient write
// failures are retried with backoff; if every attempt fails and a fallback
// directory is configured, the canonical encoded text is exported to disk
// so the handoff is not lost outright.
func (s *Store) Save(ctx context.Context, doc *handoffdoc.Document) error {
	if err := handoffdoc.Validate(doc); err != nil {
		return lifecycleerrors.Wrap(lifecycleerrors.KindMalformedHandoff, err, "refusing to save invalid handoff")
	}

	encoded, err := handoffdoc.Encode(doc)
	if err != nil {
		return errors.Wrap(err, "handoffstore: failed to encode handoff")
	}

	err = retry.Do(
		func() error { return s.saveOnce(ctx, doc, encoded) },
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(50*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			logrus.WithFields(logrus.Fields{
				"handoff_id": doc.HandoffID,
				"attempt":    n + 1,
				"error":      err,
			}).Warn("handoffstore: save attempt failed, retrying")
		}),
	)
	if err == nil {
		return nil
	}

	if s.fallbackDir == "" {
		return lifecycleerrors.Wrap(lifecycleerrors.KindHandoffStoreUnavailable, err, "handoff store unavailable and no fallback directory configured")
	}

	if exportErr := s.exportFallback(doc.HandoffID, encoded); exportErr != nil {
		return lifecycleerrors.Wrap(lifecycleerrors.KindHandoffStoreUnavailable, errors.Wrap(err, exportErr.Error()), "handoff store unavailable and fallback export failed")
	}

	logrus.WithField("handoff_id", doc.HandoffID).Warn("handoffstore: db save failed after retries, exported to fallback directory")
	return nil
}

func (s *Store) saveOnce(ctx context.Context, doc *handoffdoc.Document, encoded []byte) (err error) {
	ctx, span := s.bus.StartDatabaseSave(ctx, "handoff_upsert", float64(len(encoded))/1024.0)
	defer func() { observability.EndErr(span, err) }()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var predecessor *string
	if doc.PredecessorHandoffID != "" {
		predecessor = &doc.PredecessorHandoffID
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO handoffs (
			handoff_id, predecessor_handoff_id, task_id, trace_id, user_id, project_id,
			schema_version, completion_percentage, task_status, degraded, document_text, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(handoff_id) DO UPDATE SET
			predecessor_handoff_id = excluded.predecessor_handoff_id,
			task_id = excluded.task_id,
			trace_id = excluded.trace_id,
			user_id = excluded.user_id,
			project_id = excluded.project_id,
			schema_version = excluded.schema_version,
			completion_percentage = excluded.completion_percentage,
			task_status = excluded.task_status,
			degraded = excluded.degraded,
			document_text = excluded.document_text
	`,
		doc.HandoffID, predecessor, doc.TaskID, doc.TraceID, doc.UserID, doc.ProjectID,
		doc.SchemaVersion, doc.CompletionPercentage, string(doc.TaskStatus), doc.Degraded, string(encoded), time.Now(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert handoff row")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM handoff_usage_history WHERE handoff_id = ?`, doc.HandoffID); err != nil {
		return errors.Wrap(err, "failed to clear prior usage history")
	}

	for i, u := range doc.TokenUsage.History {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO handoff_usage_history (
				handoff_id, operation_name, input_tokens, output_tokens,
				cache_read_tokens, cache_create_tokens, recorded_at, seq
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, doc.HandoffID, u.OperationName, u.InputTokens, u.OutputTokens, u.CacheReadTokens, u.CacheCreateTokens, u.Timestamp, i)
		if err != nil {
			return errors.Wrap(err, "failed to insert usage history row")
		}
	}

	return tx.Commit()
}

func (s *Store) exportFallback(handoffID string, encoded []byte) error {
	if err := os.MkdirAll(s.fallbackDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create fallback directory")
	}
	path := filepath.Join(s.fallbackDir, handoffID+".handoff")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return errors.Wrap(err, "failed to write fallback export")
	}
	return nil
}
