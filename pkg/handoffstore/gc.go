package handoffstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// GC deletes handoffs older than retention, but only those with no
// successor younger than the cutoff: a handoff that is still the
// predecessor of a recent row is the ancestor of a live chain and must
// survive the sweep even though its own created_at has aged out, or
// Chain would report a spurious ChainBroken on a task nobody abandoned.
func (s *Store) GC(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM handoffs
		WHERE created_at < ?
		AND NOT EXISTS (
			SELECT 1 FROM handoffs successor
			WHERE successor.predecessor_handoff_id = handoffs.handoff_id
			AND successor.created_at >= ?
		)
	`, cutoff, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "handoffstore: failed to run retention sweep")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "handoffstore: failed to read rows affected")
	}

	logrus.WithFields(logrus.Fields{
		"deleted": n,
		"cutoff":  cutoff,
	}).Info("handoffstore: retention sweep complete")

	return n, nil
}
