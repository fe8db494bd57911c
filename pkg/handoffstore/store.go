// Package handoffstore implements C3: relational persistence for handoff
// documents. Each handoff is stored twice — once as its canonical encoded
// text (for exact replay) and once decomposed into indexed scalar columns
// (for chain traversal and GC queries) — grounded on the teacher's
// conversations store, which persists a JSON blob alongside a denormalized
// summary row for the same reason.
package handoffstore

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/kodelet-systems/agentlifecycle/pkg/db"
	"github.com/kodelet-systems/agentlifecycle/pkg/observability"
)

// Store is a SQLite-backed handoff document store.
type Store struct {
	db          *sqlx.DB
	fallbackDir string
	bus         *observability.Bus
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithFallbackDir sets the directory used for on-disk export when a write
// cannot be persisted to the database after retrying (spec §4.3).
func WithFallbackDir(dir string) Option {
	return func(s *Store) { s.fallbackDir = dir }
}

// WithBus attaches the tracer used to span each database write. Without
// it, Store builds its own no-op-backed Bus.
func WithBus(bus *observability.Bus) Option {
	return func(s *Store) { s.bus = bus }
}

// Open opens (creating if necessary) the handoff store database at dbPath
// and runs any pending migrations.
func Open(ctx context.Context, dbPath string, opts ...Option) (*Store, error) {
	conn, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "handoffstore: failed to open database")
	}

	if err := db.NewMigrationRunner(conn).Run(ctx, migrations); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "handoffstore: failed to run migrations")
	}

	s := &Store{db: conn, bus: observability.NewBus("agentlifecycle")}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
