package handoffstore

import (
	"database/sql"

	"github.com/kodelet-systems/agentlifecycle/pkg/db"
)

// migrations defines the handoff store schema, versioned and applied by
// db.MigrationRunner in timestamp order.
var migrations = []db.Migration{
	{
		Version:     20260101000000,
		Description: "create handoffs table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE handoffs (
					handoff_id             TEXT PRIMARY KEY,
					predecessor_handoff_id TEXT,
					task_id                TEXT NOT NULL,
					trace_id               TEXT NOT NULL,
					user_id                TEXT,
					project_id             TEXT,
					schema_version         TEXT NOT NULL,
					completion_percentage  INTEGER NOT NULL,
					task_status            TEXT NOT NULL,
					degraded               INTEGER NOT NULL DEFAULT 0,
					document_text          TEXT NOT NULL,
					created_at             DATETIME NOT NULL
				)
			`)
			return err
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec(`DROP TABLE handoffs`)
			return err
		},
	},
	{
		Version:     20260101000001,
		Description: "index handoffs by task and predecessor",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`CREATE INDEX idx_handoffs_task_id ON handoffs(task_id)`); err != nil {
				return err
			}
			_, err := tx.Exec(`CREATE INDEX idx_handoffs_predecessor ON handoffs(predecessor_handoff_id)`)
			return err
		},
		Down: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`DROP INDEX idx_handoffs_task_id`); err != nil {
				return err
			}
			_, err := tx.Exec(`DROP INDEX idx_handoffs_predecessor`)
			return err
		},
	},
	{
		Version:     20260101000002,
		Description: "create handoff usage history table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE handoff_usage_history (
					id                  INTEGER PRIMARY KEY AUTOINCREMENT,
					handoff_id          TEXT NOT NULL REFERENCES handoffs(handoff_id) ON DELETE CASCADE,
					operation_name      TEXT,
					input_tokens        INTEGER NOT NULL,
					output_tokens       INTEGER NOT NULL,
					cache_read_tokens   INTEGER NOT NULL,
					cache_create_tokens INTEGER NOT NULL,
					recorded_at         DATETIME NOT NULL,
					seq                 INTEGER NOT NULL
				)
			`)
			return err
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec(`DROP TABLE handoff_usage_history`)
			return err
		},
	},
}
