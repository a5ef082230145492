package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// migrations run in order; each statement must be idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		value BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_key_pattern ON entries (key text_pattern_ops)`,
}

// RunMigrations creates the entries table on the database at databaseURL.
func RunMigrations(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	for _, m := range migrations {
		if _, err := conn.Exec(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
