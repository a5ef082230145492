package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CreateIfAbsent inserts the entry unless the key is taken.
func (s *PostgresStore) CreateIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO entries (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`, key, value)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RenameIfExists moves a row to a new key. A concurrent renamer blocks on
// the conflicting insert and then finds nothing left to delete.
func (s *PostgresStore) RenameIfExists(ctx context.Context, oldKey, newKey string) (bool, error) {
	if err := validateKey(oldKey); err != nil {
		return false, err
	}
	if err := validateKey(newKey); err != nil {
		return false, err
	}

	var renamed bool
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		inserted, err := tx.Exec(ctx, `
			INSERT INTO entries (key, value, created_at)
			SELECT $1, value, created_at FROM entries WHERE key = $2
			ON CONFLICT (key) DO NOTHING
		`, newKey, oldKey)
		if err != nil {
			return err
		}
		deleted, err := tx.Exec(ctx, `DELETE FROM entries WHERE key = $1`, oldKey)
		if err != nil {
			return err
		}
		renamed = inserted.RowsAffected() == 1 && deleted.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return renamed, nil
}

// Get retrieves an entry by key.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, `
		SELECT value FROM entries WHERE key = $1
	`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}
	return value, nil
}

// List returns the keys starting with prefix in byte order.
func (s *PostgresStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key FROM entries
		WHERE starts_with(key, $1)
		ORDER BY key COLLATE "C"
	`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
