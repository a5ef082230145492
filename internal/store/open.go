package store

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendFS       = "fs"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Options selects and locates a backend.
type Options struct {
	Backend     string
	Dir         string // fs
	SQLitePath  string // sqlite
	DatabaseURL string // postgres
	RedisURL    string // redis
}

// Open connects to the configured backend and wraps it with metrics.
// Postgres migrations are not run here; see RunMigrations.
func Open(ctx context.Context, opts Options) (*Instrumented, error) {
	var (
		s   EntityStore
		err error
	)

	switch opts.Backend {
	case BackendFS, "":
		s, err = NewFileStore(opts.Dir)
	case BackendMemory:
		s = NewMemoryStore()
	case BackendSQLite:
		s, err = NewSQLiteStore(ctx, opts.SQLitePath)
	case BackendPostgres:
		s, err = NewPostgresStore(ctx, opts.DatabaseURL)
	case BackendRedis:
		s, err = NewRedisStore(ctx, opts.RedisURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", opts.Backend, err)
	}

	backend := opts.Backend
	if backend == "" {
		backend = BackendFS
	}
	return Instrument(s, backend), nil
}
