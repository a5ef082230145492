package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("store: key not found")

// ErrInvalidKey is returned for keys that cannot be stored safely.
var ErrInvalidKey = errors.New("store: invalid key")

// EntityStore is the durable layer under the signaling broker. Keys are
// slash-separated paths. The only writes are CreateIfAbsent and
// RenameIfExists, and both must be atomic: callers rely on them instead of
// locks.
//
// MemoryStore, FileStore, SQLiteStore, PostgresStore and RedisStore
// implement this interface.
type EntityStore interface {
	// Connection management
	Close() error
	Ping(ctx context.Context) error

	// CreateIfAbsent writes value under key unless the key already exists.
	// It reports whether this call created the key; losing the race is not
	// an error.
	CreateIfAbsent(ctx context.Context, key string, value []byte) (bool, error)

	// RenameIfExists moves oldKey to newKey. It reports false, without
	// error, when oldKey is gone or newKey is already taken; in the latter
	// case oldKey is discarded.
	RenameIfExists(ctx context.Context, oldKey, newKey string) (bool, error)

	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns every key starting with prefix, in ascending byte order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// validateKey rejects empty, absolute and dot-segment keys.
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
