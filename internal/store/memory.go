package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory EntityStore. It is used in tests and for
// throwaway development servers.
type MemoryStore struct {
	entries map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]byte),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) CreateIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; ok {
		return false, nil
	}
	s.entries[key] = append([]byte(nil), value...)
	return true, nil
}

func (s *MemoryStore) RenameIfExists(ctx context.Context, oldKey, newKey string) (bool, error) {
	if err := validateKey(oldKey); err != nil {
		return false, err
	}
	if err := validateKey(newKey); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.entries[oldKey]
	if !ok {
		return false, nil
	}
	delete(s.entries, oldKey)
	if _, taken := s.entries[newKey]; taken {
		return false, nil
	}
	s.entries[newKey] = value
	return true, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return append([]byte(nil), value...), nil
}

func (s *MemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
