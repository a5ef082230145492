package store

import (
	"context"
	"time"

	"github.com/eldtechnologies/rendezvous/internal/metrics"
)

// Instrumented wraps an EntityStore and records per-operation latency.
type Instrumented struct {
	EntityStore
	backend string
}

// Instrument returns s wrapped with latency metrics labelled by backend.
func Instrument(s EntityStore, backend string) *Instrumented {
	return &Instrumented{EntityStore: s, backend: backend}
}

// Unwrap returns the underlying store.
func (s *Instrumented) Unwrap() EntityStore { return s.EntityStore }

func (s *Instrumented) observe(op string, start time.Time) {
	metrics.StoreLatency.WithLabelValues(s.backend, op).Observe(time.Since(start).Seconds())
}

func (s *Instrumented) CreateIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	defer s.observe("create", time.Now())
	return s.EntityStore.CreateIfAbsent(ctx, key, value)
}

func (s *Instrumented) RenameIfExists(ctx context.Context, oldKey, newKey string) (bool, error) {
	defer s.observe("rename", time.Now())
	return s.EntityStore.RenameIfExists(ctx, oldKey, newKey)
}

func (s *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	defer s.observe("get", time.Now())
	return s.EntityStore.Get(ctx, key)
}

func (s *Instrumented) List(ctx context.Context, prefix string) ([]string, error) {
	defer s.observe("list", time.Now())
	return s.EntityStore.List(ctx, prefix)
}
