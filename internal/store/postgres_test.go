package store

import (
	"context"
	"os"
	"testing"
)

// TestPostgresStore runs against a disposable database named by
// TEST_DATABASE_URL; the entries table is truncated first.
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	if err := RunMigrations(ctx, url); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	s, err := NewPostgresStore(ctx, url)
	if err != nil {
		t.Fatalf("NewPostgresStore failed: %v", err)
	}
	defer s.Close()

	if _, err := s.pool.Exec(ctx, `TRUNCATE entries`); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}

	testEntityStore(t, s)
}
