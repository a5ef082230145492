package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	testEntityStore(t, s)
}

func TestFileStoreLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	key := "room_r1/peer_0000000001/msg_1.000000000_offer_0000000002.txt"
	if _, err := s.CreateIfAbsent(context.Background(), key, []byte("sdp")); err != nil {
		t.Fatalf("CreateIfAbsent failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "room_r1", "peer_0000000001", "msg_1.000000000_offer_0000000002.txt"))
	if err != nil {
		t.Fatalf("expected a plain file on disk: %v", err)
	}
	if string(data) != "sdp" {
		t.Errorf("expected sdp, got %q", data)
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "room_r1", "peer_0000000001"))
	if len(entries) != 1 {
		t.Errorf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestFileStoreSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileStore(dir)

	os.MkdirAll(filepath.Join(dir, "room_x"), 0755)
	os.WriteFile(filepath.Join(dir, "room_x", tmpPrefix+"leftover"), []byte("x"), 0644)

	keys, err := s.List(context.Background(), "room_x/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected temp files to be hidden, got %v", keys)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, _ := NewFileStore(dir)
	first.CreateIfAbsent(ctx, "room_r/room.json", []byte("{}"))

	second, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	created, err := second.CreateIfAbsent(ctx, "room_r/room.json", []byte("{}"))
	if err != nil {
		t.Fatalf("CreateIfAbsent failed: %v", err)
	}
	if created {
		t.Error("expected key written by the first handle to be visible")
	}
}
