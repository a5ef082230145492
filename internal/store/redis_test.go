package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedisStore(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer s.Close()

	testEntityStore(t, s)
}

func TestRedisStoreIndexTracksRenames(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := NewRedisStore(ctx, "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer s.Close()

	s.CreateIfAbsent(ctx, "room_r/peer_1/msg_1.000000000_offer_2.txt", []byte("x"))
	s.RenameIfExists(ctx, "room_r/peer_1/msg_1.000000000_offer_2.txt", "room_r/peer_1/read_msg_1.000000000_offer_2.txt")

	members, err := mr.ZMembers(s.indexKey())
	if err != nil {
		t.Fatalf("ZMembers failed: %v", err)
	}
	if len(members) != 1 || members[0] != "room_r/peer_1/read_msg_1.000000000_offer_2.txt" {
		t.Errorf("index out of step with entries: %v", members)
	}
}
