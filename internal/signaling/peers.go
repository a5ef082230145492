package signaling

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eldtechnologies/rendezvous/internal/ids"
	"github.com/eldtechnologies/rendezvous/internal/metrics"
	"github.com/eldtechnologies/rendezvous/internal/models"
	"github.com/eldtechnologies/rendezvous/internal/store"
)

// PeerRegistry creates peers, runs the initiator election and replays the
// backlog into new inboxes.
type PeerRegistry struct {
	store    store.EntityStore
	ids      ids.Generator
	election ElectionPolicy
	replay   ReplayPolicy
}

// NewPeerRegistry creates a peer registry.
func NewPeerRegistry(s store.EntityStore, gen ids.Generator, election ElectionPolicy, replay ReplayPolicy) *PeerRegistry {
	return &PeerRegistry{store: s, ids: gen, election: election, replay: replay}
}

// Create adds a new peer to room. peerID may be empty, in which case one is
// generated. The returned count is the number of backlog messages copied
// into the new inbox.
func (p *PeerRegistry) Create(ctx context.Context, room *models.Room, peerID string) (*models.Peer, int, error) {
	if peerID == "" {
		peerID = p.ids.PeerID()
	} else if !ValidPeerID(peerID) {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidPeer, peerID)
	}
	if room.GetPeer(peerID) != nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrPeerExists, peerID)
	}

	peer := &models.Peer{ID: peerID, RoomID: room.ID}
	room.Peers[peer.ID] = peer

	relevant := 0
	for _, m := range room.Messages {
		if isRelevant(m) {
			relevant++
		}
	}
	peer.IsInitiator = p.election.Elect(ElectionSnapshot{
		RelevantMessages: relevant,
		PeerCount:        len(room.Peers),
	})

	// The peer record is written before the backlog so that senders who
	// load the room from now on fan out to this inbox too.
	data, err := json.Marshal(peerData{ID: peer.ID, RoomID: room.ID, IsInitiator: peer.IsInitiator})
	if err != nil {
		return nil, 0, err
	}
	created, err := p.store.CreateIfAbsent(ctx, peerKey(room.ID, peer.ID), data)
	if err != nil {
		return nil, 0, fmt.Errorf("create peer %s: %w", peer.ID, err)
	}
	if !created {
		metrics.DuplicateWrites.WithLabelValues("peer").Inc()
		delete(room.Peers, peer.ID)
		return nil, 0, fmt.Errorf("%w: %s", ErrPeerExists, peer.ID)
	}

	// A failed replay leaves the peer registered with part of its backlog;
	// the same id cannot join again.
	replayed, err := p.replayBacklog(ctx, room, peer)
	if err != nil {
		return peer, replayed, fmt.Errorf("%w after %d messages: %w", ErrBacklogIncomplete, replayed, err)
	}
	return peer, replayed, nil
}

// replayBacklog copies the room's archived negotiation messages into the
// peer's inbox. Copies keep the original id, so replaying twice is a no-op.
func (p *PeerRegistry) replayBacklog(ctx context.Context, room *models.Room, peer *models.Peer) (int, error) {
	n := 0
	for _, m := range room.Messages {
		if !p.replay.Replays(m) || m.SenderID == peer.ID {
			continue
		}
		m.PeerID = peer.ID
		m.IsRead = false
		created, err := p.store.CreateIfAbsent(ctx, inboxKey(m, false), []byte(m.Content))
		if err != nil {
			return n, fmt.Errorf("replay %s to %s: %w", m.ID, peer.ID, err)
		}
		if !created {
			metrics.DuplicateWrites.WithLabelValues("inbox").Inc()
			continue
		}
		peer.Inbox = append(peer.Inbox, m)
		n++
	}
	return n, nil
}
