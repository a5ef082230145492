// Package signaling implements the rendezvous broker: rooms, peers,
// initiator election and the message relay, over an entity store.
package signaling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/rendezvous/internal/ids"
	"github.com/eldtechnologies/rendezvous/internal/metrics"
	"github.com/eldtechnologies/rendezvous/internal/models"
	"github.com/eldtechnologies/rendezvous/internal/store"
)

// Result values of a join response.
const (
	ResultSuccess = "SUCCESS"
	ResultError   = "error"
)

// JoinParams describes the peer created by Join.
type JoinParams struct {
	RoomID      string   `json:"room_id"`
	PeerID      string   `json:"peer_id"`
	IsInitiator bool     `json:"is_initiator"`
	Messages    []string `json:"messages"` // always null; backlog goes to the inbox
}

// JoinResponse is returned by Join.
type JoinResponse struct {
	Result string     `json:"result"`
	Params JoinParams `json:"params"`
}

// Config wires a Service.
type Config struct {
	Store    store.EntityStore
	IDs      ids.Generator  // defaults to ids.NewClock()
	Election ElectionPolicy // defaults to ElectOnFirstPeerInSet
	Replay   ReplayPolicy   // defaults to ReplayNegotiation
	Logger   zerolog.Logger
}

// Service is the facade over the room registry, peer registry and relay.
// It keeps no state of its own; every call reloads the room from the store.
type Service struct {
	rooms  *RoomRegistry
	peers  *PeerRegistry
	relay  *Relay
	logger zerolog.Logger
}

// NewService creates a Service from cfg.
func NewService(cfg Config) *Service {
	if cfg.IDs == nil {
		cfg.IDs = ids.NewClock()
	}
	if cfg.Election == nil {
		cfg.Election = ElectOnFirstPeerInSet
	}
	if cfg.Replay == nil {
		cfg.Replay = ReplayNegotiation
	}
	return &Service{
		rooms:  NewRoomRegistry(cfg.Store),
		peers:  NewPeerRegistry(cfg.Store, cfg.IDs, cfg.Election, cfg.Replay),
		relay:  NewRelay(cfg.Store, cfg.IDs),
		logger: cfg.Logger.With().Str("module", "signaling").Logger(),
	}
}

// JoinOption customizes a Join call.
type JoinOption func(*joinOptions)

type joinOptions struct {
	peerID string
}

// WithPeerID joins under a caller-chosen peer id instead of a generated one.
func WithPeerID(id string) JoinOption {
	return func(o *joinOptions) { o.peerID = id }
}

// Join creates the room if needed, adds a new peer, elects it initiator or
// not, and replays the backlog into its inbox.
func (s *Service) Join(ctx context.Context, roomID string, opts ...JoinOption) (*JoinResponse, error) {
	var o joinOptions
	for _, opt := range opts {
		opt(&o)
	}

	room, err := s.rooms.CreateOrLoad(ctx, roomID, true)
	if err != nil {
		return nil, err
	}

	peer, replayed, err := s.peers.Create(ctx, room, o.peerID)
	if errors.Is(err, ErrBacklogIncomplete) {
		s.logger.Error().
			Err(err).
			Str("room_id", room.ID).
			Str("peer_id", peer.ID).
			Int("backlog", replayed).
			Msg("peer joined with partial backlog")
	}
	if err != nil {
		return nil, err
	}

	metrics.PeersJoined.Inc()
	metrics.BacklogReplayed.Add(float64(replayed))
	if peer.IsInitiator {
		metrics.InitiatorsElected.Inc()
	}

	s.logger.Info().
		Str("room_id", room.ID).
		Str("peer_id", peer.ID).
		Bool("is_initiator", peer.IsInitiator).
		Int("peers", len(room.Peers)).
		Int("backlog", replayed).
		Msg("peer joined")

	return &JoinResponse{
		Result: ResultSuccess,
		Params: JoinParams{
			RoomID:      room.ID,
			PeerID:      peer.ID,
			IsInitiator: peer.IsInitiator,
		},
	}, nil
}

// Send relays payload from senderID to every other peer of the room.
func (s *Service) Send(ctx context.Context, roomID, senderID, payload string) error {
	room, err := s.loadForPeer(ctx, roomID)
	if err != nil {
		return err
	}

	msg, err := s.relay.Send(ctx, room, senderID, payload)
	if err != nil {
		return err
	}

	s.logger.Debug().
		Str("room_id", roomID).
		Str("peer_id", senderID).
		Str("msg_id", msg.ID).
		Str("type", string(msg.Type)).
		Int("recipients", len(room.Peers)-1).
		Msg("message sent")
	return nil
}

// ReceiveMessage returns the oldest undelivered message for peerID. ok is
// false when the inbox is empty; callers poll.
func (s *Service) ReceiveMessage(ctx context.Context, roomID, peerID string) (content string, ok bool, err error) {
	room, err := s.loadForPeer(ctx, roomID)
	if err != nil {
		return "", false, err
	}
	peer := room.GetPeer(peerID)
	if peer == nil {
		return "", false, fmt.Errorf("%w: %s", ErrInvalidPeer, peerID)
	}

	msg, ok, err := s.relay.Receive(ctx, peer)
	if err != nil || !ok {
		return "", false, err
	}

	s.logger.Debug().
		Str("room_id", roomID).
		Str("peer_id", peerID).
		Str("msg_id", msg.ID).
		Str("type", string(msg.Type)).
		Msg("message delivered")
	return msg.Content, true, nil
}

// loadForPeer loads an existing room for send and receive. A missing room
// is reported as an invalid peer, since no peer can be registered in it.
func (s *Service) loadForPeer(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := s.rooms.CreateOrLoad(ctx, roomID, false)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPeer, err)
		}
		return nil, err
	}
	return room, nil
}

// PeerInfo summarizes one peer for inspection.
type PeerInfo struct {
	ID          string `json:"id"`
	IsInitiator bool   `json:"is_initiator"`
	Unread      int    `json:"unread"`
	Read        int    `json:"read"`
}

// MessageInfo summarizes one archived message for inspection.
type MessageInfo struct {
	ID   string             `json:"id"`
	From string             `json:"from"`
	Type models.MessageType `json:"type"`
}

// RoomInfo is a read-only snapshot of a room.
type RoomInfo struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Peers     []PeerInfo    `json:"peers"`
	Messages  []MessageInfo `json:"messages"`
}

// Inspect returns a snapshot of an existing room without changing it.
func (s *Service) Inspect(ctx context.Context, roomID string) (*RoomInfo, error) {
	room, err := s.rooms.CreateOrLoad(ctx, roomID, false)
	if err != nil {
		return nil, err
	}

	info := &RoomInfo{
		ID:        room.ID,
		CreatedAt: room.CreatedAt,
		Peers:     make([]PeerInfo, 0, len(room.Peers)),
		Messages:  make([]MessageInfo, 0, len(room.Messages)),
	}
	for _, p := range room.Peers {
		unread := len(p.Unread())
		info.Peers = append(info.Peers, PeerInfo{
			ID:          p.ID,
			IsInitiator: p.IsInitiator,
			Unread:      unread,
			Read:        len(p.Inbox) - unread,
		})
	}
	sort.Slice(info.Peers, func(i, j int) bool { return info.Peers[i].ID < info.Peers[j].ID })

	for _, m := range room.Messages {
		info.Messages = append(info.Messages, MessageInfo{ID: m.ID, From: m.SenderID, Type: m.Type})
	}
	return info, nil
}
