package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/eldtechnologies/rendezvous/internal/models"
	"github.com/eldtechnologies/rendezvous/internal/store"
)

// roomData is the persisted form of room.json.
type roomData struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// peerData is the persisted form of peer.json.
type peerData struct {
	ID          string `json:"id"`
	RoomID      string `json:"room_id"`
	IsInitiator bool   `json:"is_initiator"`
}

// RoomRegistry materializes rooms and loads them back from the store.
type RoomRegistry struct {
	store store.EntityStore
	now   func() time.Time
}

// NewRoomRegistry creates a room registry over s.
func NewRoomRegistry(s store.EntityStore) *RoomRegistry {
	return &RoomRegistry{store: s, now: time.Now}
}

// CreateOrLoad validates roomID and returns the room with its peers,
// inboxes and archive. With create set, a missing room is created; an
// existing one is left untouched.
func (r *RoomRegistry) CreateOrLoad(ctx context.Context, roomID string, create bool) (*models.Room, error) {
	if !ValidRoomID(roomID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRoomID, roomID)
	}

	if create {
		data, err := json.Marshal(roomData{ID: roomID, CreatedAt: r.now().UTC()})
		if err != nil {
			return nil, err
		}
		if _, err := r.store.CreateIfAbsent(ctx, roomKey(roomID), data); err != nil {
			return nil, fmt.Errorf("create room %s: %w", roomID, err)
		}
	}

	return r.load(ctx, roomID)
}

// load reads one listing of the room prefix and sorts it into the room
// record, peer records, inbox copies and archive copies.
func (r *RoomRegistry) load(ctx context.Context, roomID string) (*models.Room, error) {
	dir := roomDir(roomID) + "/"
	keys, err := r.store.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("list room %s: %w", roomID, err)
	}

	room := &models.Room{ID: roomID, Peers: make(map[string]*models.Peer)}
	found := false
	inboxes := make(map[string][]models.Message)

	for _, key := range keys {
		parts := strings.Split(strings.TrimPrefix(key, dir), "/")

		switch {
		case len(parts) == 1 && parts[0] == roomRecord:
			var rd roomData
			if err := r.getJSON(ctx, key, &rd); err != nil {
				return nil, err
			}
			room.CreatedAt = rd.CreatedAt
			found = true

		case len(parts) == 1:
			m, ok := parseMessageName(parts[0])
			if !ok || m.IsRead {
				continue
			}
			m.RoomID = roomID
			if ok, err := r.getContent(ctx, key, &m); err != nil {
				return nil, err
			} else if ok {
				room.Messages = append(room.Messages, m)
			}

		case len(parts) == 2 && strings.HasPrefix(parts[0], peerPrefix):
			peerID := strings.TrimPrefix(parts[0], peerPrefix)
			if parts[1] == peerRecord {
				var pd peerData
				if err := r.getJSON(ctx, key, &pd); err != nil {
					return nil, err
				}
				room.Peers[peerID] = &models.Peer{ID: peerID, RoomID: roomID, IsInitiator: pd.IsInitiator}
				continue
			}
			m, ok := parseMessageName(parts[1])
			if !ok {
				continue
			}
			m.RoomID = roomID
			m.PeerID = peerID
			if !m.IsRead {
				// A concurrent reader may consume the copy between List and Get.
				if ok, err := r.getContent(ctx, key, &m); err != nil {
					return nil, err
				} else if !ok {
					continue
				}
			}
			inboxes[peerID] = append(inboxes[peerID], m)
		}
	}

	if !found {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}

	sortByID(room.Messages)
	for peerID, inbox := range inboxes {
		// Inbox copies of a half-joined peer without peer.json are ignored.
		if p, ok := room.Peers[peerID]; ok {
			sortByID(inbox)
			p.Inbox = inbox
		}
	}
	return room, nil
}

func (r *RoomRegistry) getJSON(ctx context.Context, key string, v interface{}) error {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// getContent fills m.Content; it reports false if the key vanished.
func (r *RoomRegistry) getContent(ctx context.Context, key string, m *models.Message) (bool, error) {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	m.Content = string(data)
	return true, nil
}

func sortByID(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
}
