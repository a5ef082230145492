package models

import "time"

// Room is a rendezvous point grouping peers that negotiate with each other.
type Room struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Peers     map[string]*Peer `json:"peers"`
	Messages  []Message        `json:"messages"` // archive, ascending id
}

// Peer is one participant's handle within a room.
type Peer struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	IsInitiator bool      `json:"is_initiator"`
	Inbox       []Message `json:"-"` // ascending id, read and unread
}

// Unread returns the inbox entries not yet delivered, oldest first.
func (p *Peer) Unread() []Message {
	var out []Message
	for _, m := range p.Inbox {
		if !m.IsRead {
			out = append(out, m)
		}
	}
	return out
}

// GetPeer returns the peer with the given id, or nil.
func (r *Room) GetPeer(id string) *Peer {
	if r.Peers == nil {
		return nil
	}
	return r.Peers[id]
}
