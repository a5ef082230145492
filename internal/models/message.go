package models

// MessageType classifies a signaling payload. It is computed once, when the
// payload is sent, and travels with every stored copy.
type MessageType string

const (
	MessageTypeOffer     MessageType = "offer"
	MessageTypeAnswer    MessageType = "answer"
	MessageTypeCandidate MessageType = "candidate"
	MessageTypeOther     MessageType = "other"
	MessageTypeBye       MessageType = "bye"
)

// Bye is the reserved payload that ends a session. It travels through the
// normal send/receive path like any other message.
const Bye = `{"type":"bye"}`

// Message is one stored copy of a signaling payload. The same logical
// message has one copy in the room archive and one in each recipient inbox,
// each with its own read state.
type Message struct {
	ID       string      `json:"id"`   // decimal timestamp, sorts by creation time
	RoomID   string      `json:"room_id"`
	PeerID   string      `json:"peer_id,omitempty"` // owning inbox, empty for archive copies
	SenderID string      `json:"from"`
	Type     MessageType `json:"type"`
	Content  string      `json:"content"`
	IsRead   bool        `json:"is_read"`
}

// IsNegotiation reports whether the message carries offer, answer or
// candidate data.
func (m Message) IsNegotiation() bool {
	switch m.Type {
	case MessageTypeOffer, MessageTypeAnswer, MessageTypeCandidate:
		return true
	}
	return false
}
