package signaling

import (
	"regexp"
	"strings"

	"github.com/eldtechnologies/rendezvous/internal/models"
)

// Store layout:
//
//	room_<room>/room.json
//	room_<room>/msg_<id>_<type>_<sender>.txt               archive copy
//	room_<room>/peer_<peer>/peer.json
//	room_<room>/peer_<peer>/msg_<id>_<type>_<sender>.txt   unread inbox copy
//	room_<room>/peer_<peer>/read_msg_<id>_<type>_<sender>.txt
const (
	roomPrefix    = "room_"
	peerPrefix    = "peer_"
	messagePrefix = "msg_"
	readPrefix    = "read_"
	messageExt    = ".txt"
	roomRecord    = "room.json"
	peerRecord    = "peer.json"
)

// idPattern is shared by room ids and supplied peer ids.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_@.]+$`)

// typePattern keeps explicit message types safe to embed in a key.
var typePattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// ValidRoomID reports whether id may name a room.
func ValidRoomID(id string) bool {
	return idPattern.MatchString(id)
}

// ValidPeerID reports whether id may name a peer.
func ValidPeerID(id string) bool {
	return idPattern.MatchString(id)
}

func roomDir(roomID string) string {
	return roomPrefix + roomID
}

func roomKey(roomID string) string {
	return roomDir(roomID) + "/" + roomRecord
}

func peerDir(roomID, peerID string) string {
	return roomDir(roomID) + "/" + peerPrefix + peerID
}

func peerKey(roomID, peerID string) string {
	return peerDir(roomID, peerID) + "/" + peerRecord
}

// messageName renders the file name of one message copy.
func messageName(m models.Message, read bool) string {
	name := messagePrefix + m.ID + "_" + string(m.Type) + "_" + m.SenderID + messageExt
	if read {
		name = readPrefix + name
	}
	return name
}

func archiveKey(m models.Message) string {
	return roomDir(m.RoomID) + "/" + messageName(m, false)
}

func inboxKey(m models.Message, read bool) string {
	return peerDir(m.RoomID, m.PeerID) + "/" + messageName(m, read)
}

// parseMessageName is the inverse of messageName. The sender id comes last
// because it is the only part that may contain underscores.
func parseMessageName(name string) (models.Message, bool) {
	var m models.Message
	if strings.HasPrefix(name, readPrefix) {
		m.IsRead = true
		name = strings.TrimPrefix(name, readPrefix)
	}
	if !strings.HasPrefix(name, messagePrefix) || !strings.HasSuffix(name, messageExt) {
		return models.Message{}, false
	}
	name = strings.TrimSuffix(strings.TrimPrefix(name, messagePrefix), messageExt)

	parts := strings.SplitN(name, "_", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return models.Message{}, false
	}
	m.ID = parts[0]
	m.Type = models.MessageType(parts[1])
	m.SenderID = parts[2]
	return m, true
}
