package signaling

import "errors"

// Errors returned by the facade. Callers match them with errors.Is; the
// HTTP layer maps each one to a status code.
var (
	ErrInvalidRoomID      = errors.New("invalid room id")
	ErrRoomNotFound       = errors.New("room not found")
	ErrInvalidPeer        = errors.New("invalid peer id")
	ErrPeerExists         = errors.New("peer already exists")
	ErrMalformedPayload   = errors.New("malformed payload")
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrBacklogIncomplete  = errors.New("backlog replay incomplete")
)
