package rendezvous

import (
	"context"

	"github.com/eldtechnologies/rendezvous/internal/signaling"
)

// Signaler is the transport a Session talks through. *Client satisfies it
// over HTTP and Local in-process.
type Signaler interface {
	Join(ctx context.Context, roomID, peerID string) (*JoinResult, error)
	Send(ctx context.Context, roomID, peerID, payload string) error
	Receive(ctx context.Context, roomID, peerID string) (string, bool, error)
}

// Local adapts a signaling.Service living in the same process.
type Local struct {
	Service *signaling.Service
}

func (l Local) Join(ctx context.Context, roomID, peerID string) (*JoinResult, error) {
	var opts []signaling.JoinOption
	if peerID != "" {
		opts = append(opts, signaling.WithPeerID(peerID))
	}
	resp, err := l.Service.Join(ctx, roomID, opts...)
	if err != nil {
		return nil, err
	}
	return &JoinResult{
		RoomID:      resp.Params.RoomID,
		PeerID:      resp.Params.PeerID,
		IsInitiator: resp.Params.IsInitiator,
	}, nil
}

func (l Local) Send(ctx context.Context, roomID, peerID, payload string) error {
	return l.Service.Send(ctx, roomID, peerID, payload)
}

func (l Local) Receive(ctx context.Context, roomID, peerID string) (string, bool, error) {
	return l.Service.ReceiveMessage(ctx, roomID, peerID)
}
