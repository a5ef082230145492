package rendezvous

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/eldtechnologies/rendezvous/internal/models"
)

// ErrSessionClosed is returned by Receive once the remote side said bye,
// and by every call after Close.
var ErrSessionClosed = errors.New("session closed")

// Polling defaults for Receive.
const (
	DefaultMinPoll = 100 * time.Millisecond
	DefaultMaxPoll = 2 * time.Second
)

// Session is one peer's view of a room.
type Session struct {
	signaler  Signaler
	roomID    string
	peerID    string
	initiator bool
	closed    bool

	MinPoll time.Duration
	MaxPoll time.Duration
}

// Connect joins roomID as a new peer. peerID may be empty.
func Connect(ctx context.Context, s Signaler, roomID, peerID string) (*Session, error) {
	res, err := s.Join(ctx, roomID, peerID)
	if err != nil {
		return nil, err
	}
	sess := Attach(s, res.RoomID, res.PeerID)
	sess.initiator = res.IsInitiator
	return sess, nil
}

// Attach resumes a session for a peer that already joined. Its initiator
// flag is unknown and reported as false.
func Attach(s Signaler, roomID, peerID string) *Session {
	return &Session{
		signaler: s,
		roomID:   roomID,
		peerID:   peerID,
		MinPoll:  DefaultMinPoll,
		MaxPoll:  DefaultMaxPoll,
	}
}

func (s *Session) RoomID() string    { return s.roomID }
func (s *Session) PeerID() string    { return s.peerID }
func (s *Session) IsInitiator() bool { return s.initiator }

// SendDescription relays an offer or answer.
func (s *Session) SendDescription(ctx context.Context, desc webrtc.SessionDescription) error {
	return s.sendJSON(ctx, descriptionFromPion(desc))
}

// SendCandidate relays a local ICE candidate.
func (s *Session) SendCandidate(ctx context.Context, c webrtc.ICECandidateInit) error {
	return s.sendJSON(ctx, candidateFromPion(c))
}

// SendRaw relays an arbitrary JSON payload.
func (s *Session) SendRaw(ctx context.Context, payload string) error {
	if s.closed {
		return ErrSessionClosed
	}
	return s.signaler.Send(ctx, s.roomID, s.peerID, payload)
}

func (s *Session) sendJSON(ctx context.Context, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.SendRaw(ctx, string(data))
}

// Receive waits for the next message, polling with exponential backoff
// between MinPoll and MaxPoll. It returns ctx.Err() when ctx ends first and
// ErrSessionClosed when the message is a bye.
func (s *Session) Receive(ctx context.Context) (Signal, error) {
	if s.closed {
		return Signal{}, ErrSessionClosed
	}

	wait := s.MinPoll
	if wait <= 0 {
		wait = DefaultMinPoll
	}
	maxWait := s.MaxPoll
	if maxWait < wait {
		maxWait = wait
	}

	for {
		raw, ok, err := s.signaler.Receive(ctx, s.roomID, s.peerID)
		if err != nil {
			return Signal{}, err
		}
		if ok {
			sig, err := parseSignal(raw)
			if err != nil {
				return Signal{}, err
			}
			if sig.Type == string(models.MessageTypeBye) {
				s.closed = true
				return sig, ErrSessionClosed
			}
			return sig, nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Signal{}, ctx.Err()
		case <-timer.C:
		}

		wait *= 2
		if wait > maxWait {
			wait = maxWait
		}
	}
}

// Close tells the other peers this session is over. Closing twice is a
// no-op.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	if err := s.signaler.Send(ctx, s.roomID, s.peerID, models.Bye); err != nil {
		return err
	}
	s.closed = true
	return nil
}
