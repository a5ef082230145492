package rendezvous

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/rendezvous/internal/api"
	"github.com/eldtechnologies/rendezvous/internal/signaling"
	"github.com/eldtechnologies/rendezvous/internal/store"
)

func newService() *signaling.Service {
	return signaling.NewService(signaling.Config{
		Store:  store.NewMemoryStore(),
		Logger: zerolog.Nop(),
	})
}

func newHTTPClient(t *testing.T) *Client {
	t.Helper()
	s := store.NewMemoryStore()
	svc := signaling.NewService(signaling.Config{Store: s, Logger: zerolog.Nop()})
	srv := httptest.NewServer(api.NewRouter(zerolog.Nop(), svc, s, api.Options{Backend: store.BackendMemory}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func fastPoll(s *Session) *Session {
	s.MinPoll = time.Millisecond
	s.MaxPoll = 5 * time.Millisecond
	return s
}

// signalers runs a test over HTTP and in-process.
func signalers(t *testing.T) map[string]Signaler {
	return map[string]Signaler{
		"http":  newHTTPClient(t),
		"local": Local{Service: newService()},
	}
}

func TestNegotiation(t *testing.T) {
	for name, sig := range signalers(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			a, err := Connect(ctx, sig, "r1", "")
			if err != nil {
				t.Fatalf("connect A failed: %v", err)
			}
			b, err := Connect(ctx, sig, "r1", "")
			if err != nil {
				t.Fatalf("connect B failed: %v", err)
			}
			fastPoll(a)
			fastPoll(b)

			if !a.IsInitiator() || b.IsInitiator() {
				t.Fatalf("expected only A to initiate, got A=%v B=%v", a.IsInitiator(), b.IsInitiator())
			}

			offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0\r\no=- 1 1 IN IP4 0.0.0.0\r\n"}
			if err := a.SendDescription(ctx, offer); err != nil {
				t.Fatalf("send offer failed: %v", err)
			}

			got, err := b.Receive(ctx)
			if err != nil {
				t.Fatalf("B receive failed: %v", err)
			}
			if got.Type != "offer" {
				t.Fatalf("expected offer, got %s", got.Type)
			}
			desc, err := got.Description()
			if err != nil {
				t.Fatalf("decode offer failed: %v", err)
			}
			if desc.Type != webrtc.SDPTypeOffer || desc.SDP != offer.SDP {
				t.Errorf("offer changed in transit: %+v", desc)
			}

			mid, index := "0", uint16(1)
			cand := webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 1 10.0.0.1 5000 typ host", SDPMid: &mid, SDPMLineIndex: &index}
			if err := b.SendCandidate(ctx, cand); err != nil {
				t.Fatalf("send candidate failed: %v", err)
			}

			got, err = a.Receive(ctx)
			if err != nil {
				t.Fatalf("A receive failed: %v", err)
			}
			init, err := got.Candidate()
			if err != nil {
				t.Fatalf("decode candidate failed: %v", err)
			}
			if init.Candidate != cand.Candidate || init.SDPMid == nil || *init.SDPMid != "0" || init.SDPMLineIndex == nil || *init.SDPMLineIndex != 1 {
				t.Errorf("candidate changed in transit: %+v", init)
			}
		})
	}
}

func TestReceiveTimesOut(t *testing.T) {
	for name, sig := range signalers(t) {
		t.Run(name, func(t *testing.T) {
			s, err := Connect(context.Background(), sig, "r1", "")
			if err != nil {
				t.Fatalf("connect failed: %v", err)
			}
			fastPoll(s)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
			defer cancel()
			if _, err := s.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("expected deadline exceeded, got %v", err)
			}
		})
	}
}

func TestCloseSendsBye(t *testing.T) {
	for name, sig := range signalers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a, _ := Connect(ctx, sig, "r1", "alice")
			b, _ := Connect(ctx, sig, "r1", "bob")
			if a == nil || b == nil {
				t.Fatal("connect failed")
			}
			fastPoll(b)

			if err := a.Close(ctx); err != nil {
				t.Fatalf("close failed: %v", err)
			}
			if err := a.Close(ctx); err != nil {
				t.Fatalf("second close failed: %v", err)
			}
			if err := a.SendRaw(ctx, `{"type":"late"}`); !errors.Is(err, ErrSessionClosed) {
				t.Errorf("expected ErrSessionClosed after close, got %v", err)
			}

			got, err := b.Receive(ctx)
			if !errors.Is(err, ErrSessionClosed) {
				t.Fatalf("expected ErrSessionClosed, got %v", err)
			}
			if got.Type != "bye" {
				t.Errorf("expected bye signal, got %+v", got)
			}
			if _, err := b.Receive(ctx); !errors.Is(err, ErrSessionClosed) {
				t.Errorf("expected closed session to stay closed, got %v", err)
			}
		})
	}
}

func TestLateJoinerGetsBacklog(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := newHTTPClient(t)

	a, _ := Connect(ctx, client, "r1", "A")
	b, _ := Connect(ctx, client, "r1", "B")
	if a == nil || b == nil {
		t.Fatal("connect failed")
	}
	a.SendDescription(ctx, webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "o"})
	b.SendDescription(ctx, webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "a"})

	c, err := Connect(ctx, client, "r1", "C")
	if err != nil {
		t.Fatalf("connect C failed: %v", err)
	}
	fastPoll(c)
	if c.IsInitiator() {
		t.Error("expected late joiner not to initiate")
	}

	for _, want := range []webrtc.SDPType{webrtc.SDPTypeOffer, webrtc.SDPTypeAnswer} {
		got, err := c.Receive(ctx)
		if err != nil {
			t.Fatalf("receive failed: %v", err)
		}
		desc, err := got.Description()
		if err != nil || desc.Type != want {
			t.Fatalf("expected %s, got %+v (%v)", want, desc, err)
		}
	}
}

func TestClientErrors(t *testing.T) {
	client := newHTTPClient(t)
	ctx := context.Background()

	_, err := client.Join(ctx, "bad room", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 400 {
		t.Fatalf("expected 400 APIError, got %v", err)
	}

	if err := client.Send(ctx, "missing", "p", `{"type":"offer"}`); !errors.As(err, &apiErr) || apiErr.Status != 404 {
		t.Fatalf("expected 404 APIError, got %v", err)
	}

	if _, err := client.Join(ctx, "r1", "dup"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if _, err := client.Join(ctx, "r1", "dup"); !errors.As(err, &apiErr) || apiErr.Status != 409 {
		t.Fatalf("expected 409 APIError, got %v", err)
	}

	info, err := client.Inspect(ctx, "r1")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if len(info.Peers) != 1 || info.Peers[0].ID != "dup" {
		t.Errorf("unexpected room info %+v", info)
	}
}

func TestSignalCandidateAcceptsBothSpellings(t *testing.T) {
	for _, raw := range []string{
		`{"type":"candidate","candidate":"c","id":"m","label":2}`,
		`{"type":"candidate","candidate":"c","sdpMid":"m","sdpMLineIndex":2}`,
	} {
		sig, err := parseSignal(raw)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		init, err := sig.Candidate()
		if err != nil {
			t.Fatalf("candidate failed: %v", err)
		}
		if *init.SDPMid != "m" || *init.SDPMLineIndex != 2 {
			t.Errorf("%s: unexpected candidate %+v", raw, init)
		}
	}
}
