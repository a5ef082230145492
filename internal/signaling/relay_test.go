package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/eldtechnologies/rendezvous/internal/ids"
	"github.com/eldtechnologies/rendezvous/internal/models"
	"github.com/eldtechnologies/rendezvous/internal/store"
)

func assertJSONEqual(t *testing.T, got, want string) {
	t.Helper()
	var g, w interface{}
	if err := json.Unmarshal([]byte(got), &g); err != nil {
		t.Fatalf("got invalid JSON %s: %v", got, err)
	}
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("want invalid JSON %s: %v", want, err)
	}
	if !reflect.DeepEqual(g, w) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantType models.MessageType
		want     string
	}{
		{"offer", `{"type":"offer","sdp":"x"}`, models.MessageTypeOffer, `{"type":"offer","sdp":"x"}`},
		{"answer", `{"type":"answer","sdp":"y"}`, models.MessageTypeAnswer, `{"type":"answer","sdp":"y"}`},
		{"bye", models.Bye, models.MessageTypeBye, models.Bye},
		{"custom", `{"type":"ice-restart"}`, "ice-restart", `{"type":"ice-restart"}`},
		{"candidate", `{"candidate":"c1","sdpMid":"a","sdpMLineIndex":0}`, models.MessageTypeCandidate,
			`{"type":"candidate","id":"a","label":0,"candidate":"c1"}`},
		{"candidate without mid", `{"candidate":"c1"}`, models.MessageTypeCandidate,
			`{"type":"candidate","candidate":"c1"}`},
		{"other", `{"hello":"world"}`, models.MessageTypeOther, `{"type":"other","hello":"world"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, content, err := Classify(tt.payload)
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if gotType != tt.wantType {
				t.Errorf("expected type %s, got %s", tt.wantType, gotType)
			}
			assertJSONEqual(t, content, tt.want)
		})
	}
}

func TestClassifyKeepsExplicitPayloadVerbatim(t *testing.T) {
	payload := `{ "sdp": "v=0",   "type": "offer" }`
	_, content, err := Classify(payload)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if content != payload {
		t.Errorf("expected payload untouched, got %s", content)
	}
}

func TestClassifyKeepsLargeNumbers(t *testing.T) {
	_, content, err := Classify(`{"candidate":"c","sdpMLineIndex":12345678901234567890}`)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	var v struct {
		Label json.Number `json:"label"`
	}
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if v.Label.String() != "12345678901234567890" {
		t.Errorf("expected label to survive, got %s", v.Label)
	}
}

func TestClassifyDoesNotEscapeHTML(t *testing.T) {
	_, content, err := Classify(`{"candidate":"a<b&c>"}`)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if !strings.Contains(content, `"candidate":"a<b&c>"`) {
		t.Errorf("expected candidate bytes kept, got %s", content)
	}
	if strings.HasSuffix(content, "\n") {
		t.Errorf("expected no trailing newline, got %q", content)
	}
}

func TestTypeLabel(t *testing.T) {
	tests := map[models.MessageType]string{
		models.MessageTypeOffer:     "offer",
		models.MessageTypeAnswer:    "answer",
		models.MessageTypeCandidate: "candidate",
		models.MessageTypeOther:     "other",
		models.MessageTypeBye:       "bye",
		"ice-restart":               "custom",
		"x1":                        "custom",
	}
	for in, want := range tests {
		if got := typeLabel(in); got != want {
			t.Errorf("typeLabel(%s): expected %s, got %s", in, want, got)
		}
	}
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		payload string
		want    error
	}{
		{``, ErrMalformedPayload},
		{`not json`, ErrMalformedPayload},
		{`[1,2]`, ErrMalformedPayload},
		{`"offer"`, ErrMalformedPayload},
		{`{"a":1} trailing`, ErrMalformedPayload},
		{`{"a":1}{"b":2}`, ErrMalformedPayload},
		{`{"type":5}`, ErrInvalidMessageType},
		{`{"type":""}`, ErrInvalidMessageType},
		{`{"type":"a_b"}`, ErrInvalidMessageType},
		{`{"type":"../x"}`, ErrInvalidMessageType},
	}

	for _, tt := range tests {
		if _, _, err := Classify(tt.payload); !errors.Is(err, tt.want) {
			t.Errorf("payload %q: expected %v, got %v", tt.payload, tt.want, err)
		}
	}
}

func TestRelaySendWritesArchiveAndInboxes(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	relay := NewRelay(s, ids.NewSequence(testStart))

	room := &models.Room{ID: "r1", Peers: map[string]*models.Peer{
		"A": {ID: "A", RoomID: "r1"},
		"B": {ID: "B", RoomID: "r1"},
		"C": {ID: "C", RoomID: "r1"},
	}}

	msg, err := relay.Send(ctx, room, "A", `{"type":"offer"}`)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if msg.ID != "1700000000.000000000" {
		t.Errorf("unexpected message id %s", msg.ID)
	}

	keys, err := s.List(ctx, "room_r1/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{
		"room_r1/msg_1700000000.000000000_offer_A.txt",
		"room_r1/peer_B/msg_1700000000.000000000_offer_A.txt",
		"room_r1/peer_C/msg_1700000000.000000000_offer_A.txt",
	}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("expected keys %v, got %v", want, keys)
	}
}

func TestRelayReceiveSkipsLostRename(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	relay := NewRelay(s, ids.NewSequence(testStart))

	first := models.Message{ID: "1.000000001", RoomID: "r1", PeerID: "B", SenderID: "A", Type: models.MessageTypeOffer, Content: "one"}
	second := models.Message{ID: "1.000000002", RoomID: "r1", PeerID: "B", SenderID: "A", Type: models.MessageTypeOffer, Content: "two"}
	for _, m := range []models.Message{first, second} {
		if _, err := s.CreateIfAbsent(ctx, inboxKey(m, false), []byte(m.Content)); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
	peer := &models.Peer{ID: "B", RoomID: "r1", Inbox: []models.Message{first, second}}

	// Another reader takes the first copy after our snapshot.
	if ok, err := s.RenameIfExists(ctx, inboxKey(first, false), inboxKey(first, true)); err != nil || !ok {
		t.Fatalf("concurrent rename failed: ok=%v err=%v", ok, err)
	}

	got, ok, err := relay.Receive(ctx, peer)
	if err != nil || !ok {
		t.Fatalf("expected a message, got ok=%v err=%v", ok, err)
	}
	if got.Content != "two" || !got.IsRead {
		t.Errorf("expected second message marked read, got %+v", got)
	}
	if _, err := s.Get(ctx, inboxKey(second, true)); err != nil {
		t.Errorf("expected read copy to exist: %v", err)
	}
}
