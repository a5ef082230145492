package signaling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/Jeffail/gabs"

	"github.com/eldtechnologies/rendezvous/internal/ids"
	"github.com/eldtechnologies/rendezvous/internal/metrics"
	"github.com/eldtechnologies/rendezvous/internal/models"
	"github.com/eldtechnologies/rendezvous/internal/store"
)

// Classify determines the type of a payload and the content to store.
// An explicit "type" is used verbatim and the payload is kept as sent.
// A bare ICE candidate gets "sdpMid" renamed to "id", "sdpMLineIndex" to
// "label" and a "candidate" type. Anything else is typed "other".
func Classify(payload string) (models.MessageType, string, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()

	c, err := gabs.ParseJSONDecoder(dec)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return "", "", fmt.Errorf("%w: unexpected trailing data", ErrMalformedPayload)
	}
	if _, ok := c.Data().(map[string]interface{}); !ok {
		return "", "", fmt.Errorf("%w: payload must be a JSON object", ErrMalformedPayload)
	}

	if c.Exists("type") {
		t, ok := c.Search("type").Data().(string)
		if !ok || !typePattern.MatchString(t) {
			return "", "", fmt.Errorf("%w: %v", ErrInvalidMessageType, c.Search("type").Data())
		}
		return models.MessageType(t), payload, nil
	}

	if c.Exists("candidate") {
		if err := rename(c, "sdpMid", "id"); err != nil {
			return "", "", err
		}
		if err := rename(c, "sdpMLineIndex", "label"); err != nil {
			return "", "", err
		}
		if _, err := c.Set(string(models.MessageTypeCandidate), "type"); err != nil {
			return "", "", err
		}
		content, err := encode(c)
		return models.MessageTypeCandidate, content, err
	}

	if _, err := c.Set(string(models.MessageTypeOther), "type"); err != nil {
		return "", "", err
	}
	content, err := encode(c)
	return models.MessageTypeOther, content, err
}

// encode marshals a rewritten payload without HTML escaping, so characters
// like < and & reach the peer as sent.
func encode(c *gabs.Container) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c.Data()); err != nil {
		return "", err
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// typeLabel keeps the metrics label set bounded; explicit types other than
// the well-known ones count as "custom".
func typeLabel(t models.MessageType) string {
	switch t {
	case models.MessageTypeOffer, models.MessageTypeAnswer, models.MessageTypeCandidate,
		models.MessageTypeOther, models.MessageTypeBye:
		return string(t)
	}
	return "custom"
}

func rename(c *gabs.Container, from, to string) error {
	if !c.Exists(from) {
		return nil
	}
	if _, err := c.Set(c.Search(from).Data(), to); err != nil {
		return err
	}
	return c.Delete(from)
}

// Relay classifies and fans out payloads, and hands inbox entries out once.
type Relay struct {
	store store.EntityStore
	ids   ids.Generator
}

// NewRelay creates a message relay.
func NewRelay(s store.EntityStore, gen ids.Generator) *Relay {
	return &Relay{store: s, ids: gen}
}

// Send stores payload in the room archive and in the inbox of every peer of
// room except the sender.
func (r *Relay) Send(ctx context.Context, room *models.Room, senderID, payload string) (models.Message, error) {
	if room.GetPeer(senderID) == nil {
		return models.Message{}, fmt.Errorf("%w: %s", ErrInvalidPeer, senderID)
	}

	msgType, content, err := Classify(payload)
	if err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		ID:       r.ids.MessageID(),
		RoomID:   room.ID,
		SenderID: senderID,
		Type:     msgType,
		Content:  content,
	}

	created, err := r.store.CreateIfAbsent(ctx, archiveKey(msg), []byte(content))
	if err != nil {
		return models.Message{}, fmt.Errorf("archive %s: %w", msg.ID, err)
	}
	if !created {
		metrics.DuplicateWrites.WithLabelValues("archive").Inc()
	}

	peerIDs := make([]string, 0, len(room.Peers))
	for id := range room.Peers {
		if id != senderID {
			peerIDs = append(peerIDs, id)
		}
	}
	sort.Strings(peerIDs)

	for _, id := range peerIDs {
		c := msg
		c.PeerID = id
		created, err := r.store.CreateIfAbsent(ctx, inboxKey(c, false), []byte(content))
		if err != nil {
			return msg, fmt.Errorf("deliver %s to %s: %w", msg.ID, id, err)
		}
		if !created {
			metrics.DuplicateWrites.WithLabelValues("inbox").Inc()
		}
	}

	metrics.MessagesSent.WithLabelValues(typeLabel(msgType)).Inc()
	return msg, nil
}

// Receive marks the oldest unread inbox entry of peer as read and returns
// it. A rename lost to a concurrent reader moves on to the next entry. ok
// is false when nothing is left.
func (r *Relay) Receive(ctx context.Context, peer *models.Peer) (models.Message, bool, error) {
	for _, m := range peer.Unread() {
		renamed, err := r.store.RenameIfExists(ctx, inboxKey(m, false), inboxKey(m, true))
		if err != nil {
			return models.Message{}, false, fmt.Errorf("mark %s read: %w", m.ID, err)
		}
		if !renamed {
			metrics.DuplicateWrites.WithLabelValues("read").Inc()
			continue
		}
		m.IsRead = true
		metrics.MessagesDelivered.Inc()
		return m, true, nil
	}
	return models.Message{}, false, nil
}
