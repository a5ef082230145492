// Package ids generates peer and message identifiers.
package ids

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// PeerIDLength is the number of decimal digits in a generated peer id.
const PeerIDLength = 10

// Generator hands out identifiers. Message ids must sort lexically in
// creation order.
type Generator interface {
	PeerID() string
	MessageID() string
}

// FormatMessageID renders a Unix timestamp in nanoseconds as
// "<seconds>.<9-digit nanoseconds>".
func FormatMessageID(nanos int64) string {
	return fmt.Sprintf("%d.%09d", nanos/int64(time.Second), nanos%int64(time.Second))
}

// Clock is the production generator: random decimal peer ids and
// wall-clock message ids that never repeat within the process.
type Clock struct {
	last atomic.Int64
	now  func() time.Time
}

// NewClock returns a generator reading the system clock.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// PeerID returns a random 10-digit decimal string.
func (c *Clock) PeerID() string {
	var b strings.Builder
	for i := 0; i < PeerIDLength; i++ {
		b.WriteByte(byte('0' + rand.IntN(10)))
	}
	return b.String()
}

// MessageID returns the current time, bumped past the previous id if the
// clock has not advanced.
func (c *Clock) MessageID() string {
	for {
		last := c.last.Load()
		n := c.now().UnixNano()
		if n <= last {
			n = last + 1
		}
		if c.last.CompareAndSwap(last, n) {
			return FormatMessageID(n)
		}
	}
}

// Sequence is a deterministic generator for tests. Peer ids are taken from
// the given list, then counted up; message ids advance one microsecond per
// call from start.
type Sequence struct {
	mu    sync.Mutex
	peers []string
	count int
	next  int64
}

// NewSequence creates a deterministic generator.
func NewSequence(start time.Time, peers ...string) *Sequence {
	return &Sequence{peers: peers, next: start.UnixNano()}
}

func (s *Sequence) PeerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if len(s.peers) > 0 {
		id := s.peers[0]
		s.peers = s.peers[1:]
		return id
	}
	return fmt.Sprintf("%0*d", PeerIDLength, s.count)
}

func (s *Sequence) MessageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := FormatMessageID(s.next)
	s.next += int64(time.Microsecond)
	return id
}
