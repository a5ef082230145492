package signaling

import (
	"fmt"

	"github.com/eldtechnologies/rendezvous/internal/models"
)

// ElectionSnapshot is the room state an election sees. It is taken once,
// after the joining peer has been added to the room's peer set.
type ElectionSnapshot struct {
	RelevantMessages int // archived offers and candidates
	PeerCount        int // including the joining peer
}

// ElectionPolicy decides whether a joining peer becomes the initiator.
type ElectionPolicy interface {
	Name() string
	Elect(ElectionSnapshot) bool
}

type electOnEmptyOfferHistory struct{}

func (electOnEmptyOfferHistory) Name() string { return "empty-offer-history" }

// Elect keeps the historical rule. The peer count already includes the
// joiner, so the second clause never fires; two peers that join before any
// offer is sent are both elected.
func (electOnEmptyOfferHistory) Elect(s ElectionSnapshot) bool {
	return s.RelevantMessages == 0 || s.PeerCount == 0
}

type electOnFirstPeerInSet struct{}

func (electOnFirstPeerInSet) Name() string { return "first-peer-in-set" }

// Elect makes only the first peer of a room the initiator.
func (electOnFirstPeerInSet) Elect(s ElectionSnapshot) bool {
	return s.PeerCount == 1
}

var (
	// ElectOnEmptyOfferHistory elects any peer joining a room with no
	// archived offer or candidate.
	ElectOnEmptyOfferHistory ElectionPolicy = electOnEmptyOfferHistory{}

	// ElectOnFirstPeerInSet elects a peer only if nobody joined before it.
	ElectOnFirstPeerInSet ElectionPolicy = electOnFirstPeerInSet{}
)

// ElectionPolicyByName resolves a configured policy name. Empty selects
// ElectOnFirstPeerInSet.
func ElectionPolicyByName(name string) (ElectionPolicy, error) {
	switch name {
	case "", ElectOnFirstPeerInSet.Name():
		return ElectOnFirstPeerInSet, nil
	case ElectOnEmptyOfferHistory.Name():
		return ElectOnEmptyOfferHistory, nil
	}
	return nil, fmt.Errorf("unknown election policy %q", name)
}

// isRelevant reports whether an archived message counts against electing a
// new initiator.
func isRelevant(m models.Message) bool {
	return m.Type == models.MessageTypeOffer || m.Type == models.MessageTypeCandidate
}

// ReplayPolicy picks which archived messages a late joiner receives.
type ReplayPolicy interface {
	Name() string
	Replays(models.Message) bool
}

type replayNegotiation struct{}

func (replayNegotiation) Name() string                  { return "negotiation" }
func (replayNegotiation) Replays(m models.Message) bool { return m.IsNegotiation() }

type replayOffersAndCandidates struct{}

func (replayOffersAndCandidates) Name() string                  { return "offers-and-candidates" }
func (replayOffersAndCandidates) Replays(m models.Message) bool { return isRelevant(m) }

var (
	// ReplayNegotiation replays offers, answers and candidates.
	ReplayNegotiation ReplayPolicy = replayNegotiation{}

	// ReplayOffersAndCandidates replays exactly the messages the election
	// looks at.
	ReplayOffersAndCandidates ReplayPolicy = replayOffersAndCandidates{}
)

// ReplayPolicyByName resolves a configured policy name. Empty selects
// ReplayNegotiation.
func ReplayPolicyByName(name string) (ReplayPolicy, error) {
	switch name {
	case "", ReplayNegotiation.Name():
		return ReplayNegotiation, nil
	case ReplayOffersAndCandidates.Name():
		return ReplayOffersAndCandidates, nil
	}
	return nil, fmt.Errorf("unknown replay policy %q", name)
}
