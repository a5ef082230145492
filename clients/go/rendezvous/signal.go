package rendezvous

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// Signal is one message received through a session.
type Signal struct {
	Type string // offer, answer, candidate, other, or a custom type
	Raw  string
}

func parseSignal(raw string) (Signal, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(raw), &head); err != nil {
		return Signal{}, fmt.Errorf("decode signal: %w", err)
	}
	return Signal{Type: head.Type, Raw: raw}, nil
}

type description struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

func descriptionFromPion(desc webrtc.SessionDescription) description {
	return description{Type: desc.Type.String(), SDP: desc.SDP}
}

// Description decodes an offer or answer.
func (s Signal) Description() (webrtc.SessionDescription, error) {
	var d description
	if err := json.Unmarshal([]byte(s.Raw), &d); err != nil {
		return webrtc.SessionDescription{}, err
	}

	var t webrtc.SDPType
	switch d.Type {
	case "offer":
		t = webrtc.SDPTypeOffer
	case "answer":
		t = webrtc.SDPTypeAnswer
	case "pranswer":
		t = webrtc.SDPTypePranswer
	case "rollback":
		t = webrtc.SDPTypeRollback
	default:
		return webrtc.SessionDescription{}, fmt.Errorf("unsupported sdp type %q", d.Type)
	}
	return webrtc.SessionDescription{Type: t, SDP: d.SDP}, nil
}

// candidate is the relayed form of an ICE candidate. The server renames
// sdpMid to id and sdpMLineIndex to label; both spellings are accepted.
type candidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	ID               *string `json:"id,omitempty"`
	Label            *uint16 `json:"label,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

func candidateFromPion(init webrtc.ICECandidateInit) candidate {
	return candidate{
		Candidate:        init.Candidate,
		SDPMid:           init.SDPMid,
		SDPMLineIndex:    init.SDPMLineIndex,
		UsernameFragment: init.UsernameFragment,
	}
}

func (c candidate) toPion() webrtc.ICECandidateInit {
	init := webrtc.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
	if c.ID != nil {
		init.SDPMid = c.ID
	}
	if c.Label != nil {
		init.SDPMLineIndex = c.Label
	}
	return init
}

// Candidate decodes an ICE candidate.
func (s Signal) Candidate() (webrtc.ICECandidateInit, error) {
	if s.Type != "candidate" {
		return webrtc.ICECandidateInit{}, fmt.Errorf("signal of type %q is not a candidate", s.Type)
	}
	var c candidate
	if err := json.Unmarshal([]byte(s.Raw), &c); err != nil {
		return webrtc.ICECandidateInit{}, err
	}
	return c.toPion(), nil
}
