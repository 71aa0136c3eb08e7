package session

// State is a step of the handshake. A session only moves forward, one state
// at a time, and any failure jumps straight to StateClosed.
type State int

const (
	StateInit State = iota
	StateKeyPairGenerated
	StateRegistered
	StateRoleResolved
	StatePeerKeyResolved
	StateHandshakeAcked
	StateHalfKeyExchanged
	StateCommonKeyDerived
	StateCipherReady
	StateMessaging
	StateClosed
)

var stateNames = [...]string{
	StateInit:             "Init",
	StateKeyPairGenerated: "KeyPairGenerated",
	StateRegistered:       "Registered",
	StateRoleResolved:     "RoleResolved",
	StatePeerKeyResolved:  "PeerKeyResolved",
	StateHandshakeAcked:   "HandshakeAcked",
	StateHalfKeyExchanged: "HalfKeyExchanged",
	StateCommonKeyDerived: "CommonKeyDerived",
	StateCipherReady:      "CipherReady",
	StateMessaging:        "Messaging",
	StateClosed:           "Closed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Next returns the successor state. StateClosed is its own successor.
func (s State) Next() State {
	if s >= StateClosed {
		return StateClosed
	}
	return s + 1
}

// Role is fixed once the session reaches StateRoleResolved.
type Role int

const (
	RoleUnresolved Role = iota
	// RoleResponder accepted an inbound peer while listening.
	RoleResponder
	// RoleInitiator connected out, either because a peer id was given or
	// because listening was interrupted.
	RoleInitiator
)

func (r Role) String() string {
	switch r {
	case RoleResponder:
		return "responder"
	case RoleInitiator:
		return "initiator"
	default:
		return "unresolved"
	}
}

// ShouldStart reports whether this side speaks first in the half-key
// exchange and in the conversation.
func (r Role) ShouldStart() bool { return r == RoleInitiator }
