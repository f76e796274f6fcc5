package handshake

// State is a handshake phase.
type State int

const (
	StateIdle State = iota
	StateKeysGenerated
	StatePublicKeyPublished
	StatePeerKeyReceived
	StateSecretExchanged
	StateSessionEstablished
	StateAborted
)

var stateNames = [...]string{
	StateIdle:               "idle",
	StateKeysGenerated:      "keys-generated",
	StatePublicKeyPublished: "public-key-published",
	StatePeerKeyReceived:    "peer-key-received",
	StateSecretExchanged:    "secret-exchanged",
	StateSessionEstablished: "session-established",
	StateAborted:            "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool { return s == StateAborted }
