package types

import (
	"fmt"
	"strings"
)

// Slot is one of the two fixed roles in a session. Slot A is the initiator
// and creates the session secret; slot B is the responder.
type Slot string

const (
	SlotA Slot = "A"
	SlotB Slot = "B"
)

// ParseSlot accepts "A" or "B" in either case.
func ParseSlot(s string) (Slot, error) {
	switch Slot(strings.ToUpper(strings.TrimSpace(s))) {
	case SlotA:
		return SlotA, nil
	case SlotB:
		return SlotB, nil
	}
	return "", fmt.Errorf("invalid slot %q (want A or B)", s)
}

// Valid reports whether s names one of the two slots.
func (s Slot) Valid() bool { return s == SlotA || s == SlotB }

// Other returns the partner slot.
func (s Slot) Other() Slot {
	if s == SlotA {
		return SlotB
	}
	return SlotA
}

// Index maps A to 0 and B to 1. It panics on an invalid slot.
func (s Slot) Index() int {
	switch s {
	case SlotA:
		return 0
	case SlotB:
		return 1
	}
	panic(fmt.Sprintf("invalid slot %q", string(s)))
}

// Initiator reports whether s creates the session secret.
func (s Slot) Initiator() bool { return s == SlotA }

// String returns the string form of the slot.
func (s Slot) String() string { return string(s) }

// SessionID names a relay session shared by exactly two peers.
type SessionID string

// String returns the string form of the session identifier.
func (id SessionID) String() string { return string(id) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
