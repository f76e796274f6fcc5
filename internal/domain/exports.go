package domain

import (
	interfaces "pairchat/internal/domain/interfaces"
	types "pairchat/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Slot            = types.Slot
	SessionID       = types.SessionID
	Fingerprint     = types.Fingerprint
	SecretEnvelope  = types.SecretEnvelope
	MessageEnvelope = types.MessageEnvelope
	ReceivedMessage = types.ReceivedMessage
	EventType       = types.EventType
	RelayEvent      = types.RelayEvent
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	RelayClient     = interfaces.RelayClient
	IdentityService = interfaces.IdentityService
	MessageService  = interfaces.MessageService
)

const (
	SlotA = types.SlotA
	SlotB = types.SlotB

	EventPeerPublicKey   = types.EventPeerPublicKey
	EventBothPresent     = types.EventBothPresent
	EventEncryptedSecret = types.EventEncryptedSecret
	EventMessage         = types.EventMessage
)

// ParseSlot accepts "A" or "B" in either case.
func ParseSlot(s string) (Slot, error) { return types.ParseSlot(s) }
