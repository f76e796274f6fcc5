package types

// EventType names a relay-to-peer event.
type EventType string

const (
	EventPeerPublicKey   EventType = "peer-public-key"
	EventBothPresent     EventType = "both-peers-present"
	EventEncryptedSecret EventType = "deliver-encrypted-secret"
	EventMessage         EventType = "receive-message"
)

// RelayEvent is one push from the relay coordinator to a connected peer.
// Exactly one payload field is set, matching Type.
type RelayEvent struct {
	Type      EventType
	From      Slot
	PublicKey []byte
	Present   bool
	Secret    *SecretEnvelope
	Message   *MessageEnvelope
}
