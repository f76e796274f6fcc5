package handshake

import (
	"pairchat/internal/custody"
	"pairchat/internal/domain"
)

// Event advances a Machine.
type Event interface{ isEvent() }

type (
	// Start begins key generation.
	Start struct{}

	// KeysReady carries the generated transport keypair and, when signing is
	// enabled, the per-session signer.
	KeysReady struct {
		Transport custody.KeyPair
		Signer    *custody.Signer
	}

	// Published reports that the relay accepted our public key.
	Published struct{}

	// PeerKey carries the partner's DER public key.
	PeerKey struct{ PublicKey []byte }

	// BothPresent is the relay's rendezvous notification.
	BothPresent struct{}

	// SecretCreated carries the initiator's encrypted secret and derived key.
	SecretCreated struct {
		Envelope domain.SecretEnvelope
		Key      []byte
	}

	// SecretSent reports that the relay forwarded the encrypted secret.
	SecretSent struct{}

	// SecretReceived carries the encrypted secret delivered by the relay.
	SecretReceived struct{ Envelope domain.SecretEnvelope }

	// KeyDerived carries the responder's derived session key.
	KeyDerived struct{ Key []byte }

	// Failed reports an error from a job or a relay round trip.
	Failed struct{ Err error }

	// PeerGone reports that the relay connection or the partner is gone.
	PeerGone struct{ Err error }
)

func (Start) isEvent()          {}
func (KeysReady) isEvent()      {}
func (Published) isEvent()      {}
func (PeerKey) isEvent()        {}
func (BothPresent) isEvent()    {}
func (SecretCreated) isEvent()  {}
func (SecretSent) isEvent()     {}
func (SecretReceived) isEvent() {}
func (KeyDerived) isEvent()     {}
func (Failed) isEvent()         {}
func (PeerGone) isEvent()       {}

// Effect is work the driver must perform for a Machine.
type Effect interface{ isEffect() }

type (
	// Run asks the driver to execute Job, off its event loop if it likes, and
	// feed the returned event back.
	Run struct{ Job func() Event }

	// Publish asks the driver to publish PublicKey for Slot. Feed Published
	// or Failed with the outcome.
	Publish struct {
		Slot      domain.Slot
		PublicKey []byte
	}

	// SendSecret asks the driver to submit Envelope to the relay. Feed
	// SecretSent or Failed with the outcome.
	SendSecret struct{ Envelope domain.SecretEnvelope }

	// Established delivers the session key.
	Established struct{ Key []byte }

	// Aborted reports the terminal failure.
	Aborted struct{ Err error }
)

func (Run) isEffect()         {}
func (Publish) isEffect()     {}
func (SendSecret) isEffect()  {}
func (Established) isEffect() {}
func (Aborted) isEffect()     {}
