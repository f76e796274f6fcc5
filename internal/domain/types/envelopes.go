package types

import "github.com/google/uuid"

// SecretEnvelope carries the session secret, encrypted under the responder's
// public key, together with the key-derivation salt. The salt is not secret.
type SecretEnvelope struct {
	EncryptedSecret []byte `json:"encrypted_secret"`
	Salt            []byte `json:"salt"`
}

// MessageEnvelope is the wire format of one chat message. It is produced
// fresh per outgoing message and never modified after sending.
type MessageEnvelope struct {
	ID               uuid.UUID `json:"id"`
	Ciphertext       []byte    `json:"ciphertext"`
	IV               []byte    `json:"iv"`
	Sender           string    `json:"sender"`
	Signature        []byte    `json:"signature,omitempty"`
	SigningPublicKey []byte    `json:"signing_public_key,omitempty"`
	SentAt           int64     `json:"sent_at,omitempty"` // unix milliseconds
}

// Signed reports whether the envelope carries signature material.
func (e MessageEnvelope) Signed() bool {
	return len(e.Signature) > 0 || len(e.SigningPublicKey) > 0
}

// ReceivedMessage is a decrypted message handed to the application.
//
// Verified is only meaningful when Signed is true; a false value is a
// warning, not a delivery failure, under the default policy.
type ReceivedMessage struct {
	ID        uuid.UUID `json:"id"`
	Sender    string    `json:"sender"`
	Plaintext []byte    `json:"plaintext"`
	Signed    bool      `json:"signed"`
	Verified  bool      `json:"verified"`
	SentAt    int64     `json:"sent_at,omitempty"`
}
