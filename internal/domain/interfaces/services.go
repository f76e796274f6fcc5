package interfaces

import (
	"context"

	domaintypes "pairchat/internal/domain/types"
)

// IdentityService gates passwords and renders key fingerprints.
type IdentityService interface {
	CheckPassword(password string) error
	Fingerprint(publicKey []byte) domaintypes.Fingerprint
}

// MessageService encrypts and sends, or opens and verifies, chat messages
// under an established session key.
type MessageService interface {
	Send(ctx context.Context, plaintext []byte) (domaintypes.MessageEnvelope, error)
	Open(envelope domaintypes.MessageEnvelope) (domaintypes.ReceivedMessage, error)
}
