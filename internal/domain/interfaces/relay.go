package interfaces

import (
	"context"

	domaintypes "pairchat/internal/domain/types"
)

// RelayClient is a peer's connection to one slot of one relay session.
//
// The slot is bound when the connection is made. Events is closed once the
// connection is gone; sends after that fail with ErrRelayClosed.
type RelayClient interface {
	PublishPublicKey(ctx context.Context, publicKey []byte) error
	SubmitEncryptedSecret(ctx context.Context, envelope domaintypes.SecretEnvelope) error
	SendMessage(ctx context.Context, envelope domaintypes.MessageEnvelope) error
	Events() <-chan domaintypes.RelayEvent
	Close() error
}
