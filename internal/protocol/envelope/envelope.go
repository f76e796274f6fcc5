package envelope

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"pairchat/internal/crypto"
	"pairchat/internal/domain"
)

// Signer signs outgoing plaintexts.
type Signer interface {
	PublicKey() []byte
	Sign(message []byte) ([]byte, error)
}

// Compose encrypts plaintext under key. signer may be nil.
func Compose(plaintext, key []byte, sender string, signer Signer) (domain.MessageEnvelope, error) {
	if len(key) == 0 {
		return domain.MessageEnvelope{}, domain.ErrNotEstablished
	}
	sealed, err := crypto.Seal(plaintext, key)
	if err != nil {
		return domain.MessageEnvelope{}, fmt.Errorf("seal message: %w", err)
	}
	env := domain.MessageEnvelope{
		ID:         uuid.New(),
		Ciphertext: sealed.Ciphertext,
		IV:         sealed.IV,
		Sender:     sender,
		SentAt:     time.Now().UnixMilli(),
	}
	if signer != nil {
		sig, err := signer.Sign(plaintext)
		if err != nil {
			return domain.MessageEnvelope{}, fmt.Errorf("sign message: %w", err)
		}
		env.Signature = sig
		env.SigningPublicKey = signer.PublicKey()
	}
	return env, nil
}

// Open decrypts env under key and checks any attached signature. A failed
// decrypt returns an error matching both domain.ErrTransportDecrypt and
// domain.ErrAuthentication, and no message.
func Open(env domain.MessageEnvelope, key []byte) (domain.ReceivedMessage, error) {
	if len(key) == 0 {
		return domain.ReceivedMessage{}, domain.ErrNotEstablished
	}
	pt, err := crypto.Open(crypto.Sealed{IV: env.IV, Ciphertext: env.Ciphertext}, key)
	if err != nil {
		return domain.ReceivedMessage{}, fmt.Errorf("%w: message %s: %w", domain.ErrTransportDecrypt, env.ID, err)
	}
	msg := domain.ReceivedMessage{
		ID:        env.ID,
		Sender:    env.Sender,
		Plaintext: pt,
		Signed:    env.Signed(),
		SentAt:    env.SentAt,
	}
	if msg.Signed {
		msg.Verified = crypto.Verify(pt, env.Signature, env.SigningPublicKey)
	}
	return msg, nil
}
