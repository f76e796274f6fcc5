package handshake

import (
	"fmt"

	"pairchat/internal/crypto"
	"pairchat/internal/custody"
	"pairchat/internal/domain"
	"pairchat/internal/util/memzero"
)

func generateKeys(password string, signing bool) func() Event {
	return func() Event {
		transport, err := custody.NewKeyPair(password)
		if err != nil {
			return Failed{Err: fmt.Errorf("transport key: %w", err)}
		}
		ready := KeysReady{Transport: transport}
		if signing {
			pair, err := custody.NewKeyPair(password)
			if err != nil {
				return Failed{Err: fmt.Errorf("signing key: %w", err)}
			}
			ready.Signer = custody.NewSigner(pair, password)
		}
		return ready
	}
}

// createSecret owns secret and wipes it when done.
func createSecret(peerKey, secret, salt []byte) func() Event {
	return func() Event {
		var err error
		if len(secret) == 0 {
			if secret, err = crypto.RandomBytes(DefaultSecretSize); err != nil {
				return Failed{Err: fmt.Errorf("session secret: %w", err)}
			}
		}
		defer memzero.Zero(secret)
		if salt == nil {
			if salt, err = crypto.NewSalt(); err != nil {
				return Failed{Err: fmt.Errorf("session salt: %w", err)}
			}
		}

		pub, err := crypto.ParsePublicKey(peerKey)
		if err != nil {
			return Failed{Err: fmt.Errorf("%w: peer public key: %w", domain.ErrProtocolViolation, err)}
		}
		ct, err := crypto.EncryptOAEP(secret, pub)
		if err != nil {
			return Failed{Err: fmt.Errorf("encrypt session secret: %w", err)}
		}
		key, err := crypto.DeriveKey(secret, salt, crypto.DefaultIterations)
		if err != nil {
			return Failed{Err: fmt.Errorf("derive session key: %w", err)}
		}
		return SecretCreated{
			Envelope: domain.SecretEnvelope{EncryptedSecret: ct, Salt: salt},
			Key:      key,
		}
	}
}

func recoverSecret(wrapped custody.WrappedKey, unlock func() (string, error), env domain.SecretEnvelope) func() Event {
	return func() Event {
		password, err := unlock()
		if err != nil {
			return Failed{Err: fmt.Errorf("unlock transport key: %w", err)}
		}
		priv, err := custody.UnwrapRSA(wrapped, password)
		if err != nil {
			return Failed{Err: fmt.Errorf("unwrap transport key: %w", err)}
		}
		secret, err := crypto.DecryptOAEP(env.EncryptedSecret, priv)
		if err != nil {
			return Failed{Err: fmt.Errorf("%w: encrypted secret: %w", domain.ErrTransportDecrypt, err)}
		}
		defer memzero.Zero(secret)
		key, err := crypto.DeriveKey(secret, env.Salt, crypto.DefaultIterations)
		if err != nil {
			return Failed{Err: fmt.Errorf("derive session key: %w", err)}
		}
		return KeyDerived{Key: key}
	}
}
