package envelope_test

import (
	"errors"
	"testing"

	"pairchat/internal/crypto"
	"pairchat/internal/custody"
	"pairchat/internal/domain"
	"pairchat/internal/protocol/envelope"
)

func sessionKey(t *testing.T) []byte {
	t.Helper()
	k, err := crypto.RandomBytes(crypto.KeySize)
	if err != nil {
		t.Fatalf("RandomBytes: %v", err)
	}
	return k
}

func TestComposeOpen_Unsigned(t *testing.T) {
	key := sessionKey(t)
	env, err := envelope.Compose([]byte("hello"), key, "A", nil)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if env.Signed() {
		t.Fatal("unsigned envelope carries signature material")
	}
	msg, err := envelope.Open(env, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(msg.Plaintext) != "hello" || msg.Sender != "A" || msg.Signed {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestComposeOpen_Signed(t *testing.T) {
	key := sessionKey(t)
	pair, err := custody.NewKeyPair("pw")
	if err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}
	env, err := envelope.Compose([]byte("hello"), key, "A", custody.NewSigner(pair, "pw"))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	msg, err := envelope.Open(env, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !msg.Signed || !msg.Verified {
		t.Fatalf("want signed and verified, got %+v", msg)
	}

	// A bad signature is reported, not rejected.
	env.Signature[0] ^= 0x01
	msg, err = envelope.Open(env, key)
	if err != nil {
		t.Fatalf("Open with bad signature: %v", err)
	}
	if !msg.Signed || msg.Verified {
		t.Fatalf("want signed and unverified, got %+v", msg)
	}
}

func TestOpen_TamperedEnvelope_Rejected(t *testing.T) {
	key := sessionKey(t)
	env, err := envelope.Compose([]byte("hello"), key, "A", nil)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	env.Ciphertext[0] ^= 0x01

	msg, err := envelope.Open(env, key)
	if !errors.Is(err, domain.ErrTransportDecrypt) || !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("want ErrTransportDecrypt, got %v", err)
	}
	if msg.Plaintext != nil {
		t.Fatal("tampered envelope yielded plaintext")
	}
}

func TestCompose_FailsClosedWithoutKey(t *testing.T) {
	if _, err := envelope.Compose([]byte("hello"), nil, "A", nil); !errors.Is(err, domain.ErrNotEstablished) {
		t.Fatalf("want ErrNotEstablished, got %v", err)
	}
	if _, err := envelope.Open(domain.MessageEnvelope{}, make([]byte, 0)); !errors.Is(err, domain.ErrNotEstablished) {
		t.Fatalf("want ErrNotEstablished, got %v", err)
	}
}

func TestCompose_FreshIDAndIV(t *testing.T) {
	key := sessionKey(t)
	a, err := envelope.Compose([]byte("same"), key, "A", nil)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	b, err := envelope.Compose([]byte("same"), key, "A", nil)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if a.ID == b.ID || string(a.IV) == string(b.IV) {
		t.Fatal("envelopes must not share id or iv")
	}
}
