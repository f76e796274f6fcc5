package crypto_test

import (
	"bytes"
	"errors"
	"testing"

	"pairchat/internal/crypto"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{7}, crypto.SaltSize)

	k1, err := crypto.DeriveKey([]byte("S1"), salt, crypto.DefaultIterations)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	k2, err := crypto.DeriveKey([]byte("S1"), salt, crypto.DefaultIterations)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	if !bytes.Equal(k1, k2) {
		t.Fatal("same inputs produced different keys")
	}
	if len(k1) != crypto.KeySize {
		t.Fatalf("want %d-byte key, got %d", crypto.KeySize, len(k1))
	}
}

func TestDeriveKey_SaltSensitive(t *testing.T) {
	a := bytes.Repeat([]byte{1}, crypto.SaltSize)
	b := bytes.Repeat([]byte{2}, crypto.SaltSize)

	ka, err := crypto.DeriveKey([]byte("S1"), a, crypto.DefaultIterations)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	kb, err := crypto.DeriveKey([]byte("S1"), b, crypto.DefaultIterations)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	if bytes.Equal(ka, kb) {
		t.Fatal("different salts produced the same key")
	}
}

func TestDeriveKey_RejectsWeakParameters(t *testing.T) {
	salt := make([]byte, crypto.SaltSize)
	if _, err := crypto.DeriveKey([]byte("pw"), salt, crypto.MinIterations-1); !errors.Is(err, crypto.ErrWeakIterations) {
		t.Fatalf("want ErrWeakIterations, got %v", err)
	}
	if _, err := crypto.DeriveKey([]byte("pw"), nil, crypto.DefaultIterations); !errors.Is(err, crypto.ErrEmptySalt) {
		t.Fatalf("want ErrEmptySalt, got %v", err)
	}
}
