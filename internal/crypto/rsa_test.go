package crypto_test

import (
	"bytes"
	"errors"
	"testing"

	"pairchat/internal/crypto"
	"pairchat/internal/domain"
)

func TestOAEP_RoundTrip_Randomized(t *testing.T) {
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	secret := []byte("S1")

	c1, err := crypto.EncryptOAEP(secret, &priv.PublicKey)
	if err != nil {
		t.Fatalf("EncryptOAEP: %v", err)
	}
	c2, err := crypto.EncryptOAEP(secret, &priv.PublicKey)
	if err != nil {
		t.Fatalf("EncryptOAEP: %v", err)
	}
	if bytes.Equal(c1, c2) {
		t.Fatal("oaep ciphertexts of equal secrets must differ")
	}

	got, err := crypto.DecryptOAEP(c1, priv)
	if err != nil {
		t.Fatalf("DecryptOAEP: %v", err)
	}
	if !bytes.Equal(got, secret) {
		t.Fatalf("want %q, got %q", secret, got)
	}

	c1[10] ^= 0xff
	if _, err := crypto.DecryptOAEP(c1, priv); !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("tampered: want ErrAuthentication, got %v", err)
	}
}

func TestOAEP_PlaintextLimit(t *testing.T) {
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	if _, err := crypto.EncryptOAEP(make([]byte, crypto.MaxOAEPPlaintext), &priv.PublicKey); err != nil {
		t.Fatalf("max plaintext rejected: %v", err)
	}
	if _, err := crypto.EncryptOAEP(make([]byte, crypto.MaxOAEPPlaintext+1), &priv.PublicKey); err == nil {
		t.Fatal("expected error for oversize plaintext")
	}
}

func TestSignVerify(t *testing.T) {
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	pub, err := crypto.MarshalPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPublicKey: %v", err)
	}
	msg := []byte("hello")

	s1, err := crypto.Sign(msg, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	s2, err := crypto.Sign(msg, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if bytes.Equal(s1, s2) {
		t.Fatal("pss signatures must be salted per call")
	}
	if !crypto.Verify(msg, s1, pub) {
		t.Fatal("valid signature rejected")
	}
	if crypto.Verify([]byte("hellO"), s1, pub) {
		t.Fatal("signature accepted for a different message")
	}
}

func TestVerify_Total(t *testing.T) {
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	pub, err := crypto.MarshalPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPublicKey: %v", err)
	}
	sig, err := crypto.Sign([]byte("m"), priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	cases := []struct {
		name     string
		sig, pub []byte
	}{
		{"nil signature", nil, pub},
		{"nil key", sig, nil},
		{"garbage key", sig, []byte("not a key")},
		{"truncated signature", sig[:17], pub},
		{"truncated key", sig, pub[:len(pub)/2]},
	}
	for _, tc := range cases {
		if crypto.Verify([]byte("m"), tc.sig, tc.pub) {
			t.Fatalf("%s: verify returned true", tc.name)
		}
	}
}

func TestKeyEncoding_RoundTrip(t *testing.T) {
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	der, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		t.Fatalf("MarshalPrivateKey: %v", err)
	}
	back, err := crypto.ParsePrivateKey(der)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	if !back.Equal(priv) {
		t.Fatal("private key mismatch after round trip")
	}
	if _, err := crypto.ParsePublicKey([]byte{1, 2, 3}); !errors.Is(err, crypto.ErrInvalidPublicKey) {
		t.Fatalf("want ErrInvalidPublicKey, got %v", err)
	}
}

func TestFingerprint_Format(t *testing.T) {
	fp := crypto.Fingerprint([]byte("key"))
	if len(fp) != 24 { // 5 groups of 4 hex digits plus 4 separators
		t.Fatalf("unexpected fingerprint %q", fp)
	}
	if fp != crypto.Fingerprint([]byte("key")) {
		t.Fatal("fingerprint not stable")
	}
}
