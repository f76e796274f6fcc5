package crypto_test

import (
	"bytes"
	"errors"
	"testing"
	"testing/iotest"

	"pairchat/internal/crypto"
	"pairchat/internal/domain"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	k, err := crypto.RandomBytes(crypto.KeySize)
	if err != nil {
		t.Fatalf("RandomBytes: %v", err)
	}
	return k
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := testKey(t)
	for _, msg := range [][]byte{nil, []byte("hello"), bytes.Repeat([]byte("x"), 4096)} {
		s, err := crypto.Seal(msg, key)
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		if len(s.IV) != crypto.IVSize {
			t.Fatalf("want %d-byte iv, got %d", crypto.IVSize, len(s.IV))
		}
		got, err := crypto.Open(s, key)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if !bytes.Equal(got, msg) {
			t.Fatalf("round trip mismatch: %q vs %q", got, msg)
		}
	}
}

func TestOpen_TamperedCiphertext_Fails(t *testing.T) {
	key := testKey(t)
	s, err := crypto.Seal([]byte("attack at dawn"), key)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	for i := range s.Ciphertext {
		ct := append([]byte(nil), s.Ciphertext...)
		ct[i] ^= 0x01
		pt, err := crypto.Open(crypto.Sealed{IV: s.IV, Ciphertext: ct}, key)
		if !errors.Is(err, domain.ErrAuthentication) {
			t.Fatalf("byte %d: want ErrAuthentication, got %v", i, err)
		}
		if pt != nil {
			t.Fatalf("byte %d: plaintext returned on failure", i)
		}
	}
}

func TestOpen_WrongKeyOrIV_Fails(t *testing.T) {
	key := testKey(t)
	s, err := crypto.Seal([]byte("hello"), key)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := crypto.Open(s, testKey(t)); !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("wrong key: want ErrAuthentication, got %v", err)
	}
	if _, err := crypto.Open(crypto.Sealed{IV: s.IV[:4], Ciphertext: s.Ciphertext}, key); !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("short iv: want ErrAuthentication, got %v", err)
	}
}

func TestSeal_FreshIVPerCall(t *testing.T) {
	key := testKey(t)
	const n = 20000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		s, err := crypto.Seal([]byte("same message"), key)
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		if _, dup := seen[string(s.IV)]; dup {
			t.Fatalf("iv reused after %d calls", i)
		}
		seen[string(s.IV)] = struct{}{}
	}
}

func TestSeal_RandFailure_NoCiphertext(t *testing.T) {
	key := testKey(t)
	restore := crypto.SetRandReaderForTesting(iotest.ErrReader(errors.New("entropy exhausted")))
	defer restore()

	s, err := crypto.Seal([]byte("hello"), key)
	if err == nil {
		t.Fatal("expected error when the random source fails")
	}
	if s.Ciphertext != nil {
		t.Fatal("ciphertext produced without a fresh iv")
	}
}
