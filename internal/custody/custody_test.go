package custody_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"pairchat/internal/crypto"
	"pairchat/internal/custody"
	"pairchat/internal/domain"
)

func TestWrapUnwrap_RoundTrip(t *testing.T) {
	priv := []byte("not really a der key, any bytes will do")

	blob, err := custody.Wrap(priv, "pw-A")
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if got := len(blob); got != crypto.SaltSize+crypto.IVSize+len(priv)+16 {
		t.Fatalf("unexpected blob length %d", got)
	}
	got, err := custody.Unwrap(blob, "pw-A")
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if !bytes.Equal(got, priv) {
		t.Fatal("unwrapped key differs")
	}
}

func TestUnwrap_WrongPassword_Fails(t *testing.T) {
	blob, err := custody.Wrap([]byte("secret key"), "pw-A")
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	got, err := custody.Unwrap(blob, "pw-B")
	if !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("want ErrAuthentication, got %v", err)
	}
	if got != nil {
		t.Fatal("plaintext returned for wrong password")
	}
}

func TestUnwrap_CorruptedBlob_Fails(t *testing.T) {
	blob, err := custody.Wrap([]byte("secret key"), "pw")
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	for _, i := range []int{0, crypto.SaltSize, crypto.SaltSize + crypto.IVSize, len(blob) - 1} {
		bad := append(custody.WrappedKey(nil), blob...)
		bad[i] ^= 0x80
		if _, err := custody.Unwrap(bad, "pw"); !errors.Is(err, domain.ErrAuthentication) {
			t.Fatalf("flip at %d: want ErrAuthentication, got %v", i, err)
		}
	}
	if _, err := custody.Unwrap(blob[:10], "pw"); !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("truncated: want ErrAuthentication, got %v", err)
	}
}

func TestWrap_SaltAndIVFresh(t *testing.T) {
	a, err := custody.Wrap([]byte("k"), "pw")
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	b, err := custody.Wrap([]byte("k"), "pw")
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if bytes.Equal(a.Salt(), b.Salt()) || bytes.Equal(a.IV(), b.IV()) {
		t.Fatal("salt and iv must be drawn per wrap")
	}
}

func TestKeyPair_UnwrapRSA(t *testing.T) {
	pair, err := custody.NewKeyPair("pw-A")
	if err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}
	priv, err := custody.UnwrapRSA(pair.Wrapped, "pw-A")
	if err != nil {
		t.Fatalf("UnwrapRSA: %v", err)
	}
	pub, err := crypto.MarshalPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPublicKey: %v", err)
	}
	if !bytes.Equal(pub, pair.PublicKey) {
		t.Fatal("unwrapped private key does not match public key")
	}
}

func TestSigner_SignsWithWrappedKey(t *testing.T) {
	pair, err := custody.NewKeyPair("pw")
	if err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}
	s := custody.NewSigner(pair, "pw")
	sig, err := s.Sign([]byte("hello"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !crypto.Verify([]byte("hello"), sig, s.PublicKey()) {
		t.Fatal("signature does not verify")
	}

	locked := custody.NewSigner(pair, "wrong")
	if _, err := locked.Sign([]byte("hello")); !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("want ErrAuthentication, got %v", err)
	}
}

func TestWrappedKey_JSON(t *testing.T) {
	blob, err := custody.Wrap([]byte("k"), "pw")
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	b, err := json.Marshal(struct {
		Key custody.WrappedKey `json:"key"`
	}{blob})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out struct {
		Key custody.WrappedKey `json:"key"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !bytes.Equal(out.Key, blob) {
		t.Fatal("blob changed across json")
	}
}
