// Package custody protects private keys at rest with a password.
//
// A wrapped key is a self-describing blob with a fixed layout:
//
//	salt (16 bytes) || iv (12 bytes) || ciphertext
//
// The wrapping key is DeriveKey(password, salt) and the ciphertext is the
// AEAD seal of the PKCS#8 DER private key. Persisting the blob is the
// caller's job; this package only produces and consumes it.
//
// # Notes
//
// Unwrap fails closed: a wrong password, a truncated blob and a flipped byte
// all return domain.ErrAuthentication after running the same derivation, so
// callers cannot tell them apart. Plaintext DER lives only for the duration
// of a Wrap, Unwrap or Sign call and is wiped afterwards (best effort).
package custody
