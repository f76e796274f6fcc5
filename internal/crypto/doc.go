// Package crypto exposes the stateless primitives used by pairchat.
//
// Contents
//
//   - Password-based key derivation, PBKDF2-HMAC-SHA256 (DeriveKey, NewSalt)
//   - Authenticated encryption, ChaCha20-Poly1305 with a fresh random
//     96-bit IV per call (Seal, Open)
//   - RSA-2048 keypairs with OAEP-SHA256 encryption and PSS-SHA256
//     signatures (GenerateKeyPair, EncryptOAEP, DecryptOAEP, Sign, Verify)
//   - DER encoding helpers for public and private keys
//   - Short public-key fingerprints for display (Fingerprint)
//
// # Notes
//
// Decryption failures of either kind surface as domain.ErrAuthentication and
// never return partial plaintext. Verify is total: malformed keys or
// signatures yield false rather than an error.
//
// The random source defaults to crypto/rand.Reader and can be swapped in
// tests with SetRandReaderForTesting.
package crypto
