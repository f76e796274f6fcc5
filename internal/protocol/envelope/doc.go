// Package envelope seals and opens chat message envelopes under a session
// key.
//
// Compose encrypts with a fresh IV per message and, given a Signer, signs
// the plaintext (not the ciphertext) and attaches the signing public key so
// the receiver can verify without a separate key exchange. Open decrypts
// first and rejects anything that fails authentication; a signature that
// does not verify is reported through ReceivedMessage.Verified and left to
// the caller's policy.
package envelope
