// Package handshake implements session establishment between the two slots
// of a relay session as a pure, event-driven state machine.
//
// # Overview
//
// A Machine never performs I/O. The driver feeds it typed events (relay
// pushes, results of earlier work) through Handle and executes the effects it
// returns: publishing the public key, sending the encrypted secret, or
// running a Run job. Jobs do the slow cryptography (key generation, OAEP,
// unwrapping, PBKDF2) and return the event to feed back, so the driver can
// run them off its event loop.
//
// # Flows
//
// Both slots:
//  1. Start: generate an RSA keypair, wrap the private key with the password.
//  2. KeysReady: publish the public key tagged with our slot.
//  3. PeerKey: accept the partner's public key, in either order relative to
//     our own publication.
//
// Initiator (slot A):
//  4. Create a random secret and salt, OAEP-encrypt the secret under the
//     peer key and derive the session key locally.
//  5. Send {encryptedSecret, salt}; once sent the session is established.
//
// Responder (slot B):
//  4. On the secret envelope (buffered if it beats the peer key), unwrap the
//     private key, decrypt the secret and derive the same session key.
//
// # Errors
//
// Any failure, malformed payload or out-of-order event moves the machine to
// StateAborted and yields an Aborted effect whose error wraps
// domain.ErrSessionAborted and the cause. Events fed to an aborted machine
// are rejected with that same error.
//
// # Security notes
//
// There is no key-confirmation step. Each side assumes the other derived the
// same key; a mismatch only shows up as a failed decrypt of the first
// message. The relay-level both-peers-present signal is recorded but never
// by itself establishes a session.
package handshake
