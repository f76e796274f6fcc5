package domain

import "errors"

var (
	// ErrKeyGeneration is returned when a keypair cannot be generated.
	// It is fatal to session start.
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrAuthentication is returned when an AEAD tag does not verify: a wrong
	// password, a corrupted wrapped key or a modified ciphertext.
	ErrAuthentication = errors.New("authentication failed: wrong password or corrupted data")

	// ErrTransportDecrypt marks a malformed or tampered secret or message
	// envelope. The envelope is dropped; the session is not torn down.
	ErrTransportDecrypt = errors.New("envelope could not be decrypted")

	// ErrSignatureInvalid is returned under the strict signature policy when a
	// message carries a signature that does not verify.
	ErrSignatureInvalid = errors.New("signature verification failed")

	// ErrPeerUnavailable is returned when the partner slot is empty or has
	// disconnected.
	ErrPeerUnavailable = errors.New("peer unavailable")

	// ErrSessionAborted wraps the cause of a terminal handshake failure.
	ErrSessionAborted = errors.New("session aborted")

	// ErrNotEstablished is returned when messaging is attempted without a
	// session key.
	ErrNotEstablished = errors.New("session not established")

	// ErrSlotTaken is returned when a slot already has a connected peer.
	ErrSlotTaken = errors.New("slot already taken")

	// ErrProtocolViolation is returned for out-of-order or malformed protocol
	// events.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrRateLimited is returned when the relay throttles a connection.
	ErrRateLimited = errors.New("rate limited by relay")

	// ErrRelayClosed is returned once the relay connection has gone away.
	ErrRelayClosed = errors.New("relay connection closed")
)
