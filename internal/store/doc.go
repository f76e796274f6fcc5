// Package store persists wrapped key material on disk.
//
// Records are JSON files holding public keys and password-wrapped private
// keys; plaintext private keys never reach the disk. Writes go through a
// temp file and rename so a crash leaves either the old or the new record.
package store
