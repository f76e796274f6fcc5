// Package identity applies the local password policy and renders key
// fingerprints for display.
//
// Passwords are scored with go-password-validator; a minimum entropy of
// zero disables the check.
package identity
