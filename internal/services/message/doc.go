// Package message sends and receives chat messages under an established
// session key.
//
// It composes envelopes with the session key (and optional per-session
// signer), posts them via the RelayClient, and opens incoming envelopes
// applying a signature policy. The service refuses to exist without a key,
// so messaging fails closed before establishment or after an abort.
package message
