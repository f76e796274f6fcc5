// Package session drives one side of a pairchat session over a RelayClient.
//
// A Peer owns the single logical thread of control for its session: Run
// selects over relay events and the results of background jobs, feeds them
// to the handshake state machine and performs the effects it returns. Slow
// cryptography and relay round trips run in goroutines and report back as
// events, so an in-flight key wrap never starves delivery of unrelated
// events.
//
// Messages that arrive before the session key exists are held in a bounded
// backlog and opened in order once the session is established. Nothing is
// retried: every failure is terminal for the operation and surfaces either
// from Send, on Errors, or as the error returned by Run.
package session
