// Package main runs the pairchat relay: an untrusted coordinator that pairs
// two participants per session and forwards their ciphertext.
//
// HTTP API
//
//	GET /sessions/{session}/{slot}
//	    Upgrade to a websocket occupying slot A or B of {session}. A slot
//	    already held returns 409 Conflict.
//
//	GET /healthz
//	    Liveness probe, returns 200 with a JSON body.
//
//	GET /metrics
//	    Prometheus metrics: connections, frames by ack code, pushed events,
//	    dropped peers and live sessions.
//
// Websocket frames are JSON. Client frames (publish-public-key,
// submit-encrypted-secret, send-message) carry an id and are answered
// with an ack frame whose ref echoes it and whose error, if set, is a
// short code such as peer_unavailable or rate_limited. Relay events
// (peer-public-key, both-peers-present, deliver-encrypted-secret,
// receive-message) are pushed unsolicited.
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - Nothing is buffered for an absent participant; sends fail instead.
//   - Each connection is rate limited; a reader that falls behind its
//     outbound queue is disconnected.
//   - Logs never include key or message bytes.
//
// The relay never sees plaintext, private keys or session keys.
package main
