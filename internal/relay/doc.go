// Package relay implements the relay coordinator that pairs exactly two
// peers per session, and the websocket transport both sides use to reach it.
//
// The coordinator is a dumb pipe. It stores each slot's public key until
// both are present, cross-delivers them once, forwards one encrypted-secret
// envelope and then relays message envelopes verbatim. It never inspects or
// validates cryptographic content and holds no keys beyond the rendezvous.
//
// Components:
//   - Coordinator: per-session state and its serialised operations.
//   - Hub: session IDs to coordinators; Join hands out a Membership.
//   - Server: websocket endpoint GET /sessions/{session}/{slot}, /healthz
//     and Prometheus /metrics.
//   - Client: websocket implementation of domain.RelayClient.
//   - LocalClient: in-process domain.RelayClient bound directly to a Hub.
//
// # Wire format
//
// One JSON frame per websocket message. Peer-to-relay frames
// (publish-public-key, submit-encrypted-secret, send-message) carry an id
// and are answered with an ack frame whose ref is that id and whose error
// holds a code (peer_unavailable, slot_taken, rate_limited, bad_request,
// protocol_violation, internal) on failure. Relay-to-peer frames
// (peer-public-key, both-peers-present, deliver-encrypted-secret,
// receive-message) are unacknowledged.
//
// Messages sent while the partner slot is empty fail with
// domain.ErrPeerUnavailable; nothing is buffered for later delivery.
package relay
