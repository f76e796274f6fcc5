package relay

import (
	"errors"
	"fmt"

	"pairchat/internal/domain"
)

// Frame types. The first three travel peer to relay and are acknowledged.
const (
	framePublishKey    = "publish-public-key"
	frameSubmitSecret  = "submit-encrypted-secret"
	frameSendMessage   = "send-message"
	framePeerKey       = string(domain.EventPeerPublicKey)
	frameBothPresent   = string(domain.EventBothPresent)
	frameDeliverSecret = string(domain.EventEncryptedSecret)
	frameReceive       = string(domain.EventMessage)
	frameAck           = "ack"
)

// frame is the JSON unit exchanged over a relay websocket.
type frame struct {
	Type      string                  `json:"type"`
	ID        string                  `json:"id,omitempty"`
	Ref       string                  `json:"ref,omitempty"`
	Error     string                  `json:"error,omitempty"`
	Detail    string                  `json:"detail,omitempty"`
	From      domain.Slot             `json:"from,omitempty"`
	PublicKey []byte                  `json:"public_key,omitempty"`
	Present   bool                    `json:"present,omitempty"`
	Secret    *domain.SecretEnvelope  `json:"secret,omitempty"`
	Message   *domain.MessageEnvelope `json:"message,omitempty"`
}

func eventFrame(ev domain.RelayEvent) frame {
	return frame{
		Type:      string(ev.Type),
		From:      ev.From,
		PublicKey: ev.PublicKey,
		Present:   ev.Present,
		Secret:    ev.Secret,
		Message:   ev.Message,
	}
}

// event converts a relay-to-peer frame back into a domain event.
func (f frame) event() (domain.RelayEvent, bool) {
	ev := domain.RelayEvent{
		Type:      domain.EventType(f.Type),
		From:      f.From,
		PublicKey: f.PublicKey,
		Present:   f.Present,
		Secret:    f.Secret,
		Message:   f.Message,
	}
	switch f.Type {
	case framePeerKey:
		return ev, len(f.PublicKey) > 0
	case frameBothPresent:
		return ev, true
	case frameDeliverSecret:
		return ev, f.Secret != nil
	case frameReceive:
		return ev, f.Message != nil
	}
	return domain.RelayEvent{}, false
}

// Ack error codes.
const (
	CodePeerUnavailable   = "peer_unavailable"
	CodeSlotTaken         = "slot_taken"
	CodeRateLimited       = "rate_limited"
	CodeBadRequest        = "bad_request"
	CodeProtocolViolation = "protocol_violation"
	CodeInternal          = "internal"
)

// RelayError is a failure reported by the relay in an ack frame.
type RelayError struct {
	Code   string
	Detail string
}

func (e *RelayError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("relay: %s", e.Code)
	}
	return fmt.Sprintf("relay: %s: %s", e.Code, e.Detail)
}

// Is maps relay codes onto the domain sentinels so errors.Is works across
// the wire.
func (e *RelayError) Is(target error) bool {
	switch e.Code {
	case CodePeerUnavailable:
		return target == domain.ErrPeerUnavailable
	case CodeSlotTaken:
		return target == domain.ErrSlotTaken
	case CodeRateLimited:
		return target == domain.ErrRateLimited
	case CodeProtocolViolation, CodeBadRequest:
		return target == domain.ErrProtocolViolation
	}
	return false
}

var errBadRequest = errors.New("bad request")

// codeFor classifies err for an ack frame.
func codeFor(err error) string {
	switch {
	case errors.Is(err, errBadRequest):
		return CodeBadRequest
	case errors.Is(err, domain.ErrPeerUnavailable):
		return CodePeerUnavailable
	case errors.Is(err, domain.ErrSlotTaken):
		return CodeSlotTaken
	case errors.Is(err, domain.ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, domain.ErrProtocolViolation):
		return CodeProtocolViolation
	}
	return CodeInternal
}
