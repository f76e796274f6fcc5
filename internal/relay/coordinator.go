package relay

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"pairchat/internal/domain"
)

// Handler receives relay events for one connected slot. It is called with
// the coordinator lock held and must not block or call back into the
// coordinator; implementations enqueue and return.
type Handler func(domain.RelayEvent)

// Phase is the coordinator's slot-fill state. PhaseBothSlotsFilled only
// exists inside SubmitPublicKey: the rendezvous clears both slots under the
// same lock, so Phase never reports it.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseOneSlotFilled
	PhaseBothSlotsFilled
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseOneSlotFilled:
		return "one-slot-filled"
	case PhaseBothSlotsFilled:
		return "both-slots-filled"
	}
	return "unknown"
}

// Coordinator owns the state of one session. All operations are serialised
// by a single mutex; distinct sessions share nothing.
type Coordinator struct {
	id  domain.SessionID
	log zerolog.Logger

	mu         sync.Mutex
	peers      [2]Handler
	keys       [2][]byte
	secretSent bool // one encrypted secret per rendezvous
	rounds     int
}

// NewCoordinator returns an empty coordinator for session id.
func NewCoordinator(id domain.SessionID, log zerolog.Logger) *Coordinator {
	return &Coordinator{id: id, log: log.With().Str("session", string(id)).Logger()}
}

// ID returns the session identifier.
func (c *Coordinator) ID() domain.SessionID { return c.id }

// Subscribe connects h to slot. A slot holds at most one handler.
func (c *Coordinator) Subscribe(slot domain.Slot, h Handler) error {
	if !slot.Valid() {
		return fmt.Errorf("%w: invalid slot %q", domain.ErrProtocolViolation, slot)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slot.Index()
	if c.peers[i] != nil {
		return fmt.Errorf("%w: slot %s", domain.ErrSlotTaken, slot)
	}
	c.peers[i] = h
	c.log.Debug().Str("slot", slot.String()).Msg("slot connected")
	return nil
}

// SubmitPublicKey stores pub in slot. When both slots hold a key, each key
// is delivered to the other slot, both slots are told both-peers-present,
// and the slots are cleared so the next rendezvous needs two fresh keys.
func (c *Coordinator) SubmitPublicKey(slot domain.Slot, pub []byte) error {
	if !slot.Valid() {
		return fmt.Errorf("%w: invalid slot %q", domain.ErrProtocolViolation, slot)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slot.Index()
	if c.peers[i] == nil {
		return fmt.Errorf("%w: slot %s is not connected", domain.ErrProtocolViolation, slot)
	}
	c.keys[i] = bytes.Clone(pub)
	if c.keys[0] == nil || c.keys[1] == nil {
		return nil
	}

	a, b := c.keys[0], c.keys[1]
	c.peers[1](domain.RelayEvent{Type: domain.EventPeerPublicKey, From: domain.SlotA, PublicKey: a})
	c.peers[0](domain.RelayEvent{Type: domain.EventPeerPublicKey, From: domain.SlotB, PublicKey: b})
	for _, h := range c.peers {
		h(domain.RelayEvent{Type: domain.EventBothPresent, Present: true})
	}
	c.keys = [2][]byte{}
	c.secretSent = false
	c.rounds++
	c.log.Info().Int("round", c.rounds).Msg("rendezvous")
	return nil
}

// SubmitEncryptedSecret forwards env verbatim to the other slot.
func (c *Coordinator) SubmitEncryptedSecret(from domain.Slot, env domain.SecretEnvelope) error {
	if !from.Valid() {
		return fmt.Errorf("%w: invalid slot %q", domain.ErrProtocolViolation, from)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.secretSent {
		return fmt.Errorf("%w: encrypted secret already forwarded this round", domain.ErrProtocolViolation)
	}
	h := c.peers[from.Other().Index()]
	if h == nil {
		return fmt.Errorf("%w: slot %s", domain.ErrPeerUnavailable, from.Other())
	}
	h(domain.RelayEvent{Type: domain.EventEncryptedSecret, From: from, Secret: &env})
	c.secretSent = true
	return nil
}

// RelayMessage forwards env to every connected slot other than from.
func (c *Coordinator) RelayMessage(from domain.Slot, env domain.MessageEnvelope) error {
	if !from.Valid() {
		return fmt.Errorf("%w: invalid slot %q", domain.ErrProtocolViolation, from)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delivered := 0
	for i, h := range c.peers {
		if i == from.Index() || h == nil {
			continue
		}
		h(domain.RelayEvent{Type: domain.EventMessage, From: from, Message: &env})
		delivered++
	}
	if delivered == 0 {
		return fmt.Errorf("%w: no recipient for message %s", domain.ErrPeerUnavailable, env.ID)
	}
	return nil
}

// Disconnect clears slot and any pending secret state. The remaining peer
// is not notified; its next send fails with domain.ErrPeerUnavailable.
func (c *Coordinator) Disconnect(slot domain.Slot) {
	if !slot.Valid() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slot.Index()
	c.peers[i] = nil
	c.keys[i] = nil
	c.secretSent = false
	c.log.Debug().Str("slot", slot.String()).Msg("slot disconnected")
}

// Phase reports how many key slots are filled.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.keys {
		if k != nil {
			n++
		}
	}
	return Phase(n)
}

// Rounds returns the number of completed rendezvous.
func (c *Coordinator) Rounds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rounds
}

// Connected returns the number of subscribed slots.
func (c *Coordinator) Connected() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, h := range c.peers {
		if h != nil {
			n++
		}
	}
	return n
}
