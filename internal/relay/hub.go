package relay

import (
	"sync"

	"github.com/rs/zerolog"

	"pairchat/internal/domain"
)

// Hub maps session IDs to coordinators. Sessions are created on first Join
// and dropped when their last member leaves.
type Hub struct {
	log zerolog.Logger

	mu       sync.Mutex
	sessions map[domain.SessionID]*hubEntry
}

type hubEntry struct {
	c       *Coordinator
	members int
}

// NewHub returns an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{log: log, sessions: make(map[domain.SessionID]*hubEntry)}
}

// Join subscribes h to slot of session id.
func (h *Hub) Join(id domain.SessionID, slot domain.Slot, handler Handler) (*Membership, error) {
	h.mu.Lock()
	e, ok := h.sessions[id]
	if !ok {
		e = &hubEntry{c: NewCoordinator(id, h.log)}
		h.sessions[id] = e
	}
	e.members++
	h.mu.Unlock()

	if err := e.c.Subscribe(slot, handler); err != nil {
		h.release(id, e)
		return nil, err
	}
	return &Membership{hub: h, entry: e, id: id, slot: slot}, nil
}

// Coordinator returns the live coordinator for id, if any.
func (h *Hub) Coordinator(id domain.SessionID) (*Coordinator, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.sessions[id]
	if !ok {
		return nil, false
	}
	return e.c, true
}

// Sessions returns the number of live sessions.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Hub) release(id domain.SessionID, e *hubEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e.members--
	if e.members == 0 && h.sessions[id] == e {
		delete(h.sessions, id)
	}
}

// Membership is one slot's handle on a session. Its methods act on behalf of
// that slot only.
type Membership struct {
	hub   *Hub
	entry *hubEntry
	id    domain.SessionID
	slot  domain.Slot
	once  sync.Once
}

// Slot returns the slot this membership holds.
func (m *Membership) Slot() domain.Slot { return m.slot }

// Session returns the session identifier.
func (m *Membership) Session() domain.SessionID { return m.id }

// PublishPublicKey submits our public key.
func (m *Membership) PublishPublicKey(pub []byte) error {
	return m.entry.c.SubmitPublicKey(m.slot, pub)
}

// SubmitEncryptedSecret forwards env to the partner.
func (m *Membership) SubmitEncryptedSecret(env domain.SecretEnvelope) error {
	return m.entry.c.SubmitEncryptedSecret(m.slot, env)
}

// SendMessage relays env to the partner.
func (m *Membership) SendMessage(env domain.MessageEnvelope) error {
	return m.entry.c.RelayMessage(m.slot, env)
}

// Leave disconnects the slot. It is safe to call more than once.
func (m *Membership) Leave() {
	m.once.Do(func() {
		m.entry.c.Disconnect(m.slot)
		m.hub.release(m.id, m.entry)
	})
}
