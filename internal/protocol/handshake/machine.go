package handshake

import (
	"bytes"
	"errors"
	"fmt"

	"pairchat/internal/crypto"
	"pairchat/internal/custody"
	"pairchat/internal/domain"
	"pairchat/internal/util/memzero"
)

// DefaultSecretSize is the length of a generated session secret.
const DefaultSecretSize = 32

// Config is the caller-supplied setup for one side of a session.
type Config struct {
	Slot     domain.Slot
	Password string // wraps the private keys

	// Unlock supplies the password used to unwrap the transport key when the
	// encrypted secret arrives. Nil reuses Password.
	Unlock func() (string, error)

	// Secret and Salt fix the initiator's session secret and derivation salt.
	// Both are random when empty. The responder must leave them unset.
	Secret []byte
	Salt   []byte

	// Signing generates a per-session signing keypair alongside the
	// transport keypair.
	Signing bool
}

// Machine is one side of the handshake. It is not safe for concurrent use;
// the driver serialises calls to Handle.
type Machine struct {
	cfg     Config
	state   State
	started bool
	busy    bool // a secret job is in flight
	present bool

	transport custody.KeyPair
	signer    *custody.Signer
	peerKey   []byte
	pending   *domain.SecretEnvelope
	key       []byte
	err       error

	observe func(from, to State)
}

// New validates cfg and returns a Machine in StateIdle.
func New(cfg Config) (*Machine, error) {
	if !cfg.Slot.Valid() {
		return nil, fmt.Errorf("handshake: invalid slot %q", cfg.Slot)
	}
	if cfg.Password == "" {
		return nil, errors.New("handshake: password required")
	}
	if !cfg.Slot.Initiator() && (len(cfg.Secret) > 0 || len(cfg.Salt) > 0) {
		return nil, errors.New("handshake: only the initiator chooses the secret and salt")
	}
	if len(cfg.Secret) > crypto.MaxOAEPPlaintext {
		return nil, fmt.Errorf("handshake: secret longer than %d bytes", crypto.MaxOAEPPlaintext)
	}
	if cfg.Salt != nil && len(cfg.Salt) != crypto.SaltSize {
		return nil, fmt.Errorf("handshake: salt must be %d bytes", crypto.SaltSize)
	}
	cfg.Secret = bytes.Clone(cfg.Secret)
	cfg.Salt = bytes.Clone(cfg.Salt)
	if cfg.Unlock == nil {
		password := cfg.Password
		cfg.Unlock = func() (string, error) { return password, nil }
	}
	return &Machine{cfg: cfg}, nil
}

// Observe registers fn to be called on every state change.
func (m *Machine) Observe(fn func(from, to State)) { m.observe = fn }

// State returns the current phase.
func (m *Machine) State() State { return m.state }

// Slot returns the configured role.
func (m *Machine) Slot() domain.Slot { return m.cfg.Slot }

// Err returns the abort error, or nil.
func (m *Machine) Err() error { return m.err }

// BothPresent reports whether the relay signalled rendezvous.
func (m *Machine) BothPresent() bool { return m.present }

// PublicKey returns our transport public key once generated.
func (m *Machine) PublicKey() []byte { return m.transport.PublicKey }

// Transport returns our wrapped transport keypair once generated.
func (m *Machine) Transport() custody.KeyPair { return m.transport }

// Signer returns the per-session signer, or nil when signing is disabled.
func (m *Machine) Signer() *custody.Signer { return m.signer }

// Key returns a copy of the session key once established, else nil.
func (m *Machine) Key() []byte {
	if m.state != StateSessionEstablished {
		return nil
	}
	return bytes.Clone(m.key)
}

// Wipe zeroes the session key held by the machine.
func (m *Machine) Wipe() {
	memzero.Zero(m.key)
	m.key = nil
}

// Handle applies ev and returns the effects to perform. The error is non-nil
// only when the machine has already aborted.
func (m *Machine) Handle(ev Event) ([]Effect, error) {
	if m.state == StateAborted {
		return nil, m.err
	}
	switch ev := ev.(type) {
	case Start:
		return m.onStart(), nil
	case KeysReady:
		return m.onKeysReady(ev), nil
	case Published:
		return m.onPublished(), nil
	case PeerKey:
		return m.onPeerKey(ev.PublicKey), nil
	case BothPresent:
		m.present = true
		return nil, nil
	case SecretCreated:
		return m.onSecretCreated(ev), nil
	case SecretSent:
		if !m.cfg.Slot.Initiator() || m.state != StateSecretExchanged {
			return m.violation("secret-sent in state %s", m.state), nil
		}
		return m.establish(), nil
	case SecretReceived:
		return m.onSecretReceived(ev.Envelope), nil
	case KeyDerived:
		return m.onKeyDerived(ev.Key), nil
	case Failed:
		return m.abort(ev.Err), nil
	case PeerGone:
		cause := domain.ErrPeerUnavailable
		if ev.Err != nil {
			return m.abort(fmt.Errorf("%w: %w", cause, ev.Err)), nil
		}
		return m.abort(cause), nil
	}
	return m.violation("unexpected event %T", ev), nil
}

func (m *Machine) onStart() []Effect {
	if m.started {
		return m.violation("start received twice")
	}
	m.started = true
	return []Effect{Run{Job: generateKeys(m.cfg.Password, m.cfg.Signing)}}
}

func (m *Machine) onKeysReady(ev KeysReady) []Effect {
	if m.state != StateIdle || !m.started {
		return m.violation("keys-ready in state %s", m.state)
	}
	if len(ev.Transport.PublicKey) == 0 || len(ev.Transport.Wrapped) == 0 {
		return m.abort(fmt.Errorf("%w: empty transport keypair", domain.ErrKeyGeneration))
	}
	m.transport = ev.Transport
	m.signer = ev.Signer
	m.moveTo(StateKeysGenerated)
	return []Effect{Publish{Slot: m.cfg.Slot, PublicKey: m.transport.PublicKey}}
}

func (m *Machine) onPublished() []Effect {
	if m.state != StateKeysGenerated {
		return m.violation("published in state %s", m.state)
	}
	m.moveTo(StatePublicKeyPublished)
	if m.peerKey != nil {
		return m.acceptPeerKey()
	}
	return nil
}

func (m *Machine) onPeerKey(pub []byte) []Effect {
	if m.state != StateKeysGenerated && m.state != StatePublicKeyPublished {
		return m.violation("peer key in state %s", m.state)
	}
	if m.peerKey != nil {
		return m.violation("peer key received twice")
	}
	if _, err := crypto.ParsePublicKey(pub); err != nil {
		return m.abort(fmt.Errorf("%w: peer public key: %w", domain.ErrProtocolViolation, err))
	}
	m.peerKey = bytes.Clone(pub)
	if m.state == StateKeysGenerated {
		// Our publication is still in flight; resume on Published.
		return nil
	}
	return m.acceptPeerKey()
}

func (m *Machine) acceptPeerKey() []Effect {
	m.moveTo(StatePeerKeyReceived)
	if m.cfg.Slot.Initiator() {
		secret, salt := m.cfg.Secret, m.cfg.Salt
		m.cfg.Secret = nil
		m.busy = true
		return []Effect{Run{Job: createSecret(m.peerKey, secret, salt)}}
	}
	if m.pending != nil {
		env := *m.pending
		m.pending = nil
		return m.recover(env)
	}
	return nil
}

func (m *Machine) onSecretCreated(ev SecretCreated) []Effect {
	if !m.cfg.Slot.Initiator() || m.state != StatePeerKeyReceived || !m.busy {
		return m.violation("secret-created in state %s", m.state)
	}
	m.busy = false
	m.key = ev.Key
	m.moveTo(StateSecretExchanged)
	return []Effect{SendSecret{Envelope: ev.Envelope}}
}

func (m *Machine) onSecretReceived(env domain.SecretEnvelope) []Effect {
	if m.cfg.Slot.Initiator() {
		return m.violation("initiator received an encrypted secret")
	}
	switch m.state {
	case StateKeysGenerated, StatePublicKeyPublished:
		if m.pending != nil {
			return m.violation("encrypted secret received twice")
		}
		m.pending = &domain.SecretEnvelope{
			EncryptedSecret: bytes.Clone(env.EncryptedSecret),
			Salt:            bytes.Clone(env.Salt),
		}
		return nil
	case StatePeerKeyReceived:
		if m.busy {
			return m.violation("encrypted secret received twice")
		}
		return m.recover(env)
	}
	return m.violation("encrypted secret in state %s", m.state)
}

func (m *Machine) recover(env domain.SecretEnvelope) []Effect {
	if len(env.EncryptedSecret) == 0 || len(env.Salt) != crypto.SaltSize {
		return m.abort(fmt.Errorf("%w: malformed secret envelope", domain.ErrTransportDecrypt))
	}
	m.busy = true
	return []Effect{Run{Job: recoverSecret(m.transport.Wrapped, m.cfg.Unlock, env)}}
}

func (m *Machine) onKeyDerived(key []byte) []Effect {
	if m.cfg.Slot.Initiator() || m.state != StatePeerKeyReceived || !m.busy {
		return m.violation("key-derived in state %s", m.state)
	}
	m.busy = false
	m.key = key
	m.moveTo(StateSecretExchanged)
	return m.establish()
}

func (m *Machine) establish() []Effect {
	m.moveTo(StateSessionEstablished)
	return []Effect{Established{Key: bytes.Clone(m.key)}}
}

func (m *Machine) violation(format string, args ...any) []Effect {
	return m.abort(fmt.Errorf("%w: %s", domain.ErrProtocolViolation, fmt.Sprintf(format, args...)))
}

func (m *Machine) abort(cause error) []Effect {
	if cause == nil {
		cause = errors.New("unspecified failure")
	}
	m.err = fmt.Errorf("%w: %w", domain.ErrSessionAborted, cause)
	m.Wipe()
	m.pending = nil
	m.busy = false
	m.moveTo(StateAborted)
	return []Effect{Aborted{Err: m.err}}
}

func (m *Machine) moveTo(s State) {
	from := m.state
	m.state = s
	if m.observe != nil && from != s {
		m.observe(from, s)
	}
}
