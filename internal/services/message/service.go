package message

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"pairchat/internal/domain"
	"pairchat/internal/protocol/envelope"
	"pairchat/internal/util/memzero"
)

// Policy decides what happens to a message whose signature does not verify.
type Policy int

const (
	// PolicyWarn delivers the message with Verified=false and logs a warning.
	PolicyWarn Policy = iota
	// PolicyStrict rejects it with domain.ErrSignatureInvalid.
	PolicyStrict
)

func (p Policy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "warn"
}

// Service encrypts, signs and relays messages for one session. It is safe
// for concurrent use.
type Service struct {
	relay  domain.RelayClient
	mu     sync.RWMutex
	key    []byte
	sender string
	signer envelope.Signer
	policy Policy
	log    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSigner signs every outgoing message.
func WithSigner(s envelope.Signer) Option {
	return func(svc *Service) {
		if s != nil {
			svc.signer = s
		}
	}
}

// WithPolicy selects the signature policy.
func WithPolicy(p Policy) Option { return func(svc *Service) { svc.policy = p } }

// WithLogger sets the logger used for signature warnings.
func WithLogger(l zerolog.Logger) Option { return func(svc *Service) { svc.log = l } }

// New returns a Service over key. An empty key is refused with
// domain.ErrNotEstablished.
func New(relay domain.RelayClient, key []byte, sender string, opts ...Option) (*Service, error) {
	if len(key) == 0 {
		return nil, domain.ErrNotEstablished
	}
	s := &Service{
		relay:  relay,
		key:    bytes.Clone(key),
		sender: sender,
		log:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Send composes plaintext into an envelope and relays it. It returns the
// envelope that was sent.
func (s *Service) Send(ctx context.Context, plaintext []byte) (domain.MessageEnvelope, error) {
	s.mu.RLock()
	env, err := envelope.Compose(plaintext, s.key, s.sender, s.signer)
	s.mu.RUnlock()
	if err != nil {
		return domain.MessageEnvelope{}, err
	}
	if err := s.relay.SendMessage(ctx, env); err != nil {
		return domain.MessageEnvelope{}, fmt.Errorf("send message: %w", err)
	}
	return env, nil
}

// Open decrypts env and applies the signature policy.
func (s *Service) Open(env domain.MessageEnvelope) (domain.ReceivedMessage, error) {
	s.mu.RLock()
	msg, err := envelope.Open(env, s.key)
	s.mu.RUnlock()
	if err != nil {
		return domain.ReceivedMessage{}, err
	}
	if msg.Signed && !msg.Verified {
		if s.policy == PolicyStrict {
			memzero.Zero(msg.Plaintext)
			return domain.ReceivedMessage{}, fmt.Errorf("%w: message %s", domain.ErrSignatureInvalid, env.ID)
		}
		s.log.Warn().
			Str("message", env.ID.String()).
			Str("sender", env.Sender).
			Msg("signature did not verify; delivering unverified")
	}
	return msg, nil
}

// Close wipes the session key. Later sends fail with domain.ErrNotEstablished.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	memzero.Zero(s.key)
	s.key = nil
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
