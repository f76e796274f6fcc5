package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"pairchat/internal/crypto"
	"pairchat/internal/custody"
	"pairchat/internal/domain"
	"pairchat/internal/protocol/handshake"
	"pairchat/internal/services/message"
)

// DefaultBacklog caps messages held before the session is established.
const DefaultBacklog = 64

// ErrBacklogFull is reported when an early message does not fit the backlog.
var ErrBacklogFull = errors.New("pre-session message backlog full")

// Config sets up one side of a session.
type Config struct {
	Slot     domain.Slot
	Password string
	Unlock   func() (string, error) // nil reuses Password
	Secret   []byte                 // initiator only
	Salt     []byte                 // initiator only
	Sign     bool
	Policy   message.Policy
	Label    string // sender label; defaults to the slot name
	Backlog  int
	Logger   zerolog.Logger
}

// Peer runs the handshake and then messaging for one slot.
type Peer struct {
	cfg     Config
	relay   domain.RelayClient
	machine *handshake.Machine
	log     zerolog.Logger

	jobs     chan handshake.Event
	messages chan domain.ReceivedMessage
	errs     chan error
	ready    chan struct{}
	done     chan struct{}

	backlog []domain.MessageEnvelope

	mu    sync.Mutex
	state handshake.State
	svc   *message.Service
	keyFP domain.Fingerprint
	err   error
}

// New validates cfg and returns a Peer bound to relay. Call Run to start.
func New(relay domain.RelayClient, cfg Config) (*Peer, error) {
	m, err := handshake.New(handshake.Config{
		Slot:     cfg.Slot,
		Password: cfg.Password,
		Unlock:   cfg.Unlock,
		Secret:   cfg.Secret,
		Salt:     cfg.Salt,
		Signing:  cfg.Sign,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Label == "" {
		cfg.Label = cfg.Slot.String()
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = DefaultBacklog
	}
	p := &Peer{
		cfg:      cfg,
		relay:    relay,
		machine:  m,
		log:      cfg.Logger.With().Str("slot", cfg.Slot.String()).Logger(),
		jobs:     make(chan handshake.Event),
		messages: make(chan domain.ReceivedMessage, cfg.Backlog),
		errs:     make(chan error, 16),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	m.Observe(func(from, to handshake.State) {
		p.mu.Lock()
		p.state = to
		p.mu.Unlock()
		p.log.Debug().Str("from", from.String()).Str("to", to.String()).Msg("handshake transition")
	})
	return p, nil
}

// Run drives the session until ctx is done, the handshake aborts or the
// relay connection closes. Messages and Errors are closed when it returns.
func (p *Peer) Run(ctx context.Context) error {
	defer close(p.done)
	defer close(p.messages)
	defer close(p.errs)
	defer p.teardown()

	p.apply(ctx, handshake.Start{})
	events := p.relay.Events()
	for {
		if err := p.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-p.jobs:
			p.apply(ctx, ev)
		case rev, ok := <-events:
			if !ok {
				p.apply(ctx, handshake.PeerGone{Err: domain.ErrRelayClosed})
				return p.Err()
			}
			p.onRelayEvent(ctx, rev)
		}
	}
}

// Send encrypts and relays plaintext. It fails with domain.ErrNotEstablished
// before the session key exists and with the abort error afterwards.
func (p *Peer) Send(ctx context.Context, plaintext []byte) (domain.MessageEnvelope, error) {
	p.mu.Lock()
	svc, err := p.svc, p.err
	p.mu.Unlock()
	if err != nil {
		return domain.MessageEnvelope{}, err
	}
	if svc == nil {
		return domain.MessageEnvelope{}, domain.ErrNotEstablished
	}
	return svc.Send(ctx, plaintext)
}

// Messages delivers decrypted messages in relay order.
func (p *Peer) Messages() <-chan domain.ReceivedMessage { return p.messages }

// Errors reports non-fatal failures such as undecryptable envelopes.
func (p *Peer) Errors() <-chan error { return p.errs }

// Ready is closed once the session is established.
func (p *Peer) Ready() <-chan struct{} { return p.ready }

// Done is closed when Run returns.
func (p *Peer) Done() <-chan struct{} { return p.done }

// State returns the current handshake phase.
func (p *Peer) State() handshake.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the abort error, or nil.
func (p *Peer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// KeyFingerprint returns a fingerprint of the session key for out-of-band
// comparison, empty until established. Matching fingerprints are the only
// confirmation that both sides derived the same key.
func (p *Peer) KeyFingerprint() domain.Fingerprint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keyFP
}

// Transport returns the wrapped transport keypair once generated. Only call
// it after Ready is closed or Run has returned.
func (p *Peer) Transport() custody.KeyPair { return p.machine.Transport() }

// Signer returns the per-session signer, or nil. Only call it after Ready is
// closed or Run has returned.
func (p *Peer) Signer() *custody.Signer { return p.machine.Signer() }

func (p *Peer) onRelayEvent(ctx context.Context, ev domain.RelayEvent) {
	switch ev.Type {
	case domain.EventPeerPublicKey:
		p.apply(ctx, handshake.PeerKey{PublicKey: ev.PublicKey})
	case domain.EventBothPresent:
		p.apply(ctx, handshake.BothPresent{})
	case domain.EventEncryptedSecret:
		if ev.Secret == nil {
			p.apply(ctx, handshake.Failed{Err: fmt.Errorf("%w: empty secret event", domain.ErrProtocolViolation)})
			return
		}
		p.apply(ctx, handshake.SecretReceived{Envelope: *ev.Secret})
	case domain.EventMessage:
		if ev.Message == nil {
			p.report(fmt.Errorf("%w: empty message event", domain.ErrProtocolViolation))
			return
		}
		p.onMessage(ctx, *ev.Message)
	default:
		p.log.Warn().Str("event", string(ev.Type)).Msg("ignoring unknown relay event")
	}
}

func (p *Peer) onMessage(ctx context.Context, env domain.MessageEnvelope) {
	p.mu.Lock()
	svc := p.svc
	p.mu.Unlock()
	if svc != nil {
		p.deliver(ctx, svc, env)
		return
	}
	if len(p.backlog) >= p.cfg.Backlog {
		p.report(fmt.Errorf("%w: dropped message %s", ErrBacklogFull, env.ID))
		return
	}
	p.backlog = append(p.backlog, env)
}

func (p *Peer) deliver(ctx context.Context, svc *message.Service, env domain.MessageEnvelope) {
	msg, err := svc.Open(env)
	if err != nil {
		p.log.Warn().Err(err).Str("message", env.ID.String()).Msg("dropping envelope")
		p.report(err)
		return
	}
	select {
	case p.messages <- msg:
	case <-ctx.Done():
	}
}

func (p *Peer) apply(ctx context.Context, ev handshake.Event) {
	effects, err := p.machine.Handle(ev)
	if err != nil {
		p.log.Debug().Err(err).Msgf("event %T after abort", ev)
		return
	}
	for _, e := range effects {
		p.perform(ctx, e)
	}
}

func (p *Peer) perform(ctx context.Context, e handshake.Effect) {
	switch e := e.(type) {
	case handshake.Run:
		p.background(e.Job)
	case handshake.Publish:
		pub := e.PublicKey
		p.background(func() handshake.Event {
			if err := p.relay.PublishPublicKey(ctx, pub); err != nil {
				return handshake.Failed{Err: fmt.Errorf("publish public key: %w", err)}
			}
			return handshake.Published{}
		})
	case handshake.SendSecret:
		env := e.Envelope
		p.background(func() handshake.Event {
			if err := p.relay.SubmitEncryptedSecret(ctx, env); err != nil {
				return handshake.Failed{Err: fmt.Errorf("send encrypted secret: %w", err)}
			}
			return handshake.SecretSent{}
		})
	case handshake.Established:
		p.establish(ctx, e.Key)
	case handshake.Aborted:
		p.abort(e.Err)
	}
}

// background runs job off the loop and feeds its event back unless Run has
// already returned.
func (p *Peer) background(job func() handshake.Event) {
	go func() {
		ev := job()
		select {
		case p.jobs <- ev:
		case <-p.done:
		}
	}()
}

func (p *Peer) establish(ctx context.Context, key []byte) {
	opts := []message.Option{message.WithPolicy(p.cfg.Policy), message.WithLogger(p.log)}
	if s := p.machine.Signer(); s != nil {
		opts = append(opts, message.WithSigner(s))
	}
	svc, err := message.New(p.relay, key, p.cfg.Label, opts...)
	if err != nil {
		p.apply(ctx, handshake.Failed{Err: err})
		return
	}

	p.mu.Lock()
	p.svc = svc
	p.keyFP = crypto.Fingerprint(key)
	p.mu.Unlock()
	close(p.ready)
	p.log.Info().Str("key_fingerprint", p.keyFP.String()).Msg("session established")

	backlog := p.backlog
	p.backlog = nil
	for _, env := range backlog {
		p.deliver(ctx, svc, env)
	}
}

func (p *Peer) abort(err error) {
	p.mu.Lock()
	p.err = err
	svc := p.svc
	p.svc = nil
	p.mu.Unlock()
	if svc != nil {
		svc.Close()
	}
	for _, env := range p.backlog {
		p.report(fmt.Errorf("%w: undelivered message %s", domain.ErrSessionAborted, env.ID))
	}
	p.backlog = nil
	p.log.Warn().Err(err).Msg("session aborted")
}

func (p *Peer) teardown() {
	p.mu.Lock()
	svc := p.svc
	p.svc = nil
	if p.err == nil {
		p.err = fmt.Errorf("%w: peer stopped", domain.ErrSessionAborted)
	}
	p.mu.Unlock()
	if svc != nil {
		svc.Close()
	}
	p.machine.Wipe()
}

func (p *Peer) report(err error) {
	select {
	case p.errs <- err:
	default:
		p.log.Warn().Err(err).Msg("error channel full")
	}
}
