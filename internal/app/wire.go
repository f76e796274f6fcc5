package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"pairchat/internal/custody"
	"pairchat/internal/domain"
	"pairchat/internal/relay"
	"pairchat/internal/services/identity"
	sessionsvc "pairchat/internal/services/session"
	"pairchat/internal/store"
)

// Wire bundles the services and stores the commands use.
type Wire struct {
	Config   Config
	Log      zerolog.Logger
	Identity *identity.Service
	Keys     *store.FileStore
}

// NewWire validates cfg and constructs the dependency graph.
func NewWire(cfg Config, log zerolog.Logger) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Wire{
		Config:   cfg,
		Log:      log,
		Identity: identity.New(cfg.MinEntropy),
		Keys:     store.NewFileStore(cfg.Home),
	}, nil
}

// DialRelay connects slot of session id to the configured relay.
func (w *Wire) DialRelay(ctx context.Context, id domain.SessionID, slot domain.Slot) (domain.RelayClient, error) {
	return relay.Dial(ctx, w.Config.RelayURL, id, slot,
		relay.WithClientLogger(w.Log.With().Str("session", id.String()).Logger()))
}

// NewPeer checks the password against the policy and builds a session peer
// on rc.
func (w *Wire) NewPeer(rc domain.RelayClient, cfg sessionsvc.Config) (*sessionsvc.Peer, error) {
	if err := w.Identity.CheckPassword(cfg.Password); err != nil {
		return nil, err
	}
	cfg.Logger = w.Log
	return sessionsvc.New(rc, cfg)
}

// SaveSessionKeys stores the peer's wrapped keys at path, or in the key
// store under the session slot name when path is empty.
func (w *Wire) SaveSessionKeys(p *sessionsvc.Peer, id domain.SessionID, slot domain.Slot, path string) (string, error) {
	var signing *custody.KeyPair
	if s := p.Signer(); s != nil {
		pair := s.KeyPair()
		signing = &pair
	}
	rec := store.NewKeyRecord(id, slot, p.Transport(), signing)
	if path != "" {
		if err := store.WriteRecord(path, rec); err != nil {
			return "", fmt.Errorf("export keys: %w", err)
		}
		return path, nil
	}
	name := store.RecordName(id, slot)
	if err := w.Keys.Save(name, rec); err != nil {
		return "", fmt.Errorf("save keys: %w", err)
	}
	return name, nil
}

// NewRelayServer builds the relay HTTP handler from the configured limits.
func (w *Wire) NewRelayServer() *relay.Server {
	return relay.NewServer(relay.NewHub(w.Log),
		relay.WithLogger(w.Log),
		relay.WithRateLimit(w.Config.RateLimit, w.Config.RateBurst))
}
