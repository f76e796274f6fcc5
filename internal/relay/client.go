package relay

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"pairchat/internal/domain"
)

// Client is a websocket connection to one slot of a relay session.
type Client struct {
	conn   *websocket.Conn
	log    zerolog.Logger
	events chan domain.RelayEvent
	done   chan struct{}
	cancel context.CancelFunc

	mu        sync.Mutex
	pending   map[string]chan error
	closeOnce sync.Once
}

// ClientOption configures Dial.
type ClientOption func(*clientOptions)

type clientOptions struct {
	log    zerolog.Logger
	http   *http.Client
	buffer int
}

// WithClientLogger sets the client logger.
func WithClientLogger(l zerolog.Logger) ClientOption {
	return func(o *clientOptions) { o.log = l }
}

// WithHTTPClient sets the HTTP client used for the upgrade request.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) { o.http = c }
}

// WithEventBuffer sets the capacity of the Events channel.
func WithEventBuffer(n int) ClientOption {
	return func(o *clientOptions) { o.buffer = n }
}

// Dial connects to slot of session id on the relay at baseURL
// (http, https, ws or wss).
func Dial(ctx context.Context, baseURL string, id domain.SessionID, slot domain.Slot, opts ...ClientOption) (*Client, error) {
	if !slot.Valid() {
		return nil, fmt.Errorf("dial relay: invalid slot %q", slot)
	}
	if id == "" {
		return nil, fmt.Errorf("dial relay: empty session id")
	}
	o := clientOptions{log: zerolog.Nop(), buffer: DefaultQueueSize}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	u = u.JoinPath("sessions", string(id), slot.String())

	conn, resp, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{HTTPClient: o.http})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusConflict {
			return nil, fmt.Errorf("%w: session %s slot %s", domain.ErrSlotTaken, id, slot)
		}
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	conn.SetReadLimit(maxFrameBytes)

	rctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:    conn,
		log:     o.log.With().Str("session", string(id)).Str("slot", slot.String()).Logger(),
		events:  make(chan domain.RelayEvent, o.buffer),
		done:    make(chan struct{}),
		cancel:  cancel,
		pending: make(map[string]chan error),
	}
	go c.readLoop(rctx)
	return c, nil
}

var _ domain.RelayClient = (*Client)(nil)

// PublishPublicKey sends our public key and waits for the relay's ack.
func (c *Client) PublishPublicKey(ctx context.Context, publicKey []byte) error {
	return c.send(ctx, frame{Type: framePublishKey, PublicKey: publicKey})
}

// SubmitEncryptedSecret sends env for the partner and waits for the ack.
func (c *Client) SubmitEncryptedSecret(ctx context.Context, env domain.SecretEnvelope) error {
	return c.send(ctx, frame{Type: frameSubmitSecret, Secret: &env})
}

// SendMessage relays env to the partner and waits for the ack.
func (c *Client) SendMessage(ctx context.Context, env domain.MessageEnvelope) error {
	return c.send(ctx, frame{Type: frameSendMessage, Message: &env})
}

// Events returns relay pushes in arrival order. It is closed when the
// connection ends.
func (c *Client) Events() <-chan domain.RelayEvent { return c.events }

// Close ends the connection. It is safe to call more than once.
func (c *Client) Close() error {
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
	c.cancel()
	c.shutdown()
	return nil
}

func (c *Client) send(ctx context.Context, f frame) error {
	select {
	case <-c.done:
		return domain.ErrRelayClosed
	default:
	}

	f.ID = uuid.NewString()
	ack := make(chan error, 1)
	c.mu.Lock()
	c.pending[f.ID] = ack
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, f.ID)
		c.mu.Unlock()
	}()

	if err := wsjson.Write(ctx, c.conn, f); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRelayClosed, err)
	}
	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return domain.ErrRelayClosed
	}
}

func (c *Client) readLoop(ctx context.Context) {
	defer close(c.events)
	defer c.shutdown()
	for {
		var f frame
		if err := wsjson.Read(ctx, c.conn, &f); err != nil {
			c.log.Debug().Err(err).Msg("relay read ended")
			return
		}
		if f.Type == frameAck {
			c.resolve(f)
			continue
		}
		ev, ok := f.event()
		if !ok {
			c.log.Warn().Str("frame", f.Type).Msg("ignoring malformed relay frame")
			continue
		}
		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

func (c *Client) resolve(f frame) {
	c.mu.Lock()
	ack, ok := c.pending[f.Ref]
	delete(c.pending, f.Ref)
	c.mu.Unlock()
	if !ok {
		return
	}
	if f.Error == "" {
		ack <- nil
		return
	}
	ack <- &RelayError{Code: f.Error, Detail: f.Detail}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}
