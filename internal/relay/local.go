package relay

import (
	"context"
	"sync"

	"pairchat/internal/domain"
)

// LocalClient is an in-process domain.RelayClient joined directly to a Hub.
// Events are queued without bound so the coordinator never blocks on a slow
// reader.
type LocalClient struct {
	m      *Membership
	events chan domain.RelayEvent
	notify chan struct{}
	done   chan struct{}

	mu        sync.Mutex
	queue     []domain.RelayEvent
	closeOnce sync.Once
}

// NewLocalClient joins slot of session id on hub.
func NewLocalClient(hub *Hub, id domain.SessionID, slot domain.Slot) (*LocalClient, error) {
	c := &LocalClient{
		events: make(chan domain.RelayEvent),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	m, err := hub.Join(id, slot, c.enqueue)
	if err != nil {
		return nil, err
	}
	c.m = m
	go c.pump()
	return c, nil
}

var _ domain.RelayClient = (*LocalClient)(nil)

func (c *LocalClient) PublishPublicKey(ctx context.Context, publicKey []byte) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	return c.m.PublishPublicKey(publicKey)
}

func (c *LocalClient) SubmitEncryptedSecret(ctx context.Context, env domain.SecretEnvelope) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	return c.m.SubmitEncryptedSecret(env)
}

func (c *LocalClient) SendMessage(ctx context.Context, env domain.MessageEnvelope) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	return c.m.SendMessage(env)
}

func (c *LocalClient) Events() <-chan domain.RelayEvent { return c.events }

// Close leaves the session. It is safe to call more than once.
func (c *LocalClient) Close() error {
	c.closeOnce.Do(func() {
		c.m.Leave()
		close(c.done)
	})
	return nil
}

func (c *LocalClient) check(ctx context.Context) error {
	select {
	case <-c.done:
		return domain.ErrRelayClosed
	default:
	}
	return ctx.Err()
}

func (c *LocalClient) enqueue(ev domain.RelayEvent) {
	c.mu.Lock()
	c.queue = append(c.queue, ev)
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *LocalClient) pump() {
	defer close(c.events)
	for {
		select {
		case <-c.done:
			return
		case <-c.notify:
		}
		for {
			c.mu.Lock()
			if len(c.queue) == 0 {
				c.mu.Unlock()
				break
			}
			ev := c.queue[0]
			c.queue = c.queue[1:]
			c.mu.Unlock()

			select {
			case c.events <- ev:
			case <-c.done:
				return
			}
		}
	}
}
