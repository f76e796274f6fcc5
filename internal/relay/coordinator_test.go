package relay_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pairchat/internal/domain"
	"pairchat/internal/relay"
)

// recorder collects events handed to a coordinator handler.
type recorder struct {
	mu     sync.Mutex
	events []domain.RelayEvent
}

func (r *recorder) handle(ev domain.RelayEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) take() []domain.RelayEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func pair(t *testing.T) (*relay.Coordinator, *recorder, *recorder) {
	t.Helper()
	c := relay.NewCoordinator("s1", zerolog.Nop())
	a, b := &recorder{}, &recorder{}
	if err := c.Subscribe(domain.SlotA, a.handle); err != nil {
		t.Fatalf("Subscribe A: %v", err)
	}
	if err := c.Subscribe(domain.SlotB, b.handle); err != nil {
		t.Fatalf("Subscribe B: %v", err)
	}
	return c, a, b
}

func TestCoordinator_Rendezvous(t *testing.T) {
	c, a, b := pair(t)

	if err := c.SubmitPublicKey(domain.SlotA, []byte("pubA")); err != nil {
		t.Fatalf("SubmitPublicKey A: %v", err)
	}
	if c.Phase() != relay.PhaseOneSlotFilled {
		t.Fatalf("want one-slot-filled, got %s", c.Phase())
	}
	if got := a.take(); len(got) != 0 {
		t.Fatalf("events before rendezvous: %v", got)
	}
	if err := c.SubmitPublicKey(domain.SlotB, []byte("pubB")); err != nil {
		t.Fatalf("SubmitPublicKey B: %v", err)
	}
	if c.Phase() != relay.PhaseEmpty {
		t.Fatalf("slots not cleared after rendezvous: %s", c.Phase())
	}

	for name, tc := range map[string]struct {
		r    *recorder
		key  string
		from domain.Slot
	}{
		"A": {a, "pubB", domain.SlotB},
		"B": {b, "pubA", domain.SlotA},
	} {
		evs := tc.r.take()
		if len(evs) != 2 {
			t.Fatalf("%s: want 2 events, got %d", name, len(evs))
		}
		if evs[0].Type != domain.EventPeerPublicKey || string(evs[0].PublicKey) != tc.key || evs[0].From != tc.from {
			t.Fatalf("%s: bad key event %+v", name, evs[0])
		}
		if evs[1].Type != domain.EventBothPresent || !evs[1].Present {
			t.Fatalf("%s: want both-peers-present, got %+v", name, evs[1])
		}
	}
}

func TestCoordinator_SlotsReusableAfterRendezvous(t *testing.T) {
	c, a, b := pair(t)
	for round := 1; round <= 2; round++ {
		if err := c.SubmitPublicKey(domain.SlotA, []byte("a")); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		if err := c.SubmitPublicKey(domain.SlotB, []byte("b")); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		if c.Rounds() != round {
			t.Fatalf("want %d rounds, got %d", round, c.Rounds())
		}
		if len(a.take()) != 2 || len(b.take()) != 2 {
			t.Fatalf("round %d: rendezvous did not fire", round)
		}
	}

	// A third submission starts a fresh cycle rather than re-firing.
	if err := c.SubmitPublicKey(domain.SlotA, []byte("a3")); err != nil {
		t.Fatalf("SubmitPublicKey: %v", err)
	}
	if c.Phase() != relay.PhaseOneSlotFilled || len(b.take()) != 0 {
		t.Fatal("single key must not fire a rendezvous")
	}
}

func TestCoordinator_SecretForwardedOncePerRound(t *testing.T) {
	c, _, b := pair(t)
	env := domain.SecretEnvelope{EncryptedSecret: []byte{1, 2, 3}, Salt: []byte{4}}
	if err := c.SubmitEncryptedSecret(domain.SlotA, env); err != nil {
		t.Fatalf("SubmitEncryptedSecret: %v", err)
	}
	evs := b.take()
	if len(evs) != 1 || evs[0].Type != domain.EventEncryptedSecret || string(evs[0].Secret.EncryptedSecret) != "\x01\x02\x03" {
		t.Fatalf("secret not forwarded verbatim: %+v", evs)
	}
	if err := c.SubmitEncryptedSecret(domain.SlotA, env); !errors.Is(err, domain.ErrProtocolViolation) {
		t.Fatalf("want ErrProtocolViolation on second secret, got %v", err)
	}
}

func TestCoordinator_RelayMessage_ExcludesSender(t *testing.T) {
	c, a, b := pair(t)
	env := domain.MessageEnvelope{ID: uuid.New(), Ciphertext: []byte("opaque")}
	if err := c.RelayMessage(domain.SlotA, env); err != nil {
		t.Fatalf("RelayMessage: %v", err)
	}
	if len(a.take()) != 0 {
		t.Fatal("sender received its own message")
	}
	evs := b.take()
	if len(evs) != 1 || evs[0].Message.ID != env.ID {
		t.Fatalf("message not relayed: %+v", evs)
	}
}

func TestCoordinator_Disconnect_FailsLoudly(t *testing.T) {
	c, _, _ := pair(t)
	if err := c.SubmitPublicKey(domain.SlotB, []byte("b")); err != nil {
		t.Fatalf("SubmitPublicKey: %v", err)
	}
	c.Disconnect(domain.SlotB)

	if c.Phase() != relay.PhaseEmpty {
		t.Fatal("disconnect did not clear the slot key")
	}
	if err := c.RelayMessage(domain.SlotA, domain.MessageEnvelope{}); !errors.Is(err, domain.ErrPeerUnavailable) {
		t.Fatalf("want ErrPeerUnavailable, got %v", err)
	}
	if err := c.SubmitEncryptedSecret(domain.SlotA, domain.SecretEnvelope{}); !errors.Is(err, domain.ErrPeerUnavailable) {
		t.Fatalf("want ErrPeerUnavailable, got %v", err)
	}
}

func TestCoordinator_SlotTaken(t *testing.T) {
	c, _, _ := pair(t)
	if err := c.Subscribe(domain.SlotA, func(domain.RelayEvent) {}); !errors.Is(err, domain.ErrSlotTaken) {
		t.Fatalf("want ErrSlotTaken, got %v", err)
	}
}

func TestCoordinator_ConcurrentSubmissions(t *testing.T) {
	c, a, b := pair(t)
	const rounds = 200
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _ = c.SubmitPublicKey(domain.SlotA, []byte("a")) }()
		go func() { defer wg.Done(); _ = c.SubmitPublicKey(domain.SlotB, []byte("b")) }()
	}
	wg.Wait()

	// Every rendezvous emits exactly two events per side.
	na, nb := len(a.take()), len(b.take())
	if na != nb || na != 2*c.Rounds() {
		t.Fatalf("inconsistent rendezvous: rounds=%d a=%d b=%d", c.Rounds(), na, nb)
	}
}
