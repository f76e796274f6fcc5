package relay_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pairchat/internal/domain"
	"pairchat/internal/relay"
)

func startServer(t *testing.T, opts ...relay.ServerOption) (*relay.Hub, string) {
	t.Helper()
	hub := relay.NewHub(zerolog.Nop())
	srv := httptest.NewServer(relay.NewServer(hub, opts...))
	t.Cleanup(srv.Close)
	return hub, srv.URL
}

func dial(t *testing.T, url string, id domain.SessionID, slot domain.Slot) *relay.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := relay.Dial(ctx, url, id, slot)
	if err != nil {
		t.Fatalf("Dial %s: %v", slot, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestServer_WebsocketRoundTrip(t *testing.T) {
	hub, url := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := dial(t, url, "s1", domain.SlotA)
	b := dial(t, url, "s1", domain.SlotB)

	if err := a.PublishPublicKey(ctx, []byte("pubA")); err != nil {
		t.Fatalf("publish A: %v", err)
	}
	if err := b.PublishPublicKey(ctx, []byte("pubB")); err != nil {
		t.Fatalf("publish B: %v", err)
	}
	if ev := recvEvent(t, b); ev.Type != domain.EventPeerPublicKey || string(ev.PublicKey) != "pubA" {
		t.Fatalf("B got %+v", ev)
	}
	if ev := recvEvent(t, b); ev.Type != domain.EventBothPresent || !ev.Present {
		t.Fatalf("B got %+v", ev)
	}
	recvEvent(t, a)
	recvEvent(t, a)

	secret := domain.SecretEnvelope{EncryptedSecret: []byte("ct"), Salt: []byte("salt")}
	if err := a.SubmitEncryptedSecret(ctx, secret); err != nil {
		t.Fatalf("submit secret: %v", err)
	}
	if ev := recvEvent(t, b); ev.Type != domain.EventEncryptedSecret || string(ev.Secret.EncryptedSecret) != "ct" {
		t.Fatalf("B got %+v", ev)
	}

	msg := domain.MessageEnvelope{ID: uuid.New(), Ciphertext: []byte("x"), IV: []byte("iv"), Sender: "A"}
	if err := a.SendMessage(ctx, msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if ev := recvEvent(t, b); ev.Type != domain.EventMessage || ev.Message.ID != msg.ID || ev.From != domain.SlotA {
		t.Fatalf("B got %+v", ev)
	}

	// Partner leaves; the next send must fail rather than vanish.
	_ = b.Close()
	deadline := time.Now().Add(5 * time.Second)
	for {
		c, ok := hub.Coordinator("s1")
		if ok && c.Connected() == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("relay did not notice the disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
	err := a.SendMessage(ctx, msg)
	if !errors.Is(err, domain.ErrPeerUnavailable) {
		t.Fatalf("want ErrPeerUnavailable, got %v", err)
	}
	var re *relay.RelayError
	if !errors.As(err, &re) || re.Code != relay.CodePeerUnavailable {
		t.Fatalf("want RelayError %s, got %v", relay.CodePeerUnavailable, err)
	}
}

func TestServer_SlotTaken(t *testing.T) {
	_, url := startServer(t)
	dial(t, url, "s1", domain.SlotA)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := relay.Dial(ctx, url, "s1", domain.SlotA); !errors.Is(err, domain.ErrSlotTaken) {
		t.Fatalf("want ErrSlotTaken, got %v", err)
	}
}

func TestServer_RateLimited(t *testing.T) {
	_, url := startServer(t, relay.WithRateLimit(0.001, 1))
	a := dial(t, url, "s1", domain.SlotA)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.PublishPublicKey(ctx, []byte("k")); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if err := a.PublishPublicKey(ctx, []byte("k")); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
}

func TestServer_BadRequest(t *testing.T) {
	_, url := startServer(t)
	a := dial(t, url, "s1", domain.SlotA)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := a.PublishPublicKey(ctx, nil)
	var re *relay.RelayError
	if !errors.As(err, &re) || re.Code != relay.CodeBadRequest {
		t.Fatalf("want bad_request, got %v", err)
	}
}

func TestServer_Health(t *testing.T) {
	_, url := startServer(t)
	resp, err := http.Get(url + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || body.Status != "ok" {
		t.Fatalf("unexpected health %d %+v", resp.StatusCode, body)
	}

	resp2, err := http.Get(url + "/sessions/s1/C")
	if err != nil {
		t.Fatalf("GET bad slot: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400 for bad slot, got %d", resp2.StatusCode)
	}
}

func TestServer_Metrics(t *testing.T) {
	_, url := startServer(t, relay.WithRateLimit(0.001, 1))
	a := dial(t, url, "s1", domain.SlotA)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = a.PublishPublicKey(ctx, []byte("k"))
	_ = a.PublishPublicKey(ctx, []byte("k"))

	resp, err := http.Get(url + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	for _, want := range []string{
		`pairchat_relay_connections_total{result="accepted"} 1`,
		`pairchat_relay_frames_total{code="ok",type="publish-public-key"} 1`,
		`pairchat_relay_frames_total{code="rate_limited",type="publish-public-key"} 1`,
		`pairchat_relay_sessions 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}
