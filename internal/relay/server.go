package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"pairchat/internal/domain"
)

const (
	DefaultRate      = 20 // frames per second per connection
	DefaultBurst     = 40
	DefaultQueueSize = 64

	maxFrameBytes = 1 << 20
	writeTimeout  = 10 * time.Second
)

// Server exposes a Hub over websockets.
type Server struct {
	hub     *Hub
	log     zerolog.Logger
	rate    rate.Limit
	burst   int
	queue   int
	metrics *Metrics
	router  *mux.Router
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(l zerolog.Logger) ServerOption { return func(s *Server) { s.log = l } }

// WithRateLimit caps inbound frames per connection.
func WithRateLimit(perSecond float64, burst int) ServerOption {
	return func(s *Server) {
		s.rate = rate.Limit(perSecond)
		s.burst = burst
	}
}

// WithQueueSize bounds each connection's outbound queue. A peer that falls
// this far behind is disconnected.
func WithQueueSize(n int) ServerOption { return func(s *Server) { s.queue = n } }

// NewServer returns an http.Handler serving hub.
func NewServer(hub *Hub, opts ...ServerOption) *Server {
	s := &Server{
		hub:   hub,
		log:   zerolog.Nop(),
		rate:  rate.Limit(DefaultRate),
		burst: DefaultBurst,
		queue: DefaultQueueSize,
	}
	for _, o := range opts {
		o(s)
	}
	s.metrics = NewMetrics(hub)
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{session}/{slot}", s.connect).Methods(http.MethodGet)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "sessions": s.hub.Sessions()})
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	slot, err := domain.ParseSlot(vars["slot"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := domain.SessionID(vars["session"])
	log := s.log.With().
		Str("session", string(id)).
		Str("slot", slot.String()).
		Str("remote", r.RemoteAddr).
		Logger()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan frame, s.queue)
	m, err := s.hub.Join(id, slot, func(ev domain.RelayEvent) {
		select {
		case out <- eventFrame(ev):
			s.metrics.Events.WithLabelValues(string(ev.Type)).Inc()
		default:
			log.Warn().Str("event", string(ev.Type)).Msg("outbound queue full; dropping peer")
			s.metrics.Dropped.Inc()
			cancel()
		}
	})
	if err != nil {
		status, result := http.StatusInternalServerError, "rejected"
		if errors.Is(err, domain.ErrSlotTaken) {
			status, result = http.StatusConflict, "slot_taken"
		}
		s.metrics.Connections.WithLabelValues(result).Inc()
		log.Info().Err(err).Msg("join rejected")
		http.Error(w, err.Error(), status)
		return
	}
	defer m.Leave()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket accept")
		return
	}
	conn.SetReadLimit(maxFrameBytes)
	s.metrics.Connections.WithLabelValues("accepted").Inc()
	log.Info().Msg("peer connected")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.writeLoop(gctx, conn, out) })
	g.Go(func() error { return s.readLoop(gctx, conn, m, out, log) })
	err = g.Wait()

	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		log.Info().Msg("peer disconnected")
	default:
		log.Info().Err(err).Msg("peer dropped")
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, m *Membership, out chan<- frame, log zerolog.Logger) error {
	limiter := rate.NewLimiter(s.rate, s.burst)
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return err
		}

		var err error
		if limiter.Allow() {
			err = dispatch(m, f)
		} else {
			err = domain.ErrRateLimited
			log.Warn().Str("frame", f.Type).Msg("rate limited")
		}

		ack := frame{Type: frameAck, Ref: f.ID}
		if err != nil {
			ack.Error = codeFor(err)
			ack.Detail = err.Error()
			log.Debug().Str("frame", f.Type).Str("code", ack.Error).Msg("frame rejected")
		}
		s.metrics.frame(f.Type, ack.Error)
		select {
		case out <- ack:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan frame) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-out:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, f)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

// dispatch applies one peer frame. Only the presence of a payload is
// checked; its contents are relayed as-is.
func dispatch(m *Membership, f frame) error {
	switch f.Type {
	case framePublishKey:
		if len(f.PublicKey) == 0 {
			return fmt.Errorf("%w: missing public key", errBadRequest)
		}
		return m.PublishPublicKey(f.PublicKey)
	case frameSubmitSecret:
		if f.Secret == nil {
			return fmt.Errorf("%w: missing secret envelope", errBadRequest)
		}
		return m.SubmitEncryptedSecret(*f.Secret)
	case frameSendMessage:
		if f.Message == nil {
			return fmt.Errorf("%w: missing message envelope", errBadRequest)
		}
		return m.SendMessage(*f.Message)
	}
	return fmt.Errorf("%w: unknown frame type %q", errBadRequest, f.Type)
}
