package relay

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "pairchat_relay"

// Metrics holds the relay's Prometheus collectors on a private registry so
// several servers can coexist in one process.
type Metrics struct {
	Connections *prometheus.CounterVec // by result: accepted, slot_taken, rejected
	Frames      *prometheus.CounterVec // by frame type and ack code ("ok" on success)
	Events      *prometheus.CounterVec // relay pushes by event type
	Dropped     prometheus.Counter     // peers cut off for a full outbound queue

	registry *prometheus.Registry
}

// NewMetrics registers the relay collectors, including a live session gauge
// read from hub.
func NewMetrics(hub *Hub) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connections_total",
			Help:      "Websocket join attempts by result.",
		}, []string{"result"}),
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_total",
			Help:      "Client frames handled, by type and ack code.",
		}, []string{"type", "code"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_total",
			Help:      "Events pushed to connected peers, by type.",
		}, []string{"type"}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dropped_peers_total",
			Help:      "Connections closed because their outbound queue filled.",
		}),
		registry: prometheus.NewRegistry(),
	}
	sessions := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "sessions",
		Help:      "Sessions with at least one connected peer.",
	}, func() float64 { return float64(hub.Sessions()) })

	m.registry.MustRegister(m.Connections, m.Frames, m.Events, m.Dropped, sessions)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) frame(frameType, code string) {
	switch frameType {
	case framePublishKey, frameSubmitSecret, frameSendMessage:
	default:
		frameType = "unknown"
	}
	if code == "" {
		code = "ok"
	}
	m.Frames.WithLabelValues(frameType, code).Inc()
}
