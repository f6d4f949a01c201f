package monitoring

import (
	"time"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Gauges
	sessionsActive prometheus.Gauge
	roomsActive    prometheus.Gauge

	// Counters
	broadcastsTotal    *prometheus.CounterVec
	deliveriesTotal    *prometheus.CounterVec
	slowConsumersTotal prometheus.Counter
	messagesTotal      *prometheus.CounterVec
	wsEventsTotal      *prometheus.CounterVec
	connectionsTotal   *prometheus.CounterVec

	// Histograms
	persistDuration prometheus.Histogram
}

// NewPrometheusCollector registers the collector's metrics on reg. Tests
// pass a fresh prometheus.NewRegistry().
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)
	return &PrometheusCollector{
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "boardchat_sessions_active",
			Help: "Number of authenticated live sessions",
		}),

		roomsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "boardchat_rooms_active",
			Help: "Number of rooms with at least one subscriber",
		}),

		broadcastsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "boardchat_broadcasts_total",
			Help: "Total number of room broadcasts",
		}, []string{"room_kind"}),

		deliveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "boardchat_deliveries_total",
			Help: "Total number of events queued to sessions by broadcasts",
		}, []string{"room_kind"}),

		slowConsumersTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "boardchat_slow_consumers_dropped_total",
			Help: "Sessions terminated because their send queue was full",
		}),

		messagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "boardchat_messages_total",
			Help: "Message submissions by outcome",
		}, []string{"result"}),

		wsEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "boardchat_ws_events_total",
			Help: "Inbound websocket events by name",
		}, []string{"event"}),

		connectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "boardchat_ws_connections_total",
			Help: "Websocket connection attempts by outcome",
		}, []string{"outcome"}),

		persistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "boardchat_persist_duration_seconds",
			Help:    "Time spent persisting a message",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}

var _ ports.Metrics = (*PrometheusCollector)(nil)

func (p *PrometheusCollector) SetSessions(n int) {
	p.sessionsActive.Set(float64(n))
}

func (p *PrometheusCollector) SetRooms(n int) {
	p.roomsActive.Set(float64(n))
}

func (p *PrometheusCollector) RecordBroadcast(kind domain.RoomKind, recipients int) {
	p.broadcastsTotal.WithLabelValues(string(kind)).Inc()
	p.deliveriesTotal.WithLabelValues(string(kind)).Add(float64(recipients))
}

func (p *PrometheusCollector) RecordSlowConsumer() {
	p.slowConsumersTotal.Inc()
}

func (p *PrometheusCollector) RecordMessage(result string) {
	p.messagesTotal.WithLabelValues(result).Inc()
}

func (p *PrometheusCollector) ObservePersist(d time.Duration) {
	p.persistDuration.Observe(d.Seconds())
}

func (p *PrometheusCollector) RecordEvent(event string) {
	p.wsEventsTotal.WithLabelValues(event).Inc()
}

// RecordConnection counts handshake outcomes ("accepted", "auth_failed").
func (p *PrometheusCollector) RecordConnection(outcome string) {
	p.connectionsTotal.WithLabelValues(outcome).Inc()
}
