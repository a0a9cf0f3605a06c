package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery results reported by the outbox relay.
const (
	DeliveryPublished    = "published"
	DeliveryRetried      = "retried"
	DeliveryDeadLettered = "dead_lettered"
)

// RelayMetrics tracks outbox rows leaving the database for Pub/Sub.
type RelayMetrics struct {
	deliveries *prometheus.CounterVec
	lag        *prometheus.HistogramVec
}

// NewRelayMetrics registers the relay metrics. A nil registerer yields a no-op
// recorder.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	if reg == nil {
		return &RelayMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "deliveries_total",
		Help:      "Outbox delivery attempts by event type and result.",
	}, []string{"event_type", "result"})
	lag := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "publish_lag_seconds",
		Help:      "Time between an event being queued and its publication.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"event_type"})
	reg.MustRegister(deliveries, lag)
	return &RelayMetrics{deliveries: deliveries, lag: lag}
}

// ObserveDelivery counts one delivery. Lag is only recorded for published rows
// with a known creation time.
func (m *RelayMetrics) ObserveDelivery(eventType, result string, queuedAt time.Time) {
	if m == nil || m.deliveries == nil {
		return
	}
	eventType = normalizeLabel(eventType)
	m.deliveries.WithLabelValues(eventType, normalizeLabel(result)).Inc()
	if result == DeliveryPublished && !queuedAt.IsZero() {
		m.lag.WithLabelValues(eventType).Observe(time.Since(queuedAt).Seconds())
	}
}
