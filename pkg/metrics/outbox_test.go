package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestRelayMetricsRecordsLagForPublishedOnly(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRelayMetrics(reg)

	m.ObserveDelivery("order_created", DeliveryPublished, time.Now().Add(-2*time.Second))
	m.ObserveDelivery("order_created", DeliveryRetried, time.Now().Add(-time.Hour))
	m.ObserveDelivery("order_status_changed", DeliveryDeadLettered, time.Time{})

	f := gather(t, reg)
	published := f.sample(t, "storefront_outbox_deliveries_total", map[string]string{"event_type": "order_created", "result": DeliveryPublished})
	require.Equal(t, 1.0, published.GetCounter().GetValue())
	dead := f.sample(t, "storefront_outbox_deliveries_total", map[string]string{"event_type": "order_status_changed", "result": DeliveryDeadLettered})
	require.Equal(t, 1.0, dead.GetCounter().GetValue())

	lag := f.sample(t, "storefront_outbox_publish_lag_seconds", map[string]string{"event_type": "order_created"}).GetHistogram()
	require.Equal(t, uint64(1), lag.GetSampleCount())
	require.GreaterOrEqual(t, lag.GetSampleSum(), 2.0)
}

func TestRelayMetricsNilRegisterer(t *testing.T) {
	m := NewRelayMetrics(nil)
	m.ObserveDelivery("order_created", DeliveryPublished, time.Now())

	var unset *RelayMetrics
	unset.ObserveDelivery("order_created", DeliveryRetried, time.Now())

	reg := prometheus.NewRegistry()
	require.False(t, gather(t, reg).has("storefront_outbox_deliveries_total"))
}
