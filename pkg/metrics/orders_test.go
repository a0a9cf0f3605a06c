package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestOrderMetricsExportsCheckoutAndTransitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)
	m.ObserveCheckout(OutcomeSuccess, 40*time.Millisecond)
	m.ObserveCheckout(OutcomeSuccess, 60*time.Millisecond)
	m.ObserveCheckout(OutcomeOutOfStock, 10*time.Millisecond)
	m.IncTransition("pending", "confirmed")
	m.IncNumberCollision()

	f := gather(t, reg)
	outcome := func(v string) map[string]string { return map[string]string{"outcome": v} }

	require.Equal(t, 2.0, f.sample(t, "storefront_checkout_attempts_total", outcome(OutcomeSuccess)).GetCounter().GetValue())
	require.Greater(t, f.sample(t, "storefront_checkout_duration_seconds", outcome(OutcomeOutOfStock)).GetHistogram().GetSampleSum(), 0.0)
	require.Equal(t, 1.0, f.sample(t, "storefront_orders_status_transitions_total", map[string]string{"from": "pending", "to": "confirmed"}).GetCounter().GetValue())
	require.Equal(t, 1.0, f.sample(t, "storefront_orders_number_collisions_total", nil).GetCounter().GetValue())
}

func TestOrderMetricsBlankLabelsBecomeUnknown(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)
	m.ObserveCheckout(" ", time.Millisecond)
	m.IncTransition("", "cancelled")

	f := gather(t, reg)
	require.Equal(t, 1.0, f.sample(t, "storefront_checkout_attempts_total", map[string]string{"outcome": "unknown"}).GetCounter().GetValue())
	require.Equal(t, 1.0, f.sample(t, "storefront_orders_status_transitions_total", map[string]string{"from": "unknown", "to": "cancelled"}).GetCounter().GetValue())
}

func TestOrderMetricsNilSafe(t *testing.T) {
	var m *OrderMetrics
	m.ObserveCheckout(OutcomeError, time.Second)
	m.IncTransition("a", "b")
	m.IncNumberCollision()

	NewOrderMetrics(nil).ObserveCheckout(OutcomeSuccess, time.Second)
}
