package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

type families map[string]*dto.MetricFamily

func gather(t *testing.T, reg *prometheus.Registry) families {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	out := make(families, len(mfs))
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}
	return out
}

// sample returns the series of name whose labels include every pair in want.
func (f families) sample(t *testing.T, name string, want map[string]string) *dto.Metric {
	t.Helper()
	mf, ok := f[name]
	require.Truef(t, ok, "metric %s not exported", name)
	for _, m := range mf.GetMetric() {
		if hasLabels(m, want) {
			return m
		}
	}
	t.Fatalf("metric %s has no series with labels %v", name, want)
	return nil
}

func (f families) has(name string) bool {
	_, ok := f[name]
	return ok
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, pair := range m.GetLabel() {
		got[pair.GetName()] = pair.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}
