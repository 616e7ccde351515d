package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestVaultMetricsCounters(t *testing.T) {
	m := NewVaultMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(m.Collectors()[0]))

	m.ObserveRedemption("success")
	m.ObserveRedemption("success")
	m.ObserveRedemption("already_claimed")
	m.ObserveRedemption("")
	m.ObserveEventCreated()
	m.ObserveInstanceCreated()

	require.Equal(t, float64(2), testutil.ToFloat64(m.redemptions.WithLabelValues("success")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.redemptions.WithLabelValues("already_claimed")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.redemptions.WithLabelValues("unknown")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.eventsCreated))
	require.Equal(t, float64(1), testutil.ToFloat64(m.instancesCreated))
	require.Equal(t, 3, testutil.CollectAndCount(m.redemptions))
}

func TestNilVaultMetricsIsSafe(t *testing.T) {
	var m *VaultMetrics
	m.ObserveRedemption("success")
	m.ObserveEventCreated()
	m.ObserveInstanceCreated()
}
