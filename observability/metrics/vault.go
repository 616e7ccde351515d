package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type VaultMetrics struct {
	redemptions      *prometheus.CounterVec
	eventsCreated    prometheus.Counter
	instancesCreated prometheus.Counter
}

var (
	vaultOnce     sync.Once
	vaultRegistry *VaultMetrics
)

// Vault returns the process-wide vault metrics, registering them with the
// default prometheus registry on first use.
func Vault() *VaultMetrics {
	vaultOnce.Do(func() {
		vaultRegistry = NewVaultMetrics()
		prometheus.MustRegister(
			vaultRegistry.redemptions,
			vaultRegistry.eventsCreated,
			vaultRegistry.instancesCreated,
		)
	})
	return vaultRegistry
}

// NewVaultMetrics builds an unregistered set of collectors. Tests use it to
// avoid sharing the default registry.
func NewVaultMetrics() *VaultMetrics {
	return &VaultMetrics{
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_redemptions_total",
			Help: "Count of redemption attempts by outcome.",
		}, []string{"outcome"}),
		eventsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vault_events_created_total",
			Help: "Count of distribution events created across all vaults.",
		}),
		instancesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vault_instances_created_total",
			Help: "Count of vault instances created by factories.",
		}),
	}
}

// Collectors exposes the underlying collectors for custom registries.
func (m *VaultMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.redemptions, m.eventsCreated, m.instancesCreated}
}

func (m *VaultMetrics) ObserveRedemption(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.redemptions.WithLabelValues(outcome).Inc()
}

func (m *VaultMetrics) ObserveEventCreated() {
	if m == nil {
		return
	}
	m.eventsCreated.Inc()
}

func (m *VaultMetrics) ObserveInstanceCreated() {
	if m == nil {
		return
	}
	m.instancesCreated.Inc()
}
