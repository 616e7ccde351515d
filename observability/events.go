package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"vaultengine/core/events"
)

type eventMetrics struct {
	emitted *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking emitted vault events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = newEventMetrics()
		prometheus.MustRegister(eventRegistry.emitted)
	})
	return eventRegistry
}

func newEventMetrics() *eventMetrics {
	return &eventMetrics{
		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vault",
			Subsystem: "events",
			Name:      "emitted_total",
			Help:      "Count of vault events segmented by event type.",
		}, []string{"type"}),
	}
}

// RecordEvent increments the counter for the supplied event type.
func (m *eventMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToLower(eventType))
	if normalized == "" {
		normalized = "unknown"
	}
	m.emitted.WithLabelValues(normalized).Inc()
}

// CountingEmitter counts every event before handing it to Next.
type CountingEmitter struct {
	Next    events.Emitter
	Metrics *eventMetrics
}

// Emit implements events.Emitter.
func (c CountingEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	metrics := c.Metrics
	if metrics == nil {
		metrics = Events()
	}
	metrics.RecordEvent(evt.EventType())
	if c.Next != nil {
		c.Next.Emit(evt)
	}
}
