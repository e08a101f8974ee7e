// Package metric exposes ordguard runtime metrics in Prometheus format.
//
// The Metrics type implements the observer interfaces of the guarded
// and transfer packages, so one instance wires the whole pipeline.
package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector on one registry.
type Metrics struct {
	registry *prometheus.Registry

	budgetUsed    prometheus.Gauge
	budgetCeiling prometheus.Gauge
	defragNeeded  prometheus.Gauge
	evictions     prometheus.Counter

	transferRetries   prometheus.Counter
	transferTimeouts  prometheus.Counter
	integrityFailures prometheus.Counter
	snapshotBytes     prometheus.Counter
}

// New creates a registry with all ordguard collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		budgetUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ordguard",
			Subsystem: "memory",
			Name:      "budget_used_bytes",
			Help:      "Bytes currently accounted against the memory budget",
		}),
		budgetCeiling: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ordguard",
			Subsystem: "memory",
			Name:      "budget_ceiling_bytes",
			Help:      "Configured memory budget ceiling in bytes",
		}),
		defragNeeded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ordguard",
			Subsystem: "memory",
			Name:      "defrag_needed",
			Help:      "1 while the fragmentation signal is latched, else 0",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ordguard",
			Subsystem: "memory",
			Name:      "evictions_total",
			Help:      "Entries evicted to admit writes",
		}),
		transferRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ordguard",
			Subsystem: "transfer",
			Name:      "retries_total",
			Help:      "Transfer attempts retried after a transient failure",
		}),
		transferTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ordguard",
			Subsystem: "transfer",
			Name:      "timeouts_total",
			Help:      "Transfer attempts abandoned on timeout",
		}),
		integrityFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ordguard",
			Subsystem: "transfer",
			Name:      "integrity_failures_total",
			Help:      "Payloads rejected by checksum or digest verification",
		}),
		snapshotBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ordguard",
			Subsystem: "transfer",
			Name:      "snapshot_bytes_total",
			Help:      "Bytes written to snapshot streams",
		}),
	}

	m.registry.MustRegister(
		m.budgetUsed,
		m.budgetCeiling,
		m.defragNeeded,
		m.evictions,
		m.transferRetries,
		m.transferTimeouts,
		m.integrityFailures,
		m.snapshotBytes,
	)
	return m
}

// Registry exposes the underlying registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// BudgetObserved implements guarded.Observer.
func (m *Metrics) BudgetObserved(used, ceiling int64) {
	m.budgetUsed.Set(float64(used))
	m.budgetCeiling.Set(float64(ceiling))
}

// EvictionsObserved implements guarded.Observer.
func (m *Metrics) EvictionsObserved(count int) {
	m.evictions.Add(float64(count))
}

// DefragNeeded implements guarded.Observer.
func (m *Metrics) DefragNeeded(needed bool) {
	if needed {
		m.defragNeeded.Set(1)
	} else {
		m.defragNeeded.Set(0)
	}
}

// RetryScheduled implements transfer.Observer.
func (m *Metrics) RetryScheduled(_ string, _ int, _ time.Duration) {
	m.transferRetries.Inc()
}

// TimedOut implements transfer.Observer.
func (m *Metrics) TimedOut(_ string) {
	m.transferTimeouts.Inc()
}

// IntegrityFailure implements transfer.Observer.
func (m *Metrics) IntegrityFailure(_ string) {
	m.integrityFailures.Inc()
}

// SnapshotBytes implements transfer.Observer.
func (m *Metrics) SnapshotBytes(n int) {
	m.snapshotBytes.Add(float64(n))
}
