// Package prom exports limiter metrics to Prometheus.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/cachelimiter/limiter"
)

// Adapter implements limiter.Metrics and exports Prometheus counters/gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	inserts  prometheus.Counter
	destroys *prometheus.CounterVec
	usage    prometheus.Gauge
	entries  prometheus.Gauge
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "inserts_total",
			Help:        "Payloads taken under management",
			ConstLabels: constLabels,
		}),
		destroys: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "destroys_total",
				Help:        "Payload destructions by reason",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		usage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "usage_bytes",
			Help:        "Tracked memory after the last enforcement pass",
			ConstLabels: constLabels,
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "entries",
			Help:        "Number of managed handles",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.inserts, a.destroys, a.usage, a.entries)
	return a
}

// Insert increments the insert counter.
func (a *Adapter) Insert() { a.inserts.Inc() }

// Destroy increments the destruction counter with a reason label.
func (a *Adapter) Destroy(r limiter.DestroyReason) {
	a.destroys.WithLabelValues(reason(r)).Inc()
}

// Usage updates gauges for tracked bytes and the number of handles.
func (a *Adapter) Usage(bytes uint64, entries int) {
	a.usage.Set(float64(bytes))
	a.entries.Set(float64(entries))
}

// reason maps DestroyReason to a stable label value.
func reason(r limiter.DestroyReason) string {
	switch r {
	case limiter.DestroyExplicit:
		return "explicit"
	case limiter.DestroyShutdown:
		return "shutdown"
	default:
		return "evicted"
	}
}

// Compile-time check: ensure Adapter implements limiter.Metrics.
var _ limiter.Metrics = (*Adapter)(nil)
