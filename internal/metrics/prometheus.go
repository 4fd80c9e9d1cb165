package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector implements Collector backed by Prometheus.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	gatherer  prometheus.Gatherer
	namespace string
	once      sync.Once

	assignments     *prometheus.CounterVec
	commitConflicts *prometheus.CounterVec
	fallbacks       prometheus.Counter
	lockWait        prometheus.Histogram
	reassignments   prometheus.Counter
}

// Compile-time assertion that PrometheusCollector implements Collector.
var _ Collector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: registry to register with (a fresh registry is created if nil)
//   - namespace: metrics namespace (defaults to "leadrouter" if empty)
func NewPrometheus(reg *prometheus.Registry, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "leadrouter"
	}

	return &PrometheusCollector{reg: reg, gatherer: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.assignments = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "assignments_total",
			Help:      "Assignment attempts by method and outcome.",
		}, []string{"method", "outcome"})

		p.commitConflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "commit_conflicts_total",
			Help:      "Commit concurrency conflicts by kind (locked, version).",
		}, []string{"kind"})

		p.fallbacks = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "fallback_total",
			Help:      "Selections that fell back to the full roster.",
		})

		p.lockWait = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for a consultant lock.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10), // 1ms .. ~3.8s
		})

		p.reassignments = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "engine",
			Name:      "reassignments_total",
			Help:      "Committed reassignments.",
		})

		p.reg.MustRegister(p.assignments)
		p.reg.MustRegister(p.commitConflicts)
		p.reg.MustRegister(p.fallbacks)
		p.reg.MustRegister(p.lockWait)
		p.reg.MustRegister(p.reassignments)
	})
}

// RecordAssignment increments the assignment counter.
func (p *PrometheusCollector) RecordAssignment(method, outcome string) {
	p.ensureRegistered()
	p.assignments.WithLabelValues(method, outcome).Inc()
}

// RecordCommitConflict increments the conflict counter.
func (p *PrometheusCollector) RecordCommitConflict(kind string) {
	p.ensureRegistered()
	p.commitConflicts.WithLabelValues(kind).Inc()
}

// RecordFallback increments the fallback counter.
func (p *PrometheusCollector) RecordFallback() {
	p.ensureRegistered()
	p.fallbacks.Inc()
}

// ObserveLockWait observes a lock wait in seconds.
func (p *PrometheusCollector) ObserveLockWait(seconds float64) {
	p.ensureRegistered()
	p.lockWait.Observe(seconds)
}

// RecordReassignment increments the reassignment counter.
func (p *PrometheusCollector) RecordReassignment() {
	p.ensureRegistered()
	p.reassignments.Inc()
}

// Handler returns an HTTP handler exposing the collector's registry.
func (p *PrometheusCollector) Handler() http.Handler {
	p.ensureRegistered()
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}
