// Package metrics provides assignment engine instrumentation.
package metrics

// Collector receives assignment engine measurements.
type Collector interface {
	// RecordAssignment counts an assignment attempt by method and outcome
	// (success, locked, version_mismatch, no_consultants, error).
	RecordAssignment(method, outcome string)

	// RecordCommitConflict counts a concurrency conflict by kind (locked, version).
	RecordCommitConflict(kind string)

	// RecordFallback counts selections that fell back to the full roster.
	RecordFallback()

	// ObserveLockWait records how long a commit waited for a consultant lock.
	ObserveLockWait(seconds float64)

	// RecordReassignment counts a committed reassignment.
	RecordReassignment()
}

// NopMetrics implements a no-op metrics collector.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements Collector.
var _ Collector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordAssignment discards the metric.
func (n *NopMetrics) RecordAssignment(_ /* method */, _ /* outcome */ string) {}

// RecordCommitConflict discards the metric.
func (n *NopMetrics) RecordCommitConflict(_ /* kind */ string) {}

// RecordFallback discards the metric.
func (n *NopMetrics) RecordFallback() {}

// ObserveLockWait discards the metric.
func (n *NopMetrics) ObserveLockWait(_ /* seconds */ float64) {}

// RecordReassignment discards the metric.
func (n *NopMetrics) RecordReassignment() {}
