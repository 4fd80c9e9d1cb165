package app

import (
	"time"

	"k8s.io/utils/clock"

	"github.com/example/leadrouter/internal/core/fairness"
	"github.com/example/leadrouter/internal/core/selection"
	"github.com/example/leadrouter/internal/logging"
	"github.com/example/leadrouter/internal/metrics"
)

// Commit strategies.
const (
	// StrategyLock serialises commits per consultant with a bounded lock wait
	// before the versioned write.
	StrategyLock = "lock"
	// StrategyVersion relies on the versioned write alone.
	StrategyVersion = "version"
)

// DefaultLockTimeout bounds how long a commit waits for a consultant lock.
const DefaultLockTimeout = 5 * time.Second

// Option configures the services and the committer.
type Option func(*options)

type options struct {
	clock          clock.Clock
	logger         logging.Logger
	metrics        metrics.Collector
	strategy       string
	lockTimeout    time.Duration
	maxActive      int
	pairingWindow  time.Duration
	idlePreference time.Duration
	weights        fairness.Weights
}

func newOptions(opts []Option) options {
	o := options{
		clock:          clock.RealClock{},
		logger:         logging.NewNop(),
		metrics:        metrics.NewNop(),
		strategy:       StrategyLock,
		lockTimeout:    DefaultLockTimeout,
		maxActive:      selection.DefaultMaxActiveAssignments,
		pairingWindow:  selection.DefaultPairingWindow,
		idlePreference: selection.DefaultIdlePreference,
		weights:        fairness.DefaultWeights(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithStrategy selects StrategyLock or StrategyVersion.
func WithStrategy(strategy string) Option {
	return func(o *options) { o.strategy = strategy }
}

// WithLockTimeout bounds the consultant lock wait.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithMaxActiveAssignments sets the open-assignment cap used by the filter.
func WithMaxActiveAssignments(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxActive = n
		}
	}
}

// WithPairingWindow sets how long a requester/consultant pairing blocks a repeat.
func WithPairingWindow(d time.Duration) Option {
	return func(o *options) { o.pairingWindow = d }
}

// WithIdlePreference sets the idle time after which consultants are preferred.
func WithIdlePreference(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.idlePreference = d
		}
	}
}

// WithWeights overrides the scoring coefficients.
func WithWeights(w fairness.Weights) Option {
	return func(o *options) { o.weights = w }
}
