package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"github.com/example/leadrouter/internal/logging"
	"github.com/example/leadrouter/internal/metrics"
	"github.com/example/leadrouter/internal/ports/secondary"
)

// Committer is the only path through which consultant counters change.
// Under StrategyLock it holds the consultant's lock around the versioned
// store write; under StrategyVersion it relies on the versioned write alone.
type Committer struct {
	store       secondary.AssignmentStore
	locker      secondary.ConsultantLocker
	clock       clock.Clock
	logger      logging.Logger
	metrics     metrics.Collector
	strategy    string
	lockTimeout time.Duration
}

// NewCommitter creates a Committer. locker may be nil when the version
// strategy is selected.
func NewCommitter(store secondary.AssignmentStore, locker secondary.ConsultantLocker, opts ...Option) (*Committer, error) {
	o := newOptions(opts)

	switch o.strategy {
	case StrategyLock:
		if locker == nil {
			return nil, fmt.Errorf("lock strategy requires a consultant locker")
		}
	case StrategyVersion:
	default:
		return nil, fmt.Errorf("unknown commit strategy %q (valid: lock, version)", o.strategy)
	}

	return &Committer{
		store:       store,
		locker:      locker,
		clock:       o.clock,
		logger:      o.logger,
		metrics:     o.metrics,
		strategy:    o.strategy,
		lockTimeout: o.lockTimeout,
	}, nil
}

// Strategy returns the configured commit strategy.
func (c *Committer) Strategy() string {
	return c.strategy
}

// Commit atomically persists req.Assignment and updates its consultant.
//
// Returns ErrConsultantLocked when the lock wait expires, ErrVersionMismatch
// when the consultant changed since req.ExpectedVersion was read, and a
// PersistenceError for store failures. Nothing is written on error.
func (c *Committer) Commit(ctx context.Context, req secondary.CommitRequest) error {
	if req.Assignment == nil {
		return validationErr("assignment", "required")
	}
	consultantID := req.Assignment.ConsultantID

	release, err := c.acquire(ctx, consultantID)
	if err != nil {
		return err
	}
	defer release()

	if err := c.store.CommitAssignment(ctx, req); err != nil {
		if errors.Is(err, secondary.ErrStale) {
			c.metrics.RecordCommitConflict("version")
			c.logger.Debug("commit rejected on stale snapshot",
				"consultant", consultantID, "expected_version", req.ExpectedVersion)
			return fmt.Errorf("%w: %s", ErrVersionMismatch, consultantID)
		}
		return persistenceErr("commit assignment", err)
	}

	c.logger.Debug("assignment committed",
		"assignment", req.Assignment.ID, "consultant", consultantID, "supersedes", req.Supersedes)
	return nil
}

// Transition moves an active assignment held by consultantID to a terminal status.
func (c *Committer) Transition(ctx context.Context, consultantID string, req secondary.TransitionRequest) (*secondary.AssignmentRecord, error) {
	release, err := c.acquire(ctx, consultantID)
	if err != nil {
		return nil, err
	}
	defer release()

	record, err := c.store.TransitionAssignment(ctx, req)
	if err != nil {
		if errors.Is(err, secondary.ErrStale) {
			return nil, fmt.Errorf("%w: assignment %s is no longer active", ErrInvalidTransition, req.AssignmentID)
		}
		if errors.Is(err, secondary.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAssignmentNotFound, req.AssignmentID)
		}
		return nil, persistenceErr("transition assignment", err)
	}
	return record, nil
}

// acquire takes the consultant lock under StrategyLock. The returned release
// func is always non-nil on success.
func (c *Committer) acquire(ctx context.Context, consultantID string) (func(), error) {
	if c.strategy != StrategyLock {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return func() {}, nil
	}

	start := c.clock.Now()
	release, err := c.locker.Acquire(ctx, consultantID, c.lockTimeout)
	c.metrics.ObserveLockWait(c.clock.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, secondary.ErrLockTimeout) {
			c.metrics.RecordCommitConflict("locked")
			c.logger.Warn("consultant lock wait expired", "consultant", consultantID)
			return nil, fmt.Errorf("%w: %s", ErrConsultantLocked, consultantID)
		}
		return nil, err
	}

	// The transaction must not start once the caller has given up.
	if err := ctx.Err(); err != nil {
		release()
		return nil, err
	}
	return release, nil
}
