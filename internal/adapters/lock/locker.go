// Package lock provides an in-process per-consultant lock table.
package lock

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"k8s.io/utils/clock"

	"github.com/example/leadrouter/internal/ports/secondary"
)

// Table implements secondary.ConsultantLocker with one single-slot semaphore
// per consultant. Waiters are not served in FIFO order.
type Table struct {
	clock clock.Clock
	slots *xsync.MapOf[string, chan struct{}]
}

// NewTable creates a lock table timing waits with clk (clock.RealClock{} if nil).
func NewTable(clk clock.Clock) *Table {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Table{
		clock: clk,
		slots: xsync.NewMapOf[string, chan struct{}](),
	}
}

// Acquire blocks until the consultant's slot is free, timeout elapses or ctx is done.
func (t *Table) Acquire(ctx context.Context, consultantID string, timeout time.Duration) (func(), error) {
	slot, _ := t.slots.LoadOrStore(consultantID, make(chan struct{}, 1))

	release := func() { <-slot }

	// Fast path avoids allocating a timer for uncontended locks.
	select {
	case slot <- struct{}{}:
		return release, nil
	default:
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer := t.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case slot <- struct{}{}:
		return release, nil
	case <-timer.C():
		return nil, secondary.ErrLockTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Held reports whether consultantID's lock is currently taken.
func (t *Table) Held(consultantID string) bool {
	slot, ok := t.slots.Load(consultantID)
	return ok && len(slot) == 1
}

// Ensure Table implements the interface
var _ secondary.ConsultantLocker = (*Table)(nil)
