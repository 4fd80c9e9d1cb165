package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/example/leadrouter/internal/ports/secondary"
)

func TestTable_AcquireRelease(t *testing.T) {
	table := NewTable(nil)
	ctx := context.Background()

	release, err := table.Acquire(ctx, "CONS-001", time.Second)
	require.NoError(t, err)
	require.True(t, table.Held("CONS-001"))

	release()
	require.False(t, table.Held("CONS-001"))

	release, err = table.Acquire(ctx, "CONS-001", time.Second)
	require.NoError(t, err)
	release()
}

func TestTable_DifferentConsultantsDoNotBlock(t *testing.T) {
	table := NewTable(nil)
	ctx := context.Background()

	releaseA, err := table.Acquire(ctx, "CONS-A", time.Second)
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := table.Acquire(ctx, "CONS-B", time.Millisecond)
	require.NoError(t, err)
	releaseB()
}

func TestTable_TimesOut(t *testing.T) {
	fakeClock := testingclock.NewFakeClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	table := NewTable(fakeClock)
	ctx := context.Background()

	release, err := table.Acquire(ctx, "CONS-001", 5*time.Second)
	require.NoError(t, err)
	defer release()

	errCh := make(chan error, 1)
	go func() {
		_, err := table.Acquire(ctx, "CONS-001", 5*time.Second)
		errCh <- err
	}()

	require.Eventually(t, fakeClock.HasWaiters, time.Second, time.Millisecond)
	fakeClock.Step(5 * time.Second)

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, secondary.ErrLockTimeout)
	case <-time.After(time.Second):
		t.Fatal("waiter did not time out")
	}
}

func TestTable_WaiterGetsLockAfterRelease(t *testing.T) {
	fakeClock := testingclock.NewFakeClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	table := NewTable(fakeClock)
	ctx := context.Background()

	release, err := table.Acquire(ctx, "CONS-001", 5*time.Second)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		r, err := table.Acquire(ctx, "CONS-001", 5*time.Second)
		if err == nil {
			r()
		}
		errCh <- err
	}()

	require.Eventually(t, fakeClock.HasWaiters, time.Second, time.Millisecond)
	release()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func TestTable_HonoursContextCancellation(t *testing.T) {
	table := NewTable(nil)

	release, err := table.Acquire(context.Background(), "CONS-001", time.Second)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = table.Acquire(ctx, "CONS-001", time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}
