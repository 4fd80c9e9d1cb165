package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/leadrouter/internal/core/assignment"
	"github.com/example/leadrouter/internal/ports/secondary"
)

func newRecord(id, consultantID string) *secondary.AssignmentRecord {
	return &secondary.AssignmentRecord{
		ID:           id,
		LeadRef:      "LEAD-" + id,
		ConsultantID: consultantID,
		RequesterID:  "REQ-1",
		Status:       assignment.StatusActive,
		Method:       assignment.MethodRoundRobin,
		CreatedAt:    testNow,
	}
}

func TestNewCommitter(t *testing.T) {
	store := newMemStore()

	_, err := NewCommitter(store, nil)
	require.Error(t, err, "lock strategy without a locker")

	c, err := NewCommitter(store, nil, WithStrategy(StrategyVersion))
	require.NoError(t, err)
	assert.Equal(t, StrategyVersion, c.Strategy())

	_, err = NewCommitter(store, nil, WithStrategy("optimistic"))
	require.Error(t, err)
}

func TestCommitter_Commit(t *testing.T) {
	for _, strategy := range []string{StrategyLock, StrategyVersion} {
		t.Run(strategy, func(t *testing.T) {
			env := newTestEnv(t, WithStrategy(strategy))
			env.store.seedConsultant("CONS-001", 0, nil)
			ctx := context.Background()

			err := env.committer.Commit(ctx, secondary.CommitRequest{Assignment: newRecord("A-1", "CONS-001")})
			require.NoError(t, err)

			// Same snapshot version again is stale.
			err = env.committer.Commit(ctx, secondary.CommitRequest{Assignment: newRecord("A-2", "CONS-001")})
			require.ErrorIs(t, err, ErrVersionMismatch)
			assert.True(t, IsRetryable(err))

			err = env.committer.Commit(ctx, secondary.CommitRequest{Assignment: newRecord("A-2", "CONS-001"), ExpectedVersion: 1})
			require.NoError(t, err)

			assert.Equal(t, 2, env.store.consultant("CONS-001").AssignmentCount)
			assert.False(t, env.locks.Held("CONS-001"))
		})
	}
}

func TestCommitter_MissingAssignment(t *testing.T) {
	env := newTestEnv(t)

	err := env.committer.Commit(context.Background(), secondary.CommitRequest{})

	require.ErrorIs(t, err, ErrValidation)
}

func TestCommitter_LockTimeoutWritesNothing(t *testing.T) {
	env := newTestEnv(t, WithLockTimeout(10*time.Millisecond))
	env.store.seedConsultant("CONS-001", 0, nil)

	release, err := env.locks.Acquire(context.Background(), "CONS-001", time.Second)
	require.NoError(t, err)

	err = env.committer.Commit(context.Background(), secondary.CommitRequest{Assignment: newRecord("A-1", "CONS-001")})
	require.ErrorIs(t, err, ErrConsultantLocked)
	assert.Equal(t, 0, env.store.commitCount())

	release()
	err = env.committer.Commit(context.Background(), secondary.CommitRequest{Assignment: newRecord("A-1", "CONS-001")})
	require.NoError(t, err)
}

func TestCommitter_CancelledContext(t *testing.T) {
	for _, strategy := range []string{StrategyLock, StrategyVersion} {
		t.Run(strategy, func(t *testing.T) {
			env := newTestEnv(t, WithStrategy(strategy))
			env.store.seedConsultant("CONS-001", 0, nil)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := env.committer.Commit(ctx, secondary.CommitRequest{Assignment: newRecord("A-1", "CONS-001")})
			require.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, 0, env.store.commitCount())
		})
	}
}

func TestCommitter_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.seedConsultant("CONS-001", 0, nil)
	env.store.commitErr = errors.New("database is locked")

	err := env.committer.Commit(context.Background(), secondary.CommitRequest{Assignment: newRecord("A-1", "CONS-001")})

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "commit assignment", perr.Op)
	assert.False(t, IsRetryable(err))
	assert.False(t, env.locks.Held("CONS-001"))
}

func TestCommitter_Transition(t *testing.T) {
	env := newTestEnv(t)
	env.store.seedConsultant("CONS-001", 0, nil)
	ctx := context.Background()
	require.NoError(t, env.committer.Commit(ctx, secondary.CommitRequest{Assignment: newRecord("A-1", "CONS-001")}))

	got, err := env.committer.Transition(ctx, "CONS-001", secondary.TransitionRequest{
		AssignmentID: "A-1", Status: assignment.StatusCompleted, At: testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusCompleted, got.Status)

	_, err = env.committer.Transition(ctx, "CONS-001", secondary.TransitionRequest{
		AssignmentID: "A-1", Status: assignment.StatusCancelled, At: testNow,
	})
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.committer.Transition(ctx, "CONS-001", secondary.TransitionRequest{
		AssignmentID: "A-404", Status: assignment.StatusCancelled, At: testNow,
	})
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}
