package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/example/leadrouter/internal/adapters/postgres"
	"github.com/example/leadrouter/internal/ports/secondary"
)

// These tests need a disposable database; every table is truncated.
const dsnEnv = "LEADROUTER_TEST_POSTGRES_DSN"

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE audit_events, reassignments, assignments, consultants`)
	require.NoError(t, err)

	return pool
}

func createConsultant(t *testing.T, repo *postgres.ConsultantRepository, id string) *secondary.ConsultantRecord {
	t.Helper()

	record := &secondary.ConsultantRecord{
		ID:        id,
		Name:      "Consultant " + id,
		Active:    true,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	require.NoError(t, repo.Create(context.Background(), record))
	return record
}

func newAssignment(id, consultantID, requesterID string, at time.Time) *secondary.AssignmentRecord {
	return &secondary.AssignmentRecord{
		ID:           id,
		LeadRef:      "LEAD-" + id,
		ConsultantID: consultantID,
		RequesterID:  requesterID,
		Status:       "active",
		Method:       "round_robin",
		CreatedAt:    at,
	}
}

func TestConsultantRepository(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	repo := postgres.NewConsultantRepository(pool, testingclock.NewFakePassiveClock(testNow))

	nextID, err := repo.GetNextID(ctx)
	require.NoError(t, err)
	require.Equal(t, "CONS-001", nextID)

	createConsultant(t, repo, "CONS-001")
	createConsultant(t, repo, "CONS-002")

	nextID, err = repo.GetNextID(ctx)
	require.NoError(t, err)
	require.Equal(t, "CONS-003", nextID)

	require.NoError(t, repo.SetActive(ctx, "CONS-002", false))

	active, err := repo.ListActive(ctx, testNow)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "CONS-001", active[0].ID)

	all, err := repo.List(ctx, secondary.ConsultantFilters{IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = repo.GetByID(ctx, "CONS-404")
	require.True(t, errors.Is(err, secondary.ErrNotFound))
}

func TestAssignmentStore_CommitAndTransition(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	consultants := postgres.NewConsultantRepository(pool, testingclock.NewFakePassiveClock(testNow))
	assignments := postgres.NewAssignmentRepository(pool)
	store := postgres.NewAssignmentStore(pool)

	createConsultant(t, consultants, "CONS-001")

	err := store.CommitAssignment(ctx, secondary.CommitRequest{
		Assignment:      newAssignment("A-1", "CONS-001", "REQ-1", testNow),
		ExpectedVersion: 0,
	})
	require.NoError(t, err)

	err = store.CommitAssignment(ctx, secondary.CommitRequest{
		Assignment:      newAssignment("A-2", "CONS-001", "REQ-2", testNow),
		ExpectedVersion: 0,
	})
	require.ErrorIs(t, err, secondary.ErrStale)

	c, err := consultants.GetByID(ctx, "CONS-001")
	require.NoError(t, err)
	require.Equal(t, 1, c.AssignmentCount)
	require.Equal(t, 1, c.ActiveAssignmentCount)
	require.Equal(t, int64(1), c.Version)

	pairings, err := assignments.RecentPairings(ctx, "REQ-1", testNow.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, []string{"CONS-001"}, pairings)

	updated, err := store.TransitionAssignment(ctx, secondary.TransitionRequest{
		AssignmentID: "A-1",
		Status:       "cancelled",
		At:           testNow.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, "cancelled", updated.Status)
	require.NotNil(t, updated.CancelledAt)

	c, err = consultants.GetByID(ctx, "CONS-001")
	require.NoError(t, err)
	require.Equal(t, 0, c.AssignmentCount)
	require.Equal(t, 0, c.ActiveAssignmentCount)

	_, err = store.TransitionAssignment(ctx, secondary.TransitionRequest{
		AssignmentID: "A-1",
		Status:       "completed",
		At:           testNow.Add(time.Hour),
	})
	require.ErrorIs(t, err, secondary.ErrStale)
}

func TestAssignmentStore_SupersedeRecordsLineage(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	consultants := postgres.NewConsultantRepository(pool, testingclock.NewFakePassiveClock(testNow))
	store := postgres.NewAssignmentStore(pool)
	reassignments := postgres.NewReassignmentRepository(pool)
	assignments := postgres.NewAssignmentRepository(pool)

	createConsultant(t, consultants, "CONS-001")
	createConsultant(t, consultants, "CONS-002")

	require.NoError(t, store.CommitAssignment(ctx, secondary.CommitRequest{
		Assignment: newAssignment("A-1", "CONS-001", "REQ-1", testNow),
	}))

	next := newAssignment("A-2", "CONS-002", "REQ-1", testNow.Add(time.Minute))
	next.Method = "reassignment"
	next.OriginalAssignmentID = "A-1"
	link := &secondary.ReassignmentRecord{
		ID:               "R-1",
		RootAssignmentID: "A-1",
		FromAssignmentID: "A-1",
		ToAssignmentID:   "A-2",
		FromConsultantID: "CONS-001",
		ToConsultantID:   "CONS-002",
		Reason:           "language",
		Exclusions:       []string{"CONS-001"},
		RequestedAt:      testNow.Add(time.Minute),
	}
	require.NoError(t, store.CommitAssignment(ctx, secondary.CommitRequest{
		Assignment:   next,
		Supersedes:   "A-1",
		Reassignment: link,
	}))
	require.Equal(t, 1, link.Ordinal)
	require.Equal(t, 1, next.ReassignmentCount)

	root, err := assignments.GetByID(ctx, "A-1")
	require.NoError(t, err)
	require.Equal(t, "cancelled", root.Status)
	require.Equal(t, 1, root.ReassignmentCount)

	previous, err := consultants.GetByID(ctx, "CONS-001")
	require.NoError(t, err)
	require.Equal(t, 0, previous.AssignmentCount)

	lineage, err := reassignments.ListByRoot(ctx, "A-1")
	require.NoError(t, err)
	require.Len(t, lineage, 1)
	require.Equal(t, []string{"CONS-001"}, lineage[0].Exclusions)
}

func TestAuditWriter(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	writer := postgres.NewAuditWriter(pool)

	require.NoError(t, writer.Record(ctx, secondary.AuditEvent{
		ID:         "AUD-1",
		Type:       secondary.AuditAssignmentCreated,
		EntityID:   "A-1",
		Payload:    map[string]any{"consultant_id": "CONS-001"},
		OccurredAt: testNow,
	}))

	events, err := writer.List(ctx, secondary.AuditFilters{Type: secondary.AuditAssignmentCreated})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "CONS-001", events[0].Payload["consultant_id"])
}
