package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	testingclock "k8s.io/utils/clock/testing"

	"github.com/example/leadrouter/internal/adapters/sqlite"
	"github.com/example/leadrouter/internal/ports/secondary"
)

func TestConsultantRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewConsultantRepository(db, testingclock.NewFakePassiveClock(testNow))
	ctx := context.Background()

	t.Run("creates consultant successfully", func(t *testing.T) {
		err := repo.Create(ctx, &secondary.ConsultantRecord{
			ID:        "CONS-001",
			Name:      "Ada Lovelace",
			Email:     "ada@example.com",
			Active:    true,
			CreatedAt: testNow,
			UpdatedAt: testNow,
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		got, err := repo.GetByID(ctx, "CONS-001")
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if got.Name != "Ada Lovelace" {
			t.Errorf("Name = %q, want %q", got.Name, "Ada Lovelace")
		}
		if got.Email != "ada@example.com" {
			t.Errorf("Email = %q, want %q", got.Email, "ada@example.com")
		}
		if !got.Active {
			t.Error("expected consultant to be active")
		}
		if got.LastAssignedAt != nil {
			t.Errorf("LastAssignedAt = %v, want nil", got.LastAssignedAt)
		}
		if !got.CreatedAt.Equal(testNow) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, testNow)
		}
	})

	t.Run("returns ErrNotFound for non-existent ID", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "CONS-999")
		if !errors.Is(err, secondary.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestConsultantRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewConsultantRepository(db, nil)
	ctx := context.Background()

	seedConsultant(t, db, "CONS-002", 0, 0, nil)
	seedConsultant(t, db, "CONS-001", 0, 0, nil)
	seedConsultant(t, db, "CONS-003", 0, 0, nil)
	if err := repo.SetActive(ctx, "CONS-003", false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	active, err := repo.List(ctx, secondary.ConsultantFilters{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active consultants, got %d", len(active))
	}
	if active[0].ID != "CONS-001" {
		t.Errorf("expected ordering by ID, got %q first", active[0].ID)
	}

	all, err := repo.List(ctx, secondary.ConsultantFilters{IncludeInactive: true})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 consultants, got %d", len(all))
	}
}

func TestConsultantRepository_ListActive(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewConsultantRepository(db, nil)
	ctx := context.Background()

	seedConsultant(t, db, "CONS-001", 4, 1, nil)
	seedConsultant(t, db, "CONS-002", 0, 0, nil)
	seedAssignment(t, db, "A-1", "CONS-001", "REQ-1", "active", testNow.Add(-1*time.Hour))
	seedAssignment(t, db, "A-2", "CONS-001", "REQ-1", "completed", testNow.Add(-30*time.Hour))
	seedAssignment(t, db, "A-3", "CONS-001", "REQ-2", "cancelled", testNow.Add(-2*time.Hour))
	seedAssignment(t, db, "A-4", "CONS-001", "REQ-3", "completed", testNow.Add(-10*24*time.Hour))
	seedAssignment(t, db, "A-5", "CONS-001", "REQ-3", "completed", testNow.Add(-24*time.Hour))

	got, err := repo.ListActive(ctx, testNow)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 consultants, got %d", len(got))
	}

	c := got[0]
	if c.ID != "CONS-001" {
		t.Fatalf("expected CONS-001 first, got %q", c.ID)
	}
	// A-1 and A-5 (exactly on the boundary) count for 24h; A-2 joins them for 7d.
	if c.AssignmentsLast24h != 2 {
		t.Errorf("AssignmentsLast24h = %d, want 2", c.AssignmentsLast24h)
	}
	if c.AssignmentsLast7d != 3 {
		t.Errorf("AssignmentsLast7d = %d, want 3", c.AssignmentsLast7d)
	}
	if got[1].AssignmentsLast24h != 0 || got[1].AssignmentsLast7d != 0 {
		t.Errorf("CONS-002 windows = (%d, %d), want (0, 0)", got[1].AssignmentsLast24h, got[1].AssignmentsLast7d)
	}
}

func TestConsultantRepository_SetActive(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewConsultantRepository(db, nil)
	ctx := context.Background()

	seedConsultant(t, db, "CONS-001", 1, 1, nil)
	seedConsultant(t, db, "CONS-002", 0, 0, nil)

	t.Run("refuses deactivation with active assignments", func(t *testing.T) {
		err := repo.SetActive(ctx, "CONS-001", false)
		if !errors.Is(err, secondary.ErrStale) {
			t.Errorf("expected ErrStale, got %v", err)
		}
	})

	t.Run("deactivates and bumps version", func(t *testing.T) {
		if err := repo.SetActive(ctx, "CONS-002", false); err != nil {
			t.Fatalf("SetActive failed: %v", err)
		}
		got, _ := repo.GetByID(ctx, "CONS-002")
		if got.Active {
			t.Error("expected consultant to be inactive")
		}
		if got.Version != 1 {
			t.Errorf("Version = %d, want 1", got.Version)
		}
	})

	t.Run("returns ErrNotFound for unknown consultant", func(t *testing.T) {
		err := repo.SetActive(ctx, "CONS-404", true)
		if !errors.Is(err, secondary.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestConsultantRepository_Recount(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewConsultantRepository(db, nil)
	ctx := context.Background()

	seedConsultant(t, db, "CONS-001", 42, 7, nil)
	seedAssignment(t, db, "A-1", "CONS-001", "REQ-1", "active", testNow.Add(-3*time.Hour))
	seedAssignment(t, db, "A-2", "CONS-001", "REQ-1", "completed", testNow.Add(-2*time.Hour))
	seedAssignment(t, db, "A-3", "CONS-001", "REQ-1", "cancelled", testNow.Add(-1*time.Hour))

	got, err := repo.Recount(ctx, "CONS-001")
	if err != nil {
		t.Fatalf("Recount failed: %v", err)
	}
	if got.AssignmentCount != 2 {
		t.Errorf("AssignmentCount = %d, want 2", got.AssignmentCount)
	}
	if got.ActiveAssignmentCount != 1 {
		t.Errorf("ActiveAssignmentCount = %d, want 1", got.ActiveAssignmentCount)
	}
	if got.LastAssignedAt == nil || !got.LastAssignedAt.Equal(testNow.Add(-1*time.Hour)) {
		t.Errorf("LastAssignedAt = %v, want %v", got.LastAssignedAt, testNow.Add(-1*time.Hour))
	}

	if _, err := repo.Recount(ctx, "CONS-404"); !errors.Is(err, secondary.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestConsultantRepository_GetNextID(t *testing.T) {
	db := setupTestDB(t)
	repo := sqlite.NewConsultantRepository(db, nil)
	ctx := context.Background()

	id, err := repo.GetNextID(ctx)
	if err != nil {
		t.Fatalf("GetNextID failed: %v", err)
	}
	if id != "CONS-001" {
		t.Errorf("expected CONS-001, got %s", id)
	}

	seedConsultant(t, db, "CONS-009", 0, 0, nil)

	id, _ = repo.GetNextID(ctx)
	if id != "CONS-010" {
		t.Errorf("expected CONS-010, got %s", id)
	}
}
