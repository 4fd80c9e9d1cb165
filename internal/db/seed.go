package db

import (
	"database/sql"
	"fmt"
	"time"
)

// SeedFixtures populates the database with a small development roster and
// a few assignments so that scores and the fairness report are non-trivial.
func SeedFixtures(database *sql.DB, now time.Time) error {
	ts := func(t time.Time) string { return t.UTC().Format(TimeFormat) }

	consultants := []struct {
		id, name, email string
	}{
		{"CONS-001", "Ada Lovelace", "ada@example.com"},
		{"CONS-002", "Grace Hopper", "grace@example.com"},
		{"CONS-003", "Katherine Johnson", "katherine@example.com"},
		{"CONS-004", "Margaret Hamilton", "margaret@example.com"},
	}
	for _, c := range consultants {
		if _, err := database.Exec(
			`INSERT INTO consultants (id, name, email, active, created_at, updated_at) VALUES (?, ?, ?, 1, ?, ?)`,
			c.id, c.name, c.email, ts(now), ts(now),
		); err != nil {
			return fmt.Errorf("seed consultants: %w", err)
		}
	}

	assignments := []struct {
		id, lead, consultant, requester, status string
		age                                     time.Duration
	}{
		{"ASSIGN-SEED-001", "LEAD-1001", "CONS-001", "REQ-SALES-1", "completed", 72 * time.Hour},
		{"ASSIGN-SEED-002", "LEAD-1002", "CONS-001", "REQ-SALES-2", "active", 30 * time.Hour},
		{"ASSIGN-SEED-003", "LEAD-1003", "CONS-002", "REQ-SALES-1", "active", 6 * time.Hour},
		{"ASSIGN-SEED-004", "LEAD-1004", "CONS-003", "REQ-SALES-3", "completed", 2 * time.Hour},
	}
	for _, a := range assignments {
		created := now.Add(-a.age)
		var completedAt any
		if a.status == "completed" {
			completedAt = ts(created.Add(time.Hour))
		}
		if _, err := database.Exec(
			`INSERT INTO assignments (id, lead_ref, consultant_id, requester_id, status, method, created_at, completed_at)
			VALUES (?, ?, ?, ?, ?, 'round_robin', ?, ?)`,
			a.id, a.lead, a.consultant, a.requester, a.status, ts(created), completedAt,
		); err != nil {
			return fmt.Errorf("seed assignments: %w", err)
		}
	}

	// Derive counters from the seeded history.
	_, err := database.Exec(`
		UPDATE consultants SET
			assignment_count = (SELECT COUNT(*) FROM assignments a WHERE a.consultant_id = consultants.id AND a.status != 'cancelled'),
			active_assignment_count = (SELECT COUNT(*) FROM assignments a WHERE a.consultant_id = consultants.id AND a.status = 'active'),
			last_assigned_at = (SELECT MAX(created_at) FROM assignments a WHERE a.consultant_id = consultants.id)
	`)
	if err != nil {
		return fmt.Errorf("seed counters: %w", err)
	}

	return nil
}
