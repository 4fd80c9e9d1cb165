// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the single point where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() so tests run against the
// authoritative schema. Do not hardcode CREATE TABLE statements in test files;
// use setupTestDB() and the seed* helpers instead.
package sqlite_test

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/leadrouter/internal/db"
)

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func ts(t time.Time) string {
	return t.UTC().Format(db.TimeFormat)
}

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// Every in-memory connection is a separate database.
	testDB.SetMaxOpenConns(1)

	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// setupFileDB opens a file database through db.Open so that concurrent
// writers exercise the production DSN.
func setupFileDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := db.Open(filepath.Join(t.TempDir(), "leadrouter.db"))
	if err != nil {
		t.Fatalf("failed to open file db: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedConsultant inserts an active consultant with the given counters.
func seedConsultant(t *testing.T, database *sql.DB, id string, count, active int, lastAssigned *time.Time) {
	t.Helper()

	var last any
	if lastAssigned != nil {
		last = ts(*lastAssigned)
	}
	_, err := database.Exec(
		`INSERT INTO consultants (id, name, active, assignment_count, active_assignment_count, last_assigned_at, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, ?, ?, ?)`,
		id, "Consultant "+id, count, active, last, ts(testNow), ts(testNow),
	)
	if err != nil {
		t.Fatalf("failed to seed consultant: %v", err)
	}
}

// seedAssignment inserts an assignment row without touching counters.
func seedAssignment(t *testing.T, database *sql.DB, id, consultantID, requesterID, status string, createdAt time.Time) {
	t.Helper()

	_, err := database.Exec(
		`INSERT INTO assignments (id, lead_ref, consultant_id, requester_id, status, method, created_at)
		VALUES (?, ?, ?, ?, ?, 'round_robin', ?)`,
		id, "LEAD-"+id, consultantID, requesterID, status, ts(createdAt),
	)
	if err != nil {
		t.Fatalf("failed to seed assignment: %v", err)
	}
}
