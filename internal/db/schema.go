package db

import (
	"database/sql"
	"fmt"
)

// TimeFormat is the layout of every timestamp column. All values are stored
// in UTC with fixed-width fractional seconds so that string comparison in SQL
// matches chronological order.
const TimeFormat = "2006-01-02 15:04:05.000000000"

// SchemaSQL is the complete schema for fresh leadrouter installs.
// This schema reflects the current state after all migrations.
//
// This is the single source of truth for the database schema. All repository
// tests load it via GetSchemaSQL() so a column referenced by repository code
// but missing here fails immediately with "no such column".
//
// When adding new columns or tables:
//  1. Add a migration in migrations.go
//  2. Update SchemaSQL here
//  3. Run `make test` to verify alignment
const SchemaSQL = `
-- Consultants (the roster; counters are maintained by the assignment store)
CREATE TABLE IF NOT EXISTS consultants (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT,
	active INTEGER NOT NULL DEFAULT 1 CHECK(active IN (0, 1)),
	assignment_count INTEGER NOT NULL DEFAULT 0 CHECK(assignment_count >= 0),
	active_assignment_count INTEGER NOT NULL DEFAULT 0 CHECK(active_assignment_count >= 0),
	last_assigned_at TEXT,
	version INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_consultants_active ON consultants(active);

-- Assignments (one lead routed to one consultant)
CREATE TABLE IF NOT EXISTS assignments (
	id TEXT PRIMARY KEY,
	lead_ref TEXT NOT NULL,
	lead_name TEXT,
	consultant_id TEXT NOT NULL,
	requester_id TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('active', 'completed', 'cancelled')) DEFAULT 'active',
	is_manual INTEGER NOT NULL DEFAULT 0 CHECK(is_manual IN (0, 1)),
	manual_reason TEXT,
	method TEXT NOT NULL CHECK(method IN ('round_robin', 'manual', 'manager_override', 'reassignment')),
	reassignment_count INTEGER NOT NULL DEFAULT 0,
	original_assignment_id TEXT,
	created_at TEXT NOT NULL,
	completed_at TEXT,
	cancelled_at TEXT,
	FOREIGN KEY (consultant_id) REFERENCES consultants(id)
);

CREATE INDEX IF NOT EXISTS idx_assignments_consultant_status ON assignments(consultant_id, status);
CREATE INDEX IF NOT EXISTS idx_assignments_consultant_created ON assignments(consultant_id, created_at);
CREATE INDEX IF NOT EXISTS idx_assignments_requester_created ON assignments(requester_id, created_at);
CREATE INDEX IF NOT EXISTS idx_assignments_original ON assignments(original_assignment_id);

-- Reassignments (lineage links; one row per hand-over)
CREATE TABLE IF NOT EXISTS reassignments (
	id TEXT PRIMARY KEY,
	root_assignment_id TEXT NOT NULL,
	from_assignment_id TEXT NOT NULL,
	to_assignment_id TEXT NOT NULL,
	from_consultant_id TEXT NOT NULL,
	to_consultant_id TEXT NOT NULL,
	ordinal INTEGER NOT NULL CHECK(ordinal >= 1),
	reason TEXT NOT NULL,
	exclusions TEXT NOT NULL DEFAULT '',
	requested_at TEXT NOT NULL,
	recorded_at TEXT NOT NULL,
	FOREIGN KEY (root_assignment_id) REFERENCES assignments(id),
	UNIQUE(root_assignment_id, ordinal)
);

CREATE INDEX IF NOT EXISTS idx_reassignments_root ON reassignments(root_assignment_id);

-- Audit events (append-only)
CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	actor_id TEXT,
	entity_id TEXT,
	payload TEXT NOT NULL DEFAULT '{}',
	occurred_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_events_type ON audit_events(type);
CREATE INDEX IF NOT EXISTS idx_audit_events_entity ON audit_events(entity_id);
`

// InitSchema creates the schema on a fresh database and runs pending
// migrations on an existing one.
func InitSchema(db *sql.DB) error {
	var tableCount int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("failed to inspect schema: %w", err)
	}

	if tableCount > 0 {
		return RunMigrations(db)
	}

	// Fresh install: create the modern schema directly and mark every
	// migration as applied.
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(SchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := tx.Exec(schemaVersionSQL); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	for _, m := range migrations {
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}

	return tx.Commit()
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
