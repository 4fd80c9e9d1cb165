package db

import (
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

const schemaVersionSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_consultants_and_assignments",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_reassignment_lineage",
		Up:      migrationV2,
	},
	{
		Version: 3,
		Name:    "add_audit_events",
		Up:      migrationV3,
	},
	{
		Version: 4,
		Name:    "add_requester_pairing_index",
		Up:      migrationV4,
	},
}

// SchemaVersion returns the highest applied migration version.
func SchemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get current schema version: %w", err)
	}
	return version, nil
}

// RunMigrations executes all pending migrations, each in its own transaction.
func RunMigrations(db *sql.DB) error {
	if _, err := db.Exec(schemaVersionSQL); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	currentVersion, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}
		if err := applyMigration(db, migration); err != nil {
			return err
		}
	}

	return nil
}

func applyMigration(db *sql.DB, migration Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
	}
	defer tx.Rollback()

	if err := migration.Up(tx); err != nil {
		return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
	}

	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
	}
	return nil
}

// migrationV1 creates the roster and assignment tables.
func migrationV1(tx *sql.Tx) error {
	_, err := tx.Exec(`
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
	`)
	if err != nil {
		return fmt.Errorf("failed to create core tables: %w", err)
	}
	return nil
}

// migrationV2 adds the reassignment lineage table.
func migrationV2(tx *sql.Tx) error {
	_, err := tx.Exec(`
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
		CREATE INDEX IF NOT EXISTS idx_assignments_original ON assignments(original_assignment_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create reassignments table: %w", err)
	}
	return nil
}

// migrationV3 adds the append-only audit log.
func migrationV3(tx *sql.Tx) error {
	_, err := tx.Exec(`
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
	`)
	if err != nil {
		return fmt.Errorf("failed to create audit_events table: %w", err)
	}
	return nil
}

// migrationV4 indexes the requester pairing lookup.
func migrationV4(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_assignments_requester_created ON assignments(requester_id, created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create requester index: %w", err)
	}
	return nil
}
