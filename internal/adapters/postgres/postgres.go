// Package postgres contains PostgreSQL implementations of repository
// interfaces built on pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SchemaSQL is the PostgreSQL schema. It mirrors the SQLite schema with
// native types.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS consultants (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	assignment_count INTEGER NOT NULL DEFAULT 0 CHECK(assignment_count >= 0),
	active_assignment_count INTEGER NOT NULL DEFAULT 0 CHECK(active_assignment_count >= 0),
	last_assigned_at TIMESTAMPTZ,
	version BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS assignments (
	id TEXT PRIMARY KEY,
	lead_ref TEXT NOT NULL,
	lead_name TEXT NOT NULL DEFAULT '',
	consultant_id TEXT NOT NULL REFERENCES consultants(id),
	requester_id TEXT NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('active', 'completed', 'cancelled')),
	is_manual BOOLEAN NOT NULL DEFAULT FALSE,
	manual_reason TEXT NOT NULL DEFAULT '',
	method TEXT NOT NULL CHECK(method IN ('round_robin', 'manual', 'manager_override', 'reassignment')),
	reassignment_count INTEGER NOT NULL DEFAULT 0,
	original_assignment_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	cancelled_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_assignments_consultant_status ON assignments(consultant_id, status);
CREATE INDEX IF NOT EXISTS idx_assignments_requester_created ON assignments(requester_id, created_at);

CREATE TABLE IF NOT EXISTS reassignments (
	id TEXT PRIMARY KEY,
	root_assignment_id TEXT NOT NULL REFERENCES assignments(id),
	from_assignment_id TEXT NOT NULL,
	to_assignment_id TEXT NOT NULL,
	from_consultant_id TEXT NOT NULL,
	to_consultant_id TEXT NOT NULL,
	ordinal INTEGER NOT NULL CHECK(ordinal >= 1),
	reason TEXT NOT NULL,
	exclusions TEXT[] NOT NULL DEFAULT '{}',
	requested_at TIMESTAMPTZ NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	UNIQUE(root_assignment_id, ordinal)
);

CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	actor_id TEXT NOT NULL DEFAULT '',
	entity_id TEXT NOT NULL DEFAULT '',
	payload JSONB NOT NULL DEFAULT '{}',
	occurred_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_events_type ON audit_events(event_type, occurred_at);
`

// Connect opens a pool for dsn, verifies connectivity and applies SchemaSQL.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, SchemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply postgres schema: %w", err)
	}

	return pool, nil
}

// inTx runs fn in a transaction, committing on success.
func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
