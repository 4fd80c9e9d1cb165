package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/leadrouter/internal/ports/secondary"
)

// ReassignmentRepository implements secondary.ReassignmentRepository with PostgreSQL.
type ReassignmentRepository struct {
	pool *pgxpool.Pool
}

// NewReassignmentRepository creates a new PostgreSQL reassignment repository.
func NewReassignmentRepository(pool *pgxpool.Pool) *ReassignmentRepository {
	return &ReassignmentRepository{pool: pool}
}

// Record persists a lineage link with the next ordinal for its root.
func (r *ReassignmentRepository) Record(ctx context.Context, record *secondary.ReassignmentRecord) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		ordinal, err := nextOrdinal(ctx, tx, record.RootAssignmentID)
		if err != nil {
			return err
		}
		record.Ordinal = ordinal
		if record.RecordedAt.IsZero() {
			record.RecordedAt = record.RequestedAt
		}
		return insertReassignment(ctx, tx, record)
	})
}

// ListByRoot returns a lineage ordered by ordinal.
func (r *ReassignmentRepository) ListByRoot(ctx context.Context, rootAssignmentID string) ([]*secondary.ReassignmentRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, root_assignment_id, from_assignment_id, to_assignment_id, from_consultant_id,
			to_consultant_id, ordinal, reason, exclusions, requested_at, recorded_at
		FROM reassignments WHERE root_assignment_id = $1 ORDER BY ordinal`,
		rootAssignmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reassignments: %w", err)
	}
	defer rows.Close()

	var records []*secondary.ReassignmentRecord
	for rows.Next() {
		var record secondary.ReassignmentRecord
		err := rows.Scan(
			&record.ID, &record.RootAssignmentID, &record.FromAssignmentID, &record.ToAssignmentID,
			&record.FromConsultantID, &record.ToConsultantID, &record.Ordinal, &record.Reason,
			&record.Exclusions, &record.RequestedAt, &record.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reassignment: %w", err)
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

// nextOrdinal locks the root row so concurrent links serialize per lineage.
func nextOrdinal(ctx context.Context, tx pgx.Tx, rootID string) (int, error) {
	if _, err := tx.Exec(ctx, `SELECT 1 FROM assignments WHERE id = $1 FOR UPDATE`, rootID); err != nil {
		return 0, fmt.Errorf("failed to lock lineage root: %w", err)
	}

	var current int
	err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(ordinal), 0) FROM reassignments WHERE root_assignment_id = $1`,
		rootID,
	).Scan(&current)
	if err != nil {
		return 0, fmt.Errorf("failed to read lineage count: %w", err)
	}
	return current + 1, nil
}

// insertReassignment writes the link and mirrors its ordinal onto the root.
func insertReassignment(ctx context.Context, tx pgx.Tx, record *secondary.ReassignmentRecord) error {
	exclusions := record.Exclusions
	if exclusions == nil {
		exclusions = []string{}
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO reassignments (id, root_assignment_id, from_assignment_id, to_assignment_id,
			from_consultant_id, to_consultant_id, ordinal, reason, exclusions, requested_at, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID, record.RootAssignmentID, record.FromAssignmentID, record.ToAssignmentID,
		record.FromConsultantID, record.ToConsultantID, record.Ordinal, record.Reason,
		exclusions, record.RequestedAt.UTC(), record.RecordedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert reassignment: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE assignments SET reassignment_count = $1 WHERE id = $2`,
		record.Ordinal, record.RootAssignmentID,
	); err != nil {
		return fmt.Errorf("failed to update lineage count: %w", err)
	}
	return nil
}

// Ensure ReassignmentRepository implements the interface
var _ secondary.ReassignmentRepository = (*ReassignmentRepository)(nil)
