package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/leadrouter/internal/core/selection"
	"github.com/example/leadrouter/internal/ports/secondary"
)

// ReassignmentRepository implements secondary.ReassignmentRepository with SQLite.
type ReassignmentRepository struct {
	db *sql.DB
}

// NewReassignmentRepository creates a new SQLite reassignment repository.
func NewReassignmentRepository(db *sql.DB) *ReassignmentRepository {
	return &ReassignmentRepository{db: db}
}

// Record persists a lineage link with the next ordinal for its root.
func (r *ReassignmentRepository) Record(ctx context.Context, record *secondary.ReassignmentRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reassignment transaction: %w", err)
	}
	defer tx.Rollback()

	ordinal, err := nextOrdinal(ctx, tx, record.RootAssignmentID)
	if err != nil {
		return err
	}
	record.Ordinal = ordinal
	if record.RecordedAt.IsZero() {
		record.RecordedAt = record.RequestedAt
	}

	if err := insertReassignment(ctx, tx, record); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reassignment: %w", err)
	}
	return nil
}

// ListByRoot returns a lineage ordered by ordinal.
func (r *ReassignmentRepository) ListByRoot(ctx context.Context, rootAssignmentID string) ([]*secondary.ReassignmentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, root_assignment_id, from_assignment_id, to_assignment_id, from_consultant_id,
			to_consultant_id, ordinal, reason, exclusions, requested_at, recorded_at
		FROM reassignments WHERE root_assignment_id = ? ORDER BY ordinal`,
		rootAssignmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reassignments: %w", err)
	}
	defer rows.Close()

	var records []*secondary.ReassignmentRecord
	for rows.Next() {
		var (
			record      secondary.ReassignmentRecord
			exclusions  string
			requestedAt string
			recordedAt  string
		)
		err := rows.Scan(
			&record.ID, &record.RootAssignmentID, &record.FromAssignmentID, &record.ToAssignmentID,
			&record.FromConsultantID, &record.ToConsultantID, &record.Ordinal, &record.Reason,
			&exclusions, &requestedAt, &recordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reassignment: %w", err)
		}
		record.Exclusions = selection.ParseExclusionList(exclusions)
		if record.RequestedAt, err = parseTime(requestedAt); err != nil {
			return nil, err
		}
		if record.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

func nextOrdinal(ctx context.Context, tx *sql.Tx, rootID string) (int, error) {
	var current int
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(ordinal), 0) FROM reassignments WHERE root_assignment_id = ?`,
		rootID,
	).Scan(&current)
	if err != nil {
		return 0, fmt.Errorf("failed to read lineage count: %w", err)
	}
	return current + 1, nil
}

// insertReassignment writes the link and mirrors its ordinal onto the root.
func insertReassignment(ctx context.Context, tx *sql.Tx, record *secondary.ReassignmentRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO reassignments (id, root_assignment_id, from_assignment_id, to_assignment_id,
			from_consultant_id, to_consultant_id, ordinal, reason, exclusions, requested_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.RootAssignmentID,
		record.FromAssignmentID,
		record.ToAssignmentID,
		record.FromConsultantID,
		record.ToConsultantID,
		record.Ordinal,
		record.Reason,
		selection.NewExclusionList(record.Exclusions...).String(),
		formatTime(record.RequestedAt),
		formatTime(record.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert reassignment: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE assignments SET reassignment_count = ? WHERE id = ?`,
		record.Ordinal, record.RootAssignmentID,
	)
	if err != nil {
		return fmt.Errorf("failed to update lineage count: %w", err)
	}

	return nil
}

// Ensure ReassignmentRepository implements the interface
var _ secondary.ReassignmentRepository = (*ReassignmentRepository)(nil)
