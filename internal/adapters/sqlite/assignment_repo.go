package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/leadrouter/internal/ports/secondary"
)

const assignmentColumns = `id, lead_ref, lead_name, consultant_id, requester_id, status, is_manual, manual_reason,
	method, reassignment_count, original_assignment_id, created_at, completed_at, cancelled_at`

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AssignmentRepository implements secondary.AssignmentRepository and
// secondary.AssignmentHistory with SQLite.
type AssignmentRepository struct {
	db *sql.DB
}

// NewAssignmentRepository creates a new SQLite assignment repository.
func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// GetByID retrieves an assignment by its ID.
func (r *AssignmentRepository) GetByID(ctx context.Context, id string) (*secondary.AssignmentRecord, error) {
	return getAssignment(ctx, r.db, id)
}

// List retrieves assignments matching the given filters, newest first.
func (r *AssignmentRepository) List(ctx context.Context, filters secondary.AssignmentFilters) ([]*secondary.AssignmentRecord, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE 1=1`
	args := []any{}

	if filters.ConsultantID != "" {
		query += " AND consultant_id = ?"
		args = append(args, filters.ConsultantID)
	}

	if filters.RequesterID != "" {
		query += " AND requester_id = ?"
		args = append(args, filters.RequesterID)
	}

	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}

	query += " ORDER BY created_at DESC, id ASC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*secondary.AssignmentRecord
	for rows.Next() {
		record, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, record)
	}

	return assignments, rows.Err()
}

// RecentPairings returns the consultants that received a non-cancelled
// assignment from requesterID at or after since.
func (r *AssignmentRepository) RecentPairings(ctx context.Context, requesterID string, since time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT consultant_id FROM assignments
		WHERE requester_id = ? AND status != 'cancelled' AND created_at >= ?
		ORDER BY consultant_id`,
		requesterID, formatTime(since),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent pairings: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan pairing: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func getAssignment(ctx context.Context, q querier, id string) (*secondary.AssignmentRecord, error) {
	row := q.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id)

	record, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("assignment %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	return record, nil
}

func scanAssignment(row rowScanner) (*secondary.AssignmentRecord, error) {
	var (
		record       secondary.AssignmentRecord
		leadName     sql.NullString
		isManual     int
		manualReason sql.NullString
		originalID   sql.NullString
		createdAt    string
		completedAt  sql.NullString
		cancelledAt  sql.NullString
	)

	err := row.Scan(
		&record.ID, &record.LeadRef, &leadName, &record.ConsultantID, &record.RequesterID, &record.Status,
		&isManual, &manualReason, &record.Method, &record.ReassignmentCount, &originalID,
		&createdAt, &completedAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	record.LeadName = leadName.String
	record.IsManual = isManual == 1
	record.ManualReason = manualReason.String
	record.OriginalAssignmentID = originalID.String

	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if record.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}
	if record.CancelledAt, err = parseNullTime(cancelledAt); err != nil {
		return nil, err
	}

	return &record, nil
}

// Ensure AssignmentRepository implements the interfaces
var (
	_ secondary.AssignmentRepository = (*AssignmentRepository)(nil)
	_ secondary.AssignmentHistory    = (*AssignmentRepository)(nil)
)
