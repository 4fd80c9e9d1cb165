package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/leadrouter/internal/ports/secondary"
)

const assignmentColumns = `id, lead_ref, lead_name, consultant_id, requester_id, status, is_manual, manual_reason,
	method, reassignment_count, original_assignment_id, created_at, completed_at, cancelled_at`

// AssignmentRepository implements secondary.AssignmentRepository and
// secondary.AssignmentHistory with PostgreSQL.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository creates a new PostgreSQL assignment repository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// GetByID retrieves an assignment by its ID.
func (r *AssignmentRepository) GetByID(ctx context.Context, id string) (*secondary.AssignmentRecord, error) {
	return getAssignment(ctx, r.pool, id, false)
}

// List retrieves assignments matching the given filters, newest first.
func (r *AssignmentRepository) List(ctx context.Context, filters secondary.AssignmentFilters) ([]*secondary.AssignmentRecord, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE TRUE`
	args := []any{}

	add := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(" AND %s = $%d", clause, len(args))
	}
	if filters.ConsultantID != "" {
		add("consultant_id", filters.ConsultantID)
	}
	if filters.RequesterID != "" {
		add("requester_id", filters.RequesterID)
	}
	if filters.Status != "" {
		add("status", filters.Status)
	}

	query += " ORDER BY created_at DESC, id ASC"

	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
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

// RecentPairings returns consultants that received a non-cancelled
// assignment from requesterID at or after since.
func (r *AssignmentRepository) RecentPairings(ctx context.Context, requesterID string, since time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT consultant_id FROM assignments
		WHERE requester_id = $1 AND status <> 'cancelled' AND created_at >= $2
		ORDER BY consultant_id`,
		requesterID, since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent pairings: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan recent pairings: %w", err)
	}
	return ids, nil
}

// rowQuerier is satisfied by *pgxpool.Pool and pgx.Tx.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getAssignment(ctx context.Context, q rowQuerier, id string, forUpdate bool) (*secondary.AssignmentRecord, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	record, err := scanAssignment(q.QueryRow(ctx, query, id))
	if isNoRows(err) {
		return nil, fmt.Errorf("assignment %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return record, nil
}

func scanAssignment(row pgx.Row) (*secondary.AssignmentRecord, error) {
	var record secondary.AssignmentRecord
	err := row.Scan(
		&record.ID, &record.LeadRef, &record.LeadName, &record.ConsultantID, &record.RequesterID,
		&record.Status, &record.IsManual, &record.ManualReason, &record.Method, &record.ReassignmentCount,
		&record.OriginalAssignmentID, &record.CreatedAt, &record.CompletedAt, &record.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Ensure AssignmentRepository implements the interfaces
var (
	_ secondary.AssignmentRepository = (*AssignmentRepository)(nil)
	_ secondary.AssignmentHistory    = (*AssignmentRepository)(nil)
)
