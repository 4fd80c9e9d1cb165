package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/leadrouter/internal/core/assignment"
	"github.com/example/leadrouter/internal/ports/secondary"
)

// AssignmentStore implements secondary.AssignmentStore with PostgreSQL.
// The consultant row is locked with SELECT ... FOR UPDATE for the duration
// of the commit transaction.
type AssignmentStore struct {
	pool *pgxpool.Pool
}

// NewAssignmentStore creates a new PostgreSQL assignment store.
func NewAssignmentStore(pool *pgxpool.Pool) *AssignmentStore {
	return &AssignmentStore{pool: pool}
}

// CommitAssignment inserts req.Assignment and moves the consultant's
// counters in one transaction, conditional on version and active flag.
func (s *AssignmentStore) CommitAssignment(ctx context.Context, req secondary.CommitRequest) error {
	a := req.Assignment
	at := a.CreatedAt.UTC()

	return inTx(ctx, s.pool, func(tx pgx.Tx) error {
		var (
			version int64
			active  bool
		)
		err := tx.QueryRow(ctx,
			`SELECT version, active FROM consultants WHERE id = $1 FOR UPDATE`,
			a.ConsultantID,
		).Scan(&version, &active)
		if err != nil && !isNoRows(err) {
			return fmt.Errorf("failed to lock consultant: %w", err)
		}
		if isNoRows(err) || version != req.ExpectedVersion || !active {
			return fmt.Errorf("consultant %s at version %d: %w", a.ConsultantID, req.ExpectedVersion, secondary.ErrStale)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE consultants SET
				assignment_count = assignment_count + 1,
				active_assignment_count = active_assignment_count + 1,
				last_assigned_at = $1,
				version = version + 1,
				updated_at = $1
			WHERE id = $2`,
			at, a.ConsultantID,
		); err != nil {
			return fmt.Errorf("failed to update consultant counters: %w", err)
		}

		if req.Supersedes != "" {
			if err := supersede(ctx, tx, req.Supersedes, at); err != nil {
				return err
			}
		}

		if req.Reassignment != nil {
			ordinal, err := nextOrdinal(ctx, tx, req.Reassignment.RootAssignmentID)
			if err != nil {
				return err
			}
			req.Reassignment.Ordinal = ordinal
			req.Reassignment.RecordedAt = a.CreatedAt
			a.ReassignmentCount = ordinal
		}

		if err := insertAssignment(ctx, tx, a); err != nil {
			return err
		}

		if req.Reassignment != nil {
			return insertReassignment(ctx, tx, req.Reassignment)
		}
		return nil
	})
}

// TransitionAssignment moves an active assignment to completed or cancelled.
func (s *AssignmentStore) TransitionAssignment(ctx context.Context, req secondary.TransitionRequest) (*secondary.AssignmentRecord, error) {
	var column, countDelta string
	switch req.Status {
	case assignment.StatusCompleted:
		column, countDelta = "completed_at", ""
	case assignment.StatusCancelled:
		column, countDelta = "cancelled_at", ", assignment_count = assignment_count - 1"
	default:
		return nil, fmt.Errorf("unsupported target status %q", req.Status)
	}

	var updated *secondary.AssignmentRecord
	err := inTx(ctx, s.pool, func(tx pgx.Tx) error {
		current, err := getAssignment(ctx, tx, req.AssignmentID, true)
		if err != nil {
			return err
		}
		if current.Status != assignment.StatusActive {
			return fmt.Errorf("assignment %s is %s: %w", req.AssignmentID, current.Status, secondary.ErrStale)
		}

		if _, err := tx.Exec(ctx,
			fmt.Sprintf(`UPDATE assignments SET status = $1, %s = $2 WHERE id = $3`, column),
			req.Status, req.At.UTC(), req.AssignmentID,
		); err != nil {
			return fmt.Errorf("failed to update assignment status: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE consultants SET active_assignment_count = active_assignment_count - 1`+countDelta+`,
				version = version + 1, updated_at = $1
			WHERE id = $2`,
			req.At.UTC(), current.ConsultantID,
		); err != nil {
			return fmt.Errorf("failed to update consultant counters: %w", err)
		}

		updated, err = getAssignment(ctx, tx, req.AssignmentID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// supersede cancels an active assignment and releases its holder's counters.
func supersede(ctx context.Context, tx pgx.Tx, assignmentID string, at time.Time) error {
	var holder string
	err := tx.QueryRow(ctx,
		`UPDATE assignments SET status = 'cancelled', cancelled_at = $1
		WHERE id = $2 AND status = 'active'
		RETURNING consultant_id`,
		at, assignmentID,
	).Scan(&holder)
	if isNoRows(err) {
		return fmt.Errorf("superseded assignment %s is not active: %w", assignmentID, secondary.ErrStale)
	}
	if err != nil {
		return fmt.Errorf("failed to cancel superseded assignment: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE consultants SET
			active_assignment_count = active_assignment_count - 1,
			assignment_count = assignment_count - 1,
			version = version + 1,
			updated_at = $1
		WHERE id = $2`,
		at, holder,
	); err != nil {
		return fmt.Errorf("failed to release superseded consultant: %w", err)
	}
	return nil
}

func insertAssignment(ctx context.Context, tx pgx.Tx, a *secondary.AssignmentRecord) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO assignments (`+assignmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, a.LeadRef, a.LeadName, a.ConsultantID, a.RequesterID, a.Status, a.IsManual,
		a.ManualReason, a.Method, a.ReassignmentCount, a.OriginalAssignmentID,
		a.CreatedAt.UTC(), a.CompletedAt, a.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

// Ensure AssignmentStore implements the interface
var _ secondary.AssignmentStore = (*AssignmentStore)(nil)
