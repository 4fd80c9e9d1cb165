package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/leadrouter/internal/core/assignment"
	"github.com/example/leadrouter/internal/ports/secondary"
)

// AssignmentStore implements secondary.AssignmentStore with SQLite
// transactions. The connection should be opened with db.DSN so that write
// transactions begin IMMEDIATE.
type AssignmentStore struct {
	db *sql.DB
}

// NewAssignmentStore creates a new SQLite assignment store.
func NewAssignmentStore(db *sql.DB) *AssignmentStore {
	return &AssignmentStore{db: db}
}

// CommitAssignment inserts req.Assignment and moves the consultant's
// counters in one transaction, conditional on version and active flag.
func (s *AssignmentStore) CommitAssignment(ctx context.Context, req secondary.CommitRequest) error {
	a := req.Assignment
	at := formatTime(a.CreatedAt)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin commit transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE consultants SET
			assignment_count = assignment_count + 1,
			active_assignment_count = active_assignment_count + 1,
			last_assigned_at = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ? AND active = 1`,
		at, at, a.ConsultantID, req.ExpectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update consultant counters: %w", err)
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		return fmt.Errorf("consultant %s at version %d: %w", a.ConsultantID, req.ExpectedVersion, secondary.ErrStale)
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
		if err := insertReassignment(ctx, tx, req.Reassignment); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit assignment: %w", err)
	}
	return nil
}

// TransitionAssignment moves an active assignment to completed or cancelled.
func (s *AssignmentStore) TransitionAssignment(ctx context.Context, req secondary.TransitionRequest) (*secondary.AssignmentRecord, error) {
	at := formatTime(req.At)

	var column, countDelta string
	switch req.Status {
	case assignment.StatusCompleted:
		column, countDelta = "completed_at", ""
	case assignment.StatusCancelled:
		column, countDelta = "cancelled_at", ", assignment_count = assignment_count - 1"
	default:
		return nil, fmt.Errorf("unsupported target status %q", req.Status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transition transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := getAssignment(ctx, tx, req.AssignmentID)
	if err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE assignments SET status = ?, %s = ? WHERE id = ? AND status = 'active'`, column),
		req.Status, at, req.AssignmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update assignment status: %w", err)
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		return nil, fmt.Errorf("assignment %s is %s: %w", req.AssignmentID, current.Status, secondary.ErrStale)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE consultants SET active_assignment_count = active_assignment_count - 1`+countDelta+`,
			version = version + 1, updated_at = ?
		WHERE id = ?`,
		at, current.ConsultantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update consultant counters: %w", err)
	}

	updated, err := getAssignment(ctx, tx, req.AssignmentID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}
	return updated, nil
}

// supersede cancels an active assignment and releases its holder's counters.
func supersede(ctx context.Context, tx *sql.Tx, assignmentID, at string) error {
	var holder string
	err := tx.QueryRowContext(ctx,
		`SELECT consultant_id FROM assignments WHERE id = ? AND status = 'active'`,
		assignmentID,
	).Scan(&holder)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("superseded assignment %s is not active: %w", assignmentID, secondary.ErrStale)
	}
	if err != nil {
		return fmt.Errorf("failed to load superseded assignment: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE assignments SET status = 'cancelled', cancelled_at = ? WHERE id = ?`,
		at, assignmentID,
	); err != nil {
		return fmt.Errorf("failed to cancel superseded assignment: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE consultants SET
			active_assignment_count = active_assignment_count - 1,
			assignment_count = assignment_count - 1,
			version = version + 1,
			updated_at = ?
		WHERE id = ?`,
		at, holder,
	); err != nil {
		return fmt.Errorf("failed to release superseded consultant: %w", err)
	}

	return nil
}

func insertAssignment(ctx context.Context, tx *sql.Tx, a *secondary.AssignmentRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO assignments (`+assignmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.LeadRef,
		nullString(a.LeadName),
		a.ConsultantID,
		a.RequesterID,
		a.Status,
		boolToInt(a.IsManual),
		nullString(a.ManualReason),
		a.Method,
		a.ReassignmentCount,
		nullString(a.OriginalAssignmentID),
		formatTime(a.CreatedAt),
		formatNullTime(a.CompletedAt),
		formatNullTime(a.CancelledAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

// Ensure AssignmentStore implements the interface
var _ secondary.AssignmentStore = (*AssignmentStore)(nil)
