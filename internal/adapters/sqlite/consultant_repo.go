package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"github.com/example/leadrouter/internal/ports/secondary"
)

const consultantColumns = `c.id, c.name, c.email, c.active, c.assignment_count, c.active_assignment_count,
	c.last_assigned_at, c.version, c.created_at, c.updated_at`

// ConsultantRepository implements secondary.ConsultantRepository and
// secondary.ConsultantStatsProvider with SQLite.
type ConsultantRepository struct {
	db    *sql.DB
	clock clock.PassiveClock
}

// NewConsultantRepository creates a new SQLite consultant repository.
// clk stamps updated_at (clock.RealClock{} if nil).
func NewConsultantRepository(db *sql.DB, clk clock.PassiveClock) *ConsultantRepository {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &ConsultantRepository{db: db, clock: clk}
}

// Create persists a new consultant.
func (r *ConsultantRepository) Create(ctx context.Context, consultant *secondary.ConsultantRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO consultants (id, name, email, active, assignment_count, active_assignment_count,
			last_assigned_at, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		consultant.ID,
		consultant.Name,
		nullString(consultant.Email),
		boolToInt(consultant.Active),
		consultant.AssignmentCount,
		consultant.ActiveAssignmentCount,
		formatNullTime(consultant.LastAssignedAt),
		consultant.Version,
		formatTime(consultant.CreatedAt),
		formatTime(consultant.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create consultant: %w", err)
	}

	return nil
}

// GetByID retrieves a consultant by its ID.
func (r *ConsultantRepository) GetByID(ctx context.Context, id string) (*secondary.ConsultantRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+consultantColumns+` FROM consultants c WHERE c.id = ?`,
		id,
	)

	record, err := scanConsultant(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("consultant %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get consultant: %w", err)
	}

	return record, nil
}

// List retrieves consultants matching the given filters, ordered by ID.
func (r *ConsultantRepository) List(ctx context.Context, filters secondary.ConsultantFilters) ([]*secondary.ConsultantRecord, error) {
	query := `SELECT ` + consultantColumns + ` FROM consultants c WHERE 1=1`
	if !filters.IncludeInactive {
		query += " AND c.active = 1"
	}
	query += " ORDER BY c.id"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list consultants: %w", err)
	}
	defer rows.Close()

	var consultants []*secondary.ConsultantRecord
	for rows.Next() {
		record, err := scanConsultant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consultant: %w", err)
		}
		consultants = append(consultants, record)
	}

	return consultants, rows.Err()
}

// ListActive returns the active roster with rolling-window counters
// relative to now. Cancelled assignments do not count.
func (r *ConsultantRepository) ListActive(ctx context.Context, now time.Time) ([]*secondary.ConsultantRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+consultantColumns+`,
			(SELECT COUNT(*) FROM assignments a
				WHERE a.consultant_id = c.id AND a.status != 'cancelled' AND a.created_at >= ?),
			(SELECT COUNT(*) FROM assignments a
				WHERE a.consultant_id = c.id AND a.status != 'cancelled' AND a.created_at >= ?)
		FROM consultants c
		WHERE c.active = 1
		ORDER BY c.id`,
		formatTime(now.Add(-24*time.Hour)),
		formatTime(now.Add(-7*24*time.Hour)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active consultants: %w", err)
	}
	defer rows.Close()

	var consultants []*secondary.ConsultantRecord
	for rows.Next() {
		var last24h, last7d int
		record, err := scanConsultant(rows, &last24h, &last7d)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consultant: %w", err)
		}
		record.AssignmentsLast24h = last24h
		record.AssignmentsLast7d = last7d
		consultants = append(consultants, record)
	}

	return consultants, rows.Err()
}

// SetActive flips the active flag. Deactivation is conditional on the
// consultant holding no active assignments.
func (r *ConsultantRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE consultants SET active = ?, version = version + 1, updated_at = ? WHERE id = ?`
	if !active {
		query += " AND active_assignment_count = 0"
	}

	result, err := r.db.ExecContext(ctx, query, boolToInt(active), formatTime(r.clock.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to update consultant status: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		return nil
	}

	exists, err := r.exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("consultant %s: %w", id, secondary.ErrNotFound)
	}
	return fmt.Errorf("consultant %s has active assignments: %w", id, secondary.ErrStale)
}

// Recount recomputes the stored counters from assignment history.
func (r *ConsultantRepository) Recount(ctx context.Context, id string) (*secondary.ConsultantRecord, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE consultants SET
			assignment_count = (SELECT COUNT(*) FROM assignments a
				WHERE a.consultant_id = consultants.id AND a.status != 'cancelled'),
			active_assignment_count = (SELECT COUNT(*) FROM assignments a
				WHERE a.consultant_id = consultants.id AND a.status = 'active'),
			last_assigned_at = (SELECT MAX(a.created_at) FROM assignments a
				WHERE a.consultant_id = consultants.id),
			version = version + 1,
			updated_at = ?
		WHERE id = ?`,
		formatTime(r.clock.Now()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to recount consultant: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return nil, fmt.Errorf("consultant %s: %w", id, secondary.ErrNotFound)
	}

	return r.GetByID(ctx, id)
}

// GetNextID returns the next available consultant ID.
func (r *ConsultantRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	prefixLen := len("CONS-") + 1
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COALESCE(MAX(CAST(SUBSTR(id, %d) AS INTEGER)), 0) FROM consultants", prefixLen),
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next consultant ID: %w", err)
	}

	return fmt.Sprintf("CONS-%03d", maxID+1), nil
}

func (r *ConsultantRepository) exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM consultants WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check consultant existence: %w", err)
	}
	return count > 0, nil
}

// scanConsultant scans consultantColumns followed by any extra destinations.
func scanConsultant(row rowScanner, extra ...any) (*secondary.ConsultantRecord, error) {
	var (
		record       secondary.ConsultantRecord
		email        sql.NullString
		active       int
		lastAssigned sql.NullString
		createdAt    string
		updatedAt    string
	)

	dest := []any{
		&record.ID, &record.Name, &email, &active, &record.AssignmentCount, &record.ActiveAssignmentCount,
		&lastAssigned, &record.Version, &createdAt, &updatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	record.Email = email.String
	record.Active = active == 1

	var err error
	if record.LastAssignedAt, err = parseNullTime(lastAssigned); err != nil {
		return nil, err
	}
	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if record.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &record, nil
}

// Ensure ConsultantRepository implements the interfaces
var (
	_ secondary.ConsultantRepository    = (*ConsultantRepository)(nil)
	_ secondary.ConsultantStatsProvider = (*ConsultantRepository)(nil)
)
