package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"k8s.io/utils/clock"

	"github.com/example/leadrouter/internal/ports/secondary"
)

const consultantColumns = `c.id, c.name, COALESCE(c.email, ''), c.active, c.assignment_count,
	c.active_assignment_count, c.last_assigned_at, c.version, c.created_at, c.updated_at`

// ConsultantRepository implements secondary.ConsultantRepository and
// secondary.ConsultantStatsProvider with PostgreSQL.
type ConsultantRepository struct {
	pool  *pgxpool.Pool
	clock clock.PassiveClock
}

// NewConsultantRepository creates a new PostgreSQL consultant repository.
func NewConsultantRepository(pool *pgxpool.Pool, clk clock.PassiveClock) *ConsultantRepository {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &ConsultantRepository{pool: pool, clock: clk}
}

// Create persists a new consultant.
func (r *ConsultantRepository) Create(ctx context.Context, c *secondary.ConsultantRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO consultants (id, name, email, active, assignment_count, active_assignment_count,
			last_assigned_at, version, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.Name, c.Email, c.Active, c.AssignmentCount, c.ActiveAssignmentCount,
		c.LastAssignedAt, c.Version, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create consultant: %w", err)
	}
	return nil
}

// GetByID retrieves a consultant by its ID.
func (r *ConsultantRepository) GetByID(ctx context.Context, id string) (*secondary.ConsultantRecord, error) {
	record, err := scanConsultant(r.pool.QueryRow(ctx,
		`SELECT `+consultantColumns+` FROM consultants c WHERE c.id = $1`, id))
	if isNoRows(err) {
		return nil, fmt.Errorf("consultant %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get consultant: %w", err)
	}
	return record, nil
}

// List retrieves consultants matching the given filters, ordered by ID.
func (r *ConsultantRepository) List(ctx context.Context, filters secondary.ConsultantFilters) ([]*secondary.ConsultantRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+consultantColumns+` FROM consultants c WHERE c.active OR $1 ORDER BY c.id`,
		filters.IncludeInactive,
	)
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

// ListActive returns the active roster with rolling-window counters relative to now.
func (r *ConsultantRepository) ListActive(ctx context.Context, now time.Time) ([]*secondary.ConsultantRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+consultantColumns+`,
			COUNT(a.id) FILTER (WHERE a.created_at >= $1),
			COUNT(a.id) FILTER (WHERE a.created_at >= $2)
		FROM consultants c
		LEFT JOIN assignments a ON a.consultant_id = c.id AND a.status <> 'cancelled'
		WHERE c.active
		GROUP BY c.id
		ORDER BY c.id`,
		now.Add(-24*time.Hour).UTC(), now.Add(-7*24*time.Hour).UTC(),
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
	tag, err := r.pool.Exec(ctx,
		`UPDATE consultants SET active = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND ($1 OR active_assignment_count = 0)`,
		active, r.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update consultant status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("consultant %s has active assignments: %w", id, secondary.ErrStale)
}

// Recount recomputes the stored counters from assignment history.
func (r *ConsultantRepository) Recount(ctx context.Context, id string) (*secondary.ConsultantRecord, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE consultants c SET
			assignment_count = (SELECT COUNT(*) FROM assignments a WHERE a.consultant_id = c.id AND a.status <> 'cancelled'),
			active_assignment_count = (SELECT COUNT(*) FROM assignments a WHERE a.consultant_id = c.id AND a.status = 'active'),
			last_assigned_at = (SELECT MAX(a.created_at) FROM assignments a WHERE a.consultant_id = c.id),
			version = version + 1,
			updated_at = $1
		WHERE c.id = $2`,
		r.clock.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to recount consultant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("consultant %s: %w", id, secondary.ErrNotFound)
	}
	return r.GetByID(ctx, id)
}

// GetNextID returns the next available consultant ID.
func (r *ConsultantRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(CAST(SUBSTRING(id FROM 6) AS INTEGER)), 0) FROM consultants`,
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next consultant ID: %w", err)
	}
	return fmt.Sprintf("CONS-%03d", maxID+1), nil
}

func scanConsultant(row pgx.Row, extra ...any) (*secondary.ConsultantRecord, error) {
	var record secondary.ConsultantRecord
	dest := []any{
		&record.ID, &record.Name, &record.Email, &record.Active, &record.AssignmentCount,
		&record.ActiveAssignmentCount, &record.LastAssignedAt, &record.Version, &record.CreatedAt, &record.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &record, nil
}

// Ensure ConsultantRepository implements the interfaces
var (
	_ secondary.ConsultantRepository    = (*ConsultantRepository)(nil)
	_ secondary.ConsultantStatsProvider = (*ConsultantRepository)(nil)
)
