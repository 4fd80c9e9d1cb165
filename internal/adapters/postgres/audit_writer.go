package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/leadrouter/internal/ctxutil"
	"github.com/example/leadrouter/internal/ports/secondary"
)

// AuditWriter implements secondary.AuditSink and secondary.AuditLog with
// a JSONB audit_events table.
type AuditWriter struct {
	pool *pgxpool.Pool
}

// NewAuditWriter creates a new PostgreSQL AuditWriter.
func NewAuditWriter(pool *pgxpool.Pool) *AuditWriter {
	return &AuditWriter{pool: pool}
}

// Record appends one event. The actor falls back to the one carried in ctx.
func (w *AuditWriter) Record(ctx context.Context, event secondary.AuditEvent) error {
	actorID := event.ActorID
	if actorID == "" {
		actorID = ctxutil.ActorFromContext(ctx)
	}
	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	_, err := w.pool.Exec(ctx,
		`INSERT INTO audit_events (id, event_type, actor_id, entity_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.Type, actorID, event.EntityID, payload, event.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// List retrieves audit events matching the given filters, newest first.
func (w *AuditWriter) List(ctx context.Context, filters secondary.AuditFilters) ([]*secondary.AuditEvent, error) {
	query := `SELECT id, event_type, actor_id, entity_id, payload, occurred_at FROM audit_events WHERE TRUE`
	args := []any{}

	if filters.Type != "" {
		args = append(args, filters.Type)
		query += fmt.Sprintf(" AND event_type = $%d", len(args))
	}
	if filters.EntityID != "" {
		args = append(args, filters.EntityID)
		query += fmt.Sprintf(" AND entity_id = $%d", len(args))
	}

	query += " ORDER BY occurred_at DESC, id DESC"

	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := w.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*secondary.AuditEvent
	for rows.Next() {
		var event secondary.AuditEvent
		if err := rows.Scan(&event.ID, &event.Type, &event.ActorID, &event.EntityID, &event.Payload, &event.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

// Ensure AuditWriter implements the interfaces
var (
	_ secondary.AuditSink = (*AuditWriter)(nil)
	_ secondary.AuditLog  = (*AuditWriter)(nil)
)
