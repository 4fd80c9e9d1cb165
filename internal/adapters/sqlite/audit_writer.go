package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/example/leadrouter/internal/ctxutil"
	"github.com/example/leadrouter/internal/ports/secondary"
)

// AuditWriter implements secondary.AuditSink and secondary.AuditLog by
// appending events to the audit_events table.
type AuditWriter struct {
	db *sql.DB
}

// NewAuditWriter creates a new AuditWriter.
func NewAuditWriter(db *sql.DB) *AuditWriter {
	return &AuditWriter{db: db}
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
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode audit payload: %w", err)
	}

	_, err = w.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, type, actor_id, entity_id, payload, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Type,
		nullString(actorID),
		nullString(event.EntityID),
		string(encoded),
		formatTime(event.OccurredAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	return nil
}

// List retrieves audit events matching the given filters, newest first.
func (w *AuditWriter) List(ctx context.Context, filters secondary.AuditFilters) ([]*secondary.AuditEvent, error) {
	query := `SELECT id, type, actor_id, entity_id, payload, occurred_at FROM audit_events WHERE 1=1`
	args := []any{}

	if filters.Type != "" {
		query += " AND type = ?"
		args = append(args, filters.Type)
	}

	if filters.EntityID != "" {
		query += " AND entity_id = ?"
		args = append(args, filters.EntityID)
	}

	query += " ORDER BY occurred_at DESC, id DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*secondary.AuditEvent
	for rows.Next() {
		var (
			event      secondary.AuditEvent
			actorID    sql.NullString
			entityID   sql.NullString
			payload    string
			occurredAt string
		)
		if err := rows.Scan(&event.ID, &event.Type, &actorID, &entityID, &payload, &occurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		event.ActorID = actorID.String
		event.EntityID = entityID.String
		if err := json.Unmarshal([]byte(payload), &event.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode audit payload: %w", err)
		}
		if event.OccurredAt, err = parseTime(occurredAt); err != nil {
			return nil, err
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
