package secondary

import (
	"context"
	"time"
)

// AuditSink defines the interface for emitting audit events.
// Sinks are best-effort: callers log failures and never roll back on them.
type AuditSink interface {
	// Record emits one audit event.
	Record(ctx context.Context, event AuditEvent) error
}

// AuditLog reads back events persisted by a queryable sink.
type AuditLog interface {
	// List retrieves audit events matching the given filters, newest first.
	List(ctx context.Context, filters AuditFilters) ([]*AuditEvent, error)
}

// AuditEvent is a single audit entry.
type AuditEvent struct {
	ID         string
	Type       string
	ActorID    string
	EntityID   string
	Payload    map[string]any
	OccurredAt time.Time
}

// AuditFilters contains filter options for querying audit events.
type AuditFilters struct {
	Type     string
	EntityID string
	Limit    int
}

// Audit event types.
const (
	AuditAssignmentCreated   = "assignment.created"
	AuditAssignmentFallback  = "assignment.fallback"
	AuditAssignmentFailed    = "assignment.failed"
	AuditAssignmentCompleted = "assignment.completed"
	AuditAssignmentCancelled = "assignment.cancelled"
	AuditReassignment        = "assignment.reassigned"
	AuditConsultantCreated   = "consultant.created"
	AuditConsultantActivated = "consultant.reactivated"
	AuditConsultantRemoved   = "consultant.deactivated"
	AuditConsultantRecounted = "consultant.recounted"
)
