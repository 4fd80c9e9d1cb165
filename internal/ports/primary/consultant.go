package primary

import (
	"context"
	"time"
)

// ConsultantService defines the primary port for consultant lifecycle operations.
type ConsultantService interface {
	// CreateConsultant adds a consultant to the roster.
	CreateConsultant(ctx context.Context, req CreateConsultantRequest) (*Consultant, error)

	// GetConsultant retrieves a consultant by ID.
	GetConsultant(ctx context.Context, consultantID string) (*Consultant, error)

	// ListConsultants retrieves consultants, optionally including inactive ones.
	ListConsultants(ctx context.Context, includeInactive bool) ([]*Consultant, error)

	// Deactivate removes a consultant from the roster. It is refused while
	// the consultant has active assignments.
	Deactivate(ctx context.Context, consultantID string) error

	// Reactivate returns a consultant to the roster.
	Reactivate(ctx context.Context, consultantID string) error

	// ForceRemove reassigns every active assignment away from the consultant
	// and deactivates it once none remain.
	ForceRemove(ctx context.Context, req ForceRemoveRequest) (*ForceRemoveResult, error)

	// Recount recomputes a consultant's counters from assignment history.
	Recount(ctx context.Context, consultantID string) (*Consultant, error)
}

// CreateConsultantRequest contains parameters for creating a consultant.
type CreateConsultantRequest struct {
	Name  string
	Email string
}

// ForceRemoveRequest contains parameters for a forced removal.
type ForceRemoveRequest struct {
	ConsultantID string
	Reason       string
}

// ForceRemoveResult reports the outcome of a forced removal. The consultant
// is deactivated only when Failed is empty.
type ForceRemoveResult struct {
	ConsultantID string
	Reassigned   []ReassignedAssignment
	Failed       []FailedReassignment
	Deactivated  bool
}

// ReassignedAssignment pairs a superseded assignment with its replacement.
type ReassignedAssignment struct {
	FromAssignmentID string
	ToAssignmentID   string
	ToConsultantID   string
}

// FailedReassignment records an assignment that could not be moved.
type FailedReassignment struct {
	AssignmentID string
	Error        string
}

// Consultant represents a consultant at the port boundary.
type Consultant struct {
	ID                    string
	Name                  string
	Email                 string
	Active                bool
	AssignmentCount       int
	ActiveAssignmentCount int
	LastAssignedAt        *time.Time
	Version               int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
