// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"errors"
	"time"
)

// Adapter-level errors. Repositories wrap these so the application can map
// them onto its own error taxonomy with errors.Is.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStale is returned when a conditional write matched no row because
	// the version, status or active flag changed since it was read.
	ErrStale = errors.New("stale write")

	// ErrLockTimeout is returned by a ConsultantLocker when the wait expires.
	ErrLockTimeout = errors.New("lock wait timed out")
)

// ConsultantRepository defines the secondary port for consultant persistence.
type ConsultantRepository interface {
	// Create persists a new consultant.
	Create(ctx context.Context, consultant *ConsultantRecord) error

	// GetByID retrieves a consultant by its ID.
	GetByID(ctx context.Context, id string) (*ConsultantRecord, error)

	// List retrieves consultants matching the given filters.
	List(ctx context.Context, filters ConsultantFilters) ([]*ConsultantRecord, error)

	// SetActive flips the active flag. Deactivation only succeeds while the
	// consultant has no active assignments; otherwise ErrStale is returned.
	SetActive(ctx context.Context, id string, active bool) error

	// Recount recomputes the stored counters from assignment history.
	Recount(ctx context.Context, id string) (*ConsultantRecord, error)

	// GetNextID returns the next available consultant ID.
	GetNextID(ctx context.Context) (string, error)
}

// ConsultantStatsProvider supplies the roster snapshot used for selection.
type ConsultantStatsProvider interface {
	// ListActive returns every active consultant with AssignmentsLast24h and
	// AssignmentsLast7d computed relative to now.
	ListActive(ctx context.Context, now time.Time) ([]*ConsultantRecord, error)
}

// ConsultantRecord represents a consultant as stored in persistence.
type ConsultantRecord struct {
	ID                    string
	Name                  string
	Email                 string
	Active                bool
	AssignmentCount       int
	ActiveAssignmentCount int
	AssignmentsLast24h    int
	AssignmentsLast7d     int
	LastAssignedAt        *time.Time
	Version               int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ConsultantFilters contains filter options for querying consultants.
type ConsultantFilters struct {
	IncludeInactive bool
}

// AssignmentRepository defines the secondary port for reading assignments.
// Assignments are written only through AssignmentStore.
type AssignmentRepository interface {
	// GetByID retrieves an assignment by its ID.
	GetByID(ctx context.Context, id string) (*AssignmentRecord, error)

	// List retrieves assignments matching the given filters, newest first.
	List(ctx context.Context, filters AssignmentFilters) ([]*AssignmentRecord, error)
}

// AssignmentHistory answers history questions used by the candidate filter.
type AssignmentHistory interface {
	// RecentPairings returns the IDs of consultants that received a
	// non-cancelled assignment from requesterID at or after since.
	RecentPairings(ctx context.Context, requesterID string, since time.Time) ([]string, error)
}

// AssignmentStore performs the transactional writes that move consultant counters.
type AssignmentStore interface {
	// CommitAssignment atomically inserts req.Assignment and updates the
	// consultant's counters, conditional on the consultant still being active
	// at req.ExpectedVersion. A failed condition returns ErrStale and nothing
	// is written.
	CommitAssignment(ctx context.Context, req CommitRequest) error

	// TransitionAssignment atomically moves an active assignment to a
	// terminal status and updates the consultant's counters.
	TransitionAssignment(ctx context.Context, req TransitionRequest) (*AssignmentRecord, error)
}

// CommitRequest describes one atomic assignment commit.
type CommitRequest struct {
	Assignment      *AssignmentRecord
	ExpectedVersion int64

	// Supersedes, when set, is cancelled in the same transaction. It must
	// still be active.
	Supersedes string

	// Reassignment, when set, is recorded in the same transaction. The store
	// assigns its Ordinal and copies it onto Assignment.ReassignmentCount.
	Reassignment *ReassignmentRecord
}

// TransitionRequest describes a status change of an active assignment.
type TransitionRequest struct {
	AssignmentID string
	Status       string
	At           time.Time
}

// AssignmentRecord represents an assignment as stored in persistence.
type AssignmentRecord struct {
	ID                   string
	LeadRef              string
	LeadName             string
	ConsultantID         string
	RequesterID          string
	Status               string
	IsManual             bool
	ManualReason         string
	Method               string
	ReassignmentCount    int
	OriginalAssignmentID string
	CreatedAt            time.Time
	CompletedAt          *time.Time
	CancelledAt          *time.Time
}

// AssignmentFilters contains filter options for querying assignments.
type AssignmentFilters struct {
	ConsultantID string
	RequesterID  string
	Status       string
	Limit        int
}

// ReassignmentRepository defines the secondary port for lineage records.
type ReassignmentRepository interface {
	// Record persists a reassignment record, assigning the next ordinal for
	// its lineage and updating the root's reassignment count atomically.
	Record(ctx context.Context, record *ReassignmentRecord) error

	// ListByRoot returns a lineage ordered by ordinal.
	ListByRoot(ctx context.Context, rootAssignmentID string) ([]*ReassignmentRecord, error)
}

// ReassignmentRecord represents one link in a reassignment lineage.
type ReassignmentRecord struct {
	ID               string
	RootAssignmentID string
	FromAssignmentID string
	ToAssignmentID   string
	FromConsultantID string
	ToConsultantID   string
	Ordinal          int
	Reason           string
	Exclusions       []string
	RequestedAt      time.Time
	RecordedAt       time.Time
}

// ConsultantLocker provides per-consultant mutual exclusion for commits.
type ConsultantLocker interface {
	// Acquire blocks until the consultant's lock is held, timeout elapses
	// (ErrLockTimeout) or ctx is done. The returned release func must be
	// called exactly once.
	Acquire(ctx context.Context, consultantID string, timeout time.Duration) (release func(), err error)
}
