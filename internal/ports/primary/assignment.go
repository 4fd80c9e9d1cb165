// Package primary defines the primary ports (driving adapters) for the application.
// These are the interfaces through which callers drive the assignment engine.
package primary

import (
	"context"
	"time"
)

// AssignmentService defines the primary port for assignment operations.
type AssignmentService interface {
	// CreateAssignment scores the roster, selects a consultant and commits
	// the assignment.
	CreateAssignment(ctx context.Context, req CreateAssignmentRequest) (*Assignment, error)

	// Reassign supersedes an active assignment with a new one for the same
	// lead, excluding everyone who held the lead before.
	Reassign(ctx context.Context, req ReassignRequest) (*Assignment, error)

	// GetFairnessReport scores the active roster without mutating anything.
	GetFairnessReport(ctx context.Context) (*FairnessReport, error)

	// AssignManually assigns a lead to a named consultant, bypassing scoring.
	AssignManually(ctx context.Context, req ManualAssignmentRequest) (*Assignment, error)

	// CompleteAssignment marks an active assignment as completed.
	CompleteAssignment(ctx context.Context, assignmentID string) (*Assignment, error)

	// CancelAssignment marks an active assignment as cancelled.
	CancelAssignment(ctx context.Context, assignmentID string) (*Assignment, error)

	// GetAssignment retrieves an assignment by ID.
	GetAssignment(ctx context.Context, assignmentID string) (*Assignment, error)

	// ListAssignments retrieves assignments matching the given filters.
	ListAssignments(ctx context.Context, filters AssignmentFilters) ([]*Assignment, error)

	// GetLineage returns the reassignment chain containing an assignment.
	GetLineage(ctx context.Context, assignmentID string) (*Lineage, error)
}

// Lead identifies the work item being routed.
type Lead struct {
	Ref  string
	Name string
}

// CreateAssignmentRequest contains parameters for an automatic assignment.
type CreateAssignmentRequest struct {
	RequesterID        string
	Lead               Lead
	ExcludeConsultants []string

	// IsReassignment marks the call as superseding OriginalAssignmentID.
	IsReassignment       bool
	OriginalAssignmentID string
	Reason               string
}

// ReassignRequest contains parameters for reassigning an assignment.
type ReassignRequest struct {
	AssignmentID    string
	Reason          string
	ExtraExclusions []string
	// RequesterID defaults to the original assignment's requester.
	RequesterID string
}

// ManualAssignmentRequest contains parameters for a manual assignment.
type ManualAssignmentRequest struct {
	RequesterID  string
	Lead         Lead
	ConsultantID string
	Method       string // manual or manager_override
	ManualReason string
}

// AssignmentFilters contains filter options for listing assignments.
type AssignmentFilters struct {
	ConsultantID string
	RequesterID  string
	Status       string
	Limit        int
}

// Assignment represents an assignment at the port boundary.
type Assignment struct {
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

	// Fallback is set when the business-rule filter eliminated everyone and
	// the consultant was picked from the full roster.
	Fallback bool
}

// ConsultantScore is one row of a fairness report.
type ConsultantScore struct {
	ConsultantID          string
	Name                  string
	Score                 float64
	AssignmentCount       int
	ActiveAssignmentCount int
	AssignmentsLast24h    int
	LastAssignedAt        *time.Time
}

// FairnessReport summarises how evenly work is spread over the active roster.
type FairnessReport struct {
	Scores            []ConsultantScore
	MeanCount         float64
	StandardDeviation float64
	// FairnessIndex is Jain's index over assignment counts, in [0, 1].
	FairnessIndex float64
	GeneratedAt   time.Time
}

// Lineage is the chain of assignments for one lead.
type Lineage struct {
	RootAssignmentID string
	Links            []LineageLink
	// Holders lists consultants in the order they held the lead.
	Holders []string
}

// LineageLink is one reassignment within a lineage.
type LineageLink struct {
	Ordinal          int
	FromAssignmentID string
	ToAssignmentID   string
	FromConsultantID string
	ToConsultantID   string
	Reason           string
	Exclusions       []string
	RecordedAt       time.Time
}
