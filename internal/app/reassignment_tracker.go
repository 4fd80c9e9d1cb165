package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/example/leadrouter/internal/core/reassignment"
	"github.com/example/leadrouter/internal/logging"
	"github.com/example/leadrouter/internal/metrics"
	"github.com/example/leadrouter/internal/ports/secondary"
)

// ReassignmentTracker maintains reassignment lineages.
type ReassignmentTracker struct {
	repo    secondary.ReassignmentRepository
	clock   clock.PassiveClock
	logger  logging.Logger
	metrics metrics.Collector
}

// NewReassignmentTracker creates a new ReassignmentTracker with injected dependencies.
func NewReassignmentTracker(repo secondary.ReassignmentRepository, opts ...Option) *ReassignmentTracker {
	o := newOptions(opts)
	return &ReassignmentTracker{
		repo:    repo,
		clock:   o.clock,
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// Prepare builds an unsaved record linking from to to. The store assigns the
// ordinal when the record is committed.
func (t *ReassignmentTracker) Prepare(rootID string, from, to *secondary.AssignmentRecord, reason string, exclusions []string, requestedAt time.Time) *secondary.ReassignmentRecord {
	return &secondary.ReassignmentRecord{
		ID:               newReassignmentID(),
		RootAssignmentID: rootID,
		FromAssignmentID: from.ID,
		ToAssignmentID:   to.ID,
		FromConsultantID: from.ConsultantID,
		ToConsultantID:   to.ConsultantID,
		Reason:           reason,
		Exclusions:       append([]string(nil), exclusions...),
		RequestedAt:      requestedAt,
	}
}

// RecordReassignment persists a standalone lineage record for an assignment
// that was superseded outside the commit path. The repository reads the
// lineage's current count and stores the record with the next ordinal.
func (t *ReassignmentTracker) RecordReassignment(ctx context.Context, from, to *secondary.AssignmentRecord, reason string, exclusions []string) (*secondary.ReassignmentRecord, error) {
	if from == nil || to == nil {
		return nil, validationErr("assignment", "both sides of a reassignment are required")
	}
	if reason == "" {
		return nil, validationErr("reason", "required")
	}

	rootID := reassignment.RootOf(from.ID, from.OriginalAssignmentID)
	record := t.Prepare(rootID, from, to, reason, exclusions, t.clock.Now())

	if err := t.repo.Record(ctx, record); err != nil {
		return nil, persistenceErr("record reassignment", err)
	}

	t.metrics.RecordReassignment()
	t.logger.Info("reassignment recorded",
		"root", rootID, "ordinal", record.Ordinal, "from", from.ConsultantID, "to", to.ConsultantID)
	return record, nil
}

// Lineage returns the records of a lineage ordered by ordinal.
func (t *ReassignmentTracker) Lineage(ctx context.Context, rootID string) ([]*secondary.ReassignmentRecord, error) {
	records, err := t.repo.ListByRoot(ctx, rootID)
	if err != nil {
		if errors.Is(err, secondary.ErrNotFound) {
			return nil, nil
		}
		return nil, persistenceErr("list lineage", err)
	}
	return records, nil
}

// Plan computes the exclusions for superseding current.
func (t *ReassignmentTracker) Plan(ctx context.Context, current *secondary.AssignmentRecord, extra ...string) (reassignment.Plan, error) {
	rootID := reassignment.RootOf(current.ID, current.OriginalAssignmentID)

	records, err := t.Lineage(ctx, rootID)
	if err != nil {
		return reassignment.Plan{}, err
	}

	return reassignment.PlanNext(rootID, toLinks(records), current.ConsultantID, extra...), nil
}

func toLinks(records []*secondary.ReassignmentRecord) []reassignment.Link {
	links := make([]reassignment.Link, len(records))
	for i, r := range records {
		links[i] = reassignment.Link{
			Ordinal:          r.Ordinal,
			FromAssignmentID: r.FromAssignmentID,
			ToAssignmentID:   r.ToAssignmentID,
			FromConsultantID: r.FromConsultantID,
			ToConsultantID:   r.ToConsultantID,
			Exclusions:       r.Exclusions,
		}
	}
	return links
}

func newAssignmentID() string {
	return fmt.Sprintf("ASSIGN-%s", uuid.NewString())
}

func newReassignmentID() string {
	return fmt.Sprintf("REASSIGN-%s", uuid.NewString())
}

func newAuditID() string {
	return fmt.Sprintf("AUD-%s", uuid.NewString())
}
