package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"k8s.io/utils/clock"

	"github.com/example/leadrouter/internal/core/assignment"
	"github.com/example/leadrouter/internal/core/fairness"
	"github.com/example/leadrouter/internal/core/reassignment"
	"github.com/example/leadrouter/internal/core/selection"
	"github.com/example/leadrouter/internal/ctxutil"
	"github.com/example/leadrouter/internal/logging"
	"github.com/example/leadrouter/internal/metrics"
	"github.com/example/leadrouter/internal/ports/primary"
	"github.com/example/leadrouter/internal/ports/secondary"
)

// AssignmentServiceImpl implements the AssignmentService interface.
type AssignmentServiceImpl struct {
	stats          secondary.ConsultantStatsProvider
	history        secondary.AssignmentHistory
	assignmentRepo secondary.AssignmentRepository
	consultantRepo secondary.ConsultantRepository
	committer      *Committer
	tracker        *ReassignmentTracker
	audit          secondary.AuditSink

	scorer         *fairness.Scorer
	clock          clock.Clock
	logger         logging.Logger
	metrics        metrics.Collector
	maxActive      int
	pairingWindow  time.Duration
	idlePreference time.Duration
}

// NewAssignmentService creates a new AssignmentService with injected dependencies.
// audit may be nil to disable audit events.
func NewAssignmentService(
	stats secondary.ConsultantStatsProvider,
	history secondary.AssignmentHistory,
	assignmentRepo secondary.AssignmentRepository,
	consultantRepo secondary.ConsultantRepository,
	committer *Committer,
	tracker *ReassignmentTracker,
	audit secondary.AuditSink,
	opts ...Option,
) *AssignmentServiceImpl {
	o := newOptions(opts)
	return &AssignmentServiceImpl{
		stats:          stats,
		history:        history,
		assignmentRepo: assignmentRepo,
		consultantRepo: consultantRepo,
		committer:      committer,
		tracker:        tracker,
		audit:          audit,
		scorer:         fairness.NewScorer(o.weights),
		clock:          o.clock,
		logger:         o.logger,
		metrics:        o.metrics,
		maxActive:      o.maxActive,
		pairingWindow:  o.pairingWindow,
		idlePreference: o.idlePreference,
	}
}

// routeRequest is the normalised input of one automatic assignment.
type routeRequest struct {
	requesterID string
	lead        primary.Lead
	exclusions  selection.ExclusionList
	method      string
	reason      string

	// Set when the new assignment supersedes an active one.
	supersedes *secondary.AssignmentRecord
	rootID     string
}

// CreateAssignment scores the roster, selects a consultant and commits the assignment.
func (s *AssignmentServiceImpl) CreateAssignment(ctx context.Context, req primary.CreateAssignmentRequest) (*primary.Assignment, error) {
	route := routeRequest{
		requesterID: strings.TrimSpace(req.RequesterID),
		lead:        primary.Lead{Ref: strings.TrimSpace(req.Lead.Ref), Name: strings.TrimSpace(req.Lead.Name)},
		exclusions:  selection.NewExclusionList(req.ExcludeConsultants...),
		method:      assignment.MethodRoundRobin,
		reason:      strings.TrimSpace(req.Reason),
	}

	if req.IsReassignment {
		if err := s.prepareReassignment(ctx, &route, req.OriginalAssignmentID); err != nil {
			return nil, err
		}
	} else if req.OriginalAssignmentID != "" {
		return nil, validationErr("original_assignment_id", "only valid for reassignments")
	}

	if route.requesterID == "" {
		return nil, validationErr("requester_id", "required")
	}
	if route.lead.Ref == "" {
		return nil, validationErr("lead", "reference is required")
	}

	return s.route(ctx, route)
}

// Reassign supersedes an active assignment, excluding everyone who held the lead.
func (s *AssignmentServiceImpl) Reassign(ctx context.Context, req primary.ReassignRequest) (*primary.Assignment, error) {
	if strings.TrimSpace(req.AssignmentID) == "" {
		return nil, validationErr("assignment_id", "required")
	}

	return s.CreateAssignment(ctx, primary.CreateAssignmentRequest{
		RequesterID:          req.RequesterID,
		ExcludeConsultants:   req.ExtraExclusions,
		IsReassignment:       true,
		OriginalAssignmentID: req.AssignmentID,
		Reason:               req.Reason,
	})
}

// prepareReassignment loads the superseded assignment and folds its lineage
// into route.
func (s *AssignmentServiceImpl) prepareReassignment(ctx context.Context, route *routeRequest, originalID string) error {
	originalID = strings.TrimSpace(originalID)
	if originalID == "" {
		return validationErr("original_assignment_id", "required for reassignment")
	}

	original, err := s.loadAssignment(ctx, originalID)
	if err != nil {
		return err
	}

	guard := assignment.CanReassign(assignment.ReassignContext{
		AssignmentID: original.ID,
		Status:       original.Status,
		Reason:       route.reason,
	})
	if !guard.Allowed {
		if original.Status != assignment.StatusActive {
			return fmt.Errorf("%w: %s", ErrInvalidTransition, guard.Reason)
		}
		return validationErr("reason", guard.Reason)
	}

	plan, err := s.tracker.Plan(ctx, original, route.exclusions...)
	if err != nil {
		return err
	}

	if route.requesterID == "" {
		route.requesterID = original.RequesterID
	}
	if route.lead.Ref == "" {
		route.lead = primary.Lead{Ref: original.LeadRef, Name: original.LeadName}
	}
	route.exclusions = plan.Exclusions
	route.method = assignment.MethodReassignment
	route.supersedes = original
	route.rootID = plan.RootAssignmentID
	return nil
}

// route runs stats → score → filter → select → commit.
func (s *AssignmentServiceImpl) route(ctx context.Context, req routeRequest) (*primary.Assignment, error) {
	now := s.clock.Now()

	records, err := s.stats.ListActive(ctx, now)
	if err != nil {
		return nil, persistenceErr("list active consultants", err)
	}
	if len(records) == 0 {
		s.metrics.RecordAssignment(req.method, "no_consultants")
		s.emit(ctx, secondary.AuditAssignmentFailed, req.lead.Ref, map[string]any{
			"requester_id": req.requesterID,
			"error":        ErrNoConsultantsAvailable.Error(),
		})
		return nil, ErrNoConsultantsAvailable
	}

	roster := toSnapshots(records)
	pool := selection.WithoutExcluded(selection.ScoreRoster(s.scorer, roster, now), req.exclusions)

	var paired []string
	if s.pairingWindow > 0 {
		paired, err = s.history.RecentPairings(ctx, req.requesterID, now.Add(-s.pairingWindow))
		if err != nil {
			return nil, persistenceErr("load recent pairings", err)
		}
	}

	filtered := selection.Filter(pool, selection.FilterContext{
		Now:                  now,
		Exclusions:           req.exclusions,
		MaxActiveAssignments: s.maxActive,
		RecentPairings:       paired,
		IdlePreference:       s.idlePreference,
	})

	winner, outcome, err := selection.Select(filtered, pool)
	if err != nil {
		s.metrics.RecordAssignment(req.method, "no_suitable")
		s.emit(ctx, secondary.AuditAssignmentFailed, req.lead.Ref, map[string]any{
			"requester_id": req.requesterID,
			"exclusions":   req.exclusions.String(),
			"error":        ErrNoSuitableConsultant.Error(),
		})
		return nil, fmt.Errorf("%w: %d active, %d excluded", ErrNoSuitableConsultant, len(records), len(req.exclusions))
	}

	if outcome.Fallback {
		s.metrics.RecordFallback()
		s.logger.Warn("business rules eliminated every consultant; falling back to full roster",
			"lead", req.lead.Ref, "requester", req.requesterID, "candidates", outcome.CandidateCount)
		s.emit(ctx, secondary.AuditAssignmentFallback, req.lead.Ref, map[string]any{
			"requester_id":  req.requesterID,
			"consultant_id": winner.ConsultantID,
			"candidates":    outcome.CandidateCount,
		})
	}

	record := &secondary.AssignmentRecord{
		ID:                   newAssignmentID(),
		LeadRef:              req.lead.Ref,
		LeadName:             req.lead.Name,
		ConsultantID:         winner.ConsultantID,
		RequesterID:          req.requesterID,
		Status:               assignment.StatusActive,
		Method:               req.method,
		OriginalAssignmentID: req.rootID,
		CreatedAt:            now,
	}

	commit := secondary.CommitRequest{
		Assignment:      record,
		ExpectedVersion: winner.Version,
	}
	if req.supersedes != nil {
		commit.Supersedes = req.supersedes.ID
		commit.Reassignment = s.tracker.Prepare(req.rootID, req.supersedes, record, req.reason, req.exclusions, now)
	}

	if err := s.committer.Commit(ctx, commit); err != nil {
		s.metrics.RecordAssignment(req.method, outcomeOf(err))
		s.emit(ctx, secondary.AuditAssignmentFailed, req.lead.Ref, map[string]any{
			"requester_id":  req.requesterID,
			"consultant_id": winner.ConsultantID,
			"error":         err.Error(),
		})
		return nil, err
	}

	s.metrics.RecordAssignment(req.method, "success")
	s.logger.Info("assignment created",
		"assignment", record.ID, "consultant", record.ConsultantID, "lead", record.LeadRef,
		"score", winner.Score, "fallback", outcome.Fallback)
	s.emit(ctx, secondary.AuditAssignmentCreated, record.ID, map[string]any{
		"consultant_id": record.ConsultantID,
		"requester_id":  record.RequesterID,
		"lead_ref":      record.LeadRef,
		"method":        record.Method,
		"score":         winner.Score,
	})

	if commit.Reassignment != nil {
		s.metrics.RecordReassignment()
		s.emit(ctx, secondary.AuditReassignment, record.ID, map[string]any{
			"root_assignment_id": commit.Reassignment.RootAssignmentID,
			"from_assignment_id": commit.Reassignment.FromAssignmentID,
			"from_consultant_id": commit.Reassignment.FromConsultantID,
			"to_consultant_id":   commit.Reassignment.ToConsultantID,
			"ordinal":            commit.Reassignment.Ordinal,
			"reason":             commit.Reassignment.Reason,
			"exclusions":         req.exclusions.String(),
		})
	}

	result := s.recordToAssignment(record)
	result.Fallback = outcome.Fallback
	return result, nil
}

// GetFairnessReport scores the active roster without mutating anything.
func (s *AssignmentServiceImpl) GetFairnessReport(ctx context.Context) (*primary.FairnessReport, error) {
	now := s.clock.Now()

	records, err := s.stats.ListActive(ctx, now)
	if err != nil {
		return nil, persistenceErr("list active consultants", err)
	}

	names := make(map[string]string, len(records))
	for _, r := range records {
		names[r.ID] = r.Name
	}

	report := s.scorer.BuildReport(toSnapshots(records), now)

	scores := make([]primary.ConsultantScore, len(report.Scores))
	for i, sc := range report.Scores {
		scores[i] = primary.ConsultantScore{
			ConsultantID:          sc.Snapshot.ConsultantID,
			Name:                  names[sc.Snapshot.ConsultantID],
			Score:                 sc.Score,
			AssignmentCount:       sc.Snapshot.AssignmentCount,
			ActiveAssignmentCount: sc.Snapshot.ActiveAssignmentCount,
			AssignmentsLast24h:    sc.Snapshot.AssignmentsLast24h,
			LastAssignedAt:        sc.Snapshot.LastAssignedAt,
		}
	}

	return &primary.FairnessReport{
		Scores:            scores,
		MeanCount:         report.MeanCount,
		StandardDeviation: report.StandardDeviation,
		FairnessIndex:     report.FairnessIndex,
		GeneratedAt:       report.GeneratedAt,
	}, nil
}

// AssignManually assigns a lead to a named consultant through the committer.
func (s *AssignmentServiceImpl) AssignManually(ctx context.Context, req primary.ManualAssignmentRequest) (*primary.Assignment, error) {
	if strings.TrimSpace(req.RequesterID) == "" {
		return nil, validationErr("requester_id", "required")
	}
	if strings.TrimSpace(req.Lead.Ref) == "" {
		return nil, validationErr("lead", "reference is required")
	}
	if strings.TrimSpace(req.ConsultantID) == "" {
		return nil, validationErr("consultant_id", "required")
	}
	method := req.Method
	if method == "" {
		method = assignment.MethodManual
	}

	consultant, err := s.consultantRepo.GetByID(ctx, req.ConsultantID)
	if err != nil {
		if errors.Is(err, secondary.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrConsultantNotFound, req.ConsultantID)
		}
		return nil, persistenceErr("get consultant", err)
	}

	guard := assignment.CanAssignManually(assignment.ManualContext{
		ConsultantID:     consultant.ID,
		ConsultantActive: consultant.Active,
		Method:           method,
		ManualReason:     req.ManualReason,
	})
	if !guard.Allowed {
		return nil, validationErr("manual assignment", guard.Reason)
	}

	now := s.clock.Now()
	record := &secondary.AssignmentRecord{
		ID:           newAssignmentID(),
		LeadRef:      strings.TrimSpace(req.Lead.Ref),
		LeadName:     strings.TrimSpace(req.Lead.Name),
		ConsultantID: consultant.ID,
		RequesterID:  strings.TrimSpace(req.RequesterID),
		Status:       assignment.StatusActive,
		IsManual:     true,
		ManualReason: req.ManualReason,
		Method:       method,
		CreatedAt:    now,
	}

	if err := s.committer.Commit(ctx, secondary.CommitRequest{Assignment: record, ExpectedVersion: consultant.Version}); err != nil {
		s.metrics.RecordAssignment(method, outcomeOf(err))
		return nil, err
	}

	s.metrics.RecordAssignment(method, "success")
	s.logger.Info("manual assignment created",
		"assignment", record.ID, "consultant", record.ConsultantID, "method", method)
	s.emit(ctx, secondary.AuditAssignmentCreated, record.ID, map[string]any{
		"consultant_id": record.ConsultantID,
		"requester_id":  record.RequesterID,
		"lead_ref":      record.LeadRef,
		"method":        method,
		"manual_reason": req.ManualReason,
	})

	return s.recordToAssignment(record), nil
}

// CompleteAssignment marks an active assignment as completed.
func (s *AssignmentServiceImpl) CompleteAssignment(ctx context.Context, assignmentID string) (*primary.Assignment, error) {
	return s.transition(ctx, assignmentID, assignment.StatusCompleted, secondary.AuditAssignmentCompleted)
}

// CancelAssignment marks an active assignment as cancelled.
func (s *AssignmentServiceImpl) CancelAssignment(ctx context.Context, assignmentID string) (*primary.Assignment, error) {
	return s.transition(ctx, assignmentID, assignment.StatusCancelled, secondary.AuditAssignmentCancelled)
}

func (s *AssignmentServiceImpl) transition(ctx context.Context, assignmentID, status, eventType string) (*primary.Assignment, error) {
	current, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	guard := assignment.CanTransition(assignment.TransitionContext{
		AssignmentID:  current.ID,
		CurrentStatus: current.Status,
		TargetStatus:  status,
	})
	if !guard.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, guard.Reason)
	}

	updated, err := s.committer.Transition(ctx, current.ConsultantID, secondary.TransitionRequest{
		AssignmentID: current.ID,
		Status:       status,
		At:           s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("assignment "+status, "assignment", updated.ID, "consultant", updated.ConsultantID)
	s.emit(ctx, eventType, updated.ID, map[string]any{"consultant_id": updated.ConsultantID})
	return s.recordToAssignment(updated), nil
}

// GetAssignment retrieves an assignment by ID.
func (s *AssignmentServiceImpl) GetAssignment(ctx context.Context, assignmentID string) (*primary.Assignment, error) {
	record, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	return s.recordToAssignment(record), nil
}

// ListAssignments retrieves assignments matching the given filters.
func (s *AssignmentServiceImpl) ListAssignments(ctx context.Context, filters primary.AssignmentFilters) ([]*primary.Assignment, error) {
	records, err := s.assignmentRepo.List(ctx, secondary.AssignmentFilters{
		ConsultantID: filters.ConsultantID,
		RequesterID:  filters.RequesterID,
		Status:       filters.Status,
		Limit:        filters.Limit,
	})
	if err != nil {
		return nil, persistenceErr("list assignments", err)
	}

	assignments := make([]*primary.Assignment, len(records))
	for i, r := range records {
		assignments[i] = s.recordToAssignment(r)
	}
	return assignments, nil
}

// GetLineage returns the reassignment chain containing an assignment.
func (s *AssignmentServiceImpl) GetLineage(ctx context.Context, assignmentID string) (*primary.Lineage, error) {
	record, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	rootID := reassignment.RootOf(record.ID, record.OriginalAssignmentID)
	records, err := s.tracker.Lineage(ctx, rootID)
	if err != nil {
		return nil, err
	}

	lineage := &primary.Lineage{
		RootAssignmentID: rootID,
		Links:            make([]primary.LineageLink, len(records)),
		Holders:          reassignment.Holders(toLinks(records)),
	}
	for i, r := range records {
		lineage.Links[i] = primary.LineageLink{
			Ordinal:          r.Ordinal,
			FromAssignmentID: r.FromAssignmentID,
			ToAssignmentID:   r.ToAssignmentID,
			FromConsultantID: r.FromConsultantID,
			ToConsultantID:   r.ToConsultantID,
			Reason:           r.Reason,
			Exclusions:       r.Exclusions,
			RecordedAt:       r.RecordedAt,
		}
	}
	if lineage.Holders == nil {
		lineage.Holders = []string{record.ConsultantID}
	}
	return lineage, nil
}

// Helper methods

func (s *AssignmentServiceImpl) loadAssignment(ctx context.Context, id string) (*secondary.AssignmentRecord, error) {
	record, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, secondary.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAssignmentNotFound, id)
		}
		return nil, persistenceErr("get assignment", err)
	}
	return record, nil
}

// emit records an audit event outside any transaction. Failures are logged only.
func (s *AssignmentServiceImpl) emit(ctx context.Context, eventType, entityID string, payload map[string]any) {
	emitAudit(ctx, s.audit, s.logger, s.clock, eventType, entityID, payload)
}

func (s *AssignmentServiceImpl) recordToAssignment(r *secondary.AssignmentRecord) *primary.Assignment {
	return &primary.Assignment{
		ID:                   r.ID,
		LeadRef:              r.LeadRef,
		LeadName:             r.LeadName,
		ConsultantID:         r.ConsultantID,
		RequesterID:          r.RequesterID,
		Status:               r.Status,
		IsManual:             r.IsManual,
		ManualReason:         r.ManualReason,
		Method:               r.Method,
		ReassignmentCount:    r.ReassignmentCount,
		OriginalAssignmentID: r.OriginalAssignmentID,
		CreatedAt:            r.CreatedAt,
		CompletedAt:          r.CompletedAt,
		CancelledAt:          r.CancelledAt,
	}
}

func emitAudit(ctx context.Context, sink secondary.AuditSink, logger logging.Logger, clk clock.PassiveClock, eventType, entityID string, payload map[string]any) {
	if sink == nil {
		return
	}
	event := secondary.AuditEvent{
		ID:         newAuditID(),
		Type:       eventType,
		ActorID:    ctxutil.ActorFromContext(ctx),
		EntityID:   entityID,
		Payload:    payload,
		OccurredAt: clk.Now(),
	}
	if err := sink.Record(ctx, event); err != nil {
		logger.Warn("failed to record audit event", "type", eventType, "entity", entityID, "error", err)
	}
}

func toSnapshots(records []*secondary.ConsultantRecord) []fairness.Snapshot {
	roster := make([]fairness.Snapshot, len(records))
	for i, r := range records {
		roster[i] = fairness.Snapshot{
			ConsultantID:          r.ID,
			AssignmentCount:       r.AssignmentCount,
			ActiveAssignmentCount: r.ActiveAssignmentCount,
			AssignmentsLast24h:    r.AssignmentsLast24h,
			AssignmentsLast7d:     r.AssignmentsLast7d,
			LastAssignedAt:        r.LastAssignedAt,
			Version:               r.Version,
		}
	}
	return roster
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrConsultantLocked):
		return "locked"
	case errors.Is(err, ErrVersionMismatch):
		return "version_mismatch"
	default:
		return "error"
	}
}

// Ensure AssignmentServiceImpl implements the interface.
var _ primary.AssignmentService = (*AssignmentServiceImpl)(nil)
