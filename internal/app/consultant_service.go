package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/example/leadrouter/internal/core/assignment"
	"github.com/example/leadrouter/internal/logging"
	"github.com/example/leadrouter/internal/ports/primary"
	"github.com/example/leadrouter/internal/ports/secondary"
)

const (
	// forceRemoveParallelism bounds concurrent reassignments during ForceRemove.
	forceRemoveParallelism = 4
	// forceRemoveAttempts is how often one reassignment is retried on a
	// transient conflict.
	forceRemoveAttempts = forceRemoveParallelism + 1
)

// ConsultantServiceImpl implements the ConsultantService interface.
type ConsultantServiceImpl struct {
	consultantRepo    secondary.ConsultantRepository
	assignmentRepo    secondary.AssignmentRepository
	assignmentService primary.AssignmentService
	audit             secondary.AuditSink
	clock             clock.Clock
	logger            logging.Logger
}

// NewConsultantService creates a new ConsultantService with injected dependencies.
func NewConsultantService(
	consultantRepo secondary.ConsultantRepository,
	assignmentRepo secondary.AssignmentRepository,
	assignmentService primary.AssignmentService,
	audit secondary.AuditSink,
	opts ...Option,
) *ConsultantServiceImpl {
	o := newOptions(opts)
	return &ConsultantServiceImpl{
		consultantRepo:    consultantRepo,
		assignmentRepo:    assignmentRepo,
		assignmentService: assignmentService,
		audit:             audit,
		clock:             o.clock,
		logger:            o.logger,
	}
}

// CreateConsultant adds a consultant to the roster.
func (s *ConsultantServiceImpl) CreateConsultant(ctx context.Context, req primary.CreateConsultantRequest) (*primary.Consultant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationErr("name", "required")
	}
	email := strings.TrimSpace(req.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, validationErr("email", err.Error())
		}
	}

	nextID, err := s.consultantRepo.GetNextID(ctx)
	if err != nil {
		return nil, persistenceErr("generate consultant ID", err)
	}

	now := s.clock.Now()
	record := &secondary.ConsultantRecord{
		ID:        nextID,
		Name:      name,
		Email:     email,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.consultantRepo.Create(ctx, record); err != nil {
		return nil, persistenceErr("create consultant", err)
	}

	s.emit(ctx, secondary.AuditConsultantCreated, record.ID, map[string]any{"name": name})
	return s.GetConsultant(ctx, record.ID)
}

// GetConsultant retrieves a consultant by ID.
func (s *ConsultantServiceImpl) GetConsultant(ctx context.Context, consultantID string) (*primary.Consultant, error) {
	record, err := s.load(ctx, consultantID)
	if err != nil {
		return nil, err
	}
	return s.recordToConsultant(record), nil
}

// ListConsultants retrieves consultants, optionally including inactive ones.
func (s *ConsultantServiceImpl) ListConsultants(ctx context.Context, includeInactive bool) ([]*primary.Consultant, error) {
	records, err := s.consultantRepo.List(ctx, secondary.ConsultantFilters{IncludeInactive: includeInactive})
	if err != nil {
		return nil, persistenceErr("list consultants", err)
	}

	consultants := make([]*primary.Consultant, len(records))
	for i, r := range records {
		consultants[i] = s.recordToConsultant(r)
	}
	return consultants, nil
}

// Deactivate removes a consultant from the roster. It is refused while the
// consultant has active assignments.
func (s *ConsultantServiceImpl) Deactivate(ctx context.Context, consultantID string) error {
	record, err := s.load(ctx, consultantID)
	if err != nil {
		return err
	}

	guard := assignment.CanDeactivate(assignment.DeactivateContext{
		ConsultantID:          record.ID,
		Active:                record.Active,
		ActiveAssignmentCount: record.ActiveAssignmentCount,
	})
	if !guard.Allowed {
		if record.ActiveAssignmentCount > 0 {
			return fmt.Errorf("%w: %s", ErrConsultantHasActiveAssignments, guard.Reason)
		}
		return fmt.Errorf("%w: %s", ErrInvalidTransition, guard.Reason)
	}

	if err := s.consultantRepo.SetActive(ctx, record.ID, false); err != nil {
		if errors.Is(err, secondary.ErrStale) {
			// An assignment landed between the read and the write.
			return fmt.Errorf("%w: %s", ErrConsultantHasActiveAssignments, record.ID)
		}
		return persistenceErr("deactivate consultant", err)
	}

	s.logger.Info("consultant deactivated", "consultant", record.ID)
	s.emit(ctx, secondary.AuditConsultantRemoved, record.ID, nil)
	return nil
}

// Reactivate returns a consultant to the roster.
func (s *ConsultantServiceImpl) Reactivate(ctx context.Context, consultantID string) error {
	record, err := s.load(ctx, consultantID)
	if err != nil {
		return err
	}
	if record.Active {
		return fmt.Errorf("%w: consultant %s is already active", ErrInvalidTransition, record.ID)
	}

	if err := s.consultantRepo.SetActive(ctx, record.ID, true); err != nil {
		return persistenceErr("reactivate consultant", err)
	}

	s.logger.Info("consultant reactivated", "consultant", record.ID)
	s.emit(ctx, secondary.AuditConsultantActivated, record.ID, nil)
	return nil
}

// ForceRemove reassigns every active assignment away from the consultant
// through the normal selection path and deactivates it once none remain.
// Assignments that cannot be moved are reported in the result rather than
// failing the whole operation; the consultant then stays active.
func (s *ConsultantServiceImpl) ForceRemove(ctx context.Context, req primary.ForceRemoveRequest) (*primary.ForceRemoveResult, error) {
	record, err := s.load(ctx, req.ConsultantID)
	if err != nil {
		return nil, err
	}
	if !record.Active {
		return nil, fmt.Errorf("%w: consultant %s is already inactive", ErrInvalidTransition, record.ID)
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "consultant removed"
	}

	open, err := s.assignmentRepo.List(ctx, secondary.AssignmentFilters{
		ConsultantID: record.ID,
		Status:       assignment.StatusActive,
	})
	if err != nil {
		return nil, persistenceErr("list active assignments", err)
	}

	result := &primary.ForceRemoveResult{ConsultantID: record.ID}
	var mu sync.Mutex

	// Workers record failures in result and never return an error, so one
	// failed reassignment does not cancel the others.
	var g errgroup.Group
	g.SetLimit(forceRemoveParallelism)
	for _, a := range open {
		a := a // per-iteration copy; go.mod targets go 1.21 loop semantics
		g.Go(func() error {
			moved, err := s.reassignWithRetry(ctx, a.ID, record.ID, reason)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("force remove could not reassign", "assignment", a.ID, "error", err)
				result.Failed = append(result.Failed, primary.FailedReassignment{AssignmentID: a.ID, Error: err.Error()})
				return nil
			}
			result.Reassigned = append(result.Reassigned, primary.ReassignedAssignment{
				FromAssignmentID: a.ID,
				ToAssignmentID:   moved.ID,
				ToConsultantID:   moved.ConsultantID,
			})
			return nil
		})
	}
	g.Wait()

	sort.Slice(result.Reassigned, func(i, j int) bool {
		return result.Reassigned[i].FromAssignmentID < result.Reassigned[j].FromAssignmentID
	})
	sort.Slice(result.Failed, func(i, j int) bool {
		return result.Failed[i].AssignmentID < result.Failed[j].AssignmentID
	})

	if len(result.Failed) == 0 {
		switch err := s.Deactivate(ctx, record.ID); {
		case err == nil:
			result.Deactivated = true
		case errors.Is(err, ErrConsultantHasActiveAssignments):
			s.logger.Warn("consultant received new work during force remove", "consultant", record.ID)
		default:
			return result, err
		}
	}

	s.logger.Info("force remove finished",
		"consultant", record.ID, "reassigned", len(result.Reassigned), "failed", len(result.Failed),
		"deactivated", result.Deactivated)
	return result, nil
}

func (s *ConsultantServiceImpl) reassignWithRetry(ctx context.Context, assignmentID, consultantID, reason string) (*primary.Assignment, error) {
	var lastErr error
	for attempt := 0; attempt < forceRemoveAttempts; attempt++ {
		moved, err := s.assignmentService.Reassign(ctx, primary.ReassignRequest{
			AssignmentID:    assignmentID,
			Reason:          reason,
			ExtraExclusions: []string{consultantID},
		})
		if err == nil {
			return moved, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// Recount recomputes a consultant's counters from assignment history.
func (s *ConsultantServiceImpl) Recount(ctx context.Context, consultantID string) (*primary.Consultant, error) {
	if _, err := s.load(ctx, consultantID); err != nil {
		return nil, err
	}

	record, err := s.consultantRepo.Recount(ctx, consultantID)
	if err != nil {
		return nil, persistenceErr("recount consultant", err)
	}

	s.emit(ctx, secondary.AuditConsultantRecounted, record.ID, map[string]any{
		"assignment_count":        record.AssignmentCount,
		"active_assignment_count": record.ActiveAssignmentCount,
	})
	return s.recordToConsultant(record), nil
}

// Helper methods

func (s *ConsultantServiceImpl) load(ctx context.Context, id string) (*secondary.ConsultantRecord, error) {
	record, err := s.consultantRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, secondary.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrConsultantNotFound, id)
		}
		return nil, persistenceErr("get consultant", err)
	}
	return record, nil
}

func (s *ConsultantServiceImpl) emit(ctx context.Context, eventType, entityID string, payload map[string]any) {
	emitAudit(ctx, s.audit, s.logger, s.clock, eventType, entityID, payload)
}

func (s *ConsultantServiceImpl) recordToConsultant(r *secondary.ConsultantRecord) *primary.Consultant {
	return &primary.Consultant{
		ID:                    r.ID,
		Name:                  r.Name,
		Email:                 r.Email,
		Active:                r.Active,
		AssignmentCount:       r.AssignmentCount,
		ActiveAssignmentCount: r.ActiveAssignmentCount,
		LastAssignedAt:        r.LastAssignedAt,
		Version:               r.Version,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

// Ensure ConsultantServiceImpl implements the interface.
var _ primary.ConsultantService = (*ConsultantServiceImpl)(nil)
