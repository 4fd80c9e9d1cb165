package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/leadrouter/internal/ports/primary"
	"github.com/example/leadrouter/internal/ports/secondary"
)

// mockConsultantService implements primary.ConsultantService for testing
type mockConsultantService struct {
	forceRemoveFn func(ctx context.Context, req primary.ForceRemoveRequest) (*primary.ForceRemoveResult, error)
	deactivateErr error

	lastCreateReq primary.CreateConsultantRequest
	consultants   []*primary.Consultant
}

func (m *mockConsultantService) CreateConsultant(ctx context.Context, req primary.CreateConsultantRequest) (*primary.Consultant, error) {
	m.lastCreateReq = req
	return &primary.Consultant{ID: "CONS-001", Name: req.Name, Email: req.Email, Active: true}, nil
}

func (m *mockConsultantService) GetConsultant(ctx context.Context, consultantID string) (*primary.Consultant, error) {
	last := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	return &primary.Consultant{
		ID:                    consultantID,
		Name:                  "Ada",
		Email:                 "ada@example.com",
		Active:                true,
		AssignmentCount:       4,
		ActiveAssignmentCount: 1,
		LastAssignedAt:        &last,
		Version:               7,
	}, nil
}

func (m *mockConsultantService) ListConsultants(ctx context.Context, includeInactive bool) ([]*primary.Consultant, error) {
	return m.consultants, nil
}

func (m *mockConsultantService) Deactivate(ctx context.Context, consultantID string) error {
	return m.deactivateErr
}

func (m *mockConsultantService) Reactivate(ctx context.Context, consultantID string) error {
	return nil
}

func (m *mockConsultantService) ForceRemove(ctx context.Context, req primary.ForceRemoveRequest) (*primary.ForceRemoveResult, error) {
	if m.forceRemoveFn != nil {
		return m.forceRemoveFn(ctx, req)
	}
	return &primary.ForceRemoveResult{ConsultantID: req.ConsultantID, Deactivated: true}, nil
}

func (m *mockConsultantService) Recount(ctx context.Context, consultantID string) (*primary.Consultant, error) {
	return &primary.Consultant{ID: consultantID, AssignmentCount: 3, ActiveAssignmentCount: 1}, nil
}

func TestConsultantAdapter_AddAndShow(t *testing.T) {
	svc := &mockConsultantService{}
	var out bytes.Buffer
	adapter := NewConsultantAdapter(svc, &out)
	ctx := context.Background()

	if err := adapter.Add(ctx, "Ada", "ada@example.com"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if svc.lastCreateReq.Email != "ada@example.com" {
		t.Errorf("request not forwarded: %+v", svc.lastCreateReq)
	}
	if !strings.Contains(out.String(), "Created consultant CONS-001: Ada") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	c, err := adapter.Show(ctx, "CONS-001")
	if err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if c.Version != 7 {
		t.Errorf("expected version 7, got %d", c.Version)
	}
	for _, want := range []string{"ada@example.com", "4 total, 1 active", "Version:    7"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestConsultantAdapter_List(t *testing.T) {
	svc := &mockConsultantService{}
	var out bytes.Buffer
	adapter := NewConsultantAdapter(svc, &out)

	if err := adapter.List(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "No consultants found") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	svc.consultants = []*primary.Consultant{
		{ID: "CONS-001", Name: "Ada", Active: true},
		{ID: "CONS-002", Name: "Bo", Active: false, AssignmentCount: 2},
	}
	if err := adapter.List(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "inactive") || !strings.Contains(out.String(), "never") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestConsultantAdapter_Deactivate(t *testing.T) {
	var out bytes.Buffer
	adapter := NewConsultantAdapter(&mockConsultantService{}, &out)
	if err := adapter.Deactivate(context.Background(), "CONS-001"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := adapter.Reactivate(context.Background(), "CONS-001"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "deactivated") || !strings.Contains(out.String(), "reactivated") {
		t.Errorf("unexpected output: %q", out.String())
	}

	busy := errors.New("consultant has active assignments")
	adapter = NewConsultantAdapter(&mockConsultantService{deactivateErr: busy}, &out)
	if err := adapter.Deactivate(context.Background(), "CONS-001"); !errors.Is(err, busy) {
		t.Errorf("expected %v, got %v", busy, err)
	}
}

func TestConsultantAdapter_ForceRemove(t *testing.T) {
	t.Run("all moved", func(t *testing.T) {
		svc := &mockConsultantService{forceRemoveFn: func(_ context.Context, req primary.ForceRemoveRequest) (*primary.ForceRemoveResult, error) {
			return &primary.ForceRemoveResult{
				ConsultantID: req.ConsultantID,
				Reassigned: []primary.ReassignedAssignment{
					{FromAssignmentID: "A-1", ToAssignmentID: "A-5", ToConsultantID: "CONS-002"},
				},
				Deactivated: true,
			}, nil
		}}
		var out bytes.Buffer
		adapter := NewConsultantAdapter(svc, &out)

		if err := adapter.ForceRemove(context.Background(), "CONS-001", "left"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "A-1 → A-5 (CONS-002)") || !strings.Contains(out.String(), "1 reassigned") {
			t.Errorf("unexpected output: %q", out.String())
		}
	})

	t.Run("partial failure", func(t *testing.T) {
		svc := &mockConsultantService{forceRemoveFn: func(_ context.Context, req primary.ForceRemoveRequest) (*primary.ForceRemoveResult, error) {
			return &primary.ForceRemoveResult{
				ConsultantID: req.ConsultantID,
				Reassigned:   []primary.ReassignedAssignment{{FromAssignmentID: "A-1", ToAssignmentID: "A-5"}},
				Failed:       []primary.FailedReassignment{{AssignmentID: "A-2", Error: "no suitable consultant"}},
			}, nil
		}}
		var out bytes.Buffer
		adapter := NewConsultantAdapter(svc, &out)

		err := adapter.ForceRemove(context.Background(), "CONS-001", "")
		if err == nil || !strings.Contains(err.Error(), "1 of 2") {
			t.Errorf("expected partial failure error, got %v", err)
		}
		if !strings.Contains(out.String(), "A-2: no suitable consultant") {
			t.Errorf("unexpected output: %q", out.String())
		}
	})
}

func TestConsultantAdapter_Recount(t *testing.T) {
	var out bytes.Buffer
	adapter := NewConsultantAdapter(&mockConsultantService{}, &out)
	if err := adapter.Recount(context.Background(), "CONS-004"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "CONS-004 recounted: 3 total, 1 active") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

type stubAuditLog struct {
	events  []*secondary.AuditEvent
	filters secondary.AuditFilters
}

func (s *stubAuditLog) List(_ context.Context, filters secondary.AuditFilters) ([]*secondary.AuditEvent, error) {
	s.filters = filters
	return s.events, nil
}

func TestAuditAdapter_List(t *testing.T) {
	log := &stubAuditLog{}
	var out bytes.Buffer
	adapter := NewAuditAdapter(log, &out)

	if err := adapter.List(context.Background(), secondary.AuditFilters{Limit: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "No audit events found") {
		t.Errorf("unexpected output: %q", out.String())
	}

	out.Reset()
	log.events = []*secondary.AuditEvent{
		{ID: "AUD-1", Type: secondary.AuditReassignment, ActorID: "OPS-1", EntityID: "A-2"},
	}
	if err := adapter.List(context.Background(), secondary.AuditFilters{Type: secondary.AuditReassignment}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.filters.Type != secondary.AuditReassignment {
		t.Errorf("filters not forwarded: %+v", log.filters)
	}
	if !strings.Contains(out.String(), "assignment.reassigned") || !strings.Contains(out.String(), "OPS-1") {
		t.Errorf("unexpected output: %q", out.String())
	}
}
