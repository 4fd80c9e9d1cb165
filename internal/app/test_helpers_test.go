package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	testingclock "k8s.io/utils/clock/testing"

	"github.com/example/leadrouter/internal/adapters/lock"
	"github.com/example/leadrouter/internal/core/assignment"
	"github.com/example/leadrouter/internal/ports/secondary"
)

// ============================================================================
// In-memory store
// ============================================================================

// memStore implements every persistence port over maps guarded by one mutex.
// Conditional writes follow the same rules as the SQL adapters.
type memStore struct {
	mu            sync.Mutex
	consultants   map[string]*secondary.ConsultantRecord
	assignments   map[string]*secondary.AssignmentRecord
	reassignments []*secondary.ReassignmentRecord
	nextID        int

	listErr   error
	commitErr error
	// failSupersede makes commits superseding the given assignment fail.
	failSupersede map[string]error
	// afterList runs after ListActive took its snapshot, outside the mutex.
	afterList func()
	commits   int
}

var (
	_ secondary.ConsultantRepository    = (*memStore)(nil)
	_ secondary.ConsultantStatsProvider = (*memStore)(nil)
	_ secondary.AssignmentHistory       = (*memStore)(nil)
	_ secondary.AssignmentStore         = (*memStore)(nil)
	_ secondary.ReassignmentRepository  = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		consultants:   make(map[string]*secondary.ConsultantRecord),
		assignments:   make(map[string]*secondary.AssignmentRecord),
		failSupersede: make(map[string]error),
	}
}

func copyConsultant(c *secondary.ConsultantRecord) *secondary.ConsultantRecord {
	cp := *c
	return &cp
}

func copyAssignment(a *secondary.AssignmentRecord) *secondary.AssignmentRecord {
	cp := *a
	return &cp
}

// seedConsultant inserts a consultant with the given counters.
func (m *memStore) seedConsultant(id string, count int, lastAssigned *time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consultants[id] = &secondary.ConsultantRecord{
		ID:              id,
		Name:            "Consultant " + id,
		Active:          true,
		AssignmentCount: count,
		LastAssignedAt:  lastAssigned,
	}
}

func (m *memStore) consultant(id string) *secondary.ConsultantRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyConsultant(m.consultants[id])
}

func (m *memStore) assignment(id string) *secondary.AssignmentRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyAssignment(m.assignments[id])
}

func (m *memStore) commitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

// ConsultantRepository

func (m *memStore) Create(ctx context.Context, c *secondary.ConsultantRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consultants[c.ID] = copyConsultant(c)
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*secondary.ConsultantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.consultants[id]
	if !ok {
		return nil, fmt.Errorf("consultant %s: %w", id, secondary.ErrNotFound)
	}
	return copyConsultant(c), nil
}

func (m *memStore) List(ctx context.Context, filters secondary.ConsultantFilters) ([]*secondary.ConsultantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.ConsultantRecord
	for _, c := range m.consultants {
		if c.Active || filters.IncludeInactive {
			out = append(out, copyConsultant(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) SetActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.consultants[id]
	if !ok {
		return secondary.ErrNotFound
	}
	if !active && c.ActiveAssignmentCount > 0 {
		return secondary.ErrStale
	}
	c.Active = active
	c.Version++
	return nil
}

func (m *memStore) Recount(ctx context.Context, id string) (*secondary.ConsultantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.consultants[id]
	if !ok {
		return nil, secondary.ErrNotFound
	}
	c.AssignmentCount, c.ActiveAssignmentCount, c.LastAssignedAt = 0, 0, nil
	for _, a := range m.assignments {
		if a.ConsultantID != id {
			continue
		}
		if a.Status != assignment.StatusCancelled {
			c.AssignmentCount++
		}
		if a.Status == assignment.StatusActive {
			c.ActiveAssignmentCount++
		}
		if c.LastAssignedAt == nil || a.CreatedAt.After(*c.LastAssignedAt) {
			t := a.CreatedAt
			c.LastAssignedAt = &t
		}
	}
	c.Version++
	return copyConsultant(c), nil
}

func (m *memStore) GetNextID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return fmt.Sprintf("CONS-%03d", m.nextID), nil
}

// ConsultantStatsProvider

func (m *memStore) ListActive(ctx context.Context, now time.Time) ([]*secondary.ConsultantRecord, error) {
	m.mu.Lock()
	if m.listErr != nil {
		m.mu.Unlock()
		return nil, m.listErr
	}
	var out []*secondary.ConsultantRecord
	for _, c := range m.consultants {
		if !c.Active {
			continue
		}
		cp := copyConsultant(c)
		for _, a := range m.assignments {
			if a.ConsultantID != c.ID || a.Status == assignment.StatusCancelled {
				continue
			}
			if !a.CreatedAt.Before(now.Add(-24 * time.Hour)) {
				cp.AssignmentsLast24h++
			}
			if !a.CreatedAt.Before(now.Add(-7 * 24 * time.Hour)) {
				cp.AssignmentsLast7d++
			}
		}
		out = append(out, cp)
	}
	hook := m.afterList
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if hook != nil {
		hook()
	}
	return out, nil
}

// AssignmentHistory

func (m *memStore) RecentPairings(ctx context.Context, requesterID string, since time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, a := range m.assignments {
		if a.RequesterID == requesterID && a.Status != assignment.StatusCancelled && !a.CreatedAt.Before(since) {
			ids = append(ids, a.ConsultantID)
		}
	}
	return ids, nil
}

// AssignmentStore

func (m *memStore) CommitAssignment(ctx context.Context, req secondary.CommitRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.commitErr != nil {
		return m.commitErr
	}
	if err := m.failSupersede[req.Supersedes]; err != nil && req.Supersedes != "" {
		return err
	}

	c, ok := m.consultants[req.Assignment.ConsultantID]
	if !ok || !c.Active || c.Version != req.ExpectedVersion {
		return secondary.ErrStale
	}

	var old *secondary.AssignmentRecord
	if req.Supersedes != "" {
		old = m.assignments[req.Supersedes]
		if old == nil || old.Status != assignment.StatusActive {
			return secondary.ErrStale
		}
	}

	if req.Reassignment != nil {
		ordinal := 1
		for _, r := range m.reassignments {
			if r.RootAssignmentID == req.Reassignment.RootAssignmentID && r.Ordinal >= ordinal {
				ordinal = r.Ordinal + 1
			}
		}
		req.Reassignment.Ordinal = ordinal
		req.Reassignment.RecordedAt = req.Assignment.CreatedAt
		req.Assignment.ReassignmentCount = ordinal
		rec := *req.Reassignment
		m.reassignments = append(m.reassignments, &rec)
		if root := m.assignments[req.Reassignment.RootAssignmentID]; root != nil {
			root.ReassignmentCount = ordinal
		}
	}

	m.assignments[req.Assignment.ID] = copyAssignment(req.Assignment)

	c.AssignmentCount++
	c.ActiveAssignmentCount++
	t := req.Assignment.CreatedAt
	c.LastAssignedAt = &t
	c.Version++

	if old != nil {
		at := req.Assignment.CreatedAt
		old.Status = assignment.StatusCancelled
		old.CancelledAt = &at
		prev := m.consultants[old.ConsultantID]
		prev.ActiveAssignmentCount--
		prev.AssignmentCount--
		prev.Version++
	}

	m.commits++
	return nil
}

func (m *memStore) TransitionAssignment(ctx context.Context, req secondary.TransitionRequest) (*secondary.AssignmentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assignments[req.AssignmentID]
	if !ok {
		return nil, secondary.ErrNotFound
	}
	if a.Status != assignment.StatusActive {
		return nil, secondary.ErrStale
	}

	at := req.At
	a.Status = req.Status
	c := m.consultants[a.ConsultantID]
	c.ActiveAssignmentCount--
	switch req.Status {
	case assignment.StatusCompleted:
		a.CompletedAt = &at
	case assignment.StatusCancelled:
		a.CancelledAt = &at
		c.AssignmentCount--
	}
	c.Version++
	return copyAssignment(a), nil
}

// AssignmentRepository (GetByID is shared by name with consultants, so the
// assignment lookups live on a view type).

type memAssignments struct{ *memStore }

var _ secondary.AssignmentRepository = memAssignments{}

func (v memAssignments) GetByID(ctx context.Context, id string) (*secondary.AssignmentRecord, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	a, ok := v.assignments[id]
	if !ok {
		return nil, fmt.Errorf("assignment %s: %w", id, secondary.ErrNotFound)
	}
	return copyAssignment(a), nil
}

func (v memAssignments) List(ctx context.Context, filters secondary.AssignmentFilters) ([]*secondary.AssignmentRecord, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []*secondary.AssignmentRecord
	for _, a := range v.assignments {
		if filters.ConsultantID != "" && a.ConsultantID != filters.ConsultantID {
			continue
		}
		if filters.RequesterID != "" && a.RequesterID != filters.RequesterID {
			continue
		}
		if filters.Status != "" && a.Status != filters.Status {
			continue
		}
		out = append(out, copyAssignment(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

// ReassignmentRepository

func (m *memStore) Record(ctx context.Context, record *secondary.ReassignmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ordinal := 1
	for _, r := range m.reassignments {
		if r.RootAssignmentID == record.RootAssignmentID && r.Ordinal >= ordinal {
			ordinal = r.Ordinal + 1
		}
	}
	record.Ordinal = ordinal
	record.RecordedAt = record.RequestedAt
	rec := *record
	m.reassignments = append(m.reassignments, &rec)
	if root := m.assignments[record.RootAssignmentID]; root != nil {
		root.ReassignmentCount = ordinal
	}
	return nil
}

func (m *memStore) ListByRoot(ctx context.Context, rootID string) ([]*secondary.ReassignmentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.ReassignmentRecord
	for _, r := range m.reassignments {
		if r.RootAssignmentID == rootID {
			rec := *r
			out = append(out, &rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

// ============================================================================
// Audit sink mock
// ============================================================================

type mockAuditSink struct {
	mu        sync.Mutex
	events    []secondary.AuditEvent
	recordErr error
}

var _ secondary.AuditSink = (*mockAuditSink)(nil)

func (m *mockAuditSink) Record(ctx context.Context, event secondary.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.recordErr
}

func (m *mockAuditSink) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

func (m *mockAuditSink) has(eventType string) bool {
	for _, t := range m.types() {
		if t == eventType {
			return true
		}
	}
	return false
}

// ============================================================================
// Test Helper
// ============================================================================

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func hoursAgo(h int) *time.Time {
	t := testNow.Add(-time.Duration(h) * time.Hour)
	return &t
}

type testEnv struct {
	store     *memStore
	audit     *mockAuditSink
	clock     *testingclock.FakeClock
	locks     *lock.Table
	committer *Committer
	service   *AssignmentServiceImpl
	tracker   *ReassignmentTracker
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	store := newMemStore()
	audit := &mockAuditSink{}
	clk := testingclock.NewFakeClock(testNow)
	locks := lock.NewTable(nil)

	all := append([]Option{WithClock(clk)}, opts...)
	committer, err := NewCommitter(store, locks, all...)
	if err != nil {
		t.Fatalf("failed to create committer: %v", err)
	}
	tracker := NewReassignmentTracker(store, all...)
	service := NewAssignmentService(store, store, memAssignments{store}, store, committer, tracker, audit, all...)

	return &testEnv{
		store:     store,
		audit:     audit,
		clock:     clk,
		locks:     locks,
		committer: committer,
		service:   service,
		tracker:   tracker,
	}
}

func (e *testEnv) consultantService() *ConsultantServiceImpl {
	return NewConsultantService(e.store, memAssignments{e.store}, e.service, e.audit, WithClock(e.clock))
}
