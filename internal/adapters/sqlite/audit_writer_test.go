package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/example/leadrouter/internal/adapters/sqlite"
	"github.com/example/leadrouter/internal/ctxutil"
	"github.com/example/leadrouter/internal/ports/secondary"
)

func TestAuditWriter_RecordAndList(t *testing.T) {
	db := setupTestDB(t)
	writer := sqlite.NewAuditWriter(db)
	ctx := ctxutil.WithActorID(context.Background(), "OPS-7")

	events := []secondary.AuditEvent{
		{
			ID:         "AUD-1",
			Type:       secondary.AuditAssignmentCreated,
			EntityID:   "A-1",
			Payload:    map[string]any{"consultant_id": "CONS-001", "score": -15.0},
			OccurredAt: testNow,
		},
		{
			ID:         "AUD-2",
			Type:       secondary.AuditAssignmentFallback,
			ActorID:    "REQ-9",
			EntityID:   "LEAD-2",
			OccurredAt: testNow.Add(time.Minute),
		},
	}
	for _, e := range events {
		if err := writer.Record(ctx, e); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	t.Run("lists newest first", func(t *testing.T) {
		got, err := writer.List(ctx, secondary.AuditFilters{})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 events, got %d", len(got))
		}
		if got[0].ID != "AUD-2" {
			t.Errorf("expected AUD-2 first, got %q", got[0].ID)
		}
		if got[0].ActorID != "REQ-9" {
			t.Errorf("explicit actor overwritten: %q", got[0].ActorID)
		}
		if got[1].ActorID != "OPS-7" {
			t.Errorf("ActorID = %q, want actor from context", got[1].ActorID)
		}
		if got[1].Payload["consultant_id"] != "CONS-001" {
			t.Errorf("payload not round-tripped: %v", got[1].Payload)
		}
	})

	t.Run("filters by type and entity", func(t *testing.T) {
		got, _ := writer.List(ctx, secondary.AuditFilters{Type: secondary.AuditAssignmentCreated})
		if len(got) != 1 || got[0].ID != "AUD-1" {
			t.Errorf("type filter returned %+v", got)
		}

		got, _ = writer.List(ctx, secondary.AuditFilters{EntityID: "LEAD-2", Limit: 5})
		if len(got) != 1 || got[0].ID != "AUD-2" {
			t.Errorf("entity filter returned %+v", got)
		}
	})
}
