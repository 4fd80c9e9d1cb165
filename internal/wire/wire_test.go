package wire

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/leadrouter/internal/config"
	"github.com/example/leadrouter/internal/ports/primary"
	"github.com/example/leadrouter/internal/ports/secondary"
)

func TestBuild_SQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "leadrouter.db")
	cfg.Log.Format = "json"

	var logs bytes.Buffer
	c, err := Build(context.Background(), cfg, &logs)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	require.NotNil(t, c.SQL)
	require.NotNil(t, c.AuditLog)

	ctx := context.Background()
	_, err = c.Consultants.CreateConsultant(ctx, primary.CreateConsultantRequest{Name: "Ada"})
	require.NoError(t, err)

	got, err := c.Assignments.CreateAssignment(ctx, primary.CreateAssignmentRequest{
		RequesterID: "REQ-1",
		Lead:        primary.Lead{Ref: "LEAD-1"},
	})
	require.NoError(t, err)
	require.Equal(t, "CONS-001", got.ConsultantID)

	events, err := c.AuditLog.List(ctx, secondary.AuditFilters{Type: secondary.AuditAssignmentCreated})
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestBuild_AuditNone(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "leadrouter.db")
	cfg.Audit.Sink = config.AuditNone

	c, err := Build(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)
	defer c.Close()

	require.Nil(t, c.AuditLog)
}

func TestBuild_InvalidLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"

	_, err := Build(context.Background(), cfg, &bytes.Buffer{})
	require.Error(t, err)
}

func TestContainer_CloseIsIdempotent(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "leadrouter.db")

	c, err := Build(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
