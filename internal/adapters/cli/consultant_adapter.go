package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/example/leadrouter/internal/ports/primary"
	"github.com/example/leadrouter/internal/ports/secondary"
)

// ConsultantAdapter is a thin adapter that translates CLI operations to ConsultantService calls.
type ConsultantAdapter struct {
	service primary.ConsultantService
	out     io.Writer
}

// NewConsultantAdapter creates a new ConsultantAdapter with the given service.
func NewConsultantAdapter(service primary.ConsultantService, out io.Writer) *ConsultantAdapter {
	return &ConsultantAdapter{service: service, out: out}
}

// Add creates a consultant.
func (a *ConsultantAdapter) Add(ctx context.Context, name, email string) error {
	c, err := a.service.CreateConsultant(ctx, primary.CreateConsultantRequest{Name: name, Email: email})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Created consultant %s: %s\n", c.ID, c.Name)
	return nil
}

// List lists consultants.
func (a *ConsultantAdapter) List(ctx context.Context, includeInactive bool) error {
	consultants, err := a.service.ListConsultants(ctx, includeInactive)
	if err != nil {
		return fmt.Errorf("failed to list consultants: %w", err)
	}

	if len(consultants) == 0 {
		fmt.Fprintln(a.out, "No consultants found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-10s %-24s %-9s %6s %7s  %s\n", "ID", "NAME", "STATUS", "TOTAL", "ACTIVE", "LAST ASSIGNED")
	fmt.Fprintln(a.out, rule)
	for _, c := range consultants {
		last := "never"
		if c.LastAssignedAt != nil {
			last = formatTime(*c.LastAssignedAt)
		}
		fmt.Fprintf(a.out, "%-10s %-24s %-9s %6d %7d  %s\n",
			c.ID, c.Name, activeLabel(c.Active), c.AssignmentCount, c.ActiveAssignmentCount, last)
	}
	fmt.Fprintln(a.out)

	return nil
}

// Show displays details for a single consultant.
func (a *ConsultantAdapter) Show(ctx context.Context, consultantID string) (*primary.Consultant, error) {
	c, err := a.service.GetConsultant(ctx, consultantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get consultant: %w", err)
	}

	fmt.Fprintf(a.out, "\nConsultant: %s\n", c.ID)
	fmt.Fprintf(a.out, "Name:       %s\n", c.Name)
	if c.Email != "" {
		fmt.Fprintf(a.out, "Email:      %s\n", c.Email)
	}
	fmt.Fprintf(a.out, "Status:     %s\n", activeLabel(c.Active))
	fmt.Fprintf(a.out, "Assigned:   %d total, %d active\n", c.AssignmentCount, c.ActiveAssignmentCount)
	if c.LastAssignedAt != nil {
		fmt.Fprintf(a.out, "Last:       %s\n", formatTime(*c.LastAssignedAt))
	}
	fmt.Fprintf(a.out, "Version:    %d\n", c.Version)
	fmt.Fprintln(a.out)

	return c, nil
}

// Deactivate removes a consultant from the roster.
func (a *ConsultantAdapter) Deactivate(ctx context.Context, consultantID string) error {
	if err := a.service.Deactivate(ctx, consultantID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Consultant %s deactivated\n", consultantID)
	return nil
}

// Reactivate returns a consultant to the roster.
func (a *ConsultantAdapter) Reactivate(ctx context.Context, consultantID string) error {
	if err := a.service.Reactivate(ctx, consultantID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Consultant %s reactivated\n", consultantID)
	return nil
}

// ForceRemove reassigns a consultant's open work and deactivates them.
// It returns an error when any assignment could not be moved.
func (a *ConsultantAdapter) ForceRemove(ctx context.Context, consultantID, reason string) error {
	result, err := a.service.ForceRemove(ctx, primary.ForceRemoveRequest{ConsultantID: consultantID, Reason: reason})
	if err != nil {
		return err
	}

	for _, r := range result.Reassigned {
		fmt.Fprintf(a.out, "  ✓ %s → %s (%s)\n", r.FromAssignmentID, r.ToAssignmentID, r.ToConsultantID)
	}
	for _, f := range result.Failed {
		fmt.Fprintf(a.out, "  %s %s: %s\n", color.New(color.FgRed).Sprint("✗"), f.AssignmentID, f.Error)
	}

	if !result.Deactivated {
		return fmt.Errorf("consultant %s kept active: %d of %d assignments could not be reassigned",
			consultantID, len(result.Failed), len(result.Failed)+len(result.Reassigned))
	}

	fmt.Fprintf(a.out, "✓ Consultant %s removed (%d reassigned)\n", consultantID, len(result.Reassigned))
	return nil
}

// Recount rebuilds a consultant's counters from history.
func (a *ConsultantAdapter) Recount(ctx context.Context, consultantID string) error {
	c, err := a.service.Recount(ctx, consultantID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Consultant %s recounted: %d total, %d active\n", c.ID, c.AssignmentCount, c.ActiveAssignmentCount)
	return nil
}

// AuditAdapter prints audit events from a queryable sink.
type AuditAdapter struct {
	log secondary.AuditLog
	out io.Writer
}

// NewAuditAdapter creates a new AuditAdapter.
func NewAuditAdapter(log secondary.AuditLog, out io.Writer) *AuditAdapter {
	return &AuditAdapter{log: log, out: out}
}

// List prints events matching filters, newest first.
func (a *AuditAdapter) List(ctx context.Context, filters secondary.AuditFilters) error {
	events, err := a.log.List(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to list audit events: %w", err)
	}

	if len(events) == 0 {
		fmt.Fprintln(a.out, "No audit events found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-17s %-24s %-12s %s\n", "WHEN", "TYPE", "ACTOR", "ENTITY")
	fmt.Fprintln(a.out, rule)
	for _, e := range events {
		fmt.Fprintf(a.out, "%-17s %-24s %-12s %s\n", formatTime(e.OccurredAt), e.Type, e.ActorID, e.EntityID)
	}
	fmt.Fprintln(a.out)

	return nil
}

func activeLabel(active bool) string {
	if active {
		return color.New(color.FgGreen).Sprint("active")
	}
	return color.New(color.FgRed).Sprint("inactive")
}
