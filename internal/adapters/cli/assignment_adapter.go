// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle output formatting, but delegate
// business logic to services.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/example/leadrouter/internal/ports/primary"
)

const rule = "────────────────────────────────────────────────────────────────────────"

// AssignmentAdapter is a thin adapter that translates CLI operations to AssignmentService calls.
type AssignmentAdapter struct {
	service   primary.AssignmentService
	out       io.Writer
	retryable func(error) bool
}

// NewAssignmentAdapter creates a new AssignmentAdapter. retryable decides
// which CreateAssignment failures are worth another attempt; nil disables retries.
func NewAssignmentAdapter(service primary.AssignmentService, out io.Writer, retryable func(error) bool) *AssignmentAdapter {
	if retryable == nil {
		retryable = func(error) bool { return false }
	}
	return &AssignmentAdapter{service: service, out: out, retryable: retryable}
}

// Assign routes a lead, retrying transient conflicts up to retries extra times.
func (a *AssignmentAdapter) Assign(ctx context.Context, req primary.CreateAssignmentRequest, retries int) (*primary.Assignment, error) {
	var (
		assignment *primary.Assignment
		err        error
	)
	for attempt := 0; attempt <= retries; attempt++ {
		assignment, err = a.service.CreateAssignment(ctx, req)
		if err == nil || !a.retryable(err) {
			break
		}
		fmt.Fprintf(a.out, "%s attempt %d: %v\n", color.New(color.FgYellow).Sprint("!"), attempt+1, err)
	}
	if err != nil {
		return nil, err
	}

	a.printCreated(assignment)
	return assignment, nil
}

// AssignManually assigns a lead to a named consultant.
func (a *AssignmentAdapter) AssignManually(ctx context.Context, req primary.ManualAssignmentRequest) error {
	assignment, err := a.service.AssignManually(ctx, req)
	if err != nil {
		return err
	}
	a.printCreated(assignment)
	return nil
}

// Reassign supersedes an assignment.
func (a *AssignmentAdapter) Reassign(ctx context.Context, req primary.ReassignRequest) error {
	assignment, err := a.service.Reassign(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Reassigned %s → %s (%s, reassignment #%d)\n",
		req.AssignmentID, assignment.ID, assignment.ConsultantID, assignment.ReassignmentCount)
	return nil
}

// List lists assignments.
func (a *AssignmentAdapter) List(ctx context.Context, filters primary.AssignmentFilters) error {
	assignments, err := a.service.ListAssignments(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to list assignments: %w", err)
	}

	if len(assignments) == 0 {
		fmt.Fprintln(a.out, "No assignments found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-38s %-10s %-10s %-17s %-12s %s\n", "ID", "CONSULTANT", "STATUS", "METHOD", "REQUESTER", "LEAD")
	fmt.Fprintln(a.out, rule)
	for _, as := range assignments {
		fmt.Fprintf(a.out, "%-38s %-10s %-10s %-17s %-12s %s\n",
			as.ID, as.ConsultantID, statusLabel(as.Status), as.Method, as.RequesterID, leadLabel(as.LeadRef, as.LeadName))
	}
	fmt.Fprintln(a.out)

	return nil
}

// Show displays details for a single assignment.
func (a *AssignmentAdapter) Show(ctx context.Context, assignmentID string) (*primary.Assignment, error) {
	as, err := a.service.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	fmt.Fprintf(a.out, "\nAssignment: %s\n", as.ID)
	fmt.Fprintf(a.out, "Lead:       %s\n", leadLabel(as.LeadRef, as.LeadName))
	fmt.Fprintf(a.out, "Consultant: %s\n", as.ConsultantID)
	fmt.Fprintf(a.out, "Requester:  %s\n", as.RequesterID)
	fmt.Fprintf(a.out, "Status:     %s\n", statusLabel(as.Status))
	fmt.Fprintf(a.out, "Method:     %s\n", as.Method)
	if as.ManualReason != "" {
		fmt.Fprintf(a.out, "Reason:     %s\n", as.ManualReason)
	}
	if as.OriginalAssignmentID != "" {
		fmt.Fprintf(a.out, "Original:   %s (reassignment #%d)\n", as.OriginalAssignmentID, as.ReassignmentCount)
	}
	fmt.Fprintf(a.out, "Created:    %s\n", formatTime(as.CreatedAt))
	if as.CompletedAt != nil {
		fmt.Fprintf(a.out, "Completed:  %s\n", formatTime(*as.CompletedAt))
	}
	if as.CancelledAt != nil {
		fmt.Fprintf(a.out, "Cancelled:  %s\n", formatTime(*as.CancelledAt))
	}
	fmt.Fprintln(a.out)

	return as, nil
}

// Complete marks an assignment as completed.
func (a *AssignmentAdapter) Complete(ctx context.Context, assignmentID string) error {
	if _, err := a.service.CompleteAssignment(ctx, assignmentID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Assignment %s completed\n", assignmentID)
	return nil
}

// Cancel marks an assignment as cancelled.
func (a *AssignmentAdapter) Cancel(ctx context.Context, assignmentID string) error {
	if _, err := a.service.CancelAssignment(ctx, assignmentID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Assignment %s cancelled\n", assignmentID)
	return nil
}

// Lineage prints the reassignment chain containing an assignment.
func (a *AssignmentAdapter) Lineage(ctx context.Context, assignmentID string) error {
	lineage, err := a.service.GetLineage(ctx, assignmentID)
	if err != nil {
		return fmt.Errorf("failed to get lineage: %w", err)
	}

	fmt.Fprintf(a.out, "\nLineage of %s\n", lineage.RootAssignmentID)
	fmt.Fprintf(a.out, "Holders: %s\n", strings.Join(lineage.Holders, " → "))
	if len(lineage.Links) == 0 {
		fmt.Fprintln(a.out, "No reassignments")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-3s %-10s %-10s %-20s %s\n", "#", "FROM", "TO", "RECORDED", "REASON")
	fmt.Fprintln(a.out, rule)
	for _, l := range lineage.Links {
		fmt.Fprintf(a.out, "%-3d %-10s %-10s %-20s %s\n",
			l.Ordinal, l.FromConsultantID, l.ToConsultantID, formatTime(l.RecordedAt), l.Reason)
	}
	fmt.Fprintln(a.out)

	return nil
}

// FairnessReport prints the current scores, best candidate first.
func (a *AssignmentAdapter) FairnessReport(ctx context.Context) error {
	report, err := a.service.GetFairnessReport(ctx)
	if err != nil {
		return fmt.Errorf("failed to get fairness report: %w", err)
	}

	if len(report.Scores) == 0 {
		fmt.Fprintln(a.out, "No active consultants")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-10s %-24s %8s %6s %7s %5s  %s\n", "ID", "NAME", "SCORE", "TOTAL", "ACTIVE", "24H", "LAST ASSIGNED")
	fmt.Fprintln(a.out, rule)
	for _, s := range report.Scores {
		last := color.New(color.FgCyan).Sprint("never")
		if s.LastAssignedAt != nil {
			last = formatTime(*s.LastAssignedAt)
		}
		fmt.Fprintf(a.out, "%-10s %-24s %8.2f %6d %7d %5d  %s\n",
			s.ConsultantID, s.Name, s.Score, s.AssignmentCount, s.ActiveAssignmentCount, s.AssignmentsLast24h, last)
	}

	fmt.Fprintf(a.out, "\nMean: %.2f  StdDev: %.2f  Fairness index: %s\n\n",
		report.MeanCount, report.StandardDeviation, fairnessLabel(report.FairnessIndex))
	return nil
}

func (a *AssignmentAdapter) printCreated(as *primary.Assignment) {
	fmt.Fprintf(a.out, "✓ Assigned %s to %s (%s)\n", leadLabel(as.LeadRef, as.LeadName), as.ConsultantID, as.ID)
	if as.Fallback {
		fmt.Fprintf(a.out, "  %s every candidate was filtered out; picked from the full roster\n",
			color.New(color.FgYellow).Sprint("fallback:"))
	}
}

func statusLabel(status string) string {
	switch status {
	case "active":
		return color.New(color.FgGreen).Sprint(status)
	case "cancelled":
		return color.New(color.FgRed).Sprint(status)
	}
	return status
}

func fairnessLabel(index float64) string {
	label := fmt.Sprintf("%.2f", index)
	switch {
	case index >= 0.9:
		return color.New(color.FgGreen).Sprint(label)
	case index >= 0.7:
		return color.New(color.FgYellow).Sprint(label)
	}
	return color.New(color.FgRed).Sprint(label)
}

func leadLabel(ref, name string) string {
	if name == "" {
		return ref
	}
	return fmt.Sprintf("%s (%s)", ref, name)
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}
