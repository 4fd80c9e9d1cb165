// Package reassignment contains pure planning logic for assignment lineages.
// A lineage is the chain of assignments created for one lead, starting at a
// root assignment and extended by every reassignment.
package reassignment

import (
	"sort"

	"github.com/example/leadrouter/internal/core/selection"
)

// Link is the subset of a reassignment record the planner needs.
type Link struct {
	Ordinal          int
	FromAssignmentID string
	ToAssignmentID   string
	FromConsultantID string
	ToConsultantID   string
	Exclusions       selection.ExclusionList
}

// Plan describes the next step of a lineage. The store assigns the ordinal
// when the step is committed.
type Plan struct {
	RootAssignmentID string
	Exclusions       selection.ExclusionList
}

// RootOf returns the lineage root for an assignment. Root assignments carry
// an empty originalID.
func RootOf(assignmentID, originalID string) string {
	if originalID != "" {
		return originalID
	}
	return assignmentID
}

// PlanNext builds the plan for superseding an assignment held by
// currentConsultant. Every consultant that previously held or was excluded
// from the lineage stays excluded, followed by extra in caller order.
func PlanNext(rootID string, links []Link, currentConsultant string, extra ...string) Plan {
	ordered := Order(links)

	exclusions := selection.NewExclusionList()
	for _, l := range ordered {
		exclusions = exclusions.With(l.Exclusions...)
		exclusions = exclusions.With(l.FromConsultantID)
	}
	exclusions = exclusions.With(currentConsultant)
	exclusions = exclusions.With(extra...)

	return Plan{
		RootAssignmentID: rootID,
		Exclusions:       exclusions,
	}
}

// Order returns links sorted by ordinal without modifying the input.
func Order(links []Link) []Link {
	out := make([]Link, len(links))
	copy(out, links)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out
}

// Holders returns the consultants that held the lineage in order, starting
// with the root holder. Returns nil for an empty lineage.
func Holders(links []Link) []string {
	ordered := Order(links)
	if len(ordered) == 0 {
		return nil
	}
	holders := []string{ordered[0].FromConsultantID}
	for _, l := range ordered {
		holders = append(holders, l.ToConsultantID)
	}
	return holders
}
