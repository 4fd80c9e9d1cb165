package selection

import (
	"errors"
	"sort"
)

// ErrEmptyPool is returned by Select when both the filtered and fallback pools are empty.
var ErrEmptyPool = errors.New("no candidate in filtered or fallback pool")

// Outcome describes how a selection was reached.
type Outcome struct {
	// Fallback is true when filtering eliminated every candidate and the
	// winner was taken from the unfiltered pool.
	Fallback       bool
	FilteredCount  int
	CandidateCount int
}

// Select returns the best candidate from filtered. When filtered is empty it falls
// back to pool, which should be the scored roster minus hard exclusions.
func Select(filtered, pool []Candidate) (Candidate, Outcome, error) {
	outcome := Outcome{FilteredCount: len(filtered), CandidateCount: len(pool)}

	source := filtered
	if len(source) == 0 {
		outcome.Fallback = true
		source = pool
	}
	if len(source) == 0 {
		return Candidate{}, outcome, ErrEmptyPool
	}

	ordered := Order(source)
	return ordered[0], outcome, nil
}

// Order returns a copy of candidates sorted by assignment priority:
// score ascending, then LastAssignedAt ascending with never-assigned first,
// then consultant ID ascending.
func Order(candidates []Candidate) []Candidate {
	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return Less(ordered[i], ordered[j])
	})
	return ordered
}

// Less reports whether a should be assigned before b.
func Less(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}

	switch {
	case a.LastAssignedAt == nil && b.LastAssignedAt != nil:
		return true
	case a.LastAssignedAt != nil && b.LastAssignedAt == nil:
		return false
	case a.LastAssignedAt != nil && b.LastAssignedAt != nil && !a.LastAssignedAt.Equal(*b.LastAssignedAt):
		return a.LastAssignedAt.Before(*b.LastAssignedAt)
	}

	return a.ConsultantID < b.ConsultantID
}
