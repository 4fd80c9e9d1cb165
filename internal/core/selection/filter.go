// Package selection contains the pure candidate filtering and ordering rules
// that pick a consultant from a scored roster.
package selection

import (
	"time"

	"github.com/example/leadrouter/internal/core/fairness"
)

// Default business-rule limits.
const (
	DefaultMaxActiveAssignments = 3
	DefaultPairingWindow        = 24 * time.Hour
	DefaultIdlePreference       = 4 * time.Hour
)

// Candidate is a consultant snapshot annotated with its fairness score.
type Candidate struct {
	fairness.Snapshot
	Score float64
}

// FilterContext carries the per-request inputs of the candidate filter.
type FilterContext struct {
	Now                  time.Time
	Exclusions           ExclusionList
	MaxActiveAssignments int
	// RecentPairings lists consultants who received a lead from the same
	// requester inside the pairing window.
	RecentPairings []string
	IdlePreference time.Duration
}

// Filter applies the business-rule exclusions in order:
//  1. drop explicitly excluded consultants
//  2. drop consultants at or above MaxActiveAssignments
//  3. drop consultants recently paired with the requester
//  4. prefer consultants idle longer than IdlePreference, when any exist
//
// It returns an empty slice when every candidate is eliminated. The input is not modified.
func Filter(candidates []Candidate, fc FilterContext) []Candidate {
	maxActive := fc.MaxActiveAssignments
	if maxActive <= 0 {
		maxActive = DefaultMaxActiveAssignments
	}
	idle := fc.IdlePreference
	if idle <= 0 {
		idle = DefaultIdlePreference
	}

	paired := make(map[string]bool, len(fc.RecentPairings))
	for _, id := range fc.RecentPairings {
		paired[id] = true
	}

	var eligible []Candidate
	for _, c := range candidates {
		if fc.Exclusions.Contains(c.ConsultantID) {
			continue
		}
		if c.ActiveAssignmentCount >= maxActive {
			continue
		}
		if paired[c.ConsultantID] {
			continue
		}
		eligible = append(eligible, c)
	}

	var rested []Candidate
	for _, c := range eligible {
		if IsIdle(c.Snapshot, fc.Now, idle) {
			rested = append(rested, c)
		}
	}
	if len(rested) > 0 {
		return rested
	}

	if eligible == nil {
		return []Candidate{}
	}
	return eligible
}

// IsIdle reports whether s has gone longer than threshold without an assignment.
// Never-assigned consultants are always idle.
func IsIdle(s fairness.Snapshot, now time.Time, threshold time.Duration) bool {
	if s.LastAssignedAt == nil {
		return true
	}
	return now.Sub(*s.LastAssignedAt) > threshold
}

// WithoutExcluded returns the candidates not on the exclusion list.
func WithoutExcluded(candidates []Candidate, exclusions ExclusionList) []Candidate {
	result := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !exclusions.Contains(c.ConsultantID) {
			result = append(result, c)
		}
	}
	return result
}
