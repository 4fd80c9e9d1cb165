// Package fairness contains the pure scoring logic used to decide which consultant
// should receive the next lead. Lower scores mean higher assignment priority.
package fairness

import (
	"math"
	"time"
)

// Snapshot is a consultant's counters as read at selection time.
// LastAssignedAt is nil for consultants that have never been assigned.
type Snapshot struct {
	ConsultantID          string
	AssignmentCount       int
	ActiveAssignmentCount int
	AssignmentsLast24h    int
	AssignmentsLast7d     int
	LastAssignedAt        *time.Time
	Version               int64
}

// Weights holds the scoring coefficients.
type Weights struct {
	RecentAssignment   float64 // per assignment in the last 24h
	ActiveAssignment   float64 // per open assignment
	NeverAssignedBonus float64 // subtracted when AssignmentCount == 0
	NeverIdleBonus     float64 // idle bonus for LastAssignedAt == nil
	MaxIdleBonus       float64 // idle bonus saturation for assigned consultants
}

// DefaultWeights returns the standard scoring coefficients.
func DefaultWeights() Weights {
	return Weights{
		RecentAssignment:   2.0,
		ActiveAssignment:   1.5,
		NeverAssignedBonus: 5,
		NeverIdleBonus:     10,
		MaxIdleBonus:       2,
	}
}

// Scorer computes fairness scores with a fixed set of weights.
type Scorer struct {
	weights Weights
}

// NewScorer creates a Scorer. Use DefaultWeights for the standard policy.
func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Score computes the score of s relative to roster using the default weights.
func Score(s Snapshot, roster []Snapshot, now time.Time) float64 {
	return NewScorer(DefaultWeights()).Score(s, roster, now)
}

// Score computes the score of s relative to roster:
//
//	(count - avg) + w24h*last24h + wActive*active - neverAssigned - idleBonus
//
// rounded to two decimals.
func (sc *Scorer) Score(s Snapshot, roster []Snapshot, now time.Time) float64 {
	w := sc.weights

	score := float64(s.AssignmentCount) - AverageCount(roster)
	score += w.RecentAssignment * float64(s.AssignmentsLast24h)
	score += w.ActiveAssignment * float64(s.ActiveAssignmentCount)
	if s.AssignmentCount == 0 {
		score -= w.NeverAssignedBonus
	}
	score -= sc.IdleBonus(s, now)

	return round2(score)
}

// IdleBonus returns the idle bonus for s. It saturates at MaxIdleBonus after
// 24*MaxIdleBonus hours idle.
func (sc *Scorer) IdleBonus(s Snapshot, now time.Time) float64 {
	if s.LastAssignedAt == nil {
		return sc.weights.NeverIdleBonus
	}
	hours := now.Sub(*s.LastAssignedAt).Hours()
	if hours < 0 {
		hours = 0
	}
	return math.Min(hours/24, sc.weights.MaxIdleBonus)
}

// AverageCount returns the mean AssignmentCount across roster, or 0 when empty.
func AverageCount(roster []Snapshot) float64 {
	if len(roster) == 0 {
		return 0
	}
	total := 0
	for _, r := range roster {
		total += r.AssignmentCount
	}
	return float64(total) / float64(len(roster))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
