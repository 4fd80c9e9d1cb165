package fairness

import (
	"math"
	"sort"
	"time"
)

// ScoredConsultant pairs a snapshot with its computed score.
type ScoredConsultant struct {
	Snapshot Snapshot
	Score    float64
}

// Report summarises how evenly assignments are spread across a roster.
type Report struct {
	Scores            []ScoredConsultant
	MeanCount         float64
	StandardDeviation float64
	FairnessIndex     float64
	GeneratedAt       time.Time
}

// BuildReport scores every consultant in roster and computes distribution statistics.
// Scores are ordered by consultant ID. FairnessIndex is Jain's index over
// AssignmentCount: 1 when perfectly even, approaching 1/n when one consultant holds everything.
func (sc *Scorer) BuildReport(roster []Snapshot, now time.Time) Report {
	scores := make([]ScoredConsultant, 0, len(roster))
	for _, s := range roster {
		scores = append(scores, ScoredConsultant{Snapshot: s, Score: sc.Score(s, roster, now)})
	}
	sort.Slice(scores, func(i, j int) bool {
		return scores[i].Snapshot.ConsultantID < scores[j].Snapshot.ConsultantID
	})

	return Report{
		Scores:            scores,
		MeanCount:         round2(AverageCount(roster)),
		StandardDeviation: round2(StandardDeviation(roster)),
		FairnessIndex:     round2(JainIndex(roster)),
		GeneratedAt:       now,
	}
}

// StandardDeviation returns the population standard deviation of AssignmentCount.
func StandardDeviation(roster []Snapshot) float64 {
	if len(roster) == 0 {
		return 0
	}
	avg := AverageCount(roster)
	sum := 0.0
	for _, s := range roster {
		d := float64(s.AssignmentCount) - avg
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(roster)))
}

// JainIndex returns (Σx)² / (n·Σx²) over AssignmentCount.
// An empty roster or a roster with no assignments is perfectly fair.
func JainIndex(roster []Snapshot) float64 {
	if len(roster) == 0 {
		return 1
	}
	sum, sumSq := 0.0, 0.0
	for _, s := range roster {
		x := float64(s.AssignmentCount)
		sum += x
		sumSq += x * x
	}
	if sumSq == 0 {
		return 1
	}
	return (sum * sum) / (float64(len(roster)) * sumSq)
}
