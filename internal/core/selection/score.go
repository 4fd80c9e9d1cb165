package selection

import (
	"time"

	"github.com/example/leadrouter/internal/core/fairness"
)

// ScoreRoster annotates every snapshot in roster with its fairness score.
func ScoreRoster(scorer *fairness.Scorer, roster []fairness.Snapshot, now time.Time) []Candidate {
	candidates := make([]Candidate, len(roster))
	for i, s := range roster {
		candidates[i] = Candidate{Snapshot: s, Score: scorer.Score(s, roster, now)}
	}
	return candidates
}
