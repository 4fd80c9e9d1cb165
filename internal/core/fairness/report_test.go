package fairness

import (
	"math"
	"testing"
	"time"
)

func TestBuildReport(t *testing.T) {
	roster := []Snapshot{
		{ConsultantID: "C-3", AssignmentCount: 2, LastAssignedAt: ago(48 * time.Hour)},
		{ConsultantID: "C-1", AssignmentCount: 2, LastAssignedAt: ago(48 * time.Hour)},
		{ConsultantID: "C-2", AssignmentCount: 2, LastAssignedAt: ago(48 * time.Hour)},
	}

	report := NewScorer(DefaultWeights()).BuildReport(roster, now)

	if len(report.Scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(report.Scores))
	}
	for i, id := range []string{"C-1", "C-2", "C-3"} {
		if report.Scores[i].Snapshot.ConsultantID != id {
			t.Errorf("Scores[%d] = %s, want %s", i, report.Scores[i].Snapshot.ConsultantID, id)
		}
		if report.Scores[i].Score != -2 {
			t.Errorf("Scores[%d].Score = %v, want -2", i, report.Scores[i].Score)
		}
	}
	if report.StandardDeviation != 0 {
		t.Errorf("StandardDeviation = %v, want 0", report.StandardDeviation)
	}
	if report.FairnessIndex != 1 {
		t.Errorf("FairnessIndex = %v, want 1", report.FairnessIndex)
	}
	if report.MeanCount != 2 {
		t.Errorf("MeanCount = %v, want 2", report.MeanCount)
	}
	if !report.GeneratedAt.Equal(now) {
		t.Errorf("GeneratedAt = %v, want %v", report.GeneratedAt, now)
	}
}

func TestStandardDeviation(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   float64
	}{
		{name: "empty roster", counts: nil, want: 0},
		{name: "even roster", counts: []int{3, 3, 3}, want: 0},
		{name: "uneven roster", counts: []int{2, 4, 4, 4, 5, 5, 7, 9}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StandardDeviation(rosterOf(tt.counts...))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("StandardDeviation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJainIndex(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   float64
	}{
		{name: "empty roster", counts: nil, want: 1},
		{name: "no assignments yet", counts: []int{0, 0}, want: 1},
		{name: "perfectly even", counts: []int{4, 4, 4, 4}, want: 1},
		{name: "one consultant holds everything", counts: []int{8, 0, 0, 0}, want: 0.25},
		{name: "partially skewed", counts: []int{1, 3}, want: 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JainIndex(rosterOf(tt.counts...))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("JainIndex() = %v, want %v", got, tt.want)
			}
		})
	}
}

func rosterOf(counts ...int) []Snapshot {
	roster := make([]Snapshot, len(counts))
	for i, c := range counts {
		roster[i] = Snapshot{AssignmentCount: c}
	}
	return roster
}
