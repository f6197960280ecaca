package history

import (
	"fmt"
	"math"

	"thymus/internal/rules"
)

// Direction summarises how compliance moved across a trend window.
type Direction string

const (
	Improving Direction = "improving"
	Declining Direction = "declining"
	Stable    Direction = "stable"
)

// Trend describes compliance over a window of entries.
type Trend struct {
	Entries   int       `json:"entries"`
	First     float64   `json:"first"`
	Last      float64   `json:"last"`
	Delta     float64   `json:"delta"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	Direction Direction `json:"direction"`
	Scores    []float64 `json:"scores"`
	Errors    []int     `json:"errors"`
}

// ComputeTrend summarises entries, which must be oldest first. Changes
// smaller than half a point count as stable.
func ComputeTrend(entries []Entry) Trend {
	t := Trend{Entries: len(entries), Direction: Stable}
	if len(entries) == 0 {
		return t
	}
	t.First = entries[0].ComplianceScore
	t.Last = entries[len(entries)-1].ComplianceScore
	t.Min, t.Max = t.First, t.First
	for _, e := range entries {
		t.Scores = append(t.Scores, e.ComplianceScore)
		t.Errors = append(t.Errors, e.Violations.Error)
		if e.ComplianceScore < t.Min {
			t.Min = e.ComplianceScore
		}
		if e.ComplianceScore > t.Max {
			t.Max = e.ComplianceScore
		}
	}
	t.Delta = roundTenth(t.Last - t.First)
	switch {
	case t.Delta >= 0.5:
		t.Direction = Improving
	case t.Delta <= -0.5:
		t.Direction = Declining
	}
	return t
}

// Sparkline renders scores as block characters scaled between 0 and 100.
func Sparkline(scores []float64) string {
	const blocks = "▁▂▃▄▅▆▇█"
	runes := []rune(blocks)
	out := make([]rune, 0, len(scores))
	for _, s := range scores {
		i := int(s / 100 * float64(len(runes)-1))
		if i < 0 {
			i = 0
		}
		if i >= len(runes) {
			i = len(runes) - 1
		}
		out = append(out, runes[i])
	}
	return string(out)
}

func roundTenth(f float64) float64 {
	return math.Round(f*10) / 10
}

// SnapshotDiff compares the violations of two history entries.
type SnapshotDiff struct {
	From     Entry             `json:"from"`
	To       Entry             `json:"to"`
	New      []rules.Violation `json:"new"`
	Resolved []rules.Violation `json:"resolved"`
}

// Compare returns the violations only in after (new) and only in before
// (resolved), matched by Violation.Key so line moves are not changes.
func Compare(before, after []rules.Violation) (added, resolved []rules.Violation) {
	seen := make(map[string]int, len(before))
	for _, v := range before {
		seen[v.Key()]++
	}
	for _, v := range after {
		if seen[v.Key()] > 0 {
			seen[v.Key()]--
			continue
		}
		added = append(added, v)
	}

	current := make(map[string]int, len(after))
	for _, v := range after {
		current[v.Key()]++
	}
	for _, v := range before {
		if current[v.Key()] > 0 {
			current[v.Key()]--
			continue
		}
		resolved = append(resolved, v)
	}
	return added, resolved
}

// DiffLatest compares the two newest entries.
func (r *Recorder) DiffLatest() (*SnapshotDiff, error) {
	entries, err := r.Entries(2)
	if err != nil {
		return nil, err
	}
	if len(entries) < 2 {
		return nil, fmt.Errorf("need at least two history entries, have %d", len(entries))
	}
	before, err := r.Snapshot(entries[0].ID)
	if err != nil {
		return nil, err
	}
	after, err := r.Snapshot(entries[1].ID)
	if err != nil {
		return nil, err
	}
	d := &SnapshotDiff{From: entries[0], To: entries[1]}
	d.New, d.Resolved = Compare(before, after)
	return d, nil
}
