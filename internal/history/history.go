// Package history records compliance measurements over time and compares
// the violation snapshots of consecutive runs.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"time"

	"thymus/internal/diff"
	"thymus/internal/rules"
	"thymus/internal/storage"
)

// SeverityCounts is the per-severity tally of one entry.
type SeverityCounts struct {
	Error int `json:"error"`
	Warn  int `json:"warn"`
	Info  int `json:"info"`
}

// Entry is one compliance measurement.
type Entry struct {
	ID              int64          `json:"-"`
	RunID           string         `json:"runId,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
	Commit          string         `json:"commit"`
	FilesChecked    int            `json:"filesChecked"`
	Violations      SeverityCounts `json:"violations"`
	ComplianceScore float64        `json:"complianceScore"`
	ByRule          map[string]int `json:"byRule"`
}

// ComplianceScore is the share of checked files without an error-severity
// violation, as a percentage rounded to one decimal. No files scores 100.
func ComplianceScore(filesChecked, errors int) float64 {
	if filesChecked <= 0 {
		return 100
	}
	score := float64(filesChecked-errors) / float64(filesChecked) * 100
	return math.Round(score*10) / 10
}

// NewEntry builds an entry from a set of violations.
func NewEntry(runID, commit string, filesChecked int, vs []rules.Violation, at time.Time) Entry {
	e := Entry{
		RunID:        runID,
		Timestamp:    at.UTC().Truncate(time.Second),
		Commit:       commit,
		FilesChecked: filesChecked,
		ByRule:       make(map[string]int),
	}
	for _, v := range vs {
		switch v.Severity {
		case rules.SeverityError:
			e.Violations.Error++
		case rules.SeverityWarning:
			e.Violations.Warn++
		case rules.SeverityInfo:
			e.Violations.Info++
		}
		if v.RuleID != "" {
			e.ByRule[v.RuleID]++
		}
	}
	e.ComplianceScore = ComplianceScore(filesChecked, e.Violations.Error)
	return e
}

// Recorder persists entries and their violation snapshots.
type Recorder struct {
	repoRoot   string
	repo       *storage.HistoryRepository
	maxEntries int
	logger     *slog.Logger
	now        func() time.Time
}

// NewRecorder creates a recorder keeping at most maxEntries entries.
func NewRecorder(repoRoot string, db *storage.DB, maxEntries int, logger *slog.Logger) *Recorder {
	return &Recorder{
		repoRoot:   repoRoot,
		repo:       storage.NewHistoryRepository(db),
		maxEntries: maxEntries,
		logger:     logger,
		now:        time.Now,
	}
}

// Record stores an entry for vs, tagging it with the current commit.
func (r *Recorder) Record(ctx context.Context, runID string, filesChecked int, vs []rules.Violation) (Entry, error) {
	e := NewEntry(runID, diff.HeadCommit(ctx, r.repoRoot), filesChecked, vs, r.now())

	if vs == nil {
		vs = []rules.Violation{}
	}
	snapshot, err := json.Marshal(vs)
	if err != nil {
		return Entry{}, err
	}

	id, err := r.repo.Append(&storage.HistoryRecord{
		RunID:        e.RunID,
		RecordedAt:   e.Timestamp,
		Commit:       e.Commit,
		FilesChecked: e.FilesChecked,
		Errors:       e.Violations.Error,
		Warnings:     e.Violations.Warn,
		Info:         e.Violations.Info,
		Compliance:   e.ComplianceScore,
		ByRule:       e.ByRule,
		Snapshot:     snapshot,
	}, r.maxEntries)
	if err != nil {
		return Entry{}, err
	}
	e.ID = id
	r.logger.Debug("History entry recorded", "id", id, "compliance", e.ComplianceScore, "commit", e.Commit)
	return e, nil
}

// Entries returns the newest limit entries, oldest first. limit <= 0 means
// all of them.
func (r *Recorder) Entries(limit int) ([]Entry, error) {
	recs, err := r.repo.List(limit)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromRecord(rec))
	}
	return out, nil
}

// Latest returns the newest entry, or nil when there is none.
func (r *Recorder) Latest() (*Entry, error) {
	entries, err := r.Entries(1)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

// Snapshot returns the violations stored with entry id.
func (r *Recorder) Snapshot(id int64) ([]rules.Violation, error) {
	raw, err := r.repo.Snapshot(id)
	if err != nil {
		return nil, err
	}
	var vs []rules.Violation
	if len(raw) == 0 {
		return vs, nil
	}
	if err := json.Unmarshal(raw, &vs); err != nil {
		return nil, fmt.Errorf("history %d: decode snapshot: %w", id, err)
	}
	return vs, nil
}

func fromRecord(rec storage.HistoryRecord) Entry {
	byRule := rec.ByRule
	if byRule == nil {
		byRule = make(map[string]int)
	}
	return Entry{
		ID:              rec.ID,
		RunID:           rec.RunID,
		Timestamp:       rec.RecordedAt,
		Commit:          rec.Commit,
		FilesChecked:    rec.FilesChecked,
		Violations:      SeverityCounts{Error: rec.Errors, Warn: rec.Warnings, Info: rec.Info},
		ComplianceScore: rec.Compliance,
		ByRule:          byRule,
	}
}

// ExportJSONL writes one compact JSON object per entry.
func ExportJSONL(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}

// RuleCount is a rule id with an aggregate violation count.
type RuleCount struct {
	RuleID string `json:"ruleId"`
	Count  int    `json:"count"`
}

// Recurring sums ByRule across entries and returns the rules reaching
// threshold, most frequent first.
func Recurring(entries []Entry, threshold int) []RuleCount {
	totals := make(map[string]int)
	for _, e := range entries {
		for id, n := range e.ByRule {
			totals[id] += n
		}
	}
	var out []RuleCount
	for id, n := range totals {
		if n >= threshold {
			out = append(out, RuleCount{RuleID: id, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].RuleID < out[j].RuleID
	})
	return out
}
