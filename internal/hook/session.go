package hook

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"thymus/internal/history"
	"thymus/internal/modules"
	"thymus/internal/paths"
	"thymus/internal/rules"
	"thymus/internal/storage"
)

// RecurringThreshold is how often a rule must have fired across history
// before the session report suggests writing it into agent guidance.
const RecurringThreshold = 3

// SessionReport summarizes the violations left by the session's edits,
// records them as a history entry and clears the session. Projects without
// a baseline get no report.
func (r *Runner) SessionReport(ctx context.Context, in *Input) (Output, error) {
	baseline, err := modules.LoadBaseline(paths.BaselinePath(r.root))
	if err != nil {
		r.logger.Warn("baseline unreadable", "error", err)
	}
	if baseline == nil || r.db == nil {
		return Output{}, nil
	}

	session := in.Session()
	sessions := storage.NewSessionRepository(r.db)
	files, err := sessions.Files(session)
	if err != nil {
		return Output{}, err
	}
	if len(files) == 0 {
		return Output{SystemMessage: "thymus: no edits this session"}, nil
	}
	vs, err := sessions.List(session)
	if err != nil {
		return Output{}, err
	}

	recorder := history.NewRecorder(r.root, r.db, r.cfg.History.MaxEntries, r.logger)
	if _, err := recorder.Record(ctx, "session-"+session, len(files), vs); err != nil {
		r.logger.Warn("history append failed", "error", err)
	}

	msg := sessionSummary(vs)
	if entries, err := recorder.Entries(0); err == nil {
		if recurring := history.Recurring(entries, RecurringThreshold); len(recurring) > 0 {
			ids := make([]string, len(recurring))
			for i, rc := range recurring {
				ids[i] = rc.RuleID
			}
			sort.Strings(ids)
			msg += fmt.Sprintf("\n\nTip: [%s] has fired %d+ times; consider adding to CLAUDE.md:\n"+
				"  'always run thymus scan before committing'", strings.Join(ids, ", "), RecurringThreshold)
		}
	}

	if err := sessions.Clear(session); err != nil {
		r.logger.Warn("session clear failed", "session", session, "error", err)
	}
	r.logger.Debug("session report", "session", session, "files", len(files), "violations", len(vs))
	return Output{SystemMessage: msg}, nil
}

func sessionSummary(vs []rules.Violation) string {
	if len(vs) == 0 {
		return "thymus: clean session"
	}
	c := rules.Count(vs)
	var parts []string
	if c.Errors > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s)", c.Errors))
	}
	if c.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", c.Warnings))
	}
	if c.Info > 0 {
		parts = append(parts, fmt.Sprintf("%d info", c.Info))
	}

	seen := make(map[string]bool)
	var ids []string
	for _, v := range vs {
		if v.RuleID != "" && !seen[v.RuleID] {
			seen[v.RuleID] = true
			ids = append(ids, v.RuleID)
		}
	}
	sort.Strings(ids)

	return fmt.Sprintf("thymus: %d violation(s); %s | rules: %s | run thymus scan for details",
		c.Total, strings.Join(parts, ", "), strings.Join(ids, ", "))
}

// Status builds the session-start line: module count from the baseline,
// active invariants and the error count of the latest history entry. In a
// git repository it also makes sure .thymus/ is ignored.
func (r *Runner) Status(ctx context.Context) (Output, error) {
	if err := ensureGitignore(r.root); err != nil {
		r.logger.Warn("could not update .gitignore", "error", err)
	}

	baseline, err := modules.LoadBaseline(paths.BaselinePath(r.root))
	if err != nil {
		r.logger.Warn("baseline unreadable", "error", err)
	}
	if baseline == nil {
		return Output{SystemMessage: "thymus: no baseline found; run thymus baseline to initialize"}, nil
	}

	invariants := 0
	if loaded, err := r.store.Get(); err == nil {
		invariants = loaded.Set.Len()
	} else {
		r.logger.Debug("rules unavailable", "error", err)
	}

	recentErrors := 0
	if r.db != nil {
		latest, err := history.NewRecorder(r.root, r.db, r.cfg.History.MaxEntries, r.logger).Latest()
		if err != nil {
			r.logger.Warn("history unreadable", "error", err)
		} else if latest != nil {
			recentErrors = latest.Violations.Error
		}
	}

	msg := fmt.Sprintf("thymus: %d modules | %d invariants active", len(baseline.Modules), invariants)
	if recentErrors > 0 {
		msg += fmt.Sprintf(" | %d violation(s) last session", recentErrors)
	}
	msg += " | thymus scan for full report"
	return Output{SystemMessage: msg}, nil
}

// ensureGitignore appends ".thymus/" to .gitignore when the project is a git
// repository with a state directory that is not ignored yet.
func ensureGitignore(root string) error {
	if !isDir(paths.StateDir(root)) || !isDir(filepath.Join(root, ".git")) {
		return nil
	}
	path := filepath.Join(root, ".gitignore")

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		switch strings.TrimSpace(sc.Text()) {
		case ".thymus", ".thymus/":
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	prefix := ""
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		prefix = "\n"
	}
	_, err = f.WriteString(prefix + ".thymus/\n")
	return err
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
