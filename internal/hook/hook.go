// Package hook implements the three agent hooks: the per-edit check, the
// end-of-session report and the session-start status line. Hooks read the
// agent's JSON on stdin and answer with at most one JSON object on stdout.
// A hook never fails the agent's tool call; problems are logged and the
// hook stays silent.
package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"thymus/internal/config"
	"thymus/internal/errors"
	"thymus/internal/paths"
	"thymus/internal/rules"
	"thymus/internal/rulestore"
	"thymus/internal/storage"
)

// UnknownSession is used when the agent does not send a session id.
const UnknownSession = "unknown"

// Input is the JSON an agent passes to a hook.
type Input struct {
	ToolName  string    `json:"tool_name"`
	ToolInput ToolInput `json:"tool_input"`
	SessionID string    `json:"session_id"`
	Cwd       string    `json:"cwd,omitempty"`
}

// ToolInput carries the arguments of the tool call that triggered the hook.
type ToolInput struct {
	FilePath string `json:"file_path"`
}

// Session returns the session id, or UnknownSession.
func (in *Input) Session() string {
	if in == nil || strings.TrimSpace(in.SessionID) == "" {
		return UnknownSession
	}
	return in.SessionID
}

// ReadInput decodes hook input. Empty input is an empty Input.
func ReadInput(r io.Reader) (*Input, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	in := &Input{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return in, nil
	}
	if err := json.Unmarshal(data, in); err != nil {
		return nil, fmt.Errorf("invalid hook input: %w", err)
	}
	return in, nil
}

// Output is a hook's answer. An empty message writes nothing.
type Output struct {
	SystemMessage string `json:"systemMessage"`
}

// Empty reports whether there is nothing to say.
func (o Output) Empty() bool {
	return o.SystemMessage == ""
}

// Write encodes o as one JSON line when it carries a message.
func (o Output) Write(w io.Writer) error {
	if o.Empty() {
		return nil
	}
	return json.NewEncoder(w).Encode(o)
}

// Runner executes hooks for one project.
type Runner struct {
	root      string
	cfg       *config.Config
	store     *rulestore.Store
	evaluator *rules.Evaluator
	db        *storage.DB
	logger    *slog.Logger
	now       func() time.Time
}

// NewRunner creates a hook runner. db may be nil, which disables the
// session cache, calibration and history.
func NewRunner(root string, cfg *config.Config, store *rulestore.Store, db *storage.DB, logger *slog.Logger) *Runner {
	return &Runner{
		root:      root,
		cfg:       cfg,
		store:     store,
		evaluator: rules.NewEvaluator(root, rules.WithLogger(logger)),
		db:        db,
		logger:    logger,
		now:       time.Now,
	}
}

// Edit checks the file named by the tool call and reports its violations.
func (r *Runner) Edit(ctx context.Context, in *Input) (Output, error) {
	if in == nil || in.ToolInput.FilePath == "" {
		return Output{}, nil
	}
	abs := in.ToolInput.FilePath
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(r.root, abs)
	}
	r.logger.Debug("edit hook", "tool", in.ToolName, "file", abs)

	if skip, reason := r.skipFile(abs); skip {
		r.logger.Debug("file skipped", "file", abs, "reason", reason)
		return Output{}, nil
	}

	loaded, err := r.store.Get()
	if err != nil {
		if errors.HasCode(err, errors.RulesNotFound) {
			return Output{}, nil
		}
		return Output{}, err
	}

	rel := r.relPath(abs)
	vs := r.evaluator.Evaluate(rules.File{Path: rel, AbsPath: abs}, loaded.Set)
	r.logger.Debug("file checked", "file", rel, "violations", len(vs))

	if r.db != nil && r.cfg.Hook.SessionCache {
		if err := r.remember(in.Session(), rel, vs); err != nil {
			r.logger.Warn("session cache update failed", "error", err)
		}
	}

	if len(vs) == 0 {
		return Output{}, nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "thymus: %d violation(s) in %s\n", len(vs), rel)
	for _, v := range vs {
		b.WriteString("  ")
		b.WriteString(FormatViolation(v))
		b.WriteString("\n")
	}
	return Output{SystemMessage: b.String()}, nil
}

// skipFile reports files the edit hook never checks: symlinks, binary
// files and files above the size cap. A missing file is checked (it yields
// no violations).
func (r *Runner) skipFile(abs string) (bool, string) {
	info, err := os.Lstat(abs)
	if err != nil {
		return false, ""
	}
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return true, "symlink"
	case !info.Mode().IsRegular():
		return true, "not a regular file"
	case info.Size() > r.cfg.Hook.MaxFileSizeBytes:
		return true, "too large"
	case !IsTextFile(abs):
		return true, "binary"
	}
	return false, ""
}

// relPath makes abs repo-relative. Files outside the repository are named
// by their base name.
func (r *Runner) relPath(abs string) string {
	rel, err := paths.CanonicalizePath(abs, r.root)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return filepath.Base(abs)
	}
	return rel
}

// remember stores vs as the file's current session violations and updates
// calibration: a rule that fired on the previous check of this file was
// fixed if it no longer fires, and ignored if it still does.
func (r *Runner) remember(session, rel string, vs []rules.Violation) error {
	previous, err := storage.NewSessionRepository(r.db).Replace(session, rel, vs)
	if err != nil {
		return err
	}

	current := make(map[string]bool, len(vs))
	for _, v := range vs {
		current[v.RuleID] = true
	}
	seen := make(map[string]bool, len(previous))
	var prevRules []string
	for _, v := range previous {
		if v.RuleID != "" && !seen[v.RuleID] {
			seen[v.RuleID] = true
			prevRules = append(prevRules, v.RuleID)
		}
	}
	sort.Strings(prevRules)

	calibration := storage.NewCalibrationRepository(r.db)
	for _, id := range prevRules {
		fixed, ignored := 1, 0
		if current[id] {
			fixed, ignored = 0, 1
		}
		if err := calibration.Add(id, fixed, ignored); err != nil {
			return err
		}
	}
	return nil
}

// FormatViolation renders one violation as
// "[SEVERITY] rule: message (detail)".
func FormatViolation(v rules.Violation) string {
	s := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(v.Severity)), v.RuleID, v.Message)
	if d := v.Detail(); d != "" {
		s += " " + d
	}
	return s
}
