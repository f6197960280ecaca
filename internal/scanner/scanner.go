// Package scanner evaluates a rule set across a whole project or a subset of
// its files.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"thymus/internal/config"
	"thymus/internal/diff"
	"thymus/internal/errors"
	"thymus/internal/imports"
	"thymus/internal/paths"
	"thymus/internal/rules"
)

// Options selects the files of one scan. At most one of Files and Diff is
// used; Files wins.
type Options struct {
	// Scope restricts the scan to a repo-relative directory.
	Scope string
	// Files lists explicit files (absolute or repo-relative).
	Files []string
	// Diff scans the files changed against DiffBase (HEAD when empty).
	Diff     bool
	DiffBase string
}

// Result is the outcome of one scan.
type Result struct {
	RunID        string            `json:"runId"`
	Scope        string            `json:"scope"`
	FilesChecked int               `json:"filesChecked"`
	Skipped      []SkippedFile     `json:"skipped,omitempty"`
	Violations   []rules.Violation `json:"violations"`
	Stats        rules.Counts      `json:"stats"`
	StartedAt    time.Time         `json:"startedAt"`
	Duration     string            `json:"duration"`
}

// SkippedFile is a selected file that was not evaluated.
type SkippedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// Scanner runs an evaluator over many files with bounded parallelism.
type Scanner struct {
	repoRoot   string
	cfg        config.ScanConfig
	evaluator  *rules.Evaluator
	logger     *slog.Logger
	ignoreDirs map[string]bool
	extensions map[string]bool
}

// New creates a scanner. Zero config values fall back to the defaults.
func New(repoRoot string, cfg config.ScanConfig, evaluator *rules.Evaluator, logger *slog.Logger) *Scanner {
	defaults := config.DefaultConfig().Scan
	if cfg.Workers < 1 {
		cfg.Workers = defaults.Workers
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = defaults.MaxFileSizeBytes
	}
	if len(cfg.IgnoreDirs) == 0 {
		cfg.IgnoreDirs = defaults.IgnoreDirs
	}
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = imports.Extensions()
	}

	s := &Scanner{
		repoRoot:   repoRoot,
		cfg:        cfg,
		evaluator:  evaluator,
		logger:     logger,
		ignoreDirs: make(map[string]bool, len(cfg.IgnoreDirs)),
		extensions: make(map[string]bool, len(exts)),
	}
	for _, d := range cfg.IgnoreDirs {
		s.ignoreDirs[d] = true
	}
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		s.extensions[e] = true
	}
	return s
}

// Scan selects files according to opts and evaluates set against each.
// Unreadable, oversized and binary files are skipped and reported; they
// never abort the scan. Violations are ordered by file, keeping rule order
// within a file.
func (s *Scanner) Scan(ctx context.Context, set *rules.RuleSet, opts Options) (*Result, error) {
	start := time.Now()
	if s.cfg.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	files, err := s.selectFiles(ctx, opts)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := s.logger.With("run", runID[:8])
	logger.Info("scan started", "files", len(files), "rules", set.Len(), "scope", opts.Scope)

	perFile := make([][]rules.Violation, len(files))
	var (
		mu      sync.Mutex
		skipped []SkippedFile
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, reason := s.load(rel)
			if reason != "" {
				logger.Debug("file skipped", "file", rel, "reason", reason)
				mu.Lock()
				skipped = append(skipped, SkippedFile{File: rel, Reason: reason})
				mu.Unlock()
				return nil
			}
			perFile[i] = s.evaluator.Evaluate(rules.File{Path: rel, Content: content}, set)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan interrupted: %w", err)
	}

	violations := make([]rules.Violation, 0)
	for _, vs := range perFile {
		violations = append(violations, vs...)
	}
	sort.Slice(skipped, func(a, b int) bool { return skipped[a].File < skipped[b].File })

	result := &Result{
		RunID:        runID,
		Scope:        opts.Scope,
		FilesChecked: len(files) - len(skipped),
		Skipped:      skipped,
		Violations:   violations,
		Stats:        rules.Count(violations),
		StartedAt:    start.UTC(),
		Duration:     time.Since(start).Round(time.Millisecond).String(),
	}
	logger.Info("scan finished", "checked", result.FilesChecked, "violations", result.Stats.Total,
		"duration", result.Duration)
	return result, nil
}

// selectFiles returns sorted, de-duplicated repo-relative paths.
func (s *Scanner) selectFiles(ctx context.Context, opts Options) ([]string, error) {
	scope := strings.Trim(paths.NormalizePath(opts.Scope), "/")

	var files []string
	switch {
	case len(opts.Files) > 0:
		for _, f := range opts.Files {
			rel, err := paths.RelativeTo(f, s.repoRoot)
			if err != nil {
				return nil, err
			}
			files = append(files, rel)
		}
	case opts.Diff:
		changed, err := diff.ChangedFiles(ctx, s.repoRoot, opts.DiffBase)
		if err != nil {
			return nil, err
		}
		for _, cf := range changed {
			rel := cf.Path()
			if s.ignoredPath(rel) || !s.extensions[strings.ToLower(extOf(rel))] {
				continue
			}
			files = append(files, rel)
		}
	default:
		return s.Discover(ctx, scope)
	}

	if scope != "" {
		kept := files[:0]
		for _, f := range files {
			if f == scope || strings.HasPrefix(f, scope+"/") {
				kept = append(kept, f)
			}
		}
		files = kept
	}
	sort.Strings(files)
	out := files[:0]
	for i, f := range files {
		if i == 0 || f != files[i-1] {
			out = append(out, f)
		}
	}
	return out, nil
}

// load reads a file for evaluation, returning a skip reason instead of
// content when it cannot or should not be evaluated.
func (s *Scanner) load(rel string) ([]byte, string) {
	abs := paths.JoinRepoPath(s.repoRoot, rel)
	info, err := os.Lstat(abs)
	if err != nil {
		s.logger.Warn("cannot read file", "error", errors.NewFileReadError(rel, err))
		return nil, "unreadable"
	}
	if info.Mode()&os.ModeSymlink != 0 {
		if !s.cfg.FollowSymlinks {
			return nil, "symlink"
		}
		if info, err = os.Stat(abs); err != nil {
			return nil, "broken symlink"
		}
	}
	if !info.Mode().IsRegular() {
		return nil, "not a regular file"
	}
	if info.Size() > s.cfg.MaxFileSizeBytes {
		return nil, "too large"
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		s.logger.Warn("cannot read file", "error", errors.NewFileReadError(rel, err))
		return nil, "unreadable"
	}
	if LooksBinary(content) {
		return nil, "binary"
	}
	return content, ""
}

func extOf(rel string) string {
	if i := strings.LastIndexByte(rel, '.'); i > strings.LastIndexByte(rel, '/') {
		return rel[i:]
	}
	return ""
}
