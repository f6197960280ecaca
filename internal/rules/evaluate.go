package rules

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"thymus/internal/errors"
	"thymus/internal/imports"
	"thymus/internal/scope"
	"thymus/internal/slogutil"
)

// File is one file to evaluate. Path is repository-relative. Content may be
// nil, in which case it is read from AbsPath (or Root/Path) on first use.
type File struct {
	Path    string
	Content []byte
	AbsPath string
}

// ExtractFunc returns the imports of a file.
type ExtractFunc func(path string, content []byte) []imports.Record

// Evaluator applies rule sets to files. It holds no per-file state and is
// safe for concurrent use on distinct files.
type Evaluator struct {
	root    string
	prober  Prober
	extract ExtractFunc
	logger  *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithProber replaces the filesystem prober used by convention rules.
func WithProber(p Prober) Option {
	return func(e *Evaluator) { e.prober = p }
}

// WithExtractor replaces the import extractor.
func WithExtractor(fn ExtractFunc) Option {
	return func(e *Evaluator) { e.extract = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = logger }
}

// NewEvaluator creates an evaluator for the repository at root.
func NewEvaluator(root string, opts ...Option) *Evaluator {
	e := &Evaluator{
		root:    root,
		prober:  FSProber{Root: root},
		extract: imports.ExtractPath,
		logger:  slogutil.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Root returns the repository root.
func (e *Evaluator) Root() string {
	return e.root
}

// Evaluate runs every rule of set against file and returns the violations
// in rule definition order.
func (e *Evaluator) Evaluate(file File, set *RuleSet) []Violation {
	if set == nil {
		return nil
	}
	fc := e.newFileContext(file)
	var out []Violation
	for _, r := range set.rules {
		out = append(out, e.evaluate(fc, r)...)
	}
	return out
}

// EvaluateRule runs a single rule definition against file. A rule that
// does not compile produces no violations.
func (e *Evaluator) EvaluateRule(file File, rule Rule) []Violation {
	c, err := compile(rule)
	if err != nil {
		e.logger.Debug("Skipping invalid rule", "rule", rule.ID, "error", err)
		return nil
	}
	return e.evaluate(e.newFileContext(file), c)
}

// fileContext carries the lazily loaded content and imports of one file
// through one evaluation pass.
type fileContext struct {
	e        *Evaluator
	file     File
	path     string
	loaded   bool
	readErr  error
	imported bool
	records  []imports.Record
}

func (e *Evaluator) newFileContext(file File) *fileContext {
	return &fileContext{e: e, file: file, path: filepath.ToSlash(file.Path)}
}

func (fc *fileContext) content() ([]byte, error) {
	if fc.loaded {
		return fc.file.Content, fc.readErr
	}
	fc.loaded = true
	if fc.file.Content != nil {
		return fc.file.Content, nil
	}
	abs := fc.file.AbsPath
	if abs == "" {
		abs = filepath.Join(fc.e.root, filepath.FromSlash(fc.file.Path))
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		fc.readErr = errors.NewFileReadError(fc.path, err)
		fc.e.logger.Warn("Cannot read file", "file", fc.path, "error", err)
		return nil, fc.readErr
	}
	fc.file.Content = data
	return data, nil
}

func (fc *fileContext) imports() []imports.Record {
	if fc.imported {
		return fc.records
	}
	fc.imported = true
	content, err := fc.content()
	if err != nil {
		return nil
	}
	fc.records = fc.e.extract(fc.path, content)
	return fc.records
}

func (e *Evaluator) evaluate(fc *fileContext, r *compiled) []Violation {
	if !r.scope.InScope(fc.path) {
		return nil
	}
	content, err := fc.content()
	if err != nil {
		return nil
	}

	switch r.Type {
	case TypeBoundary:
		return e.evalBoundary(fc, r)
	case TypePattern:
		return e.evalPattern(fc, r, content)
	case TypeConvention:
		return e.evalConvention(fc, r, content)
	case TypeDependency:
		return e.evalDependency(fc, r)
	}
	return nil
}

func (e *Evaluator) violation(fc *fileContext, r *compiled, message string) Violation {
	return Violation{
		RuleID:   r.ID,
		Severity: r.Severity,
		Message:  message,
		File:     fc.path,
	}
}

func (e *Evaluator) evalBoundary(fc *fileContext, r *compiled) []Violation {
	if len(r.forbidden) == 0 {
		return nil
	}
	var out []Violation
	for _, rec := range fc.imports() {
		if !matchAny(r.forbidden, rec.Target) || matchAny(r.allowed, rec.Target) {
			continue
		}
		v := e.violation(fc, r, r.Description)
		v.ImportTarget = rec.Target
		v.Line = rec.Line
		out = append(out, v)
	}
	return out
}

func (e *Evaluator) evalPattern(fc *fileContext, r *compiled, content []byte) []Violation {
	if r.pattern == nil {
		return nil
	}
	loc := r.pattern.FindIndex(content)
	if loc == nil {
		return nil
	}
	v := e.violation(fc, r, r.Description)
	v.Line = lineAt(content, loc[0])
	return []Violation{v}
}

func (e *Evaluator) evalConvention(fc *fileContext, r *compiled, content []byte) []Violation {
	if !r.testCheck || HasColocatedTest(fc.path, content, e.prober) {
		return nil
	}
	return []Violation{e.violation(fc, r, "missing colocated test file")}
}

func (e *Evaluator) evalDependency(fc *fileContext, r *compiled) []Violation {
	if scope.MatchAny(r.allowedIn, fc.path) {
		return nil
	}
	for _, rec := range fc.imports() {
		if importsPackage(rec.Target, r.Package) {
			v := e.violation(fc, r, r.Description)
			v.PackageName = r.Package
			return []Violation{v}
		}
	}
	return nil
}

// importsPackage reports whether target names pkg as a whole path
// segment, so "lodash" matches "lodash/fp" and "vendor/lodash" but not
// "lodash-es" or "mylodash".
func importsPackage(target, pkg string) bool {
	if pkg == "" {
		return false
	}
	for from := 0; from <= len(target)-len(pkg); {
		i := strings.Index(target[from:], pkg)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(pkg)
		if (start == 0 || isSegmentSep(target[start-1])) && (end == len(target) || isSegmentSep(target[end])) {
			return true
		}
		from = start + 1
	}
	return false
}

func isSegmentSep(c byte) bool {
	return c == '/' || c == '.' || c == ':' || c == '\\'
}

// lineAt returns the 1-based line of offset off.
func lineAt(content []byte, off int) int {
	line := 1
	for _, c := range content[:off] {
		if c == '\n' {
			line++
		}
	}
	return line
}

// SortByFile orders violations by file while keeping rule order within each
// file.
func SortByFile(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool { return vs[i].File < vs[j].File })
}
