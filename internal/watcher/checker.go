package watcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"thymus/internal/rulestore"
	"thymus/internal/scanner"
)

// Checker re-evaluates changed files and prints what it finds. A change to
// the rules file reloads the rules and re-checks the whole project.
type Checker struct {
	root    string
	store   *rulestore.Store
	scanner *scanner.Scanner
	out     io.Writer
	logger  *slog.Logger
}

// NewChecker creates a checker writing its reports to out.
func NewChecker(root string, store *rulestore.Store, sc *scanner.Scanner, out io.Writer, logger *slog.Logger) *Checker {
	return &Checker{root: root, store: store, scanner: sc, out: out, logger: logger}
}

// Handle is a ChangeHandler.
func (c *Checker) Handle(events []Event) {
	if _, err := c.Check(context.Background(), events); err != nil {
		c.logger.Warn("watch check failed", "error", err)
	}
}

// Check handles one batch of events. It returns nil when the batch touched
// nothing worth checking.
func (c *Checker) Check(ctx context.Context, events []Event) (*scanner.Result, error) {
	rulesRel := ""
	if rel, err := filepath.Rel(c.root, c.store.Path()); err == nil {
		rulesRel = filepath.ToSlash(rel)
	}

	reload := false
	seen := make(map[string]bool)
	var files []string
	for _, e := range events {
		if e.Path == rulesRel {
			reload = true
			continue
		}
		if seen[e.Path] || !c.scanner.Accepts(e.Path) {
			continue
		}
		seen[e.Path] = true
		if info, err := os.Stat(filepath.Join(c.root, filepath.FromSlash(e.Path))); err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, e.Path)
	}
	sort.Strings(files)

	if reload {
		c.store.Invalidate()
	}
	if !reload && len(files) == 0 {
		return nil, nil
	}

	loaded, err := c.store.Get()
	if err != nil {
		fmt.Fprintf(c.out, "thymus: cannot load rules: %v\n", err)
		return nil, err
	}

	opts := scanner.Options{Files: files}
	if reload {
		fmt.Fprintf(c.out, "thymus: rules reloaded (%d invariants)\n", loaded.Set.Len())
		opts = scanner.Options{}
	}
	result, err := c.scanner.Scan(ctx, loaded.Set, opts)
	if err != nil {
		return nil, err
	}
	c.print(result)
	return result, nil
}

func (c *Checker) print(res *scanner.Result) {
	var b strings.Builder
	if len(res.Violations) == 0 {
		fmt.Fprintf(&b, "thymus: %d file(s) clean\n", res.FilesChecked)
	} else {
		fmt.Fprintf(&b, "thymus: %d violation(s) in %d file(s)\n", len(res.Violations), res.FilesChecked)
	}
	for _, v := range res.Violations {
		where := v.File
		if v.Line > 0 {
			where = fmt.Sprintf("%s:%d", v.File, v.Line)
		}
		fmt.Fprintf(&b, "  %s [%s] %s: %s", where, strings.ToUpper(string(v.Severity)), v.RuleID, v.Message)
		if v.ImportTarget != "" {
			b.WriteString(" (import: " + v.ImportTarget + ")")
		} else if v.PackageName != "" {
			b.WriteString(" (package: " + v.PackageName + ")")
		}
		b.WriteString("\n")
	}
	_, _ = io.WriteString(c.out, b.String())
}
