// Package report renders scan results for people and tools: JSON, a human
// listing grouped by file, SARIF for CI annotations and a standalone HTML
// page.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"thymus/internal/history"
	"thymus/internal/modules"
	"thymus/internal/rules"
	"thymus/internal/scanner"
)

// Format selects a renderer.
type Format string

const (
	FormatJSON  Format = "json"
	FormatHuman Format = "human"
	FormatSARIF Format = "sarif"
	FormatHTML  Format = "html"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatHuman, FormatSARIF, FormatHTML:
		return f, nil
	case "":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported format %q (use json, human, sarif or html)", s)
}

// Report is everything a renderer may show. Only Result is required.
type Report struct {
	Result *scanner.Result
	// Rules describes the rules in SARIF output.
	Rules *rules.RuleSet
	// History feeds the HTML trend, oldest first.
	History []history.Entry
	// ModuleOf groups files into modules; modules.DefaultModuleOf when nil.
	ModuleOf func(string) string

	Version     string
	RepoRoot    string
	GeneratedAt time.Time
}

func (r *Report) violations() []rules.Violation {
	if r.Result == nil {
		return nil
	}
	return r.Result.Violations
}

// Write renders r to w in format f.
func Write(w io.Writer, r *Report, f Format) error {
	if r == nil || r.Result == nil {
		return fmt.Errorf("report has no scan result")
	}
	switch f {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r.Result)
	case FormatHuman:
		return writeHuman(w, r)
	case FormatSARIF:
		data, err := writeSARIF(r)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatHTML:
		return writeHTML(w, r)
	}
	return fmt.Errorf("unsupported format: %s", f)
}

// ModuleSummary tallies the violations of one module.
type ModuleSummary struct {
	ID         string `json:"id"`
	Files      int    `json:"files"`
	Violations int    `json:"violations"`
	Errors     int    `json:"errors"`
	Warnings   int    `json:"warnings"`
	Info       int    `json:"info"`
}

// SummarizeModules groups vs by module, most errors first, then by id.
// Files counts the distinct violating files of a module.
func SummarizeModules(vs []rules.Violation, moduleOf func(string) string) []ModuleSummary {
	if moduleOf == nil {
		moduleOf = modules.DefaultModuleOf
	}
	byID := make(map[string]*ModuleSummary)
	files := make(map[string]map[string]bool)
	for _, v := range vs {
		id := moduleOf(v.File)
		s, ok := byID[id]
		if !ok {
			s = &ModuleSummary{ID: id}
			byID[id] = s
			files[id] = make(map[string]bool)
		}
		s.Violations++
		switch v.Severity {
		case rules.SeverityError:
			s.Errors++
		case rules.SeverityWarning:
			s.Warnings++
		case rules.SeverityInfo:
			s.Info++
		}
		files[id][v.File] = true
	}

	out := make([]ModuleSummary, 0, len(byID))
	for id, s := range byID {
		s.Files = len(files[id])
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Errors != out[j].Errors {
			return out[i].Errors > out[j].Errors
		}
		if out[i].Violations != out[j].Violations {
			return out[i].Violations > out[j].Violations
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func writeHuman(w io.Writer, r *Report) error {
	res := r.Result
	var b strings.Builder

	b.WriteString("Thymus Scan Results\n")
	b.WriteString("===================\n\n")
	scope := res.Scope
	if scope == "" {
		scope = "."
	}
	fmt.Fprintf(&b, "Scope:      %s\n", scope)
	fmt.Fprintf(&b, "Files:      %d\n", res.FilesChecked)
	if res.Duration != "" {
		fmt.Fprintf(&b, "Duration:   %s\n", res.Duration)
	}
	fmt.Fprintf(&b, "Violations: %d (%d error(s), %d warning(s), %d info)\n",
		res.Stats.Total, res.Stats.Errors, res.Stats.Warnings, res.Stats.Info)
	if len(res.Skipped) > 0 {
		fmt.Fprintf(&b, "Skipped:    %d\n", len(res.Skipped))
	}
	b.WriteString("\n")

	if len(res.Violations) == 0 {
		b.WriteString("No violations found\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	current := ""
	for _, v := range res.Violations {
		if v.File != current {
			if current != "" {
				b.WriteString("\n")
			}
			current = v.File
			b.WriteString(v.File + "\n")
		}
		fmt.Fprintf(&b, "  [%s] %s: %s", strings.ToUpper(string(v.Severity)), v.RuleID, v.Message)
		if d := v.Detail(); d != "" {
			b.WriteString(" " + d)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
