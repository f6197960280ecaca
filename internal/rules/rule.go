// Package rules evaluates architectural invariants against source files.
package rules

import (
	"fmt"
	"strings"
)

// Type is the kind of check a rule performs.
type Type string

const (
	TypeBoundary   Type = "boundary"
	TypePattern    Type = "pattern"
	TypeConvention Type = "convention"
	TypeDependency Type = "dependency"
)

// Valid reports whether t is a known rule type.
func (t Type) Valid() bool {
	switch t {
	case TypeBoundary, TypePattern, TypeConvention, TypeDependency:
		return true
	}
	return false
}

// Severity ranks how serious a violation is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// Weight orders severities: error > warning > info > unknown.
func (s Severity) Weight() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// AtLeast reports whether s is as severe as min.
func (s Severity) AtLeast(min Severity) bool {
	return s.Weight() >= min.Weight()
}

// ParseSeverity accepts error, warning (or warn) and info in any case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return SeverityError, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "info":
		return SeverityInfo, nil
	}
	return "", fmt.Errorf("unknown severity %q (want error, warning or info)", s)
}

// Rule is one invariant as defined in the project's rules file.
type Rule struct {
	ID          string   `json:"id"`
	Type        Type     `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description,omitempty"`

	ScopeGlob    string   `json:"scope_glob,omitempty"`
	ScopeExclude []string `json:"scope_glob_exclude,omitempty"`

	// Boundary
	ForbiddenImports []string `json:"forbidden_imports,omitempty"`
	AllowedImports   []string `json:"allowed_imports,omitempty"`

	// Pattern
	ForbiddenPattern string `json:"forbidden_pattern,omitempty"`

	// Convention
	RuleText string `json:"rule,omitempty"`

	// Dependency
	Package   string   `json:"package,omitempty"`
	AllowedIn []string `json:"allowed_in,omitempty"`
}

// Violation is one breach of one rule by one file. The JSON field names are
// relied on by every consumer of scan output.
type Violation struct {
	RuleID       string   `json:"ruleId"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	File         string   `json:"file"`
	Line         int      `json:"line,omitempty"`
	ImportTarget string   `json:"importTarget,omitempty"`
	PackageName  string   `json:"packageName,omitempty"`
}

// Key identifies a violation independent of its line, for comparing runs.
func (v Violation) Key() string {
	return v.RuleID + "\x00" + v.File + "\x00" + v.ImportTarget + "\x00" + v.PackageName
}

// Detail returns the parenthesised context shown after a violation message.
func (v Violation) Detail() string {
	switch {
	case v.ImportTarget != "":
		return fmt.Sprintf("(import: %s)", v.ImportTarget)
	case v.Line > 0:
		return fmt.Sprintf("(line %d)", v.Line)
	case v.PackageName != "":
		return fmt.Sprintf("(package: %s)", v.PackageName)
	}
	return ""
}

// Counts tallies violations by severity.
type Counts struct {
	Total    int `json:"total"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// Count tallies vs.
func Count(vs []Violation) Counts {
	var c Counts
	for _, v := range vs {
		c.Total++
		switch v.Severity {
		case SeverityError:
			c.Errors++
		case SeverityWarning:
			c.Warnings++
		case SeverityInfo:
			c.Info++
		}
	}
	return c
}
