// Package rulestore reads and writes the project's invariants file.
//
// Two encodings are accepted: YAML (.yml, .yaml, and JSON through the YAML
// decoder) and TOML (.toml). Both decode into Document, are checked against
// a JSON schema, and are then compiled into a rules.RuleSet.
package rulestore

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"thymus/internal/rules"
)

// Document is the on-disk shape of an invariants file.
type Document struct {
	Version    int        `yaml:"version,omitempty" toml:"version,omitempty"`
	Invariants []RuleSpec `yaml:"invariants" toml:"invariants"`
}

// RuleSpec is one invariant as written by users. source_glob is accepted as
// an older spelling of scope_glob and wins when both are present.
type RuleSpec struct {
	ID          string `yaml:"id" toml:"id"`
	Type        string `yaml:"type" toml:"type"`
	Severity    string `yaml:"severity,omitempty" toml:"severity,omitempty"`
	Description string `yaml:"description,omitempty" toml:"description,omitempty"`

	ScopeGlob    string     `yaml:"scope_glob,omitempty" toml:"scope_glob,omitempty"`
	SourceGlob   string     `yaml:"source_glob,omitempty" toml:"source_glob,omitempty"`
	ScopeExclude StringList `yaml:"scope_glob_exclude,omitempty" toml:"scope_glob_exclude,omitempty"`

	ForbiddenImports StringList `yaml:"forbidden_imports,omitempty" toml:"forbidden_imports,omitempty"`
	AllowedImports   StringList `yaml:"allowed_imports,omitempty" toml:"allowed_imports,omitempty"`
	ForbiddenPattern string     `yaml:"forbidden_pattern,omitempty" toml:"forbidden_pattern,omitempty"`
	Rule             string     `yaml:"rule,omitempty" toml:"rule,omitempty"`
	Package          string     `yaml:"package,omitempty" toml:"package,omitempty"`
	AllowedIn        StringList `yaml:"allowed_in,omitempty" toml:"allowed_in,omitempty"`

	// Set on rules proposed by graph inference.
	Inferred   bool    `yaml:"inferred,omitempty" toml:"inferred,omitempty"`
	Confidence float64 `yaml:"confidence,omitempty" toml:"confidence,omitempty"`
}

// StringList decodes either a single string or a list of strings.
type StringList []string

func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*l = nil
			return nil
		}
		*l = StringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
}

func (l *StringList) UnmarshalTOML(v interface{}) error {
	switch x := v.(type) {
	case string:
		*l = StringList{x}
		return nil
	case []interface{}:
		items := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected a list of strings, found %T", item)
			}
			items = append(items, s)
		}
		*l = items
		return nil
	}
	return fmt.Errorf("expected a string or a list of strings, found %T", v)
}

// ToRule converts the spec into a rule definition. An empty severity means
// warning; "warn" is accepted for warning. Unknown severities pass through
// so that compilation reports them.
func (s RuleSpec) ToRule() rules.Rule {
	severity := rules.SeverityWarning
	if strings.TrimSpace(s.Severity) != "" {
		if parsed, err := rules.ParseSeverity(s.Severity); err == nil {
			severity = parsed
		} else {
			severity = rules.Severity(s.Severity)
		}
	}
	scopeGlob := s.ScopeGlob
	if s.SourceGlob != "" {
		scopeGlob = s.SourceGlob
	}
	return rules.Rule{
		ID:               strings.TrimSpace(s.ID),
		Type:             rules.Type(strings.ToLower(strings.TrimSpace(s.Type))),
		Severity:         severity,
		Description:      s.Description,
		ScopeGlob:        scopeGlob,
		ScopeExclude:     s.ScopeExclude,
		ForbiddenImports: s.ForbiddenImports,
		AllowedImports:   s.AllowedImports,
		ForbiddenPattern: s.ForbiddenPattern,
		RuleText:         s.Rule,
		Package:          s.Package,
		AllowedIn:        s.AllowedIn,
	}
}

// SpecFromRule is the inverse of ToRule, used when writing rules out.
func SpecFromRule(r rules.Rule) RuleSpec {
	return RuleSpec{
		ID:               r.ID,
		Type:             string(r.Type),
		Severity:         string(r.Severity),
		Description:      r.Description,
		ScopeGlob:        r.ScopeGlob,
		ScopeExclude:     r.ScopeExclude,
		ForbiddenImports: r.ForbiddenImports,
		AllowedImports:   r.AllowedImports,
		ForbiddenPattern: r.ForbiddenPattern,
		Rule:             r.RuleText,
		Package:          r.Package,
		AllowedIn:        r.AllowedIn,
	}
}

// Rules converts every spec in the document.
func (d *Document) Rules() []rules.Rule {
	out := make([]rules.Rule, len(d.Invariants))
	for i, s := range d.Invariants {
		out[i] = s.ToRule()
	}
	return out
}
