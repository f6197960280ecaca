package rules

import (
	"fmt"
	"regexp"
	"strings"

	"thymus/internal/errors"
	"thymus/internal/scope"
)

// compiled is a rule with its globs and regex prepared for evaluation.
type compiled struct {
	Rule
	scope     *scope.Scope
	forbidden []importMatcher
	allowed   []importMatcher
	pattern   *regexp.Regexp
	allowedIn []*scope.Glob
	testCheck bool
}

// RuleSet is an immutable, compiled collection of rules in definition order.
type RuleSet struct {
	rules []*compiled
	byID  map[string]*compiled
}

// NewRuleSet compiles rules. Each invalid rule yields one error and is left
// out; the valid rules are kept in order.
func NewRuleSet(defs []Rule) (*RuleSet, []error) {
	set := &RuleSet{byID: make(map[string]*compiled, len(defs))}
	var errs []error
	for _, def := range defs {
		if def.ID != "" {
			if _, dup := set.byID[def.ID]; dup {
				errs = append(errs, errors.NewConfigError(def.ID, "id", "duplicate rule id"))
				continue
			}
		}
		c, err := compile(def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		set.rules = append(set.rules, c)
		set.byID[c.ID] = c
	}
	return set, errs
}

// MustRuleSet is like NewRuleSet but panics on the first error.
func MustRuleSet(defs []Rule) *RuleSet {
	set, errs := NewRuleSet(defs)
	if len(errs) > 0 {
		panic(errs[0])
	}
	return set
}

// Len returns the number of valid rules.
func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Rules returns the valid rule definitions in order.
func (s *RuleSet) Rules() []Rule {
	if s == nil {
		return nil
	}
	out := make([]Rule, len(s.rules))
	for i, c := range s.rules {
		out[i] = c.Rule
	}
	return out
}

// Get returns the rule with the given id.
func (s *RuleSet) Get(id string) (Rule, bool) {
	if s == nil {
		return Rule{}, false
	}
	c, ok := s.byID[id]
	if !ok {
		return Rule{}, false
	}
	return c.Rule, true
}

func compile(r Rule) (*compiled, error) {
	if strings.TrimSpace(r.ID) == "" {
		return nil, errors.NewConfigError("", "id", "rule id is required")
	}
	if !r.Type.Valid() {
		return nil, errors.NewConfigError(r.ID, "type",
			fmt.Sprintf("unknown type %q (want boundary, pattern, convention or dependency)", r.Type))
	}
	if !r.Severity.Valid() {
		return nil, errors.NewConfigError(r.ID, "severity",
			fmt.Sprintf("unknown severity %q (want error, warning or info)", r.Severity))
	}

	sc, err := scope.NewScope(r.ScopeGlob, r.ScopeExclude)
	if err != nil {
		return nil, errors.NewConfigError(r.ID, "scope_glob", err.Error())
	}
	c := &compiled{Rule: r, scope: sc}

	switch r.Type {
	case TypeBoundary:
		if c.forbidden, err = compileImportMatchers(r.ForbiddenImports); err != nil {
			return nil, errors.NewConfigError(r.ID, "forbidden_imports", err.Error())
		}
		if c.allowed, err = compileImportMatchers(r.AllowedImports); err != nil {
			return nil, errors.NewConfigError(r.ID, "allowed_imports", err.Error())
		}
	case TypePattern:
		if r.ForbiddenPattern == "" {
			return nil, errors.NewConfigError(r.ID, "forbidden_pattern", "pattern rule needs forbidden_pattern")
		}
		if c.pattern, err = CompilePattern(r.ForbiddenPattern); err != nil {
			return nil, errors.NewPatternError(r.ID, r.ForbiddenPattern, err)
		}
	case TypeConvention:
		c.testCheck = IsTestConvention(r.RuleText)
	case TypeDependency:
		if strings.TrimSpace(r.Package) == "" {
			return nil, errors.NewConfigError(r.ID, "package", "dependency rule needs package")
		}
		if c.allowedIn, err = scope.CompileAll(r.AllowedIn); err != nil {
			return nil, errors.NewConfigError(r.ID, "allowed_in", err.Error())
		}
	}
	return c, nil
}

var posixClasses = strings.NewReplacer(
	"[[:space:]]", `\s`,
	"[[:alpha:]]", `[a-zA-Z]`,
	"[[:digit:]]", `\d`,
	"[[:alnum:]]", `[a-zA-Z0-9]`,
	"[[:upper:]]", `[A-Z]`,
	"[[:lower:]]", `[a-z]`,
	"[[:punct:]]", `[^\w\s]`,
	"[[:blank:]]", `[ \t]`,
)

// CompilePattern compiles a forbidden_pattern. Standalone POSIX bracket
// classes such as [[:space:]] are rewritten to their Perl equivalents and
// ^ and $ anchor at line boundaries.
func CompilePattern(expr string) (*regexp.Regexp, error) {
	return regexp.Compile("(?m)" + posixClasses.Replace(expr))
}

// IsTestConvention reports whether convention text asks for colocated tests.
func IsTestConvention(text string) bool {
	return strings.Contains(strings.ToLower(text), "test")
}
