package rules

import (
	"strings"

	"thymus/internal/scope"
)

// importMatcher tests import targets against one forbidden or allowed
// pattern. A target matches by glob, by exact text, or by glob after both
// sides are folded to slash notation, so one rule covers a.b.c, a::b::c,
// a\b\c and a/b/c.
type importMatcher struct {
	pattern string
	glob    *scope.Glob
	folded  *scope.Glob
}

func compileImportMatchers(patterns []string) ([]importMatcher, error) {
	var out []importMatcher
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		g, err := scope.Compile(p)
		if err != nil {
			return nil, err
		}
		m := importMatcher{pattern: p, glob: g}
		if f := FoldNotation(p); f != scope.NormalizePath(p) {
			if m.folded, err = scope.Compile(f); err != nil {
				return nil, err
			}
		}
		out = append(out, m)
	}
	return out, nil
}

func (m importMatcher) match(target string) bool {
	if target == m.pattern || m.glob.Match(target) {
		return true
	}
	folded := FoldNotation(target)
	if m.folded != nil && m.folded.Match(folded) {
		return true
	}
	return m.glob.Match(folded)
}

func matchAny(ms []importMatcher, target string) bool {
	for _, m := range ms {
		if m.match(target) {
			return true
		}
	}
	return false
}

// FoldNotation rewrites an import path or pattern into slash-separated
// segments. "::" and "\" always become "/". Dots become "/" only when s
// has no slash and every dot-separated segment is an identifier or a
// wildcard, as in com.example.db or a.b.*; relative paths keep their dots.
func FoldNotation(s string) string {
	s = strings.ReplaceAll(s, "::", "/")
	s = strings.ReplaceAll(s, `\`, "/")
	if strings.Contains(s, "/") || !isDottedName(s) {
		return s
	}
	return strings.ReplaceAll(s, ".", "/")
}

func isDottedName(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return false
	}
	for i, p := range parts {
		switch {
		case p == "":
			return false
		case p == "*" || p == "**":
			if i == 0 {
				return false
			}
		case !isIdent(p):
			return false
		}
	}
	return true
}

func isIdent(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || c == '$' || c == '-' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			continue
		}
		return false
	}
	return true
}
