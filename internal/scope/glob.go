// Package scope compiles the path globs used to decide which files a rule
// applies to.
package scope

import (
	"fmt"
	"regexp"
	"strings"
)

// Glob is a compiled path pattern anchored against a full relative path.
//
// Grammar:
//   - `*` matches any run of characters except `/`
//   - `**` matches zero or more whole path segments
//   - every other character is literal
type Glob struct {
	pattern string
	re      *regexp.Regexp
}

// Compile converts a glob pattern into a matcher.
func Compile(pattern string) (*Glob, error) {
	expr := translate(NormalizePath(pattern))
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
	}
	return &Glob{pattern: pattern, re: re}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(pattern string) *Glob {
	g, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return g
}

// Pattern returns the source pattern.
func (g *Glob) Pattern() string {
	return g.pattern
}

// Match reports whether path matches the glob in full.
func (g *Glob) Match(path string) bool {
	return g.re.MatchString(NormalizePath(path))
}

// String implements fmt.Stringer.
func (g *Glob) String() string {
	return g.pattern
}

// Match compiles pattern and matches path against it. An uncompilable
// pattern matches nothing.
func Match(pattern, path string) bool {
	g, err := Compile(pattern)
	if err != nil {
		return false
	}
	return g.Match(path)
}

// NormalizePath converts backslashes to forward slashes.
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// translate builds an anchored regular expression from a glob.
func translate(pattern string) string {
	var b strings.Builder
	b.WriteString("^")

	n := len(pattern)
	for i := 0; i < n; {
		if pattern[i] != '*' {
			j := i
			for j < n && pattern[j] != '*' {
				j++
			}
			b.WriteString(regexp.QuoteMeta(pattern[i:j]))
			i = j
			continue
		}

		if i+1 < n && pattern[i+1] == '*' {
			// Collapse runs like *** into a single **.
			j := i
			for j < n && pattern[j] == '*' {
				j++
			}
			atSegStart := i == 0 || pattern[i-1] == '/'
			atSegEnd := j == n || pattern[j] == '/'

			switch {
			case atSegStart && j < n && pattern[j] == '/':
				// "**/" spans zero or more leading segments.
				b.WriteString("(?:.*/)?")
				i = j + 1
			case atSegEnd && i > 0 && j == n:
				// "/**" at the end also matches the directory itself.
				s := b.String()
				if strings.HasSuffix(s, "/") {
					b.Reset()
					b.WriteString(s[:len(s)-1])
					b.WriteString("(?:/.*)?")
				} else {
					b.WriteString(".*")
				}
				i = j
			default:
				b.WriteString(".*")
				i = j
			}
			continue
		}

		b.WriteString("[^/]*")
		i++
	}

	b.WriteString("$")
	return b.String()
}
