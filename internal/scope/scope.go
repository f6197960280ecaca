package scope

// Scope gates whether a rule applies to a file. Exclusion is the only
// negation mechanism and always overrides inclusion.
type Scope struct {
	Include *Glob
	Exclude []*Glob
}

// NewScope compiles an inclusion pattern and its exclusion list. An empty
// include pattern means every path is included.
func NewScope(include string, excludes []string) (*Scope, error) {
	s := &Scope{}
	if include != "" {
		g, err := Compile(include)
		if err != nil {
			return nil, err
		}
		s.Include = g
	}
	for _, p := range excludes {
		if p == "" {
			continue
		}
		g, err := Compile(p)
		if err != nil {
			return nil, err
		}
		s.Exclude = append(s.Exclude, g)
	}
	return s, nil
}

// InScope reports whether path falls inside the scope. An exclude match
// suppresses the path even when the scope has no include pattern.
func (s *Scope) InScope(path string) bool {
	if s == nil {
		return true
	}
	if s.Include != nil && !s.Include.Match(path) {
		return false
	}
	return !MatchAny(s.Exclude, path)
}

// MatchAny reports whether path matches any of the globs.
func MatchAny(globs []*Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// CompileAll compiles every pattern, stopping at the first error.
func CompileAll(patterns []string) ([]*Glob, error) {
	out := make([]*Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}
