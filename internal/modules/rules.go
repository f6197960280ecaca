package modules

import (
	"fmt"
	"sort"
	"strings"

	"thymus/internal/rules"
)

// BoundaryRules turns the declared boundaries into boundary rules:
//
//   - allowed_dependencies forbids every other declared module
//   - forbidden_dependencies forbids the listed modules
//   - internal forbids importing the listed paths from outside the module
//
// Unknown dependency references are reported as errors and skipped.
func BoundaryRules(f *File) ([]rules.Rule, []error) {
	if f == nil {
		return nil, nil
	}
	var (
		out  []rules.Rule
		errs []error
	)
	resolve := func(owner Declaration, refs []string) []string {
		var resolved []string
		for _, ref := range refs {
			d, ok := f.Lookup(ref)
			if !ok {
				errs = append(errs, fmt.Errorf("module %s: unknown dependency %q", owner.Name, ref))
				continue
			}
			resolved = append(resolved, d.Path)
		}
		return resolved
	}

	for _, d := range f.Modules {
		b := d.Boundaries
		if b == nil {
			continue
		}
		slug := Slug(d.Path)

		if len(b.AllowedDependencies) > 0 {
			allowed := make(map[string]bool)
			for _, p := range resolve(d, b.AllowedDependencies) {
				allowed[p] = true
			}
			var forbidden []string
			for _, other := range f.Modules {
				if other.Path != d.Path && !allowed[other.Path] {
					forbidden = append(forbidden, other.Path+"/**")
				}
			}
			if len(forbidden) > 0 {
				sort.Strings(forbidden)
				out = append(out, rules.Rule{
					ID:               "module-" + slug + "-dependencies",
					Type:             rules.TypeBoundary,
					Severity:         rules.SeverityError,
					Description:      fmt.Sprintf("%s may only depend on its allowed modules", d.Name),
					ScopeGlob:        d.Path + "/**",
					ForbiddenImports: forbidden,
				})
			}
		}

		if deps := resolve(d, b.ForbiddenDependencies); len(deps) > 0 {
			forbidden := make([]string, 0, len(deps))
			for _, p := range deps {
				forbidden = append(forbidden, p+"/**")
			}
			out = append(out, rules.Rule{
				ID:               "module-" + slug + "-forbidden",
				Type:             rules.TypeBoundary,
				Severity:         rules.SeverityError,
				Description:      fmt.Sprintf("%s must not depend on %s", d.Name, strings.Join(b.ForbiddenDependencies, ", ")),
				ScopeGlob:        d.Path + "/**",
				ForbiddenImports: forbidden,
			})
		}

		if len(b.Internal) > 0 {
			var forbidden []string
			for _, p := range b.Internal {
				p = cleanModulePath(p)
				forbidden = append(forbidden, p, p+"/**")
			}
			out = append(out, rules.Rule{
				ID:               "module-" + slug + "-internal",
				Type:             rules.TypeBoundary,
				Severity:         rules.SeverityError,
				Description:      fmt.Sprintf("internal paths of %s are private to it", d.Name),
				ScopeGlob:        "**",
				ScopeExclude:     []string{d.Path + "/**"},
				ForbiddenImports: forbidden,
			})
		}
	}
	return out, errs
}
