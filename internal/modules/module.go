package modules

import (
	"sort"
	"strings"
)

// Resolver assigns files to modules. Declared modules win by longest path
// prefix; other files fall back to DefaultModuleOf.
type Resolver struct {
	declared []string
}

// NewResolver builds a resolver over f, which may be nil.
func NewResolver(f *File) *Resolver {
	r := &Resolver{}
	if f != nil {
		for _, d := range f.Modules {
			r.declared = append(r.declared, d.Path)
		}
	}
	sort.Slice(r.declared, func(i, j int) bool { return len(r.declared[i]) > len(r.declared[j]) })
	return r
}

// Declared returns the number of declared modules.
func (r *Resolver) Declared() int {
	return len(r.declared)
}

// ModuleOf returns the module id of a repo-relative file path.
func (r *Resolver) ModuleOf(file string) string {
	file = cleanModulePath(file)
	for _, p := range r.declared {
		if file == p || strings.HasPrefix(file, p+"/") {
			return p
		}
	}
	return DefaultModuleOf(file)
}

// DefaultModuleOf maps a path to its first two components:
//
//	src/routes/users.ts -> src/routes
//	src/utils.ts        -> src
//	utils.ts            -> utils
func DefaultModuleOf(file string) string {
	parts := strings.Split(cleanModulePath(file), "/")
	switch {
	case len(parts) >= 3:
		return parts[0] + "/" + parts[1]
	case len(parts) == 2:
		return parts[0]
	}
	name := parts[0]
	if dot := strings.LastIndexByte(name, '.'); dot > 0 {
		return name[:dot]
	}
	return name
}

// Slug turns a module id into a rule-id friendly token.
func Slug(moduleID string) string {
	return strings.NewReplacer("/", "-", "\\", "-").Replace(moduleID)
}
