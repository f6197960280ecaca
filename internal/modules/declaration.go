package modules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"thymus/internal/paths"
)

// DeclarationFile is the default filename for module declarations
const DeclarationFile = "MODULES.toml"

// Declaration is one module declared in MODULES.toml
type Declaration struct {
	// Name is the human-readable name of the module
	Name string `toml:"name"`

	// Path is the repo-relative path to the module root
	Path string `toml:"path"`

	// Responsibility is a one-line description of what this module does
	Responsibility string `toml:"responsibility,omitempty"`

	// Owner is the owner reference (e.g., @team-name or user@email.com)
	Owner string `toml:"owner,omitempty"`

	Tags []string `toml:"tags,omitempty"`

	// Boundaries restricts what the module may import and what others may
	// import from it
	Boundaries *Boundaries `toml:"boundaries,omitempty"`
}

// Boundaries defines a module's dependency constraints. Dependencies are
// module names or paths.
type Boundaries struct {
	// Internal are paths inside the module that other modules must not import
	Internal []string `toml:"internal,omitempty"`

	// AllowedDependencies, when set, is the complete list of declared modules
	// this module may import
	AllowedDependencies []string `toml:"allowed_dependencies,omitempty"`

	// ForbiddenDependencies are modules this module must never import
	ForbiddenDependencies []string `toml:"forbidden_dependencies,omitempty"`
}

// File represents the root structure of MODULES.toml
type File struct {
	Version int           `toml:"version"`
	Modules []Declaration `toml:"module"`
}

// ParseFile parses a MODULES.toml file from the given path
func ParseFile(filePath string) (*File, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(filePath), err)
	}
	return Parse(data)
}

// Parse decodes and normalizes a MODULES.toml document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse module declarations: %w", err)
	}
	if f.Version < 1 {
		f.Version = 1
	}
	if err := f.normalize(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads the declaration file under repoRoot. A missing file yields
// nil without error.
func Load(repoRoot, name string) (*File, error) {
	if name == "" {
		name = DeclarationFile
	}
	filePath := name
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(repoRoot, name)
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, nil
	}
	return ParseFile(filePath)
}

// normalize cleans module paths, fills in missing names and rejects
// declarations without a path or with a duplicate one.
func (f *File) normalize() error {
	seen := make(map[string]bool, len(f.Modules))
	for i := range f.Modules {
		d := &f.Modules[i]
		d.Path = cleanModulePath(d.Path)
		if d.Path == "" {
			return fmt.Errorf("module declaration %d missing required 'path' field", i+1)
		}
		if seen[d.Path] {
			return fmt.Errorf("module path %q declared twice", d.Path)
		}
		seen[d.Path] = true
		if d.Name == "" {
			d.Name = d.Path[strings.LastIndex(d.Path, "/")+1:]
		}
	}
	return nil
}

// Lookup finds a declaration by name or path.
func (f *File) Lookup(ref string) (Declaration, bool) {
	if f == nil {
		return Declaration{}, false
	}
	clean := cleanModulePath(ref)
	for _, d := range f.Modules {
		if d.Name == ref || d.Path == clean {
			return d, true
		}
	}
	return Declaration{}, false
}

// Write encodes f to filePath, creating parent directories.
func (f *File) Write(filePath string) error {
	sort.SliceStable(f.Modules, func(i, j int) bool { return f.Modules[i].Path < f.Modules[j].Path })

	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal module declarations: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(filePath), err)
	}
	return nil
}

func cleanModulePath(p string) string {
	p = paths.NormalizePath(strings.TrimSpace(p))
	p = strings.TrimPrefix(p, "./")
	return strings.Trim(p, "/")
}
