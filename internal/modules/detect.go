package modules

import (
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Manifests are the files that mark a directory as a module root, in
// priority order.
var Manifests = []string{
	"package.json",
	"pubspec.yaml",
	"go.mod",
	"Cargo.toml",
	"pyproject.toml",
	"setup.py",
	"pom.xml",
	"build.gradle",
	"build.gradle.kts",
}

// Detect proposes declarations for a set of repo-relative source files.
// A directory below the root holding a manifest becomes a module named
// after the manifest; remaining files are grouped by DefaultModuleOf and
// groups with at least two files are kept.
func Detect(repoRoot string, files []string) *File {
	roots := make(map[string]string) // dir -> manifest, "" when none
	manifestRoot := func(file string) (string, string) {
		for dir := path.Dir(file); dir != "." && dir != "/"; dir = path.Dir(dir) {
			manifest, ok := roots[dir]
			if !ok {
				manifest = findManifest(filepath.Join(repoRoot, filepath.FromSlash(dir)))
				roots[dir] = manifest
			}
			if manifest != "" {
				return dir, manifest
			}
		}
		return "", ""
	}

	byModule := make(map[string]int)
	manifests := make(map[string]string)
	for _, f := range files {
		f = cleanModulePath(f)
		if dir, manifest := manifestRoot(f); dir != "" {
			manifests[dir] = manifest
			byModule[dir]++
			continue
		}
		byModule[DefaultModuleOf(f)]++
	}

	out := &File{Version: 1}
	for mod, n := range byModule {
		manifest, isManifest := manifests[mod]
		if !isManifest && n < 2 {
			continue
		}
		d := Declaration{Path: mod, Name: mod[strings.LastIndex(mod, "/")+1:]}
		if isManifest {
			if name := manifestName(filepath.Join(repoRoot, filepath.FromSlash(mod), manifest), manifest); name != "" {
				d.Name = name
			}
			d.Tags = []string{"manifest:" + manifest}
		}
		out.Modules = append(out.Modules, d)
	}
	sort.Slice(out.Modules, func(i, j int) bool { return out.Modules[i].Path < out.Modules[j].Path })
	return out
}

func findManifest(dir string) string {
	for _, m := range Manifests {
		if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
			return m
		}
	}
	return ""
}

// manifestName extracts the package name a manifest declares, or "".
func manifestName(manifestPath, manifest string) string {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return ""
	}

	switch manifest {
	case "package.json":
		var pkg struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(data, &pkg) == nil {
			return pkg.Name
		}
	case "pubspec.yaml":
		var pkg struct {
			Name string `yaml:"name"`
		}
		if yaml.Unmarshal(data, &pkg) == nil {
			return pkg.Name
		}
	case "Cargo.toml", "pyproject.toml":
		var pkg struct {
			Package struct {
				Name string `toml:"name"`
			} `toml:"package"`
			Project struct {
				Name string `toml:"name"`
			} `toml:"project"`
		}
		if toml.Unmarshal(data, &pkg) == nil {
			if pkg.Package.Name != "" {
				return pkg.Package.Name
			}
			return pkg.Project.Name
		}
	case "go.mod":
		for _, line := range strings.Split(string(data), "\n") {
			fields := strings.Fields(line)
			if len(fields) >= 2 && fields[0] == "module" {
				return path.Base(fields[1])
			}
		}
	}
	return ""
}
