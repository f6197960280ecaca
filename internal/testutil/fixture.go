// Package testutil provides fixtures and golden-file helpers for tests that
// run thymus against small sample projects.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"thymus/internal/rulestore"
)

// FixtureContext holds information about a loaded fixture.
type FixtureContext struct {
	// Language is the fixture language (e.g., "go", "python")
	Language string

	// Root is the absolute path to the fixture project
	Root string

	// RulesPath is the fixture's invariants file
	RulesPath string

	// ExpectedDir is the path to the expected/ directory
	ExpectedDir string
}

// LoadFixture loads a language fixture, failing the test on error.
func LoadFixture(t *testing.T, lang string) *FixtureContext {
	t.Helper()

	fixtureDir := filepath.Join(getFixturesRoot(t), lang)
	if _, err := os.Stat(fixtureDir); os.IsNotExist(err) {
		t.Fatalf("Fixture directory not found: %s", fixtureDir)
	}

	rulesPath, err := rulestore.Locate(fixtureDir, "")
	if err != nil {
		t.Fatalf("Fixture %s has no invariants file: %v", lang, err)
	}

	return &FixtureContext{
		Language:    lang,
		Root:        fixtureDir,
		RulesPath:   rulesPath,
		ExpectedDir: filepath.Join(fixtureDir, "expected"),
	}
}

// Copy clones the fixture into a temporary directory so a test can write
// state (database, baseline) next to it. The expected/ directory stays
// with the original.
func (f *FixtureContext) Copy(t *testing.T) *FixtureContext {
	t.Helper()

	dst := filepath.Join(t.TempDir(), f.Language)
	err := filepath.WalkDir(f.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(f.Root, path)
		if err != nil {
			return err
		}
		if d.IsDir() && rel == "expected" {
			return filepath.SkipDir
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		t.Fatalf("Failed to copy fixture %s: %v", f.Language, err)
	}

	rulesRel, _ := filepath.Rel(f.Root, f.RulesPath)
	return &FixtureContext{
		Language:    f.Language,
		Root:        dst,
		RulesPath:   filepath.Join(dst, rulesRel),
		ExpectedDir: f.ExpectedDir,
	}
}

// ExpectedPath returns the path to a golden file within the fixture.
// Names without an extension get .json.
func (f *FixtureContext) ExpectedPath(name string) string {
	if filepath.Ext(name) == "" {
		name += ".json"
	}
	return filepath.Join(f.ExpectedDir, name)
}

// getFixturesRoot returns the absolute path to testdata/fixtures/.
func getFixturesRoot(t *testing.T) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// Navigate from internal/testutil to project root
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	fixturesRoot := filepath.Join(projectRoot, "testdata", "fixtures")

	if _, err := os.Stat(fixturesRoot); os.IsNotExist(err) {
		t.Fatalf("Fixtures root not found: %s", fixturesRoot)
	}

	return fixturesRoot
}

// AvailableLanguages returns the fixture languages that carry an
// invariants file.
func AvailableLanguages(t *testing.T) []string {
	t.Helper()

	root := getFixturesRoot(t)
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("Failed to read fixtures directory: %v", err)
	}

	var langs []string
	for _, entry := range entries {
		if !entry.IsDir() || isHiddenDir(entry.Name()) {
			continue
		}
		if _, err := rulestore.Locate(filepath.Join(root, entry.Name()), ""); err == nil {
			langs = append(langs, entry.Name())
		}
	}

	return langs
}

func isHiddenDir(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
