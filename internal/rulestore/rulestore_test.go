package rulestore

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"thymus/internal/errors"
	"thymus/internal/rules"
	"thymus/internal/slogutil"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

const yamlDoc = `version: 1
invariants:
  - id: no-db-in-routes
    type: boundary
    severity: error
    source_glob: "src/routes/**"
    scope_glob: "ignored/**"
    scope_glob_exclude: "**/*.test.ts"
    forbidden_imports:
      - "**/db/**"
  - id: no-console
    type: pattern
    severity: warn
    forbidden_pattern: "console\\.log"
  - id: broken
    type: pattern
    forbidden_pattern: "(unclosed"
  - id: no-axios
    type: dependency
    package: axios
    allowed_in: ["src/http/**"]
    owner: platform
`

const tomlDoc = `version = 1

[[invariants]]
id = "no-db-in-routes"
type = "boundary"
severity = "error"
scope_glob = "src/routes/**"
scope_glob_exclude = "**/*.test.ts"
forbidden_imports = ["**/db/**"]

[[invariants]]
id = "no-console"
type = "pattern"
severity = "warning"
forbidden_pattern = 'console\.log'

[[invariants]]
id = "broken"
type = "pattern"
forbidden_pattern = "(unclosed"

[[invariants]]
id = "no-axios"
type = "dependency"
package = "axios"
allowed_in = ["src/http/**"]
owner = "platform"
`

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		format  Format
	}{
		{"yaml", "invariants.yml", yamlDoc, FormatYAML},
		{"toml", "invariants.toml", tomlDoc, FormatTOML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			writeFile(t, path, tt.content)

			res, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if res.Format != tt.format {
				t.Errorf("Format = %q, want %q", res.Format, tt.format)
			}
			if res.Set.Len() != 3 {
				t.Fatalf("valid rules = %d, want 3", res.Set.Len())
			}
			if len(res.Errors) != 1 || !errors.HasCode(res.Errors[0], errors.PatternInvalid) {
				t.Errorf("Errors = %v, want one pattern error", res.Errors)
			}
			if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], `"owner"`) {
				t.Errorf("Warnings = %v, want unknown key owner", res.Warnings)
			}

			boundary, _ := res.Set.Get("no-db-in-routes")
			if boundary.ScopeGlob != "src/routes/**" {
				t.Errorf("ScopeGlob = %q", boundary.ScopeGlob)
			}
			if len(boundary.ScopeExclude) != 1 || boundary.ScopeExclude[0] != "**/*.test.ts" {
				t.Errorf("ScopeExclude = %v", boundary.ScopeExclude)
			}
			pattern, _ := res.Set.Get("no-console")
			if pattern.Severity != rules.SeverityWarning {
				t.Errorf("Severity = %q, want warning", pattern.Severity)
			}
			dep, _ := res.Set.Get("no-axios")
			if dep.Severity != rules.SeverityWarning || dep.Package != "axios" || len(dep.AllowedIn) != 1 {
				t.Errorf("dependency rule = %+v", dep)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantCode errors.ErrorCode
	}{
		{"missing", "", "", errors.RulesNotFound},
		{"bad yaml", "a.yml", "invariants: [", errors.ConfigInvalid},
		{"bad toml", "a.toml", "invariants = [", errors.ConfigInvalid},
		{"empty", "a.yml", "\n", errors.ConfigInvalid},
		{"no invariants key", "a.yml", "version: 1\n", errors.ConfigInvalid},
		{"list of numbers", "a.yml", "invariants:\n  - id: x\n    forbidden_imports: [1, 2]\n", errors.ConfigInvalid},
		{"id missing", "a.yml", "invariants:\n  - type: boundary\n", errors.ConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "invariants.yml")
			if tt.file != "" {
				path = filepath.Join(dir, tt.file)
				writeFile(t, path, tt.content)
			}

			_, err := Load(path)
			if err == nil {
				t.Fatal("Load should fail")
			}
			if got := errors.CodeOf(err); got != tt.wantCode {
				t.Errorf("code = %v, want %v (%v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestLoad_Starter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invariants.yml")
	writeFile(t, path, Starter)

	res, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Set.Len() != 3 || len(res.Errors) != 0 || len(res.Warnings) != 0 {
		t.Errorf("starter: %d rules, errors %v, warnings %v", res.Set.Len(), res.Errors, res.Warnings)
	}
}

func TestLocate(t *testing.T) {
	root := t.TempDir()

	if _, err := Locate(root, ""); errors.CodeOf(err) != errors.RulesNotFound {
		t.Errorf("empty project: err = %v", err)
	}

	writeFile(t, filepath.Join(root, ".thymus", "invariants.toml"), tomlDoc)
	got, err := Locate(root, "")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "invariants.toml" {
		t.Errorf("Locate = %q", got)
	}

	if _, err := Locate(root, "custom.yml"); err == nil {
		t.Error("configured file that does not exist should fail")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	doc := &Document{
		Version: 1,
		Invariants: []RuleSpec{
			SpecFromRule(rules.Rule{
				ID:               "inferred-api-directionality",
				Type:             rules.TypeBoundary,
				Severity:         rules.SeverityWarning,
				ScopeGlob:        "src/db/**",
				ForbiddenImports: []string{"src/api/**"},
			}),
		},
	}

	for _, format := range []Format{FormatYAML, FormatTOML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, doc, format, "Auto-inferred rules (thymus infer)"); err != nil {
				t.Fatal(err)
			}
			if !strings.HasPrefix(buf.String(), "# Auto-inferred rules (thymus infer)\n") {
				t.Errorf("missing header:\n%s", buf.String())
			}

			back, warnings, err := Parse(buf.Bytes(), format)
			if err != nil {
				t.Fatalf("Parse: %v\n%s", err, buf.String())
			}
			if len(warnings) != 0 {
				t.Errorf("warnings = %v", warnings)
			}
			got := back.Rules()
			if len(got) != 1 || got[0].ID != "inferred-api-directionality" || got[0].ForbiddenImports[0] != "src/api/**" {
				t.Errorf("round trip = %+v", got)
			}
		})
	}
}

func TestStore_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invariants.yml")
	writeFile(t, path, Starter)

	s := NewStore(path, slogutil.NewDiscardLogger())
	first, err := s.Get()
	if err != nil {
		t.Fatal(err)
	}
	again, _ := s.Get()
	if again != first || s.loads != 1 {
		t.Errorf("unchanged file should be served from cache (loads=%d)", s.loads)
	}

	writeFile(t, path, "invariants:\n  - id: only\n    type: convention\n    rule: keep it tidy\n")
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	reloaded, err := s.Get()
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Set.Len() != 1 || s.loads != 2 {
		t.Errorf("reloaded %d rules after %d loads", reloaded.Set.Len(), s.loads)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(); errors.CodeOf(err) != errors.RulesNotFound {
		t.Errorf("removed file: err = %v", err)
	}
}
