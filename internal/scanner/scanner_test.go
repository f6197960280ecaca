package scanner

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"thymus/internal/config"
	"thymus/internal/rules"
	"thymus/internal/slogutil"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func testRules(t *testing.T) *rules.RuleSet {
	t.Helper()
	return rules.MustRuleSet([]rules.Rule{
		{
			ID: "no-db-in-routes", Type: rules.TypeBoundary, Severity: rules.SeverityError,
			ScopeGlob: "src/routes/**", ForbiddenImports: []string{"**/db/**"},
		},
		{
			ID: "no-console", Type: rules.TypePattern, Severity: rules.SeverityWarning,
			ForbiddenPattern: `console\.log`,
		},
	})
}

func newScanner(root string, cfg config.ScanConfig) *Scanner {
	logger := slogutil.NewDiscardLogger()
	return New(root, cfg, rules.NewEvaluator(root, rules.WithLogger(logger)), logger)
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/b.ts":                "",
		"src/a.py":                "",
		"src/README.md":           "",
		"src/deep/c.go":           "",
		"node_modules/x/index.js": "",
		"build/out.js":            "",
		".thymus/invariants.yml":  "",
		"lib/vendor/ignored.rb":   "",
		"Upper.TS":                "",
		"scripts/tool.kts":        "",
	})
	if err := os.Symlink(filepath.Join(root, "src", "b.ts"), filepath.Join(root, "src", "link.ts")); err != nil {
		t.Fatal(err)
	}

	s := newScanner(root, config.ScanConfig{})
	got, err := s.Discover(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Upper.TS", "scripts/tool.kts", "src/a.py", "src/b.ts", "src/deep/c.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Discover = %v, want %v", got, want)
	}

	scoped, err := s.Discover(context.Background(), "src/deep")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(scoped, []string{"src/deep/c.go"}) {
		t.Errorf("scoped = %v", scoped)
	}

	follow := newScanner(root, config.ScanConfig{FollowSymlinks: true, Extensions: []string{"ts"}})
	got, _ = follow.Discover(context.Background(), "")
	if !reflect.DeepEqual(got, []string{"Upper.TS", "src/b.ts", "src/link.ts"}) {
		t.Errorf("following symlinks = %v", got)
	}

	if _, err := s.Discover(context.Background(), "missing"); err == nil {
		t.Error("missing scope should fail")
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/routes/users.ts": "import { db } from '../db/client';\nconsole.log(db);\n",
		"src/routes/admin.ts": "import { svc } from '../services/admin';\n",
		"src/db/client.ts":    "export const db = 1;\nconsole.log('ready');\n",
		"src/big.ts":          "console.log('x');\n" + strings.Repeat("// padding\n", 20),
		"src/blob.ts":         "console.log\x00binary",
	})

	s := newScanner(root, config.ScanConfig{MaxFileSizeBytes: 120, Workers: 2})
	res, err := s.Scan(context.Background(), testRules(t), Options{})
	if err != nil {
		t.Fatal(err)
	}

	if res.RunID == "" {
		t.Error("RunID should be set")
	}
	if res.FilesChecked != 3 {
		t.Errorf("FilesChecked = %d, want 3", res.FilesChecked)
	}
	wantSkipped := []SkippedFile{{File: "src/big.ts", Reason: "too large"}, {File: "src/blob.ts", Reason: "binary"}}
	if !reflect.DeepEqual(res.Skipped, wantSkipped) {
		t.Errorf("Skipped = %+v, want %+v", res.Skipped, wantSkipped)
	}

	var got [][2]string
	for _, v := range res.Violations {
		got = append(got, [2]string{v.File, v.RuleID})
	}
	want := [][2]string{
		{"src/db/client.ts", "no-console"},
		{"src/routes/users.ts", "no-db-in-routes"},
		{"src/routes/users.ts", "no-console"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("violations = %v, want %v", got, want)
	}
	if res.Stats != (rules.Counts{Total: 3, Errors: 1, Warnings: 2}) {
		t.Errorf("Stats = %+v", res.Stats)
	}
}

func TestScan_ExplicitFilesAndScope(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/routes/users.ts": "import { db } from '../db/client';\n",
		"src/other.ts":        "console.log(1);\n",
	})
	s := newScanner(root, config.ScanConfig{})

	res, err := s.Scan(context.Background(), testRules(t), Options{
		Files: []string{filepath.Join(root, "src", "routes", "users.ts"), "src/other.ts", "src/other.ts", "src/gone.ts"},
		Scope: "src/routes/",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.FilesChecked != 1 || len(res.Violations) != 1 || res.Violations[0].RuleID != "no-db-in-routes" {
		t.Errorf("result = %+v", res)
	}

	res, err = s.Scan(context.Background(), testRules(t), Options{Files: []string{"src/other.ts", "src/gone.ts", "src/other.ts"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.FilesChecked != 1 || len(res.Skipped) != 1 || res.Skipped[0].Reason != "unreadable" {
		t.Errorf("checked %d, skipped %+v", res.FilesChecked, res.Skipped)
	}
}

func TestScan_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.ts": "", "b.ts": ""})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newScanner(root, config.ScanConfig{}).Scan(ctx, testRules(t), Options{}); err == nil {
		t.Error("cancelled scan should fail")
	}
}

func TestScan_Diff(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	root := t.TempDir()
	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = root
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@example.com",
			"GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@example.com")
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}

	writeTree(t, root, map[string]string{
		"src/routes/users.ts": "export {};\n",
		"src/routes/old.ts":   "import { db } from '../db/client';\n",
		"src/gone.ts":         "console.log(1);\n",
	})
	git("init", "-q")
	git("add", ".")
	git("commit", "-q", "-m", "init")

	writeTree(t, root, map[string]string{"src/routes/users.ts": "import { db } from '../db/client';\n"})
	if err := os.Remove(filepath.Join(root, "src", "gone.ts")); err != nil {
		t.Fatal(err)
	}

	res, err := newScanner(root, config.ScanConfig{}).Scan(context.Background(), testRules(t), Options{Diff: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.FilesChecked != 1 {
		t.Errorf("FilesChecked = %d, want 1 (deleted files are not scanned)", res.FilesChecked)
	}
	if len(res.Violations) != 1 || res.Violations[0].File != "src/routes/users.ts" {
		t.Errorf("violations = %+v", res.Violations)
	}
}

func TestLooksBinary(t *testing.T) {
	if LooksBinary([]byte("plain text")) {
		t.Error("text reported as binary")
	}
	if !LooksBinary([]byte{'a', 0, 'b'}) {
		t.Error("NUL byte not detected")
	}
	late := append(make([]byte, sniffSize), 0)
	for i := range late[:sniffSize] {
		late[i] = 'a'
	}
	if LooksBinary(late) {
		t.Error("NUL beyond the sniff window should be ignored")
	}
}

func TestAccepts(t *testing.T) {
	s := newScanner(t.TempDir(), config.ScanConfig{})
	tests := []struct {
		rel  string
		want bool
	}{
		{"src/a.ts", true},
		{"src/A.PY", true},
		{"README.md", false},
		{"node_modules/x/index.js", false},
		{"src/.thymus/x.ts", false},
		{"Makefile", false},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			if got := s.Accepts(tt.rel); got != tt.want {
				t.Errorf("Accepts(%q) = %v, want %v", tt.rel, got, tt.want)
			}
		})
	}
}
