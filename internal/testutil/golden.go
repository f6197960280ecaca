package testutil

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"
	"testing"
)

var (
	// go test ./internal/scanner -run TestGolden -update
	updateGolden = flag.Bool("update", false, "rewrite golden files from the current output")

	// go test ./internal/scanner -run TestGolden -goldenLang=go,py
	goldenLang = flag.String("goldenLang", "", "only run these fixture languages (go,java,py,rs)")
)

// langAliases maps the short names accepted by -goldenLang to fixture
// directory names.
var langAliases = map[string]string{
	"py":     "python",
	"rs":     "rust",
	"golang": "go",
}

// ShouldUpdate reports whether -update was given.
func ShouldUpdate() bool {
	return *updateGolden
}

// ShouldTestLang reports whether lang passes the -goldenLang filter.
func ShouldTestLang(lang string) bool {
	if *goldenLang == "" {
		return true
	}
	for _, l := range strings.Split(*goldenLang, ",") {
		l = strings.TrimSpace(l)
		if alias, ok := langAliases[l]; ok {
			l = alias
		}
		if l == lang {
			return true
		}
	}
	return false
}

// CompareGolden normalizes got and compares it with expected/<name>.json,
// or rewrites that file under -update.
func CompareGolden(t *testing.T, fixture *FixtureContext, name string, got any) {
	t.Helper()

	data := MarshalNormalized(t, fixture, got)
	path := fixture.ExpectedPath(name)

	if *updateGolden {
		if err := os.MkdirAll(fixture.ExpectedDir, 0o755); err != nil {
			t.Fatalf("create %s: %v", fixture.ExpectedDir, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write golden: %v", err)
		}
		t.Logf("updated %s", path)
		return
	}

	want, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.Fatalf("golden file %s missing; run with -update to create it. Got:\n%s", path, data)
	}
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	if !bytes.Equal(data, want) {
		t.Fatalf("%s differs from the golden file (run with -update to accept):\n%s", name, lineDiff(string(want), string(data)))
	}
}

// lineDiff lists the lines that differ, with their line numbers. It stops
// after the first twenty differences.
func lineDiff(want, got string) string {
	wl := strings.Split(want, "\n")
	gl := strings.Split(got, "\n")
	n := len(wl)
	if len(gl) > n {
		n = len(gl)
	}

	var b strings.Builder
	shown := 0
	for i := 0; i < n && shown < 20; i++ {
		var w, g string
		if i < len(wl) {
			w = wl[i]
		}
		if i < len(gl) {
			g = gl[i]
		}
		if w == g {
			continue
		}
		fmt.Fprintf(&b, "%4d - %s\n%4d + %s\n", i+1, w, i+1, g)
		shown++
	}
	if shown == 20 {
		b.WriteString("     ...\n")
	}
	return b.String()
}

// ForEachLanguage runs fn once per fixture language, as a subtest. Under
// -short only the first language runs.
func ForEachLanguage(t *testing.T, fn func(t *testing.T, fixture *FixtureContext)) {
	t.Helper()

	langs := AvailableLanguages(t)
	if len(langs) == 0 {
		t.Skip("no fixtures available")
	}
	if testing.Short() {
		langs = langs[:1]
	}
	for _, lang := range langs {
		if !ShouldTestLang(lang) {
			continue
		}
		t.Run(lang, func(t *testing.T) {
			fn(t, LoadFixture(t, lang))
		})
	}
}
