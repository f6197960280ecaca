package scope

import "testing"

func TestGlobMatch(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"src/*.ts", "src/a.ts", true},
		{"src/*.ts", "src/sub/a.ts", false},
		{"src/*.ts", "xsrc/a.ts", false},
		{"src/**", "src/a/b/c.ts", true},
		{"src/**", "src", true},
		{"src/**", "srcx/a.ts", false},
		{"src/**/*.ts", "src/a.ts", true},
		{"src/**/*.ts", "src/a/b/c.ts", true},
		{"src/**/*.ts", "src/a/b/c.tsx", false},
		{"**/*.go", "main.go", true},
		{"**/*.go", "cmd/x/main.go", true},
		{"a/**/b", "a/b", true},
		{"a/**/b", "a/x/y/b", true},
		{"a/**/b", "a/xb", false},
		{"**", "anything/at/all", true},
		{"*.test.js", "foo.test.js", true},
		{"*.test.js", "footestxjs", false},
		{"lib/a+b?.py", "lib/a+b?.py", true},
		{"lib/a+b?.py", "lib/aab1.py", false},
		{"../db/client", "../db/client", true},
		{"../db/*", "../db/client", true},
		{`src\routes\*.ts`, "src/routes/a.ts", true},
		{"src/routes/*.ts", `src\routes\a.ts`, true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.path, func(t *testing.T) {
			g, err := Compile(tt.pattern)
			if err != nil {
				t.Fatalf("Compile(%q) error: %v", tt.pattern, err)
			}
			if got := g.Match(tt.path); got != tt.want {
				t.Errorf("Compile(%q).Match(%q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

func TestGlobIsAnchored(t *testing.T) {
	g := MustCompile("db/client.ts")
	if g.Match("src/db/client.ts") {
		t.Error("pattern should not match as a substring")
	}
	if g.Match("db/client.tsx") {
		t.Error("pattern should not match a longer path")
	}
}

func TestInScope(t *testing.T) {
	tests := []struct {
		name     string
		include  string
		excludes []string
		path     string
		want     bool
	}{
		{"no scope", "", nil, "any/file.go", true},
		{"include match", "src/**", nil, "src/a.ts", true},
		{"include miss", "src/**", nil, "lib/a.ts", false},
		{"exclude wins", "src/**", []string{"src/db/**"}, "src/db/client.ts", false},
		{"exclude miss", "src/**", []string{"src/db/**"}, "src/service/x.ts", true},
		{"exclude without include", "", []string{"**/*_test.go"}, "pkg/a_test.go", false},
		{"empty exclude ignored", "src/**", []string{""}, "src/a.ts", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewScope(tt.include, tt.excludes)
			if err != nil {
				t.Fatalf("NewScope error: %v", err)
			}
			if got := s.InScope(tt.path); got != tt.want {
				t.Errorf("InScope(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestNilScopeIncludesEverything(t *testing.T) {
	var s *Scope
	if !s.InScope("x/y.go") {
		t.Error("nil scope should include every path")
	}
}

func TestMatchHelper(t *testing.T) {
	if !Match("src/**", "src/a.ts") {
		t.Error("Match should compile and match")
	}
	if Match("src/*.ts", "src/a/b.ts") {
		t.Error("single star must not cross directories")
	}
}

func TestCompileAll(t *testing.T) {
	globs, err := CompileAll([]string{"a/**", "b/*.go"})
	if err != nil {
		t.Fatalf("CompileAll error: %v", err)
	}
	if len(globs) != 2 {
		t.Fatalf("len = %d, want 2", len(globs))
	}
	if !MatchAny(globs, "b/x.go") {
		t.Error("MatchAny should match second glob")
	}
	if MatchAny(globs, "c/x.go") {
		t.Error("MatchAny should not match unrelated path")
	}
}
