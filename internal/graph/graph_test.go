package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"thymus/internal/rules"
	"thymus/internal/rulestore"
)

func layeredEntries() []FileImports {
	return []FileImports{
		{File: "src/routes/users.ts", Imports: []string{"../db/client", "../services/user", "express"}},
		{File: "src/routes/admin.ts", Imports: []string{"../db/client", "../services/index"}},
		{File: "src/services/user.ts", Imports: []string{"../db/client"}},
		{File: "src/services/index.ts", Imports: []string{"./user"}},
		{File: "src/db/client.ts", Imports: []string{"pg"}},
		{File: "src/db/pool.ts", Imports: []string{}},
	}
}

func layeredViolations() []rules.Violation {
	return []rules.Violation{
		{RuleID: "no-db-in-routes", Severity: rules.SeverityError, File: "src/routes/users.ts", ImportTarget: "../db/client"},
		{RuleID: "no-db-in-routes", Severity: rules.SeverityError, File: "src/routes/admin.ts", ImportTarget: "../db/client"},
		{RuleID: "no-console", Severity: rules.SeverityWarning, File: "src/routes/admin.ts", Line: 4},
	}
}

func TestResolveImport(t *testing.T) {
	tests := []struct {
		source, target, want string
	}{
		{"src/routes/users.ts", "../db/client", "src/db/client"},
		{"src/services/index.ts", "./user", "src/services/user"},
		{"src/a.ts", "../../outside", "../outside"},
		{"src/a.py", "src.db.client", "src.db.client"},
		{`src\routes\users.ts`, "../db", "src/db"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if got := ResolveImport(tt.source, tt.target); got != tt.want {
				t.Errorf("ResolveImport(%q, %q) = %q, want %q", tt.source, tt.target, got, tt.want)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	g := Build(layeredEntries(), layeredViolations(), nil)

	var ids []string
	for _, m := range g.Modules {
		ids = append(ids, m.ID)
	}
	wantIDs := []string{"express", "pg", "src/db", "src/routes", "src/services"}
	if !reflect.DeepEqual(ids, wantIDs) {
		t.Fatalf("modules = %v, want %v", ids, wantIDs)
	}

	routes := g.Module("src/routes")
	if routes == nil {
		t.Fatal("Module(src/routes) = nil")
	}
	if routes.FileCount != 2 || routes.Violations != 2 {
		t.Errorf("src/routes = %+v, want 2 files and 2 violations", routes)
	}
	if g.Module("express").FileCount != 0 {
		t.Error("external module should have no files")
	}
	if g.Module("nope") != nil {
		t.Error("Module(nope) should be nil")
	}

	type edgeSummary struct {
		from, to string
		imports  int
		rules    string
	}
	var got []edgeSummary
	for _, e := range g.Edges {
		if e.Violation != (len(e.RuleIDs) > 0) {
			t.Errorf("edge %s -> %s: Violation=%v with rules %v", e.From, e.To, e.Violation, e.RuleIDs)
		}
		got = append(got, edgeSummary{e.From, e.To, len(e.Imports), strings.Join(e.RuleIDs, ",")})
	}
	want := []edgeSummary{
		{"src/db", "pg", 1, ""},
		{"src/routes", "express", 1, ""},
		{"src/routes", "src/db", 2, "no-db-in-routes"},
		{"src/routes", "src/services", 2, ""},
		{"src/services", "src/db", 1, ""},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("edges:\n got %v\nwant %v", got, want)
	}
}

func TestBuild_CustomModuleOf(t *testing.T) {
	moduleOf := func(file string) string {
		if strings.HasPrefix(file, "src/") {
			return "app"
		}
		return "ext"
	}
	g := Build(layeredEntries(), nil, moduleOf)

	if len(g.Modules) != 2 {
		t.Fatalf("len(Modules) = %d, want 2", len(g.Modules))
	}
	if len(g.Edges) != 1 || g.Edges[0].From != "app" || g.Edges[0].To != "ext" {
		t.Errorf("edges = %+v, want one app -> ext edge", g.Edges)
	}
	if n := len(g.Edges[0].Imports); n != 2 {
		t.Errorf("app -> ext imports = %d, want 2 (express, pg)", n)
	}
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"src/a.ts": "import { b } from './b';\n// import nope from 'nope';\n",
		"src/b.py": "import os\nfrom src.db import client\n",
	}
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := Collect(context.Background(), root, []string{"src/a.ts", "src/gone.ts", "src/b.py"}, 2)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := []FileImports{
		{File: "src/a.ts", Imports: []string{"./b"}},
		{File: "src/b.py", Imports: []string{"os", "src.db"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Collect =\n %+v\nwant\n %+v", got, want)
	}
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Collect(ctx, t.TempDir(), []string{"a.ts"}, 1); err == nil {
		t.Error("Collect with cancelled context should fail")
	}
}

func TestInfer(t *testing.T) {
	g := Build(layeredEntries(), nil, nil)
	infs := Infer(g, 90)

	var ids []string
	for _, inf := range infs {
		ids = append(ids, inf.Rule.ID)
		if inf.Rule.Type != rules.TypeBoundary || inf.Rule.Severity != rules.SeverityWarning {
			t.Errorf("%s: type %s severity %s", inf.Rule.ID, inf.Rule.Type, inf.Rule.Severity)
		}
	}
	want := []string{
		"inferred-src-db-no-import-src-routes",
		"inferred-src-services-no-import-src-routes",
		"inferred-src-db-self-contained",
		"inferred-src-services-self-contained",
	}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("Infer ids = %v, want %v", ids, want)
	}

	dir := infs[0].Rule
	if dir.ScopeGlob != "src/db/**" || !reflect.DeepEqual(dir.ForbiddenImports, []string{"src/routes/**"}) {
		t.Errorf("directionality rule = %+v", dir)
	}
	self := infs[2].Rule
	if !reflect.DeepEqual(self.AllowedImports, []string{"src/db/**", "pg/**"}) {
		t.Errorf("self-contained allowed = %v", self.AllowedImports)
	}

	// Every inferred rule must compile.
	var rs []rules.Rule
	for _, inf := range infs {
		rs = append(rs, inf.Rule)
	}
	if _, errs := rules.NewRuleSet(rs); len(errs) > 0 {
		t.Errorf("inferred rules do not compile: %v", errs)
	}
}

func TestInfer_Gateway(t *testing.T) {
	a := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		a = append(a, "../api/index")
	}
	entries := []FileImports{
		{File: "web/a.ts", Imports: a},
		{File: "web/b.ts", Imports: []string{"../api/index", "../api/index", "../api/index", "../api/index", "../api/x"}},
		{File: "api/index.ts", Imports: []string{"./x"}},
		{File: "api/x.ts"},
	}
	g := Build(entries, nil, nil)

	find := func(infs []Inference, kind string) *Inference {
		for i := range infs {
			if infs[i].Kind == kind {
				return &infs[i]
			}
		}
		return nil
	}

	gw := find(Infer(g, 90), KindGateway)
	if gw == nil {
		t.Fatal("expected a gateway inference at 90%")
	}
	if gw.Rule.ID != "inferred-api-gateway" || gw.Confidence != 90 {
		t.Errorf("gateway = %s @ %v", gw.Rule.ID, gw.Confidence)
	}
	if gw.Rule.ScopeGlob != "**" ||
		!reflect.DeepEqual(gw.Rule.ForbiddenImports, []string{"api/**"}) ||
		!reflect.DeepEqual(gw.Rule.AllowedImports, []string{"api/index"}) {
		t.Errorf("gateway rule = %+v", gw.Rule)
	}

	strict := Infer(g, 95)
	if find(strict, KindGateway) != nil {
		t.Error("gateway at 90% should be filtered by min confidence 95")
	}
	if find(strict, KindDirectionality) == nil {
		t.Error("directionality (100%) should survive min confidence 95")
	}
}

func TestInfer_TooSmall(t *testing.T) {
	g := Build([]FileImports{{File: "a.ts", Imports: []string{"./b"}}, {File: "b.ts"}}, nil, nil)
	if infs := Infer(g, 0); infs != nil {
		t.Errorf("Infer on single-file modules = %v, want nil", infs)
	}
}

func TestWriteInferences(t *testing.T) {
	infs := Infer(Build(layeredEntries(), nil, nil), 90)

	var buf bytes.Buffer
	if err := WriteInferences(&buf, infs, 90, rulestore.FormatYAML); err != nil {
		t.Fatalf("WriteInferences: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"# Auto-inferred rules (thymus infer)", "# Min confidence: 90%", "# Review before applying"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	doc, _, err := rulestore.Parse(buf.Bytes(), rulestore.FormatYAML)
	if err != nil {
		t.Fatalf("inferred document does not parse: %v", err)
	}
	if len(doc.Invariants) != len(infs) {
		t.Fatalf("len(Invariants) = %d, want %d", len(doc.Invariants), len(infs))
	}
	for _, spec := range doc.Invariants {
		if !spec.Inferred || spec.Confidence != 100 {
			t.Errorf("%s: inferred=%v confidence=%v", spec.ID, spec.Inferred, spec.Confidence)
		}
	}

	buf.Reset()
	if err := WriteInferences(&buf, nil, 99, rulestore.FormatTOML); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "# No rules inferred at this confidence level") {
		t.Errorf("empty output = %q", buf.String())
	}
}

func chainGraph() *Graph {
	return Build([]FileImports{
		{File: "a/x.go", Imports: []string{"b/y"}},
		{File: "b/y.go", Imports: []string{"c/z"}},
		{File: "c/z.go"},
	}, nil, nil)
}

func TestRank(t *testing.T) {
	g := chainGraph()
	g.Rank(DefaultRankOptions())

	a, b, c := g.Module("a").Rank, g.Module("b").Rank, g.Module("c").Rank
	if !(c > b && b > a && a > 0) {
		t.Errorf("ranks a=%v b=%v c=%v, want c > b > a > 0", a, b, c)
	}
}

func TestRelated(t *testing.T) {
	g := chainGraph()

	related, err := g.Related(context.Background(), "a", RankOptions{})
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if len(related) != 2 {
		t.Fatalf("len(related) = %d, want 2", len(related))
	}
	if related[0].Module != "b" || related[1].Module != "c" {
		t.Errorf("order = %s, %s, want b, c", related[0].Module, related[1].Module)
	}
	if !reflect.DeepEqual(related[1].Path, []string{"a", "b", "c"}) {
		t.Errorf("path to c = %v, want [a b c]", related[1].Path)
	}

	if _, err := g.Related(context.Background(), "zzz", RankOptions{}); err == nil {
		t.Error("Related on unknown module should fail")
	}
}

func renderGraph() *Graph {
	return Build(
		[]FileImports{{File: "web/a.ts", Imports: []string{"../api/index"}}},
		[]rules.Violation{{RuleID: "no-api", File: "web/a.ts", ImportTarget: "../api/index"}},
		nil)
}

func TestRender(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatDOT, `digraph modules {
  rankdir=LR;
  node [shape=box, style=rounded, fontname="Helvetica"];
  "api" [label="api\n0 file(s)"];
  "web" [label="web\n1 file(s)\n1 violation(s)", color=red];
  "web" -> "api" [label="1", color=red, penwidth=2, tooltip="no-api"];
}
`},
		{FormatMermaid, `graph LR
  m0["api (0)"]
  m1["web (1)"]
  m1 -->|1 ✗ no-api| m0
  linkStyle 0 stroke:#d33,stroke-width:2px
`},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Render(&buf, renderGraph(), tt.format); err != nil {
				t.Fatal(err)
			}
			if buf.String() != tt.want {
				t.Errorf("Render(%s) =\n%s\nwant\n%s", tt.format, buf.String(), tt.want)
			}
		})
	}
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, renderGraph(), FormatJSON); err != nil {
		t.Fatal(err)
	}
	var decoded Graph
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(decoded.Edges) != 1 || !decoded.Edges[0].Violation || decoded.Edges[0].RuleIDs[0] != "no-api" {
		t.Errorf("decoded edges = %+v", decoded.Edges)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"DOT", FormatDOT, false},
		{"graphviz", FormatDOT, false},
		{"mmd", FormatMermaid, false},
		{"svg", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}
