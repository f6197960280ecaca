package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"thymus/internal/history"
	"thymus/internal/rules"
	"thymus/internal/scanner"
)

func sampleResult() *scanner.Result {
	vs := []rules.Violation{
		{RuleID: "no-db-in-routes", Severity: rules.SeverityError, Message: "Routes must not import the db layer", File: "src/routes/users.ts", Line: 1, ImportTarget: "../db/client"},
		{RuleID: "no-console", Severity: rules.SeverityWarning, Message: "No console output", File: "src/routes/users.ts", Line: 7},
		{RuleID: "services-have-tests", Severity: rules.SeverityInfo, Message: "missing colocated test file", File: "src/services/user.ts"},
	}
	return &scanner.Result{
		RunID:        "run-1",
		Scope:        "",
		FilesChecked: 4,
		Violations:   vs,
		Stats:        rules.Count(vs),
		Duration:     "12ms",
	}
}

func sampleRules() *rules.RuleSet {
	return rules.MustRuleSet([]rules.Rule{
		{ID: "no-db-in-routes", Type: rules.TypeBoundary, Severity: rules.SeverityError, Description: "Routes must not import the db layer", ScopeGlob: "src/routes/**", ForbiddenImports: []string{"**/db/**"}},
		{ID: "no-console", Type: rules.TypePattern, Severity: rules.SeverityWarning, Description: "No console output", ScopeGlob: "src/**", ForbiddenPattern: `console\.log`},
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{"Human", FormatHuman, false},
		{"sarif", FormatSARIF, false},
		{" html ", FormatHTML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWrite_NoResult(t *testing.T) {
	if err := Write(&bytes.Buffer{}, &Report{}, FormatJSON); err == nil {
		t.Error("expected error for a report without result")
	}
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, &Report{Result: sampleResult()}, FormatJSON); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	var got scanner.Result
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.FilesChecked != 4 || len(got.Violations) != 3 || got.Stats.Errors != 1 {
		t.Errorf("unexpected result: %+v", got)
	}
	if !strings.Contains(buf.String(), `"importTarget": "../db/client"`) {
		t.Errorf("output should carry importTarget:\n%s", buf.String())
	}
}

func TestWrite_Human(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, &Report{Result: sampleResult()}, FormatHuman); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	want := `Thymus Scan Results
===================

Scope:      .
Files:      4
Duration:   12ms
Violations: 3 (1 error(s), 1 warning(s), 1 info)

src/routes/users.ts
  [ERROR] no-db-in-routes: Routes must not import the db layer (import: ../db/client)
  [WARNING] no-console: No console output (line 7)

src/services/user.ts
  [INFO] services-have-tests: missing colocated test file
`
	if buf.String() != want {
		t.Errorf("human output mismatch\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWrite_HumanClean(t *testing.T) {
	var buf bytes.Buffer
	res := &scanner.Result{Scope: "src", FilesChecked: 2, Violations: []rules.Violation{}}
	if err := Write(&buf, &Report{Result: res}, FormatHuman); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "\nNo violations found\n") {
		t.Errorf("clean output should end with the no-violations line:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Scope:      src\n") {
		t.Errorf("scope missing:\n%s", buf.String())
	}
}

func TestBuildSARIF(t *testing.T) {
	r := &Report{Result: sampleResult(), Rules: sampleRules(), Version: "1.2.0", RepoRoot: "/repo"}

	var buf bytes.Buffer
	if err := Write(&buf, r, FormatSARIF); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	var doc SARIFReport
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Failed to parse SARIF output: %v", err)
	}

	if doc.Version != "2.1.0" {
		t.Errorf("SARIF version = %q, want 2.1.0", doc.Version)
	}
	if !strings.Contains(doc.Schema, "sarif-schema-2.1.0") {
		t.Errorf("SARIF schema should reference 2.1.0, got %q", doc.Schema)
	}
	if len(doc.Runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(doc.Runs))
	}
	run := doc.Runs[0]

	if run.Tool.Driver.Name != "thymus" || run.Tool.Driver.Version != "1.2.0" {
		t.Errorf("driver = %+v", run.Tool.Driver)
	}
	// Rule-set rules first, then ids only seen in violations.
	var ids []string
	for _, rule := range run.Tool.Driver.Rules {
		ids = append(ids, rule.ID)
	}
	if strings.Join(ids, ",") != "no-db-in-routes,no-console,services-have-tests" {
		t.Errorf("rule ids = %v", ids)
	}
	if d := run.Tool.Driver.Rules[0].ShortDescription; d == nil || d.Text != "Routes must not import the db layer" {
		t.Errorf("short description = %+v", d)
	}

	if len(run.Results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(run.Results))
	}
	tests := []struct {
		level     string
		ruleIndex int
		line      int
		text      string
	}{
		{"error", 0, 1, "Routes must not import the db layer (import: ../db/client)"},
		{"warning", 1, 7, "No console output (line 7)"},
		{"note", 2, 0, "missing colocated test file"},
	}
	for i, tt := range tests {
		res := run.Results[i]
		if res.Level != tt.level {
			t.Errorf("result %d level = %q, want %q", i, res.Level, tt.level)
		}
		if res.RuleIndex != tt.ruleIndex {
			t.Errorf("result %d ruleIndex = %d, want %d", i, res.RuleIndex, tt.ruleIndex)
		}
		if res.Message.Text != tt.text {
			t.Errorf("result %d message = %q, want %q", i, res.Message.Text, tt.text)
		}
		loc := res.Locations[0].PhysicalLocation
		if loc.ArtifactLocation.URIBaseID != "%SRCROOT%" {
			t.Errorf("result %d uriBaseId = %q", i, loc.ArtifactLocation.URIBaseID)
		}
		switch {
		case tt.line == 0 && loc.Region != nil:
			t.Errorf("result %d should have no region", i)
		case tt.line > 0 && (loc.Region == nil || loc.Region.StartLine != tt.line):
			t.Errorf("result %d region = %+v, want line %d", i, loc.Region, tt.line)
		}
		if len(res.Fingerprints["thymus/v1"]) != 16 {
			t.Errorf("result %d fingerprint = %q", i, res.Fingerprints["thymus/v1"])
		}
	}
	if run.Results[0].Properties["importTarget"] != "../db/client" {
		t.Errorf("properties = %v", run.Results[0].Properties)
	}
	if run.Invocations[0].WorkingDirectory == nil || run.Invocations[0].WorkingDirectory.URI != "/repo" {
		t.Errorf("working directory = %+v", run.Invocations[0].WorkingDirectory)
	}
}

func TestBuildSARIF_Empty(t *testing.T) {
	res := &scanner.Result{Violations: []rules.Violation{}}
	data, err := writeSARIF(&Report{Result: res})
	if err != nil {
		t.Fatalf("writeSARIF failed: %v", err)
	}
	if !strings.Contains(string(data), `"results": []`) {
		t.Errorf("empty run should carry an empty results array:\n%s", data)
	}
}

func TestFingerprintIgnoresLineForImports(t *testing.T) {
	a := rules.Violation{RuleID: "r", File: "a.ts", Line: 3, ImportTarget: "x"}
	b := a
	b.Line = 9
	if fingerprint(a) != fingerprint(b) {
		t.Error("moving an import should not change its fingerprint")
	}
	c := rules.Violation{RuleID: "r", File: "a.ts", Line: 3}
	d := c
	d.Line = 4
	if fingerprint(c) == fingerprint(d) {
		t.Error("pattern violations on different lines should differ")
	}
}

func TestSummarizeModules(t *testing.T) {
	vs := []rules.Violation{
		{RuleID: "a", Severity: rules.SeverityWarning, File: "src/services/a.ts"},
		{RuleID: "b", Severity: rules.SeverityError, File: "src/routes/users.ts"},
		{RuleID: "c", Severity: rules.SeverityWarning, File: "src/routes/users.ts"},
		{RuleID: "d", Severity: rules.SeverityInfo, File: "src/routes/items.ts"},
		{RuleID: "e", Severity: rules.SeverityWarning, File: "lib/x.ts"},
		{RuleID: "f", Severity: rules.SeverityWarning, File: "lib/y.ts"},
	}
	got := SummarizeModules(vs, nil)
	want := []ModuleSummary{
		{ID: "src/routes", Files: 2, Violations: 3, Errors: 1, Warnings: 1, Info: 1},
		{ID: "lib", Files: 2, Violations: 2, Warnings: 2},
		{ID: "src/services", Files: 1, Violations: 1, Warnings: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d modules, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("module %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestWrite_HTML(t *testing.T) {
	res := sampleResult()
	res.Violations = append(res.Violations, rules.Violation{
		RuleID: "no-script", Severity: rules.SeverityWarning, Message: "<script> tags", File: "web/page.html", Line: 2,
	})
	res.Stats = rules.Count(res.Violations)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &Report{
		Result:      res,
		Version:     "1.2.0",
		GeneratedAt: at,
		History: []history.Entry{
			{ComplianceScore: 50},
			{ComplianceScore: 75},
			{ComplianceScore: 100},
		},
	}
	var buf bytes.Buffer
	if err := Write(&buf, r, FormatHTML); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"<!DOCTYPE html>",
		"generated 2026-03-01T12:00:00Z",
		"<span>4 files</span>",
		`<span class="error">1 errors</span>`,
		"compliance 75.0%",
		"improving (&#43;50.0 over 3 runs)",
		history.Sparkline([]float64{50, 75, 100}),
		"<td><code>src/routes</code></td>",
		"<code>src/routes/users.ts:7</code>",
		"(import: ../db/client)",
		"&lt;script&gt; tags",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML output missing %q", want)
		}
	}
	if strings.Contains(out, "<script>") {
		t.Error("violation messages must be escaped")
	}
}

func TestWrite_HTMLClean(t *testing.T) {
	res := &scanner.Result{FilesChecked: 1, Violations: []rules.Violation{}}
	var buf bytes.Buffer
	if err := Write(&buf, &Report{Result: res}, FormatHTML); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "No violations found") {
		t.Error("clean report should say so")
	}
	if strings.Contains(out, "Compliance trend") || strings.Contains(out, "<h2>Modules</h2>") {
		t.Error("clean report without history should have no trend or module table")
	}
}
