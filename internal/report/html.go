package report

import (
	"html/template"
	"io"
	"strings"
	"time"

	"thymus/internal/history"
	"thymus/internal/rules"
)

type htmlData struct {
	Title       string
	Version     string
	GeneratedAt string
	Scope       string
	Files       int
	Stats       rules.Counts
	Score       float64
	Sparkline   string
	Trend       *history.Trend
	Modules     []ModuleSummary
	Violations  []rules.Violation
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"upper": func(s rules.Severity) string { return strings.ToUpper(string(s)) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; margin: 2rem; color: #1f2328; }
h1 { font-size: 1.5rem; margin-bottom: 0.25rem; }
.meta { color: #59636e; font-size: 0.85rem; }
.stats span { display: inline-block; margin-right: 1.5rem; font-weight: 600; }
.spark { font-size: 1.5rem; letter-spacing: 1px; }
table { border-collapse: collapse; margin: 1rem 0; width: 100%; }
th, td { border-bottom: 1px solid #d1d9e0; padding: 0.35rem 0.6rem; text-align: left; font-size: 0.9rem; }
th { background: #f6f8fa; }
td.num { text-align: right; }
.error { color: #cf222e; font-weight: 600; }
.warning { color: #9a6700; font-weight: 600; }
.info { color: #0969da; }
.clean { color: #1a7f37; font-weight: 600; }
code { font-size: 0.85rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">thymus {{.Version}} &middot; generated {{.GeneratedAt}} &middot; scope <code>{{.Scope}}</code></p>

<p class="stats">
<span>{{.Files}} files</span>
<span>{{.Stats.Total}} violations</span>
<span class="error">{{.Stats.Errors}} errors</span>
<span class="warning">{{.Stats.Warnings}} warnings</span>
<span class="info">{{.Stats.Info}} info</span>
<span>compliance {{printf "%.1f" .Score}}%</span>
</p>
{{- if .Trend}}

<h2>Compliance trend</h2>
<p><span class="spark">{{.Sparkline}}</span> {{.Trend.Direction}} ({{printf "%+.1f" .Trend.Delta}} over {{.Trend.Entries}} runs)</p>
{{- end}}
{{- if .Modules}}

<h2>Modules</h2>
<table>
<tr><th>Module</th><th>Files</th><th>Errors</th><th>Warnings</th><th>Info</th></tr>
{{- range .Modules}}
<tr><td><code>{{.ID}}</code></td><td class="num">{{.Files}}</td><td class="num">{{.Errors}}</td><td class="num">{{.Warnings}}</td><td class="num">{{.Info}}</td></tr>
{{- end}}
</table>
{{- end}}

<h2>Violations</h2>
{{- if .Violations}}
<table>
<tr><th>Severity</th><th>Rule</th><th>File</th><th>Message</th></tr>
{{- range .Violations}}
<tr><td class="{{.Severity}}">{{upper .Severity}}</td><td><code>{{.RuleID}}</code></td><td><code>{{.File}}{{if .Line}}:{{.Line}}{{end}}</code></td><td>{{.Message}}{{with .Detail}} {{.}}{{end}}</td></tr>
{{- end}}
</table>
{{- else}}
<p class="clean">No violations found</p>
{{- end}}
</body>
</html>
`))

func writeHTML(w io.Writer, r *Report) error {
	res := r.Result
	at := r.GeneratedAt
	if at.IsZero() {
		at = time.Now()
	}
	scope := res.Scope
	if scope == "" {
		scope = "."
	}

	data := htmlData{
		Title:       "Architecture report",
		Version:     r.Version,
		GeneratedAt: at.UTC().Format(time.RFC3339),
		Scope:       scope,
		Files:       res.FilesChecked,
		Stats:       res.Stats,
		Score:       history.ComplianceScore(res.FilesChecked, res.Stats.Errors),
		Modules:     SummarizeModules(res.Violations, r.ModuleOf),
		Violations:  res.Violations,
	}
	if len(r.History) > 0 {
		trend := history.ComputeTrend(r.History)
		data.Trend = &trend
		data.Sparkline = history.Sparkline(trend.Scores)
	}
	return htmlTemplate.Execute(w, data)
}
