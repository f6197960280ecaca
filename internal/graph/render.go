package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Format is a graph output format.
type Format string

const (
	FormatJSON    Format = "json"
	FormatDOT     Format = "dot"
	FormatMermaid Format = "mermaid"
)

// ParseFormat accepts json, dot (or graphviz) and mermaid.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "dot", "graphviz":
		return FormatDOT, nil
	case "mermaid", "mmd":
		return FormatMermaid, nil
	}
	return "", fmt.Errorf("unknown graph format %q (want json, dot or mermaid)", s)
}

// Render writes g in format.
func Render(w io.Writer, g *Graph, format Format) error {
	switch format {
	case FormatDOT:
		return renderDOT(w, g)
	case FormatMermaid:
		return renderMermaid(w, g)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(g)
	}
}

func renderDOT(w io.Writer, g *Graph) error {
	var b strings.Builder
	b.WriteString("digraph modules {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\"];\n")
	for _, m := range g.Modules {
		label := fmt.Sprintf("%s\\n%d file(s)", m.ID, m.FileCount)
		attrs := ""
		if m.Violations > 0 {
			label += fmt.Sprintf("\\n%d violation(s)", m.Violations)
			attrs = ", color=red"
		}
		fmt.Fprintf(&b, "  %s [label=\"%s\"%s];\n", strconv.Quote(m.ID), strings.ReplaceAll(label, `"`, `\"`), attrs)
	}
	for _, e := range g.Edges {
		attrs := fmt.Sprintf("label=\"%d\"", len(e.Imports))
		if e.Violation {
			attrs += fmt.Sprintf(", color=red, penwidth=2, tooltip=%s", strconv.Quote(strings.Join(e.RuleIDs, ", ")))
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", strconv.Quote(e.From), strconv.Quote(e.To), attrs)
	}
	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func renderMermaid(w io.Writer, g *Graph) error {
	ids := make(map[string]string, len(g.Modules))
	var b strings.Builder
	b.WriteString("graph LR\n")
	for i, m := range g.Modules {
		ids[m.ID] = "m" + strconv.Itoa(i)
		fmt.Fprintf(&b, "  %s[\"%s (%d)\"]\n", ids[m.ID], mermaidEscape(m.ID), m.FileCount)
	}

	var violating []int
	for i, e := range g.Edges {
		label := strconv.Itoa(len(e.Imports))
		if e.Violation {
			label += " ✗ " + strings.Join(e.RuleIDs, ", ")
			violating = append(violating, i)
		}
		fmt.Fprintf(&b, "  %s -->|%s| %s\n", ids[e.From], mermaidEscape(label), ids[e.To])
	}
	for _, i := range violating {
		fmt.Fprintf(&b, "  linkStyle %d stroke:#d33,stroke-width:2px\n", i)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func mermaidEscape(s string) string {
	return strings.NewReplacer(`"`, "#quot;", "|", "#124;").Replace(s)
}
