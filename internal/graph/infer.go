package graph

import (
	"fmt"
	"io"
	"math"
	"path"
	"sort"
	"strings"

	"thymus/internal/modules"
	"thymus/internal/rules"
	"thymus/internal/rulestore"
)

// Inference kinds.
const (
	KindDirectionality = "directionality"
	KindGateway        = "gateway"
	KindSelfContained  = "self-contained"
	KindSelectiveDeps  = "selective-deps"
)

// gatewayNames are file stems conventionally used as a module's public
// entry point.
var gatewayNames = map[string]bool{
	"index": true, "__init__": true, "mod": true, "lib": true,
	"main": true, "exports": true, "public": true,
}

// gatewayShare is the minimum share of incoming imports, in percent, that
// must hit one gateway file.
const gatewayShare = 90.0

// Inference is a boundary rule proposed from the graph's current shape.
type Inference struct {
	Rule       rules.Rule `json:"rule"`
	Kind       string     `json:"kind"`
	Confidence float64    `json:"confidence"`
}

// Infer proposes boundary rules that the project already satisfies:
//
//   - directionality: A imports B (2+ imports) and B never imports A, so B
//     must not import A
//   - gateway: at least 90% of imports into a module hit one gateway file
//   - self-contained: a module imports from at most one other module
//   - selective-deps: a module imports from exactly two other modules
//
// Modules with fewer than two files are never the subject of a rule.
// Rules with the same scope and forbidden list are reported once.
func Infer(g *Graph, minConfidence float64) []Inference {
	files := make(map[string]int, len(g.Modules))
	valid := 0
	for _, m := range g.Modules {
		files[m.ID] = m.FileCount
		if m.FileCount >= 2 {
			valid++
		}
	}
	if valid == 0 {
		return nil
	}

	outgoing := make(map[string]map[string]bool)
	edges := make(map[pair]bool, len(g.Edges))
	for _, e := range g.Edges {
		edges[pair{e.From, e.To}] = true
		if outgoing[e.From] == nil {
			outgoing[e.From] = make(map[string]bool)
		}
		outgoing[e.From][e.To] = true
	}

	var all []Inference
	add := func(inf Inference) {
		if inf.Confidence >= minConfidence {
			all = append(all, inf)
		}
	}

	for _, e := range g.Edges {
		if len(e.Imports) < 2 || files[e.From] == 0 || files[e.To] == 0 || edges[pair{e.To, e.From}] {
			continue
		}
		add(Inference{
			Kind:       KindDirectionality,
			Confidence: 100,
			Rule: inferredRule(
				fmt.Sprintf("inferred-%s-no-import-%s", modules.Slug(e.To), modules.Slug(e.From)),
				fmt.Sprintf("%s imports from %s but %s never imports from %s", e.From, e.To, e.To, e.From),
				e.To+"/**", []string{e.From + "/**"}, nil),
		})
	}

	for _, inf := range inferGateways(g, files) {
		add(inf)
	}

	if len(g.Modules) >= 3 {
		for _, m := range g.Modules {
			if m.FileCount <= 1 {
				continue
			}
			targets := sortedKeys(outgoing[m.ID])
			slug := modules.Slug(m.ID)
			switch len(targets) {
			case 0:
				add(Inference{Kind: KindSelfContained, Confidence: 100, Rule: inferredRule(
					"inferred-"+slug+"-"+KindSelfContained,
					m.ID+" has no external imports; enforce self-containment",
					m.ID+"/**", []string{"**"}, []string{m.ID + "/**"})})
			case 1:
				add(Inference{Kind: KindSelfContained, Confidence: 100, Rule: inferredRule(
					"inferred-"+slug+"-"+KindSelfContained,
					fmt.Sprintf("%s only imports from %s; enforce self-containment", m.ID, targets[0]),
					m.ID+"/**", []string{"**"}, []string{m.ID + "/**", targets[0] + "/**"})})
			case 2:
				add(Inference{Kind: KindSelectiveDeps, Confidence: 100, Rule: inferredRule(
					"inferred-"+slug+"-"+KindSelectiveDeps,
					fmt.Sprintf("%s only imports from %s and %s; enforce selective dependencies", m.ID, targets[0], targets[1]),
					m.ID+"/**", []string{"**"}, []string{m.ID + "/**", targets[0] + "/**", targets[1] + "/**"})})
			}
		}
	}

	return dedupe(all)
}

func inferGateways(g *Graph, files map[string]int) []Inference {
	incoming := make(map[string][]ImportRef)
	var order []string
	for _, e := range g.Edges {
		if _, seen := incoming[e.To]; !seen {
			order = append(order, e.To)
		}
		incoming[e.To] = append(incoming[e.To], e.Imports...)
	}
	sort.Strings(order)

	var out []Inference
	for _, mod := range order {
		refs := incoming[mod]
		if files[mod] <= 1 || len(refs) < 2 {
			continue
		}

		counts := make(map[string]int)
		for _, ref := range refs {
			counts[path.Base(strings.ReplaceAll(ref.Target, "\\", "/"))]++
		}
		top, topCount := "", 0
		for leaf, n := range counts {
			if n > topCount || (n == topCount && leaf < top) {
				top, topCount = leaf, n
			}
		}
		if !gatewayNames[stem(top)] {
			continue
		}
		pct := float64(topCount) / float64(len(refs)) * 100
		if pct < gatewayShare {
			continue
		}
		out = append(out, Inference{
			Kind:       KindGateway,
			Confidence: math.Round(pct*10) / 10,
			Rule: inferredRule(
				"inferred-"+modules.Slug(mod)+"-"+KindGateway,
				fmt.Sprintf("%.0f%% of imports into %s go through %s; enforce gateway pattern", pct, mod, top),
				"**", []string{mod + "/**"}, []string{mod + "/" + top}),
		})
	}
	return out
}

func stem(name string) string {
	if dot := strings.LastIndexByte(name, '.'); dot > 0 {
		return name[:dot]
	}
	return name
}

func inferredRule(id, description, scopeGlob string, forbidden, allowed []string) rules.Rule {
	return rules.Rule{
		ID:               id,
		Type:             rules.TypeBoundary,
		Severity:         rules.SeverityWarning,
		Description:      description,
		ScopeGlob:        scopeGlob,
		ForbiddenImports: forbidden,
		AllowedImports:   allowed,
	}
}

func dedupe(in []Inference) []Inference {
	seen := make(map[string]bool)
	var out []Inference
	for _, inf := range in {
		forbidden := append([]string(nil), inf.Rule.ForbiddenImports...)
		sort.Strings(forbidden)
		key := inf.Rule.ScopeGlob + "\x00" + strings.Join(forbidden, "\x00")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, inf)
	}
	return out
}

// WriteInferences writes the inferred rules as an invariants document in
// format, under a review header.
func WriteInferences(w io.Writer, infs []Inference, minConfidence float64, format rulestore.Format) error {
	header := []string{
		"Auto-inferred rules (thymus infer)",
		fmt.Sprintf("Min confidence: %g%%", minConfidence),
		"Review before applying",
	}
	if len(infs) == 0 {
		header = append(header, "No rules inferred at this confidence level")
	}

	doc := &rulestore.Document{Version: 1, Invariants: make([]rulestore.RuleSpec, 0, len(infs))}
	for _, inf := range infs {
		spec := rulestore.SpecFromRule(inf.Rule)
		spec.Inferred = true
		spec.Confidence = inf.Confidence
		doc.Invariants = append(doc.Invariants, spec)
	}
	return rulestore.Encode(w, doc, format, header...)
}
