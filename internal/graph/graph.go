// Package graph builds the module dependency graph of a project, infers
// boundary rules from its shape and renders it for people and tools.
package graph

import (
	"context"
	"os"
	"path"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"thymus/internal/imports"
	"thymus/internal/modules"
	"thymus/internal/paths"
	"thymus/internal/rules"
)

// FileImports is the import list of one repo-relative file.
type FileImports struct {
	File    string   `json:"file"`
	Imports []string `json:"imports"`
}

// Module is a node of the graph.
type Module struct {
	ID         string   `json:"id"`
	Files      []string `json:"files"`
	FileCount  int      `json:"fileCount"`
	Violations int      `json:"violations"`
	Rank       float64  `json:"rank,omitempty"`
}

// ImportRef is one import statement crossing a module boundary.
type ImportRef struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Edge connects two distinct modules. RuleIDs lists the boundary rules
// violated by any of its imports.
type Edge struct {
	From      string      `json:"from"`
	To        string      `json:"to"`
	Imports   []ImportRef `json:"imports"`
	Violation bool        `json:"violation"`
	RuleIDs   []string    `json:"ruleIds"`
}

// Graph is the module adjacency graph. Modules and edges are sorted.
type Graph struct {
	Modules []Module `json:"modules"`
	Edges   []Edge   `json:"edges"`
}

// Module returns the node with id, or nil.
func (g *Graph) Module(id string) *Module {
	i := sort.Search(len(g.Modules), func(i int) bool { return g.Modules[i].ID >= id })
	if i < len(g.Modules) && g.Modules[i].ID == id {
		return &g.Modules[i]
	}
	return nil
}

// ResolveImport resolves a relative import (leading ".") against the
// directory of source. Other targets are returned unchanged.
func ResolveImport(source, target string) string {
	if !strings.HasPrefix(target, ".") {
		return target
	}
	return path.Clean(path.Join(path.Dir(paths.NormalizePath(source)), target))
}

type pair struct{ a, b string }

// Build groups files into modules with moduleOf and connects modules whose
// files import each other. Imports within a module are not edges. Boundary
// violations carrying an import target mark the edge they travel on.
func Build(entries []FileImports, violations []rules.Violation, moduleOf func(string) string) *Graph {
	if moduleOf == nil {
		moduleOf = modules.DefaultModuleOf
	}

	violated := make(map[pair]map[string]bool)
	for _, v := range violations {
		if v.ImportTarget == "" || v.File == "" || v.RuleID == "" {
			continue
		}
		key := pair{v.File, ResolveImport(v.File, v.ImportTarget)}
		if violated[key] == nil {
			violated[key] = make(map[string]bool)
		}
		violated[key][v.RuleID] = true
	}

	files := make(map[string]map[string]bool)
	addModule := func(id string) {
		if files[id] == nil {
			files[id] = make(map[string]bool)
		}
	}
	edgeImports := make(map[pair][]ImportRef)
	edgeRules := make(map[pair]map[string]bool)

	for _, entry := range entries {
		if entry.File == "" {
			continue
		}
		from := moduleOf(entry.File)
		addModule(from)
		files[from][entry.File] = true

		for _, imp := range entry.Imports {
			if imp == "" {
				continue
			}
			resolved := ResolveImport(entry.File, imp)
			to := moduleOf(resolved)
			if to == from {
				continue
			}
			addModule(to)

			key := pair{from, to}
			edgeImports[key] = append(edgeImports[key], ImportRef{Source: entry.File, Target: imp})
			for id := range violated[pair{entry.File, resolved}] {
				if edgeRules[key] == nil {
					edgeRules[key] = make(map[string]bool)
				}
				edgeRules[key][id] = true
			}
		}
	}

	counts := make(map[string]int)
	for key, ids := range violated {
		counts[moduleOf(key.a)] += len(ids)
	}

	g := &Graph{Modules: make([]Module, 0, len(files)), Edges: make([]Edge, 0, len(edgeImports))}
	for id, set := range files {
		m := Module{ID: id, Files: sortedKeys(set), Violations: counts[id]}
		m.FileCount = len(m.Files)
		g.Modules = append(g.Modules, m)
	}
	sort.Slice(g.Modules, func(i, j int) bool { return g.Modules[i].ID < g.Modules[j].ID })

	for key, refs := range edgeImports {
		ids := sortedKeys(edgeRules[key])
		g.Edges = append(g.Edges, Edge{
			From:      key.a,
			To:        key.b,
			Imports:   refs,
			Violation: len(ids) > 0,
			RuleIDs:   ids,
		})
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].From != g.Edges[j].From {
			return g.Edges[i].From < g.Edges[j].From
		}
		return g.Edges[i].To < g.Edges[j].To
	})
	return g
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Collect extracts the imports of files (repo-relative) with up to workers
// files read at once. Unreadable files are left out.
func Collect(ctx context.Context, repoRoot string, files []string, workers int) ([]FileImports, error) {
	if workers < 1 {
		workers = 1
	}
	out := make([]FileImports, len(files))
	keep := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(paths.JoinRepoPath(repoRoot, rel))
			if err != nil {
				return nil
			}
			targets := imports.Targets(imports.ExtractPath(rel, content))
			if targets == nil {
				targets = []string{}
			}
			out[i] = FileImports{File: rel, Imports: targets}
			keep[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kept := out[:0]
	for i, fi := range out {
		if keep[i] {
			kept = append(kept, fi)
		}
	}
	return kept, nil
}
