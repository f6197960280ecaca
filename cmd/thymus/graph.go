package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"thymus/internal/graph"
	"thymus/internal/modules"
	"thymus/internal/rules"
	"thymus/internal/scanner"
)

var (
	graphFormat string
	graphScope  string
	graphFocus  string
	graphRank   bool
	graphTop    int
	graphOutput string
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Build the module dependency graph",
	Long: `Build the module dependency graph from the imports of every source file.
Edges carrying an import that violates an invariant are marked.

Examples:
  thymus graph --format dot | dot -Tsvg > graph.svg
  thymus graph --format mermaid
  thymus graph --focus src/auth          # modules src/auth depends on
  thymus graph --rank                    # most depended-on modules`,
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().StringVarP(&graphFormat, "format", "f", "json", "Output format: json, dot, mermaid")
	graphCmd.Flags().StringVar(&graphScope, "scope", "", "Restrict the graph to a directory")
	graphCmd.Flags().StringVar(&graphFocus, "focus", "", "List the modules a module depends on, ranked")
	graphCmd.Flags().BoolVar(&graphRank, "rank", false, "List modules by PageRank")
	graphCmd.Flags().IntVar(&graphTop, "top", 10, "Number of modules listed by --focus and --rank")
	graphCmd.Flags().StringVarP(&graphOutput, "output", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(graphCmd)
}

// moduleResolver returns the module mapping for the project: the declared
// modules when a declaration file exists, the default mapping otherwise.
func (p *project) moduleResolver() func(string) string {
	decl, err := modules.Load(p.root, p.cfg.Graph.ModulesFile)
	if err != nil {
		p.logger.Warn("module declarations ignored", "error", err)
		return modules.DefaultModuleOf
	}
	if decl == nil {
		return modules.DefaultModuleOf
	}
	return modules.NewResolver(decl).ModuleOf
}

// buildGraph discovers the source files under scope, collects their imports
// and marks edges with the violations of the current invariants. A missing
// or broken invariants file yields an unmarked graph.
func (p *project) buildGraph(ctx context.Context, scope string) (*graph.Graph, []string, error) {
	sc := p.scanner()
	files, err := sc.Discover(ctx, scope)
	if err != nil {
		return nil, nil, err
	}
	entries, err := graph.Collect(ctx, p.root, files, p.cfg.Scan.Workers)
	if err != nil {
		return nil, nil, err
	}

	var violations []rules.Violation
	if loaded, err := p.loadRules(); err != nil {
		p.logger.Info("graph built without violations", "error", err)
	} else {
		res, err := sc.Scan(ctx, loaded.Set, scanner.Options{Files: files})
		if err != nil {
			return nil, nil, err
		}
		violations = res.Violations
	}

	return graph.Build(entries, violations, p.moduleResolver()), files, nil
}

func runGraph(cmd *cobra.Command, args []string) error {
	format, err := graph.ParseFormat(graphFormat)
	if err != nil {
		return err
	}

	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.close()

	ctx, cancel := newContext()
	defer cancel()

	g, _, err := p.buildGraph(ctx, graphScope)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if graphOutput != "" {
		f, err := os.Create(graphOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	opts := graph.DefaultRankOptions()
	opts.TopK = graphTop
	switch {
	case graphFocus != "":
		related, err := g.Related(ctx, graphFocus, opts)
		if err != nil {
			return err
		}
		if format == graph.FormatJSON {
			if related == nil {
				related = []graph.Related{}
			}
			return writeJSON(out, related)
		}
		if len(related) == 0 {
			fmt.Fprintf(out, "%s depends on no other module\n", graphFocus)
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "MODULE\tSCORE\tPATH")
		for _, r := range related {
			fmt.Fprintf(tw, "%s\t%.4f\t%v\n", r.Module, r.Score, r.Path)
		}
		return tw.Flush()
	case graphRank:
		g.Rank(opts)
		ranked := rankedModules(g, graphTop)
		if format == graph.FormatJSON {
			return writeJSON(out, ranked)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "MODULE\tRANK\tFILES\tVIOLATIONS")
		for _, m := range ranked {
			fmt.Fprintf(tw, "%s\t%.4f\t%d\t%d\n", m.ID, m.Rank, m.FileCount, m.Violations)
		}
		return tw.Flush()
	}
	return graph.Render(out, g, format)
}

// rankedModules returns up to top modules by rank, highest first.
func rankedModules(g *graph.Graph, top int) []graph.Module {
	ranked := append([]graph.Module(nil), g.Modules...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Rank != ranked[j].Rank {
			return ranked[i].Rank > ranked[j].Rank
		}
		return ranked[i].ID < ranked[j].ID
	})
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}
	if ranked == nil {
		ranked = []graph.Module{}
	}
	return ranked
}
