package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"thymus/internal/diff"
	"thymus/internal/graph"
	"thymus/internal/modules"
	"thymus/internal/paths"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Record the project's module structure",
	Long: `Record the current modules, their sizes and dependencies in
.thymus/baseline.json. Session status reports use it to describe the
project.`,
	RunE: runBaseline,
}

func init() {
	rootCmd.AddCommand(baselineCmd)
}

func runBaseline(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.close()

	ctx, cancel := newContext()
	defer cancel()

	g, files, err := p.buildGraph(ctx, "")
	if err != nil {
		return err
	}

	invariants := 0
	if loaded, err := p.loadRules(); err == nil {
		invariants = loaded.Set.Len()
	}

	b := &modules.Baseline{
		Version:    1,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
		Commit:     diff.HeadCommit(ctx, p.root),
		Files:      len(files),
		Invariants: invariants,
		Modules:    baselineModules(g),
	}
	path := paths.BaselinePath(p.root)
	if err := b.Write(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Baseline written to %s (%d module(s), %d file(s), %d invariant(s))\n",
		path, len(b.Modules), b.Files, b.Invariants)
	return nil
}

// baselineModules lists each module with the modules it imports.
func baselineModules(g *graph.Graph) []modules.BaselineModule {
	deps := make(map[string][]string)
	for _, e := range g.Edges {
		deps[e.From] = append(deps[e.From], e.To)
	}
	out := make([]modules.BaselineModule, 0, len(g.Modules))
	for _, m := range g.Modules {
		out = append(out, modules.BaselineModule{ID: m.ID, Files: m.FileCount, DependsOn: deps[m.ID]})
	}
	return out
}
