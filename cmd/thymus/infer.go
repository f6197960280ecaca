package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"thymus/internal/graph"
	"thymus/internal/rulestore"
)

var (
	inferMinConfidence float64
	inferFormat        string
	inferOutput        string
)

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Propose boundary rules from the current dependency graph",
	Long: `Propose boundary rules the project already satisfies, derived from the shape
of its module graph. The output is an invariants document for review; copy
the rules you want to keep into .thymus/invariants.yml.

Examples:
  thymus infer
  thymus infer --min-confidence 95 --format toml -o inferred.toml`,
	RunE: runInfer,
}

func init() {
	inferCmd.Flags().Float64Var(&inferMinConfidence, "min-confidence", 0, "Minimum confidence in percent (default from config)")
	inferCmd.Flags().StringVarP(&inferFormat, "format", "f", "yaml", "Output format: yaml, toml")
	inferCmd.Flags().StringVarP(&inferOutput, "output", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(inferCmd)
}

func runInfer(cmd *cobra.Command, args []string) error {
	format, err := rulestore.ParseFormat(inferFormat)
	if err != nil {
		return err
	}

	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.close()

	minConf := inferMinConfidence
	if !cmd.Flags().Changed("min-confidence") {
		minConf = float64(p.cfg.Graph.MinConfidence)
	}
	if minConf < 0 || minConf > 100 {
		return fmt.Errorf("--min-confidence must be between 0 and 100, got %g", minConf)
	}

	ctx, cancel := newContext()
	defer cancel()

	g, _, err := p.buildGraph(ctx, "")
	if err != nil {
		return err
	}
	infs := graph.Infer(g, minConf)
	p.logger.Info("rules inferred", "count", len(infs), "modules", len(g.Modules), "minConfidence", minConf)

	out := cmd.OutOrStdout()
	if inferOutput != "" {
		f, err := os.Create(inferOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := graph.WriteInferences(out, infs, minConf, format); err != nil {
		return err
	}
	if inferOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d rule(s) written to %s\n", len(infs), inferOutput)
	}
	return nil
}
