package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"thymus/internal/modules"
	"thymus/internal/rulestore"
)

var (
	modulesForce  bool
	modulesFormat string
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Manage module declarations",
	Long: `Manage MODULES.toml, the declaration of the project's modules and their
boundaries. Declared modules replace the default directory mapping in
graphs and reports.`,
}

var modulesInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Detect modules and write MODULES.toml",
	RunE:  runModulesInit,
}

var modulesRulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the boundary rules implied by MODULES.toml",
	RunE:  runModulesRules,
}

func init() {
	modulesInitCmd.Flags().BoolVar(&modulesForce, "force", false, "Overwrite an existing declaration file")
	modulesRulesCmd.Flags().StringVarP(&modulesFormat, "format", "f", "yaml", "Output format: yaml, toml")
	modulesCmd.AddCommand(modulesInitCmd, modulesRulesCmd)
	rootCmd.AddCommand(modulesCmd)
}

func (p *project) modulesPath() string {
	name := p.cfg.Graph.ModulesFile
	if name == "" {
		name = modules.DeclarationFile
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.root, name)
}

func runModulesInit(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.close()

	target := p.modulesPath()
	if _, err := os.Stat(target); err == nil && !modulesForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", target)
	}

	ctx, cancel := newContext()
	defer cancel()

	files, err := p.scanner().Discover(ctx, "")
	if err != nil {
		return err
	}
	decl := modules.Detect(p.root, files)
	if err := decl.Write(target); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Detected %d module(s) in %d file(s), written to %s\n", len(decl.Modules), len(files), target)
	return nil
}

func runModulesRules(cmd *cobra.Command, args []string) error {
	format, err := rulestore.ParseFormat(modulesFormat)
	if err != nil {
		return err
	}

	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.close()

	decl, err := modules.Load(p.root, p.cfg.Graph.ModulesFile)
	if err != nil {
		return err
	}
	if decl == nil {
		return fmt.Errorf("%s not found (run \"thymus modules init\")", p.modulesPath())
	}

	derived, errs := modules.BoundaryRules(decl)
	for _, e := range errs {
		p.logger.Warn("boundary skipped", "error", e)
	}
	doc := &rulestore.Document{Version: 1, Invariants: make([]rulestore.RuleSpec, 0, len(derived))}
	for _, r := range derived {
		doc.Invariants = append(doc.Invariants, rulestore.SpecFromRule(r))
	}
	return rulestore.Encode(cmd.OutOrStdout(), doc, format,
		"Boundary rules derived from "+filepath.Base(p.modulesPath()))
}
