package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"thymus/internal/rules"
	"thymus/internal/rulestore"
)

var rulesFormat string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the invariants file",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the invariants file and report every invalid rule",
	Long: `Load the invariants file, validate it against the document schema and
compile every rule. Exits 1 when the file is malformed or any rule is invalid.`,
	RunE: runRulesValidate,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active invariants",
	RunE:  runRulesList,
}

func init() {
	rulesListCmd.Flags().StringVarP(&rulesFormat, "format", "f", "human", "Output format: human, json")
	rulesCmd.AddCommand(rulesValidateCmd, rulesListCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.close()

	path, err := p.rulesPath()
	if err != nil {
		return err
	}
	res, err := rulestore.Load(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(out, "invalid: %v\n", e)
	}
	fmt.Fprintf(out, "%s: %d valid rule(s), %d invalid\n", path, res.Set.Len(), len(res.Errors))
	if len(res.Errors) > 0 {
		return &exitError{code: 1}
	}
	return nil
}

func runRulesList(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.close()

	res, err := p.loadRules()
	if err != nil {
		return err
	}
	list := res.Set.Rules()
	if list == nil {
		list = []rules.Rule{}
	}

	out := cmd.OutOrStdout()
	switch rulesFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	case "human", "":
		if len(list) == 0 {
			fmt.Fprintln(out, "No invariants defined")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tSEVERITY\tSCOPE\tDESCRIPTION")
		for _, r := range list {
			scope := r.ScopeGlob
			if scope == "" {
				scope = "**"
			}
			if len(r.ScopeExclude) > 0 {
				scope += " !" + strings.Join(r.ScopeExclude, " !")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Type, r.Severity, scope, r.Description)
		}
		return tw.Flush()
	}
	return unsupported("format", rulesFormat, "human", "json")
}
