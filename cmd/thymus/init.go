package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"thymus/internal/config"
	"thymus/internal/paths"
	"thymus/internal/rulestore"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .thymus with a starter invariants file",
	Long: `Create the .thymus directory with a starter invariants file and the default
configuration. Existing files are kept unless --force is given.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot()
	if err != nil {
		return err
	}
	dir, err := paths.EnsureStateDir(root)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", paths.StateDirName, err)
	}
	out := cmd.OutOrStdout()

	cfg := config.DefaultConfig()
	rulesFile := paths.RulesPath(root, cfg.RulesFile)
	switch wrote, err := writeIfAbsent(rulesFile, []byte(rulestore.Starter), initForce); {
	case err != nil:
		return err
	case wrote:
		fmt.Fprintf(out, "Created %s\n", rulesFile)
	default:
		fmt.Fprintf(out, "Kept existing %s\n", rulesFile)
	}

	cfgFile := paths.ConfigPath(root)
	if _, err := os.Stat(cfgFile); err == nil && !initForce {
		fmt.Fprintf(out, "Kept existing %s\n", cfgFile)
	} else {
		if err := cfg.Save(root); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Fprintf(out, "Created %s\n", cfgFile)
	}

	fmt.Fprintf(out, "\nthymus initialized in %s\n", dir)
	fmt.Fprintln(out, "Next: edit the invariants, then run \"thymus scan --format human\"")
	return nil
}

// writeIfAbsent writes data to path unless it exists and force is false.
func writeIfAbsent(path string, data []byte, force bool) (bool, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, err
	}
	return true, nil
}
