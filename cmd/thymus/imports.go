package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"thymus/internal/imports"
)

var importsFormat string

var importsCmd = &cobra.Command{
	Use:   "imports <file>",
	Short: "List the imports found in a source file",
	Long: `Print the import targets extracted from a file, ignoring imports that only
appear inside comments or string literals.

Examples:
  thymus imports src/routes/users.ts
  thymus imports --format human app/main.py`,
	Args: cobra.ExactArgs(1),
	RunE: runImports,
}

func init() {
	importsCmd.Flags().StringVarP(&importsFormat, "format", "f", "json", "Output format: json, human")
	rootCmd.AddCommand(importsCmd)
}

// importsResponse is the JSON output of the imports command.
type importsResponse struct {
	File     string           `json:"file"`
	Language string           `json:"language,omitempty"`
	Imports  []imports.Record `json:"imports"`
}

func runImports(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	resp := importsResponse{File: filepath.ToSlash(path), Imports: imports.ExtractFile(path)}
	if lang := imports.Lookup(path); lang != nil {
		resp.Language = lang.Name
	}
	if resp.Imports == nil {
		resp.Imports = []imports.Record{}
	}

	out := cmd.OutOrStdout()
	switch importsFormat {
	case "human":
		if resp.Language == "" {
			fmt.Fprintf(out, "%s: unsupported language\n", resp.File)
			return nil
		}
		fmt.Fprintf(out, "%s (%s): %d import(s)\n", resp.File, resp.Language, len(resp.Imports))
		for _, r := range resp.Imports {
			fmt.Fprintf(out, "  %4d  %-10s %s\n", r.Line, r.Kind, r.Target)
		}
		return nil
	case "json", "":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	return unsupported("format", importsFormat, "json", "human")
}
