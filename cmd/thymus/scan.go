package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"thymus/internal/history"
	"thymus/internal/report"
	"thymus/internal/rules"
	"thymus/internal/scanner"
	"thymus/internal/version"
)

// historyWindow is how many entries feed the HTML trend.
const historyWindow = 30

var (
	scanDiff   bool
	scanBase   string
	scanScope  string
	scanFormat string
	scanFailOn string
	scanRecord bool
	scanOutput string

	checkFormat string
	checkFailOn string
)

var scanCmd = &cobra.Command{
	Use:   "scan [files...]",
	Short: "Check the whole project against its invariants",
	Long: `Check every source file of the project (or the given files) against the
invariants in .thymus/invariants.yml.

Examples:
  # Scan the project, JSON output
  thymus scan

  # Only files changed against main, as SARIF for code scanning
  thymus scan --diff --base main --format sarif -o thymus.sarif

  # Fail the build on any error-severity violation and keep history
  thymus scan --fail-on error --record

  # Standalone HTML report
  thymus scan --format html -o report.html`,
	RunE: runScan,
}

var checkCmd = &cobra.Command{
	Use:   "check <files...>",
	Short: "Check specific files",
	Long: `Check the given files against the invariants. Exits 1 when a violation at or
above --fail-on is found.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	scanCmd.Flags().BoolVar(&scanDiff, "diff", false, "Only scan files changed against --base")
	scanCmd.Flags().StringVar(&scanBase, "base", "HEAD", "Git revision to diff against")
	scanCmd.Flags().StringVar(&scanScope, "scope", "", "Restrict the scan to a directory")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "json", "Output format: json, human, sarif, html")
	scanCmd.Flags().StringVar(&scanFailOn, "fail-on", "none", "Exit 1 on violations at or above: error, warning, info, none")
	scanCmd.Flags().BoolVar(&scanRecord, "record", false, "Append the result to the compliance history")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "Write the report to a file instead of stdout")
	rootCmd.AddCommand(scanCmd)

	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "human", "Output format: json, human, sarif")
	checkCmd.Flags().StringVar(&checkFailOn, "fail-on", "error", "Exit 1 on violations at or above: error, warning, info, none")
	rootCmd.AddCommand(checkCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	opts := scanner.Options{Scope: scanScope, Files: args, Diff: scanDiff, DiffBase: scanBase}
	return scanAndReport(cmd, opts, scanFormat, scanFailOn, scanRecord, scanOutput)
}

func runCheck(cmd *cobra.Command, args []string) error {
	return scanAndReport(cmd, scanner.Options{Files: args}, checkFormat, checkFailOn, false, "")
}

func scanAndReport(cmd *cobra.Command, opts scanner.Options, formatFlag, failOnFlag string, record bool, output string) error {
	format, err := report.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	failOn, err := parseFailOn(failOnFlag)
	if err != nil {
		return err
	}

	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.close()

	loaded, err := p.loadRules()
	if err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()

	result, err := p.scanner().Scan(ctx, loaded.Set, opts)
	if err != nil {
		return err
	}

	var entries []history.Entry
	if record || format == report.FormatHTML {
		db, err := p.openDB()
		switch {
		case err != nil && record:
			return err
		case err != nil:
			p.logger.Warn("history unavailable", "error", err)
		default:
			defer db.Close()
			recorder := history.NewRecorder(p.root, db, p.cfg.History.MaxEntries, p.logger)
			if record {
				if _, err := recorder.Record(ctx, result.RunID, result.FilesChecked, result.Violations); err != nil {
					return fmt.Errorf("failed to record history: %w", err)
				}
			}
			if entries, err = recorder.Entries(historyWindow); err != nil {
				p.logger.Warn("history unreadable", "error", err)
			}
		}
	}

	out := cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	rep := &report.Report{
		Result:   result,
		Rules:    loaded.Set,
		History:  entries,
		ModuleOf: p.moduleResolver(),
		Version:  version.Version,
		RepoRoot: p.root,
	}
	if err := report.Write(out, rep, format); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", output)
	}

	if failOn != "" && reaches(result.Violations, failOn) {
		return &exitError{code: 1}
	}
	return nil
}

// parseFailOn accepts a severity or "none" (empty severity).
func parseFailOn(s string) (rules.Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "never":
		return "", nil
	}
	return rules.ParseSeverity(s)
}

// reaches reports whether any violation is at least min.
func reaches(vs []rules.Violation, min rules.Severity) bool {
	for _, v := range vs {
		if v.Severity.AtLeast(min) {
			return true
		}
	}
	return false
}

// writeLines writes one line per element.
func writeLines(w io.Writer, lines []string) error {
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
