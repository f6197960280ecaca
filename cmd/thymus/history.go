package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"thymus/internal/history"
	"thymus/internal/rules"
)

var (
	historyLimit     int
	historyFormat    string
	historyWindowArg int
	historyOutput    string
	historyThreshold int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the compliance history",
	Long: `Inspect the compliance history recorded by "thymus scan --record" and by
agent sessions.`,
}

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List recorded entries, oldest first",
	RunE:  runHistoryShow,
}

var historyTrendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show how compliance moved over the last entries",
	RunE:  runHistoryTrend,
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export history as JSON Lines",
	RunE:  runHistoryExport,
}

var historyDiffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare the violations of the two newest entries",
	RunE:  runHistoryDiff,
}

func init() {
	historyShowCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries (0 for all)")
	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", "human", "Output format: human, json")
	historyTrendCmd.Flags().IntVarP(&historyWindowArg, "window", "w", 10, "Number of entries in the trend window")
	historyTrendCmd.Flags().IntVar(&historyThreshold, "recurring", 3, "Report rules violated at least this often in the window")
	historyTrendCmd.Flags().StringVarP(&historyFormat, "format", "f", "human", "Output format: human, json")
	historyExportCmd.Flags().StringVarP(&historyOutput, "output", "o", "", "Write to a file instead of stdout")
	historyDiffCmd.Flags().StringVarP(&historyFormat, "format", "f", "human", "Output format: human, json")
	historyCmd.AddCommand(historyShowCmd, historyTrendCmd, historyExportCmd, historyDiffCmd)
	rootCmd.AddCommand(historyCmd)
}

// withRecorder opens the history database and runs fn with a recorder.
func withRecorder(fn func(r *history.Recorder) error) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.close()

	db, err := p.openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(history.NewRecorder(p.root, db, p.cfg.History.MaxEntries, p.logger))
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	return withRecorder(func(r *history.Recorder) error {
		entries, err := r.Entries(historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch historyFormat {
		case "json":
			if entries == nil {
				entries = []history.Entry{}
			}
			return writeJSON(out, entries)
		case "human", "":
			if len(entries) == 0 {
				fmt.Fprintln(out, "No history recorded yet (run \"thymus scan --record\")")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tCOMMIT\tFILES\tERRORS\tWARNINGS\tINFO\tCOMPLIANCE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%.1f%%\n",
					e.Timestamp.Format("2006-01-02 15:04"), shortCommit(e.Commit), e.FilesChecked,
					e.Violations.Error, e.Violations.Warn, e.Violations.Info, e.ComplianceScore)
			}
			return tw.Flush()
		}
		return unsupported("format", historyFormat, "human", "json")
	})
}

// trendResponse is the JSON output of history trend.
type trendResponse struct {
	history.Trend
	Sparkline string              `json:"sparkline"`
	Recurring []history.RuleCount `json:"recurring"`
}

func runHistoryTrend(cmd *cobra.Command, args []string) error {
	return withRecorder(func(r *history.Recorder) error {
		entries, err := r.Entries(historyWindowArg)
		if err != nil {
			return err
		}
		resp := trendResponse{
			Trend:     history.ComputeTrend(entries),
			Recurring: history.Recurring(entries, historyThreshold),
		}
		resp.Sparkline = history.Sparkline(resp.Scores)
		if resp.Recurring == nil {
			resp.Recurring = []history.RuleCount{}
		}

		out := cmd.OutOrStdout()
		switch historyFormat {
		case "json":
			return writeJSON(out, resp)
		case "human", "":
			writeTrend(out, resp)
			return nil
		}
		return unsupported("format", historyFormat, "human", "json")
	})
}

func writeTrend(w io.Writer, t trendResponse) {
	if t.Entries == 0 {
		fmt.Fprintln(w, "No history recorded yet")
		return
	}
	fmt.Fprintf(w, "Compliance over %d run(s): %s\n", t.Entries, t.Sparkline)
	fmt.Fprintf(w, "  %.1f%% -> %.1f%% (%+.1f, %s)\n", t.First, t.Last, t.Delta, t.Direction)
	fmt.Fprintf(w, "  range %.1f%% .. %.1f%%\n", t.Min, t.Max)
	if len(t.Recurring) > 0 {
		fmt.Fprintln(w, "Recurring violations:")
		for _, rc := range t.Recurring {
			fmt.Fprintf(w, "  %-30s %d\n", rc.RuleID, rc.Count)
		}
	}
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	return withRecorder(func(r *history.Recorder) error {
		entries, err := r.Entries(0)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if historyOutput != "" {
			f, err := os.Create(historyOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		return history.ExportJSONL(out, entries)
	})
}

func runHistoryDiff(cmd *cobra.Command, args []string) error {
	return withRecorder(func(r *history.Recorder) error {
		d, err := r.DiffLatest()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch historyFormat {
		case "json":
			if d.New == nil {
				d.New = []rules.Violation{}
			}
			if d.Resolved == nil {
				d.Resolved = []rules.Violation{}
			}
			return writeJSON(out, d)
		case "human", "":
			fmt.Fprintf(out, "%s (%.1f%%) -> %s (%.1f%%)\n",
				shortCommit(d.From.Commit), d.From.ComplianceScore, shortCommit(d.To.Commit), d.To.ComplianceScore)
			writeViolationList(out, "New", d.New)
			writeViolationList(out, "Resolved", d.Resolved)
			return nil
		}
		return unsupported("format", historyFormat, "human", "json")
	})
}

func writeViolationList(w io.Writer, title string, vs []rules.Violation) {
	fmt.Fprintf(w, "%s: %d\n", title, len(vs))
	lines := make([]string, 0, len(vs))
	for _, v := range vs {
		loc := v.File
		if v.Line > 0 {
			loc = fmt.Sprintf("%s:%d", v.File, v.Line)
		}
		line := fmt.Sprintf("  %s [%s] %s", loc, v.RuleID, v.Message)
		if d := v.Detail(); d != "" {
			line += " " + d
		}
		lines = append(lines, line)
	}
	_ = writeLines(w, lines)
}

func shortCommit(c string) string {
	if c == "" {
		return "-"
	}
	if len(c) > 7 {
		return c[:7]
	}
	return c
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
