package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"thymus/internal/watcher"
)

var watchDebounceMs int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-check files as they change",
	Long: `Watch the project and re-check changed files after a short quiet period.
Editing the invariants file reloads the rules and re-checks everything.
Stop with Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchDebounceMs, "debounce", watcher.DefaultConfig().DebounceMs, "Quiet period in milliseconds before checking")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	defer p.close()

	store := p.store()
	checker := watcher.NewChecker(p.root, store, p.scanner(), cmd.OutOrStdout(), p.logger)

	cfg := watcher.Config{DebounceMs: watchDebounceMs, IgnoreDirs: p.cfg.Scan.IgnoreDirs}
	w := watcher.New(p.root, cfg, p.logger, checker.Handle)
	w.AddFile(store.Path())

	ctx, cancel := newContext()
	defer cancel()

	fmt.Fprintf(cmd.ErrOrStderr(), "thymus: watching %s (Ctrl-C to stop)\n", p.root)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
