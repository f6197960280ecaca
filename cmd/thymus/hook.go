package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"thymus/internal/hook"
	"thymus/internal/storage"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Agent hook entry points",
	Long: `Entry points for coding-agent hooks. Each reads the hook JSON on stdin and
prints at most one {"systemMessage": ...} object. Hooks always exit 0: a
broken hook must never block the agent, so failures are only logged.

  thymus hook edit      after a file was written or edited
  thymus hook session   when the agent session ends
  thymus hook status    when a session starts`,
}

var hookEditCmd = &cobra.Command{
	Use:   "edit [file]",
	Short: "Check the file named by the hook input (or the argument)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHook(cmd, func(ctx context.Context, r *hook.Runner, in *hook.Input) (hook.Output, error) {
			if len(args) == 1 {
				in.ToolInput.FilePath = args[0]
			}
			return r.Edit(ctx, in)
		})
	},
}

var hookSessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Summarize the session's violations and record them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHook(cmd, func(ctx context.Context, r *hook.Runner, in *hook.Input) (hook.Output, error) {
			return r.SessionReport(ctx, in)
		})
	},
}

var hookStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the session-start status line",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHook(cmd, func(ctx context.Context, r *hook.Runner, _ *hook.Input) (hook.Output, error) {
			return r.Status(ctx)
		})
	},
}

func init() {
	hookCmd.AddCommand(hookEditCmd, hookSessionCmd, hookStatusCmd)
	rootCmd.AddCommand(hookCmd)
}

type hookFunc func(ctx context.Context, r *hook.Runner, in *hook.Input) (hook.Output, error)

// runHook wires a hook to stdin and stdout. It never returns an error.
func runHook(cmd *cobra.Command, fn hookFunc) error {
	p, err := openProject()
	if err != nil {
		return nil
	}
	defer p.close()

	in, err := hook.ReadInput(cmd.InOrStdin())
	if err != nil {
		p.logger.Warn("hook input ignored", "error", err)
		in = &hook.Input{}
	}

	var db *storage.DB
	if d, err := p.openDB(); err != nil {
		p.logger.Warn("session cache unavailable", "error", err)
	} else {
		db = d
		defer db.Close()
	}

	ctx, cancel := newContext()
	defer cancel()

	runner := hook.NewRunner(p.root, p.cfg, p.store(), db, p.logger)
	out, err := fn(ctx, runner, in)
	if err != nil {
		p.logger.Warn("hook failed", "hook", cmd.Name(), "error", err)
		return nil
	}
	if err := out.Write(cmd.OutOrStdout()); err != nil && err != io.ErrClosedPipe {
		p.logger.Warn("hook output failed", "error", err)
	}
	return nil
}
