package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"thymus/internal/config"
	"thymus/internal/paths"
	"thymus/internal/rules"
	"thymus/internal/rulestore"
	"thymus/internal/scanner"
	"thymus/internal/slogutil"
	"thymus/internal/storage"
	"thymus/internal/version"
)

var (
	// rootFlag overrides project root discovery
	rootFlag  string
	verbosity int
	quiet     bool
)

var rootCmd = &cobra.Command{
	Use:   "thymus",
	Short: "thymus - architectural invariant enforcement",
	Long: `thymus checks source files against the architectural invariants declared in
.thymus/invariants.yml: import boundaries, forbidden patterns, test colocation
and dependency restrictions. It runs per edited file (agent hooks, watch mode)
or across the project (scan), and keeps a compliance history.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("thymus version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Project root (default: nearest directory with .thymus or .git)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
}

// project bundles what most commands need: the root, its configuration
// and a logger writing to stderr.
type project struct {
	root    string
	cfg     *config.Config
	logger  *slog.Logger
	factory *slogutil.LoggerFactory
}

// openProject resolves the project root, loads its configuration and
// builds the logger. An unreadable config falls back to the defaults.
func openProject() (*project, error) {
	root, err := resolveRoot()
	if err != nil {
		return nil, err
	}

	cfg, cfgErr := config.LoadConfig(root)
	if cfgErr != nil {
		cfg = config.DefaultConfig()
	}
	factory := slogutil.NewLoggerFactory(root, cfg)
	if verbosity > 0 || quiet {
		factory = factory.WithCLILevel(slogutil.LevelFromVerbosity(verbosity, quiet))
	}
	logger := factory.Logger(os.Stderr)
	if cfgErr != nil {
		logger.Warn("Failed to load config, using defaults", "error", cfgErr)
	}

	return &project{root: root, cfg: cfg, logger: logger, factory: factory}, nil
}

func (p *project) close() {
	_ = p.factory.Close()
}

// resolveRoot returns --root, or the nearest project root above the working
// directory, or the working directory itself.
func resolveRoot() (string, error) {
	if rootFlag != "" {
		return filepath.Abs(rootFlag)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if root, err := paths.FindProjectRoot(cwd); err == nil {
		return root, nil
	}
	return cwd, nil
}

// rulesPath locates the invariants file. The default name also finds the
// other default spellings (.yaml, .toml).
func (p *project) rulesPath() (string, error) {
	name := p.cfg.RulesFile
	if name == config.DefaultConfig().RulesFile {
		name = ""
	}
	return rulestore.Locate(p.root, name)
}

// loadRules loads and compiles the invariants file. Invalid rules are
// logged and left out.
func (p *project) loadRules() (*rulestore.Result, error) {
	path, err := p.rulesPath()
	if err != nil {
		return nil, err
	}
	res, err := rulestore.Load(path)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		p.logger.Warn(w)
	}
	for _, e := range res.Errors {
		p.logger.Warn("invalid rule skipped", "error", e)
	}
	return res, nil
}

// store returns a caching rule store for the invariants file. A missing
// file is not an error here; the store reports it on Get.
func (p *project) store() *rulestore.Store {
	path, err := p.rulesPath()
	if err != nil {
		name := p.cfg.RulesFile
		if name == "" {
			name = rulestore.DefaultFiles[0]
		}
		path = paths.RulesPath(p.root, name)
	}
	return rulestore.NewStore(path, p.logger)
}

func (p *project) evaluator() *rules.Evaluator {
	return rules.NewEvaluator(p.root, rules.WithLogger(p.logger))
}

func (p *project) scanner() *scanner.Scanner {
	return scanner.New(p.root, p.cfg.Scan, p.evaluator(), p.logger)
}

func (p *project) openDB() (*storage.DB, error) {
	return storage.Open(p.root, p.logger)
}

// newContext returns a context cancelled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func unsupported(kind, value string, allowed ...string) error {
	return fmt.Errorf("unsupported %s %q (use %v)", kind, value, allowed)
}
