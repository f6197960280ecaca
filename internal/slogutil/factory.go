package slogutil

import (
	"io"
	"log/slog"

	"thymus/internal/config"
	"thymus/internal/paths"
)

// LoggerFactory builds the CLI logger. Console output goes to stderr at the
// CLI level; when logging.file is enabled, records are also appended to
// .thymus/logs/thymus.log at the configured level.
type LoggerFactory struct {
	repoRoot string
	config   *config.Config
	cliLevel slog.Level
	cliSet   bool
	closers  []io.Closer
}

// NewLoggerFactory creates a factory. cfg may be nil.
func NewLoggerFactory(repoRoot string, cfg *config.Config) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{repoRoot: repoRoot, config: cfg}
}

// WithCLILevel overrides the configured console level.
func (f *LoggerFactory) WithCLILevel(level slog.Level) *LoggerFactory {
	f.cliLevel, f.cliSet = level, true
	return f
}

// Logger returns a logger writing to console and, if enabled, the log file.
// A log file that cannot be opened is reported on the console and skipped.
func (f *LoggerFactory) Logger(console io.Writer) *slog.Logger {
	consoleHandler := NewHandler(console, &HandlerOptions{Level: f.consoleLevel(), OmitTime: true})
	if !f.config.Logging.File || f.repoRoot == "" {
		return slog.New(consoleHandler)
	}

	fileLevel := LevelFromString(f.config.Logging.Level)
	if f.cliSet && f.cliLevel < fileLevel {
		fileLevel = f.cliLevel
	}
	fileLogger, closer, err := NewRotatingLogger(paths.LogPath(f.repoRoot), fileLevel,
		f.config.Logging.MaxSize, f.config.Logging.MaxBackups)
	if err != nil {
		logger := slog.New(consoleHandler)
		logger.Warn("log file disabled", "path", paths.LogPath(f.repoRoot), "error", err)
		return logger
	}
	f.closers = append(f.closers, closer)
	return slog.New(NewTeeHandler(consoleHandler, fileLogger.Handler()))
}

func (f *LoggerFactory) consoleLevel() slog.Level {
	if f.cliSet {
		return f.cliLevel
	}
	if f.config.Logging.Level != "" {
		return LevelFromString(f.config.Logging.Level)
	}
	return slog.LevelWarn
}

// Close closes every log file opened by the factory.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
