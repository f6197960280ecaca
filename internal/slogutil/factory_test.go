package slogutil

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"

	"thymus/internal/config"
	"thymus/internal/paths"
)

func TestLoggerFactory_ConsoleOnly(t *testing.T) {
	var stderr bytes.Buffer
	f := NewLoggerFactory(t.TempDir(), nil)
	defer f.Close()

	logger := f.Logger(&stderr)
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(stderr.String(), "hidden") {
		t.Error("default console level should be warn")
	}
	if !strings.Contains(stderr.String(), "[warn] shown") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestLoggerFactory_CLILevelWins(t *testing.T) {
	var stderr bytes.Buffer
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "error"

	f := NewLoggerFactory("", cfg).WithCLILevel(slog.LevelDebug)
	f.Logger(&stderr).Debug("detail")

	if !strings.Contains(stderr.String(), "detail") {
		t.Errorf("stderr = %q, want debug record", stderr.String())
	}
}

func TestLoggerFactory_File(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Logging.File = true
	cfg.Logging.Level = "info"

	var stderr bytes.Buffer
	f := NewLoggerFactory(root, cfg).WithCLILevel(LevelSilent)
	logger := f.Logger(&stderr)
	logger.Info("scan finished", "violations", 2)
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if stderr.Len() != 0 {
		t.Errorf("quiet console wrote %q", stderr.String())
	}
	data, err := os.ReadFile(paths.LogPath(root))
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	if !strings.Contains(string(data), "[info] scan finished | violations=2") {
		t.Errorf("log file = %q", data)
	}
}
