package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.RulesFile != "invariants.yml" {
		t.Errorf("RulesFile = %q, want invariants.yml", cfg.RulesFile)
	}
	if cfg.Hook.MaxFileSizeBytes != 512000 {
		t.Errorf("Hook.MaxFileSizeBytes = %d, want 512000", cfg.Hook.MaxFileSizeBytes)
	}
	if cfg.History.MaxEntries != 500 {
		t.Errorf("History.MaxEntries = %d, want 500", cfg.History.MaxEntries)
	}
	if cfg.Graph.MinConfidence != 90 {
		t.Errorf("Graph.MinConfidence = %d, want 90", cfg.Graph.MinConfidence)
	}
	if len(cfg.Scan.IgnoreDirs) != len(DefaultIgnoreDirs) {
		t.Errorf("len(Scan.IgnoreDirs) = %d, want %d", len(cfg.Scan.IgnoreDirs), len(DefaultIgnoreDirs))
	}

	// Mutating one default must not leak into the next.
	cfg.Scan.IgnoreDirs[0] = "changed"
	if DefaultConfig().Scan.IgnoreDirs[0] != "node_modules" {
		t.Error("DefaultConfig shares the ignore list")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"defaults", func(*Config) {}, ""},
		{"version 0", func(c *Config) { c.Version = 0 }, "version"},
		{"version 2", func(c *Config) { c.Version = 2 }, "version"},
		{"no workers", func(c *Config) { c.Scan.Workers = 0 }, "scan.workers"},
		{"scan size", func(c *Config) { c.Scan.MaxFileSizeBytes = 0 }, "scan.maxFileSizeBytes"},
		{"hook size", func(c *Config) { c.Hook.MaxFileSizeBytes = -1 }, "hook.maxFileSizeBytes"},
		{"history", func(c *Config) { c.History.MaxEntries = 0 }, "history.maxEntries"},
		{"confidence", func(c *Config) { c.Graph.MinConfidence = 101 }, "graph.minConfidence"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"warning alias", func(c *Config) { c.Logging.Level = "WARNING" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			ce, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("Validate() error type = %T, want *ConfigError", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ce.Field, tt.wantField)
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "version", Message: "unsupported config version 99"}

	want := "config error in field 'version': unsupported config version 99"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestLoadConfig_Default(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d (default)", cfg.Version, CurrentVersion)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, ".thymus")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	content := `{
  "version": 1,
  "rulesFile": "rules.toml",
  "scan": {"workers": 2, "ignoreDirs": ["gen"]},
  "logging": {"level": "debug", "file": true}
}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.RulesFile != "rules.toml" {
		t.Errorf("RulesFile = %q, want rules.toml", cfg.RulesFile)
	}
	if cfg.Scan.Workers != 2 {
		t.Errorf("Scan.Workers = %d, want 2", cfg.Scan.Workers)
	}
	if len(cfg.Scan.IgnoreDirs) != 1 || cfg.Scan.IgnoreDirs[0] != "gen" {
		t.Errorf("Scan.IgnoreDirs = %v, want [gen]", cfg.Scan.IgnoreDirs)
	}
	if !cfg.Logging.File || cfg.Logging.Level != "debug" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	// Unset keys keep their defaults.
	if cfg.History.MaxEntries != 500 {
		t.Errorf("History.MaxEntries = %d, want 500", cfg.History.MaxEntries)
	}
	if cfg.Hook.MaxFileSizeBytes != 512000 {
		t.Errorf("Hook.MaxFileSizeBytes = %d, want 512000", cfg.Hook.MaxFileSizeBytes)
	}
}

func TestLoadConfigFromPath_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfigFromPath(path); err == nil {
		t.Error("LoadConfigFromPath() should fail on malformed JSON")
	}
}

func TestConfig_Save(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.RulesFile = "custom.yml"
	cfg.Graph.MinConfidence = 75

	if err := cfg.Save(tmpDir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.RulesFile != "custom.yml" {
		t.Errorf("RulesFile = %q, want custom.yml", loaded.RulesFile)
	}
	if loaded.Graph.MinConfidence != 75 {
		t.Errorf("Graph.MinConfidence = %d, want 75", loaded.Graph.MinConfidence)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config, overrides []EnvOverride)
	}{
		{
			name:    "logging level override",
			envVars: map[string]string{"THYMUS_LOG_LEVEL": "debug"},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
				}
				if len(overrides) != 1 || overrides[0].Path != "logging.level" {
					t.Errorf("overrides = %+v", overrides)
				}
			},
		},
		{
			name: "multiple overrides",
			envVars: map[string]string{
				"THYMUS_SCAN_WORKERS":       "3",
				"THYMUS_HOOK_SESSION_CACHE": "false",
				"THYMUS_RULES_FILE":         "x.toml",
			},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				if cfg.Scan.Workers != 3 {
					t.Errorf("Scan.Workers = %d, want 3", cfg.Scan.Workers)
				}
				if cfg.Hook.SessionCache {
					t.Error("Hook.SessionCache should be false")
				}
				if cfg.RulesFile != "x.toml" {
					t.Errorf("RulesFile = %q", cfg.RulesFile)
				}
				if len(overrides) != 3 {
					t.Errorf("len(overrides) = %d, want 3", len(overrides))
				}
			},
		},
		{
			name:    "invalid int ignored",
			envVars: map[string]string{"THYMUS_HISTORY_MAX_ENTRIES": "lots"},
			validate: func(t *testing.T, cfg *Config, overrides []EnvOverride) {
				if cfg.History.MaxEntries != 500 {
					t.Errorf("History.MaxEntries = %d, want 500 (default)", cfg.History.MaxEntries)
				}
				if len(overrides) != 0 {
					t.Errorf("len(overrides) = %d, want 0", len(overrides))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			cfg := DefaultConfig()
			overrides := ApplyEnvOverrides(cfg)
			tt.validate(t, cfg, overrides)
		})
	}
}

func TestGetSupportedEnvVars(t *testing.T) {
	vars := GetSupportedEnvVars()
	if len(vars) == 0 {
		t.Fatal("GetSupportedEnvVars() should return non-empty list")
	}
	for i := 1; i < len(vars); i++ {
		if vars[i-1] >= vars[i] {
			t.Errorf("not sorted at %d: %q >= %q", i, vars[i-1], vars[i])
		}
	}
	found := false
	for _, v := range vars {
		if v == "THYMUS_LOG_LEVEL" {
			found = true
		}
	}
	if !found {
		t.Error("GetSupportedEnvVars() should include THYMUS_LOG_LEVEL")
	}
}
