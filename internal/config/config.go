package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// Config represents the complete thymus configuration
type Config struct {
	Version   int    `json:"version" mapstructure:"version"`
	RulesFile string `json:"rulesFile" mapstructure:"rulesFile"`

	Scan    ScanConfig    `json:"scan" mapstructure:"scan"`
	Hook    HookConfig    `json:"hook" mapstructure:"hook"`
	History HistoryConfig `json:"history" mapstructure:"history"`
	Graph   GraphConfig   `json:"graph" mapstructure:"graph"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ScanConfig controls project-wide scans
type ScanConfig struct {
	Workers          int      `json:"workers" mapstructure:"workers"`
	MaxFileSizeBytes int64    `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
	TimeoutMs        int      `json:"timeoutMs" mapstructure:"timeoutMs"`
	IgnoreDirs       []string `json:"ignoreDirs" mapstructure:"ignoreDirs"`
	Extensions       []string `json:"extensions" mapstructure:"extensions"`
	FollowSymlinks   bool     `json:"followSymlinks" mapstructure:"followSymlinks"`
}

// HookConfig controls the per-edit hook
type HookConfig struct {
	MaxFileSizeBytes int64 `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
	SessionCache     bool  `json:"sessionCache" mapstructure:"sessionCache"`
}

// HistoryConfig controls compliance history retention
type HistoryConfig struct {
	MaxEntries int `json:"maxEntries" mapstructure:"maxEntries"`
}

// GraphConfig controls module graph building and rule inference
type GraphConfig struct {
	MinConfidence int    `json:"minConfidence" mapstructure:"minConfidence"`
	ModulesFile   string `json:"modulesFile" mapstructure:"modulesFile"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	File       bool   `json:"file" mapstructure:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// DefaultIgnoreDirs are directory names never descended into by a scan.
var DefaultIgnoreDirs = []string{
	"node_modules", "dist", ".next", ".git", "coverage", "__pycache__",
	".venv", "vendor", "target", "build", ".thymus",
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:   CurrentVersion,
		RulesFile: "invariants.yml",
		Scan: ScanConfig{
			Workers:          8,
			MaxFileSizeBytes: 1024 * 1024,
			TimeoutMs:        120000,
			IgnoreDirs:       append([]string(nil), DefaultIgnoreDirs...),
		},
		Hook: HookConfig{
			MaxFileSizeBytes: 512000,
			SessionCache:     true,
		},
		History: HistoryConfig{
			MaxEntries: 500,
		},
		Graph: GraphConfig{
			MinConfidence: 90,
			ModulesFile:   "MODULES.toml",
		},
		Logging: LoggingConfig{
			Level:      "warn",
			MaxSize:    "5MB",
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from .thymus/config.json and applies
// THYMUS_* environment overrides.
func LoadConfig(repoRoot string) (*Config, error) {
	cfg, err := LoadConfigFromPath(filepath.Join(repoRoot, ".thymus", "config.json"))
	if err != nil {
		return nil, err
	}
	ApplyEnvOverrides(cfg)
	return cfg, nil
}

// LoadConfigFromPath reads a config file, layering it over the defaults.
// A missing file yields the defaults.
func LoadConfigFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("rulesFile", d.RulesFile)
	v.SetDefault("scan.workers", d.Scan.Workers)
	v.SetDefault("scan.maxFileSizeBytes", d.Scan.MaxFileSizeBytes)
	v.SetDefault("scan.timeoutMs", d.Scan.TimeoutMs)
	v.SetDefault("scan.ignoreDirs", d.Scan.IgnoreDirs)
	v.SetDefault("scan.extensions", d.Scan.Extensions)
	v.SetDefault("scan.followSymlinks", d.Scan.FollowSymlinks)
	v.SetDefault("hook.maxFileSizeBytes", d.Hook.MaxFileSizeBytes)
	v.SetDefault("hook.sessionCache", d.Hook.SessionCache)
	v.SetDefault("history.maxEntries", d.History.MaxEntries)
	v.SetDefault("graph.minConfidence", d.Graph.MinConfidence)
	v.SetDefault("graph.modulesFile", d.Graph.ModulesFile)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// Save writes the configuration to .thymus/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".thymus")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), append(data, '\n'), 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if c.Scan.Workers < 1 {
		return &ConfigError{Field: "scan.workers", Message: "must be at least 1"}
	}
	if c.Scan.MaxFileSizeBytes <= 0 {
		return &ConfigError{Field: "scan.maxFileSizeBytes", Message: "must be positive"}
	}
	if c.Hook.MaxFileSizeBytes <= 0 {
		return &ConfigError{Field: "hook.maxFileSizeBytes", Message: "must be positive"}
	}
	if c.History.MaxEntries < 1 {
		return &ConfigError{Field: "history.maxEntries", Message: "must be at least 1"}
	}
	if c.Graph.MinConfidence < 0 || c.Graph.MinConfidence > 100 {
		return &ConfigError{Field: "graph.minConfidence", Message: "must be between 0 and 100"}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// EnvOverride records one environment variable applied to a config.
type EnvOverride struct {
	EnvVar string
	Path   string
	Value  string
}

type envSetter func(c *Config, raw string) bool

var envVars = map[string]struct {
	path string
	set  envSetter
}{
	"THYMUS_RULES_FILE":               {"rulesFile", func(c *Config, s string) bool { c.RulesFile = s; return true }},
	"THYMUS_SCAN_WORKERS":             {"scan.workers", setInt(func(c *Config, n int) { c.Scan.Workers = n })},
	"THYMUS_SCAN_MAX_FILE_SIZE_BYTES": {"scan.maxFileSizeBytes", setInt(func(c *Config, n int) { c.Scan.MaxFileSizeBytes = int64(n) })},
	"THYMUS_SCAN_TIMEOUT_MS":          {"scan.timeoutMs", setInt(func(c *Config, n int) { c.Scan.TimeoutMs = n })},
	"THYMUS_SCAN_FOLLOW_SYMLINKS":     {"scan.followSymlinks", setBool(func(c *Config, b bool) { c.Scan.FollowSymlinks = b })},
	"THYMUS_HOOK_MAX_FILE_SIZE_BYTES": {"hook.maxFileSizeBytes", setInt(func(c *Config, n int) { c.Hook.MaxFileSizeBytes = int64(n) })},
	"THYMUS_HOOK_SESSION_CACHE":       {"hook.sessionCache", setBool(func(c *Config, b bool) { c.Hook.SessionCache = b })},
	"THYMUS_HISTORY_MAX_ENTRIES":      {"history.maxEntries", setInt(func(c *Config, n int) { c.History.MaxEntries = n })},
	"THYMUS_GRAPH_MIN_CONFIDENCE":     {"graph.minConfidence", setInt(func(c *Config, n int) { c.Graph.MinConfidence = n })},
	"THYMUS_GRAPH_MODULES_FILE":       {"graph.modulesFile", func(c *Config, s string) bool { c.Graph.ModulesFile = s; return true }},
	"THYMUS_LOG_LEVEL":                {"logging.level", func(c *Config, s string) bool { c.Logging.Level = s; return true }},
	"THYMUS_LOG_FILE":                 {"logging.file", setBool(func(c *Config, b bool) { c.Logging.File = b })},
}

func setInt(f func(*Config, int)) envSetter {
	return func(c *Config, raw string) bool {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return false
		}
		f(c, n)
		return true
	}
}

func setBool(f func(*Config, bool)) envSetter {
	return func(c *Config, raw string) bool {
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return false
		}
		f(c, b)
		return true
	}
}

// ApplyEnvOverrides applies every set THYMUS_* variable to cfg. Values that
// do not parse for their field are ignored.
func ApplyEnvOverrides(cfg *Config) []EnvOverride {
	var applied []EnvOverride
	for _, name := range GetSupportedEnvVars() {
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			continue
		}
		entry := envVars[name]
		if entry.set(cfg, raw) {
			applied = append(applied, EnvOverride{EnvVar: name, Path: entry.path, Value: raw})
		}
	}
	return applied
}

// GetSupportedEnvVars lists the recognised environment variables, sorted.
func GetSupportedEnvVars() []string {
	names := make([]string, 0, len(envVars))
	for name := range envVars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
