// Package config provides configuration management for the quality-gate
// service using Viper for flexible configuration loading from files,
// environment variables, and command-line flags.
//
// The configuration system supports YAML files, environment variable
// overrides with a QUALITYGATE_ prefix, and validation. It covers the HTTP
// server, the embedded project registry's state directory, and logging. The
// watch, concurrency and tools sections are loaded and validated, but the
// watcher, the orchestrator and the session controller do not read them;
// they use their own fixed values.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the complete, validated runtime configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	State       StateConfig       `yaml:"state"`
	Watch       WatchConfig       `yaml:"watch"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Tools       ToolsConfig       `yaml:"tools"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig controls the HTTP/WebSocket listener.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StateConfig points at the directory holding the project registry's bbolt
// file. Relative to the current working directory unless absolute.
type StateConfig struct {
	Dir string `yaml:"dir"`
}

// WatchConfig holds polling and debounce timings for the filesystem watcher.
// They are loaded and validated only: the watch package uses its own fixed
// 100 ms debounce and 300 ms poll interval.
type WatchConfig struct {
	DebounceMillis     int `yaml:"debounce_millis"`
	PollIntervalMillis int `yaml:"poll_interval_millis"`
}

func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMillis) * time.Millisecond
}

func (w WatchConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalMillis) * time.Millisecond
}

// ConcurrencyConfig holds a per-run module concurrency value. It is loaded
// and validated only: the orchestrator's cap is the fixed
// orchestrator.MaxConcurrentModules.
type ConcurrencyConfig struct {
	MaxConcurrentModules int `yaml:"max_concurrent_modules"`
}

// ToolsConfig holds a default tool selection. It is loaded only: a start
// request that omits a selection runs every registered tool.
type ToolsConfig struct {
	DefaultSelected []string `yaml:"default_selected"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load reads configuration from whatever Viper has been set up with
// (config file, QUALITYGATE_ environment variables, bound flags — see
// cmd/root.go's initConfig) and applies defaults for anything unset.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if viper.IsSet("server.allowed_origins") && len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = viper.GetStringSlice("server.allowed_origins")
	}

	if cfg.State.Dir == "" {
		cfg.State.Dir = ".qualitygate"
	}

	if viper.IsSet("watch.debounce_millis") {
		cfg.Watch.DebounceMillis = viper.GetInt("watch.debounce_millis")
	}
	if viper.IsSet("watch.poll_interval_millis") {
		cfg.Watch.PollIntervalMillis = viper.GetInt("watch.poll_interval_millis")
	}
	if viper.IsSet("concurrency.max_concurrent_modules") {
		cfg.Concurrency.MaxConcurrentModules = viper.GetInt("concurrency.max_concurrent_modules")
	}

	if cfg.Watch.DebounceMillis == 0 {
		cfg.Watch.DebounceMillis = 100
	}
	if cfg.Watch.PollIntervalMillis == 0 {
		cfg.Watch.PollIntervalMillis = 300
	}

	if cfg.Concurrency.MaxConcurrentModules == 0 {
		cfg.Concurrency.MaxConcurrentModules = 3
	}

	if viper.IsSet("tools.default_selected") && len(cfg.Tools.DefaultSelected) == 0 {
		cfg.Tools.DefaultSelected = viper.GetStringSlice("tools.default_selected")
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if err := validateServerConfig(&cfg.Server); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := validateStateConfig(&cfg.State); err != nil {
		return fmt.Errorf("state: %w", err)
	}
	if err := validateWatchConfig(&cfg.Watch); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := validateConcurrencyConfig(&cfg.Concurrency); err != nil {
		return fmt.Errorf("concurrency: %w", err)
	}
	return nil
}

func validateServerConfig(s *ServerConfig) error {
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", s.Port)
	}
	if s.Host != "" {
		dangerous := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, c := range dangerous {
			if strings.Contains(s.Host, c) {
				return fmt.Errorf("host contains dangerous character: %s", c)
			}
		}
	}
	return nil
}

func validateStateConfig(s *StateConfig) error {
	if s.Dir == "" {
		return fmt.Errorf("dir must not be empty")
	}
	clean := filepath.Clean(s.Dir)
	if strings.Contains(clean, "..") {
		return fmt.Errorf("dir contains path traversal: %s", s.Dir)
	}
	return nil
}

func validateWatchConfig(w *WatchConfig) error {
	if w.DebounceMillis < 0 {
		return fmt.Errorf("debounce_millis must not be negative")
	}
	if w.PollIntervalMillis <= 0 {
		return fmt.Errorf("poll_interval_millis must be positive")
	}
	return nil
}

func validateConcurrencyConfig(c *ConcurrencyConfig) error {
	if c.MaxConcurrentModules < 1 {
		return fmt.Errorf("max_concurrent_modules must be at least 1")
	}
	return nil
}

// WatchForChanges enables Viper's fsnotify-backed config file watch so a
// running `serve` process picks up config file edits without a restart.
// onChange is invoked after each reload; it is the caller's job to call
// Load again inside it and swap in the new Config.
func WatchForChanges(onChange func(fsnotify.Event)) {
	viper.OnConfigChange(onChange)
	viper.WatchConfig()
}
