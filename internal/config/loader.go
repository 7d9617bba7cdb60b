// Package config loads taskcoord configuration from JSON files and
// TASKCOORD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. TASKCOORD_ENGINE_MAX_CONCURRENCY.
const EnvPrefix = "TASKCOORD"

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): environment, project config,
// global config, defaults. Missing files are not errors; malformed JSON
// returns an error. Agents merge by name.
func Load(globalPath, projectPath string) (*Config, error) {
	v := newViper()

	if err := mergeConfigFile(v, globalPath); err != nil {
		return nil, fmt.Errorf("loading global config: %w", err)
	}
	if err := mergeConfigFile(v, projectPath); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads configuration from conventional paths.
// Global: ~/.taskcoord/config.json
// Project: .taskcoord/config.json (relative to cwd)
func LoadDefault() (*Config, error) {
	globalPath, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return Load(globalPath, ProjectPath())
}

// GlobalPath returns the per-user config file location.
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".taskcoord", "config.json"), nil
}

// ProjectPath returns the project config file location.
func ProjectPath() string {
	return filepath.Join(".taskcoord", "config.json")
}

func newViper() *viper.Viper {
	def := DefaultConfig()

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Seed scalar keys so environment-only overrides are picked up.
	v.SetDefault("engine.max_concurrency", def.Engine.MaxConcurrency)
	v.SetDefault("engine.default_timeout", durationString(def.Engine.DefaultTimeout))
	v.SetDefault("engine.retry_attempts", def.Engine.RetryAttempts)
	v.SetDefault("engine.retry_delay", durationString(def.Engine.RetryDelay))
	v.SetDefault("engine.enable_caching", def.Engine.EnableCaching)
	v.SetDefault("engine.retry_on_timeout", def.Engine.RetryOnTimeout)
	v.SetDefault("engine.breaker_threshold", def.Engine.BreakerThreshold)
	v.SetDefault("engine.breaker_cooldown", durationString(def.Engine.BreakerCooldown))
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.outputs", def.Log.Outputs)
	v.SetDefault("log.development", def.Log.Development)
	v.SetDefault("log.rotation.enable", def.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", def.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", def.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", def.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", def.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", def.Log.Rotation.Compress)
	v.SetDefault("history.enabled", def.History.Enabled)
	v.SetDefault("history.path", def.History.Path)

	return v
}

// mergeConfigFile merges a JSON config file into v.
// Missing files are silently skipped. Malformed JSON returns an error.
func mergeConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
