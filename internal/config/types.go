package config

import (
	"time"

	"github.com/aristath/taskcoord/internal/agents"
)

// Config is the top-level configuration.
type Config struct {
	Engine  EngineConfig           `mapstructure:"engine"`
	Agents  map[string]agents.Spec `mapstructure:"agents"` // Keys are worker types
	Log     LogConfig              `mapstructure:"log"`
	History HistoryConfig          `mapstructure:"history"`
}

// EngineConfig holds coordinator settings.
type EngineConfig struct {
	MaxConcurrency   int           `mapstructure:"max_concurrency"`
	DefaultTimeout   time.Duration `mapstructure:"default_timeout"`
	RetryAttempts    int           `mapstructure:"retry_attempts"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	EnableCaching    bool          `mapstructure:"enable_caching"`
	RetryOnTimeout   bool          `mapstructure:"retry_on_timeout"`
	BreakerThreshold uint32        `mapstructure:"breaker_threshold"` // 0 disables circuit breakers
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`
	// Rotation applies to file outputs
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development enables caller-friendly console output
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}
