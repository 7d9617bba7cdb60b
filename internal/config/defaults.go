package config

import (
	"time"

	"github.com/aristath/taskcoord/internal/agents"
	"github.com/aristath/taskcoord/internal/orchestrator"
)

// DefaultConfig returns the built-in configuration: engine defaults, two
// ready-to-use agents and console logging to stderr.
func DefaultConfig() *Config {
	engine := orchestrator.DefaultConfig()

	return &Config{
		Engine: EngineConfig{
			MaxConcurrency:   engine.MaxConcurrency,
			DefaultTimeout:   engine.DefaultTimeout,
			RetryAttempts:    engine.RetryAttempts,
			RetryDelay:       engine.RetryDelay,
			EnableCaching:    engine.EnableCaching,
			RetryOnTimeout:   engine.RetryOnTimeout,
			BreakerThreshold: engine.BreakerThreshold,
			BreakerCooldown:  engine.BreakerCooldown,
		},
		Agents: map[string]agents.Spec{
			"echo": {
				Type:         "echo",
				Capabilities: []string{"test"},
			},
			"cat": {
				Type:         "command",
				Command:      "cat",
				Capabilities: []string{"passthrough"},
			},
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				Filename:   ".taskcoord/taskcoord.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    ".taskcoord/history.db",
		},
	}
}

// CoordinatorConfig converts the engine section to coordinator settings.
func (e EngineConfig) CoordinatorConfig() orchestrator.Config {
	return orchestrator.Config{
		MaxConcurrency:   e.MaxConcurrency,
		DefaultTimeout:   e.DefaultTimeout,
		RetryAttempts:    e.RetryAttempts,
		RetryDelay:       e.RetryDelay,
		EnableCaching:    e.EnableCaching,
		RetryOnTimeout:   e.RetryOnTimeout,
		BreakerThreshold: e.BreakerThreshold,
		BreakerCooldown:  e.BreakerCooldown,
	}
}

// durationString renders d the way config files spell durations.
func durationString(d time.Duration) string {
	return d.String()
}
