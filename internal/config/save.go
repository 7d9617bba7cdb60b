package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Save persists the configuration to a JSON file, creating parent
// directories as needed.
func Save(cfg *Config, path string) error {
	v := viper.New()
	v.SetConfigType("json")
	if err := v.MergeConfigMap(Settings(cfg)); err != nil {
		return fmt.Errorf("preparing config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Settings renders cfg as the nested map written to config files.
// Durations are spelled as strings ("30s") and empty agent fields are omitted.
func Settings(cfg *Config) map[string]any {
	agentsOut := make(map[string]any, len(cfg.Agents))
	for name, spec := range cfg.Agents {
		entry := map[string]any{"type": spec.Type}
		if spec.Command != "" {
			entry["command"] = spec.Command
		}
		if len(spec.Args) > 0 {
			entry["args"] = spec.Args
		}
		if len(spec.Env) > 0 {
			entry["env"] = spec.Env
		}
		if spec.WorkDir != "" {
			entry["work_dir"] = spec.WorkDir
		}
		if len(spec.Capabilities) > 0 {
			entry["capabilities"] = spec.Capabilities
		}
		agentsOut[name] = entry
	}

	return map[string]any{
		"engine": map[string]any{
			"max_concurrency":   cfg.Engine.MaxConcurrency,
			"default_timeout":   durationString(cfg.Engine.DefaultTimeout),
			"retry_attempts":    cfg.Engine.RetryAttempts,
			"retry_delay":       durationString(cfg.Engine.RetryDelay),
			"enable_caching":    cfg.Engine.EnableCaching,
			"retry_on_timeout":  cfg.Engine.RetryOnTimeout,
			"breaker_threshold": cfg.Engine.BreakerThreshold,
			"breaker_cooldown":  durationString(cfg.Engine.BreakerCooldown),
		},
		"agents": agentsOut,
		"log": map[string]any{
			"level":       cfg.Log.Level,
			"format":      cfg.Log.Format,
			"outputs":     cfg.Log.Outputs,
			"development": cfg.Log.Development,
			"rotation": map[string]any{
				"enable":       cfg.Log.Rotation.Enable,
				"filename":     cfg.Log.Rotation.Filename,
				"max_size_mb":  cfg.Log.Rotation.MaxSizeMB,
				"max_backups":  cfg.Log.Rotation.MaxBackups,
				"max_age_days": cfg.Log.Rotation.MaxAgeDays,
				"compress":     cfg.Log.Rotation.Compress,
			},
		},
		"history": map[string]any{
			"enabled": cfg.History.Enabled,
			"path":    cfg.History.Path,
		},
	}
}
