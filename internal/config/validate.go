package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidConfig is returned for configurations that cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var problems []string

	if c.Engine.MaxConcurrency < 1 {
		problems = append(problems, "engine.max_concurrency must be at least 1")
	}
	if c.Engine.DefaultTimeout <= 0 {
		problems = append(problems, "engine.default_timeout must be positive")
	}
	if c.Engine.RetryAttempts < 0 {
		problems = append(problems, "engine.retry_attempts must not be negative")
	}
	if c.Engine.RetryDelay < 0 {
		problems = append(problems, "engine.retry_delay must not be negative")
	}

	names := make([]string, 0, len(c.Agents))
	for name := range c.Agents {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spec := c.Agents[name]
		switch spec.Type {
		case "", "echo":
		case "command":
			if spec.Command == "" {
				problems = append(problems, fmt.Sprintf("agents.%s: command agent needs a command", name))
			}
		default:
			problems = append(problems, fmt.Sprintf("agents.%s: unknown type %q", name, spec.Type))
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be console or json", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
