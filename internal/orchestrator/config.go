package orchestrator

import "time"

// Config holds coordinator settings. It is read once at construction.
type Config struct {
	MaxConcurrency int           // Executors allowed to run at once
	DefaultTimeout time.Duration // Per-attempt timeout when a task sets none
	RetryAttempts  int           // Retries after the first failed attempt
	RetryDelay     time.Duration // Pause between attempts
	EnableCaching  bool          // Serve repeated (workerType, input) pairs from cache
	RetryOnTimeout bool          // Treat timeouts as retryable

	// BreakerThreshold opens a per-worker-type circuit breaker after this
	// many consecutive failed attempts. Zero disables breakers.
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
}

// DefaultConfig returns the settings used when none are supplied.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency:  4,
		DefaultTimeout:  5 * time.Minute,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
		EnableCaching:   true,
		BreakerCooldown: 30 * time.Second,
	}
}

func (c Config) normalized() Config {
	if c.MaxConcurrency < 1 {
		c.MaxConcurrency = 1
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = DefaultConfig().DefaultTimeout
	}
	if c.RetryAttempts < 0 {
		c.RetryAttempts = 0
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = DefaultConfig().BreakerCooldown
	}
	return c
}
