// Package orchestrator schedules tasks onto registered worker executors.
// It resolves dependencies, bounds concurrency, supervises timeouts and
// retries, caches results and reports progress through an event bus.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aristath/taskcoord/internal/agents"
	"github.com/aristath/taskcoord/internal/events"
	"github.com/aristath/taskcoord/internal/scheduler"
)

// ExecuteOptions tunes one ExecuteTasks call.
type ExecuteOptions struct {
	// Type selects the strategy. Empty falls back to the first task that
	// names one, then to parallel.
	Type scheduler.Strategy
}

// Coordinator is the entry point for running tasks. All methods are safe
// for concurrent use.
type Coordinator struct {
	cfg      Config
	agents   agents.Resolver
	logger   *zap.Logger
	bus      *events.EventBus
	ownsBus  bool
	slots    *scheduler.SlotController
	inflight *scheduler.InflightRegistry
	cache    *ResultCache
	metrics  *metricsStore
	progress *progressTracker
	breakers *CircuitBreakerRegistry
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEventBus publishes lifecycle events on an existing bus. The caller
// keeps ownership and must close it.
func WithEventBus(bus *events.EventBus) Option {
	return func(c *Coordinator) {
		if bus != nil {
			c.bus = bus
			c.ownsBus = false
		}
	}
}

// New creates a coordinator dispatching to executors from resolver.
func New(cfg Config, resolver agents.Resolver, opts ...Option) *Coordinator {
	cfg = cfg.normalized()

	c := &Coordinator{
		cfg:      cfg,
		agents:   resolver,
		logger:   zap.NewNop(),
		inflight: scheduler.NewInflightRegistry(),
		slots:    scheduler.NewSlotController(cfg.MaxConcurrency),
		cache:    NewResultCache(),
		metrics:  newMetricsStore(),
		progress: newProgressTracker(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.bus == nil {
		c.bus = events.NewEventBus(events.WithLogger(c.logger))
		c.ownsBus = true
	}
	if cfg.BreakerThreshold > 0 {
		c.breakers = NewCircuitBreakerRegistry(cfg.BreakerThreshold, cfg.BreakerCooldown, c.logger)
	}
	return c
}

// Config returns the effective configuration.
func (c *Coordinator) Config() Config {
	return c.cfg
}

// ExecuteTask runs a single task. Task failures are reported in the
// result; the error is non-nil only when the task is rejected outright
// (invalid, or already in flight).
func (c *Coordinator) ExecuteTask(ctx context.Context, task scheduler.Task) (*TaskResult, error) {
	if _, err := scheduler.Resolve([]scheduler.Task{task}); err != nil {
		return nil, err
	}
	if err := c.inflight.Claim(task.ID); err != nil {
		return nil, err
	}

	run := c.newRun(uuid.NewString(), &task)
	if c.prepare(ctx, run, nil, false) {
		return run.result, nil
	}
	if err := c.slots.Acquire(ctx); err != nil {
		c.finish(run, nil, err, false)
		return run.result, nil
	}
	c.dispatch(ctx, run)
	return run.result, nil
}

// ExecuteTasks runs a batch of tasks and returns their results in
// submission order. Validation errors, an unknown strategy or an id that is
// already in flight reject the whole batch before any task starts.
func (c *Coordinator) ExecuteTasks(ctx context.Context, tasks []scheduler.Task, opts ExecuteOptions) ([]*TaskResult, error) {
	strategy, err := resolveStrategy(opts.Type, tasks)
	if err != nil {
		return nil, err
	}

	plan, err := scheduler.Resolve(tasks)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
	}
	if err := c.inflight.ClaimAll(ids); err != nil {
		return nil, err
	}

	b := c.newBatch(tasks)
	c.progress.begin(b.runID, len(tasks))
	defer c.progress.end(b.runID)

	c.logger.Info("batch started",
		zap.String("run_id", b.runID),
		zap.Int("tasks", len(tasks)),
		zap.String("strategy", string(strategy)),
		zap.Int("waves", len(plan.Waves)),
	)

	switch strategy {
	case scheduler.StrategySequential:
		c.runSequential(ctx, b, plan.Order)
	default:
		c.runWaves(ctx, b, plan.Waves, strategy == scheduler.StrategyConditional)
	}

	results := make([]*TaskResult, len(tasks))
	failed := 0
	for i, id := range ids {
		results[i] = b.runs[id].result
		if !results[i].Succeeded() {
			failed++
		}
	}

	c.logger.Info("batch finished",
		zap.String("run_id", b.runID),
		zap.Int("tasks", len(tasks)),
		zap.Int("failed", failed),
	)
	return results, nil
}

// Progress returns counters aggregated over the batches currently running.
// An idle coordinator reports all zeros.
func (c *Coordinator) Progress() ProgressSnapshot {
	return c.progress.snapshot()
}

// Metrics returns a copy of the per-worker-type counters.
func (c *Coordinator) Metrics() map[string]MetricsRecord {
	return c.metrics.snapshot()
}

// Reset forgets in-flight task ids and progress. Metrics and cached results
// are kept. Intended for recovering an idle coordinator.
func (c *Coordinator) Reset() {
	c.inflight.Clear()
	c.progress.reset()
	c.logger.Debug("coordinator reset")
}

// On registers a synchronous listener for task lifecycle events and returns
// a function that removes it.
func (c *Coordinator) On(handler events.Handler) func() {
	return c.bus.On(events.TopicAgent, handler)
}

// OnProgress registers a synchronous listener for progress updates.
func (c *Coordinator) OnProgress(handler events.Handler) func() {
	return c.bus.On(events.TopicProgress, handler)
}

// Events returns the bus lifecycle events are published on.
func (c *Coordinator) Events() *events.EventBus {
	return c.bus
}

// Close releases the event bus if the coordinator created it.
func (c *Coordinator) Close() {
	if c.ownsBus {
		c.bus.Close()
	}
}

func resolveStrategy(requested scheduler.Strategy, tasks []scheduler.Task) (scheduler.Strategy, error) {
	s := requested
	if s == "" {
		for i := range tasks {
			if tasks[i].Strategy != "" {
				s = tasks[i].Strategy
				break
			}
		}
	}
	if s == "" {
		s = scheduler.StrategyParallel
	}
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
	return s, nil
}
