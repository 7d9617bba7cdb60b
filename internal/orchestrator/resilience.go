package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/aristath/taskcoord/internal/agents"
)

// CircuitBreakerRegistry manages per-worker-type circuit breakers.
type CircuitBreakerRegistry struct {
	mu        sync.Mutex
	breakers  map[string]*gobreaker.CircuitBreaker
	threshold uint32
	cooldown  time.Duration
	logger    *zap.Logger
}

// NewCircuitBreakerRegistry creates a registry whose breakers open after
// threshold consecutive failures and let a trial call through after cooldown.
func NewCircuitBreakerRegistry(threshold uint32, cooldown time.Duration, logger *zap.Logger) *CircuitBreakerRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircuitBreakerRegistry{
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
		threshold: threshold,
		cooldown:  cooldown,
		logger:    logger,
	}
}

// Get returns the circuit breaker for the given worker type, creating it on
// first use.
func (r *CircuitBreakerRegistry) Get(workerType string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[workerType]; ok {
		return cb
	}

	threshold := r.threshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        workerType,
		MaxRequests: 1,
		Interval:    0, // Don't clear counts while closed
		Timeout:     r.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			r.logger.Warn("circuit breaker state change",
				zap.String("worker_type", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation is not the worker's fault.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	r.breakers[workerType] = cb
	return cb
}

// State returns the breaker state for workerType, or StateClosed if none exists.
func (r *CircuitBreakerRegistry) State(workerType string) gobreaker.State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[workerType]; ok {
		return cb.State()
	}
	return gobreaker.StateClosed
}

// retryPolicy is a constant delay between attempts, at most retries extra
// attempts, abandoned when ctx is done.
func retryPolicy(ctx context.Context, retries int, delay time.Duration) backoff.BackOff {
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(retries)),
		ctx,
	)
}

// executeWithRetry runs one task's executor under the retry policy and the
// optional circuit breaker. It returns the output, the number of executor
// invocations and the final error.
func (c *Coordinator) executeWithRetry(ctx context.Context, run *taskRun) (any, int, error) {
	var cb *gobreaker.CircuitBreaker
	if c.breakers != nil {
		cb = c.breakers.Get(run.task.WorkerType)
	}

	var (
		output   any
		attempts int
	)

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempts++

		var (
			out any
			err error
		)
		if cb != nil {
			out, err = cb.Execute(func() (interface{}, error) {
				return runWithTimeout(ctx, run.exec, run.input, run.timeout)
			})
		} else {
			out, err = runWithTimeout(ctx, run.exec, run.input, run.timeout)
		}

		if err != nil {
			if c.isPermanent(ctx, err) {
				return backoff.Permanent(err)
			}
			return err
		}

		output = out
		return nil
	}

	notify := func(err error, delay time.Duration) {
		c.logger.Debug("retrying task",
			zap.String("run_id", run.runID),
			zap.String("task_id", run.task.ID),
			zap.Int("attempt", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		c.publishRetrying(run, attempts, err, delay)
	}

	err := backoff.RetryNotify(operation, retryPolicy(ctx, c.cfg.RetryAttempts, c.cfg.RetryDelay), notify)
	if err != nil {
		return nil, attempts, err
	}
	return output, attempts, nil
}

// isPermanent reports whether err must not be retried.
func (c *Coordinator) isPermanent(ctx context.Context, err error) bool {
	switch {
	case ctx.Err() != nil:
		return true
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return true
	case errors.Is(err, ErrTaskTimeout):
		return !c.cfg.RetryOnTimeout
	}
	return false
}

// runWithTimeout invokes exec once, bounded by timeout. A result that lands
// after the deadline still counts as a timeout. Panics become ErrExecutorPanic.
func runWithTimeout(ctx context.Context, exec agents.Executor, input any, timeout time.Duration) (any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		output any
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrExecutorPanic, r)}
			}
		}()
		out, err := exec.Execute(attemptCtx, input)
		done <- outcome{output: out, err: err}
	}()

	select {
	case o := <-done:
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return nil, timeoutError(timeout)
		}
		return o.output, o.err
	case <-attemptCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, timeoutError(timeout)
	}
}

func timeoutError(timeout time.Duration) error {
	return fmt.Errorf("%w after %s", ErrTaskTimeout, timeout)
}
