package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/taskcoord/internal/agents"
	"github.com/aristath/taskcoord/internal/events"
)

// countingExecutor records calls and delegates to fn.
type countingExecutor struct {
	calls atomic.Int32
	fn    func(ctx context.Context, input any) (any, error)
}

func (e *countingExecutor) Execute(ctx context.Context, input any) (any, error) {
	e.calls.Add(1)
	if e.fn == nil {
		return input, nil
	}
	return e.fn(ctx, input)
}

func (e *countingExecutor) Calls() int {
	return int(e.calls.Load())
}

// sleepExecutor sleeps for d or until ctx is done.
func sleepExecutor(d time.Duration) agents.ExecutorFunc {
	return func(ctx context.Context, input any) (any, error) {
		select {
		case <-time.After(d):
			return input, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// flakyExecutor fails the first n calls.
func flakyExecutor(n int) *countingExecutor {
	e := &countingExecutor{}
	e.fn = func(ctx context.Context, input any) (any, error) {
		if int(e.calls.Load()) <= n {
			return nil, errors.New("transient failure")
		}
		return "ok", nil
	}
	return e
}

// concurrencyTracker tracks the peak number of overlapping executions.
type concurrencyTracker struct {
	current atomic.Int32
	peak    atomic.Int32
	hold    time.Duration
}

func (p *concurrencyTracker) Execute(ctx context.Context, input any) (any, error) {
	n := p.current.Add(1)
	defer p.current.Add(-1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(p.hold)
	return input, nil
}

// eventRecorder collects events delivered to a listener.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) types(taskID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, e := range r.events {
		if taskID == "" || e.TaskID() == taskID {
			out = append(out, e.EventType())
		}
	}
	return out
}

func (r *eventRecorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// testConfig returns a fast configuration for tests.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryAttempts = 0
	cfg.RetryDelay = time.Millisecond
	cfg.DefaultTimeout = 5 * time.Second
	return cfg
}

func newTestCoordinator(t *testing.T, cfg Config, execs map[string]agents.Executor) *Coordinator {
	t.Helper()

	reg := agents.NewRegistry()
	for name, exec := range execs {
		if err := reg.Register(name, exec); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}

	c := New(cfg, reg)
	t.Cleanup(c.Close)
	return c
}
