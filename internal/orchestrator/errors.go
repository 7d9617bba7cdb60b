package orchestrator

import (
	"errors"

	"github.com/aristath/taskcoord/internal/agents"
	"github.com/aristath/taskcoord/internal/scheduler"
)

var (
	// ErrUnknownStrategy rejects a batch naming a strategy that does not exist.
	ErrUnknownStrategy = errors.New("unknown execution strategy")

	// ErrDependencyFailed marks a task skipped because a dependency failed.
	ErrDependencyFailed = errors.New("dependency failed")

	// ErrTaskTimeout marks an attempt that exceeded its timeout.
	ErrTaskTimeout = errors.New("task timed out")

	// ErrExecutorPanic wraps a value recovered from a panicking executor.
	ErrExecutorPanic = errors.New("executor panicked")
)

// Re-exported so callers need only this package.
var (
	ErrTaskAlreadyRunning = scheduler.ErrTaskAlreadyRunning
	ErrUnknownWorker      = agents.ErrUnknownWorker
)
