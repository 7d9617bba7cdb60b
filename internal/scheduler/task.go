package scheduler

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus int

const (
	TaskPending   TaskStatus = iota // Submitted, not yet dispatched
	TaskRunning                     // Executor is running
	TaskCompleted                   // Finished successfully
	TaskFailed                      // Finished with error
)

// String returns the upper-case status name used in results and history.
func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "PENDING"
	case TaskRunning:
		return "RUNNING"
	case TaskCompleted:
		return "COMPLETED"
	case TaskFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Strategy selects how a batch of tasks is scheduled.
type Strategy string

const (
	StrategySequential  Strategy = "sequential"
	StrategyParallel    Strategy = "parallel"
	StrategyConditional Strategy = "conditional"
)

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategySequential, StrategyParallel, StrategyConditional:
		return true
	}
	return false
}

// ReviseFunc rewrites a task's input from the outputs of its completed
// dependencies (keyed by dependency ID) before dispatch.
type ReviseFunc func(input any, upstream map[string]any) (any, error)

// Task represents a unit of work submitted to the coordinator.
type Task struct {
	ID         string        // Unique within a batch and among in-flight tasks
	WorkerType string        // Key into the agent registry
	Input      any           // Opaque payload handed to the executor
	DependsOn  []string      // Task IDs that must complete first
	Strategy   Strategy      // Batch strategy hint
	Timeout    time.Duration // Per-task override, <= 0 uses the coordinator default
	Revise     ReviseFunc    // Only consulted by the conditional strategy
}

func cloneTask(task *Task) *Task {
	if task == nil {
		return nil
	}

	cp := *task
	if task.DependsOn != nil {
		cp.DependsOn = append([]string(nil), task.DependsOn...)
	}
	return &cp
}
