package orchestrator

import (
	"time"

	"github.com/aristath/taskcoord/internal/scheduler"
)

// TaskResult is the outcome of one submitted task.
type TaskResult struct {
	ID         string
	WorkerType string
	Status     scheduler.TaskStatus
	Output     any   // Set when Status is TaskCompleted
	Error      error // Set when Status is TaskFailed
	Attempts   int   // Executor invocations, 0 for cache hits and skipped tasks
	Cached     bool
	StartedAt  time.Time
	EndedAt    time.Time
}

// Duration returns the time spent between dispatch and completion.
func (r *TaskResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the task completed.
func (r *TaskResult) Succeeded() bool {
	return r.Status == scheduler.TaskCompleted
}
