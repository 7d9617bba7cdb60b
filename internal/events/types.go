package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	TaskID() string
}

// Topic constants
const (
	TopicAgent    = "agent_event"
	TopicProgress = "progress"
)

// Event type constants
const (
	EventTypeTaskStarted     = "task_started"
	EventTypeTaskCompleted   = "task_completed"
	EventTypeTaskFailed      = "task_failed"
	EventTypeTaskRetrying    = "task_retrying"
	EventTypeProgressUpdated = "progress_updated"
)

// TaskStartedEvent is published when an executor is about to be invoked.
type TaskStartedEvent struct {
	RunID      string
	ID         string
	WorkerType string
	Timestamp  time.Time
}

func (e TaskStartedEvent) EventType() string { return EventTypeTaskStarted }
func (e TaskStartedEvent) TaskID() string    { return e.ID }

// TaskCompletedEvent is published when a task completes successfully,
// including completions served from the result cache.
type TaskCompletedEvent struct {
	RunID      string
	ID         string
	WorkerType string
	Output     any
	Cached     bool
	Attempts   int
	Duration   time.Duration
	Timestamp  time.Time
}

func (e TaskCompletedEvent) EventType() string { return EventTypeTaskCompleted }
func (e TaskCompletedEvent) TaskID() string    { return e.ID }

// TaskFailedEvent is published when a task fails.
type TaskFailedEvent struct {
	RunID      string
	ID         string
	WorkerType string
	Err        error
	Attempts   int
	Duration   time.Duration
	Timestamp  time.Time
}

func (e TaskFailedEvent) EventType() string { return EventTypeTaskFailed }
func (e TaskFailedEvent) TaskID() string    { return e.ID }

// TaskRetryingEvent is published before a failed attempt is retried.
type TaskRetryingEvent struct {
	RunID      string
	ID         string
	WorkerType string
	Attempt    int // attempt that just failed, 1-based
	Err        error
	Delay      time.Duration
	Timestamp  time.Time
}

func (e TaskRetryingEvent) EventType() string { return EventTypeTaskRetrying }
func (e TaskRetryingEvent) TaskID() string    { return e.ID }

// ProgressEvent is published whenever the aggregate progress changes.
type ProgressEvent struct {
	RunID      string
	Total      int
	Completed  int
	Failed     int
	Running    int
	Percentage float64
	Timestamp  time.Time
}

func (e ProgressEvent) EventType() string { return EventTypeProgressUpdated }
func (e ProgressEvent) TaskID() string    { return "" }
