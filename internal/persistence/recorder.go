package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aristath/taskcoord/internal/events"
	"github.com/aristath/taskcoord/internal/scheduler"
)

// Recorder journals terminal task events from an event bus into a Store.
// Events are queued and written by a single goroutine so bus publishers
// never wait on disk I/O beyond the queue capacity.
type Recorder struct {
	store  Store
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan ResultRecord
	unsub  func()
	done   chan struct{}
}

// NewRecorder subscribes to bus and starts writing results to store.
// Close must be called to flush pending records.
func NewRecorder(bus *events.EventBus, store Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		store:  store,
		logger: logger,
		queue:  make(chan ResultRecord, 256),
		done:   make(chan struct{}),
	}
	r.unsub = bus.On(events.TopicAgent, r.handle)
	go r.loop()
	return r
}

func (r *Recorder) handle(event events.Event) {
	rec, ok := recordFromEvent(event)
	if !ok {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	r.queue <- rec
}

func (r *Recorder) loop() {
	defer close(r.done)
	for rec := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := r.store.SaveResult(ctx, rec); err != nil {
			r.logger.Error("failed to record result",
				zap.String("run_id", rec.RunID),
				zap.String("task_id", rec.TaskID),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Close unsubscribes from the bus and waits until queued records are written.
func (r *Recorder) Close() {
	r.unsub()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
}

func recordFromEvent(event events.Event) (ResultRecord, bool) {
	switch e := event.(type) {
	case events.TaskCompletedEvent:
		return ResultRecord{
			RunID:      e.RunID,
			TaskID:     e.ID,
			WorkerType: e.WorkerType,
			Status:     scheduler.TaskCompleted.String(),
			Output:     encodeOutput(e.Output),
			Attempts:   e.Attempts,
			Cached:     e.Cached,
			Duration:   e.Duration,
			FinishedAt: e.Timestamp,
		}, true
	case events.TaskFailedEvent:
		rec := ResultRecord{
			RunID:      e.RunID,
			TaskID:     e.ID,
			WorkerType: e.WorkerType,
			Status:     scheduler.TaskFailed.String(),
			Attempts:   e.Attempts,
			Duration:   e.Duration,
			FinishedAt: e.Timestamp,
		}
		if e.Err != nil {
			rec.Error = e.Err.Error()
		}
		return rec, true
	default:
		return ResultRecord{}, false
	}
}

// encodeOutput renders an executor output as JSON, falling back to its
// fmt representation for values JSON cannot encode.
func encodeOutput(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		b, _ := json.Marshal(fmt.Sprintf("%v", v))
		return string(b)
	}
	return string(data)
}
