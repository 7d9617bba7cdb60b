package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/taskcoord/internal/events"
)

func TestRecorderStoresTerminalEvents(t *testing.T) {
	store := testStore(t)
	bus := events.NewEventBus()
	defer bus.Close()

	rec := NewRecorder(bus, store, nil)

	now := time.Now()
	bus.Publish(events.TopicAgent, events.TaskStartedEvent{RunID: "run", ID: "A", WorkerType: "echo", Timestamp: now})
	bus.Publish(events.TopicAgent, events.TaskCompletedEvent{
		RunID: "run", ID: "A", WorkerType: "echo",
		Output: map[string]any{"n": 1}, Attempts: 1, Duration: time.Millisecond, Timestamp: now,
	})
	bus.Publish(events.TopicAgent, events.TaskFailedEvent{
		RunID: "run", ID: "B", WorkerType: "cat",
		Err: errors.New("exit status 1"), Attempts: 2, Timestamp: now.Add(time.Millisecond),
	})
	bus.Publish(events.TopicProgress, events.ProgressEvent{RunID: "run", Total: 2})

	rec.Close()

	got, err := store.ListResults(context.Background(), "run")
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(got), got)
	}
	if got[0].TaskID != "A" || got[0].Status != "COMPLETED" || got[0].Output != `{"n":1}` {
		t.Errorf("unexpected completed record: %+v", got[0])
	}
	if got[1].TaskID != "B" || got[1].Status != "FAILED" || got[1].Error != "exit status 1" {
		t.Errorf("unexpected failed record: %+v", got[1])
	}
}

func TestRecorderIgnoresEventsAfterClose(t *testing.T) {
	store := testStore(t)
	bus := events.NewEventBus()
	defer bus.Close()

	rec := NewRecorder(bus, store, nil)
	rec.Close()
	rec.Close()

	bus.Publish(events.TopicAgent, events.TaskCompletedEvent{RunID: "late", ID: "A", Timestamp: time.Now()})

	runs, err := store.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs after close, got %+v", runs)
	}
}

func TestEncodeOutput(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "hi", `"hi"`},
		{"map", map[string]int{"a": 1}, `{"a":1}`},
		{"unencodable", make(chan int), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encodeOutput(tt.in)
			if tt.name == "unencodable" {
				if got == "" || got[0] != '"' {
					t.Errorf("expected quoted fallback, got %q", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("encodeOutput(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
