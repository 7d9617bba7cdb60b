package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/taskcoord/internal/events"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model
}

func TestModelTracksTaskLifecycle(t *testing.T) {
	m := NewWithSubscription(make(chan events.Event))
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	now := time.Now()
	m = update(t, m, events.TaskStartedEvent{RunID: "r", ID: "build", WorkerType: "cat", Timestamp: now})
	m = update(t, m, events.TaskRetryingEvent{RunID: "r", ID: "build", WorkerType: "cat", Attempt: 1, Err: errors.New("flaky"), Delay: time.Second})
	m = update(t, m, events.TaskCompletedEvent{RunID: "r", ID: "build", WorkerType: "cat", Output: "ok", Attempts: 2, Duration: time.Second})

	task, ok := m.taskPane.Task("build")
	if !ok {
		t.Fatal("task not tracked")
	}
	if task.Status != statusCompleted || task.Attempts != 2 {
		t.Errorf("unexpected state: %+v", task)
	}
	joined := strings.Join(task.Log, "\n")
	for _, want := range []string{"started on cat", "attempt 1 failed: flaky", "ok", "completed in 1s"} {
		if !strings.Contains(joined, want) {
			t.Errorf("log missing %q:\n%s", want, joined)
		}
	}
}

func TestModelAddsTasksWithoutStartEvent(t *testing.T) {
	m := NewWithSubscription(make(chan events.Event))

	m = update(t, m, events.TaskCompletedEvent{ID: "cached", WorkerType: "echo", Cached: true})
	m = update(t, m, events.TaskFailedEvent{ID: "skipped", WorkerType: "echo", Err: errors.New("dependency failed")})

	cached, ok := m.taskPane.Task("cached")
	if !ok || !cached.Cached || cached.Status != statusCompleted {
		t.Errorf("cached task = %+v, %v", cached, ok)
	}
	skipped, ok := m.taskPane.Task("skipped")
	if !ok || skipped.Status != statusFailed {
		t.Errorf("skipped task = %+v, %v", skipped, ok)
	}
}

func TestModelProgress(t *testing.T) {
	m := NewWithSubscription(make(chan events.Event))
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = update(t, m, events.ProgressEvent{RunID: "r", Total: 4, Completed: 1, Failed: 1, Running: 1, Percentage: 50})

	if got := m.progressPane.Pending(); got != 1 {
		t.Errorf("Pending() = %d, want 1", got)
	}
	if view := m.View(); !strings.Contains(view, "50.0%") {
		t.Errorf("view missing percentage:\n%s", view)
	}
}

func TestModelFocusAndQuit(t *testing.T) {
	m := NewWithSubscription(make(chan events.Event))

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focusedPane != PaneProgress {
		t.Errorf("focus after tab = %v", m.focusedPane)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.focusedPane != PaneTasks {
		t.Errorf("focus after shift+tab = %v", m.focusedPane)
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
	if next.(Model).View() != "Goodbye!\n" {
		t.Error("unexpected view after quit")
	}
}

func TestModelRunFinished(t *testing.T) {
	m := NewWithSubscription(make(chan events.Event))
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m = update(t, m, RunFinishedMsg{Err: errors.New("interrupted")})

	if !m.Finished() {
		t.Fatal("Finished() = false")
	}
	if !strings.Contains(m.View(), "Run aborted: interrupted") {
		t.Error("status line missing abort message")
	}
}

func TestWaitForEventReturnsNilOnClose(t *testing.T) {
	ch := make(chan events.Event)
	close(ch)
	if msg := waitForEvent(ch)(); msg != nil {
		t.Errorf("expected nil msg, got %v", msg)
	}
}
