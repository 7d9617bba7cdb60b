package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/taskcoord/internal/events"
)

const (
	statusRunning   = "running"
	statusRetrying  = "retrying"
	statusCompleted = "completed"
	statusFailed    = "failed"

	listWidth       = 28
	maxOutputLength = 2000
)

// TaskState is what the monitor knows about one task.
type TaskState struct {
	TaskID     string
	WorkerType string
	Status     string
	Log        []string
	Attempts   int
	Cached     bool
	StartTime  time.Time
	Duration   time.Duration
}

// TaskPaneModel shows the task list and the selected task's log.
type TaskPaneModel struct {
	tasks       map[string]*TaskState // taskID -> state
	taskOrder   []string              // first-seen order for display
	selectedIdx int
	viewport    viewport.Model
	width       int
	height      int
	focused     bool
}

// NewTaskPaneModel creates an empty task pane.
func NewTaskPaneModel() TaskPaneModel {
	return TaskPaneModel{
		tasks:    make(map[string]*TaskState),
		viewport: viewport.New(0, 0),
	}
}

// Update handles messages for the task pane.
func (m TaskPaneModel) Update(msg tea.Msg) (TaskPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.focused {
			break
		}
		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.taskOrder)-1 {
				m.selectedIdx++
				m.updateViewportContent()
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.updateViewportContent()
			}
		default:
			m.viewport, cmd = m.viewport.Update(msg)
		}

	case events.TaskStartedEvent:
		task := m.ensure(msg.ID, msg.WorkerType)
		task.Status = statusRunning
		task.StartTime = msg.Timestamp
		task.Log = append(task.Log, fmt.Sprintf("[%s] started on %s", msg.Timestamp.Format(time.TimeOnly), msg.WorkerType))
		m.refreshIfSelected(msg.ID)

	case events.TaskRetryingEvent:
		task := m.ensure(msg.ID, msg.WorkerType)
		task.Status = statusRetrying
		task.Attempts = msg.Attempt
		task.Log = append(task.Log, fmt.Sprintf("[attempt %d failed: %v; retrying in %v]", msg.Attempt, msg.Err, msg.Delay))
		m.refreshIfSelected(msg.ID)

	case events.TaskCompletedEvent:
		task := m.ensure(msg.ID, msg.WorkerType)
		task.Status = statusCompleted
		task.Attempts = msg.Attempts
		task.Cached = msg.Cached
		task.Duration = msg.Duration
		if msg.Cached {
			task.Log = append(task.Log, "[served from cache]")
		}
		if msg.Output != nil {
			task.Log = append(task.Log, formatOutput(msg.Output))
		}
		task.Log = append(task.Log, fmt.Sprintf("[completed in %v]", msg.Duration))
		m.refreshIfSelected(msg.ID)

	case events.TaskFailedEvent:
		task := m.ensure(msg.ID, msg.WorkerType)
		task.Status = statusFailed
		task.Attempts = msg.Attempts
		task.Duration = msg.Duration
		task.Log = append(task.Log, fmt.Sprintf("[failed: %v]", msg.Err))
		m.refreshIfSelected(msg.ID)
	}

	return m, cmd
}

// ensure returns the state for taskID, creating it on first sight.
// Cached and skipped tasks never publish a start event.
func (m *TaskPaneModel) ensure(taskID, workerType string) *TaskState {
	if task, ok := m.tasks[taskID]; ok {
		return task
	}
	task := &TaskState{TaskID: taskID, WorkerType: workerType}
	m.tasks[taskID] = task
	m.taskOrder = append(m.taskOrder, taskID)
	if len(m.taskOrder) == 1 {
		m.selectedIdx = 0
	}
	return task
}

func (m *TaskPaneModel) refreshIfSelected(taskID string) {
	if m.selectedTaskID() == taskID {
		m.updateViewportContent()
	}
}

// View renders the task pane.
func (m TaskPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	viewportWidth := m.width - listWidth - 4

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderTaskList(listWidth),
		lipgloss.NewStyle().
			Width(viewportWidth).
			Height(m.height-2).
			Render(m.viewport.View()),
	)

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

func (m TaskPaneModel) renderTaskList(width int) string {
	var b strings.Builder

	title := StyleTitle.Render("Tasks")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", min(width, lipgloss.Width(title))))
	b.WriteString("\n\n")

	if len(m.taskOrder) == 0 {
		b.WriteString(StyleStatusPending.Render("Waiting..."))
	}
	for i, taskID := range m.taskOrder {
		task := m.tasks[taskID]
		name := task.TaskID
		if len(name) > width-6 {
			name = name[:width-9] + "..."
		}

		line := fmt.Sprintf("%s %s", StatusIcon(task.Status), name)
		if i == m.selectedIdx {
			line = StyleSelected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(m.height - 2).
		Render(b.String())
}

// StatusIcon returns a styled status indicator.
func StatusIcon(status string) string {
	switch status {
	case statusRunning:
		return StyleStatusRunning.Render("●")
	case statusRetrying:
		return StyleStatusRunning.Render("↻")
	case statusCompleted:
		return StyleStatusComplete.Render("✓")
	case statusFailed:
		return StyleStatusFailed.Render("✗")
	default:
		return StyleStatusPending.Render("○")
	}
}

func (m TaskPaneModel) selectedTaskID() string {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.taskOrder) {
		return m.taskOrder[m.selectedIdx]
	}
	return ""
}

// Task returns a copy of the state for taskID.
func (m TaskPaneModel) Task(taskID string) (TaskState, bool) {
	task, ok := m.tasks[taskID]
	if !ok {
		return TaskState{}, false
	}
	cp := *task
	cp.Log = append([]string(nil), task.Log...)
	return cp, true
}

func (m *TaskPaneModel) updateViewportContent() {
	task, ok := m.tasks[m.selectedTaskID()]
	if !ok {
		m.viewport.SetContent("Waiting for tasks...")
		return
	}

	m.viewport.SetContent(strings.Join(task.Log, "\n"))
	m.viewport.GotoBottom()
}

func (m *TaskPaneModel) resizeViewport() {
	m.viewport.Width = max(m.width-listWidth-4, 10)
	m.viewport.Height = max(m.height-4, 5)
}

// SetSize updates the pane dimensions.
func (m *TaskPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resizeViewport()
	m.updateViewportContent()
}

// SetFocused updates the focus state.
func (m *TaskPaneModel) SetFocused(focused bool) {
	m.focused = focused
}

func formatOutput(v any) string {
	s := fmt.Sprintf("%v", v)
	if len(s) > maxOutputLength {
		s = s[:maxOutputLength] + "..."
	}
	return s
}
