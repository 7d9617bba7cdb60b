// Package tui renders a live monitor for a coordinator run.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/taskcoord/internal/events"
)

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneTasks PaneID = iota
	PaneProgress
	paneCount
)

// RunFinishedMsg tells the monitor the batch has returned.
type RunFinishedMsg struct {
	Err error
}

// Model is the root Bubble Tea model for the run monitor.
type Model struct {
	taskPane     TaskPaneModel
	progressPane ProgressPaneModel
	focusedPane  PaneID
	eventSub     <-chan events.Event
	width        int
	height       int
	quitting     bool
	finished     bool
	runErr       error
}

// New creates a new monitor model subscribed to every event on bus.
func New(eventBus *events.EventBus) Model {
	return NewWithSubscription(eventBus.SubscribeAll(256))
}

// NewWithSubscription creates a monitor reading from an existing event channel.
func NewWithSubscription(sub <-chan events.Event) Model {
	m := Model{
		taskPane:     NewTaskPaneModel(),
		progressPane: NewProgressPaneModel(),
		focusedPane:  PaneTasks,
		eventSub:     sub,
	}
	m.updateFocusStates()
	return m
}

// Init initializes the model and returns the initial command.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.eventSub)
}

// waitForEvent returns a command that waits for the next event from the event bus.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil // bus closed
		}
		return event
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case KeyTab:
			m.focusedPane = (m.focusedPane + 1) % paneCount
			m.updateFocusStates()

		case KeyShiftTab:
			m.focusedPane = (m.focusedPane + paneCount - 1) % paneCount
			m.updateFocusStates()

		case KeyPane1:
			m.focusedPane = PaneTasks
			m.updateFocusStates()

		case KeyPane2:
			m.focusedPane = PaneProgress
			m.updateFocusStates()

		default:
			if m.focusedPane == PaneTasks {
				var cmd tea.Cmd
				m.taskPane, cmd = m.taskPane.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()

	case events.TaskStartedEvent, events.TaskRetryingEvent, events.TaskCompletedEvent, events.TaskFailedEvent:
		var cmd tea.Cmd
		m.taskPane, cmd = m.taskPane.Update(msg)
		cmds = append(cmds, cmd, waitForEvent(m.eventSub))

	case events.ProgressEvent:
		var cmd tea.Cmd
		m.progressPane, cmd = m.progressPane.Update(msg)
		cmds = append(cmds, cmd, waitForEvent(m.eventSub))

	case events.Event:
		// Unknown event types are consumed so the subscription keeps draining.
		cmds = append(cmds, waitForEvent(m.eventSub))

	case RunFinishedMsg:
		m.finished = true
		m.runErr = msg.Err
	}

	return m, tea.Batch(cmds...)
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, m.taskPane.View(), m.progressPane.View())
	return lipgloss.JoinVertical(lipgloss.Left, mainContent, m.statusLine())
}

func (m Model) statusLine() string {
	switch {
	case !m.finished:
		return HelpView()
	case m.runErr != nil:
		return StyleStatusFailed.Render(fmt.Sprintf("Run aborted: %v (q to exit)", m.runErr))
	default:
		return StyleBanner.Render("Run finished (q to exit)")
	}
}

// Finished reports whether RunFinishedMsg has been received.
func (m Model) Finished() bool {
	return m.finished
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	leftWidth := (m.width * 65) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 1 // help bar

	m.taskPane.SetSize(leftWidth, availableHeight)
	m.progressPane.SetSize(rightWidth, availableHeight)

	m.updateFocusStates()
}

// updateFocusStates updates the focus state of all panes.
func (m *Model) updateFocusStates() {
	m.taskPane.SetFocused(m.focusedPane == PaneTasks)
	m.progressPane.SetFocused(m.focusedPane == PaneProgress)
}
