package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/taskcoord/internal/events"
)

// ProgressPaneModel shows the run's aggregate counters and a progress bar.
type ProgressPaneModel struct {
	runID      string
	total      int
	completed  int
	running    int
	failed     int
	percentage float64
	width      int
	height     int
	focused    bool
}

// NewProgressPaneModel creates an empty progress pane.
func NewProgressPaneModel() ProgressPaneModel {
	return ProgressPaneModel{}
}

// Update handles messages for the progress pane.
func (m ProgressPaneModel) Update(msg tea.Msg) (ProgressPaneModel, tea.Cmd) {
	if msg, ok := msg.(events.ProgressEvent); ok {
		m.runID = msg.RunID
		m.total = msg.Total
		m.completed = msg.Completed
		m.running = msg.Running
		m.failed = msg.Failed
		m.percentage = msg.Percentage
	}
	return m, nil
}

// Pending returns the number of tasks not yet dispatched or finished.
func (m ProgressPaneModel) Pending() int {
	return max(0, m.total-m.completed-m.failed-m.running)
}

// View renders the progress pane.
func (m ProgressPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Progress")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	if m.runID != "" {
		b.WriteString(StyleStatusPending.Render("run " + m.runID))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Total:     %d\n", m.total)
	fmt.Fprintf(&b, "Completed: %s\n", StyleStatusComplete.Render(fmt.Sprint(m.completed)))
	fmt.Fprintf(&b, "Running:   %s\n", StyleStatusRunning.Render(fmt.Sprint(m.running)))
	fmt.Fprintf(&b, "Failed:    %s\n", StyleStatusFailed.Render(fmt.Sprint(m.failed)))
	fmt.Fprintf(&b, "Pending:   %s\n", StyleStatusPending.Render(fmt.Sprint(m.Pending())))
	b.WriteString("\n")

	if m.total > 0 {
		barWidth := min(m.width-12, 40)
		completedWidth := (m.completed * barWidth) / m.total
		failedWidth := (m.failed * barWidth) / m.total
		runningWidth := (m.running * barWidth) / m.total
		pendingWidth := barWidth - completedWidth - failedWidth - runningWidth

		bar := StyleStatusComplete.Render(strings.Repeat("=", max(0, completedWidth)))
		bar += StyleStatusFailed.Render(strings.Repeat("!", max(0, failedWidth)))
		bar += StyleStatusRunning.Render(strings.Repeat("-", max(0, runningWidth)))
		bar += StyleStatusPending.Render(strings.Repeat(".", max(0, pendingWidth)))

		fmt.Fprintf(&b, "[%s] %5.1f%%\n", bar, m.percentage)
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

// SetSize updates the pane dimensions.
func (m *ProgressPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *ProgressPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
