package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hochfrequenz/fiztarefa/internal/domain"
	"github.com/hochfrequenz/fiztarefa/internal/pomodoro"
)

const progressWidth = 40

var (
	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	clockStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Padding(1, 4)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Underline(true)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	dimmedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	toastStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255"))

	// phase accent colors, matching work/short/long in the web UI
	phaseColors = map[pomodoro.Phase]lipgloss.Color{
		pomodoro.PhaseWork:       lipgloss.Color("203"),
		pomodoro.PhaseShortBreak: lipgloss.Color("42"),
		pomodoro.PhaseLongBreak:  lipgloss.Color("39"),
	}
)

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	header := fmt.Sprintf(" FizTarefa │ %s │ %d pomodoros completed ",
		m.status.Label, m.status.State.CyclesCompleted)
	b.WriteString(headerStyle.Width(m.width).Render(header))
	b.WriteString("\n")

	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	switch m.activeTab {
	case tabTimer:
		b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderTimer()))
	case tabTasks:
		b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderTasks()))
	}
	b.WriteString("\n")

	if m.toast != "" {
		b.WriteString(toastStyle.Render(" " + m.toast))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(" Error: " + m.err.Error()))
		b.WriteString("\n")
	}

	var statusBar string
	if m.activeTab == tabTasks {
		statusBar = " [tab]timer [j/k]move [enter]focus [x]clear focus [space]start/pause [q]uit "
	} else {
		statusBar = " [space]start/pause [r]eset [s]kip [1/2/3]phase [tab]tasks [x]clear focus [q]uit "
	}
	b.WriteString(statusBarStyle.Width(m.width).Render(statusBar))

	return b.String()
}

func (m Model) renderTabs() string {
	tabs := []string{"Timer", "Tasks"}
	var parts []string

	for i, tab := range tabs {
		if i == m.activeTab {
			parts = append(parts, tabActiveStyle.Render(fmt.Sprintf(" %s ", tab)))
		} else {
			parts = append(parts, tabInactiveStyle.Render(fmt.Sprintf(" %s ", tab)))
		}
	}

	return strings.Join(parts, "│")
}

func (m Model) renderTimer() string {
	var b strings.Builder
	state := m.status.State

	// Phase selector
	var phases []string
	for i, p := range pomodoro.Phases() {
		label := fmt.Sprintf("%d %s", i+1, p.Label())
		if p == state.Phase {
			phases = append(phases, tabActiveStyle.Foreground(phaseColors[p]).Render(label))
		} else {
			phases = append(phases, tabInactiveStyle.Render(label))
		}
	}
	b.WriteString(strings.Join(phases, "   "))
	b.WriteString("\n")

	b.WriteString(clockStyle.Foreground(phaseColors[state.Phase]).Render(m.status.Clock))
	b.WriteString("\n")

	b.WriteString(renderProgress(m.status.Progress, progressWidth))
	b.WriteString("\n\n")

	if state.IsRunning {
		b.WriteString(runningStyle.Render("● running"))
	} else {
		b.WriteString(pausedStyle.Render("■ paused"))
	}
	b.WriteString("   ")
	b.WriteString(renderCycleDots(m.status.CycleInSet))
	b.WriteString("\n")

	switch {
	case m.status.Task != nil:
		b.WriteString(fmt.Sprintf("Focusing on: %s %s", m.status.Task.Title,
			dimmedStyle.Render(fmt.Sprintf("(%d pomodoros)", m.status.Task.PomodorosCompleted))))
	case state.HasTask():
		b.WriteString(dimmedStyle.Render("Focused task no longer exists"))
	default:
		b.WriteString(dimmedStyle.Render("No task selected"))
	}

	return b.String()
}

// renderProgress draws a bar of width cells for progress in [0,1]
func renderProgress(progress float64, width int) string {
	filled := int(progress * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + dimmedStyle.Render(strings.Repeat("░", width-filled))
}

// renderCycleDots shows how far the current set of four work phases is
func renderCycleDots(inSet int) string {
	var b strings.Builder
	for i := 0; i < pomodoro.CyclesPerLongBreak; i++ {
		if i < inSet {
			b.WriteString(runningStyle.Render("●"))
		} else {
			b.WriteString(dimmedStyle.Render("○"))
		}
	}
	return b.String()
}

func (m Model) renderTasks() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("TASKS"))
	b.WriteString("\n")

	if len(m.tasks) == 0 {
		b.WriteString(dimmedStyle.Render("  No open tasks. Run 'fiztarefa task add <title>' to create one."))
		return b.String()
	}

	maxVisible := m.height - 10
	if maxVisible < 5 {
		maxVisible = 5
	}
	start := 0
	if m.selectedRow >= maxVisible {
		start = m.selectedRow - maxVisible + 1
	}
	end := min(start+maxVisible, len(m.tasks))

	for i := start; i < end; i++ {
		b.WriteString(m.renderTaskRow(i, m.tasks[i]))
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) renderTaskRow(i int, task *domain.Task) string {
	cursor := "  "
	if i == m.selectedRow {
		cursor = "> "
	}
	marker := " "
	if task.ID == m.status.State.CurrentTaskID {
		marker = runningStyle.Render("▶")
	}
	row := fmt.Sprintf("%s%s %s  %s %s", cursor, marker,
		dimmedStyle.Render(task.ShortID()), task.Title,
		dimmedStyle.Render(fmt.Sprintf("×%d", task.PomodorosCompleted)))
	if i == m.selectedRow {
		return lipgloss.NewStyle().Bold(true).Render(row)
	}
	return row
}
