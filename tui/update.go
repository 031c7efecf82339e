package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hochfrequenz/fiztarefa/internal/pomodoro"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		if m.toast != "" && time.Time(msg).Sub(m.toastAt) > toastTTL {
			m.toast = ""
		}
		return m, tickCmd()

	case EventMsg:
		m.status = m.ctrl.Describe(msg.State)
		cmds := []tea.Cmd{waitForEvent(m.events)}
		if tr := msg.Transition; tr != nil {
			title, body := tr.Announcement()
			m.toast = title + " " + body
			m.toastAt = tr.At
			if m.status.Settings.SoundEnabled {
				fmt.Fprint(m.bell, "\a")
			}
			if tr.LeftWork() && tr.TaskID != "" {
				cmds = append(cmds, m.loadTasks())
			}
		}
		return m, tea.Batch(cmds...)

	case StoppedMsg:
		return m, tea.Quit

	case StatusMsg:
		m.err = msg.Err
		if msg.Err == nil {
			m.status = msg.Status
		}

	case TasksMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.tasks = msg.Tasks
		if m.selectedRow >= len(m.tasks) {
			m.selectedRow = max(len(m.tasks)-1, 0)
		}
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.ctrl

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		if m.status.State.IsRunning {
			return m, m.command(ctrl.Pause)
		}
		return m, m.command(ctrl.Start)
	case "r":
		return m, m.command(ctrl.Reset)
	case "s":
		return m, m.command(ctrl.Skip)
	case "1", "2", "3":
		phase := pomodoro.Phases()[msg.String()[0]-'1']
		return m, m.command(func(ctx context.Context) error {
			return ctrl.SelectPhase(ctx, phase)
		})
	case "tab":
		m.activeTab = (m.activeTab + 1) % tabCount
		if m.activeTab == tabTasks {
			return m, m.loadTasks()
		}
	case "j", "down":
		if m.activeTab == tabTasks && m.selectedRow < len(m.tasks)-1 {
			m.selectedRow++
		}
	case "k", "up":
		if m.activeTab == tabTasks && m.selectedRow > 0 {
			m.selectedRow--
		}
	case "enter":
		if m.activeTab != tabTasks {
			return m, nil
		}
		if task := m.SelectedTask(); task != nil {
			id := task.ID
			return m, m.command(func(ctx context.Context) error {
				_, err := ctrl.FocusTask(ctx, id)
				return err
			})
		}
	case "x":
		return m, m.command(func(ctx context.Context) error {
			_, err := ctrl.FocusTask(ctx, "")
			return err
		})
	}

	return m, nil
}
