package tui

import (
	"context"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hochfrequenz/fiztarefa/internal/domain"
	"github.com/hochfrequenz/fiztarefa/internal/focus"
	"github.com/hochfrequenz/fiztarefa/internal/pomodoro"
)

const (
	tabTimer = iota
	tabTasks
	tabCount
)

// toastTTL is how long a phase announcement stays on screen
const toastTTL = 8 * time.Second

// Controller is what the TUI needs from the running session
type Controller interface {
	Start(ctx context.Context) error
	Pause(ctx context.Context) error
	Reset(ctx context.Context) error
	Skip(ctx context.Context) error
	SelectPhase(ctx context.Context, p pomodoro.Phase) error
	FocusTask(ctx context.Context, id string) (*domain.Task, error)
	Status(ctx context.Context) (focus.Status, error)
	Describe(state pomodoro.State) focus.Status
	OpenTasks() ([]*domain.Task, error)
}

// Model is the TUI application model
type Model struct {
	ctrl   Controller
	events <-chan pomodoro.Event
	bell   io.Writer

	// Data
	status focus.Status
	tasks  []*domain.Task

	// Feedback
	toast   string
	toastAt time.Time
	err     error

	// UI state
	width       int
	height      int
	activeTab   int
	selectedRow int
}

// ModelConfig holds the collaborators of the TUI model
type ModelConfig struct {
	Controller Controller
	Events     <-chan pomodoro.Event
	Initial    focus.Status
	Bell       io.Writer // receives the terminal bell; defaults to stderr
}

// NewModel creates a new TUI model
func NewModel(cfg ModelConfig) Model {
	bell := cfg.Bell
	if bell == nil {
		bell = os.Stderr
	}
	return Model{
		ctrl:   cfg.Controller,
		events: cfg.Events,
		bell:   bell,
		status: cfg.Initial,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		waitForEvent(m.events),
		m.loadTasks(),
	)
}

// TickMsg expires stale toasts
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// EventMsg carries a timer event from the runner
type EventMsg pomodoro.Event

// StoppedMsg is sent when the runner closed the event stream
type StoppedMsg struct{}

func waitForEvent(events <-chan pomodoro.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return StoppedMsg{}
		}
		return EventMsg(ev)
	}
}

// StatusMsg carries a fresh status after a command
type StatusMsg struct {
	Status focus.Status
	Err    error
}

// TasksMsg carries the open task list
type TasksMsg struct {
	Tasks []*domain.Task
	Err   error
}

func (m Model) loadTasks() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		tasks, err := ctrl.OpenTasks()
		return TasksMsg{Tasks: tasks, Err: err}
	}
}

// command runs fn off the UI goroutine and reports the resulting status
func (m Model) command(fn func(ctx context.Context) error) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			return StatusMsg{Err: err}
		}
		st, err := ctrl.Status(ctx)
		return StatusMsg{Status: st, Err: err}
	}
}

// SelectedTask returns the task under the cursor on the tasks tab
func (m Model) SelectedTask() *domain.Task {
	if m.selectedRow < 0 || m.selectedRow >= len(m.tasks) {
		return nil
	}
	return m.tasks[m.selectedRow]
}
