package focus

import (
	"context"
	"time"

	"github.com/hochfrequenz/fiztarefa/internal/domain"
	"github.com/hochfrequenz/fiztarefa/internal/pomodoro"
	"github.com/hochfrequenz/fiztarefa/internal/settings"
	"github.com/hochfrequenz/fiztarefa/internal/taskstore"
)

// Status is a presentation snapshot of the timer
type Status struct {
	State      pomodoro.State    `json:"state"`
	Label      string            `json:"label"`
	Clock      string            `json:"clock"`
	Progress   float64           `json:"progress"`
	CycleInSet int               `json:"cycle_in_set"`
	Settings   settings.Settings `json:"settings"`
	Task       *domain.Task      `json:"task,omitempty"`
	NextFocus  *time.Time        `json:"next_focus,omitempty"`
}

// Status returns the current timer snapshot from the runner
func (s *Session) Status(ctx context.Context) (Status, error) {
	state, err := s.runner.Snapshot(ctx)
	if err != nil {
		return Status{}, err
	}
	return s.Describe(state), nil
}

// Describe decorates a timer state with the derived display values
func (s *Session) Describe(state pomodoro.State) Status {
	return Describe(state, s.settings, s.store, s.schedule)
}

// Describe builds a Status without a running session. A focused task that
// no longer exists is left out. schedule may be nil.
func Describe(state pomodoro.State, prefs *settings.Store, store *taskstore.Store, schedule *Schedule) Status {
	st := Status{
		State:      state,
		Label:      state.Phase.Label(),
		Clock:      pomodoro.FormatClock(state.TimeRemaining),
		Progress:   pomodoro.Progress(state, prefs),
		CycleInSet: state.CyclesCompleted % pomodoro.CyclesPerLongBreak,
		Settings:   prefs.Get(),
	}
	if state.HasTask() {
		if task, err := store.GetTask(state.CurrentTaskID); err == nil {
			st.Task = task
		}
	}
	if next := schedule.NextRun(); !next.IsZero() {
		st.NextFocus = &next
	}
	return st
}
