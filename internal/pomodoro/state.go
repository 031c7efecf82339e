package pomodoro

import (
	"fmt"
	"time"
)

// State is the complete timer state. It is also the persisted representation.
type State struct {
	Phase           Phase     `json:"phase"`
	TimeRemaining   int       `json:"time_remaining_seconds"`
	IsRunning       bool      `json:"is_running"`
	CyclesCompleted int       `json:"cycles_completed"`
	CurrentTaskID   string    `json:"current_task_id,omitempty"`
	LastTick        time.Time `json:"last_tick"`
}

// InitialState returns the state of a timer that has never run
func InitialState(src DurationSource) State {
	return State{
		Phase:         PhaseWork,
		TimeRemaining: phaseSeconds(src, PhaseWork),
	}
}

// HasTask reports whether a task is in focus
func (s State) HasTask() bool {
	return s.CurrentTaskID != ""
}

// Cause describes why a phase completed
type Cause string

const (
	CauseExpired    Cause = "expired"
	CauseSkipped    Cause = "skipped"
	CauseReconciled Cause = "reconciled"
)

// Transition describes one phase completion
type Transition struct {
	From            Phase     `json:"from"`
	To              Phase     `json:"to"`
	CyclesCompleted int       `json:"cycles_completed"`
	TaskID          string    `json:"task_id,omitempty"`
	Cause           Cause     `json:"cause"`
	At              time.Time `json:"at"`
}

// LeftWork reports whether the transition ended a work phase
func (t Transition) LeftWork() bool {
	return t.From == PhaseWork
}

// Announcement returns the title and body shown to the user when the
// transition happens.
func (t Transition) Announcement() (title, body string) {
	switch {
	case t.LeftWork() && t.To == PhaseLongBreak:
		return "Long break!", fmt.Sprintf("You completed %d cycles! Rest well.", CyclesPerLongBreak)
	case t.LeftWork():
		return "Break time!", "Take a short rest before the next focus."
	default:
		return "Time to focus!", "Let's get back to work."
	}
}

// FormatClock renders seconds as MM:SS
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Progress returns how much of the current phase has elapsed, in [0, 1]
func Progress(s State, src DurationSource) float64 {
	total := phaseSeconds(src, s.Phase)
	progress := float64(total-s.TimeRemaining) / float64(total)
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}
