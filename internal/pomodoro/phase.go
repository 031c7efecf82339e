package pomodoro

import (
	"errors"
	"fmt"
	"time"
)

// Phase is the timer's current mode
type Phase string

const (
	PhaseWork       Phase = "work"
	PhaseShortBreak Phase = "short-break"
	PhaseLongBreak  Phase = "long-break"
)

// CyclesPerLongBreak is the number of completed work phases that earn a long break
const CyclesPerLongBreak = 4

// Default phase durations
const (
	DefaultWork       = 25 * time.Minute
	DefaultShortBreak = 5 * time.Minute
	DefaultLongBreak  = 15 * time.Minute
)

// ErrUnknownPhase is returned when parsing a phase name fails
var ErrUnknownPhase = errors.New("unknown phase")

// Phases lists every phase in display order
func Phases() []Phase {
	return []Phase{PhaseWork, PhaseShortBreak, PhaseLongBreak}
}

// ParsePhase parses a phase name such as "short-break"
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPhase, s)
	}
	return p, nil
}

// Valid reports whether p is one of the three known phases
func (p Phase) Valid() bool {
	switch p {
	case PhaseWork, PhaseShortBreak, PhaseLongBreak:
		return true
	}
	return false
}

// IsBreak reports whether p is a short or long break
func (p Phase) IsBreak() bool {
	return p == PhaseShortBreak || p == PhaseLongBreak
}

// Label returns a human-readable label
func (p Phase) Label() string {
	switch p {
	case PhaseWork:
		return "Focus"
	case PhaseShortBreak:
		return "Short break"
	case PhaseLongBreak:
		return "Long break"
	default:
		return "Unknown"
	}
}

func (p Phase) String() string {
	return string(p)
}

// DurationSource reports the configured length of a phase. It is consulted
// on every transition, so implementations may change between calls.
type DurationSource interface {
	Duration(p Phase) time.Duration
}

// Durations is a fixed DurationSource
type Durations struct {
	Work       time.Duration
	ShortBreak time.Duration
	LongBreak  time.Duration
}

// DefaultDurations returns the classic 25/5/15 minute schedule
func DefaultDurations() Durations {
	return Durations{
		Work:       DefaultWork,
		ShortBreak: DefaultShortBreak,
		LongBreak:  DefaultLongBreak,
	}
}

// Duration implements DurationSource
func (d Durations) Duration(p Phase) time.Duration {
	switch p {
	case PhaseShortBreak:
		return d.ShortBreak
	case PhaseLongBreak:
		return d.LongBreak
	default:
		return d.Work
	}
}

// phaseSeconds resolves the duration of p in whole seconds, falling back to
// the default when the source reports less than one second.
func phaseSeconds(src DurationSource, p Phase) int {
	var d time.Duration
	if src != nil {
		d = src.Duration(p)
	}
	if d < time.Second {
		d = DefaultDurations().Duration(p)
	}
	return int(d / time.Second)
}
