package pomodoro

import "time"

// Options configures a Timer
type Options struct {
	// Durations is read on every transition. Nil means the defaults.
	Durations DurationSource
	// Now is the wall clock. Nil means time.Now.
	Now func() time.Time
}

// Timer is the Pomodoro phase state machine.
//
// A Timer is not safe for concurrent use; Runner serializes access to it.
// Listeners run synchronously inside the mutating call and must not call
// back into the Timer.
type Timer struct {
	state     State
	durations DurationSource
	now       func() time.Time

	onChange   []func(State)
	onComplete []func(Transition)
}

// New creates a Timer in its initial state
func New(opts Options) *Timer {
	t := newTimer(opts)
	t.state = InitialState(t.durations)
	return t
}

// NewFromState creates a Timer resuming from a previously persisted state.
// An invalid phase falls back to the initial state; the remaining time is
// clamped into the phase's range.
func NewFromState(s State, opts Options) *Timer {
	t := newTimer(opts)
	if !s.Phase.Valid() {
		t.state = InitialState(t.durations)
		return t
	}
	if s.CyclesCompleted < 0 {
		s.CyclesCompleted = 0
	}
	if s.TimeRemaining < 0 {
		s.TimeRemaining = 0
	}
	if limit := phaseSeconds(t.durations, s.Phase); s.TimeRemaining > limit {
		s.TimeRemaining = limit
	}
	t.state = s
	return t
}

func newTimer(opts Options) *Timer {
	if opts.Durations == nil {
		opts.Durations = DefaultDurations()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Timer{
		durations: opts.Durations,
		now:       opts.Now,
	}
}

// OnChange registers a listener called with the new state after every mutation
func (t *Timer) OnChange(fn func(State)) {
	t.onChange = append(t.onChange, fn)
}

// OnPhaseComplete registers a listener called after every phase completion
func (t *Timer) OnPhaseComplete(fn func(Transition)) {
	t.onComplete = append(t.onComplete, fn)
}

// State returns a copy of the current state
func (t *Timer) State() State {
	return t.state
}

// Start sets the timer running. Calling it while running changes nothing.
func (t *Timer) Start() {
	if t.state.IsRunning {
		return
	}
	t.mutate(func(s *State) {
		s.IsRunning = true
		s.LastTick = t.now()
	})
}

// Pause stops the countdown
func (t *Timer) Pause() {
	t.mutate(func(s *State) {
		s.IsRunning = false
	})
}

// Reset returns to a stopped work phase at full length. Cycles are kept.
func (t *Timer) Reset() {
	t.mutate(func(s *State) {
		s.Phase = PhaseWork
		s.TimeRemaining = phaseSeconds(t.durations, PhaseWork)
		s.IsRunning = false
	})
}

// Tick advances a running timer by one second, completing the phase when
// the countdown would reach zero.
func (t *Timer) Tick() {
	if !t.state.IsRunning {
		return
	}
	remaining := t.state.TimeRemaining
	if limit := phaseSeconds(t.durations, t.state.Phase); remaining > limit {
		remaining = limit
	}
	if remaining-1 <= 0 {
		t.completePhase(CauseExpired)
		return
	}
	t.mutate(func(s *State) {
		s.TimeRemaining = remaining - 1
		s.LastTick = t.now()
	})
}

// Skip completes the current phase immediately
func (t *Timer) Skip() {
	t.completePhase(CauseSkipped)
}

// SetCurrentTask points the timer at a task. An empty id clears it. The id
// is not validated.
func (t *Timer) SetCurrentTask(taskID string) {
	t.mutate(func(s *State) {
		s.CurrentTaskID = taskID
	})
}

// SelectPhase jumps to p at full length and stops the timer. Cycle
// accounting is untouched and no completion is reported.
func (t *Timer) SelectPhase(p Phase) {
	if !p.Valid() {
		return
	}
	t.mutate(func(s *State) {
		s.Phase = p
		s.TimeRemaining = phaseSeconds(t.durations, p)
		s.IsRunning = false
	})
}

// SyncTime reconciles a running timer with the wall clock after a period
// without ticks. At most one phase completion is synthesized; time past the
// end of the current phase is discarded.
func (t *Timer) SyncTime() {
	if !t.state.IsRunning || t.state.LastTick.IsZero() {
		return
	}
	now := t.now()
	elapsed := int(now.Sub(t.state.LastTick) / time.Second)
	if elapsed <= 0 {
		return
	}
	if elapsed >= t.state.TimeRemaining {
		t.completePhase(CauseReconciled)
		return
	}
	t.mutate(func(s *State) {
		s.TimeRemaining -= elapsed
		s.LastTick = now
	})
}

func (t *Timer) completePhase(cause Cause) {
	from := t.state.Phase
	now := t.now()

	t.mutate(func(s *State) {
		next := PhaseWork
		if from == PhaseWork {
			s.CyclesCompleted++
			next = PhaseShortBreak
			if s.CyclesCompleted%CyclesPerLongBreak == 0 {
				next = PhaseLongBreak
			}
		}
		s.Phase = next
		s.TimeRemaining = phaseSeconds(t.durations, next)
		s.IsRunning = false
		s.LastTick = now
	})

	tr := Transition{
		From:            from,
		To:              t.state.Phase,
		CyclesCompleted: t.state.CyclesCompleted,
		TaskID:          t.state.CurrentTaskID,
		Cause:           cause,
		At:              now,
	}
	for _, fn := range t.onComplete {
		fn(tr)
	}
}

func (t *Timer) mutate(fn func(s *State)) {
	before := t.state
	fn(&t.state)
	if t.state == before {
		return
	}
	for _, l := range t.onChange {
		l(t.state)
	}
}
