package pomodoro

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// mutableDurations lets a test change settings between transitions
type mutableDurations struct {
	d Durations
}

func (m *mutableDurations) Duration(p Phase) time.Duration { return m.d.Duration(p) }

func newTestTimer(clock *fakeClock) *Timer {
	return New(Options{Durations: DefaultDurations(), Now: clock.Now})
}

func TestNew_InitialState(t *testing.T) {
	timer := newTestTimer(newFakeClock())

	want := State{Phase: PhaseWork, TimeRemaining: 1500}
	if diff := cmp.Diff(want, timer.State()); diff != "" {
		t.Errorf("initial state mismatch (-want +got):\n%s", diff)
	}
}

func TestTick_CountsDownToPhaseChange(t *testing.T) {
	for _, d := range []int{1, 2, 3, 59, 1500} {
		clock := newFakeClock()
		timer := New(Options{
			Durations: Durations{Work: time.Duration(d) * time.Second, ShortBreak: time.Minute, LongBreak: time.Minute},
			Now:       clock.Now,
		})
		timer.Start()

		for i := 0; i < d-1; i++ {
			timer.Tick()
			require.Equal(t, PhaseWork, timer.State().Phase, "duration %d: left work early at tick %d", d, i+1)
			require.True(t, timer.State().IsRunning)
		}
		timer.Tick()

		s := timer.State()
		assert.Equal(t, PhaseShortBreak, s.Phase, "duration %d", d)
		assert.Equal(t, 1, s.CyclesCompleted, "duration %d", d)
		assert.False(t, s.IsRunning, "duration %d", d)
	}
}

func TestTick_UpdatesLastTick(t *testing.T) {
	clock := newFakeClock()
	timer := newTestTimer(clock)
	timer.Start()

	clock.Advance(time.Second)
	timer.Tick()

	assert.Equal(t, 1499, timer.State().TimeRemaining)
	assert.True(t, timer.State().LastTick.Equal(clock.Now()))
}

func TestTick_NoOpWhilePaused(t *testing.T) {
	timer := newTestTimer(newFakeClock())

	before := timer.State()
	for i := 0; i < 10; i++ {
		timer.Tick()
	}
	assert.Equal(t, before, timer.State())

	timer.Start()
	timer.Tick()
	timer.Pause()
	paused := timer.State()
	timer.Tick()
	assert.Equal(t, paused.TimeRemaining, timer.State().TimeRemaining)
}

func TestCycles_LongBreakEveryFourth(t *testing.T) {
	timer := newTestTimer(newFakeClock())

	for n := 1; n <= 12; n++ {
		require.Equal(t, PhaseWork, timer.State().Phase)
		timer.Skip()

		s := timer.State()
		assert.Equal(t, n, s.CyclesCompleted)
		if n%4 == 0 {
			assert.Equal(t, PhaseLongBreak, s.Phase, "after cycle %d", n)
			assert.Equal(t, 900, s.TimeRemaining)
		} else {
			assert.Equal(t, PhaseShortBreak, s.Phase, "after cycle %d", n)
			assert.Equal(t, 300, s.TimeRemaining)
		}

		// Break -> Work never counts a cycle
		timer.Skip()
		assert.Equal(t, n, timer.State().CyclesCompleted)
	}
}

func TestSkip_FromWork(t *testing.T) {
	timer := newTestTimer(newFakeClock())
	timer.Start()
	timer.Skip()

	want := State{Phase: PhaseShortBreak, TimeRemaining: 300, CyclesCompleted: 1}
	got := timer.State()
	got.LastTick = time.Time{}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("state after skip (-want +got):\n%s", diff)
	}
}

func TestStartPause_Idempotent(t *testing.T) {
	clock := newFakeClock()
	timer := newTestTimer(clock)

	timer.Start()
	once := timer.State()
	clock.Advance(3 * time.Second)
	timer.Start()
	assert.Equal(t, once, timer.State())

	timer.Pause()
	paused := timer.State()
	timer.Pause()
	assert.Equal(t, paused, timer.State())
}

func TestReset(t *testing.T) {
	timer := newTestTimer(newFakeClock())
	timer.Skip()
	timer.Skip()
	timer.Skip()
	timer.Start()
	timer.Tick()
	require.Equal(t, PhaseShortBreak, timer.State().Phase)

	timer.Reset()

	s := timer.State()
	assert.Equal(t, PhaseWork, s.Phase)
	assert.Equal(t, 1500, s.TimeRemaining)
	assert.False(t, s.IsRunning)
	assert.Equal(t, 2, s.CyclesCompleted)
}

func TestSelectPhase_BypassesCycles(t *testing.T) {
	timer := newTestTimer(newFakeClock())
	var completions int
	timer.OnPhaseComplete(func(Transition) { completions++ })

	timer.Start()
	timer.SelectPhase(PhaseLongBreak)

	s := timer.State()
	assert.Equal(t, PhaseLongBreak, s.Phase)
	assert.Equal(t, 900, s.TimeRemaining)
	assert.False(t, s.IsRunning)
	assert.Equal(t, 0, s.CyclesCompleted)
	assert.Zero(t, completions)

	timer.SelectPhase(Phase("nap"))
	assert.Equal(t, PhaseLongBreak, timer.State().Phase)
}

func TestSetCurrentTask(t *testing.T) {
	timer := newTestTimer(newFakeClock())

	timer.SetCurrentTask("task-1")
	assert.Equal(t, "task-1", timer.State().CurrentTaskID)

	timer.SetCurrentTask("")
	assert.False(t, timer.State().HasTask())
}

func TestSyncTime_CompletesAtMostOnce(t *testing.T) {
	clock := newFakeClock()
	timer := NewFromState(State{
		Phase:         PhaseWork,
		TimeRemaining: 10,
		IsRunning:     true,
		LastTick:      clock.Now().Add(-15 * time.Second),
	}, Options{Now: clock.Now})

	var transitions []Transition
	timer.OnPhaseComplete(func(tr Transition) { transitions = append(transitions, tr) })

	timer.SyncTime()

	require.Len(t, transitions, 1)
	assert.Equal(t, CauseReconciled, transitions[0].Cause)
	s := timer.State()
	assert.Equal(t, PhaseShortBreak, s.Phase)
	assert.Equal(t, 1, s.CyclesCompleted)
	assert.False(t, s.IsRunning)
}

func TestSyncTime_CollapsesManyElapsedPhases(t *testing.T) {
	clock := newFakeClock()
	timer := NewFromState(State{
		Phase:         PhaseWork,
		TimeRemaining: 60,
		IsRunning:     true,
		LastTick:      clock.Now().Add(-3 * time.Hour),
	}, Options{Now: clock.Now})

	timer.SyncTime()

	s := timer.State()
	assert.Equal(t, 1, s.CyclesCompleted)
	assert.Equal(t, PhaseShortBreak, s.Phase)
	assert.Equal(t, 300, s.TimeRemaining)
}

func TestSyncTime_Partial(t *testing.T) {
	clock := newFakeClock()
	timer := NewFromState(State{
		Phase:         PhaseWork,
		TimeRemaining: 100,
		IsRunning:     true,
		LastTick:      clock.Now().Add(-30 * time.Second),
	}, Options{Now: clock.Now})

	timer.SyncTime()

	s := timer.State()
	assert.Equal(t, 70, s.TimeRemaining)
	assert.True(t, s.IsRunning)
	assert.True(t, s.LastTick.Equal(clock.Now()))
}

func TestSyncTime_NoOp(t *testing.T) {
	clock := newFakeClock()
	tests := []struct {
		name  string
		state State
	}{
		{"paused", State{Phase: PhaseWork, TimeRemaining: 100, LastTick: clock.Now().Add(-time.Minute)}},
		{"never ticked", State{Phase: PhaseWork, TimeRemaining: 100, IsRunning: true}},
		{"sub-second", State{Phase: PhaseWork, TimeRemaining: 100, IsRunning: true, LastTick: clock.Now().Add(-500 * time.Millisecond)}},
		{"clock skew", State{Phase: PhaseWork, TimeRemaining: 100, IsRunning: true, LastTick: clock.Now().Add(time.Hour)}},
	}

	for _, tt := range tests {
		timer := NewFromState(tt.state, Options{Now: clock.Now})
		timer.SyncTime()
		if diff := cmp.Diff(tt.state, timer.State()); diff != "" {
			t.Errorf("%s: state changed (-want +got):\n%s", tt.name, diff)
		}
	}
}

func TestDurations_ReadAtTransition(t *testing.T) {
	settings := &mutableDurations{d: DefaultDurations()}
	timer := New(Options{Durations: settings, Now: newFakeClock().Now})

	timer.Skip()
	require.Equal(t, PhaseShortBreak, timer.State().Phase)
	timer.Start()
	timer.Tick()
	require.Equal(t, 299, timer.State().TimeRemaining)

	settings.d.Work = 50 * time.Minute
	timer.Tick()
	assert.Equal(t, 298, timer.State().TimeRemaining, "current break must keep counting")

	timer.Skip()
	assert.Equal(t, PhaseWork, timer.State().Phase)
	assert.Equal(t, 3000, timer.State().TimeRemaining)
}

func TestTick_ClampsWhenCurrentPhaseShortened(t *testing.T) {
	settings := &mutableDurations{d: DefaultDurations()}
	timer := New(Options{Durations: settings, Now: newFakeClock().Now})
	timer.Start()

	settings.d.Work = 10 * time.Second
	timer.Tick()

	assert.Equal(t, 9, timer.State().TimeRemaining)
}

func TestDurations_FallbackBelowOneSecond(t *testing.T) {
	timer := New(Options{Durations: Durations{}, Now: newFakeClock().Now})
	assert.Equal(t, 1500, timer.State().TimeRemaining)
}

func TestNewFromState_Sanitizes(t *testing.T) {
	timer := NewFromState(State{Phase: "nap", TimeRemaining: 5, CyclesCompleted: 3}, Options{})
	assert.Equal(t, InitialState(DefaultDurations()), timer.State())

	timer = NewFromState(State{Phase: PhaseShortBreak, TimeRemaining: 99999, CyclesCompleted: -2}, Options{})
	assert.Equal(t, 300, timer.State().TimeRemaining)
	assert.Equal(t, 0, timer.State().CyclesCompleted)
}

func TestListeners(t *testing.T) {
	timer := newTestTimer(newFakeClock())
	timer.SetCurrentTask("t-42")

	var changes int
	var transitions []Transition
	timer.OnChange(func(State) { changes++ })
	timer.OnPhaseComplete(func(tr Transition) { transitions = append(transitions, tr) })

	timer.Pause() // already paused: no change
	assert.Zero(t, changes)

	timer.Start()
	timer.Skip()
	timer.Skip()

	assert.Equal(t, 3, changes)
	require.Len(t, transitions, 2)
	assert.Equal(t, Transition{
		From: PhaseWork, To: PhaseShortBreak, CyclesCompleted: 1, TaskID: "t-42", Cause: CauseSkipped, At: transitions[0].At,
	}, transitions[0])
	assert.True(t, transitions[0].LeftWork())
	assert.False(t, transitions[1].LeftWork())
}
