package pomodoro

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrStopped is returned by commands submitted after the runner has exited
var ErrStopped = errors.New("timer runner stopped")

// ErrAlreadyRunning is returned when Run is called twice
var ErrAlreadyRunning = errors.New("timer runner already running")

// Event is published to subscribers after every step that changed the timer
type Event struct {
	State      State       `json:"state"`
	Transition *Transition `json:"transition,omitempty"`
}

// RunnerOptions configures a Runner
type RunnerOptions struct {
	TickInterval time.Duration
	// AutoStart is consulted after every phase completion; when it returns
	// true the next phase starts immediately.
	AutoStart func() bool
	Logger    *zap.Logger
}

// Runner owns a Timer and drives it from a single goroutine. Ticks and
// commands are executed strictly one after another.
type Runner struct {
	timer    *Timer
	options  RunnerOptions
	logger   *zap.Logger
	commands chan func(*Timer)
	done     chan struct{}
	started  atomic.Bool

	// loop goroutine only
	ticker     *time.Ticker
	changed    bool
	transition *Transition

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewRunner wraps timer. The runner must be the only caller of timer's
// methods once Run has been called.
func NewRunner(timer *Timer, options RunnerOptions) *Runner {
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Runner{
		timer:    timer,
		options:  options,
		logger:   logger,
		commands: make(chan func(*Timer)),
		done:     make(chan struct{}),
		subs:     make(map[chan Event]struct{}),
	}
	timer.OnChange(func(State) {
		r.changed = true
	})
	timer.OnPhaseComplete(func(tr Transition) {
		r.transition = &tr
	})
	return r
}

// Run drives the timer until ctx is cancelled. The ticker is stopped and all
// subscriptions are closed before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer r.shutdown()

	ticker := time.NewTicker(r.options.TickInterval)
	defer ticker.Stop()
	r.ticker = ticker

	r.logger.Debug("timer runner started", zap.Duration("tick_interval", r.options.TickInterval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("timer runner stopped")
			return nil
		case <-ticker.C:
			r.step((*Timer).Tick)
		case cmd := <-r.commands:
			r.step(cmd)
		}
	}
}

// Do executes fn on the runner goroutine and waits for it to finish
func (r *Runner) Do(ctx context.Context, fn func(*Timer)) error {
	finished := make(chan struct{})
	wrapped := func(t *Timer) {
		defer close(finished)
		fn(t)
	}

	select {
	case r.commands <- wrapped:
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// Snapshot returns the current timer state
func (r *Runner) Snapshot(ctx context.Context) (State, error) {
	var s State
	err := r.Do(ctx, func(t *Timer) { s = t.State() })
	return s, err
}

// Start resumes the countdown
func (r *Runner) Start(ctx context.Context) error {
	return r.Do(ctx, (*Timer).Start)
}

// Pause halts the countdown
func (r *Runner) Pause(ctx context.Context) error {
	return r.Do(ctx, (*Timer).Pause)
}

// Reset returns to a stopped work phase
func (r *Runner) Reset(ctx context.Context) error {
	return r.Do(ctx, (*Timer).Reset)
}

// Skip completes the current phase immediately
func (r *Runner) Skip(ctx context.Context) error {
	return r.Do(ctx, (*Timer).Skip)
}

// SelectPhase jumps to the given phase
func (r *Runner) SelectPhase(ctx context.Context, p Phase) error {
	if !p.Valid() {
		return ErrUnknownPhase
	}
	return r.Do(ctx, func(t *Timer) { t.SelectPhase(p) })
}

// SetCurrentTask focuses a task; an empty id clears the focus
func (r *Runner) SetCurrentTask(ctx context.Context, taskID string) error {
	return r.Do(ctx, func(t *Timer) { t.SetCurrentTask(taskID) })
}

// Subscribe returns a channel receiving an Event after every change. Sends
// never block: a subscriber that falls behind misses events. The returned
// function cancels the subscription.
func (r *Runner) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	r.mu.Lock()
	select {
	case <-r.done:
		close(ch)
		r.mu.Unlock()
		return ch, func() {}
	default:
	}
	r.subs[ch] = struct{}{}
	r.mu.Unlock()

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.subs[ch]; ok {
			delete(r.subs, ch)
			close(ch)
		}
	}
}

// Done is closed once Run has returned
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) step(fn func(*Timer)) {
	r.changed = false
	r.transition = nil
	wasRunning := r.timer.state.IsRunning

	fn(r.timer)

	tr := r.transition
	if tr != nil {
		r.logger.Info("phase completed",
			zap.String("from", string(tr.From)),
			zap.String("to", string(tr.To)),
			zap.Int("cycles", tr.CyclesCompleted),
			zap.String("cause", string(tr.Cause)))
		if r.options.AutoStart != nil && r.options.AutoStart() {
			r.timer.Start()
		}
	}

	// A countdown that (re)starts gets a full interval before its first tick
	if r.timer.state.IsRunning && (!wasRunning || tr != nil) && r.ticker != nil {
		r.ticker.Reset(r.options.TickInterval)
	}

	if !r.changed && tr == nil {
		return
	}
	r.publish(Event{State: r.timer.State(), Transition: tr})
}

func (r *Runner) publish(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (r *Runner) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	close(r.done)
	for ch := range r.subs {
		close(ch)
		delete(r.subs, ch)
	}
}
