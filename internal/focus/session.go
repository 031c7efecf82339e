// Package focus wires the pomodoro timer to the task store, the user's
// settings and notifications.
package focus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hochfrequenz/fiztarefa/internal/config"
	"github.com/hochfrequenz/fiztarefa/internal/domain"
	"github.com/hochfrequenz/fiztarefa/internal/notify"
	"github.com/hochfrequenz/fiztarefa/internal/pomodoro"
	"github.com/hochfrequenz/fiztarefa/internal/settings"
	"github.com/hochfrequenz/fiztarefa/internal/taskstore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configures a Session
type Options struct {
	DatabasePath  string
	SettingsPath  string // empty keeps settings in memory
	FocusSchedule []string
	WatchSettings bool
	Notifier      notify.Notifier
	Logger        *zap.Logger
	Now           func() time.Time
	TickInterval  time.Duration
}

// OptionsFromConfig derives session options from the application config
func OptionsFromConfig(cfg *config.Config, logger *zap.Logger) Options {
	return Options{
		DatabasePath:  cfg.DatabasePath(),
		SettingsPath:  cfg.SettingsPath(),
		FocusSchedule: cfg.Schedule.Focus,
		Notifier: notify.NewMultiNotifier(
			notify.NewDesktopNotifier(cfg.Notifications.Desktop),
			notify.NewSlackNotifier(cfg.Notifications.SlackWebhook),
		),
		Logger: logger,
	}
}

// Session owns everything one process needs to run the timer. Create one
// per process and hand it to the UI or the web server.
type Session struct {
	store    *taskstore.Store
	settings *settings.Store
	runner   *pomodoro.Runner
	schedule *Schedule
	notes    *dispatcher
	logger   *zap.Logger
	now      func() time.Time
	watch    bool
}

// Open loads the stores, restores the persisted timer and reconciles it with
// the time that passed while no process was running.
func Open(opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	if opts.DatabasePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(opts.DatabasePath), 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	store, err := taskstore.New(opts.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening task store: %w", err)
	}

	var prefs *settings.Store
	if opts.SettingsPath == "" {
		prefs = settings.NewMemory(settings.Default())
	} else {
		prefs, err = settings.Open(opts.SettingsPath)
		if err != nil {
			logger.Warn("loading settings, using defaults", zap.String("path", opts.SettingsPath), zap.Error(err))
		}
	}

	schedule, err := NewSchedule(opts.FocusSchedule, now)
	if err != nil {
		store.Close()
		return nil, err
	}

	s := &Session{
		store:    store,
		settings: prefs,
		schedule: schedule,
		notes:    newDispatcher(opts.Notifier, logger),
		logger:   logger,
		now:      now,
		watch:    opts.WatchSettings && opts.SettingsPath != "",
	}

	timer := pomodoro.Restore(store, pomodoro.Options{Durations: prefs, Now: now}, logger)
	pomodoro.Persist(timer, store, logger)
	timer.OnPhaseComplete(s.creditTask)
	timer.OnPhaseComplete(s.announce)

	before := timer.State()
	timer.SyncTime()
	if after := timer.State(); after != before {
		logger.Debug("reconciled timer state",
			zap.String("phase", string(after.Phase)),
			zap.Int("remaining", after.TimeRemaining))
	}

	s.runner = pomodoro.NewRunner(timer, pomodoro.RunnerOptions{
		TickInterval: opts.TickInterval,
		AutoStart:    prefs.AutoStart,
		Logger:       logger,
	})
	return s, nil
}

// Run drives the timer, delivers notifications, fires focus schedules and
// watches the settings file until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.runner.Run(ctx) })
	g.Go(func() error { return s.notes.run(ctx) })
	g.Go(func() error { return s.schedule.Run(ctx, s.logger, s.startScheduledFocus) })

	if s.watch {
		watcher, err := settings.NewWatcher(s.settings, s.logger, nil)
		if err != nil {
			s.logger.Warn("settings watcher disabled", zap.Error(err))
		} else {
			g.Go(func() error { return watcher.Run(ctx) })
		}
	}

	return g.Wait()
}

// Exec runs fn against the timer for a one-shot command and returns the
// resulting state. The session cannot Run afterwards.
func (s *Session) Exec(ctx context.Context, fn func(*pomodoro.Timer)) (pomodoro.State, error) {
	ctx, cancel := context.WithCancel(ctx)
	errc := make(chan error, 1)
	go func() { errc <- s.runner.Run(ctx) }()

	var state pomodoro.State
	err := s.runner.Do(ctx, func(t *pomodoro.Timer) {
		fn(t)
		state = t.State()
	})
	cancel()
	if runErr := <-errc; runErr != nil && err == nil {
		err = runErr
	}
	s.notes.drain()
	return state, err
}

// Close releases the store. Pending notifications are sent first.
func (s *Session) Close() error {
	s.notes.drain()
	return s.store.Close()
}

// Runner returns the timer runner
func (s *Session) Runner() *pomodoro.Runner { return s.runner }

// Store returns the task store
func (s *Session) Store() *taskstore.Store { return s.store }

// Settings returns the user's settings
func (s *Session) Settings() *settings.Store { return s.settings }

// Schedule returns the focus schedule
func (s *Session) Schedule() *Schedule { return s.schedule }

// Start resumes the countdown
func (s *Session) Start(ctx context.Context) error { return s.runner.Start(ctx) }

// Pause halts the countdown
func (s *Session) Pause(ctx context.Context) error { return s.runner.Pause(ctx) }

// Reset returns to a stopped work phase
func (s *Session) Reset(ctx context.Context) error { return s.runner.Reset(ctx) }

// Skip ends the current phase early
func (s *Session) Skip(ctx context.Context) error { return s.runner.Skip(ctx) }

// SelectPhase jumps to p without counting a cycle
func (s *Session) SelectPhase(ctx context.Context, p pomodoro.Phase) error {
	return s.runner.SelectPhase(ctx, p)
}

// OpenTasks lists the tasks that are not completed yet
func (s *Session) OpenTasks() ([]*domain.Task, error) {
	return s.store.ListTasks(taskstore.ListOptions{})
}

// FocusTask puts the task addressed by id (or a unique prefix of it) in
// focus. An empty id clears the focus.
func (s *Session) FocusTask(ctx context.Context, id string) (*domain.Task, error) {
	if id == "" {
		return nil, s.runner.SetCurrentTask(ctx, "")
	}
	fullID, err := s.store.ResolveTaskID(id)
	if err != nil {
		return nil, err
	}
	task, err := s.store.GetTask(fullID)
	if err != nil {
		return nil, err
	}
	return task, s.runner.SetCurrentTask(ctx, fullID)
}

// creditTask adds a pomodoro to the focused task whenever a work phase ends
func (s *Session) creditTask(tr pomodoro.Transition) {
	if !tr.LeftWork() || tr.TaskID == "" {
		return
	}
	if err := s.store.IncrementPomodoros(tr.TaskID); err != nil {
		level := zap.WarnLevel
		if errors.Is(err, taskstore.ErrNotFound) {
			level = zap.InfoLevel
		}
		s.logger.Check(level, "crediting pomodoro").Write(zap.String("task_id", tr.TaskID), zap.Error(err))
	}
}

func (s *Session) announce(tr pomodoro.Transition) {
	s.notes.enqueue(NotificationFor(tr))
}

func (s *Session) startScheduledFocus(ctx context.Context) {
	err := s.runner.Do(ctx, func(t *pomodoro.Timer) {
		if t.State().Phase != pomodoro.PhaseWork {
			t.SelectPhase(pomodoro.PhaseWork)
		}
		t.Start()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("starting scheduled focus", zap.Error(err))
	}
}
