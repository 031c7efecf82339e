package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/hochfrequenz/fiztarefa/internal/domain"
	"github.com/hochfrequenz/fiztarefa/internal/focus"
	"github.com/hochfrequenz/fiztarefa/internal/pomodoro"
	"github.com/hochfrequenz/fiztarefa/internal/settings"
	"github.com/hochfrequenz/fiztarefa/internal/taskstore"
	"github.com/hochfrequenz/fiztarefa/tui"
	"github.com/hochfrequenz/fiztarefa/web/api"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	servePort  int
	focusClear bool
)

var (
	_ tui.Controller = (*focus.Session)(nil)
	_ api.Timer      = (*focus.Session)(nil)
	_ api.Store      = (*taskstore.Store)(nil)
)

func init() {
	timerCmd := &cobra.Command{
		Use:   "timer",
		Short: "Open the terminal timer",
		RunE:  runTimerUI,
	}
	rootCmd.AddCommand(timerCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the timer with the web API",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (default from config)")
	rootCmd.AddCommand(serveCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the timer state",
		RunE:  runStatus,
	}
	rootCmd.AddCommand(statusCmd)

	for _, c := range []struct {
		use, short string
		fn         func(*pomodoro.Timer)
	}{
		{"start", "Start or resume the countdown", (*pomodoro.Timer).Start},
		{"pause", "Pause the countdown", (*pomodoro.Timer).Pause},
		{"reset", "Return to a stopped focus phase", (*pomodoro.Timer).Reset},
		{"skip", "End the current phase now", (*pomodoro.Timer).Skip},
	} {
		fn := c.fn
		rootCmd.AddCommand(&cobra.Command{
			Use:   c.use,
			Short: c.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTimerCommand(cmd, fn)
			},
		})
	}

	phaseCmd := &cobra.Command{
		Use:       "phase NAME",
		Short:     "Jump to a phase (work, short-break, long-break)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"work", "short-break", "long-break"},
		RunE:      runPhase,
	}
	rootCmd.AddCommand(phaseCmd)

	focusCmd := &cobra.Command{
		Use:   "focus [TASK]",
		Short: "Focus a task (id or id prefix)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFocus,
	}
	focusCmd.Flags().BoolVar(&focusClear, "clear", false, "clear the focused task")
	rootCmd.AddCommand(focusCmd)
}

func runTimerCommand(cmd *cobra.Command, fn func(*pomodoro.Timer)) error {
	session, cleanup, err := openSession(fmt.Sprintf("one-shot command (pid %d)", os.Getpid()), false)
	if err != nil {
		return err
	}
	defer cleanup()

	state, err := session.Exec(cmd.Context(), fn)
	if err != nil {
		return err
	}
	printStatus(cmd.OutOrStdout(), session.Describe(state), time.Now())
	return nil
}

func runPhase(cmd *cobra.Command, args []string) error {
	phase, err := pomodoro.ParsePhase(args[0])
	if err != nil {
		return err
	}
	return runTimerCommand(cmd, func(t *pomodoro.Timer) { t.SelectPhase(phase) })
}

func runFocus(cmd *cobra.Command, args []string) error {
	if !focusClear && len(args) == 0 {
		return fmt.Errorf("focus needs a task id or --clear")
	}

	session, cleanup, err := openSession(fmt.Sprintf("one-shot command (pid %d)", os.Getpid()), false)
	if err != nil {
		return err
	}
	defer cleanup()

	taskID := ""
	if !focusClear {
		taskID, err = session.Store().ResolveTaskID(args[0])
		if err != nil {
			return err
		}
	}
	state, err := session.Exec(cmd.Context(), func(t *pomodoro.Timer) { t.SetCurrentTask(taskID) })
	if err != nil {
		return err
	}
	printStatus(cmd.OutOrStdout(), session.Describe(state), time.Now())
	return nil
}

// runStatus reconciles the persisted timer in memory and prints it. It never
// writes, so it works while another process owns the timer.
func runStatus(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	prefs, err := settings.Open(cfg.SettingsPath())
	if err != nil {
		logger.Warn("loading settings, using defaults", zap.Error(err))
	}
	schedule, err := focus.NewSchedule(cfg.Schedule.Focus, nil)
	if err != nil {
		return err
	}

	timer := pomodoro.Restore(store, pomodoro.Options{Durations: prefs}, logger)
	timer.SyncTime()

	st := focus.Describe(timer.State(), prefs, store, schedule)
	printStatus(cmd.OutOrStdout(), st, time.Now())
	return nil
}

func printStatus(w io.Writer, st focus.Status, now time.Time) {
	state := st.State
	running := "paused"
	if state.IsRunning {
		running = "running"
	}

	filled := int(st.Progress * 20)
	bar := strings.Repeat("#", filled) + strings.Repeat(".", 20-filled)

	fmt.Fprintf(w, "Phase:      %s (%s)\n", st.Label, running)
	fmt.Fprintf(w, "Remaining:  %s  [%s] %d%%\n", st.Clock, bar, int(st.Progress*100))
	fmt.Fprintf(w, "Cycles:     %d completed, %d/%d towards the long break\n",
		state.CyclesCompleted, st.CycleInSet, pomodoro.CyclesPerLongBreak)
	switch {
	case st.Task != nil:
		fmt.Fprintf(w, "Task:       %s %s (%d pomodoros)\n", st.Task.ShortID(), st.Task.Title, st.Task.PomodorosCompleted)
	case state.HasTask():
		fmt.Fprintf(w, "Task:       %s (deleted)\n", domain.ShortID(state.CurrentTaskID))
	}
	if !state.LastTick.IsZero() {
		fmt.Fprintf(w, "Last tick:  %s\n", humanize.RelTime(state.LastTick, now, "ago", "from now"))
	}
	if st.NextFocus != nil {
		fmt.Fprintf(w, "Next focus: %s\n", humanize.RelTime(*st.NextFocus, now, "ago", "from now"))
	}
}

func runTimerUI(cmd *cobra.Command, args []string) error {
	session, cleanup, err := openSession(fmt.Sprintf("terminal timer (pid %d)", os.Getpid()), true)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	events, unsubscribe := session.Runner().Subscribe(64)
	defer unsubscribe()

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	initial, err := session.Status(ctx)
	if err != nil {
		cancel()
		<-done
		return err
	}

	model := tui.NewModel(tui.ModelConfig{
		Controller: session,
		Events:     events,
		Initial:    initial,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, runErr := p.Run()

	cancel()
	if err := <-done; err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort != 0 {
		cfg.Web.Port = servePort
	}
	addr := cfg.WebAddr()

	session, cleanup, err := openSession("serving http://"+addr, true)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, unsubscribe := session.Runner().Subscribe(64)
	defer unsubscribe()

	server := api.NewServer(session, session.Store(), addr, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return session.Run(ctx) })
	g.Go(func() error { return server.Stream(ctx, events) })
	g.Go(func() error { return server.Run(ctx) })

	fmt.Fprintf(cmd.OutOrStdout(), "Serving FizTarefa on http://%s\n", addr)
	if n := session.Schedule().Len(); n > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Focus schedule: %d entries, next %s\n",
			n, humanize.Time(session.Schedule().NextRun()))
	}
	return g.Wait()
}
