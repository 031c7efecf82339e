package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/hochfrequenz/fiztarefa/internal/settings"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	setWork      int
	setShort     int
	setLong      int
	setAutoStart bool
	setSound     bool
)

func init() {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change timer settings",
	}

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current settings",
		RunE:  runSettingsShow,
	})

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change settings; a running timer picks them up at its next phase",
		RunE:  runSettingsSet,
	}
	setCmd.Flags().IntVar(&setWork, "work", 0, "focus minutes")
	setCmd.Flags().IntVar(&setShort, "short", 0, "short break minutes")
	setCmd.Flags().IntVar(&setLong, "long", 0, "long break minutes")
	setCmd.Flags().BoolVar(&setAutoStart, "auto-start", false, "start the next phase automatically")
	setCmd.Flags().BoolVar(&setSound, "sound", true, "ring the terminal bell on phase changes")
	settingsCmd.AddCommand(setCmd)

	rootCmd.AddCommand(settingsCmd)
}

// openSettings falls back to defaults when the file is unreadable, so
// `settings set` can overwrite a broken file
func openSettings(cmd *cobra.Command) *settings.Store {
	store, err := settings.Open(cfg.SettingsPath())
	if err != nil {
		logger.Warn("loading settings, using defaults", zap.Error(err))
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v; using defaults\n", err)
	}
	return store
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	printSettings(cmd, openSettings(cmd).Get())
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	store := openSettings(cmd)

	flags := cmd.Flags()
	err := store.Update(func(s *settings.Settings) {
		if flags.Changed("work") {
			s.WorkMinutes = setWork
		}
		if flags.Changed("short") {
			s.ShortBreakMinutes = setShort
		}
		if flags.Changed("long") {
			s.LongBreakMinutes = setLong
		}
		if flags.Changed("auto-start") {
			s.AutoStart = setAutoStart
		}
		if flags.Changed("sound") {
			s.SoundEnabled = setSound
		}
	})
	if err != nil {
		return err
	}
	printSettings(cmd, store.Get())
	return nil
}

func printSettings(cmd *cobra.Command, s settings.Settings) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Focus\t%d min\n", s.WorkMinutes)
	fmt.Fprintf(w, "Short break\t%d min\n", s.ShortBreakMinutes)
	fmt.Fprintf(w, "Long break\t%d min\n", s.LongBreakMinutes)
	fmt.Fprintf(w, "Auto start\t%t\n", s.AutoStart)
	fmt.Fprintf(w, "Sound\t%t\n", s.SoundEnabled)
	w.Flush()
}
