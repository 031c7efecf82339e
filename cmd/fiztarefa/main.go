package main

import (
	"fmt"
	"os"

	"github.com/hochfrequenz/fiztarefa/internal/config"
	"github.com/hochfrequenz/fiztarefa/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger = zap.NewNop()

	rootCmd = &cobra.Command{
		Use:   "fiztarefa",
		Short: "FizTarefa - Pomodoro timer with a local task list",
		Long: `FizTarefa runs a Pomodoro timer (25 minutes of focus, short breaks,
a long break after every fourth focus) and credits finished focus phases to
the task you are working on.

Run without arguments to open the terminal timer.`,
		SilenceUsage: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		RunE: runTimerUI,
	}
)

func init() {
	// Assigned here because setup refers to rootCmd
	rootCmd.PersistentPreRunE = setup
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// setup loads the config and builds the logger before any command runs
func setup(cmd *cobra.Command, args []string) error {
	path := configFile()
	loaded, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg = loaded

	opts := logging.Options{Level: cfg.Logging.Level, Verbose: verbose}
	// The terminal UI owns the screen, so it logs to a file
	if cmd == rootCmd || cmd.Name() == "timer" {
		opts.File = cfg.LogPath()
	}
	l, err := logging.New(opts)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// configFile is the --config path or the default location
func configFile() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
