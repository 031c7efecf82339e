package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/hochfrequenz/fiztarefa/internal/focus"
	"github.com/hochfrequenz/fiztarefa/internal/platform"
	"github.com/hochfrequenz/fiztarefa/internal/taskstore"
	"go.uber.org/zap"
)

// openSession takes the timer lock (when enabled) and opens the session.
// owner describes this process to other fiztarefa invocations.
func openSession(owner string, watch bool) (*focus.Session, func(), error) {
	var guard *platform.InstanceGuard
	if cfg.General.SingleInstance {
		g, err := platform.AcquireSingleInstance(cfg.General.DataDir, owner)
		if err != nil {
			if errors.Is(err, platform.ErrAlreadyRunning) {
				if info, qerr := platform.QueryOwner(cfg.General.DataDir); qerr == nil && info != "" {
					return nil, nil, fmt.Errorf("%w (%s)", platform.ErrAlreadyRunning, info)
				}
			}
			return nil, nil, err
		}
		guard = g
	}

	opts := focus.OptionsFromConfig(cfg, logger)
	opts.WatchSettings = watch
	session, err := focus.Open(opts)
	if err != nil {
		guard.Release()
		return nil, nil, err
	}

	cleanup := func() {
		if err := session.Close(); err != nil {
			logger.Warn("closing session", zap.Error(err))
		}
		guard.Release()
	}
	return session, cleanup, nil
}

// openStore opens the task database without taking the timer lock
func openStore() (*taskstore.Store, error) {
	if err := os.MkdirAll(cfg.General.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return taskstore.New(cfg.DatabasePath())
}
