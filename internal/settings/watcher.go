package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a Store when its file changes on disk
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration
	onReload func(Settings)

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher watches the directory holding store's file. onReload may be nil.
func NewWatcher(store *Store, logger *zap.Logger, onReload func(Settings)) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := filepath.Dir(store.Path())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors often replace the file instead of writing it
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		store:    store,
		watcher:  fw,
		logger:   logger,
		debounce: 200 * time.Millisecond,
		onReload: onReload,
	}, nil
}

// SetDebounce sets how long to wait for further writes before reloading
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// Run processes file events until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("settings watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.store.Path()) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	if err := w.store.Reload(); err != nil {
		w.logger.Warn("reloading settings", zap.Error(err))
		return
	}
	current := w.store.Get()
	w.logger.Info("settings reloaded",
		zap.Int("work_minutes", current.WorkMinutes),
		zap.Int("short_break_minutes", current.ShortBreakMinutes),
		zap.Int("long_break_minutes", current.LongBreakMinutes),
		zap.Bool("auto_start", current.AutoStart))
	if w.onReload != nil {
		w.onReload(current)
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.watcher.Close()
}
