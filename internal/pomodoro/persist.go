package pomodoro

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// StorageKey is the local state key holding the persisted timer
const StorageKey = "pomodoro-storage"

// KV is a small key/value store for process-local state
type KV interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
}

// LoadState reads the persisted state. ok is false when nothing was stored.
func LoadState(kv KV) (state State, ok bool, err error) {
	raw, found, err := kv.Get(StorageKey)
	if err != nil {
		return State{}, false, fmt.Errorf("reading timer state: %w", err)
	}
	if !found {
		return State{}, false, nil
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, false, fmt.Errorf("decoding timer state: %w", err)
	}
	return state, true, nil
}

// SaveState writes s under StorageKey
func SaveState(kv KV, s State) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding timer state: %w", err)
	}
	if err := kv.Put(StorageKey, raw); err != nil {
		return fmt.Errorf("writing timer state: %w", err)
	}
	return nil
}

// Restore builds a Timer from the persisted state, or a fresh one when
// nothing usable is stored. It does not reconcile; call SyncTime for that.
func Restore(kv KV, opts Options, logger *zap.Logger) *Timer {
	if logger == nil {
		logger = zap.NewNop()
	}
	state, ok, err := LoadState(kv)
	if err != nil {
		logger.Warn("discarding persisted timer state", zap.Error(err))
		return New(opts)
	}
	if !ok {
		return New(opts)
	}
	return NewFromState(state, opts)
}

// Persist registers a change listener on t that writes every new state to
// kv. Write failures are logged and otherwise ignored.
func Persist(t *Timer, kv KV, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	t.OnChange(func(s State) {
		if err := SaveState(kv, s); err != nil {
			logger.Warn("persisting timer state", zap.Error(err))
		}
	})
}
