package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hochfrequenz/fiztarefa/internal/pomodoro"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Defaults(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)

	got := store.Get()
	if got != Default() {
		t.Errorf("Get() = %+v, want defaults %+v", got, Default())
	}
	if d := store.Duration(pomodoro.PhaseWork); d != 25*time.Minute {
		t.Errorf("Duration(work) = %v, want 25m", d)
	}
}

func TestOpen_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := `
work_minutes: 50
short_break_minutes: 0
long_break_minutes: 500
auto_start: true
sound_enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store, err := Open(path)
	require.NoError(t, err)

	got := store.Get()
	assert.Equal(t, 50, got.WorkMinutes)
	assert.Equal(t, 5, got.ShortBreakMinutes, "invalid value keeps default")
	assert.Equal(t, 15, got.LongBreakMinutes, "invalid value keeps default")
	assert.True(t, got.AutoStart)
	assert.False(t, got.SoundEnabled)
	assert.True(t, store.AutoStart())
}

func TestOpen_SoundDefaultsOn(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("work_minutes: 30\n"), 0o644))

	store, err := Open(path)
	require.NoError(t, err)
	assert.True(t, store.Get().SoundEnabled)
}

func TestOpen_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("work_minutes: [\n"), 0o644))

	store, err := Open(path)
	assert.Error(t, err)
	assert.Equal(t, Default(), store.Get())
}

func TestSetters_PersistAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	store, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, store.SetWorkMinutes(45))
	require.NoError(t, store.SetShortBreakMinutes(10))
	require.NoError(t, store.SetLongBreakMinutes(30))

	err = store.SetWorkMinutes(0)
	assert.True(t, errors.Is(err, ErrInvalidDuration), "SetWorkMinutes(0) = %v", err)
	assert.ErrorIs(t, store.SetLongBreakMinutes(MaxMinutes+1), ErrInvalidDuration)

	reopened, err := Open(path)
	require.NoError(t, err)
	got := reopened.Get()
	assert.Equal(t, 45, got.WorkMinutes)
	assert.Equal(t, 10, got.ShortBreakMinutes)
	assert.Equal(t, 30, got.LongBreakMinutes)
	assert.Equal(t, 30*time.Minute, reopened.Duration(pomodoro.PhaseLongBreak))
}

func TestUpdate_Flags(t *testing.T) {
	store := NewMemory(Default())
	require.NoError(t, store.Update(func(s *Settings) {
		s.AutoStart = true
		s.SoundEnabled = false
	}))
	assert.True(t, store.AutoStart())
	assert.False(t, store.Get().SoundEnabled)
}

func TestStore_DrivesTimerTransitions(t *testing.T) {
	store := NewMemory(Default())
	timer := pomodoro.New(pomodoro.Options{Durations: store})

	timer.Skip()
	require.NoError(t, store.SetWorkMinutes(40))
	timer.Skip()

	assert.Equal(t, 40*60, timer.State().TimeRemaining)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	store, err := Open(path)
	require.NoError(t, err)

	reloaded := make(chan Settings, 4)
	w, err := NewWatcher(store, nil, func(s Settings) { reloaded <- s })
	require.NoError(t, err)
	w.SetDebounce(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	require.NoError(t, os.WriteFile(path, []byte("work_minutes: 33\n"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-reloaded:
			if s.WorkMinutes != 33 {
				continue
			}
			assert.Equal(t, 33*time.Minute, store.Duration(pomodoro.PhaseWork))
			return
		case <-deadline:
			t.Fatal("settings were not reloaded")
		}
	}
}
