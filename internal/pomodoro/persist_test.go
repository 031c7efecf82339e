package pomodoro

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKV struct {
	data    map[string][]byte
	putErr  error
	putCall int
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Get(key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Put(key string, value []byte) error {
	m.putCall++
	if m.putErr != nil {
		return m.putErr
	}
	m.data[key] = value
	return nil
}

func TestSaveLoadState(t *testing.T) {
	kv := newMemKV()
	want := State{
		Phase:           PhaseLongBreak,
		TimeRemaining:   420,
		IsRunning:       true,
		CyclesCompleted: 8,
		CurrentTaskID:   "abc",
		LastTick:        time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
	}

	require.NoError(t, SaveState(kv, want))
	got, ok, err := LoadState(kv)
	require.NoError(t, err)
	require.True(t, ok)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadState_Missing(t *testing.T) {
	_, ok, err := LoadState(newMemKV())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRestore_CorruptFallsBack(t *testing.T) {
	kv := newMemKV()
	kv.data[StorageKey] = []byte("{not json")

	timer := Restore(kv, Options{}, nil)
	assert.Equal(t, InitialState(DefaultDurations()), timer.State())
}

func TestRestore_ThenSync(t *testing.T) {
	clock := newFakeClock()
	kv := newMemKV()
	require.NoError(t, SaveState(kv, State{
		Phase:           PhaseWork,
		TimeRemaining:   600,
		IsRunning:       true,
		CyclesCompleted: 3,
		LastTick:        clock.Now(),
	}))

	clock.Advance(11 * time.Minute)
	timer := Restore(kv, Options{Now: clock.Now}, nil)
	timer.SyncTime()

	s := timer.State()
	assert.Equal(t, PhaseLongBreak, s.Phase)
	assert.Equal(t, 4, s.CyclesCompleted)
}

func TestPersist_WritesEveryChange(t *testing.T) {
	kv := newMemKV()
	timer := New(Options{Now: newFakeClock().Now})
	Persist(timer, kv, nil)

	timer.Start()
	timer.Skip()
	timer.Pause() // no change, no write

	assert.Equal(t, 2, kv.putCall)
	s, ok, err := LoadState(kv)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PhaseShortBreak, s.Phase)
}

func TestPersist_FailuresAreSwallowed(t *testing.T) {
	kv := newMemKV()
	kv.putErr = errors.New("disk full")
	timer := New(Options{})
	Persist(timer, kv, nil)

	timer.Skip()

	assert.Equal(t, PhaseShortBreak, timer.State().Phase)
	assert.Equal(t, 1, kv.putCall)
}
