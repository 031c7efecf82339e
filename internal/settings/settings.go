package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hochfrequenz/fiztarefa/internal/pomodoro"
	"gopkg.in/yaml.v3"
)

// FileName is the settings file name inside the data directory
const FileName = "settings.yaml"

// Duration bounds in minutes
const (
	MinMinutes = 1
	MaxMinutes = 180
)

// ErrInvalidDuration is returned when a duration is outside [MinMinutes, MaxMinutes]
var ErrInvalidDuration = errors.New("invalid duration")

// Settings holds the user-editable timer preferences
type Settings struct {
	WorkMinutes       int  `yaml:"work_minutes" json:"work_minutes"`
	ShortBreakMinutes int  `yaml:"short_break_minutes" json:"short_break_minutes"`
	LongBreakMinutes  int  `yaml:"long_break_minutes" json:"long_break_minutes"`
	AutoStart         bool `yaml:"auto_start" json:"auto_start"`
	SoundEnabled      bool `yaml:"sound_enabled" json:"sound_enabled"`
}

// Default returns the default preferences
func Default() Settings {
	return Settings{
		WorkMinutes:       25,
		ShortBreakMinutes: 5,
		LongBreakMinutes:  15,
		AutoStart:         false,
		SoundEnabled:      true,
	}
}

// Durations converts the minute values into phase durations
func (s Settings) Durations() pomodoro.Durations {
	return pomodoro.Durations{
		Work:       time.Duration(s.WorkMinutes) * time.Minute,
		ShortBreak: time.Duration(s.ShortBreakMinutes) * time.Minute,
		LongBreak:  time.Duration(s.LongBreakMinutes) * time.Minute,
	}
}

// Store is a concurrency-safe settings holder backed by a YAML file. It
// implements pomodoro.DurationSource.
type Store struct {
	path string

	mu       sync.RWMutex
	settings Settings
}

// Open loads settings from path. A missing file yields the defaults.
func Open(path string) (*Store, error) {
	s := &Store{path: path, settings: Default()}
	if err := s.Reload(); err != nil {
		return s, err
	}
	return s, nil
}

// NewMemory returns a store that is never written to disk
func NewMemory(settings Settings) *Store {
	return &Store{settings: settings}
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the current settings
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Duration implements pomodoro.DurationSource
func (s *Store) Duration(p pomodoro.Phase) time.Duration {
	return s.Get().Durations().Duration(p)
}

// AutoStart reports whether the next phase starts by itself
func (s *Store) AutoStart() bool {
	return s.Get().AutoStart
}

// Update applies fn to a copy of the settings, validates the result and
// saves it.
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	if err := s.saveLocked(next); err != nil {
		return err
	}
	s.settings = next
	return nil
}

// SetWorkMinutes changes the work phase length
func (s *Store) SetWorkMinutes(minutes int) error {
	return s.Update(func(st *Settings) { st.WorkMinutes = minutes })
}

// SetShortBreakMinutes changes the short break length
func (s *Store) SetShortBreakMinutes(minutes int) error {
	return s.Update(func(st *Settings) { st.ShortBreakMinutes = minutes })
}

// SetLongBreakMinutes changes the long break length
func (s *Store) SetLongBreakMinutes(minutes int) error {
	return s.Update(func(st *Settings) { st.LongBreakMinutes = minutes })
}

// Validate checks every duration is within bounds
func (s Settings) Validate() error {
	for name, v := range map[string]int{
		"work":        s.WorkMinutes,
		"short_break": s.ShortBreakMinutes,
		"long_break":  s.LongBreakMinutes,
	} {
		if !validMinutes(v) {
			return fmt.Errorf("%w: %s = %d minutes (want %d..%d)", ErrInvalidDuration, name, v, MinMinutes, MaxMinutes)
		}
	}
	return nil
}

// Reload re-reads the backing file. Invalid values keep their defaults.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	loaded := Default()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.set(loaded)
			return nil
		}
		return fmt.Errorf("read settings file: %w", err)
	}

	var fileData Settings
	if err := yaml.Unmarshal(raw, &fileData); err != nil {
		return fmt.Errorf("parse settings yaml: %w", err)
	}
	applyFileSettings(&loaded, fileData, raw)
	s.set(loaded)
	return nil
}

func (s *Store) set(settings Settings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}

func (s *Store) saveLocked(settings Settings) error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	serialized, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}
	if err := os.WriteFile(s.path, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}

func applyFileSettings(settings *Settings, fileData Settings, raw []byte) {
	if validMinutes(fileData.WorkMinutes) {
		settings.WorkMinutes = fileData.WorkMinutes
	}
	if validMinutes(fileData.ShortBreakMinutes) {
		settings.ShortBreakMinutes = fileData.ShortBreakMinutes
	}
	if validMinutes(fileData.LongBreakMinutes) {
		settings.LongBreakMinutes = fileData.LongBreakMinutes
	}
	settings.AutoStart = fileData.AutoStart

	// sound_enabled defaults to true, so only an explicit key may turn it off
	var keys map[string]any
	if err := yaml.Unmarshal(raw, &keys); err == nil {
		if _, ok := keys["sound_enabled"]; ok {
			settings.SoundEnabled = fileData.SoundEnabled
		}
	}
}

func validMinutes(v int) bool {
	return v >= MinMinutes && v <= MaxMinutes
}
