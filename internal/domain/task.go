package domain

import (
	"strings"
	"time"
)

// Task is a unit of work the user can focus on
type Task struct {
	ID                 string    `json:"id"`
	ListID             string    `json:"list_id,omitempty"` // empty when the task belongs to no list
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	Completed          bool      `json:"completed"`
	PomodorosCompleted int       `json:"pomodoros_completed"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ShortID returns the first 8 characters of the id, enough to address a
// task from the command line
func (t *Task) ShortID() string {
	return ShortID(t.ID)
}

// ShortID truncates an id for display
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// MatchesID reports whether s is the task id or an unambiguous prefix of it
func (t *Task) MatchesID(s string) bool {
	return s != "" && strings.HasPrefix(t.ID, s)
}

// List groups tasks
type List struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}
