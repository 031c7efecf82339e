package domain

import (
	"testing"
)

func TestShortID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"4f1c2a9e-7b3d-4e55-9a10-0c2b6e1d8f00", "4f1c2a9e"},
		{"abc", "abc"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ShortID(tt.input); got != tt.want {
				t.Errorf("ShortID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTask_MatchesID(t *testing.T) {
	task := Task{ID: "4f1c2a9e-7b3d-4e55-9a10-0c2b6e1d8f00"}

	if !task.MatchesID("4f1c") {
		t.Error("prefix should match")
	}
	if !task.MatchesID(task.ID) {
		t.Error("full id should match")
	}
	if task.MatchesID("") {
		t.Error("empty string should not match")
	}
	if task.MatchesID("ffff") {
		t.Error("foreign prefix should not match")
	}
}

func TestDefaultListColor(t *testing.T) {
	if got := DefaultListColor(0); got != "#ef4444" {
		t.Errorf("DefaultListColor(0) = %q, want #ef4444", got)
	}
	if got := DefaultListColor(len(ListColors)); got != ListColors[0] {
		t.Errorf("DefaultListColor wraps to %q, want %q", got, ListColors[0])
	}
	if got := DefaultListColor(-4); got != ListColors[0] {
		t.Errorf("DefaultListColor(-4) = %q, want %q", got, ListColors[0])
	}
}

func TestValidColor(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"#3b82f6", true},
		{"#ABCDEF", true},
		{"3b82f6", false},
		{"#3b82f", false},
		{"#3b82fg", false},
	}

	for _, tt := range tests {
		if got := ValidColor(tt.input); got != tt.want {
			t.Errorf("ValidColor(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
