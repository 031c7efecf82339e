package notify

import "go.uber.org/multierr"

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	Phase   string // Phase the timer moved into, if any
	TaskID  string // Optional focused task reference
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers.
// Nil entries are skipped.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	m := &MultiNotifier{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Send sends the notification to all notifiers, combining their errors
func (m *MultiNotifier) Send(n Notification) error {
	var errs error
	for _, notifier := range m.notifiers {
		errs = multierr.Append(errs, notifier.Send(n))
	}
	return errs
}

// Len returns the number of wrapped notifiers
func (m *MultiNotifier) Len() int {
	return len(m.notifiers)
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }

// Func adapts a plain function to the Notifier interface
type Func func(n Notification) error

func (f Func) Send(n Notification) error { return f(n) }
