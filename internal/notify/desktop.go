package notify

import (
	"os/exec"
	"runtime"
	"strings"
)

// DesktopNotifier sends OS notifications through notify-send or osascript
type DesktopNotifier struct {
	enabled bool
	run     func(name string, args ...string) error
}

// NewDesktopNotifier creates a new desktop notifier
func NewDesktopNotifier(enabled bool) *DesktopNotifier {
	return &DesktopNotifier{enabled: enabled, run: runCommand}
}

func runCommand(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// Send sends a desktop notification
func (d *DesktopNotifier) Send(n Notification) error {
	if !d.enabled {
		return nil
	}

	name, args := desktopCommand(runtime.GOOS, n)
	if name == "" {
		return nil // Unsupported
	}
	return d.run(name, args...)
}

// desktopCommand returns the command line for goos, or "" when unsupported
func desktopCommand(goos string, n Notification) (string, []string) {
	switch goos {
	case "darwin":
		script := `display notification "` + appleScriptQuote(n.Message) +
			`" with title "` + appleScriptQuote(n.Title) + `"`
		return "osascript", []string{"-e", script}
	case "linux":
		return "notify-send", []string{"-a", "FizTarefa", "-i", IconForType(n.Type), n.Title, n.Message}
	default:
		return "", nil
	}
}

func appleScriptQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// IconForType returns an icon name for the notification type
func IconForType(t NotificationType) string {
	switch t {
	case NotifySuccess:
		return "dialog-positive"
	case NotifyWarning:
		return "dialog-warning"
	case NotifyError:
		return "dialog-error"
	default:
		return "dialog-information"
	}
}
