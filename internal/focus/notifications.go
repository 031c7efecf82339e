package focus

import (
	"context"

	"github.com/hochfrequenz/fiztarefa/internal/domain"
	"github.com/hochfrequenz/fiztarefa/internal/notify"
	"github.com/hochfrequenz/fiztarefa/internal/pomodoro"
	"go.uber.org/zap"
)

const notificationQueueSize = 16

// NotificationFor renders a phase transition as a user notification
func NotificationFor(tr pomodoro.Transition) notify.Notification {
	title, body := tr.Announcement()
	typ := notify.NotifyInfo
	if tr.To == pomodoro.PhaseLongBreak {
		typ = notify.NotifySuccess
	}
	return notify.Notification{
		Title:   title,
		Message: body,
		Type:    typ,
		Phase:   tr.To.Label(),
		TaskID:  domain.ShortID(tr.TaskID),
	}
}

// dispatcher delivers notifications off the timer goroutine so a slow
// webhook never delays a tick.
type dispatcher struct {
	notifier notify.Notifier
	queue    chan notify.Notification
	logger   *zap.Logger
}

func newDispatcher(n notify.Notifier, logger *zap.Logger) *dispatcher {
	if n == nil {
		n = notify.NoopNotifier{}
	}
	return &dispatcher{
		notifier: n,
		queue:    make(chan notify.Notification, notificationQueueSize),
		logger:   logger,
	}
}

func (d *dispatcher) enqueue(n notify.Notification) {
	select {
	case d.queue <- n:
	default:
		d.logger.Warn("notification queue full, dropping", zap.String("title", n.Title))
	}
}

func (d *dispatcher) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return nil
		case n := <-d.queue:
			d.send(n)
		}
	}
}

// drain sends everything still queued
func (d *dispatcher) drain() {
	for {
		select {
		case n := <-d.queue:
			d.send(n)
		default:
			return
		}
	}
}

func (d *dispatcher) send(n notify.Notification) {
	if err := d.notifier.Send(n); err != nil {
		d.logger.Warn("sending notification", zap.String("title", n.Title), zap.Error(err))
	}
}
