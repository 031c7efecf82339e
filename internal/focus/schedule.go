package focus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Schedule starts focus phases at cron times. Expressions use the standard
// five fields (minute hour day-of-month month day-of-week).
type Schedule struct {
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries []*scheduleEntry
}

type scheduleEntry struct {
	expr  string
	sched cron.Schedule
	next  time.Time
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseCron parses a five-field cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	return cronParser.Parse(expr)
}

// NewSchedule parses exprs. Times already past at construction never fire.
func NewSchedule(exprs []string, now func() time.Time) (*Schedule, error) {
	if now == nil {
		now = time.Now
	}
	s := &Schedule{
		interval: 15 * time.Second,
		now:      now,
	}

	start := now()
	for _, expr := range exprs {
		sched, err := ParseCron(expr)
		if err != nil {
			return nil, fmt.Errorf("focus schedule %q: %w", expr, err)
		}
		s.entries = append(s.entries, &scheduleEntry{
			expr:  expr,
			sched: sched,
			next:  sched.Next(start),
		})
	}
	return s, nil
}

// Len returns the number of configured expressions
func (s *Schedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// NextRun returns the earliest upcoming focus time, or zero when empty
func (s *Schedule) NextRun() time.Time {
	if s == nil {
		return time.Time{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var next time.Time
	for _, e := range s.entries {
		if next.IsZero() || e.next.Before(next) {
			next = e.next
		}
	}
	return next
}

// Due returns the expressions whose time has come and advances each of them
// past now. An entry fires once even if several of its times were missed.
func (s *Schedule) Due(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []string
	for _, e := range s.entries {
		if now.Before(e.next) {
			continue
		}
		due = append(due, e.expr)
		e.next = e.sched.Next(now)
	}
	return due
}

// Run polls the schedule until ctx is cancelled, calling fire once per poll
// that found at least one due expression.
func (s *Schedule) Run(ctx context.Context, logger *zap.Logger, fire func(ctx context.Context)) error {
	if s.Len() == 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			due := s.Due(s.now())
			if len(due) == 0 {
				continue
			}
			logger.Info("scheduled focus", zap.Strings("cron", due))
			fire(ctx)
		}
	}
}
