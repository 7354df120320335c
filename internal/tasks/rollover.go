package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/s1natex/daily-tasks-GO/internal/clock"
)

// DefaultRolloverInterval is how often the Monitor checks the calendar date.
const DefaultRolloverInterval = time.Minute

// CheckDayRollover advances the store's notion of today when the clock has
// moved to another calendar date. If the selected date was tracking today it
// follows to the new day; a deliberately selected past or future date is
// left alone. Returns false when the date has not changed.
func (s *Store) CheckDayRollover(ctx context.Context) bool {
	now := DateOf(s.clock.Now(), s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	if now == s.today {
		return false
	}

	ctx, span := s.tracer.Start(ctx, "tasks.CheckDayRollover")
	defer span.End()

	prev := s.today
	s.today = now
	followed := s.selected == prev
	if followed {
		s.selected = now
		s.current = s.loadLocked(ctx, now, true)
	}

	s.logger.Info("day_rollover",
		slog.String("from", prev),
		slog.String("to", now),
		slog.Bool("selection_followed", followed),
		slog.String("selected_date", s.selected),
	)
	s.metrics.rollover()
	s.notifyLocked()
	return true
}

// Monitor drives CheckDayRollover from a Scheduler.
type Monitor struct {
	store     *Store
	scheduler clock.Scheduler
	interval  time.Duration
	logger    *slog.Logger
}

func NewMonitor(store *Store, scheduler clock.Scheduler, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultRolloverInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		store:     store,
		scheduler: scheduler,
		interval:  interval,
		logger:    logger,
	}
}

// Run checks once immediately, then on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	t := m.scheduler.NewTicker(m.interval)
	defer t.Stop()

	m.logger.Debug("rollover_monitor_started", slog.Duration("interval", m.interval))
	m.store.CheckDayRollover(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("rollover_monitor_stopped")
			return
		case <-t.C():
			m.store.CheckDayRollover(ctx)
		}
	}
}
