package tasks

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/s1natex/daily-tasks-GO/internal/clock"
)

const tracerName = "github.com/s1natex/daily-tasks-GO/internal/tasks"

// Snapshot is the state observers see after every change.
type Snapshot struct {
	Today        string     `json:"today"`
	SelectedDate string     `json:"selected_date"`
	Current      DailyTasks `json:"current"`
}

// Store owns the tasks of the selected date and mirrors every change to the
// Repository before observers are notified. All methods are safe for
// concurrent use; they are serialized on one mutex.
type Store struct {
	repo    Repository
	clock   clock.Clock
	loc     *time.Location
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	newID   func() string

	mu       sync.Mutex
	today    string
	selected string
	current  DailyTasks
	subs     map[int]func(Snapshot)
	nextSub  int
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocation sets the time zone used to turn clock readings into dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithIDGenerator overrides how task ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewStore selects today's date and loads its record, creating and
// persisting an empty one when none exists.
func NewStore(ctx context.Context, repo Repository, clk clock.Clock, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		clock:  clk,
		loc:    time.Local,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
		newID:  uuid.NewString,
		subs:   make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.today = DateOf(s.clock.Now(), s.loc)
	s.selected = s.today
	s.current = s.loadLocked(ctx, s.today, true)
	return s
}

func (s *Store) Today() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.today
}

func (s *Store) SelectedDate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Current returns a copy of the selected date's tasks.
func (s *Store) Current() DailyTasks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone()
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a Snapshot after every change. fn runs
// while the store is locked and must not call back into the Store. The
// returned func removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// AddTask appends a task to the selected date. It fails with
// ErrTitleRequired for a blank title and ErrDayFull once the day holds
// MaxTasksPerDay tasks; the list is left untouched in both cases.
func (s *Store) AddTask(ctx context.Context, title string) (Task, error) {
	ctx, span := s.tracer.Start(ctx, "tasks.AddTask")
	defer span.End()

	title = strings.TrimSpace(title)
	if title == "" {
		s.metrics.command("add", "title_required")
		return Task{}, ErrTitleRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Full() {
		s.metrics.command("add", "day_full")
		return Task{}, ErrDayFull
	}

	t := Task{
		ID:        s.newID(),
		Title:     title,
		Completed: false,
		Date:      s.current.Date,
	}
	next := s.current.clone()
	next.Tasks = append(next.Tasks, t)
	s.commitLocked(ctx, next)

	span.SetAttributes(attribute.String("task.id", t.ID), attribute.String("day", t.Date))
	s.metrics.command("add", "ok")
	return t, nil
}

// ToggleTask flips completion of the task with the given id. It reports
// false and changes nothing when the id is unknown.
func (s *Store) ToggleTask(ctx context.Context, id string) (Task, bool) {
	ctx, span := s.tracer.Start(ctx, "tasks.ToggleTask", trace.WithAttributes(attribute.String("task.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.current.indexOf(id)
	if i < 0 {
		s.metrics.command("toggle", "not_found")
		return Task{}, false
	}
	next := s.current.clone()
	next.Tasks[i].Completed = !next.Tasks[i].Completed
	s.commitLocked(ctx, next)

	s.metrics.command("toggle", "ok")
	return next.Tasks[i], true
}

// UpdateTask retitles the task with the given id, keeping its id and
// completion state. Unknown ids and blank titles are ignored.
func (s *Store) UpdateTask(ctx context.Context, id, title string) (Task, bool) {
	ctx, span := s.tracer.Start(ctx, "tasks.UpdateTask", trace.WithAttributes(attribute.String("task.id", id)))
	defer span.End()

	title = strings.TrimSpace(title)
	if title == "" {
		s.metrics.command("update", "title_required")
		return Task{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.current.indexOf(id)
	if i < 0 {
		s.metrics.command("update", "not_found")
		return Task{}, false
	}
	next := s.current.clone()
	next.Tasks[i].Title = title
	s.commitLocked(ctx, next)

	s.metrics.command("update", "ok")
	return next.Tasks[i], true
}

// NavigateToDate selects date, loading its record or lazily creating an
// empty one. Dates later than tomorrow are rejected with ErrDateOutOfRange.
func (s *Store) NavigateToDate(ctx context.Context, date string) error {
	ctx, span := s.tracer.Start(ctx, "tasks.NavigateToDate", trace.WithAttributes(attribute.String("day", date)))
	defer span.End()

	if _, err := ParseDate(date); err != nil {
		s.metrics.command("navigate", "invalid_date")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if date > addDays(s.today, 1) {
		s.metrics.command("navigate", "out_of_range")
		return ErrDateOutOfRange
	}
	s.metrics.command("navigate", "ok")
	if date == s.selected {
		return nil
	}

	s.selected = date
	s.current = s.loadLocked(ctx, date, true)
	s.notifyLocked()
	return nil
}

// Day returns the record for date without selecting or creating it.
func (s *Store) Day(ctx context.Context, date string) (DailyTasks, error) {
	if _, err := ParseDate(date); err != nil {
		return DailyTasks{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if date == s.selected {
		return s.current.clone(), nil
	}
	return s.loadLocked(ctx, date, false), nil
}

// History returns stored days before today, most recent first. A limit of
// zero or less returns all of them.
func (s *Store) History(ctx context.Context, limit int) ([]DailyTasks, error) {
	ctx, span := s.tracer.Start(ctx, "tasks.History")
	defer span.End()

	keys, err := s.repo.Keys(ctx, dayKeyPrefix)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]DailyTasks, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		date := strings.TrimPrefix(keys[i], dayKeyPrefix)
		if _, err := ParseDate(date); err != nil || date >= s.today {
			continue
		}
		if date == s.selected {
			out = append(out, s.current.clone())
		} else {
			out = append(out, s.loadLocked(ctx, date, false))
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Today:        s.today,
		SelectedDate: s.selected,
		Current:      s.current.clone(),
	}
}

// commitLocked installs next as the current record, writes it, then
// notifies subscribers.
func (s *Store) commitLocked(ctx context.Context, next DailyTasks) {
	s.current = next
	s.persistLocked(ctx, next)
	s.notifyLocked()
}

func (s *Store) notifyLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, fn := range s.subs {
		fn(snap)
	}
}

// loadLocked reads the record for date. Missing, unreadable or malformed
// records come back empty; when create is set a missing record is written
// so a later reload sees the same day.
func (s *Store) loadLocked(ctx context.Context, date string, create bool) DailyTasks {
	raw, ok, err := s.repo.Get(ctx, DayKey(date))
	if err != nil {
		s.logger.Warn("day_load_failed",
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
		s.metrics.corruptLoad()
		return emptyDay(date)
	}
	if !ok {
		day := emptyDay(date)
		if create {
			s.persistLocked(ctx, day)
		}
		return day
	}

	var day DailyTasks
	if err := json.Unmarshal(raw, &day); err != nil {
		s.logger.Warn("day_record_malformed",
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
		s.metrics.corruptLoad()
		return emptyDay(date)
	}
	if err := day.validate(); err != nil {
		s.logger.Warn("day_record_malformed",
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
		s.metrics.corruptLoad()
		return emptyDay(date)
	}
	day.Date = date
	if day.Tasks == nil {
		day.Tasks = []Task{}
	}
	return day
}

func (s *Store) persistLocked(ctx context.Context, day DailyTasks) {
	b, err := json.Marshal(day)
	if err == nil {
		err = s.repo.Put(ctx, DayKey(day.Date), b)
	}
	if err != nil {
		s.logger.Error("persist_failed",
			slog.String("date", day.Date),
			slog.String("error", err.Error()),
		)
		s.metrics.persistError()
	}
}
