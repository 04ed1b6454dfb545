// Package memory holds in-memory implementations of the attendance
// repositories. They back the engine tests: the same unique constraint and
// transactional rollback semantics as the PostgreSQL layer, without a
// database. Transactions serialize on a single mutex and restore a snapshot
// on error, so a failed commit leaves no partial writes.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/presensia/attendance-engine/internal/domain/attendance"
)

type monthKey struct {
	Year  int
	Month int
}

type Store struct {
	mu        sync.Mutex
	txMu      sync.Mutex
	events    map[string]map[string]attendance.Event // employeeID -> date -> event
	calendars map[string]map[monthKey]attendance.MonthlyCalendar
	stats     map[string]attendance.Statistics
}

func NewStore() *Store {
	return &Store{
		events:    make(map[string]map[string]attendance.Event),
		calendars: make(map[string]map[monthKey]attendance.MonthlyCalendar),
		stats:     make(map[string]attendance.Statistics),
	}
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// snapshot deep-copies all state for transactional rollback.
func (s *Store) snapshot() (map[string]map[string]attendance.Event, map[string]map[monthKey]attendance.MonthlyCalendar, map[string]attendance.Statistics) {
	events := make(map[string]map[string]attendance.Event, len(s.events))
	for emp, byDate := range s.events {
		inner := make(map[string]attendance.Event, len(byDate))
		for k, v := range byDate {
			inner[k] = v
		}
		events[emp] = inner
	}
	calendars := make(map[string]map[monthKey]attendance.MonthlyCalendar, len(s.calendars))
	for emp, byMonth := range s.calendars {
		inner := make(map[monthKey]attendance.MonthlyCalendar, len(byMonth))
		for k, v := range byMonth {
			inner[k] = v
		}
		calendars[emp] = inner
	}
	stats := make(map[string]attendance.Statistics, len(s.stats))
	for k, v := range s.stats {
		stats[k] = v
	}
	return events, calendars, stats
}

// WithinTransaction implements database.TxManager.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	events, calendars, stats := s.snapshot()
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.events, s.calendars, s.stats = events, calendars, stats
		s.mu.Unlock()
		return err
	}
	return nil
}

// ========================================
// EVENT REPOSITORY
// ========================================

type EventRepository struct {
	store *Store
}

func NewEventRepository(store *Store) *EventRepository {
	return &EventRepository{store: store}
}

func (r *EventRepository) Create(ctx context.Context, event attendance.Event) (attendance.Event, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	byDate := s.events[event.EmployeeID]
	if byDate == nil {
		byDate = make(map[string]attendance.Event)
		s.events[event.EmployeeID] = byDate
	}
	key := dateKey(event.Date)
	if _, exists := byDate[key]; exists {
		return attendance.Event{}, attendance.ErrDuplicateDay
	}

	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	byDate[key] = event
	return event, nil
}

func (r *EventRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Event, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[employeeID][dateKey(date)]
	if !ok {
		return nil, nil
	}
	return &event, nil
}

func (r *EventRepository) SetCheckOut(ctx context.Context, eventID string, at time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, byDate := range s.events {
		for key, event := range byDate {
			if event.ID == eventID {
				event.CheckOut = &at
				event.UpdatedAt = time.Now().UTC()
				byDate[key] = event
				return nil
			}
		}
	}
	return attendance.ErrEventNotFound
}

func (r *EventRepository) List(ctx context.Context, employeeID string, filter attendance.EventFilter) ([]attendance.Event, int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []attendance.Event
	for _, event := range s.events[employeeID] {
		if filter.StartDate != nil && *filter.StartDate != "" && event.Date.Format("2006-01-02") < *filter.StartDate {
			continue
		}
		if filter.EndDate != nil && *filter.EndDate != "" && event.Date.Format("2006-01-02") > *filter.EndDate {
			continue
		}
		matched = append(matched, event)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Date.After(matched[j].Date) })

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *EventRepository) ListDatesAsc(ctx context.Context, employeeID string) ([]time.Time, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var dates []time.Time
	for _, event := range s.events[employeeID] {
		dates = append(dates, event.Date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func (r *EventRepository) CountInRange(ctx context.Context, employeeID string, from, to time.Time) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, event := range s.events[employeeID] {
		if !event.Date.Before(from) && !event.Date.After(to) {
			count++
		}
	}
	return count, nil
}

func (r *EventRepository) ListEmployeeIDs(ctx context.Context) ([]string, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, byDate := range s.events {
		if len(byDate) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ========================================
// CALENDAR REPOSITORY
// ========================================

type CalendarRepository struct {
	store *Store
}

func NewCalendarRepository(store *Store) *CalendarRepository {
	return &CalendarRepository{store: store}
}

func (r *CalendarRepository) Get(ctx context.Context, employeeID string, year, month int) (*attendance.MonthlyCalendar, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	cal, ok := s.calendars[employeeID][monthKey{Year: year, Month: month}]
	if !ok {
		return nil, nil
	}
	return &cal, nil
}

func (r *CalendarRepository) ListByYear(ctx context.Context, employeeID string, year int) ([]attendance.MonthlyCalendar, error) {
	calendars, err := r.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	var filtered []attendance.MonthlyCalendar
	for _, cal := range calendars {
		if cal.Year == year {
			filtered = append(filtered, cal)
		}
	}
	return filtered, nil
}

func (r *CalendarRepository) ListByEmployee(ctx context.Context, employeeID string) ([]attendance.MonthlyCalendar, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var calendars []attendance.MonthlyCalendar
	for _, cal := range s.calendars[employeeID] {
		calendars = append(calendars, cal)
	}
	sort.Slice(calendars, func(i, j int) bool {
		if calendars[i].Year != calendars[j].Year {
			return calendars[i].Year < calendars[j].Year
		}
		return calendars[i].Month < calendars[j].Month
	})
	return calendars, nil
}

func (r *CalendarRepository) Upsert(ctx context.Context, cal attendance.MonthlyCalendar) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	byMonth := s.calendars[cal.EmployeeID]
	if byMonth == nil {
		byMonth = make(map[monthKey]attendance.MonthlyCalendar)
		s.calendars[cal.EmployeeID] = byMonth
	}
	cal.UpdatedAt = time.Now().UTC()
	byMonth[monthKey{Year: cal.Year, Month: cal.Month}] = cal
	return nil
}

func (r *CalendarRepository) DeleteByEmployee(ctx context.Context, employeeID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.calendars, employeeID)
	return nil
}

// ========================================
// STATISTICS REPOSITORY
// ========================================

type StatisticsRepository struct {
	store *Store
}

func NewStatisticsRepository(store *Store) *StatisticsRepository {
	return &StatisticsRepository{store: store}
}

func (r *StatisticsRepository) Get(ctx context.Context, employeeID string) (*attendance.Statistics, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.stats[employeeID]
	if !ok {
		return nil, nil
	}
	return &stats, nil
}

func (r *StatisticsRepository) GetForUpdate(ctx context.Context, employeeID string) (*attendance.Statistics, error) {
	// Transactions already serialize on the store mutex; locking semantics
	// reduce to an ensure-exists read.
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.stats[employeeID]
	if !ok {
		stats = attendance.Statistics{EmployeeID: employeeID, UpdatedAt: time.Now().UTC()}
		s.stats[employeeID] = stats
	}
	return &stats, nil
}

func (r *StatisticsRepository) Upsert(ctx context.Context, stats attendance.Statistics) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stats.UpdatedAt = time.Now().UTC()
	s.stats[stats.EmployeeID] = stats
	return nil
}
