package attendance

import (
	"context"
	"time"
)

// EventRepository defines data access for attendance events. Create relies
// on a storage-level unique constraint on (employee_id, date); two racing
// writers for the same day cannot both succeed.
type EventRepository interface {
	// Create persists a new event with its media references. Returns
	// ErrDuplicateDay when an event already exists for (employee, date).
	Create(ctx context.Context, event Event) (Event, error)

	// GetByEmployeeAndDate returns the event for the given day, or nil when
	// none exists.
	GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*Event, error)

	// SetCheckOut stamps the check-out instant on an existing event.
	SetCheckOut(ctx context.Context, eventID string, at time.Time) error

	// List returns events for an employee, newest first, with pagination.
	List(ctx context.Context, employeeID string, filter EventFilter) ([]Event, int64, error)

	// ListDatesAsc returns all committed presence dates in ascending order.
	// Used by the recompute replay.
	ListDatesAsc(ctx context.Context, employeeID string) ([]time.Time, error)

	// CountInRange counts presence days with from <= date <= to.
	CountInRange(ctx context.Context, employeeID string, from, to time.Time) (int, error)

	// ListEmployeeIDs returns every employee with at least one event.
	ListEmployeeIDs(ctx context.Context) ([]string, error)
}

// CalendarRepository defines data access for monthly presence calendars.
type CalendarRepository interface {
	// Get returns the calendar for a month, or nil when none exists yet.
	Get(ctx context.Context, employeeID string, year, month int) (*MonthlyCalendar, error)

	ListByYear(ctx context.Context, employeeID string, year int) ([]MonthlyCalendar, error)

	ListByEmployee(ctx context.Context, employeeID string) ([]MonthlyCalendar, error)

	Upsert(ctx context.Context, calendar MonthlyCalendar) error

	// DeleteByEmployee clears all calendars ahead of a recompute rebuild.
	DeleteByEmployee(ctx context.Context, employeeID string) error
}

// StatisticsRepository defines data access for the per-employee running
// totals row.
type StatisticsRepository interface {
	// Get returns the statistics row, or nil when the employee has none.
	Get(ctx context.Context, employeeID string) (*Statistics, error)

	// GetForUpdate reads the row with a per-employee write lock so that
	// concurrent check-ins for the same employee serialize. Must be called
	// inside a transaction.
	GetForUpdate(ctx context.Context, employeeID string) (*Statistics, error)

	Upsert(ctx context.Context, stats Statistics) error
}
