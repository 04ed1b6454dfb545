package attendance

import "context"

// AttendanceService is the aggregation engine surface exposed to
// collaborators (HTTP layer, admin tooling). Identity resolution and media
// storage happen before these calls; the engine treats employee IDs as
// opaque keys and media references as already-validated URLs.
type AttendanceService interface {
	// RecordCheckIn commits one attendance event and atomically updates the
	// month calendar and running statistics. On ErrDuplicateDay the result
	// carries the existing event so clients can reconcile; no state changes.
	RecordCheckIn(ctx context.Context, req CheckInRequest) (CheckInResult, error)

	// RecordCheckOut stamps the check-out time on the day's event. Aggregates
	// are keyed on presence, not working hours, so nothing else changes.
	RecordCheckOut(ctx context.Context, req CheckOutRequest) (EventResponse, error)

	// GetCalendar returns present days per month. month == 0 returns every
	// month of the year that has a calendar row.
	GetCalendar(ctx context.Context, employeeID string, year, month int) (CalendarResponse, error)

	// GetStatistics returns the stored projection with point-in-time fields
	// (this month/week, weekly average) computed against the current clock.
	GetStatistics(ctx context.Context, employeeID string) (StatisticsResponse, error)

	// RecomputeStatistics replays the full event history and overwrites all
	// derived state. Used for backfill and drift repair; idempotent.
	RecomputeStatistics(ctx context.Context, employeeID string) (StatisticsResponse, error)

	// ListEvents returns an employee's events, newest first.
	ListEvents(ctx context.Context, employeeID string, filter EventFilter) (ListEventsResponse, error)
}
