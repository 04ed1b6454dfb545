package attendance

import (
	"time"

	"github.com/presensia/attendance-engine/internal/pkg/bitmask"
)

// Event is one committed check-in (and optional check-out) for one employee
// on one calendar day. It is the source of truth; calendars and statistics
// are derived projections.
type Event struct {
	ID         string
	EmployeeID string
	Username   string
	Date       time.Time // midnight in the reference timezone, no time part
	CheckIn    *time.Time
	CheckOut   *time.Time
	Location   *string
	Photos     []Photo
	Audio      *Audio
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Photo is a media reference owned by an event. The engine stores the URL
// as handed over by the upload collaborator and never inspects the blob.
type Photo struct {
	ID        string
	EventID   string
	PhotoURL  string
	PhotoType string
}

type Audio struct {
	ID              string
	EventID         string
	AudioURL        string
	DurationSeconds *int
}

// MonthlyCalendar is the per-month presence projection. Bits are monotonic:
// set on check-in, never cleared outside a full recompute.
type MonthlyCalendar struct {
	EmployeeID string
	Year       int
	Month      int
	Mask       bitmask.Mask
	TotalDays  int
	UpdatedAt  time.Time
}

// Statistics is the durable per-employee running total. Point-in-time fields
// (this month/week counts, weekly average) are derived at read time and live
// only on the response DTO.
type Statistics struct {
	EmployeeID      string
	TotalDays       int
	CurrentStreak   int
	LongestStreak   int
	FirstAttendance *time.Time
	LastAttendance  *time.Time
	UpdatedAt       time.Time
}
