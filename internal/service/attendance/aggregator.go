package attendance

import (
	"fmt"
	"math"
	"time"

	"github.com/presensia/attendance-engine/internal/domain/attendance"
	"github.com/presensia/attendance-engine/internal/pkg/bitmask"
)

// applyEvent advances the durable statistics row for one new presence date.
// Only fields derived from the event history change here; point-in-time
// fields are computed at read time against the wall clock.
func applyEvent(prev attendance.Statistics, date time.Time) (attendance.Statistics, error) {
	streak, err := AdvanceStreak(StreakState{
		Last:    prev.LastAttendance,
		Current: prev.CurrentStreak,
		Longest: prev.LongestStreak,
	}, date)
	if err != nil {
		return prev, err
	}

	next := prev
	next.TotalDays++
	next.CurrentStreak = streak.Current
	next.LongestStreak = streak.Longest
	next.LastAttendance = streak.Last
	if next.FirstAttendance == nil {
		d := date
		next.FirstAttendance = &d
	}
	return next, nil
}

// monthKey identifies one (year, month) calendar.
type monthKey struct {
	Year  int
	Month int
}

// rebuild replays an ascending event history from zero state, producing the
// statistics row and every month mask. RecomputeStatistics overwrites the
// stored projections with this output; for any history the result must match
// what the incremental path accumulated event by event.
func rebuild(employeeID string, dates []time.Time) (attendance.Statistics, map[monthKey]bitmask.Mask, error) {
	stats := attendance.Statistics{EmployeeID: employeeID}
	masks := make(map[monthKey]bitmask.Mask)

	for _, date := range dates {
		next, err := applyEvent(stats, date)
		if err != nil {
			return stats, masks, fmt.Errorf("replay at %s: %w", date.Format("2006-01-02"), err)
		}
		stats = next

		key := monthKey{Year: date.Year(), Month: int(date.Month())}
		masks[key] = masks[key].SetDay(date.Day())
	}
	return stats, masks, nil
}

// startOfWeek returns the most recent Sunday at midnight, in the same
// location as date. A Sunday is its own week start.
func startOfWeek(date time.Time) time.Time {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// weeklyAverage is totalDays over the number of weeks elapsed since the
// first attendance, rounded to two decimals. It is a snapshot against now,
// documented as approximate: recomputing later yields a different number.
func weeklyAverage(totalDays int, firstAttendance *time.Time, now time.Time) float64 {
	if totalDays == 0 || firstAttendance == nil {
		return 0
	}
	weeks := math.Ceil(now.Sub(*firstAttendance).Hours() / (24 * 7))
	if weeks < 1 {
		weeks = 1
	}
	avg := float64(totalDays) / weeks
	return math.Round(avg*100) / 100
}
