package attendance

import (
	"fmt"
	"time"

	"github.com/presensia/attendance-engine/internal/domain/attendance"
)

// StreakState is the streak portion of the statistics row: everything the
// incremental recurrence needs from the previous check-in.
type StreakState struct {
	Last    *time.Time
	Current int
	Longest int
}

// AdvanceStreak applies one new presence date to the previous streak state.
// The caller guarantees chronological processing; a zero or negative day gap
// is a contract violation (duplicate or out-of-order event), surfaced as an
// error rather than absorbed into the counters.
func AdvanceStreak(state StreakState, date time.Time) (StreakState, error) {
	if state.Last == nil {
		state.Current = 1
	} else {
		gap := daysBetween(*state.Last, date)
		switch {
		case gap == 0:
			return state, fmt.Errorf("streak: %w: %s", attendance.ErrDuplicateDay, date.Format("2006-01-02"))
		case gap < 0:
			return state, fmt.Errorf("streak: %w: %s before %s", attendance.ErrOutOfOrder,
				date.Format("2006-01-02"), state.Last.Format("2006-01-02"))
		case gap == 1:
			state.Current++
		default:
			state.Current = 1
		}
	}

	if state.Current > state.Longest {
		state.Longest = state.Current
	}
	d := date
	state.Last = &d
	return state, nil
}

// ReplayStreak folds AdvanceStreak over an ascending date history. It must
// produce the same state as feeding the dates through AdvanceStreak one
// check-in at a time; recompute relies on that equivalence.
func ReplayStreak(dates []time.Time) (StreakState, error) {
	var state StreakState
	for _, d := range dates {
		next, err := AdvanceStreak(state, d)
		if err != nil {
			return state, err
		}
		state = next
	}
	return state, nil
}

// daysBetween returns b - a in whole calendar days, comparing by date
// components so the arithmetic is immune to DST offsets in the inputs.
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
