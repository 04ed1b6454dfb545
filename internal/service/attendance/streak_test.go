package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presensia/attendance-engine/internal/domain/attendance"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func days(ss ...string) []time.Time {
	out := make([]time.Time, 0, len(ss))
	for _, s := range ss {
		out = append(out, day(s))
	}
	return out
}

func TestAdvanceStreak_FirstEvent(t *testing.T) {
	state, err := AdvanceStreak(StreakState{}, day("2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, state.Current)
	assert.Equal(t, 1, state.Longest)
	require.NotNil(t, state.Last)
	assert.Equal(t, day("2024-01-01"), *state.Last)
}

func TestAdvanceStreak_ConsecutiveDay(t *testing.T) {
	last := day("2024-01-02")
	state, err := AdvanceStreak(StreakState{Last: &last, Current: 2, Longest: 2}, day("2024-01-03"))
	require.NoError(t, err)
	assert.Equal(t, 3, state.Current)
	assert.Equal(t, 3, state.Longest)
}

func TestAdvanceStreak_GapResets(t *testing.T) {
	last := day("2024-01-03")
	state, err := AdvanceStreak(StreakState{Last: &last, Current: 3, Longest: 3}, day("2024-01-06"))
	require.NoError(t, err)
	assert.Equal(t, 1, state.Current)
	assert.Equal(t, 3, state.Longest, "longest streak survives a break")
}

func TestAdvanceStreak_LongestFollowsCurrent(t *testing.T) {
	last := day("2024-01-04")
	state, err := AdvanceStreak(StreakState{Last: &last, Current: 5, Longest: 5}, day("2024-01-05"))
	require.NoError(t, err)
	assert.Equal(t, 6, state.Current)
	assert.Equal(t, 6, state.Longest)
}

func TestAdvanceStreak_SameDayIsDuplicate(t *testing.T) {
	last := day("2024-01-05")
	_, err := AdvanceStreak(StreakState{Last: &last, Current: 1, Longest: 1}, day("2024-01-05"))
	assert.ErrorIs(t, err, attendance.ErrDuplicateDay)
}

func TestAdvanceStreak_EarlierDayIsOutOfOrder(t *testing.T) {
	last := day("2024-01-05")
	_, err := AdvanceStreak(StreakState{Last: &last, Current: 1, Longest: 1}, day("2024-01-04"))
	assert.ErrorIs(t, err, attendance.ErrOutOfOrder)
}

func TestAdvanceStreak_MonthBoundary(t *testing.T) {
	last := day("2024-01-31")
	state, err := AdvanceStreak(StreakState{Last: &last, Current: 4, Longest: 4}, day("2024-02-01"))
	require.NoError(t, err)
	assert.Equal(t, 5, state.Current)
}

func TestReplayStreak_BreakScenario(t *testing.T) {
	// Days 1, 2, 3 consecutive, then day 6: streak 3, broken to 1.
	state, err := ReplayStreak(days("2024-03-01", "2024-03-02", "2024-03-03", "2024-03-06"))
	require.NoError(t, err)
	assert.Equal(t, 1, state.Current)
	assert.Equal(t, 3, state.Longest)
}

func TestReplayStreak_MatchesIncremental(t *testing.T) {
	histories := [][]time.Time{
		days("2024-01-01"),
		days("2024-01-01", "2024-01-02", "2024-01-03", "2024-01-05"),
		days("2024-01-29", "2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"),
		days("2024-01-01", "2024-02-01", "2024-03-01"),
		days("2023-12-25", "2023-12-31", "2024-01-01", "2024-01-02", "2024-01-10", "2024-01-11", "2024-01-12", "2024-01-13"),
	}

	for _, history := range histories {
		replayed, err := ReplayStreak(history)
		require.NoError(t, err)

		var incremental StreakState
		for _, d := range history {
			incremental, err = AdvanceStreak(incremental, d)
			require.NoError(t, err)
		}

		assert.Equal(t, incremental.Current, replayed.Current, "history %v", history)
		assert.Equal(t, incremental.Longest, replayed.Longest, "history %v", history)
	}
}

func TestReplayStreak_DuplicateDateFails(t *testing.T) {
	_, err := ReplayStreak(days("2024-01-01", "2024-01-01"))
	assert.ErrorIs(t, err, attendance.ErrDuplicateDay)
}
