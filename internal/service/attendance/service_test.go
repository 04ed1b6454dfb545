package attendance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presensia/attendance-engine/internal/domain/attendance"
	"github.com/presensia/attendance-engine/internal/pkg/validator"
	"github.com/presensia/attendance-engine/internal/repository/memory"
)

// testClock pins wall-clock-dependent fields (this month/week counts, weekly
// average) so assertions are deterministic.
var testClock = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *AttendanceServiceImpl {
	t.Helper()
	store := memory.NewStore()
	svc := NewAttendanceService(
		store,
		memory.NewEventRepository(store),
		memory.NewCalendarRepository(store),
		memory.NewStatisticsRepository(store),
		time.UTC,
	).(*AttendanceServiceImpl)
	svc.now = func() time.Time { return testClock }
	return svc
}

func checkIn(t *testing.T, svc *AttendanceServiceImpl, employeeID, date string) attendance.CheckInResult {
	t.Helper()
	result, err := svc.RecordCheckIn(context.Background(), attendance.CheckInRequest{
		EmployeeID: employeeID,
		Username:   "tester",
		Date:       date,
	})
	require.NoError(t, err)
	return result
}

func TestRecordCheckIn_FirstEvent(t *testing.T) {
	svc := newTestService(t)

	location := "HQ lobby"
	duration := 12
	result, err := svc.RecordCheckIn(context.Background(), attendance.CheckInRequest{
		EmployeeID: "E1",
		Username:   "alice",
		Date:       "2024-01-01",
		Location:   &location,
		Photos: []attendance.PhotoRef{
			{URL: "https://cdn.example.com/p1.jpg", Type: "front"},
			{URL: "https://cdn.example.com/p2.jpg", Type: "side"},
		},
		Audio: &attendance.AudioRef{URL: "https://cdn.example.com/a1.m4a", DurationSeconds: &duration},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Event.ID)
	assert.Equal(t, "E1", result.Event.EmployeeID)
	assert.Equal(t, "alice", result.Event.Username)
	assert.Equal(t, "2024-01-01", result.Event.Date)
	require.NotNil(t, result.Event.CheckInTime)
	require.NotNil(t, result.Event.Location)
	assert.Equal(t, "HQ lobby", *result.Event.Location)
	assert.Len(t, result.Event.Photos, 2)
	require.NotNil(t, result.Event.Audio)
	assert.Equal(t, 12, *result.Event.Audio.DurationSeconds)

	require.Len(t, result.Calendar.Months, 1)
	assert.Equal(t, 2024, result.Calendar.Year)
	assert.Equal(t, []int{1}, result.Calendar.Months[0].PresentDays)
	assert.Equal(t, 1, result.Calendar.Months[0].TotalDays)

	assert.Equal(t, 1, result.Statistics.TotalDays)
	assert.Equal(t, 1, result.Statistics.CurrentStreak)
	assert.Equal(t, 1, result.Statistics.LongestStreak)
}

func TestRecordCheckIn_Scenario(t *testing.T) {
	// E1 checks in on 2024-01-01, 01-02, 01-03, 01-05.
	svc := newTestService(t)

	var last attendance.CheckInResult
	for _, date := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-05"} {
		last = checkIn(t, svc, "E1", date)
	}

	assert.Equal(t, 4, last.Statistics.TotalDays)
	assert.Equal(t, 1, last.Statistics.CurrentStreak, "streak broken by the gap before 01-05")
	assert.Equal(t, 3, last.Statistics.LongestStreak)
	require.NotNil(t, last.Statistics.FirstAttendance)
	assert.Equal(t, "2024-01-01", *last.Statistics.FirstAttendance)
	require.NotNil(t, last.Statistics.LastAttendance)
	assert.Equal(t, "2024-01-05", *last.Statistics.LastAttendance)

	require.Len(t, last.Calendar.Months, 1)
	month := last.Calendar.Months[0]
	assert.Equal(t, []int{1, 2, 3, 5}, month.PresentDays)
	assert.Equal(t, 4, month.TotalDays)
	assert.Equal(t, "1110100000000000000000000000000", month.DaysMask)

	// The clock is pinned to 2024-01-10, so January is the current month.
	assert.Equal(t, 4, last.Statistics.ThisMonthCount)
	// Week of the 01-05 check-in runs from Sunday 2023-12-31.
	assert.Equal(t, 4, last.Statistics.ThisWeekCount)
	// 9.5 days since first attendance -> 2 weeks -> 4 / 2.
	assert.InDelta(t, 2.0, last.Statistics.WeeklyAverage, 0.001)
	assert.Equal(t, 4, last.Statistics.MonthlyCount[2024][1])
}

func TestRecordCheckIn_DuplicateDay(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first := checkIn(t, svc, "E1", "2024-01-05")
	before, err := svc.GetStatistics(ctx, "E1")
	require.NoError(t, err)

	result, err := svc.RecordCheckIn(ctx, attendance.CheckInRequest{
		EmployeeID: "E1",
		Username:   "tester",
		Date:       "2024-01-05",
	})
	assert.ErrorIs(t, err, attendance.ErrDuplicateDay)
	assert.Equal(t, first.Event.ID, result.Event.ID, "existing record returned for reconciliation")

	after, err := svc.GetStatistics(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, before, after, "rejected check-in must not mutate statistics")

	cal, err := svc.GetCalendar(ctx, "E1", 2024, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cal.Months[0].TotalDays)
}

func TestRecordCheckIn_ValidationError(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.RecordCheckIn(context.Background(), attendance.CheckInRequest{Username: "alice"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "employee_id", verrs[0].Field)

	_, err = svc.RecordCheckIn(context.Background(), attendance.CheckInRequest{
		EmployeeID: "E1",
		Date:       "05-01-2024",
	})
	require.ErrorAs(t, err, &verrs)
}

func TestRecordCheckIn_DefaultsToToday(t *testing.T) {
	svc := newTestService(t)

	result := checkIn(t, svc, "E1", "")
	assert.Equal(t, "2024-01-10", result.Event.Date)
}

func TestToday_ReferenceTimezone(t *testing.T) {
	svc := newTestService(t)
	svc.loc = time.FixedZone("UTC+7", 7*3600)
	// 18:30 UTC is already the next calendar day at UTC+7.
	svc.now = func() time.Time { return time.Date(2024, 1, 10, 18, 30, 0, 0, time.UTC) }

	assert.Equal(t, "2024-01-11", svc.today().Format("2006-01-02"))

	day, err := svc.normalizeDay("")
	require.NoError(t, err)
	assert.True(t, day.Equal(svc.today()))
}

func TestRecordCheckIn_ConcurrentDuplicate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := attendance.CheckInRequest{
		EmployeeID: "E1",
		Username:   "tester",
		Date:       "2024-02-10",
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	results := make([]attendance.CheckInResult, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.RecordCheckIn(ctx, req)
		}(i)
	}
	wg.Wait()

	committed, rejected := 0, 0
	for i := range errs {
		switch {
		case errs[i] == nil:
			committed++
			assert.Equal(t, 1, results[i].Statistics.TotalDays)
		case assert.ErrorIs(t, errs[i], attendance.ErrDuplicateDay):
			rejected++
			assert.NotEmpty(t, results[i].Event.ID, "loser receives the winner's record")
		}
	}
	assert.Equal(t, 1, committed)
	assert.Equal(t, 1, rejected)

	stats, err := svc.GetStatistics(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalDays, "statistics reflect exactly one increment")
}

func TestRecordCheckOut(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecordCheckOut(ctx, attendance.CheckOutRequest{EmployeeID: "E1", Date: "2024-01-05"})
	assert.ErrorIs(t, err, attendance.ErrNotCheckedIn)

	checkIn(t, svc, "E1", "2024-01-05")

	resp, err := svc.RecordCheckOut(ctx, attendance.CheckOutRequest{EmployeeID: "E1", Date: "2024-01-05"})
	require.NoError(t, err)
	require.NotNil(t, resp.CheckOutTime)

	_, err = svc.RecordCheckOut(ctx, attendance.CheckOutRequest{EmployeeID: "E1", Date: "2024-01-05"})
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedOut)
}

func TestGetCalendar(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	checkIn(t, svc, "E1", "2023-12-31")
	checkIn(t, svc, "E1", "2024-01-15")
	checkIn(t, svc, "E1", "2024-02-20")

	// Single month
	cal, err := svc.GetCalendar(ctx, "E1", 2024, 1)
	require.NoError(t, err)
	require.Len(t, cal.Months, 1)
	assert.Equal(t, []int{15}, cal.Months[0].PresentDays)

	// Month with no check-ins reads as empty, not an error.
	cal, err = svc.GetCalendar(ctx, "E1", 2024, 3)
	require.NoError(t, err)
	require.Len(t, cal.Months, 1)
	assert.Empty(t, cal.Months[0].PresentDays)
	assert.Zero(t, cal.Months[0].TotalDays)

	// Whole year
	cal, err = svc.GetCalendar(ctx, "E1", 2024, 0)
	require.NoError(t, err)
	require.Len(t, cal.Months, 2)
	assert.Equal(t, 1, cal.Months[0].Month)
	assert.Equal(t, 2, cal.Months[1].Month)

	_, err = svc.GetCalendar(ctx, "E1", 2024, 13)
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestGetStatistics_NoHistory(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetStatistics(context.Background(), "ghost")
	assert.ErrorIs(t, err, attendance.ErrEmployeeNotFound)
}

func TestGetStatistics_MonthlyCountAgreesWithCalendar(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, date := range []string{"2023-12-30", "2023-12-31", "2024-01-01", "2024-01-02", "2024-01-05"} {
		checkIn(t, svc, "E1", date)
	}

	stats, err := svc.GetStatistics(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalDays)
	assert.Equal(t, 2, stats.MonthlyCount[2023][12])
	assert.Equal(t, 3, stats.MonthlyCount[2024][1])

	for year, months := range stats.MonthlyCount {
		for month, count := range months {
			cal, err := svc.GetCalendar(ctx, "E1", year, month)
			require.NoError(t, err)
			assert.Equal(t, count, cal.Months[0].TotalDays, "calendar/statistics agreement for %d-%02d", year, month)
		}
	}
}

func TestRecomputeStatistics_MatchesIncremental(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, date := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-05", "2024-02-01"} {
		checkIn(t, svc, "E1", date)
	}

	before, err := svc.GetStatistics(ctx, "E1")
	require.NoError(t, err)

	// Corrupt the derived state, then repair it from the event history.
	require.NoError(t, svc.StatisticsRepository.Upsert(ctx, attendance.Statistics{
		EmployeeID:    "E1",
		TotalDays:     99,
		CurrentStreak: 42,
		LongestStreak: 42,
	}))

	recomputed, err := svc.RecomputeStatistics(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, before, recomputed, "replay must reproduce the incremental projection")

	after, err := svc.GetStatistics(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRecomputeStatistics_NoHistory(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.RecomputeStatistics(context.Background(), "ghost")
	assert.ErrorIs(t, err, attendance.ErrEmployeeNotFound)
}

func TestListEvents(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, date := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		checkIn(t, svc, "E1", date)
	}

	resp, err := svc.ListEvents(ctx, "E1", attendance.EventFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, resp.TotalCount)
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "2024-01-03", resp.Events[0].Date, "newest first")

	start := "2024-01-02"
	resp, err = svc.ListEvents(ctx, "E1", attendance.EventFilter{StartDate: &start, Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.EqualValues(t, 2, resp.TotalCount)
}
