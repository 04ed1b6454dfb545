package attendance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/presensia/attendance-engine/internal/domain/attendance"
	"github.com/presensia/attendance-engine/internal/pkg/bitmask"
	"github.com/presensia/attendance-engine/internal/pkg/database"
)

type AttendanceServiceImpl struct {
	tx  database.TxManager
	loc *time.Location
	now func() time.Time
	attendance.EventRepository
	attendance.CalendarRepository
	attendance.StatisticsRepository
}

func NewAttendanceService(
	tx database.TxManager,
	eventRepo attendance.EventRepository,
	calendarRepo attendance.CalendarRepository,
	statisticsRepo attendance.StatisticsRepository,
	loc *time.Location,
) attendance.AttendanceService {
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceServiceImpl{
		tx:                   tx,
		loc:                  loc,
		now:                  time.Now,
		EventRepository:      eventRepo,
		CalendarRepository:   calendarRepo,
		StatisticsRepository: statisticsRepo,
	}
}

// timePtrToString safely converts a *time.Time to a string.
func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	format := t.Format("2006-01-02 15:04:05")
	return &format
}

func datePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	format := t.Format("2006-01-02")
	return &format
}

// today is the UTC midnight representing the current calendar day in the
// reference timezone.
func (a *AttendanceServiceImpl) today() time.Time {
	nowLocal := a.now().In(a.loc)
	return time.Date(nowLocal.Year(), nowLocal.Month(), nowLocal.Day(), 0, 0, 0, 0, time.UTC)
}

// normalizeDay resolves a request date ("2006-01-02", or empty for today in
// the reference timezone) to the UTC midnight that represents that calendar
// day in storage.
func (a *AttendanceServiceImpl) normalizeDay(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return a.today(), nil
	}
	day, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
	}
	return day, nil
}

// RecordCheckIn implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) RecordCheckIn(ctx context.Context, req attendance.CheckInRequest) (attendance.CheckInResult, error) {
	if err := req.Validate(); err != nil {
		return attendance.CheckInResult{}, err
	}

	day, err := a.normalizeDay(req.Date)
	if err != nil {
		return attendance.CheckInResult{}, err
	}

	checkIn := a.now().UTC()
	if req.CheckInTime != nil {
		checkIn = req.CheckInTime.UTC()
	}

	// Fast path for the common duplicate; the storage unique constraint is
	// what actually guarantees uniqueness under a race.
	existing, err := a.EventRepository.GetByEmployeeAndDate(ctx, req.EmployeeID, day)
	if err != nil {
		return attendance.CheckInResult{}, fmt.Errorf("failed to check existing attendance: %w", err)
	}
	if existing != nil {
		return attendance.CheckInResult{Event: mapEventToResponse(*existing)}, attendance.ErrDuplicateDay
	}

	event := attendance.Event{
		ID:         uuid.NewString(),
		EmployeeID: req.EmployeeID,
		Username:   req.Username,
		Date:       day,
		CheckIn:    &checkIn,
		Location:   req.Location,
	}
	for _, p := range req.Photos {
		event.Photos = append(event.Photos, attendance.Photo{
			ID:        uuid.NewString(),
			EventID:   event.ID,
			PhotoURL:  p.URL,
			PhotoType: p.Type,
		})
	}
	if req.Audio != nil {
		event.Audio = &attendance.Audio{
			ID:              uuid.NewString(),
			EventID:         event.ID,
			AudioURL:        req.Audio.URL,
			DurationSeconds: req.Audio.DurationSeconds,
		}
	}

	var result attendance.CheckInResult
	err = a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		created, err := a.EventRepository.Create(ctx, event)
		if err != nil {
			return err
		}

		// Lock the statistics row first so concurrent check-ins for the same
		// employee on different days serialize instead of losing an update.
		prev, err := a.StatisticsRepository.GetForUpdate(ctx, req.EmployeeID)
		if err != nil {
			return fmt.Errorf("failed to lock statistics: %w", err)
		}
		prevStats := attendance.Statistics{EmployeeID: req.EmployeeID}
		if prev != nil {
			prevStats = *prev
		}

		nextStats, err := applyEvent(prevStats, day)
		if err != nil {
			if errors.Is(err, attendance.ErrOutOfOrder) {
				// Backfilling behind the last recorded day would corrupt the
				// incremental streak; recompute is the backfill path.
				return err
			}
			// The event row was created, so the statistics row disagrees with
			// the history. Recompute is the repair path.
			return fmt.Errorf("statistics out of sync with events: %w", err)
		}
		nextStats.UpdatedAt = a.now().UTC()

		year, month := day.Year(), int(day.Month())
		cal, err := a.CalendarRepository.Get(ctx, req.EmployeeID, year, month)
		if err != nil {
			return fmt.Errorf("failed to get monthly calendar: %w", err)
		}
		var mask bitmask.Mask
		if cal != nil {
			mask = cal.Mask
		}
		mask = mask.SetDay(day.Day())

		updatedCal := attendance.MonthlyCalendar{
			EmployeeID: req.EmployeeID,
			Year:       year,
			Month:      month,
			Mask:       mask,
			TotalDays:  mask.Count(),
			UpdatedAt:  a.now().UTC(),
		}
		if err := a.CalendarRepository.Upsert(ctx, updatedCal); err != nil {
			return fmt.Errorf("failed to upsert monthly calendar: %w", err)
		}
		if err := a.StatisticsRepository.Upsert(ctx, nextStats); err != nil {
			return fmt.Errorf("failed to upsert statistics: %w", err)
		}

		weekCount, err := a.EventRepository.CountInRange(ctx, req.EmployeeID, startOfWeek(day), day)
		if err != nil {
			return fmt.Errorf("failed to count week attendance: %w", err)
		}

		statsResp, err := a.statisticsResponse(ctx, nextStats)
		if err != nil {
			return err
		}
		statsResp.ThisWeekCount = weekCount

		result = attendance.CheckInResult{
			Event: mapEventToResponse(created),
			Calendar: attendance.CalendarResponse{
				EmployeeID: req.EmployeeID,
				Year:       year,
				Months:     []attendance.MonthView{mapCalendarToView(updatedCal)},
			},
			Statistics: statsResp,
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, attendance.ErrDuplicateDay) {
			// Lost the race: surface the winner's record like the fast path.
			winner, ferr := a.EventRepository.GetByEmployeeAndDate(ctx, req.EmployeeID, day)
			if ferr == nil && winner != nil {
				return attendance.CheckInResult{Event: mapEventToResponse(*winner)}, attendance.ErrDuplicateDay
			}
			return attendance.CheckInResult{}, attendance.ErrDuplicateDay
		}
		return attendance.CheckInResult{}, err
	}

	return result, nil
}

// RecordCheckOut implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) RecordCheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.EventResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.EventResponse{}, err
	}

	day, err := a.normalizeDay(req.Date)
	if err != nil {
		return attendance.EventResponse{}, err
	}

	event, err := a.EventRepository.GetByEmployeeAndDate(ctx, req.EmployeeID, day)
	if err != nil {
		return attendance.EventResponse{}, fmt.Errorf("failed to get attendance: %w", err)
	}
	if event == nil {
		return attendance.EventResponse{}, attendance.ErrNotCheckedIn
	}
	if event.CheckOut != nil {
		return attendance.EventResponse{}, attendance.ErrAlreadyCheckedOut
	}

	checkOut := a.now().UTC()
	if req.CheckOutTime != nil {
		checkOut = req.CheckOutTime.UTC()
	}

	if err := a.EventRepository.SetCheckOut(ctx, event.ID, checkOut); err != nil {
		return attendance.EventResponse{}, fmt.Errorf("failed to set check-out: %w", err)
	}

	event.CheckOut = &checkOut
	return mapEventToResponse(*event), nil
}

// GetCalendar implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetCalendar(ctx context.Context, employeeID string, year, month int) (attendance.CalendarResponse, error) {
	if err := validateCalendarQuery(employeeID, year, month); err != nil {
		return attendance.CalendarResponse{}, err
	}

	resp := attendance.CalendarResponse{
		EmployeeID: employeeID,
		Year:       year,
		Months:     []attendance.MonthView{},
	}

	if month != 0 {
		cal, err := a.CalendarRepository.Get(ctx, employeeID, year, month)
		if err != nil {
			return attendance.CalendarResponse{}, fmt.Errorf("failed to get monthly calendar: %w", err)
		}
		view := attendance.MonthView{Month: month, PresentDays: []int{}, DaysMask: bitmask.Mask(0).Encode()}
		if cal != nil {
			view = mapCalendarToView(*cal)
		}
		resp.Months = append(resp.Months, view)
		return resp, nil
	}

	calendars, err := a.CalendarRepository.ListByYear(ctx, employeeID, year)
	if err != nil {
		return attendance.CalendarResponse{}, fmt.Errorf("failed to list calendars: %w", err)
	}
	for _, cal := range calendars {
		resp.Months = append(resp.Months, mapCalendarToView(cal))
	}
	return resp, nil
}

// GetStatistics implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetStatistics(ctx context.Context, employeeID string) (attendance.StatisticsResponse, error) {
	if err := validateEmployeeID(employeeID); err != nil {
		return attendance.StatisticsResponse{}, err
	}

	stats, err := a.StatisticsRepository.Get(ctx, employeeID)
	if err != nil {
		return attendance.StatisticsResponse{}, fmt.Errorf("failed to get statistics: %w", err)
	}
	if stats == nil || stats.TotalDays == 0 {
		return attendance.StatisticsResponse{}, attendance.ErrEmployeeNotFound
	}

	resp, err := a.statisticsResponse(ctx, *stats)
	if err != nil {
		return attendance.StatisticsResponse{}, err
	}

	today := a.today()
	weekCount, err := a.EventRepository.CountInRange(ctx, employeeID, startOfWeek(today), today)
	if err != nil {
		return attendance.StatisticsResponse{}, fmt.Errorf("failed to count week attendance: %w", err)
	}
	resp.ThisWeekCount = weekCount
	return resp, nil
}

// RecomputeStatistics implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) RecomputeStatistics(ctx context.Context, employeeID string) (attendance.StatisticsResponse, error) {
	if err := validateEmployeeID(employeeID); err != nil {
		return attendance.StatisticsResponse{}, err
	}

	var rebuilt attendance.Statistics
	err := a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		dates, err := a.EventRepository.ListDatesAsc(ctx, employeeID)
		if err != nil {
			return fmt.Errorf("failed to list event dates: %w", err)
		}
		if len(dates) == 0 {
			return attendance.ErrEmployeeNotFound
		}

		stats, masks, err := rebuild(employeeID, dates)
		if err != nil {
			return fmt.Errorf("failed to rebuild statistics: %w", err)
		}
		stats.UpdatedAt = a.now().UTC()

		if err := a.CalendarRepository.DeleteByEmployee(ctx, employeeID); err != nil {
			return fmt.Errorf("failed to clear calendars: %w", err)
		}

		keys := make([]monthKey, 0, len(masks))
		for key := range masks {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].Year != keys[j].Year {
				return keys[i].Year < keys[j].Year
			}
			return keys[i].Month < keys[j].Month
		})
		for _, key := range keys {
			mask := masks[key]
			cal := attendance.MonthlyCalendar{
				EmployeeID: employeeID,
				Year:       key.Year,
				Month:      key.Month,
				Mask:       mask,
				TotalDays:  mask.Count(),
				UpdatedAt:  a.now().UTC(),
			}
			if err := a.CalendarRepository.Upsert(ctx, cal); err != nil {
				return fmt.Errorf("failed to upsert calendar %d-%02d: %w", key.Year, key.Month, err)
			}
		}

		if err := a.StatisticsRepository.Upsert(ctx, stats); err != nil {
			return fmt.Errorf("failed to upsert statistics: %w", err)
		}

		rebuilt = stats
		return nil
	})
	if err != nil {
		return attendance.StatisticsResponse{}, err
	}

	resp, err := a.statisticsResponse(ctx, rebuilt)
	if err != nil {
		return attendance.StatisticsResponse{}, err
	}
	today := a.today()
	weekCount, err := a.EventRepository.CountInRange(ctx, employeeID, startOfWeek(today), today)
	if err != nil {
		return attendance.StatisticsResponse{}, fmt.Errorf("failed to count week attendance: %w", err)
	}
	resp.ThisWeekCount = weekCount
	return resp, nil
}

// ListEvents implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ListEvents(ctx context.Context, employeeID string, filter attendance.EventFilter) (attendance.ListEventsResponse, error) {
	if err := validateEmployeeID(employeeID); err != nil {
		return attendance.ListEventsResponse{}, err
	}
	if err := filter.Validate(); err != nil {
		return attendance.ListEventsResponse{}, err
	}

	events, total, err := a.EventRepository.List(ctx, employeeID, filter)
	if err != nil {
		return attendance.ListEventsResponse{}, fmt.Errorf("failed to list events: %w", err)
	}

	responses := make([]attendance.EventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, mapEventToResponse(event))
	}

	return attendance.ListEventsResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		Events:     responses,
	}, nil
}

// statisticsResponse builds the read projection: durable counters from the
// statistics row, monthly counts from the calendar rows, and the wall-clock
// snapshot fields. ThisWeekCount is filled in by the caller, which knows the
// window to count.
func (a *AttendanceServiceImpl) statisticsResponse(ctx context.Context, stats attendance.Statistics) (attendance.StatisticsResponse, error) {
	calendars, err := a.CalendarRepository.ListByEmployee(ctx, stats.EmployeeID)
	if err != nil {
		return attendance.StatisticsResponse{}, fmt.Errorf("failed to list calendars: %w", err)
	}

	monthlyCount := make(map[int]map[int]int)
	for _, cal := range calendars {
		if monthlyCount[cal.Year] == nil {
			monthlyCount[cal.Year] = make(map[int]int)
		}
		monthlyCount[cal.Year][cal.Month] = cal.TotalDays
	}

	now := a.now().In(a.loc)
	thisMonth := 0
	if months, ok := monthlyCount[now.Year()]; ok {
		thisMonth = months[int(now.Month())]
	}

	return attendance.StatisticsResponse{
		EmployeeID:      stats.EmployeeID,
		TotalDays:       stats.TotalDays,
		CurrentStreak:   stats.CurrentStreak,
		LongestStreak:   stats.LongestStreak,
		FirstAttendance: datePtrToString(stats.FirstAttendance),
		LastAttendance:  datePtrToString(stats.LastAttendance),
		ThisMonthCount:  thisMonth,
		WeeklyAverage:   weeklyAverage(stats.TotalDays, stats.FirstAttendance, a.now().UTC()),
		MonthlyCount:    monthlyCount,
	}, nil
}

func mapEventToResponse(event attendance.Event) attendance.EventResponse {
	photos := make([]attendance.PhotoRef, 0, len(event.Photos))
	for _, p := range event.Photos {
		photos = append(photos, attendance.PhotoRef{URL: p.PhotoURL, Type: p.PhotoType})
	}
	var audio *attendance.AudioRef
	if event.Audio != nil {
		audio = &attendance.AudioRef{URL: event.Audio.AudioURL, DurationSeconds: event.Audio.DurationSeconds}
	}
	return attendance.EventResponse{
		ID:           event.ID,
		EmployeeID:   event.EmployeeID,
		Username:     event.Username,
		Date:         event.Date.Format("2006-01-02"),
		CheckInTime:  timePtrToString(event.CheckIn),
		CheckOutTime: timePtrToString(event.CheckOut),
		Location:     event.Location,
		Photos:       photos,
		Audio:        audio,
		CreatedAt:    event.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func mapCalendarToView(cal attendance.MonthlyCalendar) attendance.MonthView {
	return attendance.MonthView{
		Month:       cal.Month,
		PresentDays: cal.Mask.Days(),
		TotalDays:   cal.TotalDays,
		DaysMask:    cal.Mask.Encode(),
	}
}
