package attendance

import (
	"time"

	"github.com/presensia/attendance-engine/internal/pkg/validator"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

type PhotoRef struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

type AudioRef struct {
	URL             string `json:"url"`
	DurationSeconds *int   `json:"duration_seconds,omitempty"`
}

type CheckInRequest struct {
	EmployeeID string `json:"employee_id"`
	Username   string `json:"username"`
	// Date is "2006-01-02"; empty means today in the reference timezone.
	Date        string     `json:"date,omitempty"`
	CheckInTime *time.Time `json:"check_in_time,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Photos      []PhotoRef `json:"photos,omitempty"`
	Audio       *AudioRef  `json:"audio,omitempty"`
}

func (r *CheckInRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if r.Date != "" {
		if _, ok := validator.IsValidDate(r.Date); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "date",
				Message: "date must be in YYYY-MM-DD format",
			})
		}
	}

	for _, p := range r.Photos {
		if validator.IsEmpty(p.URL) {
			errs = append(errs, validator.ValidationError{
				Field:   "photos",
				Message: "photo url is required",
			})
			break
		}
	}

	if r.Audio != nil && validator.IsEmpty(r.Audio.URL) {
		errs = append(errs, validator.ValidationError{
			Field:   "audio",
			Message: "audio url is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CheckOutRequest struct {
	EmployeeID string `json:"employee_id"`
	// Date is "2006-01-02"; empty means today in the reference timezone.
	Date         string     `json:"date,omitempty"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty"`
}

func (r *CheckOutRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if r.Date != "" {
		if _, ok := validator.IsValidDate(r.Date); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "date",
				Message: "date must be in YYYY-MM-DD format",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type EventFilter struct {
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
	Page      int     `json:"page"`
	Limit     int     `json:"limit"`
}

func (f *EventFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.StartDate != nil && *f.StartDate != "" {
		if _, ok := validator.IsValidDate(*f.StartDate); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be in YYYY-MM-DD format",
			})
		}
	}

	if f.EndDate != nil && *f.EndDate != "" {
		if _, ok := validator.IsValidDate(*f.EndDate); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be in YYYY-MM-DD format",
			})
		}
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 50
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========================================
// RESPONSES
// ========================================

type EventResponse struct {
	ID           string     `json:"id"`
	EmployeeID   string     `json:"employee_id"`
	Username     string     `json:"username"`
	Date         string     `json:"date"`
	CheckInTime  *string    `json:"check_in_time"`
	CheckOutTime *string    `json:"check_out_time"`
	Location     *string    `json:"location"`
	Photos       []PhotoRef `json:"photos"`
	Audio        *AudioRef  `json:"audio,omitempty"`
	CreatedAt    string     `json:"created_at"`
}

type MonthView struct {
	Month       int    `json:"month"`
	PresentDays []int  `json:"present_days"`
	TotalDays   int    `json:"total_days"`
	DaysMask    string `json:"days_mask"`
}

type CalendarResponse struct {
	EmployeeID string      `json:"employee_id"`
	Year       int         `json:"year"`
	Months     []MonthView `json:"months"`
}

type StatisticsResponse struct {
	EmployeeID      string              `json:"employee_id"`
	TotalDays       int                 `json:"total_days"`
	CurrentStreak   int                 `json:"current_streak"`
	LongestStreak   int                 `json:"longest_streak"`
	FirstAttendance *string             `json:"first_attendance"`
	LastAttendance  *string             `json:"last_attendance"`
	ThisMonthCount  int                 `json:"this_month_count"`
	ThisWeekCount   int                 `json:"this_week_count"`
	WeeklyAverage   float64             `json:"weekly_average"`
	MonthlyCount    map[int]map[int]int `json:"monthly_count"`
}

type CheckInResult struct {
	Event      EventResponse      `json:"event"`
	Calendar   CalendarResponse   `json:"calendar"`
	Statistics StatisticsResponse `json:"statistics"`
}

type ListEventsResponse struct {
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	Events     []EventResponse `json:"events"`
}
