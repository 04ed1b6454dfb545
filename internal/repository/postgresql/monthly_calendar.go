package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/presensia/attendance-engine/internal/domain/attendance"
	"github.com/presensia/attendance-engine/internal/pkg/bitmask"
	"github.com/presensia/attendance-engine/internal/pkg/database"
)

type calendarRepository struct {
	db *database.DB
}

func NewCalendarRepository(db *database.DB) attendance.CalendarRepository {
	return &calendarRepository{db: db}
}

// Get implements attendance.CalendarRepository.
func (r *calendarRepository) Get(ctx context.Context, employeeID string, year, month int) (*attendance.MonthlyCalendar, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_id, year, month, days_mask, total_days, updated_at
		FROM monthly_calendars
		WHERE employee_id = $1
		  AND year = $2
		  AND month = $3
	`

	var cal attendance.MonthlyCalendar
	var maskStr string
	err := q.QueryRow(ctx, query, employeeID, year, month).Scan(
		&cal.EmployeeID, &cal.Year, &cal.Month, &maskStr, &cal.TotalDays, &cal.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Month not started yet
		}
		return nil, fmt.Errorf("failed to get monthly calendar: %w", err)
	}

	cal.Mask, err = bitmask.Parse(maskStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt days_mask for %s %d-%02d: %w", employeeID, year, month, err)
	}
	return &cal, nil
}

// ListByYear implements attendance.CalendarRepository.
func (r *calendarRepository) ListByYear(ctx context.Context, employeeID string, year int) ([]attendance.MonthlyCalendar, error) {
	return r.list(ctx, `
		SELECT employee_id, year, month, days_mask, total_days, updated_at
		FROM monthly_calendars
		WHERE employee_id = $1
		  AND year = $2
		ORDER BY month ASC
	`, employeeID, year)
}

// ListByEmployee implements attendance.CalendarRepository.
func (r *calendarRepository) ListByEmployee(ctx context.Context, employeeID string) ([]attendance.MonthlyCalendar, error) {
	return r.list(ctx, `
		SELECT employee_id, year, month, days_mask, total_days, updated_at
		FROM monthly_calendars
		WHERE employee_id = $1
		ORDER BY year ASC, month ASC
	`, employeeID)
}

func (r *calendarRepository) list(ctx context.Context, query string, args ...interface{}) ([]attendance.MonthlyCalendar, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list monthly calendars: %w", err)
	}
	defer rows.Close()

	var calendars []attendance.MonthlyCalendar
	for rows.Next() {
		var cal attendance.MonthlyCalendar
		var maskStr string
		if err := rows.Scan(&cal.EmployeeID, &cal.Year, &cal.Month, &maskStr, &cal.TotalDays, &cal.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan monthly calendar: %w", err)
		}
		cal.Mask, err = bitmask.Parse(maskStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt days_mask for %s %d-%02d: %w", cal.EmployeeID, cal.Year, cal.Month, err)
		}
		calendars = append(calendars, cal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate monthly calendars: %w", err)
	}
	return calendars, nil
}

// Upsert implements attendance.CalendarRepository.
func (r *calendarRepository) Upsert(ctx context.Context, cal attendance.MonthlyCalendar) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO monthly_calendars (employee_id, year, month, days_mask, total_days, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (employee_id, year, month)
		DO UPDATE SET days_mask = EXCLUDED.days_mask,
		              total_days = EXCLUDED.total_days,
		              updated_at = NOW()
	`, cal.EmployeeID, cal.Year, cal.Month, cal.Mask.Encode(), cal.TotalDays)
	if err != nil {
		return fmt.Errorf("failed to upsert monthly calendar: %w", err)
	}
	return nil
}

// DeleteByEmployee implements attendance.CalendarRepository.
func (r *calendarRepository) DeleteByEmployee(ctx context.Context, employeeID string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `DELETE FROM monthly_calendars WHERE employee_id = $1`, employeeID); err != nil {
		return fmt.Errorf("failed to delete monthly calendars: %w", err)
	}
	return nil
}
