package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/presensia/attendance-engine/internal/domain/attendance"
	"github.com/presensia/attendance-engine/internal/pkg/database"
)

type statisticsRepository struct {
	db *database.DB
}

func NewStatisticsRepository(db *database.DB) attendance.StatisticsRepository {
	return &statisticsRepository{db: db}
}

// Get implements attendance.StatisticsRepository.
func (r *statisticsRepository) Get(ctx context.Context, employeeID string) (*attendance.Statistics, error) {
	return r.get(ctx, employeeID, false)
}

// GetForUpdate implements attendance.StatisticsRepository. It ensures the
// row exists before locking; FOR UPDATE on an absent row would not serialize
// two first-ever check-ins for the same employee.
func (r *statisticsRepository) GetForUpdate(ctx context.Context, employeeID string) (*attendance.Statistics, error) {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO attendance_statistics (employee_id, total_days, current_streak, longest_streak, updated_at)
		VALUES ($1, 0, 0, 0, NOW())
		ON CONFLICT (employee_id) DO NOTHING
	`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure statistics row: %w", err)
	}

	return r.get(ctx, employeeID, true)
}

func (r *statisticsRepository) get(ctx context.Context, employeeID string, forUpdate bool) (*attendance.Statistics, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT employee_id, total_days, current_streak, longest_streak,
		       first_attendance, last_attendance, updated_at
		FROM attendance_statistics
		WHERE employee_id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var stats attendance.Statistics
	err := q.QueryRow(ctx, query, employeeID).Scan(
		&stats.EmployeeID, &stats.TotalDays, &stats.CurrentStreak, &stats.LongestStreak,
		&stats.FirstAttendance, &stats.LastAttendance, &stats.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No statistics yet
		}
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	return &stats, nil
}

// Upsert implements attendance.StatisticsRepository.
func (r *statisticsRepository) Upsert(ctx context.Context, stats attendance.Statistics) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO attendance_statistics (
			employee_id, total_days, current_streak, longest_streak,
			first_attendance, last_attendance, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (employee_id)
		DO UPDATE SET total_days = EXCLUDED.total_days,
		              current_streak = EXCLUDED.current_streak,
		              longest_streak = EXCLUDED.longest_streak,
		              first_attendance = EXCLUDED.first_attendance,
		              last_attendance = EXCLUDED.last_attendance,
		              updated_at = NOW()
	`, stats.EmployeeID, stats.TotalDays, stats.CurrentStreak, stats.LongestStreak,
		stats.FirstAttendance, stats.LastAttendance)
	if err != nil {
		return fmt.Errorf("failed to upsert statistics: %w", err)
	}
	return nil
}
