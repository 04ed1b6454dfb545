package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/presensia/attendance-engine/internal/domain/attendance"
	"github.com/presensia/attendance-engine/internal/pkg/database"
)

const uniqueViolationCode = "23505"

type eventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) attendance.EventRepository {
	return &eventRepository{db: db}
}

// Create implements attendance.EventRepository.
func (r *eventRepository) Create(ctx context.Context, event attendance.Event) (attendance.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance_events (
			id, employee_id, username, date, check_in, check_out, location
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		event.ID,
		event.EmployeeID,
		event.Username,
		event.Date,
		event.CheckIn,
		event.CheckOut,
		event.Location,
	).Scan(&event.CreatedAt, &event.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return attendance.Event{}, attendance.ErrDuplicateDay
		}
		return attendance.Event{}, fmt.Errorf("failed to create attendance event: %w", err)
	}

	for _, photo := range event.Photos {
		_, err := q.Exec(ctx, `
			INSERT INTO attendance_photos (id, event_id, photo_url, photo_type)
			VALUES ($1, $2, $3, $4)
		`, photo.ID, event.ID, photo.PhotoURL, photo.PhotoType)
		if err != nil {
			return attendance.Event{}, fmt.Errorf("failed to create attendance photo: %w", err)
		}
	}

	if event.Audio != nil {
		_, err := q.Exec(ctx, `
			INSERT INTO attendance_audio (id, event_id, audio_url, duration_seconds)
			VALUES ($1, $2, $3, $4)
		`, event.Audio.ID, event.ID, event.Audio.AudioURL, event.Audio.DurationSeconds)
		if err != nil {
			return attendance.Event{}, fmt.Errorf("failed to create attendance audio: %w", err)
		}
	}

	return event, nil
}

// GetByEmployeeAndDate implements attendance.EventRepository.
func (r *eventRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, employee_id, username, date, check_in, check_out, location, created_at, updated_at
		FROM attendance_events
		WHERE employee_id = $1
		  AND date = $2
		LIMIT 1
	`

	var event attendance.Event
	err := q.QueryRow(ctx, query, employeeID, date).Scan(
		&event.ID, &event.EmployeeID, &event.Username, &event.Date,
		&event.CheckIn, &event.CheckOut, &event.Location,
		&event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No existing attendance found
		}
		return nil, fmt.Errorf("failed to get attendance by employee and date: %w", err)
	}

	if err := r.loadMedia(ctx, []*attendance.Event{&event}); err != nil {
		return nil, err
	}

	return &event, nil
}

// SetCheckOut implements attendance.EventRepository.
func (r *eventRepository) SetCheckOut(ctx context.Context, eventID string, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE attendance_events
		SET check_out = $2, updated_at = NOW()
		WHERE id = $1
	`, eventID, at)
	if err != nil {
		return fmt.Errorf("failed to set check-out: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrEventNotFound
	}
	return nil
}

// List implements attendance.EventRepository.
func (r *eventRepository) List(ctx context.Context, employeeID string, filter attendance.EventFilter) ([]attendance.Event, int64, error) {
	q := GetQuerier(ctx, r.db)

	// Build WHERE clause
	baseWhere := "employee_id = $1"
	args := []interface{}{employeeID}
	argIdx := 2

	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND date >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND date <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM attendance_events WHERE " + baseWhere
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance events: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, employee_id, username, date, check_in, check_out, location, created_at, updated_at
		FROM attendance_events
		WHERE %s
		ORDER BY date DESC
		LIMIT $%d OFFSET $%d
	`, baseWhere, argIdx, argIdx+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendance events: %w", err)
	}
	defer rows.Close()

	var events []attendance.Event
	for rows.Next() {
		var event attendance.Event
		if err := rows.Scan(
			&event.ID, &event.EmployeeID, &event.Username, &event.Date,
			&event.CheckIn, &event.CheckOut, &event.Location,
			&event.CreatedAt, &event.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate attendance events: %w", err)
	}

	refs := make([]*attendance.Event, len(events))
	for i := range events {
		refs[i] = &events[i]
	}
	if err := r.loadMedia(ctx, refs); err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// ListDatesAsc implements attendance.EventRepository.
func (r *eventRepository) ListDatesAsc(ctx context.Context, employeeID string) ([]time.Time, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT date FROM attendance_events
		WHERE employee_id = $1
		ORDER BY date ASC
	`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list event dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan event date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event dates: %w", err)
	}
	return dates, nil
}

// CountInRange implements attendance.EventRepository.
func (r *eventRepository) CountInRange(ctx context.Context, employeeID string, from, to time.Time) (int, error) {
	q := GetQuerier(ctx, r.db)

	var count int
	err := q.QueryRow(ctx, `
		SELECT COUNT(*) FROM attendance_events
		WHERE employee_id = $1
		  AND date >= $2
		  AND date <= $3
	`, employeeID, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events in range: %w", err)
	}
	return count, nil
}

// ListEmployeeIDs implements attendance.EventRepository.
func (r *eventRepository) ListEmployeeIDs(ctx context.Context) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT DISTINCT employee_id FROM attendance_events ORDER BY employee_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employee ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan employee id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employee ids: %w", err)
	}
	return ids, nil
}

// loadMedia attaches photos and audio to the given events in two queries.
func (r *eventRepository) loadMedia(ctx context.Context, events []*attendance.Event) error {
	if len(events) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	ids := make([]string, 0, len(events))
	byID := make(map[string]*attendance.Event, len(events))
	for _, event := range events {
		ids = append(ids, event.ID)
		byID[event.ID] = event
	}

	photoRows, err := q.Query(ctx, `
		SELECT id, event_id, photo_url, photo_type
		FROM attendance_photos
		WHERE event_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load attendance photos: %w", err)
	}
	defer photoRows.Close()
	for photoRows.Next() {
		var photo attendance.Photo
		if err := photoRows.Scan(&photo.ID, &photo.EventID, &photo.PhotoURL, &photo.PhotoType); err != nil {
			return fmt.Errorf("failed to scan attendance photo: %w", err)
		}
		if event, ok := byID[photo.EventID]; ok {
			event.Photos = append(event.Photos, photo)
		}
	}
	if err := photoRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate attendance photos: %w", err)
	}

	audioRows, err := q.Query(ctx, `
		SELECT id, event_id, audio_url, duration_seconds
		FROM attendance_audio
		WHERE event_id = ANY($1)
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load attendance audio: %w", err)
	}
	defer audioRows.Close()
	for audioRows.Next() {
		var audio attendance.Audio
		if err := audioRows.Scan(&audio.ID, &audio.EventID, &audio.AudioURL, &audio.DurationSeconds); err != nil {
			return fmt.Errorf("failed to scan attendance audio: %w", err)
		}
		if event, ok := byID[audio.EventID]; ok {
			event.Audio = &audio
		}
	}
	if err := audioRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate attendance audio: %w", err)
	}

	return nil
}
