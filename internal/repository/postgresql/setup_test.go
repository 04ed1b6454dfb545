package postgresql_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/presensia/attendance-engine/internal/pkg/database"
)

var (
	testDBOnce sync.Once
	testDB     *database.DB
	testDBErr  error
)

const testSchema = `
CREATE TABLE IF NOT EXISTS attendance_events (
	id UUID PRIMARY KEY,
	employee_id TEXT NOT NULL,
	username TEXT NOT NULL DEFAULT '',
	date DATE NOT NULL,
	check_in TIMESTAMPTZ,
	check_out TIMESTAMPTZ,
	location TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (employee_id, date)
);

CREATE TABLE IF NOT EXISTS attendance_photos (
	id UUID PRIMARY KEY,
	event_id UUID NOT NULL REFERENCES attendance_events(id) ON DELETE CASCADE,
	photo_url TEXT NOT NULL,
	photo_type TEXT NOT NULL DEFAULT 'front'
);

CREATE TABLE IF NOT EXISTS attendance_audio (
	id UUID PRIMARY KEY,
	event_id UUID NOT NULL REFERENCES attendance_events(id) ON DELETE CASCADE,
	audio_url TEXT NOT NULL,
	duration_seconds INT
);

CREATE TABLE IF NOT EXISTS monthly_calendars (
	employee_id TEXT NOT NULL,
	year INT NOT NULL,
	month INT NOT NULL,
	days_mask CHAR(31) NOT NULL,
	total_days INT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (employee_id, year, month)
);

CREATE TABLE IF NOT EXISTS attendance_statistics (
	employee_id TEXT PRIMARY KEY,
	total_days INT NOT NULL DEFAULT 0,
	current_streak INT NOT NULL DEFAULT 0,
	longest_streak INT NOT NULL DEFAULT 0,
	first_attendance DATE,
	last_attendance DATE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// setupTestDB connects to the database named by TEST_DATABASE_URL and
// ensures the schema exists. Tests are skipped when the variable is unset so
// the pure engine tests still run without Postgres.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	testDBOnce.Do(func() {
		testDB, testDBErr = database.NewPostgreSQLDB(dsn)
		if testDBErr != nil {
			return
		}
		_, testDBErr = testDB.Exec(context.Background(), testSchema)
	})
	if testDBErr != nil {
		t.Fatalf("failed to set up test database: %v", testDBErr)
	}
	return testDB
}
