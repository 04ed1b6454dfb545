package attendance

import "errors"

// Attendance domain errors
var (
	// Check-in errors
	ErrDuplicateDay      = errors.New("attendance already recorded for this day")
	ErrNotCheckedIn      = errors.New("no check-in recorded for this day")
	ErrAlreadyCheckedOut = errors.New("check-out already recorded for this day")

	// Aggregation contract violations
	ErrOutOfOrder = errors.New("attendance date precedes the last recorded date")

	// General errors
	ErrEmployeeNotFound = errors.New("no attendance history for employee")
	ErrEventNotFound    = errors.New("attendance record not found")
)
