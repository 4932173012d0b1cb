package model

import "time"

const (
	StatusBooked    = "booked"
	StatusCancelled = "cancelled"
)

// Appointment is a booked visit. Service type, duration, and extra time
// are copied from the catalog at booking time so later catalog edits do
// not alter existing records.
type Appointment struct {
	ID              string
	Name            string
	Email           string
	Phone           string
	Note            string
	SelectedDate    time.Time // day granularity, midnight UTC
	StartMinute     int
	EndMinute       int // includes extra time
	ServiceType     string
	DurationMinutes int
	ExtraMinutes    int
	Status          string
	CancelledAt     *time.Time
	CancelReason    string
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// DayCount is one calendar badge: appointments booked on a day.
type DayCount struct {
	Day   string // canonical YYYY-MM-DD
	Count int
}
