package model

import (
	"errors"
	"strings"
	"time"
)

// Status is the appointment lifecycle state. Appointments start pending and
// move between states only through explicit user actions; there are no
// automatic transitions.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a raw status value. "all", empty and unrecognized
// values report ok=false so filter inputs degrade to "no constraint".
func ParseStatus(raw string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, true
	case StatusConfirmed:
		return StatusConfirmed, true
	case StatusDone:
		return StatusDone, true
	case StatusCancelled:
		return StatusCancelled, true
	default:
		return "", false
	}
}

var (
	ErrInvalidRange = errors.New("appointment start must be before end")
	ErrNotFound     = errors.New("appointment not found")
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

type Appointment struct {
	ID           string    `json:"id"`
	Date         string    `json:"date"`  // YYYY-MM-DD
	Start        string    `json:"start"` // HH:MM
	End          string    `json:"end"`   // HH:MM
	PatientName  string    `json:"patient_name"`
	Professional string    `json:"professional"` // email or display name
	SessionType  string    `json:"session_type"`
	ServiceID    string    `json:"service_id,omitempty"`
	Note         string    `json:"note,omitempty"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// StartAt composes the start instant from the date and start clock fields.
func (a Appointment) StartAt() (time.Time, error) {
	return CombineDateClock(a.Date, a.Start)
}

// EndAt composes the end instant. End is on the same calendar day as start.
func (a Appointment) EndAt() (time.Time, error) {
	return CombineDateClock(a.Date, a.End)
}

// ValidateRange enforces start < end within the same date.
func (a Appointment) ValidateRange() error {
	start, err := a.StartAt()
	if err != nil {
		return ErrInvalidRange
	}
	end, err := a.EndAt()
	if err != nil {
		return ErrInvalidRange
	}
	if !start.Before(end) {
		return ErrInvalidRange
	}
	return nil
}

// CombineDateClock parses a YYYY-MM-DD date plus an HH:MM clock into a UTC instant.
func CombineDateClock(date, clock string) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	c, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), 0, 0, time.UTC), nil
}
