package model

import (
	"testing"
	"time"
)

func TestParseStatus_Lenient(t *testing.T) {
	cases := map[string]struct {
		status Status
		ok     bool
	}{
		"pending":     {StatusPending, true},
		"Confirmed":   {StatusConfirmed, true},
		" done ":      {StatusDone, true},
		"CANCELLED":   {StatusCancelled, true},
		"all":         {"", false},
		"":            {"", false},
		"rescheduled": {"", false},
	}
	for raw, want := range cases {
		got, ok := ParseStatus(raw)
		if ok != want.ok || got != want.status {
			t.Fatalf("ParseStatus(%q) = (%q, %v), want (%q, %v)", raw, got, ok, want.status, want.ok)
		}
	}
}

func TestValidateRange(t *testing.T) {
	appt := Appointment{Date: "2026-03-10", Start: "09:00", End: "10:00"}
	if err := appt.ValidateRange(); err != nil {
		t.Fatalf("valid range rejected: %v", err)
	}

	appt.End = "09:00"
	if err := appt.ValidateRange(); err != ErrInvalidRange {
		t.Fatalf("start == end should fail with ErrInvalidRange, got %v", err)
	}

	appt.End = "08:30"
	if err := appt.ValidateRange(); err != ErrInvalidRange {
		t.Fatalf("start > end should fail with ErrInvalidRange, got %v", err)
	}

	appt.End = "not-a-time"
	if err := appt.ValidateRange(); err != ErrInvalidRange {
		t.Fatalf("unparsable end should fail with ErrInvalidRange, got %v", err)
	}
}

func TestCombineDateClock(t *testing.T) {
	at, err := CombineDateClock("2026-03-10", "14:30")
	if err != nil {
		t.Fatalf("CombineDateClock failed: %v", err)
	}
	want := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Fatalf("expected %s, got %s", want, at)
	}
}
