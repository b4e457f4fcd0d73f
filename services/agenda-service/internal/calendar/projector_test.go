package calendar

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/plicometria/agenda/services/agenda-service/internal/model"
)

func testAppointments() []model.Appointment {
	return []model.Appointment{
		{
			ID:           "b2",
			Date:         "2026-03-10",
			Start:        "10:00",
			End:          "11:00",
			PatientName:  "Juan Pérez",
			SessionType:  "Plicometría",
			Professional: "ana@example.com",
			Status:       model.StatusPending,
		},
		{
			ID:          "a1",
			Date:        "2026-03-10",
			Start:       "09:00",
			End:         "09:30",
			PatientName: "María López",
			Status:      model.StatusConfirmed,
		},
	}
}

func TestProject_Mapping(t *testing.T) {
	events := Project(testAppointments())
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	// Sorted by start instant, so a1 (09:00) first.
	if events[0].ID != "a1" || events[1].ID != "b2" {
		t.Fatalf("expected order a1, b2; got %s, %s", events[0].ID, events[1].ID)
	}

	e := events[1]
	if e.Title != "Juan Pérez - Plicometría" {
		t.Fatalf("unexpected title %q", e.Title)
	}
	if !e.Start.Equal(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %s", e.Start)
	}
	if !e.End.Equal(time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %s", e.End)
	}
	if events[0].Title != "María López" {
		t.Fatalf("title without session type should be the patient alone, got %q", events[0].Title)
	}
}

func TestProject_StatusClasses(t *testing.T) {
	classes := map[model.Status]string{
		model.StatusPending:   "amber",
		model.StatusConfirmed: "emerald",
		model.StatusDone:      "sky",
		model.StatusCancelled: "rose",
	}
	for status, fragment := range classes {
		events := Project([]model.Appointment{{
			ID: "x", Date: "2026-03-10", Start: "09:00", End: "10:00", Status: status,
		}})
		if len(events) != 1 {
			t.Fatalf("expected 1 event for %s", status)
		}
		if !bytes.Contains([]byte(events[0].ClassName), []byte(fragment)) {
			t.Fatalf("status %s should style with %s, got %q", status, fragment, events[0].ClassName)
		}
	}
}

func TestProject_Idempotent(t *testing.T) {
	appts := testAppointments()

	first, err := json.Marshal(Project(appts))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	second, err := json.Marshal(Project(appts))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("projecting the same set twice must produce identical output")
	}

	// Input order must not matter either.
	reversed := []model.Appointment{appts[1], appts[0]}
	third, err := json.Marshal(Project(reversed))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !bytes.Equal(first, third) {
		t.Fatal("projection must not depend on input order")
	}
}

func TestProject_SkipsUnparsable(t *testing.T) {
	events := Project([]model.Appointment{
		{ID: "bad", Date: "garbage", Start: "09:00", End: "10:00"},
		{ID: "ok", Date: "2026-03-10", Start: "09:00", End: "10:00"},
	})
	if len(events) != 1 || events[0].ID != "ok" {
		t.Fatalf("unparsable records should be skipped, got %+v", events)
	}
}
