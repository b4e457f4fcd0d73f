package storage

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"testing"

	"github.com/plicometria/agenda/libs/db"
	"github.com/plicometria/agenda/services/agenda-service/internal/criteria"
	"github.com/plicometria/agenda/services/agenda-service/internal/model"
	"github.com/plicometria/agenda/services/agenda-service/internal/outbox"
)

// The SQL path and the in-memory path must select identical sets for
// identical inputs. This runs both against one seeded table and compares;
// set TEST_DATABASE_URL to enable it.
func TestListAgreesWithInMemoryFilter(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, dsn, db.Options{})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, "../../../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE appointments, outbox_events`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	repo := NewAppointmentRepository(pool, outbox.NewRepository(pool))
	seed := []model.Appointment{
		{Date: "2026-03-10", Start: "09:00", End: "10:00", PatientName: "Juan Pérez", Professional: "ana@example.com", SessionType: "Plicometría", Note: "primera sesión", Status: model.StatusPending},
		{Date: "2026-03-10", Start: "16:00", End: "17:00", PatientName: "María López", Professional: "luis@example.com", SessionType: "Seguimiento", Status: model.StatusConfirmed},
		{Date: "2026-03-11", Start: "09:30", End: "10:30", PatientName: "Pedro Gómez", Professional: "ana@example.com", SessionType: "Revisión", Note: "control", Status: model.StatusDone},
		{Date: "2026-03-12", Start: "11:00", End: "12:00", PatientName: "Lucía Díaz", Professional: "ana@example.com", Status: model.StatusCancelled},
	}
	for i := range seed {
		payload, err := json.Marshal(&seed[i])
		if err != nil {
			t.Fatalf("marshal seed: %v", err)
		}
		if err := repo.Create(ctx, &seed[i], outbox.Event{
			AggregateType: "appointment",
			AggregateID:   seed[i].ID,
			EventType:     outbox.EventAppointmentCreated,
			Payload:       payload,
		}); err != nil {
			t.Fatalf("seed appointment: %v", err)
		}
	}

	all, err := repo.ListAppointments(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != len(seed) {
		t.Fatalf("expected %d seeded appointments, got %d", len(seed), len(all))
	}

	matrix := []url.Values{
		{},
		{"professional": {"ana@example.com"}},
		{"professional": {"all"}},
		{"status": {"confirmed"}},
		{"status": {"done"}, "professional": {"ana@example.com"}},
		{"from": {"2026-03-10"}, "to": {"2026-03-11"}},
		{"from": {"2026-03-10T12:00:00Z"}},
		{"q": {"juan"}},
		{"q": {"sesión"}},
		{"q": {"ana@"}, "status": {"pending"}},
		{"professional": {"ana@example.com"}, "status": {"done"}, "from": {"2026-03-10"}, "to": {"2026-03-12"}, "q": {"control"}},
		{"q": {"nowhere"}},
	}
	for _, params := range matrix {
		c := criteria.Parse(params)

		fromSQL, err := repo.List(ctx, c)
		if err != nil {
			t.Fatalf("list %v: %v", params, err)
		}
		fromMemory := c.Filter(all)

		if !sameIDs(fromSQL, fromMemory) {
			t.Fatalf("paths disagree for %v: sql=%v memory=%v", params, ids(fromSQL), ids(fromMemory))
		}
	}
}

func ids(appts []model.Appointment) []string {
	out := make([]string, 0, len(appts))
	for _, a := range appts {
		out = append(out, a.ID)
	}
	return out
}

func sameIDs(a, b []model.Appointment) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, appt := range a {
		seen[appt.ID] = true
	}
	for _, appt := range b {
		if !seen[appt.ID] {
			return false
		}
	}
	return true
}
