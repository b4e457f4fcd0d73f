package cache

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/plicometria/agenda/services/agenda-service/internal/model"
)

type fakeSource struct {
	appts []model.Appointment
	err   error
	calls int
}

func (s *fakeSource) ListAppointments(ctx context.Context) ([]model.Appointment, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.appts, nil
}

type fakeBacking struct {
	entries   map[string]model.Appointment
	loadErr   error
	storeErr  error
	storeHits int
}

func newFakeBacking() *fakeBacking {
	return &fakeBacking{entries: make(map[string]model.Appointment)}
}

func (b *fakeBacking) LoadAll(ctx context.Context) (map[string]model.Appointment, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	out := make(map[string]model.Appointment, len(b.entries))
	for k, v := range b.entries {
		out[k] = v
	}
	return out, nil
}

func (b *fakeBacking) Store(ctx context.Context, appt model.Appointment) error {
	b.storeHits++
	if b.storeErr != nil {
		return b.storeErr
	}
	b.entries[appt.ID] = appt
	return nil
}

func (b *fakeBacking) StoreAll(ctx context.Context, appts []model.Appointment) error {
	if b.storeErr != nil {
		return b.storeErr
	}
	for _, appt := range appts {
		b.entries[appt.ID] = appt
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func appt(id, date, start string) model.Appointment {
	return model.Appointment{ID: id, Date: date, Start: start, End: "23:59", Status: model.StatusPending}
}

func TestLoad_ColdPopulatesFromSource(t *testing.T) {
	source := &fakeSource{appts: []model.Appointment{appt("a1", "2026-03-10", "09:00")}}
	backing := newFakeBacking()
	rec := NewReconciler(source, backing, testLogger())

	got, err := rec.Load(context.Background())
	if err != nil {
		t.Fatalf("cold load failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("unexpected load result: %+v", got)
	}
	if source.calls != 1 {
		t.Fatalf("expected one remote fetch, got %d", source.calls)
	}
	if len(backing.entries) != 1 {
		t.Fatal("cold load should populate the backing")
	}
}

func TestLoad_WarmSkipsRemote(t *testing.T) {
	source := &fakeSource{appts: []model.Appointment{appt("a1", "2026-03-10", "09:00")}}
	rec := NewReconciler(source, newFakeBacking(), testLogger())

	if _, err := rec.Load(context.Background()); err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	source.err = errors.New("store down")
	got, err := rec.Load(context.Background())
	if err != nil {
		t.Fatalf("warm load must not touch the remote store: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("unexpected warm result: %+v", got)
	}
	if source.calls != 1 {
		t.Fatalf("warm load made a remote call, total %d", source.calls)
	}
}

func TestLoad_BackingPreferredOverSource(t *testing.T) {
	source := &fakeSource{err: errors.New("store down")}
	backing := newFakeBacking()
	backing.entries["a1"] = appt("a1", "2026-03-10", "09:00")
	rec := NewReconciler(source, backing, testLogger())

	got, err := rec.Load(context.Background())
	if err != nil {
		t.Fatalf("load with populated backing failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if source.calls != 0 {
		t.Fatal("populated backing should satisfy a cold load without the remote store")
	}
}

func TestLoad_ColdMissDegraded(t *testing.T) {
	source := &fakeSource{err: errors.New("store down")}
	backing := newFakeBacking()
	backing.loadErr = errors.New("backing down")
	rec := NewReconciler(source, backing, testLogger())

	_, err := rec.Load(context.Background())
	if !errors.Is(err, ErrSyncDegraded) {
		t.Fatalf("expected ErrSyncDegraded, got %v", err)
	}
}

func TestRefresh_StalePreferredOverFailure(t *testing.T) {
	source := &fakeSource{appts: []model.Appointment{appt("a1", "2026-03-10", "09:00")}}
	rec := NewReconciler(source, nil, testLogger())

	if _, err := rec.Load(context.Background()); err != nil {
		t.Fatalf("initial load failed: %v", err)
	}

	source.err = errors.New("store down")
	got, err := rec.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh with warm cache should serve stale data, got %v", err)
	}
	if len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("unexpected stale result: %+v", got)
	}
}

func TestPut_ReadYourWrites(t *testing.T) {
	source := &fakeSource{appts: []model.Appointment{appt("a1", "2026-03-10", "09:00")}}
	backing := newFakeBacking()
	rec := NewReconciler(source, backing, testLogger())

	if _, err := rec.Load(context.Background()); err != nil {
		t.Fatalf("initial load failed: %v", err)
	}

	created := appt("new", "2026-03-12", "10:00")
	rec.Put(context.Background(), created)

	got, err := rec.Load(context.Background())
	if err != nil {
		t.Fatalf("load after put failed: %v", err)
	}
	if len(got) != 2 || got[1].ID != "new" {
		t.Fatalf("a local write must be visible to the next read, got %+v", got)
	}
	if source.calls != 1 {
		t.Fatalf("a warm put must not fetch remotely, total calls %d", source.calls)
	}
	if _, ok := backing.entries["new"]; !ok {
		t.Fatal("put should write through to the backing")
	}
}

func TestPut_ColdHydratesFullSet(t *testing.T) {
	// Three existing appointments in the store, a fourth created against a
	// cold cache: the calendar view must show all four, not just the write.
	source := &fakeSource{appts: []model.Appointment{
		appt("a1", "2026-03-10", "09:00"),
		appt("a2", "2026-03-10", "10:00"),
		appt("a3", "2026-03-11", "09:00"),
	}}
	rec := NewReconciler(source, newFakeBacking(), testLogger())

	rec.Put(context.Background(), appt("a4", "2026-03-12", "10:00"))

	got, err := rec.Load(context.Background())
	if err != nil {
		t.Fatalf("load after cold put failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("cold put must hydrate before installing the write, got %d of 4", len(got))
	}
	if got[3].ID != "a4" {
		t.Fatalf("the written record should be present, got %+v", got)
	}
}

func TestPut_ColdHydrateFailureStaysCold(t *testing.T) {
	source := &fakeSource{err: errors.New("store down")}
	backing := newFakeBacking()
	backing.loadErr = errors.New("backing down")
	rec := NewReconciler(source, backing, testLogger())

	rec.Put(context.Background(), appt("a1", "2026-03-10", "09:00"))

	rec.mu.Lock()
	warm, entries := rec.warm, len(rec.entries)
	rec.mu.Unlock()
	if warm || entries != 0 {
		t.Fatal("a failed hydrate must not fabricate a one-record view")
	}
	if backing.storeHits != 0 {
		t.Fatal("a failed hydrate must not seed the backing with a single record")
	}

	// The record was committed to the store before the put, so a later
	// successful load sees it.
	source.err = nil
	source.appts = []model.Appointment{appt("a1", "2026-03-10", "09:00")}
	backing.loadErr = nil
	got, err := rec.Load(context.Background())
	if err != nil {
		t.Fatalf("recovery load failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("recovery load should surface the committed write, got %+v", got)
	}
}

func TestPut_BackingFailureNotFatal(t *testing.T) {
	backing := newFakeBacking()
	backing.storeErr = errors.New("backing down")
	rec := NewReconciler(&fakeSource{}, backing, testLogger())

	rec.Put(context.Background(), appt("a1", "2026-03-10", "09:00"))

	got, err := rec.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("in-memory write must survive a backing failure, got %+v", got)
	}
}

func TestApply_WarmOnly(t *testing.T) {
	rec := NewReconciler(&fakeSource{}, nil, testLogger())

	// Cold cache ignores pushed records; hydration covers them later.
	rec.Apply(appt("a1", "2026-03-10", "09:00"))
	rec.mu.Lock()
	cold := len(rec.entries)
	rec.mu.Unlock()
	if cold != 0 {
		t.Fatal("apply on a cold cache should be a no-op")
	}

	if _, err := rec.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	rec.Apply(appt("a2", "2026-03-11", "09:00"))
	got, err := rec.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a2" {
		t.Fatalf("pushed record should appear once warm, got %+v", got)
	}
}

func TestInstall_LatestRequestWins(t *testing.T) {
	rec := NewReconciler(&fakeSource{}, nil, testLogger())

	rec.mu.Lock()
	rec.gen = 5
	rec.mu.Unlock()

	stale := map[string]model.Appointment{"old": appt("old", "2026-03-01", "09:00")}
	if out := rec.install(4, stale); out != nil {
		t.Fatal("an older fetch must not overwrite newer state")
	}

	fresh := map[string]model.Appointment{"new": appt("new", "2026-03-02", "09:00")}
	out := rec.install(5, fresh)
	if len(out) != 1 || out[0].ID != "new" {
		t.Fatalf("current generation should install, got %+v", out)
	}
}

func TestSnapshot_Sorted(t *testing.T) {
	rec := NewReconciler(&fakeSource{appts: []model.Appointment{
		appt("z", "2026-03-11", "09:00"),
		appt("b", "2026-03-10", "10:00"),
		appt("a", "2026-03-10", "10:00"),
	}}, nil, testLogger())

	got, err := rec.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "z" {
		t.Fatalf("snapshot must sort by date, start, id; got %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
}
