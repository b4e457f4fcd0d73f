// Package cache keeps a local-first copy of the appointment set. Reads are
// served from memory once warm; the durable backing (Redis) survives process
// restarts, and the appointment store is only consulted on a cold start with
// an empty backing.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/plicometria/agenda/services/agenda-service/internal/model"
)

// ErrSyncDegraded signals that no cached data exists and the remote store
// could not be reached. Callers get an explicit degraded state instead of a
// silently empty result.
var ErrSyncDegraded = errors.New("appointment sync degraded")

// Source is the remote system of record, consulted only on a cold miss.
type Source interface {
	ListAppointments(ctx context.Context) ([]model.Appointment, error)
}

// Backing is the durable cache store. Records are keyed by appointment id
// and serialized field-for-field identically to the remote representation.
type Backing interface {
	LoadAll(ctx context.Context) (map[string]model.Appointment, error)
	Store(ctx context.Context, appt model.Appointment) error
	StoreAll(ctx context.Context, appts []model.Appointment) error
}

// Reconciler is the single owned cache instance. All consumers read and
// write through it; nothing else touches the backing directly.
type Reconciler struct {
	source  Source
	backing Backing
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[string]model.Appointment
	warm    bool
	gen     uint64 // bumped on every refresh; stale fetch results are discarded
}

func NewReconciler(source Source, backing Backing, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		source:  source,
		backing: backing,
		logger:  logger,
		entries: make(map[string]model.Appointment),
	}
}

// Load returns the current appointment set, warming the cache on first use.
// Once warm it never blocks on the remote store. The returned slice is a
// sorted copy; callers may keep it.
func (r *Reconciler) Load(ctx context.Context) ([]model.Appointment, error) {
	r.mu.Lock()
	if r.warm {
		out := r.snapshotLocked()
		r.mu.Unlock()
		return out, nil
	}
	r.mu.Unlock()
	return r.Refresh(ctx)
}

// Refresh re-reads the backing and, when it is empty, falls back to the
// remote store. If a newer refresh starts while this one is in flight, the
// in-flight result is discarded so stale data never overwrites newer state.
func (r *Reconciler) Refresh(ctx context.Context) ([]model.Appointment, error) {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	if r.backing != nil {
		cached, err := r.backing.LoadAll(ctx)
		if err != nil {
			r.logger.Warn("cache backing read failed", "err", err)
		} else if len(cached) > 0 {
			return r.install(gen, cached), nil
		}
	}

	remote, err := r.source.ListAppointments(ctx)
	if err != nil {
		// Prefer stale local data over a hard failure.
		r.mu.Lock()
		if r.warm {
			out := r.snapshotLocked()
			r.mu.Unlock()
			r.logger.Warn("remote fetch failed; serving cached appointments", "err", err)
			return out, nil
		}
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrSyncDegraded, err)
	}

	entries := make(map[string]model.Appointment, len(remote))
	for _, appt := range remote {
		entries[appt.ID] = appt
	}
	out := r.install(gen, entries)
	if out == nil {
		// A newer refresh won; report its view instead of the stale fetch.
		return r.Load(ctx)
	}

	if r.backing != nil {
		if err := r.backing.StoreAll(ctx, remote); err != nil {
			r.logger.Warn("cache backing populate failed", "err", err)
		}
	}
	return out, nil
}

// install swaps in a freshly fetched entry set unless a newer refresh has
// started since gen was taken. Returns nil when the result was discarded.
func (r *Reconciler) install(gen uint64, entries map[string]model.Appointment) []model.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen < r.gen {
		return nil
	}
	r.entries = entries
	r.warm = true
	return r.snapshotLocked()
}

// Put applies a local create or update: the in-memory view changes
// immediately (so a following read observes the write) and the backing is
// written through. A backing failure is logged, never fatal.
//
// A cold cache hydrates first. Folding a single write into an empty view
// would make it look like the whole agenda, in memory and in the backing
// both; the record is already committed to the store, so when hydration
// fails nothing is lost and the next successful refresh picks it up.
func (r *Reconciler) Put(ctx context.Context, appt model.Appointment) {
	r.mu.Lock()
	warm := r.warm
	r.mu.Unlock()

	if !warm {
		if _, err := r.Refresh(ctx); err != nil {
			r.logger.Warn("cache hydrate before write failed", "appointment_id", appt.ID, "err", err)
			return
		}
	}

	r.mu.Lock()
	r.entries[appt.ID] = appt
	r.mu.Unlock()

	if r.backing != nil {
		if err := r.backing.Store(ctx, appt); err != nil {
			r.logger.Warn("cache write-through failed", "appointment_id", appt.ID, "err", err)
		}
	}
}

// Apply folds in a record announced by another instance (push invalidation
// via the event consumer). Memory only: the originator already wrote the
// backing.
func (r *Reconciler) Apply(appt model.Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.warm {
		return
	}
	r.entries[appt.ID] = appt
}

func (r *Reconciler) snapshotLocked() []model.Appointment {
	out := make([]model.Appointment, 0, len(r.entries))
	for _, appt := range r.entries {
		out = append(out, appt)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	return out
}
