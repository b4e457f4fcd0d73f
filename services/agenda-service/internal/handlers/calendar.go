package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/plicometria/agenda/libs/httpx"
	"github.com/plicometria/agenda/services/agenda-service/internal/cache"
	"github.com/plicometria/agenda/services/agenda-service/internal/calendar"
	"github.com/plicometria/agenda/services/agenda-service/internal/criteria"
	"github.com/plicometria/agenda/services/agenda-service/internal/model"
)

// CalendarSource serves the calendar read path from the local cache.
type CalendarSource interface {
	Load(ctx context.Context) ([]model.Appointment, error)
}

type CalendarHandler struct {
	source CalendarSource
	logger *slog.Logger
}

func NewCalendarHandler(source CalendarSource, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{source: source, logger: logger}
}

// Events serves the calendar projection. It reads through the cache, so a
// warm instance answers without touching the appointment store; a cold
// instance that can reach neither the backing nor the store answers 503
// instead of pretending the agenda is empty.
func (h *CalendarHandler) Events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	appts, err := h.source.Load(r.Context())
	if err != nil {
		if errors.Is(err, cache.ErrSyncDegraded) {
			h.logger.Warn("calendar read degraded", "err", err)
			httpx.WriteError(w, http.StatusServiceUnavailable, "sync degraded")
			return
		}
		h.logger.Error("calendar load failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "could not load calendar")
		return
	}

	filtered := criteria.Parse(r.URL.Query()).Filter(appts)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": calendar.Project(filtered)})
}
