package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/plicometria/agenda/libs/httpx"
	"github.com/plicometria/agenda/services/agenda-service/internal/billing"
	"github.com/plicometria/agenda/services/agenda-service/internal/criteria"
	"github.com/plicometria/agenda/services/agenda-service/internal/model"
	"github.com/plicometria/agenda/services/agenda-service/internal/outbox"
	"github.com/plicometria/agenda/services/agenda-service/internal/storage"
)

// AppointmentStore is the persistence surface the handlers need.
// *storage.AppointmentRepository is the production implementation.
type AppointmentStore interface {
	Create(ctx context.Context, appt *model.Appointment, evt outbox.Event) error
	List(ctx context.Context, c criteria.Criteria) ([]model.Appointment, error)
	Update(ctx context.Context, id string, mut storage.Mutation) (model.Appointment, error)
}

// ServiceDirectory resolves a billable service snapshot by id.
type ServiceDirectory interface {
	GetService(ctx context.Context, id string) (model.Service, error)
}

// BillStore persists derived bills.
type BillStore interface {
	Insert(ctx context.Context, bill model.Bill, evt outbox.Event) error
}

// EventLog records events whose domain write already committed.
type EventLog interface {
	Record(ctx context.Context, evt outbox.Event) error
}

// AppointmentCache is the local-first read cache write surface.
type AppointmentCache interface {
	Put(ctx context.Context, appt model.Appointment)
}

type AppointmentHandler struct {
	store    AppointmentStore
	services ServiceDirectory
	bills    BillStore
	events   EventLog
	cache    AppointmentCache
	logger   *slog.Logger
	now      func() time.Time
}

func NewAppointmentHandler(store AppointmentStore, services ServiceDirectory, bills BillStore, events EventLog, cache AppointmentCache, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		store:    store,
		services: services,
		bills:    bills,
		events:   events,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

type createAppointmentRequest struct {
	Date         string `json:"date"`
	Start        string `json:"start"`
	End          string `json:"end"`
	PatientName  string `json:"patient_name"`
	Professional string `json:"professional"`
	SessionType  string `json:"session_type"`
	ServiceID    string `json:"service_id"`
	Note         string `json:"note"`
	Status       string `json:"status"`
}

type updateAppointmentRequest struct {
	ID     string  `json:"id"`
	Status *string `json:"status"`
	Date   *string `json:"date"`
	Start  *string `json:"start"`
	End    *string `json:"end"`
	Note   *string `json:"note"`
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	appts, err := h.store.List(r.Context(), criteria.Parse(r.URL.Query()))
	if err != nil {
		h.logger.Error("list appointments failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "could not list appointments")
		return
	}
	if appts == nil {
		appts = []model.Appointment{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": appts})
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	req.PatientName = strings.TrimSpace(req.PatientName)
	req.Professional = strings.TrimSpace(req.Professional)
	req.SessionType = strings.TrimSpace(req.SessionType)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.PatientName == "" || req.Date == "" || req.Start == "" {
		httpx.WriteError(w, http.StatusBadRequest, "patient_name, date and start are required")
		return
	}

	status := model.StatusPending
	if req.Status != "" {
		if parsed, ok := model.ParseStatus(req.Status); ok {
			status = parsed
		}
	}

	// The service snapshot, when selected, supplies the default appointment
	// length and later the billing figures. A lookup failure never blocks the
	// appointment itself.
	var svc *model.Service
	if req.ServiceID != "" {
		found, err := h.services.GetService(r.Context(), req.ServiceID)
		if err != nil {
			h.logger.Warn("service lookup failed", "service_id", req.ServiceID, "err", err)
		} else {
			svc = &found
		}
	}

	end := req.End
	if end == "" && svc != nil && svc.DurationMinutes > 0 {
		derived, err := addMinutes(req.Date, req.Start, svc.DurationMinutes)
		if err == nil {
			end = derived
		}
	}

	appt := model.Appointment{
		ID:           uuid.NewString(),
		Date:         req.Date,
		Start:        req.Start,
		End:          end,
		PatientName:  req.PatientName,
		Professional: req.Professional,
		SessionType:  req.SessionType,
		ServiceID:    req.ServiceID,
		Note:         req.Note,
		Status:       status,
		CreatedAt:    h.now().UTC(),
	}

	payload, _ := json.Marshal(&appt)
	evt := outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     outbox.EventAppointmentCreated,
		Payload:       payload,
	}
	if err := h.store.Create(r.Context(), &appt, evt); err != nil {
		if errors.Is(err, model.ErrInvalidRange) {
			httpx.WriteError(w, http.StatusBadRequest, "start must be before end")
			return
		}
		h.logger.Error("create appointment failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "could not create appointment")
		return
	}

	h.cache.Put(r.Context(), appt)

	resp := map[string]any{"data": appt}
	if req.ServiceID != "" {
		if warning := h.issueBill(r.Context(), appt, svc); warning != "" {
			resp["warning"] = warning
		}
	}
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

// issueBill derives and persists the bill for a newly created appointment.
// Returns a human-readable warning when derivation could not complete; the
// appointment always stands regardless.
func (h *AppointmentHandler) issueBill(ctx context.Context, appt model.Appointment, svc *model.Service) string {
	if svc == nil {
		return "bill not created: service unavailable"
	}

	bill := billing.Derive(appt, svc, h.now())
	payload, _ := json.Marshal(&bill)
	evt := outbox.Event{
		AggregateType: "bill",
		AggregateID:   bill.ID,
		EventType:     outbox.EventBillIssued,
		Payload:       payload,
	}
	if err := h.bills.Insert(ctx, bill, evt); err != nil {
		h.logger.Warn("bill insert failed", "appointment_id", appt.ID, "err", err)
		return "bill not created: billing store unavailable"
	}
	return ""
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req updateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "id is required")
		return
	}

	mut := storage.Mutation{
		Date:  req.Date,
		Start: req.Start,
		End:   req.End,
		Note:  req.Note,
	}
	if req.Status != nil {
		parsed, ok := model.ParseStatus(*req.Status)
		if !ok {
			httpx.WriteError(w, http.StatusBadRequest, "unknown status")
			return
		}
		mut.Status = &parsed
	}

	appt, err := h.store.Update(r.Context(), req.ID, mut)
	if err != nil {
		switch {
		case storage.IsNotFound(err):
			httpx.WriteError(w, http.StatusNotFound, "appointment not found")
		case errors.Is(err, model.ErrInvalidRange):
			httpx.WriteError(w, http.StatusBadRequest, "start must be before end")
		default:
			h.logger.Error("update appointment failed", "appointment_id", req.ID, "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "could not update appointment")
		}
		return
	}

	h.cache.Put(r.Context(), appt)

	payload, _ := json.Marshal(&appt)
	evt := outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     outbox.EventAppointmentUpdated,
		Payload:       payload,
	}
	if err := h.events.Record(r.Context(), evt); err != nil {
		h.logger.Warn("appointment updated event not recorded", "appointment_id", appt.ID, "err", err)
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": appt})
}

// addMinutes shifts an HH:MM clock forward on the given date.
func addMinutes(date, clock string, minutes int) (string, error) {
	at, err := model.CombineDateClock(date, clock)
	if err != nil {
		return "", err
	}
	return at.Add(time.Duration(minutes) * time.Minute).Format(model.ClockLayout), nil
}
