package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/plicometria/agenda/libs/httpx"
	"github.com/plicometria/agenda/services/agenda-service/internal/model"
)

// BillReader lists persisted bills for the query surface.
type BillReader interface {
	List(ctx context.Context, query string, limit int) ([]model.Bill, error)
}

type BillHandler struct {
	bills  BillReader
	logger *slog.Logger
}

func NewBillHandler(bills BillReader, logger *slog.Logger) *BillHandler {
	return &BillHandler{bills: bills, logger: logger}
}

func (h *BillHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	bills, err := h.bills.List(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.logger.Error("list bills failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "could not list bills")
		return
	}
	if bills == nil {
		bills = []model.Bill{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"data": bills})
}
