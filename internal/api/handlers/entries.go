package handlers

import (
	"log/slog"
	"net/http"

	"github.com/eshaffer321/reconcile-backend/internal/api/dto"
	"github.com/eshaffer321/reconcile-backend/internal/application/service"
	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
)

// EntriesHandler handles entry-related HTTP requests.
type EntriesHandler struct {
	*Base
}

// NewEntriesHandler creates a new entries handler.
func NewEntriesHandler(svc *service.ReconcileService, logger *slog.Logger) *EntriesHandler {
	return &EntriesHandler{Base: NewBase(svc, logger)}
}

// List handles GET /api/entries?side=&status= - returns entries with their
// matched flag.
func (h *EntriesHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter service.EntryFilter

	if side := r.URL.Query().Get("side"); side != "" {
		parsed, err := ledger.ParseSide(side)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
			return
		}
		filter.Side = parsed
	}

	status, err := service.ParseEntryStatus(r.URL.Query().Get("status"))
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}
	filter.Status = status

	views, err := h.svc.ListEntries(r.Context(), owner(r), filter)
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	response := dto.EntryListResponse{
		Entries: make([]dto.EntryResponse, 0, len(views)),
		Count:   len(views),
	}
	for _, v := range views {
		response.Entries = append(response.Entries, toEntryResponse(v))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Clear handles DELETE /api/entries - removes all of the owner's entries
// and matches.
func (h *EntriesHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearAll(r.Context(), owner(r)); err != nil {
		h.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toEntryResponse(v service.EntryView) dto.EntryResponse {
	return dto.EntryResponse{
		ID:          v.ID,
		Side:        string(v.Side),
		Date:        v.Date.String(),
		Description: v.Description,
		Amount:      v.Amount.StringFixed(2),
		SubGroup:    v.SubGroup,
		Matched:     v.Matched,
	}
}
