package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/reconcile-backend/internal/api/dto"
	"github.com/eshaffer321/reconcile-backend/internal/application/service"
)

// MatchesHandler handles matching HTTP requests.
type MatchesHandler struct {
	*Base
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(svc *service.ReconcileService, logger *slog.Logger) *MatchesHandler {
	return &MatchesHandler{Base: NewBase(svc, logger)}
}

// List handles GET /api/matches.
func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	matches, err := h.svc.ListMatches(r.Context(), owner(r))
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.NewMatchListResponse(matches))
}

// Manual handles POST /api/matches/manual.
func (h *MatchesHandler) Manual(w http.ResponseWriter, r *http.Request) {
	var req dto.ManualMatchRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	records, err := h.svc.ManualMatch(r.Context(), owner(r), req.BankEntryIDs, req.InternalEntryIDs)
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, dto.NewMatchListResponse(records))
}

// Auto handles POST /api/matches/auto.
func (h *MatchesHandler) Auto(w http.ResponseWriter, r *http.Request) {
	var req dto.AutoMatchRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	strategy, err := service.ParseStrategy(req.Strategy)
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	result, err := h.svc.AutoMatch(r.Context(), owner(r), strategy)
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	response := dto.AutoMatchResponse{
		Strategy: string(strategy),
		Passes:   make([]dto.PassResponse, 0, len(result.Passes)),
		Matches:  dto.NewMatchListResponse(result.Records).Matches,
	}
	for _, p := range result.Passes {
		response.Passes = append(response.Passes, dto.PassResponse{
			MatchType: string(p.Type),
			Records:   p.Records,
			Groups:    p.Groups,
		})
	}
	h.WriteJSON(w, http.StatusOK, response)
}

// Delete handles DELETE /api/matches/{id} - removes one record; the rest of
// its group stays.
func (h *MatchesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("match ID is required"))
		return
	}

	if err := h.svc.Unmatch(r.Context(), owner(r), id); err != nil {
		h.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
