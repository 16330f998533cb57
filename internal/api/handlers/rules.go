package handlers

import (
	"log/slog"
	"net/http"

	"github.com/eshaffer321/reconcile-backend/internal/api/dto"
	"github.com/eshaffer321/reconcile-backend/internal/application/service"
)

// RulesHandler handles matching-rule HTTP requests.
type RulesHandler struct {
	*Base
}

// NewRulesHandler creates a new rules handler.
func NewRulesHandler(svc *service.ReconcileService, logger *slog.Logger) *RulesHandler {
	return &RulesHandler{Base: NewBase(svc, logger)}
}

// Get handles GET /api/rules.
func (h *RulesHandler) Get(w http.ResponseWriter, r *http.Request) {
	rules, err := h.svc.GetRules(r.Context(), owner(r))
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.NewRulesResponse(*rules))
}

// Update handles PUT /api/rules. Fields left out of the body keep their
// current values.
func (h *RulesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateRulesRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	current, err := h.svc.GetRules(r.Context(), owner(r))
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	tolerance, days := current.ValueTolerance, current.DateToleranceDays
	if req.ValueTolerance != nil {
		tolerance = *req.ValueTolerance
	}
	if req.DateToleranceDays != nil {
		days = *req.DateToleranceDays
	}

	updated, err := h.svc.UpdateRules(r.Context(), owner(r), tolerance, days)
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.NewRulesResponse(*updated))
}
