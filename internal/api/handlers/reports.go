package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/eshaffer321/reconcile-backend/internal/api/dto"
	"github.com/eshaffer321/reconcile-backend/internal/application/service"
)

// ReportsHandler handles the summary and report export.
type ReportsHandler struct {
	*Base
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(svc *service.ReconcileService, logger *slog.Logger) *ReportsHandler {
	return &ReportsHandler{Base: NewBase(svc, logger)}
}

// Summary handles GET /api/summary.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Summary(r.Context(), owner(r))
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	byType := make(map[string]int, len(summary.ByType))
	for t, n := range summary.ByType {
		byType[string(t)] = n
	}

	h.WriteJSON(w, http.StatusOK, dto.SummaryResponse{
		Bank:     toSideSummaryResponse(summary.Bank),
		Internal: toSideSummaryResponse(summary.Internal),
		Matches:  summary.Matches,
		Groups:   summary.Groups,
		ByType:   byType,
	})
}

// Export handles GET /api/report?format=csv|xlsx.
func (h *ReportsHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := service.ParseReportFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	// Buffer so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := h.svc.WriteReport(r.Context(), owner(r), format, &buf); err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="reconciliation.%s"`, format))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func toSideSummaryResponse(s service.SideSummary) dto.SideSummaryResponse {
	return dto.SideSummaryResponse{
		Entries:         s.Entries,
		Matched:         s.Matched,
		Unmatched:       s.Unmatched,
		MatchedAmount:   s.MatchedAmount.StringFixed(2),
		UnmatchedAmount: s.UnmatchedAmount.StringFixed(2),
	}
}
