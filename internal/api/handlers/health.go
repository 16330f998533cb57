package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/eshaffer321/reconcile-backend/internal/api/dto"
)

// SchemaVersioner reports the applied database migration version.
type SchemaVersioner interface {
	SchemaVersion(ctx context.Context) (int64, error)
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	db SchemaVersioner
}

// NewHealthHandler creates a new health handler. db may be nil.
func NewHealthHandler(db SchemaVersioner) *HealthHandler {
	return &HealthHandler{db: db}
}

// ServeHTTP handles the health check request. A database that cannot
// report its schema version makes the service unavailable.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := dto.NewHealthResponse()
	status := http.StatusOK

	if h.db != nil {
		version, err := h.db.SchemaVersion(r.Context())
		if err != nil {
			response.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
		response.SchemaVersion = version
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}
