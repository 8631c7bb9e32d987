package handlers

import (
	"context"
	"net/http"
	"time"

	"project-tracker/logging"
)

type HealthHandler struct {
	Ping func(ctx context.Context) error
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.Ping != nil {
		if err := h.Ping(ctx); err != nil {
			logging.Logger.Errorf("Event ID: HEALTH_CHECK_FAILED, Description: Database ping failed: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
