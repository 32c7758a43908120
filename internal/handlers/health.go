package handlers

import (
	"net/http"
	"time"

	"farmwise-backend/internal/models"
)

type HealthHandler struct {
	hasAPIKey func() bool
	now       func() time.Time
}

func NewHealthHandler(hasAPIKey func() bool) *HealthHandler {
	return &HealthHandler{hasAPIKey: hasAPIKey, now: time.Now}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "OK",
		Timestamp: h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		HasAPIKey: h.hasAPIKey(),
	})
}
