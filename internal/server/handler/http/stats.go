package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// StatsService defines the dashboard operations required by StatsHandler.
type StatsService interface {
	Stats(ctx context.Context) (*models.Stats, error)
	Alerts(ctx context.Context) ([]models.Alert, error)
}

// StatsHandler serves statistics and alerts.
type StatsHandler struct {
	Stats StatsService
	Log   *zap.Logger
}

// Summary handles GET /api/stats.
func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	st, err := h.Stats.Stats(r.Context())
	if err != nil {
		errorWriter(h.Log)(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Alerts handles GET /api/notifications/alerts.
func (h *StatsHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.Stats.Alerts(r.Context())
	if err != nil {
		errorWriter(h.Log)(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}
