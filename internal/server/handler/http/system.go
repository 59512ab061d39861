package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// APIVersion is reported by the info endpoint.
const APIVersion = "2.0.0"

// Pinger checks store connectivity.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SystemHandler serves the API info and probe endpoints.
type SystemHandler struct {
	DB  Pinger
	Log *zap.Logger
}

// Info handles GET /api.
func (h *SystemHandler) Info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "INEI Inventory Management System API v2.0",
		"description": "Sistema de inventario para INEI - Censos Nacionales 2025",
		"version":     APIVersion,
		"features": []string{
			"Autenticación JWT",
			"Control de roles",
			"Logging de auditoría",
			"Backups automáticos",
			"Reportes PDF",
			"Excel mejorado",
			"Notificaciones",
			"Sistema de alertas",
		},
		"status": "running",
	})
}

// Healthz reports that the process is serving.
func (h *SystemHandler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports whether the store is reachable.
func (h *SystemHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		h.Log.Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
