package http

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// Default audit log paging.
const (
	defaultAuditPage  = 1
	defaultAuditLimit = 50
)

// BackupService runs manual backups.
type BackupService interface {
	Run(ctx context.Context, actor *models.User) (string, error)
}

// AuditService pages through the audit log.
type AuditService interface {
	Query(ctx context.Context, f models.AuditFilter, page, pageSize int) (*models.AuditPage, error)
}

// AdminHandler serves the admin-only backup and audit endpoints.
type AdminHandler struct {
	Backups BackupService
	Audit   AuditService
	Log     *zap.Logger
}

// Backup handles POST /api/admin/backup. It waits for a running scheduled
// backup to finish before writing its own archive.
func (h *AdminHandler) Backup(w http.ResponseWriter, r *http.Request) {
	fail := errorWriter(h.Log)
	actor, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	file, err := h.Backups.Run(r.Context(), actor)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Backup creado exitosamente",
		"file":    file,
	})
}

// AuditLogs handles GET /api/audit-logs?page=&limit=&action=&resource_type=&username=.
func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	fail := errorWriter(h.Log)
	q := r.URL.Query()

	page, err := queryInt(q.Get("page"), "page", defaultAuditPage)
	if err != nil {
		fail(w, r, err)
		return
	}
	limit, err := queryInt(q.Get("limit"), "limit", defaultAuditLimit)
	if err != nil {
		fail(w, r, err)
		return
	}
	f := models.AuditFilter{
		Action:       models.Action(q.Get("action")),
		ResourceType: q.Get("resource_type"),
		Username:     q.Get("username"),
	}

	res, err := h.Audit.Query(r.Context(), f, page, limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func queryInt(raw, name string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.Validationf("%s must be an integer", name)
	}
	return n, nil
}
