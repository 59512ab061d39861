package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/FieldInventory/internal/models"
	"github.com/atinyakov/FieldInventory/internal/service"
)

// ReportService renders inventory exports.
type ReportService interface {
	InventoryPDF(ctx context.Context, actor *models.User) (*service.Export, error)
	InventoryXLSX(ctx context.Context, actor *models.User) (*service.Export, error)
}

// ReportHandler streams exports as attachments.
type ReportHandler struct {
	Reports ReportService
	Log     *zap.Logger
}

// InventoryPDF handles GET /api/reports/inventory/pdf.
func (h *ReportHandler) InventoryPDF(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.Reports.InventoryPDF)
}

// InventoryXLSX handles GET /api/inventory/export/excel/enhanced.
func (h *ReportHandler) InventoryXLSX(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.Reports.InventoryXLSX)
}

func (h *ReportHandler) serve(w http.ResponseWriter, r *http.Request, render func(context.Context, *models.User) (*service.Export, error)) {
	fail := errorWriter(h.Log)
	actor, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	exp, err := render(r.Context(), actor)
	if err != nil {
		fail(w, r, err)
		return
	}
	attachment(w, exp.Filename, exp.ContentType, exp.Data)
}
