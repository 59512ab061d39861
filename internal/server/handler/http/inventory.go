package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// InventoryService defines the record operations required by InventoryHandler.
type InventoryService interface {
	CreateItem(ctx context.Context, actor *models.User, in models.NewItem) (*models.Item, error)
	UpdateItem(ctx context.Context, actor *models.User, id string, upd models.ItemUpdate) (*models.Item, error)
	DeleteItem(ctx context.Context, actor *models.User, id string) error
	GetItem(ctx context.Context, id string) (*models.Item, error)
	ListItems(ctx context.Context) ([]models.Item, error)
}

// InventoryHandler handles the /api/inventory endpoints.
type InventoryHandler struct {
	Inventory InventoryService
	Log       *zap.Logger
}

// Create handles POST /api/inventory.
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	fail := errorWriter(h.Log)
	actor, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var in models.NewItem
	if err := decodeJSON(r, &in); err != nil {
		fail(w, r, err)
		return
	}
	item, err := h.Inventory.CreateItem(r.Context(), actor, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Item creado exitosamente",
		"id":      item.ID,
		"item":    item,
	})
}

// Update handles PUT /api/inventory/{id}.
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	fail := errorWriter(h.Log)
	actor, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var upd models.ItemUpdate
	if err := decodeJSON(r, &upd); err != nil {
		fail(w, r, err)
		return
	}
	item, err := h.Inventory.UpdateItem(r.Context(), actor, chi.URLParam(r, "id"), upd)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/inventory/{id}.
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	fail := errorWriter(h.Log)
	actor, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.Inventory.DeleteItem(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Item eliminado exitosamente"})
}

// Get handles GET /api/inventory/{id}.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Inventory.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		errorWriter(h.Log)(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// List handles GET /api/inventory.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Inventory.ListItems(r.Context())
	if err != nil {
		errorWriter(h.Log)(w, r, err)
		return
	}
	if items == nil {
		items = []models.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}
