// Package http provides the HTTP handlers and routing for the inventory API.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// AuthService defines the identity operations required by AuthHandler.
type AuthService interface {
	Register(ctx context.Context, actor *models.User, in models.NewUser) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.LoginResult, error)
	Logout(ctx context.Context, actor *models.User)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, actor *models.User, id string, upd models.UserUpdate) (*models.User, error)
}

// LoginMetrics counts rejected logins.
type LoginMetrics interface {
	LoginFailed()
}

// AuthHandler handles registration, sessions and identity administration.
type AuthHandler struct {
	// AuthService performs the underlying identity operations.
	AuthService AuthService
	// Metrics is optional.
	Metrics LoginMetrics
	Log     *zap.Logger
}

// LoginRequest represents the JSON payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register. Admin only.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	fail := errorWriter(h.Log)
	actor, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req models.NewUser
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	u, err := h.AuthService.Register(r.Context(), actor, req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Usuario creado exitosamente",
		"user_id": u.ID,
	})
}

// Login handles POST /api/auth/login and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	fail := errorWriter(h.Log)
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		fail(w, r, models.Validationf("username and password are required"))
		return
	}
	res, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrUnauthenticated) && h.Metrics != nil {
			h.Metrics.LoginFailed()
		}
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor, err := currentUser(r)
	if err != nil {
		errorWriter(h.Log)(w, r, err)
		return
	}
	h.AuthService.Logout(r.Context(), actor)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Sesión cerrada exitosamente"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, err := currentUser(r)
	if err != nil {
		errorWriter(h.Log)(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actor)
}

// ListUsers handles GET /api/users. Admin only.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.AuthService.ListUsers(r.Context())
	if err != nil {
		errorWriter(h.Log)(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// UpdateUser handles PUT /api/users/{id}. Admin only.
func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	fail := errorWriter(h.Log)
	actor, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var upd models.UserUpdate
	if err := decodeJSON(r, &upd); err != nil {
		fail(w, r, err)
		return
	}
	u, err := h.AuthService.UpdateUser(r.Context(), actor, chi.URLParam(r, "id"), upd)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Usuario actualizado exitosamente",
		"user":    u,
	})
}
