package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/FieldInventory/internal/metrics"
	"github.com/atinyakov/FieldInventory/internal/middleware"
	"github.com/atinyakov/FieldInventory/internal/models"
)

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Auth      *AuthHandler
	Inventory *InventoryHandler
	Stats     *StatsHandler
	Admin     *AdminHandler
	Reports   *ReportHandler
	System    *SystemHandler
}

// RouterOptions holds the cross-cutting dependencies of the router.
type RouterOptions struct {
	Tokens       middleware.TokenValidator
	LoginLimiter *middleware.RateLimiter
	// Metrics may be nil, in which case /metrics is not mounted.
	Metrics      *metrics.Metrics
	MaxBodyBytes int64
	Logger       *zap.Logger
}

var (
	anyRole       = models.Roles
	adminOnly     = []models.Role{models.RoleAdmin}
	adminOperator = []models.Role{models.RoleAdmin, models.RoleOperator}
)

// NewRouter constructs the HTTP handler that serves the inventory API.
//
// Middleware chain (applied in order):
//  1. RequestID, Recoverer
//  2. metrics instrumentation
//  3. WithRequestLogging(logger)
//  4. under /api: MaxBodyBytes, AllowContentType("application/json")
//
// Every route under /api other than login and the info endpoint requires a
// bearer token, and each one names the roles it admits.
func NewRouter(h Handlers, opts RouterOptions) http.Handler {
	fail := errorWriter(opts.Logger)
	authn := middleware.Authenticate(opts.Tokens, fail)
	roles := func(allowed ...models.Role) func(http.Handler) http.Handler {
		return middleware.RequireRoles(fail, allowed...)
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(opts.Metrics.Instrument)
	r.Use(middleware.WithRequestLogging(opts.Logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		fail(w, r, models.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorBody{Error: ErrorDetail{
			Code:    "method_not_allowed",
			Message: "method not allowed",
		}})
	})

	r.Get("/healthz", h.System.Healthz)
	r.Get("/readyz", h.System.Readyz)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if opts.MaxBodyBytes > 0 {
			r.Use(middleware.MaxBodyBytes(opts.MaxBodyBytes))
		}
		r.Use(chiMiddleware.AllowContentType("application/json"))

		// Public endpoints
		r.Get("/", h.System.Info)
		r.With(opts.LoginLimiter.Middleware(fail)).Post("/auth/login", h.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.With(roles(adminOnly...)).Post("/auth/register", h.Auth.Register)
			r.With(roles(anyRole...)).Post("/auth/logout", h.Auth.Logout)
			r.With(roles(anyRole...)).Get("/auth/me", h.Auth.Me)

			r.Route("/inventory", func(r chi.Router) {
				r.With(roles(anyRole...)).Get("/", h.Inventory.List)
				r.With(roles(adminOperator...)).Post("/", h.Inventory.Create)
				r.With(roles(anyRole...)).Get("/export/excel/enhanced", h.Reports.InventoryXLSX)
				r.With(roles(anyRole...)).Get("/{id}", h.Inventory.Get)
				r.With(roles(adminOperator...)).Put("/{id}", h.Inventory.Update)
				r.With(roles(adminOnly...)).Delete("/{id}", h.Inventory.Delete)
			})

			r.With(roles(anyRole...)).Get("/stats", h.Stats.Summary)
			r.With(roles(anyRole...)).Get("/notifications/alerts", h.Stats.Alerts)
			r.With(roles(anyRole...)).Get("/reports/inventory/pdf", h.Reports.InventoryPDF)

			r.With(roles(adminOnly...)).Get("/users", h.Auth.ListUsers)
			r.With(roles(adminOnly...)).Put("/users/{id}", h.Auth.UpdateUser)

			r.With(roles(adminOnly...)).Post("/admin/backup", h.Admin.Backup)
			r.With(roles(adminOnly...)).Get("/audit-logs", h.Admin.AuditLogs)
		})
	})

	return r
}
