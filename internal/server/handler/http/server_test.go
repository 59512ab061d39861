package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/FieldInventory/internal/auth"
	"github.com/atinyakov/FieldInventory/internal/backup"
	"github.com/atinyakov/FieldInventory/internal/metrics"
	"github.com/atinyakov/FieldInventory/internal/middleware"
	"github.com/atinyakov/FieldInventory/internal/models"
	"github.com/atinyakov/FieldInventory/internal/service"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

// testServer wires the real services over in-memory stores.
type testServer struct {
	*httptest.Server
	users     *memUsers
	items     *memItems
	audit     *memAudit
	backupDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	users, items, auditRepo := newMemUsers(), newMemItems(), &memAudit{}
	m := metrics.New(prometheus.NewRegistry())

	issuer, err := auth.NewIssuer("test-secret", time.Hour, users)
	require.NoError(t, err)
	auditLog := service.NewAuditLogger(auditRepo, log, m)
	authSvc, err := service.NewAuthService(users, auth.NewHasher(bcrypt.MinCost), issuer, auditLog, log)
	require.NoError(t, err)
	_, err = authSvc.EnsureAdmin(context.Background(), service.BootstrapAdmin{
		Username: "admin",
		Email:    "admin@inei.gob.pe",
		FullName: "Administrador INEI",
		Password: "admin123",
	})
	require.NoError(t, err)

	dir := t.TempDir()
	snap := backup.NewSnapshotter(memDataset{items: items, users: users, audit: auditRepo}, backup.Options{Dir: dir}, log, m)
	statsSvc := service.NewStatsService(fixedStats{}, auditRepo, snap, log)

	h := Handlers{
		Auth:      &AuthHandler{AuthService: authSvc, Metrics: m, Log: log},
		Inventory: &InventoryHandler{Inventory: service.NewInventoryService(items, auditLog, log), Log: log},
		Stats:     &StatsHandler{Stats: statsSvc, Log: log},
		Admin:     &AdminHandler{Backups: service.NewBackupService(snap, auditLog, log), Audit: auditLog, Log: log},
		Reports:   &ReportHandler{Reports: service.NewReportService(items, statsSvc, auditLog, log), Log: log},
		System:    &SystemHandler{DB: pingerFunc(func(context.Context) error { return nil }), Log: log},
	}
	router := NewRouter(h, RouterOptions{
		Tokens:       issuer,
		LoginLimiter: middleware.NewRateLimiter(100, 100),
		Metrics:      m,
		MaxBodyBytes: 1 << 16,
		Logger:       log,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, users: users, items: items, audit: auditRepo, backupDir: dir}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			rdr = bytes.NewReader(raw)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, rdr)
	require.NoError(t, err)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := s.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, data
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	res, body := s.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	var out models.LoginResult
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.AccessToken)
	assert.Equal(t, "bearer", out.TokenType)
	assert.Equal(t, 3600, out.ExpiresIn)
	return out.AccessToken
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var eb ErrorBody
	require.NoError(t, json.Unmarshal(body, &eb), string(body))
	return eb.Error.Code
}

func validItem(dni string) map[string]any {
	return map[string]any{
		"persona":             "Juan Perez",
		"dni":                 dni,
		"dispositivo":         "Tablet",
		"control_patrimonial": "CP-001",
		"modelo":              "Galaxy Tab A8",
		"numero_serie":        "SN-0001",
		"telefono":            "987654321",
		"correo_personal":     "juan@example.com",
		"estado":              "bien",
	}
}

func TestScenario_RegisterLoginCreateDuplicateInvalid(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login(t, "admin", "admin123")

	res, body := s.do(t, http.MethodPost, "/api/auth/register", adminToken, models.NewUser{
		Username: "operador1",
		Email:    "op1@inei.gob.pe",
		FullName: "Operador Uno",
		Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, string(body))
	var reg map[string]string
	require.NoError(t, json.Unmarshal(body, &reg))
	assert.NotEmpty(t, reg["user_id"])

	opToken := s.login(t, "operador1", "secret123")

	res, body = s.do(t, http.MethodPost, "/api/inventory", opToken, validItem("12345678"))
	require.Equal(t, http.StatusCreated, res.StatusCode, string(body))
	var created struct {
		ID   string      `json:"id"`
		Item models.Item `json:"item"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "operador1", created.Item.CreatedBy)
	assert.Equal(t, "Operador Uno", created.Item.ResponsibleParty)

	res, body = s.do(t, http.MethodPost, "/api/inventory", opToken, validItem("12345678"))
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "duplicate_key", errorCode(t, body))

	res, body = s.do(t, http.MethodPost, "/api/inventory", opToken, validItem("123"))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "validation_error", errorCode(t, body))

	assert.Len(t, s.items.items, 1)
	assert.Equal(t, 1, s.audit.count(models.ActionCreate, models.ResourceInventory))
	assert.Equal(t, 1, s.audit.count(models.ActionCreate, models.ResourceUser))
}

func TestScenario_InactiveIdentityWithValidToken(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login(t, "admin", "admin123")

	res, body := s.do(t, http.MethodPost, "/api/auth/register", adminToken, models.NewUser{
		Username: "lector",
		Email:    "lector@inei.gob.pe",
		FullName: "Solo Lectura",
		Password: "secret123",
		Role:     models.RoleReadOnly,
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, string(body))
	var reg map[string]string
	require.NoError(t, json.Unmarshal(body, &reg))

	token := s.login(t, "lector", "secret123")
	res, _ = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, body = s.do(t, http.MethodPut, "/api/users/"+reg["user_id"], adminToken, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))

	res, body = s.do(t, http.MethodGet, "/api/inventory", token, nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "inactive_identity", errorCode(t, body))

	res, body = s.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "lector", Password: "secret123"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "inactive_identity", errorCode(t, body))
}

func TestRoutes_RoleSets(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login(t, "admin", "admin123")
	for _, u := range []models.NewUser{
		{Username: "oper", Email: "oper@inei.gob.pe", FullName: "Operador", Password: "secret123", Role: models.RoleOperator},
		{Username: "lect", Email: "lect@inei.gob.pe", FullName: "Lector", Password: "secret123", Role: models.RoleReadOnly},
	} {
		res, body := s.do(t, http.MethodPost, "/api/auth/register", adminToken, u)
		require.Equal(t, http.StatusCreated, res.StatusCode, string(body))
	}
	tokens := map[models.Role]string{
		models.RoleAdmin:    adminToken,
		models.RoleOperator: s.login(t, "oper", "secret123"),
		models.RoleReadOnly: s.login(t, "lect", "secret123"),
	}

	tests := []struct {
		method, path string
		body    any
		allowed []models.Role
	}{
		{http.MethodGet, "/api/users", nil, adminOnly},
		{http.MethodGet, "/api/audit-logs", nil, adminOnly},
		{http.MethodPost, "/api/auth/register", models.NewUser{}, adminOnly},
		{http.MethodPost, "/api/inventory", map[string]any{}, adminOperator},
		{http.MethodPut, "/api/inventory/missing", map[string]any{"persona": "Ana Diaz"}, adminOperator},
		{http.MethodDelete, "/api/inventory/missing", nil, adminOnly},
		{http.MethodGet, "/api/inventory", nil, anyRole},
		{http.MethodGet, "/api/stats", nil, anyRole},
		{http.MethodGet, "/api/notifications/alerts", nil, anyRole},
		{http.MethodGet, "/api/auth/me", nil, anyRole},
	}
	for _, tt := range tests {
		for role, token := range tokens {
			t.Run(tt.method+" "+tt.path+" as "+string(role), func(t *testing.T) {
				res, body := s.do(t, tt.method, tt.path, token, tt.body)
				allowed := false
				for _, r := range tt.allowed {
					allowed = allowed || r == role
				}
				if allowed {
					assert.NotEqual(t, http.StatusForbidden, res.StatusCode, string(body))
					assert.NotEqual(t, http.StatusUnauthorized, res.StatusCode, string(body))
				} else {
					assert.Equal(t, http.StatusForbidden, res.StatusCode, string(body))
					assert.Equal(t, "forbidden", errorCode(t, body))
				}
			})
		}
	}
}

func TestRoutes_Unauthenticated(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/inventory", "/api/stats", "/api/users", "/api/reports/inventory/pdf"} {
		res, body := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode, path)
		assert.Equal(t, "unauthenticated", errorCode(t, body))
		assert.NotEmpty(t, res.Header.Get("WWW-Authenticate"))
	}

	res, body := s.do(t, http.MethodGet, "/api/inventory", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "unauthenticated", errorCode(t, body))
}

func TestLogin_Failures(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		body     any
		wantCode int
		wantErr  string
	}{
		{name: "wrong password", body: LoginRequest{Username: "admin", Password: "nope"}, wantCode: http.StatusUnauthorized, wantErr: "invalid_credentials"},
		{name: "unknown user", body: LoginRequest{Username: "ghost", Password: "admin123"}, wantCode: http.StatusUnauthorized, wantErr: "invalid_credentials"},
		{name: "missing password", body: LoginRequest{Username: "admin"}, wantCode: http.StatusBadRequest, wantErr: "validation_error"},
		{name: "unknown field", body: `{"username":"admin","password":"admin123","role":"admin"}`, wantCode: http.StatusBadRequest, wantErr: "validation_error"},
		{name: "malformed", body: `{"username":`, wantCode: http.StatusBadRequest, wantErr: "validation_error"},
		{name: "trailing data", body: `{"username":"admin","password":"admin123"} {}`, wantCode: http.StatusBadRequest, wantErr: "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, body := s.do(t, http.MethodPost, "/api/auth/login", "", tt.body)
			assert.Equal(t, tt.wantCode, res.StatusCode)
			assert.Equal(t, tt.wantErr, errorCode(t, body))
		})
	}
}

func TestInventory_UpdateGetDelete(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "admin", "admin123")

	res, body := s.do(t, http.MethodPost, "/api/inventory", token, validItem("87654321"))
	require.Equal(t, http.StatusCreated, res.StatusCode, string(body))
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &created))

	res, body = s.do(t, http.MethodPut, "/api/inventory/"+created.ID, token, map[string]any{"estado": "mal estado", "robado": true})
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	var updated models.Item
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, models.ConditionDamaged, updated.Condition)
	assert.True(t, updated.Stolen)

	res, body = s.do(t, http.MethodPut, "/api/inventory/"+created.ID, token, map[string]any{"dni": "11111111"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "validation_error", errorCode(t, body))

	res, body = s.do(t, http.MethodGet, "/api/inventory/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var got models.Item
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "87654321", got.DNI)

	res, _ = s.do(t, http.MethodDelete, "/api/inventory/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, body = s.do(t, http.MethodGet, "/api/inventory/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "not_found", errorCode(t, body))

	assert.Equal(t, 1, s.audit.count(models.ActionUpdate, models.ResourceInventory))
	assert.Equal(t, 1, s.audit.count(models.ActionDelete, models.ResourceInventory))
}

func TestReports_RoundTrip(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "admin", "admin123")
	res, body := s.do(t, http.MethodPost, "/api/inventory", token, validItem("12345678"))
	require.Equal(t, http.StatusCreated, res.StatusCode, string(body))

	res, body = s.do(t, http.MethodGet, "/api/inventory/export/excel/enhanced", token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	assert.Equal(t, service.ContentTypeXLSX, res.Header.Get("Content-Type"))
	assert.Contains(t, res.Header.Get("Content-Disposition"), "inventario_inei_completo_")

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Inventario")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[1], "12345678")
	assert.Contains(t, rows[1], "Juan Perez")

	res, body = s.do(t, http.MethodGet, "/api/reports/inventory/pdf", token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, service.ContentTypePDF, res.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	assert.Equal(t, 2, s.audit.count(models.ActionExport, models.ResourceInventory)+s.audit.count(models.ActionExport, models.ResourceReport))
}

func TestAdmin_BackupAndAuditLogs(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "admin", "admin123")

	res, body := s.do(t, http.MethodPost, "/api/admin/backup", token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	_, err := os.Stat(filepath.Join(s.backupDir, out["file"]))
	assert.NoError(t, err)

	res, body = s.do(t, http.MethodGet, "/api/audit-logs?limit=1", token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	var page models.AuditPage
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page.Entries, 1)
	assert.Equal(t, models.ActionBackup, page.Entries[0].Action)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 1, page.Pagination.PerPage)
	assert.Equal(t, 2, page.Pagination.Total)

	res, body = s.do(t, http.MethodGet, "/api/audit-logs?page=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "validation_error", errorCode(t, body))

	res, body = s.do(t, http.MethodGet, "/api/stats", token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var st models.Stats
	require.NoError(t, json.Unmarshal(body, &st))
	assert.NotNil(t, st.SystemHealth.LastBackup)
	assert.True(t, st.SystemHealth.DatabaseConnected)
}

func TestSystemEndpoints(t *testing.T) {
	s := newTestServer(t)

	res, body := s.do(t, http.MethodGet, "/api", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), APIVersion)

	res, _ = s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res, _ = s.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, body = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "http_requests_total")

	res, body = s.do(t, http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "not_found", errorCode(t, body))
}

func TestReadyz_StoreDown(t *testing.T) {
	h := &SystemHandler{DB: pingerFunc(func(context.Context) error { return errors.New("down") }), Log: zap.NewNop()}
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestErrorWriter_InternalErrorsAreGeneric(t *testing.T) {
	rec := httptest.NewRecorder()
	errorWriter(zap.NewNop())(rec, httptest.NewRequest(http.MethodGet, "/", nil),
		errors.New("pq: password authentication failed for user \"inventory\""))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var eb ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eb))
	assert.Equal(t, "internal_error", eb.Error.Code)
	assert.Equal(t, genericInternalMessage, eb.Error.Message)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{models.Validationf("bad"), http.StatusBadRequest, "validation_error"},
		{models.ErrTokenExpired, http.StatusUnauthorized, "unauthenticated"},
		{models.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{models.ErrIdentityInactive, http.StatusUnauthorized, "inactive_identity"},
		{models.ErrForbidden, http.StatusForbidden, "forbidden"},
		{models.ErrNotFound, http.StatusNotFound, "not_found"},
		{models.ErrDuplicateKey, http.StatusConflict, "duplicate_key"},
		{models.ErrAlreadyExists, http.StatusConflict, "already_exists"},
		{models.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{models.ErrStoreUnavailable, http.StatusInternalServerError, "internal_error"},
		{models.ErrRenderFailure, http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		status, code := classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
