package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/FieldInventory/internal/certgen"
	"github.com/atinyakov/FieldInventory/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{
					"error": map[string]string{"code": "unauthenticated", "message": "missing bearer token"},
				})
				return
			}
			h(w, r)
		}
	}
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "admin123" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"error": map[string]string{"code": "invalid_credentials", "message": "invalid credentials"},
			})
			return
		}
		writeJSON(w, http.StatusOK, models.LoginResult{
			AccessToken: "tok", TokenType: "bearer", ExpiresIn: 60,
			User: &models.User{Username: req["username"], Role: models.RoleAdmin},
		})
	})
	mux.HandleFunc("GET /api/auth/me", authed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, models.User{Username: "admin", Role: models.RoleAdmin})
	}))
	mux.HandleFunc("POST /api/inventory", authed(func(w http.ResponseWriter, r *http.Request) {
		var in models.NewItem
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.DNI == "12345678" {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error": map[string]string{"code": "duplicate_key", "message": "dni 12345678 already registered"},
			})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "Item creado exitosamente",
			"id":      "item-1",
			"item":    models.Item{ID: "item-1", DNI: in.DNI, Holder: in.Holder},
		})
	}))
	mux.HandleFunc("POST /api/admin/backup", authed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Backup creado exitosamente", "file": "inei_backup_20240101_000000.zip"})
	}))
	mux.HandleFunc("GET /api/notifications/alerts", authed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"alerts": []models.Alert{{Type: "warning", Count: 2}}})
	}))
	mux.HandleFunc("GET /api/reports/inventory/pdf", authed(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="inventario_inei_20240101_000000.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.3"))
	}))
	mux.HandleFunc("POST /api/auth/logout", authed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Sesión cerrada exitosamente"})
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Flow(t *testing.T) {
	srv := fakeAPI(t)
	c := New(srv.URL+"/", srv.Client())
	ctx := context.Background()

	_, err := c.Me(ctx)
	require.Error(t, err)
	assert.True(t, IsUnauthenticated(err))

	_, err = c.Login(ctx, "admin", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_credentials", apiErr.Code)
	assert.Empty(t, c.Token)

	res, err := c.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "tok", c.Token)
	assert.Equal(t, 60, res.ExpiresIn)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "admin", me.Username)

	item, err := c.CreateItem(ctx, models.NewItem{Holder: "Juan", DNI: "87654321"})
	require.NoError(t, err)
	assert.Equal(t, "item-1", item.ID)

	_, err = c.CreateItem(ctx, models.NewItem{DNI: "12345678"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "duplicate_key: dni 12345678 already registered", apiErr.Error())

	file, err := c.Backup(ctx)
	require.NoError(t, err)
	assert.Equal(t, "inei_backup_20240101_000000.zip", file)

	alerts, err := c.Alerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, 2, alerts[0].Count)

	name, data, err := c.Export(ctx, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "inventario_inei_20240101_000000.pdf", name)
	assert.Equal(t, "%PDF-1.3", string(data))

	_, _, err = c.Export(ctx, "docx")
	assert.Error(t, err)

	require.NoError(t, c.Logout(ctx))
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, srv.Client()).Stats(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "server returned 502", apiErr.Error())
}

func TestNewHTTPClient(t *testing.T) {
	_, err := NewHTTPClient(filepath.Join(t.TempDir(), "missing.crt"))
	assert.Error(t, err)

	junk := filepath.Join(t.TempDir(), "junk.crt")
	require.NoError(t, os.WriteFile(junk, []byte("not pem"), 0o600))
	_, err = NewHTTPClient(junk)
	assert.Error(t, err)

	dir := t.TempDir()
	p, _, err := certgen.EnsureDevPair(dir, []string{"127.0.0.1"})
	require.NoError(t, err)
	hc, err := NewHTTPClient(p.CACert)
	require.NoError(t, err)

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, models.User{Username: "admin"})
	}))
	cert, err := loadPair(p.ServerCert, p.ServerKey)
	require.NoError(t, err)
	srv.TLS = cert
	srv.StartTLS()
	defer srv.Close()

	c := New(srv.URL, hc)
	c.Token = "tok"
	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin", me.Username)
}
