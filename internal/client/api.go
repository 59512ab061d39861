// Package client is the HTTP client used by the operator console.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/atinyakov/FieldInventory/internal/models"
)

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Client calls the inventory API with an optional bearer token.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Token   string
}

// New returns a Client for baseURL using hc.
func New(baseURL string, hc *http.Client) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: hc}
}

// NewHTTPClient returns an HTTP client that trusts the CA in caFile in
// addition to the system roots. An empty caFile uses the system roots only.
func NewHTTPClient(caFile string) (*http.Client, error) {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if caFile != "" {
		caCert, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to parse CA cert")
		}
		tlsCfg.RootCAs = pool
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsCfg
	return &http.Client{Transport: transport, Timeout: 30 * time.Second}, nil
}

// Login exchanges credentials for a token and stores it on c.
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResult, error) {
	var res models.LoginResult
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &res); err != nil {
		return nil, err
	}
	c.Token = res.AccessToken
	return &res, nil
}

// Logout ends the session on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me returns the identity behind the token.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateItem registers a device and returns the stored record.
func (c *Client) CreateItem(ctx context.Context, in models.NewItem) (*models.Item, error) {
	var res struct {
		Item models.Item `json:"item"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/inventory", in, &res); err != nil {
		return nil, err
	}
	return &res.Item, nil
}

// ListItems returns every inventory record.
func (c *Client) ListItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	if err := c.do(ctx, http.MethodGet, "/api/inventory", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Stats returns the statistics summary.
func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var st models.Stats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Alerts returns the current equipment alerts.
func (c *Client) Alerts(ctx context.Context) ([]models.Alert, error) {
	var res struct {
		Alerts []models.Alert `json:"alerts"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/notifications/alerts", nil, &res); err != nil {
		return nil, err
	}
	return res.Alerts, nil
}

// Backup triggers a manual backup and returns the archive name.
func (c *Client) Backup(ctx context.Context) (string, error) {
	var res struct {
		File string `json:"file"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/admin/backup", nil, &res); err != nil {
		return "", err
	}
	return res.File, nil
}

// Export formats.
const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

var exportPaths = map[string]string{
	FormatPDF:  "/api/reports/inventory/pdf",
	FormatXLSX: "/api/inventory/export/excel/enhanced",
}

// Export downloads a report and returns its suggested file name and bytes.
func (c *Client) Export(ctx context.Context, format string) (string, []byte, error) {
	path, ok := exportPaths[format]
	if !ok {
		return "", nil, fmt.Errorf("unknown export format %q", format)
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("export failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, decodeError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, err
	}
	name := "inventario." + format
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return name, data, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &body) == nil {
		apiErr.Code, apiErr.Message = body.Error.Code, body.Error.Message
	}
	return apiErr
}

// IsUnauthenticated reports whether err is a 401 from the API.
func IsUnauthenticated(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
