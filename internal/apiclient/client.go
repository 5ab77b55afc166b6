// Package apiclient is the single point of contact with the catalog REST API.
//
// Every authenticated call reads the bearer token from the injected
// SessionProvider at call time, so a logout or a new login in another flow
// is picked up by the next request without rebuilding the client.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SessionProvider is the durable storage of the current session.
type SessionProvider interface {
	Token() string
	Store(token, username string) error
	Clear() error
}

// Client is the catalog API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   SessionProvider
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets a per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a client for baseURL, e.g. "http://localhost:8000/api/v1".
func New(baseURL string, sessions SessionProvider, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		sessions:   sessions,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the versioned API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// ============================================================================
// AUTENTICACIÓN
// ============================================================================

// Login exchanges credentials for a token and persists token and username.
func (c *Client) Login(ctx context.Context, username, password string) (*Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := c.newRequest(ctx, http.MethodPost, "/auth/login", nil, strings.NewReader(form.Encode()), false)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, &AuthenticationError{Status: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	var token Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("respuesta de login inválida: %w", err)
	}
	if token.AccessToken == "" {
		return nil, &AuthenticationError{Status: resp.StatusCode, Detail: "El servidor no entregó un token"}
	}
	if err := c.sessions.Store(token.AccessToken, username); err != nil {
		return nil, fmt.Errorf("guardar sesión: %w", err)
	}
	return &token, nil
}

// Register creates a user. It never attaches a token.
func (c *Client) Register(ctx context.Context, username, email, password string) (*User, error) {
	payload := map[string]string{"username": username, "email": email, "password": password}
	var user User
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/register", payload, false, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout removes the persisted session.
func (c *Client) Logout() error {
	return c.sessions.Clear()
}

// ============================================================================
// PRODUCTOS
// ============================================================================

// GetProducts lists one page of products.
func (c *Client) GetProducts(ctx context.Context, f ProductFilters) (*ProductPage, error) {
	var page ProductPage
	if err := c.getJSON(ctx, "/products", f.query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetProduct fetches one product.
func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p Product
	if err := c.getJSON(ctx, productPath(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct creates a product and returns the server representation.
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	var p Product
	if err := c.sendJSON(ctx, http.MethodPost, "/products", in, true, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProduct replaces the editable fields of a product.
func (c *Client) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*Product, error) {
	var p Product
	if err := c.sendJSON(ctx, http.MethodPut, productPath(id), in, true, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProduct deletes a product. There is no undo.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	req, err := c.newRequest(ctx, http.MethodDelete, productPath(id), nil, nil, true)
	if err != nil {
		return err
	}
	return c.execute(req, true, nil)
}

// ============================================================================
// IMPORTACIÓN / EXPORTACIÓN
// ============================================================================

// ImportProducts uploads one CSV/Excel file as multipart field "file".
func (c *Client) ImportProducts(ctx context.Context, up Upload) (*ImportResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", up.Filename)
	if err != nil {
		return nil, fmt.Errorf("preparar archivo: %w", err)
	}
	if _, err := io.Copy(part, up.Content); err != nil {
		return nil, fmt.Errorf("leer archivo %s: %w", up.Filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("preparar archivo: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/products/import", nil, &body, true)
	if err != nil {
		return nil, err
	}
	// The writer owns the boundary, so the header comes from it.
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result ImportResult
	if err := c.execute(req, true, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ExportProducts downloads the whole catalog and hands it to saver.
// It returns the filename used.
func (c *Client) ExportProducts(ctx context.Context, format ExportFormat, saver FileSaver) (string, error) {
	if !format.Valid() {
		return "", &ClientValidationError{Field: "formato", Message: fmt.Sprintf("Formato de exportación no soportado: %q", format)}
	}
	data, err := c.download(ctx, "/products/export/"+string(format), MsgExportFailed)
	if err != nil {
		return "", err
	}
	name := format.Filename()
	if err := saver.Save(name, data); err != nil {
		return "", fmt.Errorf("guardar %s: %w", name, err)
	}
	return name, nil
}

// GetImportLogs lists import logs, most recent first. The path is the one
// the API contract documents, under /products.
func (c *Client) GetImportLogs(ctx context.Context, p Pagination) (*ImportLogPage, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(p.Skip))
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	var page ImportLogPage
	if err := c.getJSON(ctx, "/products/import-logs", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DownloadImportErrors saves the CSV of rejected rows of one import.
func (c *Client) DownloadImportErrors(ctx context.Context, logID int64, saver FileSaver) (string, error) {
	data, err := c.download(ctx, fmt.Sprintf("/products/import-logs/%d/download-errors", logID), MsgErrorReportFailed)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("errores_importacion_%d.csv", logID)
	if err := saver.Save(name, data); err != nil {
		return "", fmt.Errorf("guardar %s: %w", name, err)
	}
	return name, nil
}

// Ping checks the API's unversioned /health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("URL base inválida: %w", err)
	}
	u.Path = "/health"
	u.RawQuery = ""
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if !isSuccess(resp.StatusCode) {
		return &APIError{Status: resp.StatusCode, Detail: fmt.Sprintf("health check falló: %d", resp.StatusCode)}
	}
	return nil
}

// ============================================================================
// PLOMERÍA HTTP
// ============================================================================

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, auth bool) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("crear petición %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if auth {
		if token := c.sessions.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil, true)
	if err != nil {
		return err
	}
	return c.execute(req, true, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload any, auth bool, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("serializar petición: %w", err)
	}
	req, err := c.newRequest(ctx, method, path, nil, bytes.NewReader(body), auth)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.execute(req, auth, out)
}

// execute sends req and runs the shared response handler.
func (c *Client) execute(req *http.Request, auth bool, out any) error {
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		detail := readDetail(resp.Body)
		if auth && resp.StatusCode == http.StatusUnauthorized {
			return &AuthenticationError{Status: resp.StatusCode, Detail: detail}
		}
		return &APIError{Status: resp.StatusCode, Detail: detail}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("respuesta inválida de %s: %w", req.URL.Path, err)
	}
	return nil
}

// download fetches a binary payload. Error bodies are not parsed: the
// endpoint is binary and the caller only reports success or failure.
func (c *Client) download(ctx context.Context, path, failMsg string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil, true)
	if err != nil {
		return nil, err
	}
	req.Header.Del("Accept")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, &AuthenticationError{Status: resp.StatusCode}
		}
		return nil, &APIError{Status: resp.StatusCode, Detail: failMsg}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("leer descarga %s: %w", path, err)
	}
	return data, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// readDetail extracts a human readable message from an error body.
// FastAPI sends either {"detail": "..."} or {"detail": [{"msg": "..."}]}.
func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg == "" {
				continue
			}
			if n := len(it.Loc); n > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", it.Loc[n-1], it.Msg))
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func productPath(id int64) string {
	return "/products/" + strconv.FormatInt(id, 10)
}

func (f ProductFilters) query() url.Values {
	q := url.Values{}
	skip := f.Skip
	if skip < 0 {
		skip = 0
	}
	q.Set("skip", strconv.Itoa(skip))
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Categoria != "" {
		q.Set("categoria", f.Categoria)
	}
	if f.Nombre != "" {
		q.Set("nombre", f.Nombre)
	}
	if f.PrecioMin != nil {
		q.Set("precio_min", f.PrecioMin.String())
	}
	if f.PrecioMax != nil {
		q.Set("precio_max", f.PrecioMax.String())
	}
	if f.StockMin != nil {
		q.Set("stock_min", strconv.Itoa(*f.StockMin))
	}
	return q
}
