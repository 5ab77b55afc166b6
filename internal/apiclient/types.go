package apiclient

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product mirrors ProductResponse on the catalog API.
type Product struct {
	ID          int64           `json:"id"`
	Nombre      string          `json:"nombre"`
	Descripcion *string         `json:"descripcion"`
	Precio      decimal.Decimal `json:"precio"`
	Stock       int             `json:"stock"`
	Categoria   string          `json:"categoria"`
	CreatedAt   *Timestamp      `json:"created_at,omitempty"`
	UpdatedAt   *Timestamp      `json:"updated_at,omitempty"`
}

// ProductInput is the body of create and update requests.
// A nil Descripcion is sent as an explicit null.
type ProductInput struct {
	Nombre      string
	Descripcion *string
	Precio      decimal.Decimal
	Stock       int
	Categoria   string
}

// MarshalJSON sends precio as a JSON number; the API rejects quoted decimals.
func (p ProductInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Nombre      string      `json:"nombre"`
		Descripcion *string     `json:"descripcion"`
		Precio      json.Number `json:"precio"`
		Stock       int         `json:"stock"`
		Categoria   string      `json:"categoria"`
	}{
		Nombre:      p.Nombre,
		Descripcion: p.Descripcion,
		Precio:      json.Number(p.Precio.String()),
		Stock:       p.Stock,
		Categoria:   p.Categoria,
	})
}

// ProductPage is one slice of the catalog plus the total across all slices.
type ProductPage struct {
	Total int       `json:"total"`
	Skip  int       `json:"skip"`
	Limit int       `json:"limit"`
	Items []Product `json:"items"`
}

// ProductFilters are the recognised query keys of GET /products.
// Zero values are omitted from the query string, except Skip.
type ProductFilters struct {
	Skip      int
	Limit     int
	Categoria string
	Nombre    string
	PrecioMin *decimal.Decimal
	PrecioMax *decimal.Decimal
	StockMin  *int
}

// Pagination is the skip/limit pair used by list endpoints.
type Pagination struct {
	Skip  int
	Limit int
}

// ImportStatus is the textual state of an import log.
type ImportStatus string

const (
	ImportProcessing ImportStatus = "processing"
	ImportCompleted  ImportStatus = "completed"
	ImportFailed     ImportStatus = "failed"
)

// ImportLog summarises one bulk import.
type ImportLog struct {
	ID             int64        `json:"id"`
	Filename       string       `json:"filename"`
	TotalRows      int          `json:"total_rows"`
	SuccessfulRows int          `json:"successful_rows"`
	FailedRows     int          `json:"failed_rows"`
	Errors         *string      `json:"errors,omitempty"`
	Status         ImportStatus `json:"status"`
	StartedAt      *Timestamp   `json:"started_at"`
	CompletedAt    *Timestamp   `json:"completed_at,omitempty"`
}

// HasErrorReport reports whether the server keeps a downloadable error CSV.
func (l ImportLog) HasErrorReport() bool { return l.FailedRows > 0 }

// ImportLogPage is a page of import logs, most recent first.
type ImportLogPage struct {
	Total int         `json:"total"`
	Skip  int         `json:"skip"`
	Limit int         `json:"limit"`
	Items []ImportLog `json:"items"`
}

// ImportRowError describes one rejected row of an import.
type ImportRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportResult is returned by POST /products/import.
type ImportResult struct {
	LogID          int64            `json:"log_id"`
	Filename       string           `json:"filename"`
	TotalRows      int              `json:"total_rows"`
	SuccessfulRows int              `json:"successful_rows"`
	FailedRows     int              `json:"failed_rows"`
	Status         string           `json:"status"`
	Message        string           `json:"message"`
	Errors         []ImportRowError `json:"errors,omitempty"`
}

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// User is the representation returned by POST /auth/register.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	IsActive  bool       `json:"is_active"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

// Timestamp accepts both RFC3339 and the "YYYY-MM-DD HH:MM:SS[.ffffff][±hh:mm]"
// layout the API produces when it stringifies datetimes.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "None" {
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}
