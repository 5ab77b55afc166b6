// Package importcheck holds the local checks on an import file. Only the
// missing file blocks the upload; everything else is advisory so the server
// still records the attempt in its import history.
package importcheck

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"github.com/yourorg/catalogconsole/internal/apiclient"
)

// RequiredColumns are the header names the import endpoint needs.
var RequiredColumns = []string{"nombre", "descripcion", "precio", "stock", "categoria"}

// AllowedExtensions are the file types the import endpoint accepts.
var AllowedExtensions = []string{"csv", "xlsx", "xls"}

// Extension returns the lower-case extension of filename without the dot.
func Extension(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// Check rejects an upload with no file selected.
func Check(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return &apiclient.ClientValidationError{Message: "Por favor selecciona un archivo"}
	}
	return nil
}

// Inspect returns the problems the server is likely to report for this
// file. Legacy .xls files are looked at by extension only.
func Inspect(filename string, data []byte) []string {
	ext := Extension(filename)
	if !allowed(ext) {
		return []string{fmt.Sprintf("Formato no permitido. Use: %s", strings.Join(AllowedExtensions, ", "))}
	}
	if len(data) == 0 {
		return []string{"el archivo está vacío"}
	}

	var (
		header []string
		err    error
	)
	switch ext {
	case "csv":
		header, err = csvHeader(data)
	case "xlsx":
		header, err = xlsxHeader(data)
	default:
		return nil
	}
	if err != nil {
		return []string{"no se pudo leer el encabezado: " + err.Error()}
	}
	if missing := Missing(header); len(missing) > 0 {
		return []string{"Columnas requeridas faltantes: " + strings.Join(missing, ", ")}
	}
	return nil
}

// Missing returns the required columns absent from header, in order.
func Missing(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.ToLower(strings.TrimSpace(h))] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

func allowed(ext string) bool {
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

func csvHeader(data []byte) ([]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("archivo sin filas")
	}
	return header, err
}

func xlsxHeader(data []byte) ([]string, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer book.Close()

	rows, err := book.Rows(book.GetSheetName(0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, fmt.Errorf("hoja sin filas")
	}
	return rows.Columns()
}
