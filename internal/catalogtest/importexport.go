package catalogtest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

var requiredColumns = []string{"nombre", "descripcion", "precio", "stock", "categoria"}

// ImportLog is the fake's stored import log.
type ImportLog struct {
	ID             int64   `json:"id"`
	Filename       string  `json:"filename"`
	TotalRows      int     `json:"total_rows"`
	SuccessfulRows int     `json:"successful_rows"`
	FailedRows     int     `json:"failed_rows"`
	Errors         *string `json:"errors"`
	Status         string  `json:"status"`
	StartedAt      string  `json:"started_at"`
	CompletedAt    *string `json:"completed_at"`
}

type rowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// SeedLog stores an import log directly.
func (s *Server) SeedLog(l ImportLog) ImportLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.nextLogID
	s.nextLogID++
	if l.StartedAt == "" {
		l.StartedAt = now()
	}
	stored := l
	s.logs = append(s.logs, &stored)
	return stored
}

func (s *Server) handleImport(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": []fiber.Map{validationProblem("file", "field required")}})
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fh.Filename)), ".")
	if ext != "csv" && ext != "xlsx" {
		return s.failImport(c, fh.Filename, "Formato de archivo no permitido. Use: csv, xlsx, xls")
	}
	f, err := fh.Open()
	if err != nil {
		return s.failImport(c, fh.Filename, "Error al leer el archivo: "+err.Error())
	}
	defer f.Close()

	rows, err := readRows(f, ext)
	if err != nil {
		return s.failImport(c, fh.Filename, "Error al leer el archivo: "+err.Error())
	}
	if len(rows) == 0 {
		return s.failImport(c, fh.Filename, "Error al leer el archivo: archivo vacío")
	}

	index := make(map[string]int)
	for i, name := range rows[0] {
		index[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return s.failImport(c, fh.Filename, "Columnas requeridas faltantes: "+strings.Join(missing, ", "))
	}

	var (
		valid  []Product
		errors []rowError
	)
	for i, row := range rows[1:] {
		rowNumber := i + 2
		p, problem := parseRow(row, index)
		if problem != "" {
			errors = append(errors, rowError{Row: rowNumber, Error: fmt.Sprintf("Fila %d: %s", rowNumber, problem)})
			continue
		}
		valid = append(valid, p)
	}
	s.Seed(valid...)

	total := len(rows) - 1
	completed := now()
	log := ImportLog{
		Filename:       fh.Filename,
		TotalRows:      total,
		SuccessfulRows: len(valid),
		FailedRows:     len(errors),
		Status:         "completed",
		CompletedAt:    &completed,
	}
	if len(errors) > 0 {
		encoded, _ := json.Marshal(errors)
		text := string(encoded)
		log.Errors = &text
	}
	stored := s.SeedLog(log)

	return c.JSON(fiber.Map{
		"log_id":          stored.ID,
		"filename":        fh.Filename,
		"total_rows":      total,
		"successful_rows": len(valid),
		"failed_rows":     len(errors),
		"status":          "completed",
		"message":         fmt.Sprintf("Importación completada: %d exitosos, %d fallidos", len(valid), len(errors)),
		"errors":          errors,
	})
}

// failImport stores a failed log for a file that could not be processed,
// the way the real server keeps every attempt in its history.
func (s *Server) failImport(c *fiber.Ctx, filename, reason string) error {
	completed := now()
	encoded, _ := json.Marshal([]fiber.Map{{"error": reason}})
	text := string(encoded)
	s.SeedLog(ImportLog{
		Filename:    filename,
		Errors:      &text,
		Status:      "failed",
		CompletedAt: &completed,
	})
	return detail(c, fiber.StatusBadRequest, reason)
}

func readRows(r io.Reader, ext string) ([][]string, error) {
	if ext == "csv" {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		return cr.ReadAll()
	}
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer book.Close()
	return book.GetRows(book.GetSheetName(0))
}

func parseRow(row []string, index map[string]int) (Product, string) {
	cell := func(col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	var problems []string
	nombre := cell("nombre")
	if len(nombre) < 3 {
		problems = append(problems, "nombre: ensure this value has at least 3 characters")
	}
	precio, err := strconv.ParseFloat(cell("precio"), 64)
	if err != nil || precio <= 0 {
		problems = append(problems, "precio: El precio debe ser mayor a 0")
	}
	stock, err := strconv.Atoi(cell("stock"))
	if err != nil || stock < 0 {
		problems = append(problems, "stock: El stock no puede ser negativo")
	}
	categoria := cell("categoria")
	if categoria == "" {
		problems = append(problems, "categoria: field required")
	}
	if len(problems) > 0 {
		return Product{}, strings.Join(problems, "; ")
	}
	p := Product{Nombre: nombre, Precio: precio, Stock: stock, Categoria: categoria}
	if d := cell("descripcion"); d != "" {
		p.Descripcion = &d
	}
	return p, ""
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	header := []string{"id", "nombre", "descripcion", "precio", "stock", "categoria"}
	products := s.Products()
	records := make([][]string, 0, len(products))
	for _, p := range products {
		desc := ""
		if p.Descripcion != nil {
			desc = *p.Descripcion
		}
		records = append(records, []string{
			strconv.FormatInt(p.ID, 10), p.Nombre, desc,
			strconv.FormatFloat(p.Precio, 'f', -1, 64), strconv.Itoa(p.Stock), p.Categoria,
		})
	}

	switch c.Params("format") {
	case "csv":
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		_ = w.Write(header)
		_ = w.WriteAll(records)
		c.Set(fiber.HeaderContentDisposition, "attachment; filename=productos_export.csv")
		c.Set(fiber.HeaderContentType, "text/csv")
		return c.Send(buf.Bytes())
	case "excel":
		book := excelize.NewFile()
		defer book.Close()
		sheet := book.GetSheetName(0)
		for r, rec := range append([][]string{header}, records...) {
			cellName, _ := excelize.CoordinatesToCellName(1, r+1)
			values := make([]interface{}, len(rec))
			for i, v := range rec {
				values[i] = v
			}
			if err := book.SetSheetRow(sheet, cellName, &values); err != nil {
				return detail(c, fiber.StatusInternalServerError, err.Error())
			}
		}
		buf, err := book.WriteToBuffer()
		if err != nil {
			return detail(c, fiber.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentDisposition, "attachment; filename=productos_export.xlsx")
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		return c.Send(buf.Bytes())
	}
	return detail(c, fiber.StatusNotFound, "Not Found")
}

func (s *Server) handleListLogs(c *fiber.Ctx) error {
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 10)

	s.mu.Lock()
	ordered := make([]ImportLog, 0, len(s.logs))
	for i := len(s.logs) - 1; i >= 0; i-- {
		ordered = append(ordered, *s.logs[i])
	}
	s.mu.Unlock()

	total := len(ordered)
	items := []ImportLog{}
	if skip < total {
		end := skip + limit
		if end > total {
			end = total
		}
		items = ordered[skip:end]
	}
	return c.JSON(fiber.Map{"total": total, "skip": skip, "limit": limit, "items": items})
}

func (s *Server) handleDownloadErrors(c *fiber.Ctx) error {
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)

	s.mu.Lock()
	var found *ImportLog
	for _, l := range s.logs {
		if l.ID == id {
			copied := *l
			found = &copied
		}
	}
	s.mu.Unlock()

	if found == nil {
		return detail(c, fiber.StatusNotFound, "Log de importación no encontrado")
	}
	if found.Errors == nil || found.FailedRows == 0 {
		return detail(c, fiber.StatusNotFound, "No hay errores registrados en esta importación")
	}
	var errs []rowError
	_ = json.Unmarshal([]byte(*found.Errors), &errs)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Fila", "Campo", "Valor", "Error"})
	for _, e := range errs {
		_ = w.Write([]string{strconv.Itoa(e.Row), "N/A", "N/A", e.Error})
	}
	w.Flush()
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=errores_importacion_%d.csv", id))
	c.Set(fiber.HeaderContentType, "text/csv")
	return c.Send(buf.Bytes())
}
