package console

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yourorg/catalogconsole/internal/apiclient"
	"github.com/yourorg/catalogconsole/internal/validation"
)

// LowStockThreshold marks product cards whose stock is running out.
const LowStockThreshold = 10

// View is everything a renderer needs to draw the console. It is a pure
// projection of State; list fields are rebuilt from scratch every time.
type View struct {
	Authenticated  bool
	Username       string
	SessionExpires string

	AuthForm     AuthForm
	LoginPrefill string

	Section Section
	Title   string
	Nav     []NavItem

	Stats *StatsView

	Products        []ProductCard
	ProductsEmpty   bool
	Pagination      PaginationView
	Filters         FilterValues
	CategoryOptions []SelectOption

	Editor *EditorView

	ImportSummary *ImportSummaryView
	ImportLogs    []ImportLogRow

	Loading bool
	Toasts  []Toast
}

type NavItem struct {
	Section Section
	Title   string
	Active  bool
}

type ProductCard struct {
	ID          int64
	Nombre      string
	Descripcion string
	Precio      string
	Stock       int
	Categoria   string
	LowStock    bool
}

type StatsView struct {
	TotalProducts  int
	TotalStock     string
	InventoryValue string
	Categories     int
	Recent         []ProductCard
}

// FilterValues are the filter inputs as they should be echoed back.
type FilterValues struct {
	Nombre    string
	Categoria string
	PrecioMin string
	PrecioMax string
	StockMin  string
}

type SelectOption struct {
	Value    string
	Selected bool
}

type EditorView struct {
	Title   string
	Editing bool
	ID      int64
	Values  validation.ProductForm
}

type ImportSummaryView struct {
	Message        string
	TotalRows      int
	SuccessfulRows int
	FailedRows     int
	Failed         bool
}

type ImportLogRow struct {
	ID             int64
	Filename       string
	Status         string
	TotalRows      int
	SuccessfulRows int
	FailedRows     int
	StartedAt      string
	CanDownload    bool
}

// PageLink is one entry of the pagination strip.
type PageLink struct {
	Number   int
	Current  bool
	Ellipsis bool
}

// PaginationView is the page-number strip with its previous/next controls.
type PaginationView struct {
	Visible      bool
	Current      int
	TotalPages   int
	Links        []PageLink
	Prev         int
	Next         int
	PrevDisabled bool
	NextDisabled bool
}

// MaxPageLinks is how many leading page numbers are listed individually.
const MaxPageLinks = 5

// Pagination computes the strip for a listing of total items. It is hidden
// when everything fits in one page. With more than MaxPageLinks pages it
// shows 1..MaxPageLinks, an ellipsis and the last page.
func Pagination(current, total, perPage int) PaginationView {
	pages := TotalPages(total, perPage)
	pv := PaginationView{Current: current, TotalPages: pages}
	if pages <= 1 {
		return pv
	}
	pv.Visible = true

	shown := pages
	if shown > MaxPageLinks {
		shown = MaxPageLinks
	}
	for i := 1; i <= shown; i++ {
		pv.Links = append(pv.Links, PageLink{Number: i, Current: i == current})
	}
	if pages > MaxPageLinks {
		pv.Links = append(pv.Links,
			PageLink{Ellipsis: true},
			PageLink{Number: pages, Current: pages == current},
		)
	}

	pv.Prev, pv.Next = current-1, current+1
	pv.PrevDisabled = current <= 1
	pv.NextDisabled = current >= pages
	return pv
}

// Render projects s into a View. Feedback (loading, toasts) is not part of
// State and is filled in by the caller.
func Render(s State) View {
	v := View{
		Authenticated: s.Authenticated,
		Username:      s.Username,
		AuthForm:      s.AuthForm,
		LoginPrefill:  s.LoginPrefill,
		Section:       s.Section,
		Title:         s.Section.Title(),
	}
	if v.Username == "" {
		v.Username = "Usuario"
	}
	if !s.SessionExpires.IsZero() {
		v.SessionExpires = s.SessionExpires.Local().Format("15:04")
	}

	for _, sec := range Sections {
		v.Nav = append(v.Nav, NavItem{Section: sec, Title: sec.Title(), Active: sec == s.Section})
	}

	if s.Stats != nil {
		v.Stats = &StatsView{
			TotalProducts:  s.Stats.TotalProducts,
			TotalStock:     groupThousands(strconv.Itoa(s.Stats.TotalStock)),
			InventoryValue: "$" + formatAmount(s.Stats.InventoryValue),
			Categories:     s.Stats.Categories,
			Recent:         cards(s.Stats.Recent),
		}
	}

	v.Products = cards(s.Products)
	v.ProductsEmpty = len(v.Products) == 0
	v.Pagination = Pagination(s.Page, s.Total, s.PerPage)
	v.Filters = filterValues(s.Filters)
	for _, c := range s.Categories {
		v.CategoryOptions = append(v.CategoryOptions, SelectOption{Value: c, Selected: c == s.Filters.Categoria})
	}

	if s.EditorOpen {
		ev := &EditorView{Title: "Nuevo Producto", Values: s.EditorValues}
		if s.Editing != nil {
			ev.Title = "Editar Producto"
			ev.Editing = true
			ev.ID = *s.Editing
		}
		v.Editor = ev
	}

	if r := s.ImportResult; r != nil {
		v.ImportSummary = &ImportSummaryView{
			Message:        r.Message,
			TotalRows:      r.TotalRows,
			SuccessfulRows: r.SuccessfulRows,
			FailedRows:     r.FailedRows,
			Failed:         r.FailedRows > 0,
		}
	}
	for _, l := range s.ImportLogs {
		v.ImportLogs = append(v.ImportLogs, logRow(l))
	}
	return v
}

func cards(products []apiclient.Product) []ProductCard {
	out := make([]ProductCard, 0, len(products))
	for _, p := range products {
		c := ProductCard{
			ID:          p.ID,
			Nombre:      p.Nombre,
			Descripcion: "Sin descripción",
			Precio:      "$" + p.Precio.StringFixed(2),
			Stock:       p.Stock,
			Categoria:   p.Categoria,
			LowStock:    p.Stock < LowStockThreshold,
		}
		if p.Descripcion != nil && *p.Descripcion != "" {
			c.Descripcion = *p.Descripcion
		}
		out = append(out, c)
	}
	return out
}

func logRow(l apiclient.ImportLog) ImportLogRow {
	row := ImportLogRow{
		ID:             l.ID,
		Filename:       l.Filename,
		Status:         string(l.Status),
		TotalRows:      l.TotalRows,
		SuccessfulRows: l.SuccessfulRows,
		FailedRows:     l.FailedRows,
		CanDownload:    l.HasErrorReport(),
	}
	if l.StartedAt != nil && !l.StartedAt.IsZero() {
		row.StartedAt = l.StartedAt.Local().Format("2/1/2006, 15:04:05")
	}
	return row
}

func filterValues(f Filters) FilterValues {
	fv := FilterValues{Nombre: f.Nombre, Categoria: f.Categoria}
	if f.PrecioMin != nil {
		fv.PrecioMin = f.PrecioMin.String()
	}
	if f.PrecioMax != nil {
		fv.PrecioMax = f.PrecioMax.String()
	}
	if f.StockMin != nil {
		fv.StockMin = strconv.Itoa(*f.StockMin)
	}
	return fv
}

// formatAmount renders d with two decimals, "." for thousands and ","
// as decimal separator (es-ES).
func formatAmount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")
	whole, frac, _ := strings.Cut(fixed, ".")
	out := groupThousands(whole) + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")
	if len(digits) <= 3 {
		if neg {
			return "-" + digits
		}
		return digits
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 && !(neg && b.Len() == 1) {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
