package console

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourorg/catalogconsole/internal/apiclient"
	"github.com/yourorg/catalogconsole/internal/validation"
)

// PerPage is the fixed size of a product listing page.
const PerPage = 12

// ImportLogLimit is how many import logs the import section shows.
const ImportLogLimit = 10

// Section is one of the content sections of the authenticated shell.
type Section string

const (
	SectionDashboard    Section = "dashboard"
	SectionProducts     Section = "products"
	SectionImportExport Section = "import-export"
)

// Sections lists the navigation entries in display order.
var Sections = []Section{SectionDashboard, SectionProducts, SectionImportExport}

// ParseSection accepts the section names used in URLs and menus.
func ParseSection(s string) (Section, bool) {
	for _, sec := range Sections {
		if string(sec) == s {
			return sec, true
		}
	}
	return "", false
}

// Title is the page-title label of the section.
func (s Section) Title() string {
	switch s {
	case SectionProducts:
		return "Productos"
	case SectionImportExport:
		return "Importar/Exportar"
	default:
		return "Dashboard"
	}
}

// AuthForm selects which form the unauthenticated shell shows.
type AuthForm string

const (
	AuthLogin    AuthForm = "login"
	AuthRegister AuthForm = "register"
)

// Filters are the active listing filters. Zero values are unset.
type Filters struct {
	Nombre    string
	Categoria string
	PrecioMin *decimal.Decimal
	PrecioMax *decimal.Decimal
	StockMin  *int
}

// IsZero reports whether no filter is active.
func (f Filters) IsZero() bool {
	return f.Nombre == "" && f.Categoria == "" && f.PrecioMin == nil && f.PrecioMax == nil && f.StockMin == nil
}

// query builds the listing request for page.
func (f Filters) query(page, perPage int) apiclient.ProductFilters {
	return apiclient.ProductFilters{
		Skip:      Offset(page, perPage),
		Limit:     perPage,
		Categoria: f.Categoria,
		Nombre:    f.Nombre,
		PrecioMin: f.PrecioMin,
		PrecioMax: f.PrecioMax,
		StockMin:  f.StockMin,
	}
}

// Offset is the listing skip for a 1-based page.
func Offset(page, perPage int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * perPage
}

// TotalPages is ceil(total / perPage).
func TotalPages(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// State is the UI state of one console. A State value is never mutated
// after it has been published; transitions return a new value.
type State struct {
	Authenticated  bool
	Username       string
	SessionExpires time.Time

	AuthForm     AuthForm
	LoginPrefill string

	Section Section

	Page       int
	PerPage    int
	Filters    Filters
	Products   []apiclient.Product
	Total      int
	Categories []string
	Stats      *Stats

	EditorOpen   bool
	Editing      *int64
	EditorValues validation.ProductForm

	ImportResult *apiclient.ImportResult
	ImportLogs   []apiclient.ImportLog
}

// Initial is the state of a console nobody has logged into.
func Initial() State {
	return State{
		AuthForm: AuthLogin,
		Section:  SectionDashboard,
		Page:     1,
		PerPage:  PerPage,
	}
}

// FindProduct looks id up in the cached page.
func (s State) FindProduct(id int64) (apiclient.Product, bool) {
	for _, p := range s.Products {
		if p.ID == id {
			return p, true
		}
	}
	return apiclient.Product{}, false
}

// FindImportLog looks id up in the cached import logs.
func (s State) FindImportLog(id int64) (apiclient.ImportLog, bool) {
	for _, l := range s.ImportLogs {
		if l.ID == id {
			return l, true
		}
	}
	return apiclient.ImportLog{}, false
}

// ============================================================================
// TRANSICIONES
// ============================================================================

func signedIn(s State, username string, expires time.Time) State {
	next := Initial()
	next.Authenticated = true
	next.Username = username
	next.SessionExpires = expires
	next.Categories = s.Categories
	return next
}

func signedOut(prefill string) State {
	next := Initial()
	next.LoginPrefill = prefill
	return next
}

func withAuthForm(s State, form AuthForm) State {
	s.AuthForm = form
	return s
}

func registered(s State, username string) State {
	s.AuthForm = AuthLogin
	s.LoginPrefill = username
	return s
}

func navigated(s State, section Section) State {
	s.Section = section
	return s
}

func withPage(s State, page int) State {
	if page < 1 {
		page = 1
	}
	s.Page = page
	return s
}

func withFilters(s State, f Filters) State {
	s.Filters = f
	s.Page = 1
	return s
}

// withProducts replaces the cached page with the latest response.
func withProducts(s State, page *apiclient.ProductPage) State {
	s.Products = append([]apiclient.Product(nil), page.Items...)
	s.Total = page.Total
	return s
}

func withCategories(s State, categories []string) State {
	s.Categories = append([]string(nil), categories...)
	return s
}

func withStats(s State, stats Stats) State {
	s.Stats = &stats
	return s
}

func editorOpened(s State, id *int64, values validation.ProductForm) State {
	s.EditorOpen = true
	s.Editing = id
	s.EditorValues = values
	return s
}

func editorValues(s State, values validation.ProductForm) State {
	s.EditorValues = values
	return s
}

func editorClosed(s State) State {
	s.EditorOpen = false
	s.Editing = nil
	s.EditorValues = validation.ProductForm{}
	return s
}

func withImportResult(s State, res *apiclient.ImportResult) State {
	copied := *res
	s.ImportResult = &copied
	return s
}

func withImportLogs(s State, logs []apiclient.ImportLog) State {
	s.ImportLogs = append([]apiclient.ImportLog(nil), logs...)
	return s
}
