package console

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/yourorg/catalogconsole/internal/apiclient"
	"github.com/yourorg/catalogconsole/internal/catalogtest"
	"github.com/yourorg/catalogconsole/internal/session"
	"github.com/yourorg/catalogconsole/internal/validation"
)

type recorder struct {
	mu       sync.Mutex
	toasts   []Toast
	loadings []bool
}

func (r *recorder) Toast(t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

func (r *recorder) Loading(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadings = append(r.loadings, active)
}

type harness struct {
	srv   *catalogtest.Server
	api   *apiclient.Client
	store *session.FileStore
	ctrl  *Controller
	rec   *recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := catalogtest.NewServer()
	t.Cleanup(srv.Close)
	store := session.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	api := apiclient.New(srv.BaseURL, session.NewProvider(store))
	rec := &recorder{}
	return &harness{srv: srv, api: api, store: store, ctrl: New(api, store, WithNotifier(rec)), rec: rec}
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	h.srv.AddUser("alice", "alice@example.com", "secreto123")
	if !h.ctrl.Login(context.Background(), "alice", "secreto123") {
		t.Fatalf("login failed: %+v", h.ctrl.Feedback().Pending())
	}
	h.ctrl.Feedback().Drain()
}

func (h *harness) seed(n int, categoria string) []catalogtest.Product {
	products := make([]catalogtest.Product, n)
	for i := range products {
		products[i] = catalogtest.Product{
			Nombre:    fmt.Sprintf("Producto %02d", i+1),
			Precio:    10,
			Stock:     i,
			Categoria: categoria,
		}
	}
	return h.srv.Seed(products...)
}

// listingQueries returns the queries of page-sized listing calls.
func (h *harness) listingQueries(t *testing.T) []url.Values {
	t.Helper()
	var out []url.Values
	for _, call := range h.srv.Calls(http.MethodGet, "/products") {
		if call.Path != catalogtest.APIPrefix+"/products" {
			continue
		}
		q, err := url.ParseQuery(call.Query)
		if err != nil {
			t.Fatalf("bad query %q: %v", call.Query, err)
		}
		if q.Get("limit") == strconv.Itoa(PerPage) {
			out = append(out, q)
		}
	}
	return out
}

func onlyToast(t *testing.T, toasts []Toast, kind ToastKind, message string) {
	t.Helper()
	if len(toasts) != 1 {
		t.Fatalf("Expected exactly one toast, got %+v", toasts)
	}
	if toasts[0].Kind != kind || toasts[0].Message != message {
		t.Errorf("Expected %s toast %q, got %s %q", kind, message, toasts[0].Kind, toasts[0].Message)
	}
}

func TestLoginStoresSessionAndAttachesToken(t *testing.T) {
	h := newHarness(t)
	h.seed(3, "Hogar")
	h.login(t)

	s, err := h.store.Load()
	if err != nil || s.Token == "" || s.Username != "alice" {
		t.Fatalf("Expected stored session, got %+v %v", s, err)
	}

	st := h.ctrl.Snapshot()
	if !st.Authenticated || st.Username != "alice" || st.Section != SectionDashboard {
		t.Errorf("Unexpected state after login: %+v", st)
	}
	if st.Stats == nil || st.Stats.TotalProducts != 3 || len(st.Products) != 3 {
		t.Errorf("Expected dashboard and first page loaded, got stats=%+v products=%d", st.Stats, len(st.Products))
	}
	if st.SessionExpires.IsZero() {
		t.Error("Expected session expiry read from the token")
	}

	for _, call := range h.srv.Calls(http.MethodGet, "/products") {
		if call.Auth != "Bearer "+s.Token {
			t.Errorf("Expected stored token on %s, got %q", call.Path, call.Auth)
		}
	}
}

func TestLoginWrongPasswordStaysOnLoginForm(t *testing.T) {
	h := newHarness(t)
	h.srv.LoginFailureDetail = "Credenciales incorrectas"
	h.srv.AddUser("alice", "alice@example.com", "secreto123")

	if h.ctrl.Login(context.Background(), "alice", "wrong") {
		t.Fatal("Expected login to fail")
	}

	onlyToast(t, h.ctrl.Feedback().Drain(), ToastError, "Credenciales incorrectas")
	st := h.ctrl.Snapshot()
	if st.Authenticated || st.AuthForm != AuthLogin {
		t.Errorf("Expected login form, got %+v", st)
	}
	if h.ctrl.Feedback().Loading() {
		t.Error("Expected loading indicator cleared")
	}
	if n := len(h.srv.Calls(http.MethodGet, "/products")); n != 0 {
		t.Errorf("Expected no data load, got %d calls", n)
	}
}

func TestRegisterPrefillsLogin(t *testing.T) {
	h := newHarness(t)
	if !h.ctrl.Register(context.Background(), "bruno", "bruno@example.com", "clave123") {
		t.Fatalf("register failed: %+v", h.ctrl.Feedback().Pending())
	}

	onlyToast(t, h.ctrl.Feedback().Drain(), ToastSuccess, MsgRegistered)
	st := h.ctrl.Snapshot()
	if st.Authenticated || st.AuthForm != AuthLogin || st.LoginPrefill != "bruno" {
		t.Errorf("Unexpected state after register: %+v", st)
	}
	if s, _ := h.store.Load(); s.Authenticated() {
		t.Error("Register must not log in")
	}

	if h.ctrl.Register(context.Background(), "bruno", "otro@example.com", "clave123") {
		t.Fatal("Expected duplicate username to fail")
	}
	onlyToast(t, h.ctrl.Feedback().Drain(), ToastError, "El nombre de usuario ya está registrado")
}

func TestBootstrap(t *testing.T) {
	t.Run("without session", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.Bootstrap(context.Background())
		st := h.ctrl.Snapshot()
		if st.Authenticated || st.AuthForm != AuthLogin {
			t.Errorf("Expected login shell, got %+v", st)
		}
		if n := len(h.srv.Calls("", "")); n != 0 {
			t.Errorf("Expected no requests, got %d", n)
		}
	})

	t.Run("with stored session", func(t *testing.T) {
		h := newHarness(t)
		h.srv.AddUser("alice", "alice@example.com", "secreto123")
		h.seed(20, "Hogar")
		if err := h.store.Save(session.Session{Token: h.srv.IssueToken("alice"), Username: "alice"}); err != nil {
			t.Fatal(err)
		}

		h.ctrl.Bootstrap(context.Background())
		st := h.ctrl.Snapshot()
		if !st.Authenticated || st.Username != "alice" {
			t.Fatalf("Expected authenticated shell, got %+v", st)
		}
		if len(st.Products) != PerPage || st.Total != 20 || st.Stats == nil || st.Stats.TotalProducts != 20 {
			t.Errorf("Unexpected data: products=%d total=%d stats=%+v", len(st.Products), st.Total, st.Stats)
		}
		if len(st.Categories) != 1 || st.Categories[0] != "Hogar" {
			t.Errorf("Unexpected categories %v", st.Categories)
		}
	})
}

func TestLoadFailureShowsOneAggregateToast(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.srv.Fail(http.MethodGet, "/products", http.StatusInternalServerError, "boom")

	h.ctrl.Bootstrap(context.Background())

	onlyToast(t, h.ctrl.Feedback().Drain(), ToastError, MsgLoadFailed)
	if !h.ctrl.Snapshot().Authenticated {
		t.Error("A server error must not end the session")
	}
}

func TestUnauthorizedEndsSession(t *testing.T) {
	h := newHarness(t)
	h.seed(2, "Hogar")
	h.login(t)
	h.srv.ExpireTokens()

	h.ctrl.LoadProducts(context.Background())

	onlyToast(t, h.ctrl.Feedback().Drain(), ToastError, "Could not validate credentials")
	st := h.ctrl.Snapshot()
	if st.Authenticated || st.AuthForm != AuthLogin || st.LoginPrefill != "alice" {
		t.Errorf("Expected login shell prefilled with alice, got %+v", st)
	}
	if len(st.Products) != 0 {
		t.Error("Expected cached products dropped")
	}
	if s, _ := h.store.Load(); s.Token != "" || s.Username != "" {
		t.Errorf("Expected stored session cleared, got %+v", s)
	}
}

func TestListingOffsetAndFilterReset(t *testing.T) {
	h := newHarness(t)
	h.seed(30, "Hogar")
	h.srv.Seed(catalogtest.Product{Nombre: "Lámpara", Precio: 5, Stock: 1, Categoria: "Iluminación"})
	h.login(t)
	ctx := context.Background()

	for page := 1; page <= 3; page++ {
		h.srv.ResetCalls()
		h.ctrl.ChangePage(ctx, page)
		queries := h.listingQueries(t)
		if len(queries) != 1 {
			t.Fatalf("page %d: expected one listing call, got %d", page, len(queries))
		}
		if got, want := queries[0].Get("skip"), strconv.Itoa((page-1)*PerPage); got != want {
			t.Errorf("page %d: skip=%s, want %s", page, got, want)
		}
	}

	h.ctrl.ChangePage(ctx, 9)
	if p := h.ctrl.Snapshot().Page; p != 3 {
		t.Errorf("Expected page clamped to 3, got %d", p)
	}

	h.srv.ResetCalls()
	h.ctrl.ApplyFilters(ctx, Filters{Categoria: "Iluminación"})
	st := h.ctrl.Snapshot()
	if st.Page != 1 {
		t.Errorf("Expected filter change to reset page, got %d", st.Page)
	}
	queries := h.listingQueries(t)
	if len(queries) != 1 || queries[0].Get("skip") != "0" || queries[0].Get("categoria") != "Iluminación" {
		t.Fatalf("Unexpected filtered listing %v", queries)
	}
	if len(st.Products) != 1 || st.Products[0].Nombre != "Lámpara" {
		t.Errorf("Unexpected filtered products %+v", st.Products)
	}
	if len(st.Categories) != 2 {
		t.Errorf("Expected options from the unfiltered sample, got %v", st.Categories)
	}

	h.srv.ResetCalls()
	h.ctrl.ChangePage(ctx, 1)
	queries = h.listingQueries(t)
	if len(queries) != 1 || queries[0].Get("categoria") != "Iluminación" {
		t.Errorf("Expected filters preserved on page change, got %v", queries)
	}
}

func TestReloadReplacesProducts(t *testing.T) {
	h := newHarness(t)
	seeded := h.seed(13, "Hogar")
	h.login(t)
	ctx := context.Background()

	h.ctrl.LoadProducts(ctx)
	h.ctrl.LoadProducts(ctx)
	first := h.ctrl.Snapshot().Products
	if len(first) != PerPage {
		t.Fatalf("Expected %d products, got %d", PerPage, len(first))
	}

	if err := h.api.DeleteProduct(ctx, seeded[0].ID); err != nil {
		t.Fatal(err)
	}
	h.ctrl.LoadProducts(ctx)

	v := Render(h.ctrl.Snapshot())
	if len(v.Products) != PerPage {
		t.Fatalf("Expected %d cards, got %d", PerPage, len(v.Products))
	}
	seen := make(map[int64]bool)
	for i, card := range v.Products {
		if seen[card.ID] {
			t.Errorf("Duplicate card %d", card.ID)
		}
		seen[card.ID] = true
		if want := seeded[i+1].ID; card.ID != want {
			t.Errorf("card %d: id=%d, want %d", i, card.ID, want)
		}
	}
	if seen[seeded[0].ID] {
		t.Error("Deleted product still rendered")
	}
}

func TestCreateProductRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := context.Background()

	h.ctrl.OpenEditor(nil)
	if v := h.ctrl.View(); v.Editor == nil || v.Editor.Editing || v.Editor.Title != "Nuevo Producto" {
		t.Fatalf("Expected create dialog, got %+v", v.Editor)
	}

	ok := h.ctrl.SubmitProduct(ctx, validation.ProductForm{
		Nombre: "Lámpara de pie", Descripcion: "", Precio: "49.90", Stock: "7", Categoria: "Iluminación",
	})
	if !ok {
		t.Fatalf("submit failed: %+v", h.ctrl.Feedback().Pending())
	}
	onlyToast(t, h.ctrl.Feedback().Drain(), ToastSuccess, MsgProductCreated)

	st := h.ctrl.Snapshot()
	if st.EditorOpen || st.Editing != nil {
		t.Error("Expected dialog closed")
	}
	if len(st.Products) != 1 || st.Stats == nil || st.Stats.TotalProducts != 1 {
		t.Fatalf("Expected full reload, got %+v", st)
	}

	got, err := h.api.GetProduct(ctx, st.Products[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Nombre != "Lámpara de pie" || got.Stock != 7 || got.Categoria != "Iluminación" || got.Precio.StringFixed(2) != "49.90" {
		t.Errorf("Fields changed on round trip: %+v", got)
	}
	if got.Descripcion != nil {
		t.Errorf("Expected absent description, got %q", *got.Descripcion)
	}
}

func TestEditProductFromCachedPage(t *testing.T) {
	h := newHarness(t)
	seeded := h.seed(2, "Hogar")
	h.login(t)
	ctx := context.Background()

	id := seeded[1].ID
	if !h.ctrl.OpenEditor(&id) {
		t.Fatal("Expected editor to open for a cached product")
	}
	st := h.ctrl.Snapshot()
	if st.Editing == nil || *st.Editing != id || st.EditorValues.Nombre != "Producto 02" {
		t.Fatalf("Unexpected editor state %+v", st)
	}

	h.srv.ResetCalls()
	form := st.EditorValues
	form.Nombre = "Producto editado"
	form.Descripcion = "Con descripción"
	if !h.ctrl.SubmitProduct(ctx, form) {
		t.Fatalf("submit failed: %+v", h.ctrl.Feedback().Pending())
	}
	onlyToast(t, h.ctrl.Feedback().Drain(), ToastSuccess, MsgProductUpdated)

	puts := h.srv.Calls(http.MethodPut, "/products")
	if len(puts) != 1 || puts[0].Path != catalogtest.APIPrefix+"/products/"+strconv.FormatInt(id, 10) {
		t.Fatalf("Expected one PUT to the edited id, got %+v", puts)
	}
	if n := len(h.srv.Calls(http.MethodPost, "/products")); n != 0 {
		t.Errorf("Expected no create, got %d", n)
	}
}

func TestEditorRejectsUnknownProduct(t *testing.T) {
	h := newHarness(t)
	h.seed(1, "Hogar")
	h.login(t)

	missing := int64(999)
	if h.ctrl.OpenEditor(&missing) {
		t.Fatal("Expected editor to stay closed")
	}
	onlyToast(t, h.ctrl.Feedback().Drain(), ToastError, MsgProductNotCached)
	if h.ctrl.Snapshot().EditorOpen {
		t.Error("Editor must not open")
	}
}

func TestSubmitInvalidFormKeepsEditorOpen(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.ctrl.OpenEditor(nil)
	h.srv.ResetCalls()
	if h.ctrl.SubmitProduct(context.Background(), validation.ProductForm{Nombre: "Mesa", Precio: "abc", Stock: "1", Categoria: "Hogar"}) {
		t.Fatal("Expected submit to fail")
	}
	onlyToast(t, h.ctrl.Feedback().Drain(), ToastError, "precio: debe ser un número")
	st := h.ctrl.Snapshot()
	if !st.EditorOpen || st.EditorValues.Precio != "abc" {
		t.Errorf("Expected editor kept with typed values, got %+v", st)
	}
	if n := len(h.srv.Calls("", "")); n != 0 {
		t.Errorf("Expected no requests, got %d", n)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	h := newHarness(t)
	seeded := h.seed(3, "Hogar")
	h.login(t)
	ctx := context.Background()
	id := seeded[0].ID

	var prompt string
	h.srv.ResetCalls()
	declined := ConfirmFunc(func(p string) bool { prompt = p; return false })
	if h.ctrl.DeleteProduct(ctx, id, declined) {
		t.Fatal("Expected declined delete to do nothing")
	}
	if prompt != MsgConfirmDelete {
		t.Errorf("Unexpected prompt %q", prompt)
	}
	if n := len(h.srv.Calls(http.MethodDelete, "")); n != 0 {
		t.Fatalf("Expected zero DELETE calls, got %d", n)
	}

	if !h.ctrl.DeleteProduct(ctx, id, ConfirmFunc(func(string) bool { return true })) {
		t.Fatalf("delete failed: %+v", h.ctrl.Feedback().Pending())
	}
	onlyToast(t, h.ctrl.Feedback().Drain(), ToastSuccess, MsgProductDeleted)

	calls := h.srv.Calls("", "")
	deleteAt := -1
	for i, call := range calls {
		if call.Method == http.MethodDelete {
			if deleteAt >= 0 {
				t.Fatal("Expected exactly one DELETE")
			}
			deleteAt = i
			if want := catalogtest.APIPrefix + "/products/" + strconv.FormatInt(id, 10); call.Path != want {
				t.Errorf("DELETE path %s, want %s", call.Path, want)
			}
		}
	}
	if deleteAt < 0 {
		t.Fatal("Expected a DELETE call")
	}
	reloaded := false
	for _, call := range calls[deleteAt+1:] {
		if call.Method == http.MethodGet && call.Path == catalogtest.APIPrefix+"/products" {
			reloaded = true
		}
	}
	if !reloaded {
		t.Error("Expected a full reload after the DELETE")
	}
	if got := h.ctrl.Snapshot().Total; got != 2 {
		t.Errorf("Expected 2 products after reload, got %d", got)
	}
}

func importCSV(valid, invalid int) string {
	var b strings.Builder
	b.WriteString("nombre,descripcion,precio,stock,categoria\n")
	for i := 0; i < valid; i++ {
		fmt.Fprintf(&b, "Importado %d,,%d.50,%d,Hogar\n", i, i+1, i)
	}
	for i := 0; i < invalid; i++ {
		b.WriteString("X,,-1,-1,\n")
	}
	return b.String()
}

func TestImportWithFailedRows(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := context.Background()

	up := &apiclient.Upload{Filename: "productos.csv", Content: strings.NewReader(importCSV(7, 3))}
	if !h.ctrl.Import(ctx, up) {
		t.Fatalf("import failed: %+v", h.ctrl.Feedback().Pending())
	}

	v := h.ctrl.View()
	if v.ImportSummary == nil {
		t.Fatal("Expected import summary")
	}
	if s := v.ImportSummary; s.TotalRows != 10 || s.SuccessfulRows != 7 || s.FailedRows != 3 || !s.Failed {
		t.Errorf("Unexpected summary %+v", s)
	}
	onlyToast(t, v.Toasts, ToastSuccess, MsgImportCompleted)

	if len(v.ImportLogs) != 1 || !v.ImportLogs[0].CanDownload || v.ImportLogs[0].StartedAt == "" {
		t.Fatalf("Expected refreshed log with download action, got %+v", v.ImportLogs)
	}
	if st := h.ctrl.Snapshot(); st.Total != 7 || st.Stats == nil || st.Stats.TotalProducts != 7 {
		t.Errorf("Expected products reloaded, got total=%d", st.Total)
	}

	saver := &apiclient.MemorySaver{}
	name, ok := h.ctrl.DownloadErrors(ctx, v.ImportLogs[0].ID, saver)
	if !ok {
		t.Fatalf("download failed: %+v", h.ctrl.Feedback().Pending())
	}
	if want := fmt.Sprintf("errores_importacion_%d.csv", v.ImportLogs[0].ID); name != want {
		t.Errorf("filename %q, want %q", name, want)
	}
	if _, data, _ := saver.File(); strings.Count(string(data), "\n") != 4 {
		t.Errorf("Expected header plus 3 error rows, got %q", data)
	}
}

func TestImportWithoutFailuresIsSuccessStyled(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	up := &apiclient.Upload{Filename: "productos.csv", Content: strings.NewReader(importCSV(2, 0))}
	if !h.ctrl.Import(context.Background(), up) {
		t.Fatal("import failed")
	}
	v := h.ctrl.View()
	if v.ImportSummary == nil || v.ImportSummary.Failed {
		t.Errorf("Expected success summary, got %+v", v.ImportSummary)
	}
	if len(v.ImportLogs) != 1 || v.ImportLogs[0].CanDownload {
		t.Errorf("Expected no download action, got %+v", v.ImportLogs)
	}
}

func TestImportRequiresFile(t *testing.T) {
	tests := []struct {
		name string
		up   *apiclient.Upload
	}{
		{"no file", nil},
		{"no content", &apiclient.Upload{Filename: "productos.csv"}},
		{"no name", &apiclient.Upload{Content: strings.NewReader("x")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.login(t)
			h.srv.ResetCalls()

			if h.ctrl.Import(context.Background(), tt.up) {
				t.Fatal("Expected import to be rejected")
			}
			onlyToast(t, h.ctrl.Feedback().Drain(), ToastError, MsgSelectFile)
			if n := len(h.srv.Calls("", "")); n != 0 {
				t.Errorf("Expected zero requests, got %d", n)
			}
		})
	}
}

func TestImportRejectedByServerIsRecorded(t *testing.T) {
	tests := []struct {
		name string
		up   *apiclient.Upload
		want string
	}{
		{"bad extension", &apiclient.Upload{Filename: "productos.txt", Content: strings.NewReader("x")}, "Formato de archivo no permitido. Use: csv, xlsx, xls"},
		{"missing columns", &apiclient.Upload{Filename: "productos.csv", Content: strings.NewReader("nombre,precio\n")}, "Columnas requeridas faltantes: descripcion, stock, categoria"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.login(t)
			h.srv.ResetCalls()

			if h.ctrl.Import(context.Background(), tt.up) {
				t.Fatal("Expected import to fail")
			}
			onlyToast(t, h.ctrl.Feedback().Drain(), ToastError, tt.want)
			if n := len(h.srv.Calls(http.MethodPost, "/products/import")); n != 1 {
				t.Errorf("Expected the file to reach the server, got %d uploads", n)
			}

			v := h.ctrl.View()
			if v.ImportSummary != nil {
				t.Errorf("Expected no summary, got %+v", v.ImportSummary)
			}
			if len(v.ImportLogs) != 1 {
				t.Fatalf("Expected the failed attempt in the history, got %+v", v.ImportLogs)
			}
			if l := v.ImportLogs[0]; l.Filename != tt.up.Filename || l.Status != "failed" || l.CanDownload {
				t.Errorf("Unexpected log %+v", l)
			}
		})
	}
}

func TestNavigateToImportLoadsLogs(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.srv.SeedLog(catalogtest.ImportLog{Filename: "viejo.csv", TotalRows: 1, SuccessfulRows: 1, Status: "completed"})

	h.srv.ResetCalls()
	h.ctrl.Navigate(context.Background(), SectionProducts)
	if n := len(h.srv.Calls(http.MethodGet, "/products/import-logs")); n != 0 {
		t.Errorf("Products section must not load logs, got %d calls", n)
	}

	h.ctrl.Navigate(context.Background(), SectionImportExport)
	calls := h.srv.Calls(http.MethodGet, "/products/import-logs")
	if len(calls) != 1 {
		t.Fatalf("Expected one log request, got %d", len(calls))
	}
	if q, _ := url.ParseQuery(calls[0].Query); q.Get("limit") != strconv.Itoa(ImportLogLimit) {
		t.Errorf("Unexpected log query %q", calls[0].Query)
	}

	v := h.ctrl.View()
	if v.Title != "Importar/Exportar" || len(v.ImportLogs) != 1 || v.ImportLogs[0].CanDownload {
		t.Errorf("Unexpected view %+v", v)
	}
	active := 0
	for _, item := range v.Nav {
		if item.Active {
			active++
		}
	}
	if active != 1 {
		t.Errorf("Expected exactly one active section, got %d", active)
	}

	h.srv.ResetCalls()
	if _, ok := h.ctrl.DownloadErrors(context.Background(), v.ImportLogs[0].ID, &apiclient.MemorySaver{}); ok {
		t.Error("Expected refusal for a log without failed rows")
	}
	if n := len(h.srv.Calls("", "")); n != 0 {
		t.Errorf("Expected no request, got %d", n)
	}
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	h.seed(2, "Hogar")
	h.login(t)
	ctx := context.Background()

	saver := &apiclient.MemorySaver{}
	name, ok := h.ctrl.Export(ctx, apiclient.FormatCSV, saver)
	if !ok || name != "productos_export.csv" {
		t.Fatalf("Unexpected export result %q %v", name, ok)
	}
	onlyToast(t, h.ctrl.Feedback().Drain(), ToastSuccess, MsgExported)

	h.srv.Fail(http.MethodGet, "/products/export/excel", http.StatusInternalServerError, "fallo interno")
	if _, ok := h.ctrl.Export(ctx, apiclient.FormatExcel, saver); ok {
		t.Fatal("Expected export failure")
	}
	onlyToast(t, h.ctrl.Feedback().Drain(), ToastError, apiclient.MsgExportFailed)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.ctrl.Logout()
	onlyToast(t, h.ctrl.Feedback().Drain(), ToastInfo, MsgLoggedOut)
	if h.ctrl.Snapshot().Authenticated {
		t.Error("Expected logged out state")
	}
	if s, _ := h.store.Load(); s.Token != "" || s.Username != "" {
		t.Errorf("Expected token and username removed together, got %+v", s)
	}
}

func TestLoadingIndicatorAlwaysReleased(t *testing.T) {
	h := newHarness(t)
	h.seed(1, "Hogar")
	h.login(t)
	ctx := context.Background()

	h.srv.Fail(http.MethodDelete, "/products/1", http.StatusInternalServerError, "no")
	h.ctrl.DeleteProduct(ctx, 1, ConfirmFunc(func(string) bool { return true }))
	h.ctrl.Import(ctx, nil)
	h.ctrl.Export(ctx, apiclient.FormatCSV, &apiclient.MemorySaver{})

	if h.ctrl.Feedback().Loading() {
		t.Fatal("Expected loading indicator released")
	}
	h.rec.mu.Lock()
	defer h.rec.mu.Unlock()
	on, off := 0, 0
	for _, active := range h.rec.loadings {
		if active {
			on++
		} else {
			off++
		}
	}
	if on == 0 || on != off {
		t.Errorf("Unbalanced loading notifications: on=%d off=%d", on, off)
	}
	if len(h.rec.toasts) == 0 {
		t.Error("Expected toasts forwarded to the notifier")
	}
}
