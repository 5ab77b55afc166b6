// Package console is the view controller of the catalog console. It turns
// operator intent into API calls and API results into a new State, which
// renderers (web templates, terminal) project through Render.
package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/yourorg/catalogconsole/internal/apiclient"
	"github.com/yourorg/catalogconsole/internal/importcheck"
	"github.com/yourorg/catalogconsole/internal/session"
	"github.com/yourorg/catalogconsole/internal/validation"
	"golang.org/x/sync/errgroup"
)

// Mensajes mostrados al operador.
const (
	MsgWelcome          = "¡Bienvenido!"
	MsgRegistered       = "Cuenta creada exitosamente. Por favor inicia sesión."
	MsgLoggedOut        = "Sesión cerrada"
	MsgSessionExpired   = "Tu sesión expiró. Inicia sesión nuevamente."
	MsgLoadFailed       = "Error cargando datos"
	MsgProductsFailed   = "Error cargando productos"
	MsgProductUpdated   = "Producto actualizado exitosamente"
	MsgProductCreated   = "Producto creado exitosamente"
	MsgProductDeleted   = "Producto eliminado exitosamente"
	MsgProductNotCached = "El producto no está en la página actual"
	MsgConfirmDelete    = "¿Estás seguro de eliminar este producto?"
	MsgSelectFile       = "Por favor selecciona un archivo"
	MsgImportCompleted  = "Importación completada"
	MsgExported         = "Archivo descargado exitosamente"
	MsgErrorsDownloaded = "Archivo de errores descargado exitosamente"
	MsgNoErrorReport    = "Esta importación no registró filas con errores"
	MsgCredentials      = "Usuario y contraseña son obligatorios"
)

// API is the part of the catalog API client the console uses.
type API interface {
	Login(ctx context.Context, username, password string) (*apiclient.Token, error)
	Register(ctx context.Context, username, email, password string) (*apiclient.User, error)
	GetProducts(ctx context.Context, f apiclient.ProductFilters) (*apiclient.ProductPage, error)
	CreateProduct(ctx context.Context, in apiclient.ProductInput) (*apiclient.Product, error)
	UpdateProduct(ctx context.Context, id int64, in apiclient.ProductInput) (*apiclient.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ImportProducts(ctx context.Context, up apiclient.Upload) (*apiclient.ImportResult, error)
	ExportProducts(ctx context.Context, format apiclient.ExportFormat, saver apiclient.FileSaver) (string, error)
	GetImportLogs(ctx context.Context, p apiclient.Pagination) (*apiclient.ImportLogPage, error)
	DownloadImportErrors(ctx context.Context, logID int64, saver apiclient.FileSaver) (string, error)
}

// Confirmer asks the operator to confirm a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Controller drives one console. Flows are serialized; Snapshot and View
// may be called at any time.
type Controller struct {
	api      API
	sessions session.Store
	feedback *Feedback

	flow sync.Mutex

	mu    sync.RWMutex
	state State
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier forwards toasts and loading changes to n.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.feedback = NewFeedback(n) }
}

// New creates a controller. sessions must be the store the API client
// reads its token from.
func New(api API, sessions session.Store, opts ...Option) *Controller {
	c := &Controller{
		api:      api,
		sessions: sessions,
		feedback: NewFeedback(nil),
		state:    Initial(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Feedback exposes the loading indicator and toast queue.
func (c *Controller) Feedback() *Feedback { return c.feedback }

// View renders the current state and drains the pending toasts.
func (c *Controller) View() View {
	v := Render(c.Snapshot())
	v.Loading = c.feedback.Loading()
	v.Toasts = c.feedback.Drain()
	return v
}

func (c *Controller) update(fn func(State) State) {
	c.mu.Lock()
	c.state = fn(c.state)
	c.mu.Unlock()
}

// ============================================================================
// AUTENTICACIÓN
// ============================================================================

// Bootstrap shows the authenticated shell and loads data when a session is
// stored, the login form otherwise.
func (c *Controller) Bootstrap(ctx context.Context) {
	c.flow.Lock()
	defer c.flow.Unlock()

	s, err := c.sessions.Load()
	if err != nil {
		log.Printf("⚠️  No se pudo leer la sesión: %v", err)
	}
	if !s.Authenticated() {
		prefill := c.Snapshot().LoginPrefill
		c.update(func(State) State { return signedOut(prefill) })
		return
	}

	expires, _ := session.ExpiresAt(s.Token)
	c.update(func(st State) State {
		if st.Authenticated && st.Username == s.Username {
			return st
		}
		return signedIn(st, s.Username, expires)
	})
	c.loadData(ctx)
}

// Login authenticates and loads the dashboard. On failure the login form
// stays up with the error as a toast.
func (c *Controller) Login(ctx context.Context, username, password string) bool {
	c.flow.Lock()
	defer c.flow.Unlock()

	c.feedback.Begin()
	defer c.feedback.End()

	if username == "" || password == "" {
		c.feedback.Error(MsgCredentials)
		return false
	}

	token, err := c.api.Login(ctx, username, password)
	if err != nil {
		c.feedback.Error(apiclient.Message(err))
		c.update(func(s State) State { return withAuthForm(s, AuthLogin) })
		return false
	}

	expires, _ := session.ExpiresAt(token.AccessToken)
	c.feedback.Success(MsgWelcome)
	c.update(func(s State) State { return signedIn(s, username, expires) })
	c.loadData(ctx)
	return true
}

// Register creates an account and switches to the login form prefilled
// with the new username. It never logs in.
func (c *Controller) Register(ctx context.Context, username, email, password string) bool {
	c.flow.Lock()
	defer c.flow.Unlock()

	c.feedback.Begin()
	defer c.feedback.End()

	if _, err := c.api.Register(ctx, username, email, password); err != nil {
		c.feedback.Error(apiclient.Message(err))
		return false
	}
	c.feedback.Success(MsgRegistered)
	c.update(func(s State) State { return registered(s, username) })
	return true
}

// Logout removes the stored session and returns to the login form.
func (c *Controller) Logout() {
	c.flow.Lock()
	defer c.flow.Unlock()

	if err := c.sessions.Clear(); err != nil {
		log.Printf("⚠️  No se pudo borrar la sesión: %v", err)
	}
	c.feedback.Info(MsgLoggedOut)
	c.update(func(State) State { return signedOut("") })
}

// ShowAuthForm switches between the login and register forms.
func (c *Controller) ShowAuthForm(form AuthForm) {
	c.update(func(s State) State { return withAuthForm(s, form) })
}

// ============================================================================
// NAVEGACIÓN Y LISTADO
// ============================================================================

// Navigate shows one section. The import section refreshes its logs.
func (c *Controller) Navigate(ctx context.Context, section Section) {
	c.flow.Lock()
	defer c.flow.Unlock()

	if !c.Snapshot().Authenticated {
		return
	}
	c.update(func(s State) State { return navigated(s, section) })
	if section == SectionImportExport {
		c.loadImportLogs(ctx)
	}
}

// LoadProducts re-fetches the current page with the active filters.
func (c *Controller) LoadProducts(ctx context.Context) {
	c.flow.Lock()
	defer c.flow.Unlock()
	c.loadProducts(ctx)
}

// ChangePage moves to page n, keeping the filters.
func (c *Controller) ChangePage(ctx context.Context, n int) {
	c.flow.Lock()
	defer c.flow.Unlock()

	if pages := TotalPages(c.Snapshot().Total, PerPage); pages > 0 && n > pages {
		n = pages
	}
	c.update(func(s State) State { return withPage(s, n) })
	c.loadProducts(ctx)
}

// ApplyFilters replaces the filters and goes back to page 1.
func (c *Controller) ApplyFilters(ctx context.Context, f Filters) {
	c.flow.Lock()
	defer c.flow.Unlock()

	c.update(func(s State) State { return withFilters(s, f) })
	c.loadProducts(ctx)
}

// Reload refreshes dashboard stats and the current page.
func (c *Controller) Reload(ctx context.Context) {
	c.flow.Lock()
	defer c.flow.Unlock()
	c.loadData(ctx)
}

// loadData fetches the stats sample and the current page concurrently and
// applies both only when both succeed.
func (c *Controller) loadData(ctx context.Context) {
	c.feedback.Begin()
	defer c.feedback.End()

	st := c.Snapshot()
	var sample, page *apiclient.ProductPage

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sample, err = c.api.GetProducts(gctx, apiclient.ProductFilters{Limit: CategorySampleLimit})
		return err
	})
	g.Go(func() error {
		var err error
		page, err = c.api.GetProducts(gctx, st.Filters.query(st.Page, st.PerPage))
		return err
	})
	if err := g.Wait(); err != nil {
		if c.expireOn(err) {
			return
		}
		log.Printf("❌ Error cargando datos: %v", err)
		c.feedback.Error(MsgLoadFailed)
		return
	}

	c.update(func(s State) State {
		s = withStats(s, ComputeStats(sample))
		s = withCategories(s, DistinctCategories(sample.Items))
		return withProducts(s, page)
	})
}

func (c *Controller) loadProducts(ctx context.Context) {
	c.feedback.Begin()
	defer c.feedback.End()

	st := c.Snapshot()
	page, err := c.api.GetProducts(ctx, st.Filters.query(st.Page, st.PerPage))
	if err != nil {
		if c.expireOn(err) {
			return
		}
		log.Printf("❌ Error cargando productos: %v", err)
		c.feedback.Error(MsgProductsFailed)
		return
	}
	c.update(func(s State) State { return withProducts(s, page) })
	c.refreshCategories(ctx)
}

// refreshCategories rebuilds the category options from an unfiltered
// sample. A failure keeps the previous options.
func (c *Controller) refreshCategories(ctx context.Context) {
	sample, err := c.api.GetProducts(ctx, apiclient.ProductFilters{Limit: CategorySampleLimit})
	if err != nil {
		if c.expireOn(err) {
			return
		}
		log.Printf("⚠️  Error cargando categorías: %v", err)
		return
	}
	c.update(func(s State) State { return withCategories(s, DistinctCategories(sample.Items)) })
}

// ============================================================================
// EDITOR DE PRODUCTOS
// ============================================================================

// OpenEditor opens the product dialog: empty for nil, or filled from the
// cached page for an id. Ids outside the cached page are rejected.
func (c *Controller) OpenEditor(id *int64) bool {
	st := c.Snapshot()
	if id == nil {
		c.update(func(s State) State { return editorOpened(s, nil, validation.ProductForm{}) })
		return true
	}
	p, ok := st.FindProduct(*id)
	if !ok {
		c.feedback.Error(MsgProductNotCached)
		return false
	}
	editing := p.ID
	c.update(func(s State) State { return editorOpened(s, &editing, validation.FormFromProduct(p)) })
	return true
}

// CloseEditor closes the dialog and forgets the edited id.
func (c *Controller) CloseEditor() {
	c.update(editorClosed)
}

// SubmitProduct creates or updates depending on whether an id is being
// edited. On success the dialog closes and all data reloads.
func (c *Controller) SubmitProduct(ctx context.Context, form validation.ProductForm) bool {
	c.flow.Lock()
	defer c.flow.Unlock()

	c.update(func(s State) State { return editorValues(s, form) })

	in, err := validation.ParseProductForm(form)
	if err != nil {
		c.feedback.Error(apiclient.Message(err))
		return false
	}

	c.feedback.Begin()
	defer c.feedback.End()

	editing := c.Snapshot().Editing
	msg := MsgProductCreated
	if editing != nil {
		_, err = c.api.UpdateProduct(ctx, *editing, in)
		msg = MsgProductUpdated
	} else {
		_, err = c.api.CreateProduct(ctx, in)
	}
	if err != nil {
		if !c.expireOn(err) {
			c.feedback.Error(apiclient.Message(err))
		}
		return false
	}

	c.feedback.Success(msg)
	c.update(editorClosed)
	c.loadData(ctx)
	return true
}

// DeleteProduct deletes id after confirm agrees. There is no undo.
func (c *Controller) DeleteProduct(ctx context.Context, id int64, confirm Confirmer) bool {
	c.flow.Lock()
	defer c.flow.Unlock()

	if confirm == nil || !confirm.Confirm(MsgConfirmDelete) {
		return false
	}

	c.feedback.Begin()
	defer c.feedback.End()

	if err := c.api.DeleteProduct(ctx, id); err != nil {
		if !c.expireOn(err) {
			c.feedback.Error(apiclient.Message(err))
		}
		return false
	}
	c.feedback.Success(MsgProductDeleted)
	c.loadData(ctx)
	return true
}

// ============================================================================
// IMPORTACIÓN / EXPORTACIÓN
// ============================================================================

// Import uploads one file after the local checks pass, shows the summary
// and reloads products and import logs.
func (c *Controller) Import(ctx context.Context, up *apiclient.Upload) bool {
	c.flow.Lock()
	defer c.flow.Unlock()

	if up == nil || up.Content == nil || importcheck.Check(up.Filename) != nil {
		c.feedback.Error(MsgSelectFile)
		return false
	}
	data, err := io.ReadAll(up.Content)
	if err != nil {
		c.feedback.Error(fmt.Sprintf("No se pudo leer %s", up.Filename))
		return false
	}
	// el servidor decide y deja el intento en el historial
	for _, w := range importcheck.Inspect(up.Filename, data) {
		log.Printf("⚠️  Importación de %s: %s", up.Filename, w)
	}

	c.feedback.Begin()
	defer c.feedback.End()

	res, err := c.api.ImportProducts(ctx, apiclient.Upload{Filename: up.Filename, Content: bytes.NewReader(data)})
	if err != nil {
		if !c.expireOn(err) {
			c.feedback.Error(apiclient.Message(err))
			c.loadImportLogs(ctx)
		}
		return false
	}

	c.update(func(s State) State { return withImportResult(s, res) })
	c.feedback.Success(MsgImportCompleted)
	c.loadData(ctx)
	c.loadImportLogs(ctx)
	return true
}

// Export downloads the catalog in format and hands it to saver.
func (c *Controller) Export(ctx context.Context, format apiclient.ExportFormat, saver apiclient.FileSaver) (string, bool) {
	c.flow.Lock()
	defer c.flow.Unlock()

	c.feedback.Begin()
	defer c.feedback.End()

	name, err := c.api.ExportProducts(ctx, format, saver)
	if err != nil {
		if !c.expireOn(err) {
			c.feedback.Error(apiclient.Message(err))
		}
		return "", false
	}
	c.feedback.Success(MsgExported)
	return name, true
}

// LoadImportLogs refreshes the import history.
func (c *Controller) LoadImportLogs(ctx context.Context) {
	c.flow.Lock()
	defer c.flow.Unlock()
	c.loadImportLogs(ctx)
}

func (c *Controller) loadImportLogs(ctx context.Context) {
	page, err := c.api.GetImportLogs(ctx, apiclient.Pagination{Limit: ImportLogLimit})
	if err != nil {
		if c.expireOn(err) {
			return
		}
		log.Printf("⚠️  Error cargando historial de importaciones: %v", err)
		return
	}
	c.update(func(s State) State { return withImportLogs(s, page.Items) })
}

// DownloadErrors saves the rejected-rows report of one import. Logs known
// to have no failed rows are refused without a request.
func (c *Controller) DownloadErrors(ctx context.Context, logID int64, saver apiclient.FileSaver) (string, bool) {
	c.flow.Lock()
	defer c.flow.Unlock()

	if l, ok := c.Snapshot().FindImportLog(logID); ok && !l.HasErrorReport() {
		c.feedback.Error(MsgNoErrorReport)
		return "", false
	}

	c.feedback.Begin()
	defer c.feedback.End()

	name, err := c.api.DownloadImportErrors(ctx, logID, saver)
	if err != nil {
		if !c.expireOn(err) {
			c.feedback.Error(apiclient.MsgErrorReportFailed)
		}
		return "", false
	}
	c.feedback.Success(MsgErrorsDownloaded)
	return name, true
}

// expireOn ends the session when err is a 401 from an authenticated call.
// It reports whether it did.
func (c *Controller) expireOn(err error) bool {
	if !apiclient.IsUnauthorized(err) {
		return false
	}
	var authErr *apiclient.AuthenticationError
	msg := MsgSessionExpired
	if errors.As(err, &authErr) && authErr.Detail != "" {
		msg = authErr.Detail
	}

	if clearErr := c.sessions.Clear(); clearErr != nil {
		log.Printf("⚠️  No se pudo borrar la sesión: %v", clearErr)
	}
	username := c.Snapshot().Username
	c.update(func(State) State { return signedOut(username) })
	c.feedback.Error(msg)
	return true
}
