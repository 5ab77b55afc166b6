package handlers

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/yourorg/catalogconsole/internal/apiclient"
	"github.com/yourorg/catalogconsole/internal/console"
	"github.com/yourorg/catalogconsole/internal/middleware"
	"github.com/yourorg/catalogconsole/internal/validation"
	"github.com/yourorg/catalogconsole/internal/views"
)

// ConsoleHandler translates browser requests into controller flows. GET
// routes render the page; POST routes run a flow and redirect to /app so
// a reload never repeats the action.
type ConsoleHandler struct {
	registry *Registry
	views    *views.Renderer
}

func NewConsoleHandler(registry *Registry, renderer *views.Renderer) *ConsoleHandler {
	return &ConsoleHandler{registry: registry, views: renderer}
}

// controller returns the controller of the request's console session.
// Fresh controllers are bootstrapped from the stored session first.
func (h *ConsoleHandler) controller(c *fiber.Ctx) *console.Controller {
	ctrl, created := h.registry.Get(middleware.SessionID(c))
	if created {
		ctrl.Bootstrap(c.UserContext())
	}
	return ctrl
}

func (h *ConsoleHandler) render(c *fiber.Ctx, ctrl *console.Controller) error {
	c.Type("html", "utf-8")
	if err := h.views.Render(c, views.Page, ctrl.View()); err != nil {
		log.Printf("❌ Error al renderizar la consola: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Error al renderizar la consola")
	}
	return nil
}

func back(c *fiber.Ctx) error {
	return c.Redirect("/app", fiber.StatusSeeOther)
}

// ============================================================================
// SHELL
// ============================================================================

// Index bootstraps from the stored session and renders.
func (h *ConsoleHandler) Index(c *fiber.Ctx) error {
	ctrl, _ := h.registry.Get(middleware.SessionID(c))
	ctrl.Bootstrap(c.UserContext())
	return h.render(c, ctrl)
}

// App renders the current state without loading anything.
func (h *ConsoleHandler) App(c *fiber.Ctx) error {
	return h.render(c, h.controller(c))
}

// ============================================================================
// AUTENTICACIÓN
// ============================================================================

func (h *ConsoleHandler) Login(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	ctrl.Login(c.UserContext(), c.FormValue("username"), c.FormValue("password"))
	return back(c)
}

func (h *ConsoleHandler) Register(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	ctrl.Register(c.UserContext(), c.FormValue("username"), c.FormValue("email"), c.FormValue("password"))
	return back(c)
}

func (h *ConsoleHandler) Logout(c *fiber.Ctx) error {
	h.controller(c).Logout()
	return back(c)
}

// AuthForm switches between /auth/login and /auth/register.
func (h *ConsoleHandler) AuthForm(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	switch console.AuthForm(c.Params("form")) {
	case console.AuthRegister:
		ctrl.ShowAuthForm(console.AuthRegister)
	default:
		ctrl.ShowAuthForm(console.AuthLogin)
	}
	return h.render(c, ctrl)
}

// ============================================================================
// NAVEGACIÓN Y LISTADO
// ============================================================================

func (h *ConsoleHandler) Section(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	sec, ok := console.ParseSection(c.Params("name"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "Sección no encontrada")
	}
	ctrl.Navigate(c.UserContext(), sec)
	return h.render(c, ctrl)
}

// Products shows the listing. ?page=N changes page, without it the
// current page is refreshed.
func (h *ConsoleHandler) Products(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	if !ctrl.Snapshot().Authenticated {
		return back(c)
	}
	ctx := c.UserContext()
	ctrl.Navigate(ctx, console.SectionProducts)
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			page = 1
		}
		ctrl.ChangePage(ctx, page)
	} else {
		ctrl.LoadProducts(ctx)
	}
	return h.render(c, ctrl)
}

// Filter applies the filter form. clear=1 resets every filter.
func (h *ConsoleHandler) Filter(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	if c.FormValue("clear") != "" {
		ctrl.ApplyFilters(c.UserContext(), console.Filters{})
		return back(c)
	}
	f, err := parseFilters(c)
	if err != nil {
		ctrl.Feedback().Error(apiclient.Message(err))
		return back(c)
	}
	ctrl.ApplyFilters(c.UserContext(), f)
	return back(c)
}

func parseFilters(c *fiber.Ctx) (console.Filters, error) {
	f := console.Filters{
		Nombre:    c.FormValue("nombre"),
		Categoria: c.FormValue("categoria"),
	}
	var err error
	if f.PrecioMin, err = validation.OptionalDecimal("precio_min", c.FormValue("precio_min")); err != nil {
		return f, err
	}
	if f.PrecioMax, err = validation.OptionalDecimal("precio_max", c.FormValue("precio_max")); err != nil {
		return f, err
	}
	if f.StockMin, err = validation.OptionalInt("stock_min", c.FormValue("stock_min")); err != nil {
		return f, err
	}
	return f, nil
}

// ============================================================================
// EDITOR DE PRODUCTOS
// ============================================================================

func (h *ConsoleHandler) NewProduct(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	ctrl.OpenEditor(nil)
	return h.render(c, ctrl)
}

func (h *ConsoleHandler) EditProduct(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "ID de producto inválido")
	}
	editing := int64(id)
	ctrl.OpenEditor(&editing)
	return h.render(c, ctrl)
}

func (h *ConsoleHandler) CloseEditor(c *fiber.Ctx) error {
	h.controller(c).CloseEditor()
	return back(c)
}

func (h *ConsoleHandler) SaveProduct(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	var form validation.ProductForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Formulario inválido")
	}
	ctrl.SubmitProduct(c.UserContext(), form)
	return back(c)
}

// DeleteProduct needs confirm=si, which the browser sets from its
// confirmation dialog.
func (h *ConsoleHandler) DeleteProduct(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "ID de producto inválido")
	}
	confirmed := c.FormValue("confirm") == "si"
	ctrl.DeleteProduct(c.UserContext(), int64(id), console.ConfirmFunc(func(string) bool { return confirmed }))
	return back(c)
}

// ============================================================================
// IMPORTACIÓN / EXPORTACIÓN
// ============================================================================

func (h *ConsoleHandler) Import(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	fh, err := c.FormFile("file")
	if err != nil {
		ctrl.Import(c.UserContext(), nil)
		return back(c)
	}
	f, err := fh.Open()
	if err != nil {
		log.Printf("⚠️  No se pudo abrir el archivo subido: %v", err)
		ctrl.Import(c.UserContext(), nil)
		return back(c)
	}
	defer f.Close()

	ctrl.Import(c.UserContext(), &apiclient.Upload{Filename: fh.Filename, Content: f})
	return back(c)
}

// Export sends the catalog as an attachment. On failure the browser goes
// back to the console, where the toast explains why.
func (h *ConsoleHandler) Export(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	format, ok := apiclient.ParseExportFormat(c.Params("format"))
	if !ok {
		// El cliente rechaza el formato sin hacer la petición
		format = apiclient.ExportFormat(c.Params("format"))
	}
	saver := &apiclient.MemorySaver{}
	if _, ok := ctrl.Export(c.UserContext(), format, saver); !ok {
		return back(c)
	}
	return attachment(c, saver)
}

func (h *ConsoleHandler) DownloadErrors(c *fiber.Ctx) error {
	ctrl := h.controller(c)
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "ID de importación inválido")
	}
	saver := &apiclient.MemorySaver{}
	if _, ok := ctrl.DownloadErrors(c.UserContext(), int64(id), saver); !ok {
		return back(c)
	}
	return attachment(c, saver)
}

func attachment(c *fiber.Ctx, saver *apiclient.MemorySaver) error {
	name, data, ok := saver.File()
	if !ok {
		return back(c)
	}
	c.Attachment(name)
	return c.Send(data)
}
