package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/yourorg/catalogconsole/internal/handlers"
	"github.com/yourorg/catalogconsole/internal/middleware"
	"github.com/yourorg/catalogconsole/internal/notify"
	"github.com/yourorg/catalogconsole/internal/views"
)

// Deps are the pieces Register wires together.
type Deps struct {
	Console   *handlers.ConsoleHandler
	Health    *handlers.HealthHandler
	Hub       *notify.Hub
	Session   middleware.SessionConfig
	AuthLimit int
}

// AppConfig is the fiber configuration the console runs with. Immutable is
// required: sids, usernames and filters read from a request end up in the
// per-browser controllers and must not alias fasthttp's reused buffers.
func AppConfig() fiber.Config {
	return fiber.Config{
		AppName:   "Catálogo de Productos",
		BodyLimit: 20 * 1024 * 1024, // archivos de importación
		Immutable: true,
	}
}

func Register(app *fiber.App, d Deps) {
	// Health check (sin sesión ni rate limiting)
	app.Get("/health", d.Health.Health)

	app.Use(middleware.GlobalRateLimiter())
	app.Use(middleware.ConsoleSession(d.Session))

	// ============================================================================
	// SHELL Y AUTENTICACIÓN
	// ============================================================================
	app.Get("/", d.Console.Index)
	app.Get("/app", d.Console.App)
	app.Post("/login", middleware.AuthRateLimiter(d.AuthLimit), d.Console.Login)
	app.Post("/register", middleware.AuthRateLimiter(d.AuthLimit), d.Console.Register)
	app.Post("/logout", d.Console.Logout)
	app.Get("/auth/:form", d.Console.AuthForm)

	// ============================================================================
	// NAVEGACIÓN Y PRODUCTOS
	// ============================================================================
	app.Get("/section/:name", d.Console.Section)

	products := app.Group("/products")
	products.Get("/", d.Console.Products)
	products.Post("/filter", d.Console.Filter)
	products.Get("/new", d.Console.NewProduct)
	products.Post("/editor/close", d.Console.CloseEditor)
	products.Post("/save", d.Console.SaveProduct)
	products.Get("/:id<int>/edit", d.Console.EditProduct)
	products.Post("/:id<int>/delete", d.Console.DeleteProduct)

	// ============================================================================
	// IMPORTACIÓN / EXPORTACIÓN
	// ============================================================================
	app.Post("/import", d.Console.Import)
	app.Get("/export/:format", d.Console.Export)
	app.Get("/import-logs/:id<int>/errors", d.Console.DownloadErrors)

	// ============================================================================
	// WEBSOCKET (toasts y loading en vivo)
	// ============================================================================
	if d.Hub == nil {
		return
	}
	app.Use(views.WebsocketPath, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get(views.WebsocketPath, websocket.New(d.Hub.Handler))
}
