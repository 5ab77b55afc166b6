package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/yourorg/catalogconsole/internal/apiclient"
	"github.com/yourorg/catalogconsole/internal/config"
	appdb "github.com/yourorg/catalogconsole/internal/db"
	"github.com/yourorg/catalogconsole/internal/handlers"
	"github.com/yourorg/catalogconsole/internal/middleware"
	"github.com/yourorg/catalogconsole/internal/notify"
	"github.com/yourorg/catalogconsole/internal/routes"
	"github.com/yourorg/catalogconsole/internal/session"
	"github.com/yourorg/catalogconsole/internal/views"
)

// controllerTTL is how long an idle browser keeps its controller in memory.
const controllerTTL = 30 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	renderer, err := views.New()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	app := fiber.New(routes.AppConfig())
	app.Use(recover.New())
	app.Use(logger.New())

	// ============================================================================
	// SESIONES DE CONSOLA
	// ============================================================================
	health := &handlers.HealthHandler{}
	var (
		sessions session.Keyed
		conn     *sql.DB
	)
	switch cfg.SessionBackend {
	case "mysql":
		conn = connectDB(cfg)
		store := session.NewMySQLStore(conn, cfg.SessionTTL)
		go purgeSessions(store, time.Hour)
		sessions = store
		health.Database = handlers.PingFunc(conn.PingContext)
		log.Println("✅ Sesiones persistidas en MySQL")
	default:
		store := session.NewMemoryStore(cfg.SessionTTL)
		defer store.Close()
		sessions = store
		health.Sessions = store.Stats
		log.Println("✅ Sesiones en memoria")
	}

	// ============================================================================
	// FEED EN VIVO + CONTROLADORES
	// ============================================================================
	hub := notify.NewHub()
	go hub.Run()

	var clientOpts []apiclient.Option
	if cfg.HTTPTimeout > 0 {
		clientOpts = append(clientOpts, apiclient.WithTimeout(cfg.HTTPTimeout))
	}
	registry := handlers.NewRegistry(handlers.RegistryConfig{
		APIBaseURL: cfg.APIBaseURL,
		Sessions:   sessions,
		Hub:        hub,
		TTL:        controllerTTL,
		ClientOpts: clientOpts,
	})

	health.Upstream = apiclient.New(cfg.APIBaseURL, session.NewProvider(session.Bound(sessions, "health")), clientOpts...)
	health.Registry = registry
	health.Clients = hub.Count

	routes.Register(app, routes.Deps{
		Console:   handlers.NewConsoleHandler(registry, renderer),
		Health:    health,
		Hub:       hub,
		Session:   middleware.SessionConfig{TTL: cfg.SessionTTL, Secure: cfg.CookieSecure},
		AuthLimit: 10,
	})

	// ============================================================================
	// GRACEFUL SHUTDOWN
	// ============================================================================
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("\n🛑 Señal de terminación recibida, cerrando servidor...")

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️  Error cerrando servidor: %v", err)
		}
	}()

	log.Printf("🚀 Consola escuchando en :%s", cfg.Port)
	log.Printf("🔗 API de catálogo: %s", cfg.APIBaseURL)
	log.Println("💡 Presiona Ctrl+C para detener")

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("❌ %v", err)
	}

	hub.Stop()
	registry.Close()
	if conn != nil {
		conn.Close()
	}
	log.Println("✅ Servidor cerrado correctamente")
}

// connectDB retries until MySQL answers and the schema exists.
func connectDB(cfg *config.Config) *sql.DB {
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		conn, err := appdb.Connect(ctx, cfg.DSN())
		if err == nil {
			err = appdb.EnsureSchema(ctx, conn, cfg.DBSkipSchema)
			if err != nil {
				conn.Close()
			}
		}
		cancel()
		if err == nil {
			log.Printf("✅ Base de datos lista")
			return conn
		}
		if attempt >= 10 {
			log.Fatalf("❌ db connect error: %v", err)
		}
		log.Printf("db connect error: %v (retrying in 5s)", err)
		time.Sleep(5 * time.Second)
	}
}

func purgeSessions(store *session.MySQLStore, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := store.Purge(ctx)
		cancel()
		if err != nil {
			log.Printf("⚠️  Error purgando sesiones: %v", err)
			continue
		}
		if n > 0 {
			log.Printf("🧹 %d sesiones expiradas eliminadas", n)
		}
	}
}
