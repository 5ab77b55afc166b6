package handlers

import (
	"context"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/yourorg/catalogconsole/internal/cache"
)

// HealthResponse representa el estado de salud de la consola
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Consoles  int               `json:"consoles"`
	Clients   int               `json:"live_clients"`
	Sessions  *cache.Stats      `json:"sessions,omitempty"`
	Version   string            `json:"version,omitempty"`
}

// Pinger checks a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports the console and its upstream API. Database is
// only set with MySQL sessions, Sessions only with in-memory ones.
type HealthHandler struct {
	Upstream Pinger
	Database Pinger
	Sessions func() cache.Stats
	Registry *Registry
	Clients  func() int
}

// Health proporciona un health check completo de la consola
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	services := make(map[string]string)
	overall := "healthy"

	// ============================================================================
	// CHECK: API de catálogo
	// ============================================================================
	if h.Upstream != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		if err := h.Upstream.Ping(ctx); err != nil {
			services["catalog_api"] = "unhealthy: " + err.Error()
			overall = "degraded"
		} else {
			services["catalog_api"] = "healthy"
		}
	} else {
		services["catalog_api"] = "not_initialized"
		overall = "degraded"
	}

	// ============================================================================
	// CHECK: Base de Datos (solo SESSION_BACKEND=mysql)
	// ============================================================================
	if h.Database != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		if err := h.Database.Ping(ctx); err != nil {
			services["database"] = "unhealthy: " + err.Error()
			overall = "degraded"
		} else {
			services["database"] = "healthy"
		}
	}

	resp := HealthResponse{
		Status:    overall,
		Timestamp: time.Now(),
		Services:  services,
		Version:   os.Getenv("APP_VERSION"),
	}
	if h.Registry != nil {
		resp.Consoles = h.Registry.Count()
	}
	if h.Clients != nil {
		resp.Clients = h.Clients()
	}
	if h.Sessions != nil {
		st := h.Sessions()
		resp.Sessions = &st
	}

	// ============================================================================
	// Determinar código de estado HTTP
	// ============================================================================
	statusCode := fiber.StatusOK
	if overall == "degraded" {
		statusCode = fiber.StatusServiceUnavailable
	}
	return c.Status(statusCode).JSON(resp)
}

// PingFunc adapts a function such as (*sql.DB).PingContext to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }
