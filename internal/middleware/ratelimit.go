package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// ============================================================================
// RATE LIMITING MIDDLEWARE
// ============================================================================
// Las respuestas son texto plano: quien llama es un formulario del navegador.

// MsgTooManyAttempts is the body sent when the auth limit is reached.
const MsgTooManyAttempts = "Demasiados intentos. Intenta de nuevo en un minuto."

// GlobalRateLimiter - Limitador general de la consola
// 1000 requests por minuto por IP
func GlobalRateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        1000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Next: func(c *fiber.Ctx) bool {
			// El feed websocket y el health check no cuentan
			return c.Path() == "/ws" || c.Path() == "/health"
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).SendString("Demasiadas solicitudes. Intenta de nuevo en un minuto.")
		},
		LimiterMiddleware: limiter.SlidingWindow{},
	})
}

// AuthRateLimiter - Limitador para login y registro
// max requests por minuto por IP + ruta (protege contra fuerza bruta)
func AuthRateLimiter(max int) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + ":" + c.Path()
		},
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, "60")
			return c.Status(fiber.StatusTooManyRequests).SendString(MsgTooManyAttempts)
		},
		LimiterMiddleware: limiter.SlidingWindow{},
	})
}
