package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

// SessionCookie is the cookie naming the console session of a browser.
const SessionCookie = "console_sid"

// sessionLocals is the Locals key handlers read the id from. It matches
// notify.LocalsKey so the websocket handler sees the same id.
const sessionLocals = "console_sid"

// SessionConfig configures ConsoleSession.
type SessionConfig struct {
	TTL    time.Duration
	Secure bool
}

// ConsoleSession makes sure every request carries a console-session id.
// Unknown or malformed cookies are replaced by a fresh uuid. The id outlives
// the request, so it is copied out of fasthttp's buffer.
func ConsoleSession(cfg SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := utils.CopyString(c.Cookies(SessionCookie))
		if _, err := uuid.Parse(sid); err != nil {
			sid = uuid.NewString()
		}
		c.Cookie(&fiber.Cookie{
			Name:     SessionCookie,
			Value:    sid,
			Path:     "/",
			Expires:  time.Now().Add(cfg.TTL),
			HTTPOnly: true,
			Secure:   cfg.Secure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		c.Locals(sessionLocals, sid)
		return c.Next()
	}
}

// SessionID returns the console-session id set by ConsoleSession.
func SessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals(sessionLocals).(string)
	return sid
}
