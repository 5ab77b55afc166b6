package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func sessionApp() *fiber.App {
	app := fiber.New()
	app.Use(ConsoleSession(SessionConfig{TTL: time.Hour}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(SessionID(c)) })
	return app
}

func TestConsoleSessionIssuesID(t *testing.T) {
	app := sessionApp()
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if _, err := uuid.Parse(string(body)); err != nil {
		t.Fatalf("Expected a uuid session id, got %q", body)
	}
	cookie := resp.Header.Get("Set-Cookie")
	if !strings.Contains(cookie, SessionCookie+"="+string(body)) || !strings.Contains(strings.ToLower(cookie), "httponly") {
		t.Errorf("Unexpected cookie %q", cookie)
	}
}

func TestConsoleSessionKeepsValidID(t *testing.T) {
	app := sessionApp()
	sid := uuid.NewString()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Cookie", SessionCookie+"="+sid)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != sid {
		t.Errorf("Expected %s kept, got %s", sid, body)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Cookie", SessionCookie+"=no-es-un-uuid")
	resp, _ = app.Test(req)
	body, _ = io.ReadAll(resp.Body)
	if string(body) == "no-es-un-uuid" {
		t.Error("Expected malformed id replaced")
	}
}

func TestConsoleSessionIDOutlivesRequest(t *testing.T) {
	var kept []string
	app := fiber.New()
	app.Use(ConsoleSession(SessionConfig{TTL: time.Hour}))
	app.Get("/", func(c *fiber.Ctx) error {
		kept = append(kept, SessionID(c))
		return c.SendStatus(fiber.StatusOK)
	})

	sids := make([]string, 6)
	for i := range sids {
		sids[i] = uuid.NewString()
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Cookie", SessionCookie+"="+sids[i])
		if _, err := app.Test(req); err != nil {
			t.Fatalf("Request %d: %v", i, err)
		}
	}
	for i, sid := range sids {
		if kept[i] != sid {
			t.Errorf("Request %d: expected %s, got %s", i, sid, kept[i])
		}
	}
}

func TestAuthRateLimiter(t *testing.T) {
	app := fiber.New()
	app.Post("/login", AuthRateLimiter(2), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
		if err != nil {
			t.Fatalf("Request %d: %v", i, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("Request %d: status %d", i, resp.StatusCode)
		}
	}
	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != MsgTooManyAttempts {
		t.Errorf("Unexpected body %q", body)
	}
}
