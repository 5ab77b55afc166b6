// Package catalogtest runs an in-memory fake of the catalog REST API
// (/api/v1) for tests. It follows the contract the console consumes:
// OAuth2-style form login returning a JWT, bearer-protected product CRUD,
// CSV/XLSX import with per-row errors, exports and import logs.
package catalogtest

import (
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// APIPrefix is the versioned path the fake mounts its routes under.
const APIPrefix = "/api/v1"

// Call is one request received by the fake.
type Call struct {
	Method string
	Path   string
	Query  string
	Auth   string
}

type failure struct {
	status int
	detail string
}

// Server is a running fake API.
type Server struct {
	*httptest.Server

	// BaseURL is URL + APIPrefix.
	BaseURL string
	// LoginFailureDetail is the detail sent on rejected logins.
	LoginFailureDetail string

	app    *fiber.App
	secret []byte

	mu         sync.Mutex
	users      map[string]*user
	nextUserID int64
	products   []*Product
	nextID     int64
	logs       []*ImportLog
	nextLogID  int64
	calls      []Call
	failures   map[string]failure
	generation int
}

// NewServer starts a fake API on a loopback port.
func NewServer() *Server {
	s := &Server{
		LoginFailureDetail: "Nombre de usuario o contraseña incorrectos",
		secret:             []byte("catalogtest-secret-which-is-long-enough"),
		users:              make(map[string]*user),
		failures:           make(map[string]failure),
		nextUserID:         1,
		nextID:             1,
		nextLogID:          1,
	}
	s.app = fiber.New(fiber.Config{DisableStartupMessage: true, Immutable: true})
	s.routes()
	s.Server = httptest.NewServer(adaptor.FiberApp(s.app))
	s.BaseURL = s.URL + APIPrefix
	return s
}

func (s *Server) routes() {
	s.app.Use(s.record)

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "version": "test"})
	})

	api := s.app.Group(APIPrefix)
	api.Post("/auth/login", s.handleLogin)
	api.Post("/auth/register", s.handleRegister)

	products := api.Group("/products", s.requireToken)
	products.Get("/import-logs", s.handleListLogs)
	products.Get("/import-logs/:id<int>/download-errors", s.handleDownloadErrors)
	products.Post("/import", s.handleImport)
	products.Get("/export/:format", s.handleExport)
	products.Get("", s.handleListProducts)
	products.Post("", s.handleCreateProduct)
	products.Get("/:id<int>", s.handleGetProduct)
	products.Put("/:id<int>", s.handleUpdateProduct)
	products.Delete("/:id<int>", s.handleDeleteProduct)
}

// record logs every call and applies injected failures.
func (s *Server) record(c *fiber.Ctx) error {
	s.mu.Lock()
	s.calls = append(s.calls, Call{
		Method: c.Method(),
		Path:   c.Path(),
		Query:  string(c.Request().URI().QueryString()),
		Auth:   c.Get(fiber.HeaderAuthorization),
	})
	f, failing := s.failures[c.Method()+" "+c.Path()]
	s.mu.Unlock()

	if failing {
		return c.Status(f.status).JSON(fiber.Map{"detail": f.detail})
	}
	return c.Next()
}

// Fail makes every request matching method and path (without the API
// prefix, e.g. "/products") answer status with the given detail.
func (s *Server) Fail(method, path string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+APIPrefix+path] = failure{status: status, detail: detail}
}

// ClearFailures removes every injected failure.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]failure)
}

// Calls returns the requests whose method matches and whose path (without
// the API prefix) starts with pathPrefix. An empty method matches all.
func (s *Server) Calls(method, pathPrefix string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, call := range s.calls {
		if method != "" && call.Method != method {
			continue
		}
		if !strings.HasPrefix(strings.TrimPrefix(call.Path, APIPrefix), pathPrefix) {
			continue
		}
		out = append(out, call)
	}
	return out
}

// ResetCalls forgets the recorded requests.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// ExpireTokens invalidates every token issued so far.
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

func now() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05.000000+00:00")
}

func detail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"detail": msg})
}
