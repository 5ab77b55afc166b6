package catalogtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type user struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash []byte
	CreatedAt    string
}

type tokenClaims struct {
	Generation int `json:"gen"`
	jwt.RegisteredClaims
}

// TokenTTL is the lifetime of issued tokens.
const TokenTTL = 30 * time.Minute

// AddUser registers a user directly, bypassing the HTTP endpoint.
func (s *Server) AddUser(username, email, password string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("catalogtest: bcrypt: %v", err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = &user{ID: s.nextUserID, Username: username, Email: email, PasswordHash: hash, CreatedAt: now()}
	s.nextUserID++
}

// IssueToken signs a valid token for username without a login round trip.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	token, err := s.sign(username, gen)
	if err != nil {
		panic(fmt.Sprintf("catalogtest: sign token: %v", err))
	}
	return token
}

func (s *Server) sign(username string, gen int) (string, error) {
	issued := time.Now()
	claims := tokenClaims{
		Generation: gen,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")
	if username == "" || password == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": []fiber.Map{
			{"loc": []string{"body", "username"}, "msg": "field required", "type": "value_error.missing"},
		}})
	}

	s.mu.Lock()
	u, ok := s.users[username]
	gen := s.generation
	s.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		return detail(c, fiber.StatusUnauthorized, s.LoginFailureDetail)
	}

	token, err := s.sign(username, gen)
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, "failed to sign token")
	}
	c.Set("Cache-Control", "no-store")
	return c.JSON(fiber.Map{"access_token": token, "token_type": "bearer"})
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return detail(c, fiber.StatusBadRequest, "invalid json")
	}

	var problems []fiber.Map
	if n := len(req.Username); n < 3 || n > 50 {
		problems = append(problems, validationProblem("username", "ensure this value has at least 3 characters"))
	}
	if !strings.Contains(req.Email, "@") {
		problems = append(problems, validationProblem("email", "value is not a valid email address"))
	}
	if len(req.Password) < 6 {
		problems = append(problems, validationProblem("password", "ensure this value has at least 6 characters"))
	}
	if len(problems) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": problems})
	}

	s.mu.Lock()
	if _, taken := s.users[req.Username]; taken {
		s.mu.Unlock()
		return detail(c, fiber.StatusBadRequest, "El nombre de usuario ya está registrado")
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, req.Email) {
			s.mu.Unlock()
			return detail(c, fiber.StatusBadRequest, "El correo electrónico ya está registrado")
		}
	}
	s.mu.Unlock()

	s.AddUser(req.Username, req.Email, req.Password)

	s.mu.Lock()
	u := s.users[req.Username]
	s.mu.Unlock()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"is_active":  true,
		"created_at": u.CreatedAt,
	})
}

// requireToken rejects requests without a valid bearer token.
func (s *Server) requireToken(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return unauthorized(c, "Not authenticated")
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return unauthorized(c, "Token expirado")
		}
		return unauthorized(c, "Could not validate credentials")
	}

	s.mu.Lock()
	gen := s.generation
	_, known := s.users[claims.Subject]
	s.mu.Unlock()
	if claims.Generation != gen || !known {
		return unauthorized(c, "Could not validate credentials")
	}

	c.Locals("username", claims.Subject)
	return c.Next()
}

func unauthorized(c *fiber.Ctx, msg string) error {
	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	return detail(c, fiber.StatusUnauthorized, msg)
}

func validationProblem(field, msg string) fiber.Map {
	return fiber.Map{"loc": []string{"body", field}, "msg": msg, "type": "value_error"}
}
