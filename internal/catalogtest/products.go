package catalogtest

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Product is the fake's stored representation.
type Product struct {
	ID          int64   `json:"id"`
	Nombre      string  `json:"nombre"`
	Descripcion *string `json:"descripcion"`
	Precio      float64 `json:"precio"`
	Stock       int     `json:"stock"`
	Categoria   string  `json:"categoria"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   *string `json:"updated_at"`
}

type productPayload struct {
	Nombre      *string  `json:"nombre"`
	Descripcion *string  `json:"descripcion"`
	Precio      *float64 `json:"precio"`
	Stock       *int     `json:"stock"`
	Categoria   *string  `json:"categoria"`
}

// Seed stores products directly and returns them with their assigned ids.
func (s *Server) Seed(products ...Product) []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Product, 0, len(products))
	for _, p := range products {
		p.ID = s.nextID
		s.nextID++
		if p.CreatedAt == "" {
			p.CreatedAt = now()
		}
		stored := p
		s.products = append(s.products, &stored)
		out = append(out, stored)
	}
	return out
}

// Products returns a copy of the stored catalog.
func (s *Server) Products() []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	return out
}

func (s *Server) handleListProducts(c *fiber.Ctx) error {
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 50)
	if skip < 0 || limit < 1 || limit > 1000 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": []fiber.Map{validationProblem("limit", "out of range")}})
	}
	categoria := c.Query("categoria")
	nombre := strings.ToLower(c.Query("nombre"))
	precioMin := c.QueryFloat("precio_min", math.Inf(-1))
	precioMax := c.QueryFloat("precio_max", math.Inf(1))
	stockMin := c.QueryInt("stock_min", math.MinInt32)

	s.mu.Lock()
	var matched []Product
	for _, p := range s.products {
		if categoria != "" && p.Categoria != categoria {
			continue
		}
		if nombre != "" && !strings.Contains(strings.ToLower(p.Nombre), nombre) {
			continue
		}
		if p.Precio < precioMin || p.Precio > precioMax || p.Stock < stockMin {
			continue
		}
		matched = append(matched, *p)
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	total := len(matched)
	items := []Product{}
	if skip < total {
		end := skip + limit
		if end > total {
			end = total
		}
		items = matched[skip:end]
	}
	return c.JSON(fiber.Map{"total": total, "skip": skip, "limit": limit, "items": items})
}

func (s *Server) handleGetProduct(c *fiber.Ctx) error {
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.find(id); p != nil {
		return c.JSON(p)
	}
	return detail(c, fiber.StatusNotFound, "Producto con ID "+c.Params("id")+" no encontrado")
}

func (s *Server) handleCreateProduct(c *fiber.Ctx) error {
	var in productPayload
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return detail(c, fiber.StatusBadRequest, "invalid json")
	}
	if problems := validateProduct(in, true); len(problems) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": problems})
	}
	created := s.Seed(Product{
		Nombre:      *in.Nombre,
		Descripcion: in.Descripcion,
		Precio:      math.Round(*in.Precio*100) / 100,
		Stock:       *in.Stock,
		Categoria:   *in.Categoria,
	})
	return c.Status(fiber.StatusCreated).JSON(created[0])
}

func (s *Server) handleUpdateProduct(c *fiber.Ctx) error {
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)
	var in productPayload
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return detail(c, fiber.StatusBadRequest, "invalid json")
	}
	if problems := validateProduct(in, false); len(problems) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"detail": problems})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(id)
	if p == nil {
		return detail(c, fiber.StatusNotFound, "Producto con ID "+c.Params("id")+" no encontrado")
	}
	if in.Nombre != nil {
		p.Nombre = *in.Nombre
	}
	// descripcion is always part of the console payload; null clears it.
	p.Descripcion = in.Descripcion
	if in.Precio != nil {
		p.Precio = math.Round(*in.Precio*100) / 100
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Categoria != nil {
		p.Categoria = *in.Categoria
	}
	updated := now()
	p.UpdatedAt = &updated
	return c.JSON(p)
}

func (s *Server) handleDeleteProduct(c *fiber.Ctx) error {
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.products {
		if p.ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			return c.JSON(fiber.Map{"message": "Producto eliminado exitosamente"})
		}
	}
	return detail(c, fiber.StatusNotFound, "Producto con ID "+c.Params("id")+" no encontrado")
}

// find must be called with s.mu held.
func (s *Server) find(id int64) *Product {
	for _, p := range s.products {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func validateProduct(in productPayload, create bool) []fiber.Map {
	var problems []fiber.Map
	if create && (in.Nombre == nil || in.Precio == nil || in.Stock == nil || in.Categoria == nil) {
		return append(problems, validationProblem("body", "field required"))
	}
	if in.Nombre != nil && (len(*in.Nombre) < 3 || len(*in.Nombre) > 255) {
		problems = append(problems, validationProblem("nombre", "ensure this value has at least 3 characters"))
	}
	if in.Precio != nil && *in.Precio <= 0 {
		problems = append(problems, validationProblem("precio", "El precio debe ser mayor a 0"))
	}
	if in.Stock != nil && *in.Stock < 0 {
		problems = append(problems, validationProblem("stock", "El stock no puede ser negativo"))
	}
	if in.Categoria != nil && (len(*in.Categoria) < 1 || len(*in.Categoria) > 100) {
		problems = append(problems, validationProblem("categoria", "ensure this value has at least 1 characters"))
	}
	return problems
}
