package validation

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yourorg/catalogconsole/internal/apiclient"
)

// ProductForm holds the product editor inputs exactly as typed.
type ProductForm struct {
	Nombre      string `form:"nombre"`
	Descripcion string `form:"descripcion"`
	Precio      string `form:"precio"`
	Stock       string `form:"stock"`
	Categoria   string `form:"categoria"`
}

// FormFromProduct fills the editor from a cached product.
func FormFromProduct(p apiclient.Product) ProductForm {
	f := ProductForm{
		Nombre:    p.Nombre,
		Precio:    p.Precio.String(),
		Stock:     strconv.Itoa(p.Stock),
		Categoria: p.Categoria,
	}
	if p.Descripcion != nil {
		f.Descripcion = *p.Descripcion
	}
	return f
}

// ParseProductForm converts the editor inputs into an API payload.
// An empty description becomes an explicit absence (nil).
func ParseProductForm(f ProductForm) (apiclient.ProductInput, error) {
	var in apiclient.ProductInput

	in.Nombre = strings.TrimSpace(f.Nombre)
	if in.Nombre == "" {
		return in, invalid("nombre", "es obligatorio")
	}

	precio, err := RequiredDecimal("precio", f.Precio)
	if err != nil {
		return in, err
	}
	if precio.IsNegative() {
		return in, invalid("precio", "no puede ser negativo")
	}
	in.Precio = precio

	stock, err := RequiredInt("stock", f.Stock)
	if err != nil {
		return in, err
	}
	if stock < 0 {
		return in, invalid("stock", "no puede ser negativo")
	}
	in.Stock = stock

	in.Categoria = strings.TrimSpace(f.Categoria)
	if in.Categoria == "" {
		return in, invalid("categoria", "es obligatoria")
	}

	if d := strings.TrimSpace(f.Descripcion); d != "" {
		in.Descripcion = &d
	}
	return in, nil
}

// RequiredDecimal parses a decimal typed by the operator. A comma is
// accepted as decimal separator.
func RequiredDecimal(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, invalid(field, "es obligatorio")
	}
	d, err := decimal.NewFromString(strings.Replace(raw, ",", ".", 1))
	if err != nil {
		return decimal.Zero, invalid(field, "debe ser un número")
	}
	return d, nil
}

// OptionalDecimal is RequiredDecimal for filter inputs: empty means unset.
func OptionalDecimal(field, raw string) (*decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := RequiredDecimal(field, raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// RequiredInt parses a whole number typed by the operator.
func RequiredInt(field, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalid(field, "es obligatorio")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid(field, "debe ser un número entero")
	}
	return n, nil
}

// OptionalInt is RequiredInt for filter inputs: empty means unset.
func OptionalInt(field, raw string) (*int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	n, err := RequiredInt(field, raw)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func invalid(field, msg string) *apiclient.ClientValidationError {
	return &apiclient.ClientValidationError{Field: field, Message: msg}
}
