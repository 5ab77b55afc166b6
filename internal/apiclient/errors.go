package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Mensajes genéricos mostrados cuando el servidor no entrega detalle.
const (
	MsgRequestFailed      = "Error en la petición"
	MsgInvalidCredentials = "Credenciales incorrectas"
	MsgExportFailed       = "Error al exportar"
	MsgErrorReportFailed  = "Error al descargar archivo de errores"
	MsgNetworkFailure     = "No se pudo conectar con el servidor"
)

// AuthenticationError is returned for rejected credentials at login and for
// a missing or expired token (HTTP 401) on an authenticated call.
type AuthenticationError struct {
	Status int
	Detail string
}

func (e *AuthenticationError) Error() string {
	if e.Detail == "" {
		return MsgInvalidCredentials
	}
	return e.Detail
}

// APIError is any other non-2xx response from the catalog API.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return MsgRequestFailed
	}
	return e.Detail
}

// ClientValidationError is raised locally, before any request is issued.
type ClientValidationError struct {
	Field   string
	Message string
}

func (e *ClientValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsUnauthorized reports whether err means the session is no longer valid.
func IsUnauthorized(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr) && authErr.Status == http.StatusUnauthorized
}

// Message converts err into the short text shown to the operator.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var (
		authErr *AuthenticationError
		apiErr  *APIError
		valErr  *ClientValidationError
	)
	switch {
	case errors.As(err, &authErr):
		return authErr.Error()
	case errors.As(err, &apiErr):
		return apiErr.Error()
	case errors.As(err, &valErr):
		return valErr.Error()
	default:
		return MsgNetworkFailure
	}
}
