package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Registrar registers a group of routes on the server.
type Registrar interface {
	RegisterRoutes(e *echo.Echo)
}

// Root composes route registrars into the single server handler and adds
// the health endpoint.
type Root struct {
	registrars []Registrar
}

// NewRoot creates the root handler.
func NewRoot(registrars ...Registrar) *Root {
	return &Root{registrars: registrars}
}

// RegisterRoutes registers all routes.
func (r *Root) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	for _, reg := range r.registrars {
		reg.RegisterRoutes(e)
	}
}
