package entities

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/entities")

	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
}
