package search

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/search")

	g.POST("", h.Search)
	g.GET("/similar/:id", h.Similar)
}
