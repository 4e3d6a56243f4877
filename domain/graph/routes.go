package graph

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/graph")

	g.GET("", h.Build)
	g.GET("/local/:id", h.Neighborhood)
	g.GET("/timeline", h.TimeWindow)
	g.GET("/path", h.Path)
}
