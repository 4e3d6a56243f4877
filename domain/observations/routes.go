package observations

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/observations")

	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)

	e.GET("/api/archive", h.ListArchive)
	e.GET("/api/tags", h.Tags)

	m := e.Group("/api/memories")
	m.GET("/domain/:domain", h.MemoriesByDomain)
	m.GET("/url", h.MemoriesByURL)
}
