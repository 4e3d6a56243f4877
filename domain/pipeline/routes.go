package pipeline

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/pipeline")

	g.POST("/run", h.Run)
	g.GET("/status", h.Status)
}
