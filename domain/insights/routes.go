package insights

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/api/stats", h.Stats)
	e.GET("/api/timeline", h.Timeline)
	e.GET("/api/insights", h.Insights)
}
