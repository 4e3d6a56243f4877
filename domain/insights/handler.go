package insights

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/engramdb/engram/pkg/apperror"
)

// Handler handles insights HTTP requests
type Handler struct {
	svc *Service
}

// NewHandler creates a new insights handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Stats handles GET /api/stats
func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Timeline handles GET /api/timeline
func (h *Handler) Timeline(c echo.Context) error {
	var since, until time.Time
	if v := c.QueryParam("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperror.ErrBadRequest.WithMessage("since must be RFC 3339")
		}
		since = t
	}
	if v := c.QueryParam("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperror.ErrBadRequest.WithMessage("until must be RFC 3339")
		}
		until = t
	}

	buckets, err := h.svc.Timeline(c.Request().Context(), c.QueryParam("granularity"), since, until)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"timeline": buckets,
		"count":    len(buckets),
	})
}

// Insights handles GET /api/insights
func (h *Handler) Insights(c echo.Context) error {
	report, err := h.svc.Insights(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}
