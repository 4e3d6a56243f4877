package pipeline

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/engramdb/engram/pkg/apperror"
)

// Handler handles pipeline HTTP requests
type Handler struct {
	svc  *Service
	repo *Repository
}

// NewHandler creates a new pipeline handler
func NewHandler(svc *Service, repo *Repository) *Handler {
	return &Handler{svc: svc, repo: repo}
}

// Run handles POST /api/pipeline/run
func (h *Handler) Run(c echo.Context) error {
	var body struct {
		BatchLimit int `json:"batch_limit"`
	}
	// Empty body means "use the default claim size".
	if err := c.Bind(&body); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	report, err := h.svc.Run(c.Request().Context(), body.BatchLimit)
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperror.NewUnavailable("embedding pipeline failed", err)
	}

	return c.JSON(http.StatusOK, report)
}

// Status handles GET /api/pipeline/status
func (h *Handler) Status(c echo.Context) error {
	count, err := h.repo.PendingCount(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"pending": count,
	})
}
