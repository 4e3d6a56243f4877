package search

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/engramdb/engram/pkg/apperror"
)

// Handler handles search HTTP requests
type Handler struct {
	svc *Service
}

// NewHandler creates a new search handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Search handles POST /api/search
func (h *Handler) Search(c echo.Context) error {
	var q Query
	if err := c.Bind(&q); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	result, err := h.svc.Search(c.Request().Context(), q)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Similar handles GET /api/search/similar/:id
func (h *Handler) Similar(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid observation id")
	}

	k, _ := strconv.Atoi(c.QueryParam("k"))
	var minSim *float64
	if v := c.QueryParam("min_similarity"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return apperror.ErrBadRequest.WithMessage("min_similarity must be a number")
		}
		minSim = &f
	}

	result, err := h.svc.Similar(c.Request().Context(), id, k, minSim)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
