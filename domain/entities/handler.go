package entities

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/engramdb/engram/pkg/apperror"
)

// Handler handles entity HTTP requests
type Handler struct {
	svc *Service
}

// NewHandler creates a new entities handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createRequest struct {
	Name     string         `json:"name"`
	Category string         `json:"category"`
	Metadata map[string]any `json:"metadata"`
}

// Create handles POST /api/entities
func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	entity, err := h.svc.Create(c.Request().Context(), req.Name, req.Category, req.Metadata)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, entity)
}

// List handles GET /api/entities
func (h *Handler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	list, err := h.svc.List(c.Request().Context(), limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"entities": list,
		"count":    len(list),
	})
}

// Get handles GET /api/entities/:id
func (h *Handler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid entity id")
	}

	entity, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entity)
}
