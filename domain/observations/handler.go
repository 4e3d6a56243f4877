package observations

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/engramdb/engram/pkg/apperror"
)

// Handler handles observation HTTP requests
type Handler struct {
	svc *Service
}

// NewHandler creates a new observations handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /api/observations
func (h *Handler) Create(c echo.Context) error {
	var req IngestInput
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	obs, err := h.svc.Ingest(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, obs)
}

// List handles GET /api/observations
func (h *Handler) List(c echo.Context) error {
	f := Filter{
		Category: c.QueryParam("category"),
		Tag:      c.QueryParam("tag"),
		Search:   c.QueryParam("search"),
	}
	if f.Category == "" {
		// legacy param name used by older capture clients
		f.Category = c.QueryParam("type")
	}
	f.EntityID, _ = strconv.ParseInt(c.QueryParam("entity_id"), 10, 64)
	f.MinImportance, _ = strconv.ParseFloat(c.QueryParam("min_importance"), 64)
	f.IncludeArchive = c.QueryParam("include_archive") == "true"
	f.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	f.Offset, _ = strconv.Atoi(c.QueryParam("offset"))
	if v := c.QueryParam("date"); v != "" {
		day, err := time.Parse("2006-01-02", v)
		if err != nil {
			return apperror.ErrBadRequest.WithMessage("date must be YYYY-MM-DD")
		}
		f.Since = day
		f.Until = day.AddDate(0, 0, 1)
	}
	if v := c.QueryParam("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperror.ErrBadRequest.WithMessage("since must be RFC 3339")
		}
		f.Since = t
	}
	if v := c.QueryParam("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperror.ErrBadRequest.WithMessage("until must be RFC 3339")
		}
		f.Until = t
	}

	rows, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"observations": rows,
		"count":        len(rows),
	})
}

// Get handles GET /api/observations/:id
func (h *Handler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid observation id")
	}

	row, source, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"observation": row,
		"source":      source,
	})
}

// Delete handles DELETE /api/observations/:id
func (h *Handler) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid observation id")
	}

	source, err := h.svc.Delete(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"deleted_id": id,
		"source":     source,
	})
}

// ListArchive handles GET /api/archive
func (h *Handler) ListArchive(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	rows, err := h.svc.ListArchive(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"archived": rows,
		"count":    len(rows),
	})
}

// Tags handles GET /api/tags
func (h *Handler) Tags(c echo.Context) error {
	counts, err := h.svc.TagCounts(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"tags":  counts,
		"count": len(counts),
	})
}

// MemoriesByDomain handles GET /api/memories/domain/:domain
func (h *Handler) MemoriesByDomain(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	memories, err := h.svc.MemoriesByDomain(c.Request().Context(), c.Param("domain"), limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"memories": memories,
		"count":    len(memories),
	})
}

// MemoriesByURL handles GET /api/memories/url
func (h *Handler) MemoriesByURL(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	result, err := h.svc.MemoriesByURL(c.Request().Context(), c.QueryParam("url"), limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
