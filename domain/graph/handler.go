package graph

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/engramdb/engram/pkg/apperror"
)

// Handler handles graph HTTP requests
type Handler struct {
	svc *Service
}

// NewHandler creates a new graph handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func paramsFrom(c echo.Context) (Params, error) {
	var p Params
	p.MinObservations, _ = strconv.Atoi(c.QueryParam("min_observations"))
	if v := c.QueryParam("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return p, apperror.ErrBadRequest.WithMessage("since must be RFC 3339")
		}
		p.Since = t
	}
	if v := c.QueryParam("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return p, apperror.ErrBadRequest.WithMessage("until must be RFC 3339")
		}
		p.Until = t
	}
	return p, nil
}

// Build handles GET /api/graph
func (h *Handler) Build(c echo.Context) error {
	p, err := paramsFrom(c)
	if err != nil {
		return err
	}

	g, err := h.svc.Build(c.Request().Context(), p)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, g)
}

// Neighborhood handles GET /api/graph/neighborhood/:id
func (h *Handler) Neighborhood(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid entity id")
	}

	p, err := paramsFrom(c)
	if err != nil {
		return err
	}
	hops := DefaultHops
	if v := c.QueryParam("hops"); v != "" {
		hops, err = strconv.Atoi(v)
		if err != nil {
			return apperror.ErrBadRequest.WithMessage("invalid hops")
		}
	}

	g, err := h.svc.Neighborhood(c.Request().Context(), p, id, hops)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, g)
}

// TimeWindow handles GET /api/graph/timeline
func (h *Handler) TimeWindow(c echo.Context) error {
	var p Params
	p.MinObservations, _ = strconv.Atoi(c.QueryParam("min_observations"))
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperror.ErrBadRequest.WithMessage("from must be RFC 3339")
		}
		p.Since = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperror.ErrBadRequest.WithMessage("to must be RFC 3339")
		}
		p.Until = t
	}

	var nodeID *int64
	if v := c.QueryParam("node_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return apperror.ErrBadRequest.WithMessage("invalid node_id")
		}
		nodeID = &id
	}

	g, err := h.svc.TimeWindow(c.Request().Context(), p, nodeID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, g)
}

// Path handles GET /api/graph/path
func (h *Handler) Path(c echo.Context) error {
	from, err := strconv.ParseInt(c.QueryParam("from"), 10, 64)
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("from must be an entity id")
	}
	to, err := strconv.ParseInt(c.QueryParam("to"), 10, 64)
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("to must be an entity id")
	}

	p, err := paramsFrom(c)
	if err != nil {
		return err
	}

	path, err := h.svc.Path(c.Request().Context(), p, from, to)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, path)
}
