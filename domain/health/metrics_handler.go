package health

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/engramdb/engram/domain/scheduler"
)

// MetricsHandler exposes Prometheus metrics and scheduler status
type MetricsHandler struct {
	sched *scheduler.Scheduler
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(sched *scheduler.Scheduler) *MetricsHandler {
	return &MetricsHandler{sched: sched}
}

// Prometheus serves the Prometheus scrape endpoint
func (h *MetricsHandler) Prometheus() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

// SchedulerMetrics returns the registered tasks with their next runs
func (h *MetricsHandler) SchedulerMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"running":   h.sched.IsRunning(),
		"tasks":     h.sched.GetTaskInfo(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
