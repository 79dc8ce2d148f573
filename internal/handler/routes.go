package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"service-a/internal/config"
	"service-a/internal/metrics"
)

// RegisterRoutes wires all route handlers onto the Echo instance. The metrics
// endpoint is only mounted when enabled in config.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, m *metrics.Metrics, fwd *ForwardHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/status", health.Status)
	e.GET("/call-b", fwd.CallB)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}
}
