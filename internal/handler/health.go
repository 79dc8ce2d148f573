// Package handler contains the Echo handlers and route table.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"service-a/internal/service"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves liveness and status endpoints.
type HealthHandler struct {
	forwarder *service.Forwarder
	version   Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(f *service.Forwarder, v Version) *HealthHandler {
	return &HealthHandler{forwarder: f, version: v}
}

// Healthz reports liveness only; it does not call service-b.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status reports the build version and the resolved downstream URL.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":         "ok",
		"version":        string(h.version),
		"downstream_url": h.forwarder.URL(),
	})
}
