package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"cors-relay-go/internal/domain"
	"cors-relay-go/internal/service"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	matcher *domain.Matcher
	version Version
}

// NewHealthHandler creates a HealthHandler reporting on the allow-list svc
// enforces.
func NewHealthHandler(svc *service.ProxyService, v Version) *HealthHandler {
	return &HealthHandler{matcher: svc.Matcher(), version: v}
}

// statusResponse is the /proxy/status body.
type statusResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	AllowedDomains int    `json:"allowed_domains"`
	Unrestricted   bool   `json:"unrestricted"`
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status returns relay status information.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		Status:         "ok",
		Version:        string(h.version),
		AllowedDomains: h.matcher.Len(),
		Unrestricted:   h.matcher.Unrestricted(),
	})
}
