package http

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slok/fieldwork/internal/http/middleware"
)

// RoutesConfig configures the registered routes.
type RoutesConfig struct {
	// RateLimitPerMinute is the API requests allowed per client IP, 0 disables it.
	RateLimitPerMinute int
	// Gatherer serves the metrics endpoint when set.
	Gatherer prometheus.Gatherer
}

// Register registers the API routes.
func Register(e *echo.Echo, h *Handler, cfg RoutesConfig) {
	e.GET("/healthz", h.Health)
	if cfg.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api/v1", middleware.RateLimiter(cfg.RateLimitPerMinute, time.Minute))
	api.GET("/dashboard", h.GetDashboard)
	api.GET("/jobs", h.ListJobs)
	api.GET("/jobs/:id", h.GetJob)
	api.POST("/jobs/:id/stages/:stage", h.RequestStage)
	api.GET("/customers", h.ListCustomers)
	api.GET("/customers/:id", h.GetCustomer)
	api.GET("/queue", h.ListQueue)
}
