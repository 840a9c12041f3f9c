// Package http is the read-only HTTP API over the worker views.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/slok/fieldwork/internal/alert"
	"github.com/slok/fieldwork/internal/app/customers"
	"github.com/slok/fieldwork/internal/app/dashboard"
	"github.com/slok/fieldwork/internal/app/joblist"
	"github.com/slok/fieldwork/internal/app/jobshow"
	"github.com/slok/fieldwork/internal/app/stage"
	"github.com/slok/fieldwork/internal/app/sync"
	"github.com/slok/fieldwork/internal/connectivity"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/session"
)

// Sessions returns the signed in worker.
type Sessions interface {
	Current(ctx context.Context) (session.Session, error)
}

// Use cases served by the API.
type (
	JobLister interface {
		Run(ctx context.Context, req joblist.Request) (joblist.Result, error)
	}
	JobShower interface {
		Run(ctx context.Context, req jobshow.Request) (jobshow.Result, error)
	}
	StageRequester interface {
		Run(ctx context.Context, req stage.Request) (stage.Result, error)
	}
	CustomerLister interface {
		Run(ctx context.Context, req customers.Request) (customers.Result, error)
	}
	DashboardLoader interface {
		Run(ctx context.Context, req dashboard.Request) (dashboard.Result, error)
	}
	QueueSyncer interface {
		Run(ctx context.Context, req sync.Request) (sync.Result, error)
	}
)

// HandlerConfig is the configuration for the API handler.
type HandlerConfig struct {
	Sessions     Sessions
	Jobs         JobLister
	Job          JobShower
	Stage        StageRequester
	Customers    CustomerLister
	Dashboard    DashboardLoader
	Queue        QueueSyncer
	Connectivity connectivity.Checker
	Logger       log.Logger
}

func (c *HandlerConfig) defaults() error {
	if c.Sessions == nil {
		return fmt.Errorf("sessions is required")
	}
	if c.Jobs == nil || c.Job == nil || c.Stage == nil {
		return fmt.Errorf("job services are required")
	}
	if c.Customers == nil {
		return fmt.Errorf("customers service is required")
	}
	if c.Dashboard == nil {
		return fmt.Errorf("dashboard service is required")
	}
	if c.Queue == nil {
		return fmt.Errorf("queue service is required")
	}
	if c.Connectivity == nil {
		c.Connectivity = connectivity.Static(true)
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "http.Handler"})
	return nil
}

// Handler serves the API endpoints.
type Handler struct {
	sessions     Sessions
	jobs         JobLister
	job          JobShower
	stage        StageRequester
	customers    CustomerLister
	dashboard    DashboardLoader
	queue        QueueSyncer
	connectivity connectivity.Checker
	logger       log.Logger
}

// NewHandler returns a new API handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Handler{
		sessions:     cfg.Sessions,
		jobs:         cfg.Jobs,
		job:          cfg.Job,
		stage:        cfg.Stage,
		customers:    cfg.Customers,
		dashboard:    cfg.Dashboard,
		queue:        cfg.Queue,
		connectivity: cfg.Connectivity,
		logger:       cfg.Logger,
	}, nil
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status: "ok",
		Online: h.connectivity.Check(c.Request().Context()),
	})
}

func (h *Handler) ListJobs(c echo.Context) error {
	ctx := c.Request().Context()
	s, err := h.sessions.Current(ctx)
	if err != nil {
		return h.httpError(c, err)
	}

	view, err := joblist.ParseView(c.QueryParam("view"))
	if err != nil {
		return h.httpError(c, err)
	}

	res, err := h.jobs.Run(ctx, joblist.Request{Session: s, Query: c.QueryParam("q"), View: view})
	if err != nil {
		return h.httpError(c, err)
	}

	return c.JSON(http.StatusOK, newJobListResponse(res.Jobs, res.Cached))
}

func (h *Handler) GetJob(c echo.Context) error {
	ctx := c.Request().Context()
	s, err := h.sessions.Current(ctx)
	if err != nil {
		return h.httpError(c, err)
	}

	res, err := h.job.Run(ctx, jobshow.Request{Session: s, JobID: c.Param("id")})
	if err != nil {
		return h.httpError(c, err)
	}

	return c.JSON(http.StatusOK, newJobResponse(res))
}

func (h *Handler) RequestStage(c echo.Context) error {
	ctx := c.Request().Context()
	s, err := h.sessions.Current(ctx)
	if err != nil {
		return h.httpError(c, err)
	}

	target, err := model.ParseStage(c.Param("stage"))
	if err != nil {
		return h.httpError(c, err)
	}

	res, err := h.stage.Run(ctx, stage.Request{Session: s, JobID: c.Param("id"), Target: target})
	if err != nil {
		return h.httpError(c, err)
	}

	// A rejection is a valid answer, the client shows it as an alert.
	return c.JSON(http.StatusOK, newDecisionResponse(res))
}

func (h *Handler) ListCustomers(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := h.sessions.Current(ctx); err != nil {
		return h.httpError(c, err)
	}

	res, err := h.customers.Run(ctx, customers.Request{Query: c.QueryParam("q")})
	if err != nil {
		return h.httpError(c, err)
	}

	return c.JSON(http.StatusOK, newCustomerListResponse(res))
}

func (h *Handler) GetCustomer(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := h.sessions.Current(ctx); err != nil {
		return h.httpError(c, err)
	}

	res, err := h.customers.Run(ctx, customers.Request{CustomerID: c.Param("id")})
	if err != nil {
		return h.httpError(c, err)
	}

	return c.JSON(http.StatusOK, newCustomerResponse(res))
}

func (h *Handler) GetDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	s, err := h.sessions.Current(ctx)
	if err != nil {
		return h.httpError(c, err)
	}

	res, err := h.dashboard.Run(ctx, dashboard.Request{Session: s})
	if err != nil {
		return h.httpError(c, err)
	}

	return c.JSON(http.StatusOK, newDashboardResponse(res))
}

func (h *Handler) ListQueue(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := h.sessions.Current(ctx); err != nil {
		return h.httpError(c, err)
	}

	res, err := h.queue.Run(ctx, sync.Request{DryRun: true})
	if err != nil {
		return h.httpError(c, err)
	}

	return c.JSON(http.StatusOK, newQueueResponse(res))
}

// httpError maps an error to an HTTP error with the worker facing alert.
func (h *Handler) httpError(c echo.Context, err error) error {
	status := statusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithCtxValues(c.Request().Context()).WithValues(log.Kv{"path": c.Path()}).Errorf("Request failed: %s", err)
	}

	a := alert.FromError(err)
	return echo.NewHTTPError(status, errorResponse{Title: a.Title, Message: a.Message})
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, model.ErrNoSession), errors.Is(err, model.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrNotValid):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrNotAssigned), errors.Is(err, model.ErrNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, model.ErrConflict), errors.Is(err, model.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, model.ErrOffline):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
