package navigate

import (
	"context"
	"fmt"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/jobsource"
	"github.com/slok/fieldwork/internal/lifecycle"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/session"
)

// ServiceConfig is the configuration for the navigate service.
type ServiceConfig struct {
	Source     *jobsource.Source
	Tracker    *lifecycle.Tracker
	Directions backend.Directions
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Source == nil {
		return fmt.Errorf("job source is required")
	}
	if c.Tracker == nil {
		return fmt.Errorf("stage tracker is required")
	}
	if c.Directions == nil {
		return fmt.Errorf("directions is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Navigate"})
	return nil
}

// Service resolves the route to a job site.
type Service struct {
	source     *jobsource.Source
	tracker    *lifecycle.Tracker
	directions backend.Directions
	logger     log.Logger
}

// NewService creates a new navigate service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		source:     cfg.Source,
		tracker:    cfg.Tracker,
		directions: cfg.Directions,
		logger:     cfg.Logger,
	}, nil
}

// Request represents the navigate request parameters.
type Request struct {
	Session session.Session
	JobID   string
	// Origin is the current position of the worker.
	Origin model.Coordinates
}

// Result is the navigate stage outcome. Route is only set when allowed.
type Result struct {
	Decision lifecycle.Decision
	Route    *model.Route
}

// Run enters the navigate stage and resolves the route from the worker
// position to the job site. A route already stored for the same origin is
// reused.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	if req.Origin.IsZero() {
		return Result{}, fmt.Errorf("current location is required: %w", model.ErrNotValid)
	}

	read, err := s.source.Get(ctx, req.JobID)
	if err != nil {
		return Result{}, err
	}
	job := read.Job

	d, p, err := s.tracker.Request(ctx, req.JobID, &job, req.Session.WorkerID, model.StageNavigate)
	if err != nil {
		return Result{}, err
	}
	if !d.Allowed {
		return Result{Decision: d}, nil
	}

	dest := job.Location.Coordinates
	if dest.IsZero() {
		return Result{}, fmt.Errorf("job %s has no location coordinates: %w", job.JobNo, model.ErrNotValid)
	}

	if p.Route != nil && p.Route.Origin == req.Origin && p.Route.Destination == dest {
		return Result{Decision: d, Route: p.Route}, nil
	}

	route, err := s.directions.Route(ctx, req.Origin, dest)
	if err != nil {
		return Result{}, fmt.Errorf("could not get directions: %w", err)
	}

	if _, err := s.tracker.SetRoute(ctx, req.JobID, req.Session.WorkerID, *route); err != nil {
		return Result{}, err
	}
	s.logger.Debugf("Route to job %s: %s, %s", job.JobNo, route.Distance, route.Duration)

	return Result{Decision: d, Route: route}, nil
}
