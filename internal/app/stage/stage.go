package stage

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/fieldwork/internal/jobsource"
	"github.com/slok/fieldwork/internal/lifecycle"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/session"
)

// ServiceConfig is the configuration for the stage service.
type ServiceConfig struct {
	Source  *jobsource.Source
	Tracker *lifecycle.Tracker
	Logger  log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Source == nil {
		return fmt.Errorf("job source is required")
	}
	if c.Tracker == nil {
		return fmt.Errorf("stage tracker is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Stage"})
	return nil
}

// Service moves workers through the job workflow stages.
type Service struct {
	source  *jobsource.Source
	tracker *lifecycle.Tracker
	logger  log.Logger
}

// NewService creates a new stage service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		source:  cfg.Source,
		tracker: cfg.Tracker,
		logger:  cfg.Logger,
	}, nil
}

// Request represents the stage request parameters.
type Request struct {
	Session session.Session
	JobID   string
	Target  model.Stage
}

// Result is the gate decision and the resulting workflow state.
type Result struct {
	Decision lifecycle.Decision
	Progress model.StageProgress
}

// Run requests the target stage. A rejection is a decision, not an error.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	var job *model.Job
	read, err := s.source.Get(ctx, req.JobID)
	switch {
	case err == nil:
		job = &read.Job
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrOffline):
		// The gate decides on unavailable jobs.
		s.logger.Debugf("Job %s unavailable: %s", req.JobID, err)
	default:
		return Result{}, err
	}

	d, p, err := s.tracker.Request(ctx, req.JobID, job, req.Session.WorkerID, req.Target)
	if err != nil {
		return Result{}, err
	}

	return Result{Decision: d, Progress: p}, nil
}
