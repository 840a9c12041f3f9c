package jobshow

import (
	"context"
	"fmt"
	"strings"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/jobsource"
	"github.com/slok/fieldwork/internal/lifecycle"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/session"
)

// ServiceConfig is the configuration for the job show service.
type ServiceConfig struct {
	Source  *jobsource.Source
	Tracker *lifecycle.Tracker
	// Attachments is optional, when set the job images are loaded while online.
	Attachments backend.AttachmentRepository
	Logger      log.Logger
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.JobShow"})
	return nil
}

// Service shows a job with the workflow state of the worker.
type Service struct {
	source      *jobsource.Source
	tracker     *lifecycle.Tracker
	attachments backend.AttachmentRepository
	logger      log.Logger
}

// NewService creates a new job show service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		source:      cfg.Source,
		tracker:     cfg.Tracker,
		attachments: cfg.Attachments,
		logger:      cfg.Logger,
	}, nil
}

// Request represents the job show request parameters.
type Request struct {
	Session session.Session
	JobID   string
}

// Result is a job with the worker workflow state.
type Result struct {
	Job      model.Job
	Progress model.StageProgress
	Images   []model.Image
	Cached   bool
}

// Run returns the job.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.JobID) == "" {
		return Result{}, fmt.Errorf("job id is required: %w", model.ErrNotValid)
	}

	read, err := s.source.Get(ctx, req.JobID)
	if err != nil {
		return Result{}, err
	}

	p, err := s.tracker.Progress(ctx, req.JobID, req.Session.WorkerID)
	if err != nil {
		return Result{}, err
	}

	res := Result{Job: read.Job, Progress: p, Cached: read.Cached}
	if s.attachments != nil && !read.Cached {
		imgs, err := s.attachments.ListImages(ctx, req.JobID)
		if err != nil {
			s.logger.Warningf("Could not list images of job %s: %s", req.JobID, err)
		}
		res.Images = imgs
	}

	return res, nil
}
