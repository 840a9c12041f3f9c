package joblist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slok/fieldwork/internal/filter"
	"github.com/slok/fieldwork/internal/jobsource"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/session"
)

// View selects which jobs are listed relative to today.
type View string

const (
	ViewAll     View = "all"
	ViewCurrent View = "current"
	ViewHistory View = "history"
)

// ParseView parses a view, empty is all.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ViewAll, nil
	case ViewAll, ViewCurrent, ViewHistory:
		return v, nil
	}
	return "", fmt.Errorf("unknown view %q: %w", s, model.ErrNotValid)
}

// ServiceConfig is the configuration for the job list service.
type ServiceConfig struct {
	Source *jobsource.Source
	Logger log.Logger
	Now    func() time.Time
}

func (c *ServiceConfig) defaults() error {
	if c.Source == nil {
		return fmt.Errorf("job source is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.JobList"})

	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// Service lists the jobs of a worker.
type Service struct {
	source *jobsource.Source
	logger log.Logger
	now    func() time.Time
}

// NewService creates a new job list service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		source: cfg.Source,
		logger: cfg.Logger,
		now:    cfg.Now,
	}, nil
}

// Request represents the job list request parameters.
type Request struct {
	Session session.Session
	Query   string
	View    View
}

// Result is the listed jobs.
type Result struct {
	Jobs []model.Job
	// Cached is true when the jobs come from the offline snapshots.
	Cached bool
}

// Run lists the jobs assigned to the worker, newest first.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	jobs, cached, err := s.source.List(ctx, req.Session.WorkerID)
	if err != nil {
		return Result{}, err
	}

	jobs = filter.SearchJobs(jobs, req.Query)

	current, history := filter.PartitionJobs(jobs, filter.StartOfDay(s.now()))
	switch req.View {
	case ViewCurrent:
		jobs = current
	case ViewHistory:
		jobs = history
	}

	s.logger.Debugf("Listed %d jobs (view %s, cached %t)", len(jobs), req.View, cached)
	return Result{Jobs: jobs, Cached: cached}, nil
}
