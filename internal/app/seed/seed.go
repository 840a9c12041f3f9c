package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
)

// FixturesRepository loads fixtures.
type FixturesRepository interface {
	GetFixtures(ctx context.Context, path string) (model.Fixtures, error)
}

// ServiceConfig is the configuration for the seed service.
type ServiceConfig struct {
	Fixtures FixturesRepository
	Identity backend.Identity
	Workers  backend.WorkerRepository
	Jobs     backend.JobRepository
	Logger   log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Fixtures == nil {
		return fmt.Errorf("fixtures repository is required")
	}
	if c.Identity == nil {
		return fmt.Errorf("identity is required")
	}
	if c.Workers == nil {
		return fmt.Errorf("workers repository is required")
	}
	if c.Jobs == nil {
		return fmt.Errorf("jobs repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Seed"})
	return nil
}

// Service loads fixtures into the shared backend.
type Service struct {
	fixtures FixturesRepository
	identity backend.Identity
	workers  backend.WorkerRepository
	jobs     backend.JobRepository
	logger   log.Logger
}

// NewService creates a new seed service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		fixtures: cfg.Fixtures,
		identity: cfg.Identity,
		workers:  cfg.Workers,
		jobs:     cfg.Jobs,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the seed request parameters.
type Request struct {
	Path string
}

// Result counts the seeded resources.
type Result struct {
	Workers int
	Jobs    int
	// Skipped are the resources that already existed.
	Skipped int
}

// Run loads the fixtures file and creates its workers and jobs. Resources
// that already exist are skipped so seeding can be repeated.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	if req.Path == "" {
		return Result{}, fmt.Errorf("fixtures path is required: %w", model.ErrNotValid)
	}

	fx, err := s.fixtures.GetFixtures(ctx, req.Path)
	if err != nil {
		return Result{}, fmt.Errorf("could not load fixtures: %w", err)
	}

	var res Result
	for _, sw := range fx.Workers {
		logger := s.logger.WithValues(log.Kv{"worker-id": sw.Worker.ID})

		if sw.Password != "" {
			_, err := s.identity.Register(ctx, sw.Worker.UID, sw.Worker.Email, sw.Password)
			if err != nil && !errors.Is(err, model.ErrAlreadyExists) {
				return res, fmt.Errorf("could not register worker %s: %w", sw.Worker.ID, err)
			}
		}

		err := s.workers.CreateWorker(ctx, sw.Worker)
		switch {
		case errors.Is(err, model.ErrAlreadyExists):
			logger.Debugf("Worker already exists, skipping")
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("could not create worker %s: %w", sw.Worker.ID, err)
		default:
			res.Workers++
		}
	}

	for _, j := range fx.Jobs {
		err := s.jobs.CreateJob(ctx, j)
		switch {
		case errors.Is(err, model.ErrAlreadyExists):
			s.logger.WithValues(log.Kv{"job-id": j.ID}).Debugf("Job already exists, skipping")
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("could not create job %s: %w", j.ID, err)
		default:
			res.Jobs++
		}
	}

	s.logger.Infof("Seeded %d workers and %d jobs", res.Workers, res.Jobs)
	return res, nil
}
