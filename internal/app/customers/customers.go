package customers

import (
	"context"
	"fmt"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/filter"
	"github.com/slok/fieldwork/internal/jobsource"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
)

// ServiceConfig is the configuration for the customers service.
type ServiceConfig struct {
	Source *jobsource.Source
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Source == nil {
		return fmt.Errorf("job source is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Customers"})
	return nil
}

// Service lists the customers derived from the jobs.
type Service struct {
	source *jobsource.Source
	logger log.Logger
}

// NewService creates a new customers service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		source: cfg.Source,
		logger: cfg.Logger,
	}, nil
}

// Request represents the customers request parameters.
type Request struct {
	Query string
	// CustomerID selects a single customer with its jobs.
	CustomerID string
}

// Result is the listed customers. Jobs is only set for a single customer.
type Result struct {
	Customers []model.Customer
	Jobs      []model.Job
	Cached    bool
}

// Run lists the customers, or a single one with its jobs.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	jobs, cached, err := s.source.Query(ctx, backend.JobQuery{CustomerID: req.CustomerID})
	if err != nil {
		return Result{}, err
	}

	customers := filter.SearchCustomers(filter.Customers(jobs), req.Query)
	if req.CustomerID == "" {
		return Result{Customers: customers, Cached: cached}, nil
	}

	if len(customers) == 0 {
		return Result{}, fmt.Errorf("customer %s: %w", req.CustomerID, model.ErrNotFound)
	}

	return Result{Customers: customers, Jobs: jobs, Cached: cached}, nil
}
