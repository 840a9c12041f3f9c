// Package jobsource reads jobs from the backend while online, keeping the
// local snapshot cache fresh, and from the cache while offline.
package jobsource

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/connectivity"
	"github.com/slok/fieldwork/internal/filter"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/storage"
)

// SourceConfig is the configuration for the job source.
type SourceConfig struct {
	Jobs         backend.JobRepository
	Cache        storage.JobCache
	Connectivity connectivity.Checker
	// Queue receives the writes made while offline. Without it offline writes fail.
	Queue Queue
	// Drain replays the queued writes. When set, pending writes are drained
	// before an online write, otherwise the online write is queued behind them.
	Drain  func(ctx context.Context) error
	Logger log.Logger
}

// Queue defers writes until connectivity is back.
type Queue interface {
	Enqueue(ctx context.Context, t model.ActionType, payload any) error
	Pending(ctx context.Context) ([]model.OfflineAction, error)
}

func (c *SourceConfig) defaults() error {
	if c.Jobs == nil {
		return fmt.Errorf("jobs repository is required")
	}
	if c.Cache == nil {
		return fmt.Errorf("job cache is required")
	}
	if c.Connectivity == nil {
		c.Connectivity = connectivity.Static(true)
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "jobsource.Source"})
	return nil
}

// Source reads jobs.
type Source struct {
	jobs         backend.JobRepository
	cache        storage.JobCache
	connectivity connectivity.Checker
	queue        Queue
	drain        func(ctx context.Context) error
	logger       log.Logger
}

// NewSource returns a new job source.
func NewSource(cfg SourceConfig) (*Source, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Source{
		jobs:         cfg.Jobs,
		cache:        cfg.Cache,
		connectivity: cfg.Connectivity,
		queue:        cfg.Queue,
		drain:        cfg.Drain,
		logger:       cfg.Logger,
	}, nil
}

// Online returns true if the backend is reachable.
func (s *Source) Online(ctx context.Context) bool {
	return s.connectivity.Check(ctx)
}

// Result is a read job.
type Result struct {
	Job model.Job
	// Cached is true when the job comes from the local snapshot cache.
	Cached bool
}

// Get returns a job. While online the job is refreshed from the backend and
// re-cached, if the backend fails a cached snapshot is used when present.
// A snapshot with queued writes is kept until they are replayed.
func (s *Source) Get(ctx context.Context, id string) (Result, error) {
	cached, err := s.cache.GetJob(ctx, id)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		s.logger.Warningf("could not read cached job %s: %s", id, err)
	}

	if !s.Online(ctx) {
		if cached == nil {
			return Result{}, fmt.Errorf("job %s is not available offline: %w", id, model.ErrOffline)
		}
		return Result{Job: *cached, Cached: true}, nil
	}

	if cached != nil {
		if _, ok := s.pendingJobs(ctx)[id]; ok {
			s.logger.Debugf("job %s has queued writes, using cached snapshot", id)
			return Result{Job: *cached, Cached: true}, nil
		}
	}

	j, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		if cached != nil && !errors.Is(err, model.ErrNotFound) {
			s.logger.Warningf("could not refresh job %s, using cached snapshot: %s", id, err)
			return Result{Job: *cached, Cached: true}, nil
		}
		return Result{}, fmt.Errorf("could not get job: %w", err)
	}

	s.Cache(ctx, *j)
	return Result{Job: *j}, nil
}

// List returns the jobs assigned to a worker, newest first.
func (s *Source) List(ctx context.Context, workerID string) ([]model.Job, bool, error) {
	return s.Query(ctx, backend.JobQuery{WorkerID: workerID})
}

// Query returns the jobs matching the query, newest first. The returned bool
// is true when the jobs come from the cached snapshots.
func (s *Source) Query(ctx context.Context, q backend.JobQuery) ([]model.Job, bool, error) {
	if !s.Online(ctx) {
		jobs, err := s.cached(ctx, q)
		if err != nil {
			return nil, false, err
		}
		return jobs, true, nil
	}

	jobs, err := s.jobs.ListJobs(ctx, q)
	if err != nil {
		cached, cerr := s.cached(ctx, q)
		if cerr == nil && len(cached) > 0 {
			s.logger.Warningf("could not refresh jobs, using cached snapshots: %s", err)
			return cached, true, nil
		}
		return nil, false, fmt.Errorf("could not list jobs: %w", err)
	}

	pending := s.pendingJobs(ctx)
	for i, j := range jobs {
		if _, ok := pending[j.ID]; ok {
			if c, err := s.cache.GetJob(ctx, j.ID); err == nil && c != nil {
				jobs[i] = *c
				continue
			}
		}
		s.Cache(ctx, j)
	}

	return jobs, false, nil
}

func (s *Source) cached(ctx context.Context, q backend.JobQuery) ([]model.Job, error) {
	jobs, err := s.cache.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list cached jobs: %w", err)
	}

	if q.WorkerID != "" {
		jobs = filter.AssignedTo(jobs, q.WorkerID)
	}
	if q.CustomerID != "" {
		res := make([]model.Job, 0, len(jobs))
		for _, j := range jobs {
			if j.CustomerID == q.CustomerID {
				res = append(res, j)
			}
		}
		jobs = res
	}

	return jobs, nil
}

// Cache stores a job snapshot. Failures are logged, the cache is best effort.
func (s *Source) Cache(ctx context.Context, j model.Job) {
	if err := s.cache.PutJob(ctx, j); err != nil {
		s.logger.Warningf("could not cache job %s: %s", j.ID, err)
	}
}
