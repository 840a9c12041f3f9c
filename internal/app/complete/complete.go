package complete

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/fieldwork/internal/jobops"
	"github.com/slok/fieldwork/internal/jobsource"
	"github.com/slok/fieldwork/internal/lifecycle"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/offline"
	"github.com/slok/fieldwork/internal/session"
)

// ServiceConfig is the configuration for the job complete service.
type ServiceConfig struct {
	Source   *jobsource.Source
	Operator *jobops.Operator
	Tracker  *lifecycle.Tracker
	Logger   log.Logger
	Now      func() time.Time
}

func (c *ServiceConfig) defaults() error {
	if c.Source == nil {
		return fmt.Errorf("job source is required")
	}
	if c.Operator == nil {
		return fmt.Errorf("job operator is required")
	}
	if c.Tracker == nil {
		return fmt.Errorf("stage tracker is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Complete"})

	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// Service completes jobs.
type Service struct {
	source   *jobsource.Source
	operator *jobops.Operator
	tracker  *lifecycle.Tracker
	logger   log.Logger
	now      func() time.Time
}

// NewService creates a new job complete service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		source:   cfg.Source,
		operator: cfg.Operator,
		tracker:  cfg.Tracker,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}, nil
}

// Request represents the job complete request parameters.
type Request struct {
	Session session.Session
	JobID   string
}

// Result is the completed job.
type Result struct {
	Job      model.Job
	Progress model.StageProgress
	Queued   bool
}

// Run completes the job for the worker. The service section has to be done
// and, online, both signatures of the worker must exist. Offline the
// signatures are verified when the queued completion is replayed.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	workerID := req.Session.WorkerID
	now := s.now()

	read, err := s.source.Get(ctx, req.JobID)
	if err != nil {
		return Result{}, err
	}

	d, _, err := s.tracker.Request(ctx, req.JobID, &read.Job, workerID, model.StageComplete)
	if err != nil {
		return Result{}, err
	}
	if err := d.Err(); err != nil {
		return Result{}, err
	}

	wr, err := s.source.Write(ctx, read, jobsource.Write{
		Action:  model.ActionCompleteJob,
		Payload: offline.CompleteJobPayload{JobID: req.JobID, WorkerID: workerID, At: now},
		Online: func(ctx context.Context) (model.Job, error) {
			return s.operator.CompleteJob(ctx, req.JobID, workerID, now)
		},
		Local: func(j *model.Job) error {
			return jobops.ApplyComplete(j, workerID, now)
		},
	})
	if err != nil {
		return Result{}, err
	}

	p, err := s.tracker.MarkDone(ctx, req.JobID, workerID, model.StageComplete)
	if err != nil {
		return Result{}, err
	}

	s.logger.WithValues(log.Kv{"worker-id": workerID, "job": wr.Job.JobNo}).Infof("Job completed (queued: %t)", wr.Queued)
	return Result{Job: wr.Job, Progress: p, Queued: wr.Queued}, nil
}
