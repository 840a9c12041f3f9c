package jobstart

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/fieldwork/internal/app/attendance"
	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/jobops"
	"github.com/slok/fieldwork/internal/jobsource"
	"github.com/slok/fieldwork/internal/lifecycle"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/offline"
	"github.com/slok/fieldwork/internal/session"
)

// ServiceConfig is the configuration for the job start service.
type ServiceConfig struct {
	Source     *jobsource.Source
	Operator   *jobops.Operator
	Tracker    *lifecycle.Tracker
	Attendance backend.AttendanceRepository
	Logger     log.Logger
	Now        func() time.Time
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
	if c.Attendance == nil {
		return fmt.Errorf("attendance repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.JobStart"})

	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// Service starts jobs.
type Service struct {
	source     *jobsource.Source
	operator   *jobops.Operator
	tracker    *lifecycle.Tracker
	attendance backend.AttendanceRepository
	logger     log.Logger
	now        func() time.Time
}

// NewService creates a new job start service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		source:     cfg.Source,
		operator:   cfg.Operator,
		tracker:    cfg.Tracker,
		attendance: cfg.Attendance,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}, nil
}

// Request represents the job start request parameters.
type Request struct {
	Session session.Session
	JobID   string
}

// Result is the started job.
type Result struct {
	Job      model.Job
	Progress model.StageProgress
	// Queued is true when the start was deferred until connectivity is back.
	Queued bool
}

// Run starts the job for the worker. The worker needs to be clocked in, this
// is only verified while the backend is reachable.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	workerID := req.Session.WorkerID
	now := s.now()

	read, err := s.source.Get(ctx, req.JobID)
	if err != nil {
		return Result{}, err
	}

	// Fail fast before checking the attendance.
	check := read.Job.Copy()
	if err := jobops.ApplyStart(&check, workerID, now); err != nil {
		return Result{}, err
	}

	if s.source.Online(ctx) {
		clockedIn, err := attendance.ClockedIn(ctx, s.attendance, workerID, now)
		if err != nil {
			return Result{}, err
		}
		if !clockedIn {
			return Result{}, fmt.Errorf("you need to clock in before starting any job: %w", model.ErrNotAllowed)
		}
	} else {
		s.logger.Warningf("Starting job %s offline without verifying the clock in", read.Job.JobNo)
	}

	wr, err := s.source.Write(ctx, read, jobsource.Write{
		Action:  model.ActionStartJob,
		Payload: offline.StartJobPayload{JobID: req.JobID, WorkerID: workerID, At: now},
		Online: func(ctx context.Context) (model.Job, error) {
			return s.operator.StartJob(ctx, req.JobID, workerID, now)
		},
		Local: func(j *model.Job) error {
			return jobops.ApplyStart(j, workerID, now)
		},
	})
	if err != nil {
		return Result{}, err
	}

	// A started job has its details reviewed and the worker on the way.
	for _, st := range []model.Stage{model.StageDetails, model.StageNavigate} {
		if _, err := s.tracker.MarkDone(ctx, req.JobID, workerID, st); err != nil {
			return Result{}, err
		}
	}
	_, p, err := s.tracker.Request(ctx, req.JobID, &wr.Job, workerID, model.StageNavigate)
	if err != nil {
		return Result{}, err
	}

	s.logger.WithValues(log.Kv{"worker-id": workerID, "job": wr.Job.JobNo}).Infof("Job started (queued: %t)", wr.Queued)
	return Result{Job: wr.Job, Progress: p, Queued: wr.Queued}, nil
}
