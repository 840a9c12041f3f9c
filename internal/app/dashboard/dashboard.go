package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/slok/fieldwork/internal/app/attendance"
	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/filter"
	"github.com/slok/fieldwork/internal/jobsource"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/session"
)

// ServiceConfig is the configuration for the dashboard service.
type ServiceConfig struct {
	Source     *jobsource.Source
	Workers    backend.WorkerRepository
	Attendance backend.AttendanceRepository
	Logger     log.Logger
	Now        func() time.Time
}

func (c *ServiceConfig) defaults() error {
	if c.Source == nil {
		return fmt.Errorf("job source is required")
	}
	if c.Workers == nil {
		return fmt.Errorf("workers repository is required")
	}
	if c.Attendance == nil {
		return fmt.Errorf("attendance repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Dashboard"})

	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// Service builds the worker home dashboard.
type Service struct {
	source     *jobsource.Source
	workers    backend.WorkerRepository
	attendance backend.AttendanceRepository
	logger     log.Logger
	now        func() time.Time
}

// NewService creates a new dashboard service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		source:     cfg.Source,
		workers:    cfg.Workers,
		attendance: cfg.Attendance,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}, nil
}

// Request represents the dashboard request parameters.
type Request struct {
	Session session.Session
}

// Result is the dashboard of the worker. The profile and the attendance are
// only loaded while online.
type Result struct {
	Dashboard  model.Dashboard
	Worker     *model.Worker
	Attendance *model.Attendance
	Cached     bool
}

// Run loads the worker profile, the jobs and today's attendance concurrently
// and summarizes them.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	now := s.now()
	workerID := req.Session.WorkerID
	online := s.source.Online(ctx)

	var (
		res  Result
		jobs []model.Job
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		jobs, res.Cached, err = s.source.List(gctx, workerID)
		return err
	})

	if online {
		g.Go(func() error {
			w, err := s.workers.GetWorker(gctx, workerID)
			if err != nil {
				return fmt.Errorf("could not get worker: %w", err)
			}
			res.Worker = w
			return nil
		})

		g.Go(func() error {
			a, err := attendance.Today(gctx, s.attendance, workerID, now)
			if err != nil {
				return err
			}
			res.Attendance = &a
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res.Dashboard = Summarize(jobs, workerID, now)
	return res, nil
}

// Summarize counts the jobs of a worker relative to now.
func Summarize(jobs []model.Job, workerID string, now time.Time) model.Dashboard {
	today := filter.StartOfDay(now)
	weekStart := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
	weekEnd := weekStart.AddDate(0, 0, 7)

	d := model.Dashboard{WeekStart: weekStart}
	for _, j := range filter.AssignedTo(jobs, workerID) {
		d.TotalAssigned++

		switch {
		case j.Status == model.JobStatusRescheduled:
			d.Rescheduled++
		case j.Status == model.JobStatusInProgress:
			d.InProgress++
		case j.Status == model.JobStatusCompleted || j.Status == model.JobStatusCancelled:
		case filter.StartOfDay(j.StartDate).Before(today):
			d.Overdue++
		default:
			d.Upcoming++
		}

		start := j.StartDate.In(now.Location())
		if !start.Before(weekStart) && start.Before(weekEnd) {
			d.Weekly[(int(start.Weekday())+6)%7]++
		}
	}

	return d
}
