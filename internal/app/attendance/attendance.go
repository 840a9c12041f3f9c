// Package attendance clocks workers in and out of their shifts.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/connectivity"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/session"
)

// Action is an attendance action.
type Action string

const (
	ActionStatus     Action = "status"
	ActionClockIn    Action = "clock-in"
	ActionClockOut   Action = "clock-out"
	ActionBreakStart Action = "break-start"
	ActionBreakEnd   Action = "break-end"
)

// Actions returns the valid attendance actions.
func Actions() []Action {
	return []Action{ActionStatus, ActionClockIn, ActionClockOut, ActionBreakStart, ActionBreakEnd}
}

// ServiceConfig is the configuration for the attendance service.
type ServiceConfig struct {
	Repository   backend.AttendanceRepository
	Connectivity connectivity.Checker
	Logger       log.Logger
	Now          func() time.Time
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("attendance repository is required")
	}
	if c.Connectivity == nil {
		c.Connectivity = connectivity.Static(true)
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Attendance"})

	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// Service manages the daily attendance of workers.
type Service struct {
	repo         backend.AttendanceRepository
	connectivity connectivity.Checker
	logger       log.Logger
	now          func() time.Time
}

// NewService creates a new attendance service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:         cfg.Repository,
		connectivity: cfg.Connectivity,
		logger:       cfg.Logger,
		now:          cfg.Now,
	}, nil
}

// Request represents the attendance request parameters.
type Request struct {
	Session session.Session
	Action  Action
}

// Result is the attendance of the worker after the action.
type Result struct {
	Attendance model.Attendance
	// Working is the working time of the ongoing shift.
	Working time.Duration
}

// Run applies an attendance action on today's record of the worker.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	if !s.connectivity.Check(ctx) {
		return Result{}, fmt.Errorf("attendance requires connectivity: %w", model.ErrOffline)
	}

	now := s.now()
	a, err := Today(ctx, s.repo, req.Session.WorkerID, now)
	if err != nil {
		return Result{}, err
	}

	var apply func(time.Time) error
	switch req.Action {
	case ActionStatus:
		return Result{Attendance: a, Working: a.Working(now)}, nil
	case ActionClockIn:
		apply = a.ClockInAt
	case ActionClockOut:
		apply = a.ClockOutAt
	case ActionBreakStart:
		apply = a.StartBreakAt
	case ActionBreakEnd:
		apply = a.EndBreakAt
	default:
		return Result{}, fmt.Errorf("unknown attendance action %q: %w", req.Action, model.ErrNotValid)
	}

	if err := apply(now); err != nil {
		return Result{}, err
	}
	if err := s.repo.SaveAttendance(ctx, a); err != nil {
		return Result{}, fmt.Errorf("could not save attendance: %w", err)
	}
	s.logger.WithValues(log.Kv{"worker-id": a.WorkerID}).Infof("Attendance %s at %s", req.Action, now.Format(time.Kitchen))

	return Result{Attendance: a, Working: a.Working(now)}, nil
}

// Today returns the attendance record of the worker for the day of now, an
// empty one if there is none yet.
func Today(ctx context.Context, repo backend.AttendanceRepository, workerID string, now time.Time) (model.Attendance, error) {
	day := model.Day(now)
	a, err := repo.GetAttendance(ctx, workerID, day)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Attendance{WorkerID: workerID, Day: day}, nil
		}
		return model.Attendance{}, fmt.Errorf("could not get attendance: %w", err)
	}
	return *a, nil
}

// ClockedIn returns true if the worker is on shift today.
func ClockedIn(ctx context.Context, repo backend.AttendanceRepository, workerID string, now time.Time) (bool, error) {
	a, err := Today(ctx, repo, workerID, now)
	if err != nil {
		return false, err
	}
	return a.ClockedIn(), nil
}
