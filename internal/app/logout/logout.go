package logout

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/fieldwork/internal/app/attendance"
	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/connectivity"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/session"
)

// SessionCloser closes worker sessions.
type SessionCloser interface {
	SignOut(ctx context.Context, s session.Session) error
}

// ServiceConfig is the configuration for the logout service.
type ServiceConfig struct {
	Sessions     SessionCloser
	Attendance   backend.AttendanceRepository
	Connectivity connectivity.Checker
	Logger       log.Logger
	Now          func() time.Time
}

func (c *ServiceConfig) defaults() error {
	if c.Sessions == nil {
		return fmt.Errorf("session closer is required")
	}
	if c.Attendance == nil {
		return fmt.Errorf("attendance repository is required")
	}
	if c.Connectivity == nil {
		c.Connectivity = connectivity.Static(true)
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Logout"})

	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// Service signs workers out.
type Service struct {
	sessions     SessionCloser
	attendance   backend.AttendanceRepository
	connectivity connectivity.Checker
	logger       log.Logger
	now          func() time.Time
}

// NewService creates a new logout service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		sessions:     cfg.Sessions,
		attendance:   cfg.Attendance,
		connectivity: cfg.Connectivity,
		logger:       cfg.Logger,
		now:          cfg.Now,
	}, nil
}

// Request represents the logout request parameters.
type Request struct {
	Session session.Session
}

// Result is the logout outcome.
type Result struct {
	// AutoClockedOut is true when the worker was still on shift and got clocked out.
	AutoClockedOut bool
}

// Run clocks the worker out if still on shift and closes the session.
// Clock out failures are logged, they never block the sign out.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	logger := s.logger.WithCtxValues(ctx).WithValues(log.Kv{"worker-id": req.Session.WorkerID})

	res := Result{}
	if s.connectivity.Check(ctx) {
		clockedOut, err := s.autoClockOut(ctx, req.Session.WorkerID)
		if err != nil {
			logger.Warningf("Could not clock out worker: %s", err)
		}
		res.AutoClockedOut = clockedOut
	}

	if err := s.sessions.SignOut(ctx, req.Session); err != nil {
		return Result{}, fmt.Errorf("could not sign out: %w", err)
	}

	return res, nil
}

func (s *Service) autoClockOut(ctx context.Context, workerID string) (bool, error) {
	now := s.now()
	a, err := attendance.Today(ctx, s.attendance, workerID, now)
	if err != nil {
		return false, err
	}
	if !a.ClockedIn() {
		return false, nil
	}

	if err := a.ClockOutAt(now); err != nil {
		return false, err
	}
	if err := s.attendance.SaveAttendance(ctx, a); err != nil {
		return false, fmt.Errorf("could not save attendance: %w", err)
	}

	return true, nil
}
