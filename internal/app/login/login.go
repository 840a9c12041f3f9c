package login

import (
	"context"
	"fmt"

	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/session"
)

// SessionOpener opens worker sessions.
type SessionOpener interface {
	SignIn(ctx context.Context, email, password string) (session.Session, error)
}

// JobPreloader loads the jobs of a worker into the local cache.
type JobPreloader interface {
	List(ctx context.Context, workerID string) ([]model.Job, bool, error)
}

// ServiceConfig is the configuration for the login service.
type ServiceConfig struct {
	Sessions SessionOpener
	// Jobs is optional, when set the assigned jobs are cached after signing in.
	Jobs   JobPreloader
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Sessions == nil {
		return fmt.Errorf("session opener is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Login"})
	return nil
}

// Service signs workers in.
type Service struct {
	sessions SessionOpener
	jobs     JobPreloader
	logger   log.Logger
}

// NewService creates a new login service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		sessions: cfg.Sessions,
		jobs:     cfg.Jobs,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the login request parameters.
type Request struct {
	Email    string
	Password string
}

// Run signs the worker in and returns the new session.
func (s *Service) Run(ctx context.Context, req Request) (session.Session, error) {
	sess, err := s.sessions.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return session.Session{}, err
	}

	if s.jobs != nil && !sess.Offline {
		jobs, _, err := s.jobs.List(ctx, sess.WorkerID)
		if err != nil {
			s.logger.Warningf("Could not preload jobs of worker %s: %s", sess.WorkerID, err)
		} else {
			s.logger.Debugf("Preloaded %d jobs for offline use", len(jobs))
		}
	}

	return sess, nil
}
