package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/slok/fieldwork/internal/app/attendance"
	"github.com/slok/fieldwork/internal/app/login"
	"github.com/slok/fieldwork/internal/app/logout"
	"github.com/slok/fieldwork/internal/app/seed"
	storageio "github.com/slok/fieldwork/internal/storage/io"
)

// SignIn signs a worker in on the device. Online, the assigned jobs are cached
// so they can be worked on offline.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	svc, err := login.NewService(login.ServiceConfig{
		Sessions: c.dev.Sessions,
		Jobs:     c.dev.Source,
		Logger:   c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	s, err := svc.Run(ctx, login.Request{Email: email, Password: password})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalSession(s)
	return &result, nil
}

// CurrentSession returns the signed in worker, or [ErrNoSession].
func (c *Client) CurrentSession(ctx context.Context) (*Session, error) {
	s, err := c.dev.Session(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalSession(s)
	return &result, nil
}

// SignOut signs the worker out, clocking out first if still on shift.
func (c *Client) SignOut(ctx context.Context) error {
	s, err := c.dev.Session(ctx)
	if err != nil {
		return mapError(err)
	}

	svc, err := logout.NewService(logout.ServiceConfig{
		Sessions:     c.dev.Sessions,
		Attendance:   c.dev.Backend,
		Connectivity: c.dev.Connectivity,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	_, err = svc.Run(ctx, logout.Request{Session: s})
	return mapError(err)
}

// ClockIn starts the shift of the signed in worker. It needs the backend.
func (c *Client) ClockIn(ctx context.Context) error {
	return c.attendance(ctx, attendance.ActionClockIn)
}

// ClockOut ends the shift of the signed in worker. It needs the backend.
func (c *Client) ClockOut(ctx context.Context) error {
	return c.attendance(ctx, attendance.ActionClockOut)
}

func (c *Client) attendance(ctx context.Context, action attendance.Action) error {
	s, err := c.dev.Session(ctx)
	if err != nil {
		return mapError(err)
	}

	svc, err := attendance.NewService(attendance.ServiceConfig{
		Repository:   c.dev.Backend,
		Connectivity: c.dev.Connectivity,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	_, err = svc.Run(ctx, attendance.Request{Session: s, Action: action})
	return mapError(err)
}

// LoadFixtures creates the workers and jobs of a YAML fixtures file on the
// backend. Existing resources are skipped.
func (c *Client) LoadFixtures(ctx context.Context, path string) (*SeedResult, error) {
	svc, err := seed.NewService(seed.ServiceConfig{
		Fixtures: storageio.NewFixturesYAMLRepository(os.DirFS(filepath.Dir(path))),
		Identity: c.dev.Backend,
		Workers:  c.dev.Backend,
		Jobs:     c.dev.Jobs,
		Logger:   c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, seed.Request{Path: filepath.Base(path)})
	if err != nil {
		return nil, mapError(err)
	}

	return &SeedResult{Workers: res.Workers, Jobs: res.Jobs, Skipped: res.Skipped}, nil
}
