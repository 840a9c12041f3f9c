// Package sync replays the offline action queue on the backend.
package sync

import (
	"context"
	"fmt"

	"github.com/slok/fieldwork/internal/connectivity"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/offline"
)

// Queue is the offline queue the service drains.
type Queue interface {
	Pending(ctx context.Context) ([]model.OfflineAction, error)
	Drain(ctx context.Context, r offline.Replayer) (offline.DrainResult, error)
	Discard(ctx context.Context, id string) error
}

// Notifier reports connectivity transitions.
type Notifier interface {
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// ServiceConfig is the configuration for the sync service.
type ServiceConfig struct {
	Queue        Queue
	Replayer     offline.Replayer
	Connectivity connectivity.Checker
	Logger       log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Queue == nil {
		return fmt.Errorf("queue is required")
	}
	if c.Replayer == nil {
		return fmt.Errorf("replayer is required")
	}
	if c.Connectivity == nil {
		c.Connectivity = connectivity.Static(true)
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Sync"})
	return nil
}

// Service drains the offline queue.
type Service struct {
	queue        Queue
	replayer     offline.Replayer
	connectivity connectivity.Checker
	logger       log.Logger
}

// NewService creates a new sync service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		queue:        cfg.Queue,
		replayer:     cfg.Replayer,
		connectivity: cfg.Connectivity,
		logger:       cfg.Logger,
	}, nil
}

// Request represents the sync request parameters.
type Request struct {
	// DryRun only lists the pending actions.
	DryRun bool
	// Discard are the IDs of the actions removed from the queue before draining.
	Discard []string
}

// Result is the outcome of a sync.
type Result struct {
	Online    bool
	Replayed  int
	Discarded int
	// Pending are the actions left in the queue.
	Pending []model.OfflineAction
}

// Run drains the queue when the backend is reachable. A failed replay is
// returned along with the actions still pending.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	res := Result{Online: s.connectivity.Check(ctx)}

	if !req.DryRun {
		for _, id := range req.Discard {
			if err := s.queue.Discard(ctx, id); err != nil {
				return res, err
			}
			res.Discarded++
		}
	}

	var drainErr error
	if res.Online && !req.DryRun {
		dr, err := s.queue.Drain(ctx, s.replayer)
		res.Replayed = dr.Replayed
		drainErr = err
	}

	pending, err := s.queue.Pending(ctx)
	if err != nil {
		return res, err
	}
	res.Pending = pending

	if drainErr != nil {
		return res, fmt.Errorf("could not sync offline actions: %w", drainErr)
	}

	return res, nil
}

// Watch drains the queue on every offline to online transition until the
// context is cancelled. Drain failures are logged and retried on the next
// transition.
func (s *Service) Watch(ctx context.Context, n Notifier) error {
	wake := make(chan struct{}, 1)
	unsubscribe := n.Subscribe(func(online bool) {
		if !online {
			return
		}
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-wake:
		}

		res, err := s.Run(ctx, Request{})
		if err != nil {
			s.logger.Errorf("Offline queue sync failed: %s", err)
			continue
		}
		if res.Replayed > 0 {
			s.logger.Infof("%d offline actions synced", res.Replayed)
		}
	}
}
