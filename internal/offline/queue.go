// Package offline has the queue of writes deferred while the device has no
// connectivity, and their replay once it's back.
package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/metrics"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/storage"
)

// Replayer knows how to apply a queued action on the backend.
type Replayer interface {
	Replay(ctx context.Context, a model.OfflineAction) error
}

// ReplayerFunc is a helper to use funcs as replayers.
type ReplayerFunc func(ctx context.Context, a model.OfflineAction) error

func (f ReplayerFunc) Replay(ctx context.Context, a model.OfflineAction) error { return f(ctx, a) }

// QueueConfig is the configuration for the offline queue.
type QueueConfig struct {
	Repository storage.ActionRepository
	Metrics    metrics.Recorder
	Logger     log.Logger
	Now        func() time.Time
}

func (c *QueueConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Noop
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "offline.Queue"})

	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// Queue is the persisted FIFO queue of offline actions.
type Queue struct {
	repo    storage.ActionRepository
	metrics metrics.Recorder
	logger  log.Logger
	now     func() time.Time
	// drainMu serializes drains so an action is never replayed twice.
	drainMu sync.Mutex
}

// NewQueue returns a new offline queue.
func NewQueue(cfg QueueConfig) (*Queue, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Queue{
		repo:    cfg.Repository,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		now:     cfg.Now,
	}, nil
}

// Enqueue appends an action at the tail of the queue. Only invalid actions
// return an error, persistence failures are logged.
func (q *Queue) Enqueue(ctx context.Context, t model.ActionType, payload any) error {
	if _, err := model.ParseActionType(string(t)); err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("could not encode %s payload: %s: %w", t, err, model.ErrNotValid)
	}

	a := model.OfflineAction{
		ID:        ulid.Make().String(),
		Type:      t,
		Payload:   data,
		Timestamp: q.now().UTC(),
	}

	logger := q.logger.WithCtxValues(ctx).WithValues(log.Kv{"action-id": a.ID, "action-type": a.Type})
	stored, err := q.repo.AppendAction(ctx, a)
	if err != nil {
		q.metrics.ActionEnqueued(ctx, t, false)
		logger.Errorf("Could not persist offline action: %s", err)
		return nil
	}
	q.metrics.ActionEnqueued(ctx, t, true)
	logger.WithValues(log.Kv{"seq": stored.Seq}).Debugf("Offline action queued")

	return nil
}

// Pending returns the queued actions in insertion order.
func (q *Queue) Pending(ctx context.Context) ([]model.OfflineAction, error) {
	as, err := q.repo.ListActions(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list offline actions: %w", err)
	}
	return as, nil
}

// Discard removes a queued action without replaying it. It waits for a
// running drain to finish.
func (q *Queue) Discard(ctx context.Context, id string) error {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	if err := q.repo.DeleteAction(ctx, id); err != nil {
		return fmt.Errorf("could not discard action %s: %w", id, err)
	}
	q.logger.WithCtxValues(ctx).WithValues(log.Kv{"action-id": id}).Warningf("Offline action discarded")

	return nil
}

// DrainResult is the outcome of a queue drain.
type DrainResult struct {
	Replayed  int
	Remaining int
}

// Drain replays the queued actions in insertion order, removing each one after
// it has been applied. The first failure stops the drain, leaving the failed
// action and the ones after it in the queue.
func (q *Queue) Drain(ctx context.Context, r Replayer) (res DrainResult, err error) {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	start := q.now()
	defer func() {
		q.metrics.QueueDrained(ctx, res.Replayed, res.Remaining, q.now().Sub(start), err == nil)
	}()

	actions, err := q.Pending(ctx)
	if err != nil {
		return DrainResult{}, err
	}
	if len(actions) == 0 {
		return DrainResult{}, nil
	}

	logger := q.logger.WithCtxValues(ctx)
	logger.Infof("Draining %d offline actions", len(actions))

	for i, a := range actions {
		res.Remaining = len(actions) - i
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if err := r.Replay(ctx, a); err != nil {
			logger.WithValues(log.Kv{"action-id": a.ID, "action-type": a.Type}).Warningf("Offline action replay failed, stopping drain: %s", err)
			return res, fmt.Errorf("could not replay %s action %s: %w", a.Type, a.ID, err)
		}

		if err := q.repo.DeleteAction(ctx, a.ID); err != nil {
			return res, fmt.Errorf("could not remove replayed action %s: %w", a.ID, err)
		}
		res.Replayed++
	}
	res.Remaining = 0

	logger.Infof("Offline queue drained")
	return res, nil
}
