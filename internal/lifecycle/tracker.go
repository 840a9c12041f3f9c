package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/metrics"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/storage"
)

// TrackerConfig is the configuration for the stage tracker.
type TrackerConfig struct {
	Repository storage.ProgressRepository
	Metrics    metrics.Recorder
	Logger     log.Logger
}

func (c *TrackerConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Noop
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "lifecycle.Tracker"})
	return nil
}

// Tracker keeps the persisted workflow state of a worker on a job and moves it
// through the stage gate.
type Tracker struct {
	repo    storage.ProgressRepository
	metrics metrics.Recorder
	logger  log.Logger
}

// NewTracker creates a new stage tracker.
func NewTracker(cfg TrackerConfig) (*Tracker, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Tracker{
		repo:    cfg.Repository,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}, nil
}

// Progress returns the workflow state of a worker on a job. A job never seen
// before starts on the details stage.
func (t *Tracker) Progress(ctx context.Context, jobID, workerID string) (model.StageProgress, error) {
	p, err := t.repo.GetProgress(ctx, jobID, workerID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.StageProgress{JobID: jobID, WorkerID: workerID, Active: model.StageDetails}, nil
		}
		return model.StageProgress{}, fmt.Errorf("could not get progress: %w", err)
	}

	return *p, nil
}

// Request asks the gate to move the worker to the target stage. When allowed
// the new active stage is persisted, leaving the navigate stage discards the
// stored route.
func (t *Tracker) Request(ctx context.Context, jobID string, job *model.Job, workerID string, target model.Stage) (Decision, model.StageProgress, error) {
	p, err := t.Progress(ctx, jobID, workerID)
	if err != nil {
		return Decision{}, model.StageProgress{}, err
	}

	d := Decide(Request{
		Target:   target,
		Job:      job,
		WorkerID: workerID,
		Flags:    p.Flags,
	})

	reason := ""
	if d.Rejection != nil {
		reason = string(d.Rejection.Reason)
	}
	t.metrics.StageDecision(ctx, target, d.Allowed, reason)

	if !d.Allowed {
		t.logger.Debugf("stage %s rejected for worker %s on job %s: %s", target, workerID, jobID, reason)
		return d, p, nil
	}

	if p.Active == model.StageNavigate && target != model.StageNavigate {
		p.Route = nil
	}
	p.Active = target

	if err := t.repo.SaveProgress(ctx, p); err != nil {
		return Decision{}, model.StageProgress{}, fmt.Errorf("could not save progress: %w", err)
	}

	return d, p, nil
}

// MarkDone marks a stage of the job as completed by the worker.
func (t *Tracker) MarkDone(ctx context.Context, jobID, workerID string, stage model.Stage) (model.StageProgress, error) {
	p, err := t.Progress(ctx, jobID, workerID)
	if err != nil {
		return model.StageProgress{}, err
	}

	p.Flags = p.Flags.Set(stage)
	if err := t.repo.SaveProgress(ctx, p); err != nil {
		return model.StageProgress{}, fmt.Errorf("could not save progress: %w", err)
	}

	return p, nil
}

// SetRoute stores the route of the navigate stage, only while it is active.
func (t *Tracker) SetRoute(ctx context.Context, jobID, workerID string, route model.Route) (model.StageProgress, error) {
	p, err := t.Progress(ctx, jobID, workerID)
	if err != nil {
		return model.StageProgress{}, err
	}

	if p.Active != model.StageNavigate {
		return model.StageProgress{}, fmt.Errorf("route requires the navigate stage to be active, current is %s: %w", p.Active, model.ErrNotAllowed)
	}

	p.Route = &route
	if err := t.repo.SaveProgress(ctx, p); err != nil {
		return model.StageProgress{}, fmt.Errorf("could not save progress: %w", err)
	}

	return p, nil
}

// Forget removes the workflow state of a worker on a job.
func (t *Tracker) Forget(ctx context.Context, jobID, workerID string) error {
	err := t.repo.DeleteProgress(ctx, jobID, workerID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("could not delete progress: %w", err)
	}
	return nil
}
