package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/storage"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of the local device storage.
type Repository struct {
	actions  []model.OfflineAction
	lastSeq  int64
	progress map[string]model.StageProgress
	jobs     map[string]model.Job
	kv       map[string][]byte
	mu       sync.RWMutex
	logger   log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		progress: make(map[string]model.StageProgress),
		jobs:     make(map[string]model.Job),
		kv:       make(map[string][]byte),
		logger:   cfg.Logger,
	}, nil
}

// AppendAction stores an action at the tail of the queue.
func (r *Repository) AppendAction(ctx context.Context, a model.OfflineAction) (model.OfflineAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.actions {
		if existing.ID == a.ID {
			return model.OfflineAction{}, fmt.Errorf("action %s: %w", a.ID, model.ErrAlreadyExists)
		}
	}

	r.lastSeq++
	a.Seq = r.lastSeq
	a.Payload = append([]byte(nil), a.Payload...)
	r.actions = append(r.actions, a)
	r.logger.Debugf("Appended action %s (%s) with sequence %d", a.ID, a.Type, a.Seq)

	return a, nil
}

// ListActions returns the queued actions in insertion order.
func (r *Repository) ListActions(ctx context.Context) ([]model.OfflineAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := make([]model.OfflineAction, 0, len(r.actions))
	for _, a := range r.actions {
		a.Payload = append([]byte(nil), a.Payload...)
		actions = append(actions, a)
	}

	return actions, nil
}

// DeleteAction removes an action from the queue.
func (r *Repository) DeleteAction(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, a := range r.actions {
		if a.ID == id {
			r.actions = append(r.actions[:i], r.actions[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("action %s: %w", id, model.ErrNotFound)
}

func progressKey(jobID, workerID string) string { return jobID + "/" + workerID }

// GetProgress returns the workflow state of a worker on a job.
func (r *Repository) GetProgress(ctx context.Context, jobID, workerID string) (*model.StageProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.progress[progressKey(jobID, workerID)]
	if !ok {
		return nil, fmt.Errorf("progress of worker %s on job %s: %w", workerID, jobID, model.ErrNotFound)
	}

	return copyProgress(p), nil
}

// SaveProgress creates or replaces the workflow state of a worker on a job.
func (r *Repository) SaveProgress(ctx context.Context, p model.StageProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.progress[progressKey(p.JobID, p.WorkerID)] = *copyProgress(p)
	return nil
}

// DeleteProgress removes the workflow state of a worker on a job.
func (r *Repository) DeleteProgress(ctx context.Context, jobID, workerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := progressKey(jobID, workerID)
	if _, ok := r.progress[key]; !ok {
		return fmt.Errorf("progress of worker %s on job %s: %w", workerID, jobID, model.ErrNotFound)
	}
	delete(r.progress, key)

	return nil
}

func copyProgress(p model.StageProgress) *model.StageProgress {
	if p.Route != nil {
		route := *p.Route
		route.Points = append([]model.Coordinates(nil), p.Route.Points...)
		p.Route = &route
	}
	return &p
}

// PutJob caches a job snapshot.
func (r *Repository) PutJob(ctx context.Context, j model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[j.ID] = j.Copy()
	return nil
}

// GetJob returns a cached job snapshot.
func (r *Repository) GetJob(ctx context.Context, id string) (*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("cached job %s: %w", id, model.ErrNotFound)
	}

	jobCopy := j.Copy()
	return &jobCopy, nil
}

// ListJobs returns the cached job snapshots ordered by start date, newest first.
func (r *Repository) ListJobs(ctx context.Context) ([]model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]model.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j.Copy())
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].StartDate.Equal(jobs[j].StartDate) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].StartDate.After(jobs[j].StartDate)
	})

	return jobs, nil
}

// ClearJobs removes all the cached job snapshots.
func (r *Repository) ClearJobs(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs = make(map[string]model.Job)
	return nil
}

// GetValue returns a stored value.
func (r *Repository) GetValue(ctx context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.kv[key]
	if !ok {
		return nil, fmt.Errorf("key %s: %w", key, model.ErrNotFound)
	}

	return append([]byte(nil), v...), nil
}

// SetValue stores a value.
func (r *Repository) SetValue(ctx context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.kv[key] = append([]byte(nil), value...)
	return nil
}

// DeleteValue removes a stored value, missing keys are ignored.
func (r *Repository) DeleteValue(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.kv, key)
	return nil
}

var (
	_ storage.ActionRepository   = &Repository{}
	_ storage.ProgressRepository = &Repository{}
	_ storage.JobCache           = &Repository{}
	_ storage.KV                 = &Repository{}
)
