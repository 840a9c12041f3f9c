package storage

import (
	"context"

	"github.com/slok/fieldwork/internal/model"
)

// ActionRepository persists the ordered offline action queue.
type ActionRepository interface {
	// AppendAction stores the action at the tail of the queue and returns it with its sequence set.
	AppendAction(ctx context.Context, a model.OfflineAction) (model.OfflineAction, error)
	// ListActions returns the queued actions in insertion order.
	ListActions(ctx context.Context) ([]model.OfflineAction, error)
	DeleteAction(ctx context.Context, id string) error
}

// ProgressRepository persists the per worker job workflow state.
type ProgressRepository interface {
	GetProgress(ctx context.Context, jobID, workerID string) (*model.StageProgress, error)
	SaveProgress(ctx context.Context, p model.StageProgress) error
	DeleteProgress(ctx context.Context, jobID, workerID string) error
}

// JobCache stores job snapshots so they can be used while offline.
type JobCache interface {
	PutJob(ctx context.Context, j model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	ListJobs(ctx context.Context) ([]model.Job, error)
	ClearJobs(ctx context.Context) error
}

// KV is a local key value store.
type KV interface {
	GetValue(ctx context.Context, key string) ([]byte, error)
	SetValue(ctx context.Context, key string, value []byte) error
	DeleteValue(ctx context.Context, key string) error
}
