package backend

import (
	"context"

	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
)

type notifyingJobRepository struct {
	JobRepository
	pub    JobPublisher
	logger log.Logger
}

// NewNotifyingJobRepository wraps a job repository so every successful write
// publishes a job change event. Publish failures are logged and don't fail
// the write.
func NewNotifyingJobRepository(repo JobRepository, pub JobPublisher, logger log.Logger) JobRepository {
	if logger == nil {
		logger = log.Noop
	}

	return notifyingJobRepository{
		JobRepository: repo,
		pub:           pub,
		logger:        logger.WithValues(log.Kv{"svc": "backend.NotifyingJobRepository"}),
	}
}

func (r notifyingJobRepository) CreateJob(ctx context.Context, j model.Job) error {
	if err := r.JobRepository.CreateJob(ctx, j); err != nil {
		return err
	}

	r.publish(ctx, j)
	return nil
}

func (r notifyingJobRepository) UpdateJob(ctx context.Context, j model.Job) (model.Job, error) {
	updated, err := r.JobRepository.UpdateJob(ctx, j)
	if err != nil {
		return model.Job{}, err
	}

	r.publish(ctx, updated)
	return updated, nil
}

func (r notifyingJobRepository) publish(ctx context.Context, j model.Job) {
	err := r.pub.Publish(ctx, JobEvent{
		JobID:   j.ID,
		Status:  j.Status,
		Version: j.Version,
		At:      j.UpdatedAt,
	})
	if err != nil {
		r.logger.Warningf("could not publish change of job %s: %s", j.ID, err)
	}
}
