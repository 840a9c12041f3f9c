package backend

import (
	"context"
	"io"
	"time"

	"github.com/slok/fieldwork/internal/model"
)

// Identity authenticates workers.
type Identity interface {
	SignIn(ctx context.Context, email, password string) (*model.Identity, error)
	SignOut(ctx context.Context, uid string) error
	Register(ctx context.Context, uid, email, password string) (*model.Identity, error)
}

// JobQuery filters job listings. Empty fields don't filter.
type JobQuery struct {
	WorkerID   string
	CustomerID string
}

// JobRepository is the shared job document store.
type JobRepository interface {
	// ListJobs returns the jobs matching the query ordered by start date, newest first.
	ListJobs(ctx context.Context, q JobQuery) ([]model.Job, error)
	GetJob(ctx context.Context, id string) (*model.Job, error)
	CreateJob(ctx context.Context, j model.Job) error
	// UpdateJob replaces a job if its version matches the stored one and returns
	// it with the new version, model.ErrConflict otherwise.
	UpdateJob(ctx context.Context, j model.Job) (model.Job, error)
}

// WorkerRepository is the shared worker profile store.
type WorkerRepository interface {
	GetWorker(ctx context.Context, id string) (*model.Worker, error)
	GetWorkerByUID(ctx context.Context, uid string) (*model.Worker, error)
	CreateWorker(ctx context.Context, w model.Worker) error
	SetPresence(ctx context.Context, id string, online bool, at time.Time) error
}

// AttendanceRepository is the shared daily attendance store.
type AttendanceRepository interface {
	GetAttendance(ctx context.Context, workerID, day string) (*model.Attendance, error)
	SaveAttendance(ctx context.Context, a model.Attendance) error
}

// AttachmentRepository stores job signatures and images.
type AttachmentRepository interface {
	// SaveSignature creates or replaces the signature of a kind for a worker on a job.
	SaveSignature(ctx context.Context, s model.Signature) error
	GetSignature(ctx context.Context, jobID string, kind model.SignatureKind, workerID string) (*model.Signature, error)
	AddImage(ctx context.Context, img model.Image) error
	// ListImages returns the images of a job, newest first.
	ListImages(ctx context.Context, jobID string) ([]model.Image, error)
	DeleteImage(ctx context.Context, jobID, imageID string) error
}

// BlobStore stores binary objects and returns their download URL.
type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// Directions resolves driving routes.
type Directions interface {
	Route(ctx context.Context, origin, destination model.Coordinates) (*model.Route, error)
}

// JobEvent notifies a change on a job.
type JobEvent struct {
	JobID   string
	Status  model.JobStatus
	Version int
	At      time.Time
}

// JobPublisher publishes job change events.
type JobPublisher interface {
	Publish(ctx context.Context, e JobEvent) error
}

// JobWatcher subscribes to job change events.
type JobWatcher interface {
	// Subscribe subscribes to the changes of a job, or all jobs if the job ID is empty.
	// The caller owns the returned subscription and must close it.
	Subscribe(ctx context.Context, jobID string) (Subscription, error)
}

// Subscription is a live job change event subscription.
type Subscription interface {
	Events() <-chan JobEvent
	Close() error
}

// Pinger checks the backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
