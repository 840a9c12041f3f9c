package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
)

// BackendConfig is the configuration for the memory backend.
type BackendConfig struct {
	Logger log.Logger
	// BcryptCost is the password hashing cost, defaults to bcrypt.MinCost.
	BcryptCost int
}

func (c *BackendConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "backend.Memory"})

	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.MinCost
	}
	return nil
}

type credential struct {
	identity model.Identity
	hash     []byte
}

// Backend is an in-memory implementation of the shared backend.
type Backend struct {
	credentials map[string]credential
	jobs        map[string]model.Job
	workers     map[string]model.Worker
	attendance  map[string]model.Attendance
	signatures  map[string]model.Signature
	images      map[string][]model.Image
	blobs       map[string][]byte
	pingErr     error
	bcryptCost  int
	mu          sync.RWMutex
	logger      log.Logger
}

// NewBackend creates a new memory backend.
func NewBackend(cfg BackendConfig) (*Backend, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Backend{
		credentials: map[string]credential{},
		jobs:        map[string]model.Job{},
		workers:     map[string]model.Worker{},
		attendance:  map[string]model.Attendance{},
		signatures:  map[string]model.Signature{},
		images:      map[string][]model.Image{},
		blobs:       map[string][]byte{},
		bcryptCost:  cfg.BcryptCost,
		logger:      cfg.Logger,
	}, nil
}

// Register registers a new identity.
func (b *Backend) Register(ctx context.Context, uid, email, password string) (*model.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.credentials[email]; ok {
		return nil, fmt.Errorf("identity %s: %w", email, model.ErrAlreadyExists)
	}
	id := model.Identity{UID: uid, Email: email}
	b.credentials[email] = credential{identity: id, hash: hash}

	return &id, nil
}

// SignIn authenticates an identity.
func (b *Backend) SignIn(ctx context.Context, email, password string) (*model.Identity, error) {
	b.mu.RLock()
	c, ok := b.credentials[strings.ToLower(strings.TrimSpace(email))]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown user: %w", model.ErrUnauthenticated)
	}

	if err := bcrypt.CompareHashAndPassword(c.hash, []byte(password)); err != nil {
		return nil, fmt.Errorf("wrong password: %w", model.ErrUnauthenticated)
	}

	id := c.identity
	return &id, nil
}

// SignOut signs out an identity.
func (b *Backend) SignOut(ctx context.Context, uid string) error { return nil }

// ListJobs lists the jobs matching the query, newest start date first.
func (b *Backend) ListJobs(ctx context.Context, q backend.JobQuery) ([]model.Job, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	jobs := []model.Job{}
	for _, j := range b.jobs {
		if q.WorkerID != "" && !j.IsAssigned(q.WorkerID) {
			continue
		}
		if q.CustomerID != "" && j.CustomerID != q.CustomerID {
			continue
		}
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

// GetJob returns a job.
func (b *Backend) GetJob(ctx context.Context, id string) (*model.Job, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	j, ok := b.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}

	jobCopy := j.Copy()
	return &jobCopy, nil
}

// CreateJob creates a job.
func (b *Backend) CreateJob(ctx context.Context, j model.Job) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.jobs[j.ID]; ok {
		return fmt.Errorf("job %s: %w", j.ID, model.ErrAlreadyExists)
	}
	if j.Version == 0 {
		j.Version = 1
	}
	b.jobs[j.ID] = j.Copy()

	return nil
}

// UpdateJob replaces a job using optimistic versioning.
func (b *Backend) UpdateJob(ctx context.Context, j model.Job) (model.Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored, ok := b.jobs[j.ID]
	if !ok {
		return model.Job{}, fmt.Errorf("job %s: %w", j.ID, model.ErrNotFound)
	}
	if stored.Version != j.Version {
		return model.Job{}, fmt.Errorf("job %s has version %d, got %d: %w", j.ID, stored.Version, j.Version, model.ErrConflict)
	}

	j.Version++
	b.jobs[j.ID] = j.Copy()

	return j.Copy(), nil
}

// GetWorker returns a worker.
func (b *Backend) GetWorker(ctx context.Context, id string) (*model.Worker, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	w, ok := b.workers[id]
	if !ok {
		return nil, fmt.Errorf("worker %s: %w", id, model.ErrNotFound)
	}

	return &w, nil
}

// GetWorkerByUID returns the worker of an identity.
func (b *Backend) GetWorkerByUID(ctx context.Context, uid string) (*model.Worker, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, w := range b.workers {
		if w.UID == uid {
			return &w, nil
		}
	}

	return nil, fmt.Errorf("worker with uid %s: %w", uid, model.ErrNotFound)
}

// CreateWorker creates a worker.
func (b *Backend) CreateWorker(ctx context.Context, w model.Worker) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.workers[w.ID]; ok {
		return fmt.Errorf("worker %s: %w", w.ID, model.ErrAlreadyExists)
	}
	b.workers[w.ID] = w

	return nil
}

// SetPresence sets the online presence of a worker.
func (b *Backend) SetPresence(ctx context.Context, id string, online bool, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	w, ok := b.workers[id]
	if !ok {
		return fmt.Errorf("worker %s: %w", id, model.ErrNotFound)
	}
	w.Online = online
	w.LastSeen = &at
	b.workers[id] = w

	return nil
}

func attendanceKey(workerID, day string) string { return workerID + "/" + day }

// GetAttendance returns the attendance of a worker for a day.
func (b *Backend) GetAttendance(ctx context.Context, workerID, day string) (*model.Attendance, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	a, ok := b.attendance[attendanceKey(workerID, day)]
	if !ok {
		return nil, fmt.Errorf("attendance of %s on %s: %w", workerID, day, model.ErrNotFound)
	}
	a.Events = append([]model.ClockEvent(nil), a.Events...)

	return &a, nil
}

// SaveAttendance creates or replaces an attendance record.
func (b *Backend) SaveAttendance(ctx context.Context, a model.Attendance) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	a.Events = append([]model.ClockEvent(nil), a.Events...)
	b.attendance[attendanceKey(a.WorkerID, a.Day)] = a

	return nil
}

func signatureKey(jobID string, kind model.SignatureKind, workerID string) string {
	return jobID + "/" + string(kind) + "/" + workerID
}

// SaveSignature creates or replaces a signature.
func (b *Backend) SaveSignature(ctx context.Context, s model.Signature) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.signatures[signatureKey(s.JobID, s.Kind, s.WorkerID)] = s
	return nil
}

// GetSignature returns a signature.
func (b *Backend) GetSignature(ctx context.Context, jobID string, kind model.SignatureKind, workerID string) (*model.Signature, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.signatures[signatureKey(jobID, kind, workerID)]
	if !ok {
		return nil, fmt.Errorf("%s signature of %s on job %s: %w", kind, workerID, jobID, model.ErrNotFound)
	}

	return &s, nil
}

// AddImage adds an image to a job.
func (b *Backend) AddImage(ctx context.Context, img model.Image) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.images[img.JobID] {
		if existing.ID == img.ID {
			return fmt.Errorf("image %s: %w", img.ID, model.ErrAlreadyExists)
		}
	}
	b.images[img.JobID] = append(b.images[img.JobID], img)

	return nil
}

// ListImages returns the images of a job, newest first.
func (b *Backend) ListImages(ctx context.Context, jobID string) ([]model.Image, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	imgs := append([]model.Image{}, b.images[jobID]...)
	sort.SliceStable(imgs, func(i, j int) bool { return imgs[i].CreatedAt.After(imgs[j].CreatedAt) })

	return imgs, nil
}

// DeleteImage removes an image of a job.
func (b *Backend) DeleteImage(ctx context.Context, jobID, imageID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	imgs := b.images[jobID]
	for i, img := range imgs {
		if img.ID == imageID {
			b.images[jobID] = append(imgs[:i], imgs[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("image %s on job %s: %w", imageID, jobID, model.ErrNotFound)
}

// Upload stores a blob in memory.
func (b *Backend) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("could not read blob: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = data

	return "mem://" + key, nil
}

// Blob returns a stored blob.
func (b *Backend) Blob(key string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.blobs[key]
	return bytes.Clone(data), ok
}

// SetPingError makes the backend look unreachable, nil restores it.
func (b *Backend) SetPingError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pingErr = err
}

// Ping checks the backend is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pingErr
}

var (
	_ backend.Identity             = &Backend{}
	_ backend.JobRepository        = &Backend{}
	_ backend.WorkerRepository     = &Backend{}
	_ backend.AttendanceRepository = &Backend{}
	_ backend.AttachmentRepository = &Backend{}
	_ backend.BlobStore            = &Backend{}
	_ backend.Pinger               = &Backend{}
)
