// Package jobops has the job writes shared by the online use cases and the
// offline action replay, so both paths apply the same rules.
package jobops

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
)

// OperatorConfig is the configuration for the job operator.
type OperatorConfig struct {
	Jobs        backend.JobRepository
	Attachments backend.AttachmentRepository
	Blobs       backend.BlobStore
	Logger      log.Logger
}

func (c *OperatorConfig) defaults() error {
	if c.Jobs == nil {
		return fmt.Errorf("jobs repository is required")
	}
	if c.Attachments == nil {
		return fmt.Errorf("attachments repository is required")
	}
	if c.Blobs == nil {
		return fmt.Errorf("blob store is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "jobops.Operator"})
	return nil
}

// Operator applies writes to shared job documents.
type Operator struct {
	jobs        backend.JobRepository
	attachments backend.AttachmentRepository
	blobs       backend.BlobStore
	logger      log.Logger
}

// NewOperator returns a new job operator.
func NewOperator(cfg OperatorConfig) (*Operator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Operator{
		jobs:        cfg.Jobs,
		attachments: cfg.Attachments,
		blobs:       cfg.Blobs,
		logger:      cfg.Logger,
	}, nil
}

// update loads a job, applies the mutation and stores it.
func (o *Operator) update(ctx context.Context, jobID string, at time.Time, mutate func(j *model.Job) error) (model.Job, error) {
	j, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return model.Job{}, fmt.Errorf("could not get job: %w", err)
	}

	if err := mutate(j); err != nil {
		return model.Job{}, err
	}
	j.UpdatedAt = at

	updated, err := o.jobs.UpdateJob(ctx, *j)
	if err != nil {
		return model.Job{}, fmt.Errorf("could not update job: %w", err)
	}

	return updated, nil
}

func assignedWorker(j *model.Job, workerID string) (model.AssignedWorker, error) {
	w, ok := j.Worker(workerID)
	if !ok {
		return model.AssignedWorker{}, fmt.Errorf("worker %s on job %s: %w", workerID, j.ID, model.ErrNotAssigned)
	}
	return w, nil
}

// AppliedError is returned when a write has already been applied on the job.
// It matches model.ErrNotAllowed.
type AppliedError struct {
	JobNo  string
	Reason string
}

func (e *AppliedError) Error() string {
	return fmt.Sprintf("job %s %s: %s", e.JobNo, e.Reason, model.ErrNotAllowed)
}

func (e *AppliedError) Unwrap() error { return model.ErrNotAllowed }

// IsApplied returns true if the error is an AppliedError.
func IsApplied(err error) bool {
	var e *AppliedError
	return errors.As(err, &e)
}

func notCompleted(j *model.Job) error {
	if j.Status == model.JobStatusCompleted {
		return fmt.Errorf("job %s is completed: %w", j.JobNo, model.ErrNotAllowed)
	}
	return nil
}

// StartJob marks the worker as in progress on the job, and the job itself
// as in progress.
func (o *Operator) StartJob(ctx context.Context, jobID, workerID string, at time.Time) (model.Job, error) {
	return o.update(ctx, jobID, at, func(j *model.Job) error {
		return ApplyStart(j, workerID, at)
	})
}

// ApplyStart applies a job start of a worker on a job value.
func ApplyStart(j *model.Job, workerID string, at time.Time) error {
	w, err := assignedWorker(j, workerID)
	if err != nil {
		return err
	}
	switch w.Status {
	case model.WorkerStatusInProgress:
		return &AppliedError{JobNo: j.JobNo, Reason: "already started"}
	case model.WorkerStatusCompleted:
		return &AppliedError{JobNo: j.JobNo, Reason: "already finished by worker"}
	}
	if err := notCompleted(j); err != nil {
		return err
	}

	w.Status = model.WorkerStatusInProgress
	w.StartedAt = &at
	if err := j.SetWorker(w); err != nil {
		return err
	}
	j.Status = model.JobStatusInProgress

	return nil
}

// UpdateStatus sets the status of a job.
func (o *Operator) UpdateStatus(ctx context.Context, jobID string, status model.JobStatus, at time.Time) (model.Job, error) {
	return o.update(ctx, jobID, at, func(j *model.Job) error {
		if err := notCompleted(j); err != nil {
			return err
		}
		st, err := model.ParseJobStatus(string(status))
		if err != nil {
			return err
		}
		j.Status = st
		if st == model.JobStatusCompleted {
			j.CompletedAt = &at
		}
		return nil
	})
}

// AddTask appends a task to the job checklist. Adding a task with an
// existing ID is a no-op.
func (o *Operator) AddTask(ctx context.Context, jobID string, t model.Task, at time.Time) (model.Job, error) {
	return o.update(ctx, jobID, at, func(j *model.Job) error {
		return ApplyAddTask(j, t)
	})
}

// ApplyAddTask appends a task to a job value.
func ApplyAddTask(j *model.Job, t model.Task) error {
	if err := notCompleted(j); err != nil {
		return err
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("task name is required: %w", model.ErrNotValid)
	}
	if t.ID == "" {
		return fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}
	if j.Task(t.ID) >= 0 {
		return nil
	}

	j.Tasks = append(j.Tasks, t)
	return nil
}

// SetTaskDone sets the completion of a checklist task.
func (o *Operator) SetTaskDone(ctx context.Context, jobID, taskID, workerID string, done bool, at time.Time) (model.Job, error) {
	return o.update(ctx, jobID, at, func(j *model.Job) error {
		return ApplyTaskDone(j, taskID, workerID, done, at)
	})
}

// ApplyTaskDone sets the completion of a task on a job value.
func ApplyTaskDone(j *model.Job, taskID, workerID string, done bool, at time.Time) error {
	if err := notCompleted(j); err != nil {
		return err
	}
	i := j.Task(taskID)
	if i < 0 {
		return fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}

	t := j.Tasks[i]
	t.Done = done
	if done {
		t.CompletedAt = &at
		t.CompletedBy = workerID
	} else {
		t.CompletedAt = nil
		t.CompletedBy = ""
	}
	j.Tasks[i] = t

	return nil
}

// DeleteTask removes a task from the checklist.
func (o *Operator) DeleteTask(ctx context.Context, jobID, taskID string, at time.Time) (model.Job, error) {
	return o.update(ctx, jobID, at, func(j *model.Job) error {
		return ApplyDeleteTask(j, taskID)
	})
}

// ApplyDeleteTask removes a task from a job value.
func ApplyDeleteTask(j *model.Job, taskID string) error {
	if err := notCompleted(j); err != nil {
		return err
	}
	i := j.Task(taskID)
	if i < 0 {
		return fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}

	j.Tasks = append(j.Tasks[:i], j.Tasks[i+1:]...)
	return nil
}

// SetEquipmentStatus sets the service status of an equipment item.
func (o *Operator) SetEquipmentStatus(ctx context.Context, jobID, serial string, status model.EquipmentStatus, workerID string, at time.Time) (model.Job, error) {
	return o.update(ctx, jobID, at, func(j *model.Job) error {
		return ApplyEquipmentStatus(j, serial, status, workerID, at)
	})
}

// ApplyEquipmentStatus sets the status of an equipment item on a job value.
func ApplyEquipmentStatus(j *model.Job, serial string, status model.EquipmentStatus, workerID string, at time.Time) error {
	if err := notCompleted(j); err != nil {
		return err
	}
	if !status.Valid() {
		return fmt.Errorf("unknown equipment status %q: %w", status, model.ErrNotValid)
	}
	i := j.EquipmentItem(serial)
	if i < 0 {
		return fmt.Errorf("equipment %s: %w", serial, model.ErrNotFound)
	}

	e := j.Equipment[i]
	e.Status = status
	e.UpdatedAt = &at
	e.UpdatedBy = workerID
	j.Equipment[i] = e

	return nil
}

// SubmitService stores the service report of a worker: the checklist and the
// equipment state.
func (o *Operator) SubmitService(ctx context.Context, jobID, workerID string, tasks []model.Task, equipment []model.Equipment, at time.Time) (model.Job, error) {
	return o.update(ctx, jobID, at, func(j *model.Job) error {
		return ApplyServiceReport(j, workerID, tasks, equipment, at)
	})
}

// ApplyServiceReport applies a service report on a job value.
func ApplyServiceReport(j *model.Job, workerID string, tasks []model.Task, equipment []model.Equipment, at time.Time) error {
	if err := notCompleted(j); err != nil {
		return err
	}
	if _, err := assignedWorker(j, workerID); err != nil {
		return err
	}

	j.Tasks = append([]model.Task(nil), tasks...)
	j.Equipment = make([]model.Equipment, 0, len(equipment))
	for _, e := range equipment {
		if e.Status == "" {
			e.Status = model.EquipmentStatusAvailable
		}
		if e.UpdatedAt == nil {
			e.UpdatedAt = &at
		}
		if e.UpdatedBy == "" {
			e.UpdatedBy = workerID
		}
		j.Equipment = append(j.Equipment, e)
	}

	return nil
}

// CompleteJob completes the job for a worker. Both the technician and the
// customer signatures of the worker are required.
func (o *Operator) CompleteJob(ctx context.Context, jobID, workerID string, at time.Time) (model.Job, error) {
	for _, kind := range []model.SignatureKind{model.SignatureKindTechnician, model.SignatureKindCustomer} {
		_, err := o.attachments.GetSignature(ctx, jobID, kind, workerID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.Job{}, fmt.Errorf("%s signature is required to complete the job: %w", kind, model.ErrNotAllowed)
			}
			return model.Job{}, fmt.Errorf("could not get %s signature: %w", kind, err)
		}
	}

	return o.update(ctx, jobID, at, func(j *model.Job) error {
		return ApplyComplete(j, workerID, at)
	})
}

// ApplyComplete completes a job value for a worker.
func ApplyComplete(j *model.Job, workerID string, at time.Time) error {
	w, err := assignedWorker(j, workerID)
	if err != nil {
		return err
	}
	if j.Status == model.JobStatusCompleted && w.Status == model.WorkerStatusCompleted {
		return &AppliedError{JobNo: j.JobNo, Reason: "already completed by worker"}
	}
	if err := notCompleted(j); err != nil {
		return err
	}
	if w.Status != model.WorkerStatusInProgress {
		return fmt.Errorf("job %s has not been started by the worker: %w", j.JobNo, model.ErrNotAllowed)
	}

	w.Status = model.WorkerStatusCompleted
	w.EndedAt = &at
	if err := j.SetWorker(w); err != nil {
		return err
	}
	j.Status = model.JobStatusCompleted
	j.CompletedAt = &at
	j.CompletedBy = workerID

	return nil
}

// SaveSignature uploads a PNG signature and stores it, replacing a previous one.
func (o *Operator) SaveSignature(ctx context.Context, jobID, workerID string, kind model.SignatureKind, png []byte, at time.Time) (model.Signature, error) {
	if len(png) == 0 {
		return model.Signature{}, fmt.Errorf("signature image is required: %w", model.ErrNotValid)
	}

	key := fmt.Sprintf("jobs/%s/signatures/%s_%s_%d.png", jobID, kind, workerID, at.UnixMilli())
	url, err := o.blobs.Upload(ctx, key, "image/png", bytes.NewReader(png))
	if err != nil {
		return model.Signature{}, fmt.Errorf("could not upload signature: %w", err)
	}

	sig := model.Signature{
		JobID:     jobID,
		Kind:      kind,
		WorkerID:  workerID,
		URL:       url,
		SignedBy:  workerID,
		Timestamp: at,
	}
	if err := o.attachments.SaveSignature(ctx, sig); err != nil {
		return model.Signature{}, fmt.Errorf("could not save signature: %w", err)
	}

	return sig, nil
}

// UploadImage uploads a job photo and stores it. The image ID makes the
// upload idempotent: an already stored image is returned as is.
func (o *Operator) UploadImage(ctx context.Context, img model.Image, contentType string, data []byte) (model.Image, error) {
	if strings.TrimSpace(img.Description) == "" {
		return model.Image{}, fmt.Errorf("image description is required: %w", model.ErrNotValid)
	}
	if len(data) == 0 {
		return model.Image{}, fmt.Errorf("image data is required: %w", model.ErrNotValid)
	}
	if img.ID == "" {
		img.ID = uuid.NewString()
	}

	existing, err := o.attachments.ListImages(ctx, img.JobID)
	if err != nil {
		return model.Image{}, fmt.Errorf("could not list images: %w", err)
	}
	for _, e := range existing {
		if e.ID == img.ID {
			return e, nil
		}
	}

	key := fmt.Sprintf("jobs/%s/images/%s%s", img.JobID, img.ID, extension(contentType))
	url, err := o.blobs.Upload(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		return model.Image{}, fmt.Errorf("could not upload image: %w", err)
	}
	img.URL = url

	if err := o.attachments.AddImage(ctx, img); err != nil {
		return model.Image{}, fmt.Errorf("could not save image: %w", err)
	}

	return img, nil
}

// DeleteImage removes a job photo.
func (o *Operator) DeleteImage(ctx context.Context, jobID, imageID string) error {
	if err := o.attachments.DeleteImage(ctx, jobID, imageID); err != nil {
		return fmt.Errorf("could not delete image: %w", err)
	}
	return nil
}

func extension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	}
	return ""
}
