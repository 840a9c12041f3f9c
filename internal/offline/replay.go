package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/slok/fieldwork/internal/jobops"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
)

// ErrUnsupportedAction is returned when replaying an action type that has no replay.
var ErrUnsupportedAction = errors.New("unsupported offline action")

// StartJobPayload is the payload of a START_JOB action.
type StartJobPayload struct {
	JobID    string    `json:"jobId"`
	WorkerID string    `json:"workerId"`
	At       time.Time `json:"at"`
}

// UpdateJobStatusPayload is the payload of an UPDATE_JOB_STATUS action.
type UpdateJobStatusPayload struct {
	JobID  string          `json:"jobId"`
	Status model.JobStatus `json:"status"`
	At     time.Time       `json:"at"`
}

// AddTaskPayload is the payload of an ADD_TASK action.
type AddTaskPayload struct {
	JobID string     `json:"jobId"`
	Task  model.Task `json:"task"`
	At    time.Time  `json:"at"`
}

// ToggleTaskPayload is the payload of a TOGGLE_TASK action. The resulting
// state is stored instead of the toggle so a replay is idempotent.
type ToggleTaskPayload struct {
	JobID    string    `json:"jobId"`
	TaskID   string    `json:"taskId"`
	WorkerID string    `json:"workerId"`
	Done     bool      `json:"done"`
	At       time.Time `json:"at"`
}

// DeleteTaskPayload is the payload of a DELETE_TASK action.
type DeleteTaskPayload struct {
	JobID  string    `json:"jobId"`
	TaskID string    `json:"taskId"`
	At     time.Time `json:"at"`
}

// UpdateEquipmentPayload is the payload of an UPDATE_EQUIPMENT action.
type UpdateEquipmentPayload struct {
	JobID        string                `json:"jobId"`
	SerialNumber string                `json:"serialNumber"`
	Status       model.EquipmentStatus `json:"status"`
	WorkerID     string                `json:"workerId"`
	At           time.Time             `json:"at"`
}

// SubmitServicePayload is the payload of a SUBMIT_SERVICE action.
type SubmitServicePayload struct {
	JobID     string            `json:"jobId"`
	WorkerID  string            `json:"workerId"`
	Tasks     []model.Task      `json:"tasks"`
	Equipment []model.Equipment `json:"equipment"`
	At        time.Time         `json:"at"`
}

// UploadImagePayload is the payload of an UPLOAD_IMAGE action.
type UploadImagePayload struct {
	Image       model.Image `json:"image"`
	ContentType string      `json:"contentType"`
	Data        []byte      `json:"data"`
}

// CompleteJobPayload is the payload of a COMPLETE_JOB action.
type CompleteJobPayload struct {
	JobID    string    `json:"jobId"`
	WorkerID string    `json:"workerId"`
	At       time.Time `json:"at"`
}

// JobWriter are the backend job writes an action can be replayed with.
type JobWriter interface {
	StartJob(ctx context.Context, jobID, workerID string, at time.Time) (model.Job, error)
	UpdateStatus(ctx context.Context, jobID string, status model.JobStatus, at time.Time) (model.Job, error)
	AddTask(ctx context.Context, jobID string, t model.Task, at time.Time) (model.Job, error)
	SetTaskDone(ctx context.Context, jobID, taskID, workerID string, done bool, at time.Time) (model.Job, error)
	DeleteTask(ctx context.Context, jobID, taskID string, at time.Time) (model.Job, error)
	SetEquipmentStatus(ctx context.Context, jobID, serial string, status model.EquipmentStatus, workerID string, at time.Time) (model.Job, error)
	SubmitService(ctx context.Context, jobID, workerID string, tasks []model.Task, equipment []model.Equipment, at time.Time) (model.Job, error)
	UploadImage(ctx context.Context, img model.Image, contentType string, data []byte) (model.Image, error)
	CompleteJob(ctx context.Context, jobID, workerID string, at time.Time) (model.Job, error)
}

// BackendReplayer replays the queued actions with the same writes the
// online path uses.
type BackendReplayer struct {
	writer JobWriter
	logger log.Logger
}

// NewBackendReplayer returns a new backend replayer.
func NewBackendReplayer(w JobWriter, logger log.Logger) (*BackendReplayer, error) {
	if w == nil {
		return nil, fmt.Errorf("job writer is required")
	}
	if logger == nil {
		logger = log.Noop
	}

	return &BackendReplayer{
		writer: w,
		logger: logger.WithValues(log.Kv{"svc": "offline.BackendReplayer"}),
	}, nil
}

// Replay satisfies Replayer.
func (r *BackendReplayer) Replay(ctx context.Context, a model.OfflineAction) error {
	logger := r.logger.WithCtxValues(ctx).WithValues(log.Kv{"action-id": a.ID, "action-type": a.Type})

	switch a.Type {
	case model.ActionStartJob:
		var p StartJobPayload
		if err := DecodePayload(a, &p); err != nil {
			return err
		}
		_, err := r.writer.StartJob(ctx, p.JobID, p.WorkerID, p.At)
		if jobops.IsApplied(err) {
			logger.Debugf("Job %s already started by worker %s", p.JobID, p.WorkerID)
			return nil
		}
		return err

	case model.ActionUpdateJobStatus:
		var p UpdateJobStatusPayload
		if err := DecodePayload(a, &p); err != nil {
			return err
		}
		_, err := r.writer.UpdateStatus(ctx, p.JobID, p.Status, p.At)
		return err

	case model.ActionAddTask:
		var p AddTaskPayload
		if err := DecodePayload(a, &p); err != nil {
			return err
		}
		_, err := r.writer.AddTask(ctx, p.JobID, p.Task, p.At)
		return err

	case model.ActionToggleTask:
		var p ToggleTaskPayload
		if err := DecodePayload(a, &p); err != nil {
			return err
		}
		_, err := r.writer.SetTaskDone(ctx, p.JobID, p.TaskID, p.WorkerID, p.Done, p.At)
		return err

	case model.ActionDeleteTask:
		var p DeleteTaskPayload
		if err := DecodePayload(a, &p); err != nil {
			return err
		}
		_, err := r.writer.DeleteTask(ctx, p.JobID, p.TaskID, p.At)
		if errors.Is(err, model.ErrNotFound) {
			logger.Debugf("Task %s already deleted", p.TaskID)
			return nil
		}
		return err

	case model.ActionUpdateEquipment:
		var p UpdateEquipmentPayload
		if err := DecodePayload(a, &p); err != nil {
			return err
		}
		_, err := r.writer.SetEquipmentStatus(ctx, p.JobID, p.SerialNumber, p.Status, p.WorkerID, p.At)
		return err

	case model.ActionSubmitService:
		var p SubmitServicePayload
		if err := DecodePayload(a, &p); err != nil {
			return err
		}
		_, err := r.writer.SubmitService(ctx, p.JobID, p.WorkerID, p.Tasks, p.Equipment, p.At)
		return err

	case model.ActionUploadImage:
		var p UploadImagePayload
		if err := DecodePayload(a, &p); err != nil {
			return err
		}
		_, err := r.writer.UploadImage(ctx, p.Image, p.ContentType, p.Data)
		return err

	case model.ActionCompleteJob:
		var p CompleteJobPayload
		if err := DecodePayload(a, &p); err != nil {
			return err
		}
		_, err := r.writer.CompleteJob(ctx, p.JobID, p.WorkerID, p.At)
		if jobops.IsApplied(err) {
			logger.Debugf("Job %s already completed by worker %s", p.JobID, p.WorkerID)
			return nil
		}
		return err
	}

	return fmt.Errorf("%q: %w", a.Type, ErrUnsupportedAction)
}

// DecodePayload decodes the JSON payload of a queued action.
func DecodePayload(a model.OfflineAction, v any) error {
	if err := json.Unmarshal(a.Payload, v); err != nil {
		return fmt.Errorf("invalid %s payload: %s: %w", a.Type, err, model.ErrNotValid)
	}
	return nil
}
