package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/fieldwork/internal/jobops"
	"github.com/slok/fieldwork/internal/jobsource"
	"github.com/slok/fieldwork/internal/lifecycle"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/offline"
	"github.com/slok/fieldwork/internal/session"
)

// Action is a service section action.
type Action string

const (
	ActionAddTask    Action = "add-task"
	ActionToggleTask Action = "toggle-task"
	ActionDeleteTask Action = "delete-task"
	ActionEquipment  Action = "equipment"
	ActionSubmit     Action = "submit"
)

// ServiceConfig is the configuration for the service section service.
type ServiceConfig struct {
	Source   *jobsource.Source
	Operator *jobops.Operator
	Tracker  *lifecycle.Tracker
	Logger   log.Logger
	Now      func() time.Time
}

func (c *ServiceConfig) defaults() error {
	if c.Source == nil {
		return fmt.Errorf("job source is required")
	}
	if c.Operator == nil {
		return fmt.Errorf("job operator is required")
	}
	if c.Tracker == nil {
		return fmt.Errorf("stage tracker is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Service"})

	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}

// Service runs the service section of a job: the task checklist, the
// equipment state and the service report.
type Service struct {
	source   *jobsource.Source
	operator *jobops.Operator
	tracker  *lifecycle.Tracker
	logger   log.Logger
	now      func() time.Time
}

// NewService creates a new service section service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		source:   cfg.Source,
		operator: cfg.Operator,
		tracker:  cfg.Tracker,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}, nil
}

// Request represents the service section request parameters.
type Request struct {
	Session session.Session
	JobID   string
	Action  Action

	// Add task.
	TaskName        string
	TaskDescription string
	TaskPriority    model.Priority

	// Toggle and delete task.
	TaskID string

	// Equipment.
	SerialNumber    string
	EquipmentStatus model.EquipmentStatus
}

// Result is the job after the action.
type Result struct {
	Job      model.Job
	Progress model.StageProgress
	Queued   bool
}

// Run applies a service section action. The worker needs to be allowed in
// the service stage.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	workerID := req.Session.WorkerID
	now := s.now()

	read, err := s.source.Get(ctx, req.JobID)
	if err != nil {
		return Result{}, err
	}

	d, p, err := s.tracker.Request(ctx, req.JobID, &read.Job, workerID, model.StageService)
	if err != nil {
		return Result{}, err
	}
	if err := d.Err(); err != nil {
		return Result{}, err
	}

	w, err := s.write(read.Job, req, now)
	if err != nil {
		return Result{}, err
	}

	wr, err := s.source.Write(ctx, read, w)
	if err != nil {
		return Result{}, err
	}

	if req.Action == ActionSubmit {
		p, err = s.tracker.MarkDone(ctx, req.JobID, workerID, model.StageService)
		if err != nil {
			return Result{}, err
		}
	}

	return Result{Job: wr.Job, Progress: p, Queued: wr.Queued}, nil
}

func (s *Service) write(job model.Job, req Request, now time.Time) (jobsource.Write, error) {
	jobID := req.JobID
	workerID := req.Session.WorkerID

	switch req.Action {
	case ActionAddTask:
		name := strings.TrimSpace(req.TaskName)
		if name == "" {
			return jobsource.Write{}, fmt.Errorf("task name is required: %w", model.ErrNotValid)
		}
		prio := req.TaskPriority
		if prio == "" {
			prio = model.PriorityLow
		}
		t := model.Task{
			ID:          ulid.Make().String(),
			Name:        name,
			Description: strings.TrimSpace(req.TaskDescription),
			Priority:    prio,
			CreatedAt:   now,
		}
		return jobsource.Write{
			Action:  model.ActionAddTask,
			Payload: offline.AddTaskPayload{JobID: jobID, Task: t, At: now},
			Online: func(ctx context.Context) (model.Job, error) {
				return s.operator.AddTask(ctx, jobID, t, now)
			},
			Local: func(j *model.Job) error { return jobops.ApplyAddTask(j, t) },
		}, nil

	case ActionToggleTask:
		i := job.Task(req.TaskID)
		if i < 0 {
			return jobsource.Write{}, fmt.Errorf("task %s: %w", req.TaskID, model.ErrNotFound)
		}
		done := !job.Tasks[i].Done
		return jobsource.Write{
			Action:  model.ActionToggleTask,
			Payload: offline.ToggleTaskPayload{JobID: jobID, TaskID: req.TaskID, WorkerID: workerID, Done: done, At: now},
			Online: func(ctx context.Context) (model.Job, error) {
				return s.operator.SetTaskDone(ctx, jobID, req.TaskID, workerID, done, now)
			},
			Local: func(j *model.Job) error { return jobops.ApplyTaskDone(j, req.TaskID, workerID, done, now) },
		}, nil

	case ActionDeleteTask:
		return jobsource.Write{
			Action:  model.ActionDeleteTask,
			Payload: offline.DeleteTaskPayload{JobID: jobID, TaskID: req.TaskID, At: now},
			Online: func(ctx context.Context) (model.Job, error) {
				return s.operator.DeleteTask(ctx, jobID, req.TaskID, now)
			},
			Local: func(j *model.Job) error { return jobops.ApplyDeleteTask(j, req.TaskID) },
		}, nil

	case ActionEquipment:
		i := job.EquipmentItem(req.SerialNumber)
		if i < 0 {
			return jobsource.Write{}, fmt.Errorf("equipment %s: %w", req.SerialNumber, model.ErrNotFound)
		}
		// Selecting the current status again clears it.
		status := req.EquipmentStatus
		if job.Equipment[i].Status == status {
			status = model.EquipmentStatusAvailable
		}
		return jobsource.Write{
			Action:  model.ActionUpdateEquipment,
			Payload: offline.UpdateEquipmentPayload{JobID: jobID, SerialNumber: req.SerialNumber, Status: status, WorkerID: workerID, At: now},
			Online: func(ctx context.Context) (model.Job, error) {
				return s.operator.SetEquipmentStatus(ctx, jobID, req.SerialNumber, status, workerID, now)
			},
			Local: func(j *model.Job) error {
				return jobops.ApplyEquipmentStatus(j, req.SerialNumber, status, workerID, now)
			},
		}, nil

	case ActionSubmit:
		tasks := append([]model.Task(nil), job.Tasks...)
		equipment := append([]model.Equipment(nil), job.Equipment...)
		return jobsource.Write{
			Action:  model.ActionSubmitService,
			Payload: offline.SubmitServicePayload{JobID: jobID, WorkerID: workerID, Tasks: tasks, Equipment: equipment, At: now},
			Online: func(ctx context.Context) (model.Job, error) {
				return s.operator.SubmitService(ctx, jobID, workerID, tasks, equipment, now)
			},
			Local: func(j *model.Job) error {
				return jobops.ApplyServiceReport(j, workerID, tasks, equipment, now)
			},
		}, nil
	}

	return jobsource.Write{}, fmt.Errorf("unknown service action %q: %w", req.Action, model.ErrNotValid)
}
