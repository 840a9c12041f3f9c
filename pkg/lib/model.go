package lib

import (
	"errors"
	"time"

	"github.com/slok/fieldwork/internal/lifecycle"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/session"
)

var (
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotValid is returned on invalid input.
	ErrNotValid = errors.New("not valid")
	// ErrNotAllowed is returned when the workflow does not allow the operation yet.
	ErrNotAllowed = errors.New("not allowed")
	// ErrOffline is returned when the operation needs the backend.
	ErrOffline = errors.New("offline")
	// ErrNoSession is returned when no worker is signed in.
	ErrNoSession = errors.New("no active session")
	// ErrUnauthenticated is returned on wrong credentials.
	ErrUnauthenticated = errors.New("invalid credentials")
)

// JobStatus is the status of a job.
type JobStatus string

const (
	JobStatusCreated     JobStatus = "Created"
	JobStatusScheduled   JobStatus = "Scheduled"
	JobStatusPending     JobStatus = "Pending"
	JobStatusInProgress  JobStatus = "In Progress"
	JobStatusCompleted   JobStatus = "Completed"
	JobStatusCancelled   JobStatus = "Cancelled"
	JobStatusRescheduled JobStatus = "Rescheduled"
)

// Stage is a section of the job workflow. Stages are entered in order:
//
//	details -> navigate -> service -> complete
type Stage string

const (
	StageDetails  Stage = "details"
	StageNavigate Stage = "navigate"
	StageService  Stage = "service"
	StageComplete Stage = "complete"
)

// JobView selects the jobs of a listing.
type JobView string

const (
	// JobViewAll lists every assigned job.
	JobViewAll JobView = "all"
	// JobViewCurrent lists the jobs from today on.
	JobViewCurrent JobView = "current"
	// JobViewHistory lists the jobs before today.
	JobViewHistory JobView = "history"
)

// ListJobsOpts configures [Client.ListJobs].
type ListJobsOpts struct {
	// Query searches by job number, name, customer and location.
	Query string
	// View defaults to [JobViewAll].
	View JobView
}

// Session is the signed in worker.
type Session struct {
	WorkerID string
	Email    string
	FullName string
	// Offline is true when the session was opened without reaching the backend.
	Offline bool
}

// Job is a unit of field work.
//
// This is a read-only snapshot of the job at the time of the API call.
type Job struct {
	ID           string
	JobNo        string
	Name         string
	Status       JobStatus
	CustomerID   string
	CustomerName string
	LocationName string
	Address      string
	StartDate    time.Time
	Tasks        []Task
	Version      int
}

// Task is an item of the job service section.
type Task struct {
	ID   string
	Name string
	Done bool
}

// StageProgress is the workflow state of the worker on a job.
type StageProgress struct {
	// Active is the stage the worker is on.
	Active Stage
	// Done are the completed stages.
	Done []Stage
}

// JobDetail is a job with the workflow state of the worker.
type JobDetail struct {
	Job      Job
	Progress StageProgress
	// Cached is true when the job comes from the device cache.
	Cached bool
}

// WriteResult is the job after a write.
type WriteResult struct {
	Job Job
	// Queued is true when the write was applied locally and queued for sync.
	Queued bool
}

// Decision is the workflow gate answer to a stage request.
type Decision struct {
	Stage   Stage
	Allowed bool
	// Reason, Title and Message explain a rejection.
	Reason  string
	Title   string
	Message string
}

// OfflineAction is a write queued while offline.
type OfflineAction struct {
	ID        string
	Seq       int64
	Type      string
	Timestamp time.Time
}

// SyncResult is the outcome of [Client.Sync].
type SyncResult struct {
	Online   bool
	Replayed int
	// Pending are the actions still queued.
	Pending []OfflineAction
}

// SeedResult counts the resources created by [Client.LoadFixtures].
type SeedResult struct {
	Workers int
	Jobs    int
	Skipped int
}

func fromInternalSession(s session.Session) Session {
	return Session{
		WorkerID: s.WorkerID,
		Email:    s.Email,
		FullName: s.FullName,
		Offline:  s.Offline,
	}
}

func fromInternalJob(j model.Job) Job {
	job := Job{
		ID:           j.ID,
		JobNo:        j.JobNo,
		Name:         j.Name,
		Status:       JobStatus(j.Status),
		CustomerID:   j.CustomerID,
		CustomerName: j.CustomerName,
		LocationName: j.Location.Name,
		Address:      j.Location.Address,
		StartDate:    j.StartDate,
		Version:      j.Version,
	}
	for _, t := range j.Tasks {
		job.Tasks = append(job.Tasks, Task{ID: t.ID, Name: t.Name, Done: t.Done})
	}
	return job
}

func fromInternalJobList(jobs []model.Job) []Job {
	result := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		result = append(result, fromInternalJob(j))
	}
	return result
}

func fromInternalProgress(p model.StageProgress) StageProgress {
	result := StageProgress{Active: Stage(p.Active)}
	for _, s := range model.Stages() {
		if p.Flags.Done(s) {
			result.Done = append(result.Done, Stage(s))
		}
	}
	return result
}

func fromInternalDecision(d lifecycle.Decision) Decision {
	result := Decision{Stage: Stage(d.Stage), Allowed: d.Allowed}
	if d.Rejection != nil {
		result.Reason = string(d.Rejection.Reason)
		result.Title = d.Rejection.Title
		result.Message = d.Rejection.Message
	}
	return result
}

func fromInternalActions(actions []model.OfflineAction) []OfflineAction {
	result := make([]OfflineAction, 0, len(actions))
	for _, a := range actions {
		result = append(result, OfflineAction{
			ID:        a.ID,
			Seq:       a.Seq,
			Type:      string(a.Type),
			Timestamp: a.Timestamp,
		})
	}
	return result
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case errors.Is(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	case errors.Is(err, model.ErrNotAllowed), errors.Is(err, model.ErrNotAssigned):
		return joinErrors(err, ErrNotAllowed)
	case errors.Is(err, model.ErrOffline):
		return joinErrors(err, ErrOffline)
	case errors.Is(err, model.ErrNoSession):
		return joinErrors(err, ErrNoSession)
	case errors.Is(err, model.ErrUnauthenticated):
		return joinErrors(err, ErrUnauthenticated)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

// mappedError keeps the internal error chain while matching the public sentinel.
type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
