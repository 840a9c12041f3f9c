package model

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus is the lifecycle status of a job as a whole.
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

var jobStatuses = []JobStatus{
	JobStatusCreated,
	JobStatusScheduled,
	JobStatusPending,
	JobStatusInProgress,
	JobStatusCompleted,
	JobStatusCancelled,
	JobStatusRescheduled,
}

// ParseJobStatus parses a job status ignoring case.
func ParseJobStatus(s string) (JobStatus, error) {
	for _, st := range jobStatuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown job status %q: %w", s, ErrNotValid)
}

// WorkerStatus is the status of a single worker on a job.
type WorkerStatus string

const (
	WorkerStatusPending    WorkerStatus = "Pending"
	WorkerStatusInProgress WorkerStatus = "In Progress"
	WorkerStatusCompleted  WorkerStatus = "Completed"
)

// ParseWorkerStatus parses a worker status ignoring case.
func ParseWorkerStatus(s string) (WorkerStatus, error) {
	for _, st := range []WorkerStatus{WorkerStatusPending, WorkerStatusInProgress, WorkerStatusCompleted} {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown worker status %q: %w", s, ErrNotValid)
}

// Priority is the priority of a job or a task.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// ParsePriority parses a priority ignoring case.
func ParsePriority(s string) (Priority, error) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		if strings.EqualFold(string(p), strings.TrimSpace(s)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q: %w", s, ErrNotValid)
}

// Coordinates is a geographic point.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// IsZero returns true when the coordinates have not been set.
func (c Coordinates) IsZero() bool { return c.Latitude == 0 && c.Longitude == 0 }

func (c Coordinates) String() string { return fmt.Sprintf("%f,%f", c.Latitude, c.Longitude) }

// Location is the place where a job is performed.
type Location struct {
	Name        string
	Address     string
	Coordinates Coordinates
}

// Contact is the customer contact person of a job.
type Contact struct {
	FullName string
	Email    string
	Phone    string
}

// AssignedWorker is the per worker state of a job.
type AssignedWorker struct {
	WorkerID   string
	WorkerName string
	Status     WorkerStatus
	StartedAt  *time.Time
	EndedAt    *time.Time
	Online     bool
}

// Job is a unit of field work assigned to one or more workers.
type Job struct {
	ID                string
	JobNo             string
	Name              string
	Description       string
	Status            JobStatus
	Priority          Priority
	CustomerID        string
	CustomerName      string
	Contact           Contact
	Location          Location
	AssignedWorkers   []AssignedWorker
	Tasks             []Task
	Equipment         []Equipment
	StartDate         time.Time
	EndDate           *time.Time
	EstimatedDuration time.Duration
	CompletedAt       *time.Time
	CompletedBy       string
	UpdatedAt         time.Time
	Version           int
}

// Worker returns the assignment of a worker on the job.
func (j Job) Worker(workerID string) (AssignedWorker, bool) {
	for _, w := range j.AssignedWorkers {
		if w.WorkerID == workerID {
			return w, true
		}
	}
	return AssignedWorker{}, false
}

// IsAssigned returns true if the worker is assigned to the job.
func (j Job) IsAssigned(workerID string) bool {
	_, ok := j.Worker(workerID)
	return ok
}

// SetWorker replaces the assignment of an already assigned worker.
func (j *Job) SetWorker(w AssignedWorker) error {
	for i := range j.AssignedWorkers {
		if j.AssignedWorkers[i].WorkerID == w.WorkerID {
			j.AssignedWorkers[i] = w
			return nil
		}
	}
	return fmt.Errorf("worker %s on job %s: %w", w.WorkerID, j.ID, ErrNotAssigned)
}

// Task returns the index of a task by ID, -1 if missing.
func (j Job) Task(taskID string) int {
	for i, t := range j.Tasks {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}

// EquipmentItem returns the index of an equipment item by serial number, -1 if missing.
func (j Job) EquipmentItem(serial string) int {
	for i, e := range j.Equipment {
		if e.SerialNumber == serial {
			return i
		}
	}
	return -1
}

// Copy returns a deep copy of the job.
func (j Job) Copy() Job {
	c := j
	c.AssignedWorkers = append([]AssignedWorker(nil), j.AssignedWorkers...)
	c.Tasks = append([]Task(nil), j.Tasks...)
	c.Equipment = append([]Equipment(nil), j.Equipment...)
	return c
}
