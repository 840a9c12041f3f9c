// Package apptest wires the use case dependencies on memory implementations
// for tests.
package apptest

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/slok/fieldwork/internal/backend/memory"
	"github.com/slok/fieldwork/internal/jobops"
	"github.com/slok/fieldwork/internal/jobsource"
	"github.com/slok/fieldwork/internal/lifecycle"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/offline"
	"github.com/slok/fieldwork/internal/session"
	storagememory "github.com/slok/fieldwork/internal/storage/memory"
)

// Now is the fixed clock of the environment.
var Now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

// Env is a use case test environment.
type Env struct {
	Backend  *memory.Backend
	Storage  *storagememory.Repository
	Source   *jobsource.Source
	Queue    *offline.Queue
	Operator *jobops.Operator
	Tracker  *lifecycle.Tracker
	Session  session.Session

	online atomic.Bool
}

// NewEnv returns a new online environment with the worker "w1" signed in.
func NewEnv(t *testing.T) *Env {
	require := require.New(t)

	e := &Env{Session: session.Session{WorkerID: "w1", UID: "uid-1", Email: "w1@example.com", FullName: "Worker One"}}
	e.online.Store(true)

	var err error
	e.Backend, err = memory.NewBackend(memory.BackendConfig{})
	require.NoError(err)
	e.Storage, err = storagememory.NewRepository(storagememory.RepositoryConfig{})
	require.NoError(err)

	e.Queue, err = offline.NewQueue(offline.QueueConfig{
		Repository: e.Storage,
		Now:        func() time.Time { return Now },
	})
	require.NoError(err)

	e.Source, err = jobsource.NewSource(jobsource.SourceConfig{
		Jobs:         e.Backend,
		Cache:        e.Storage,
		Connectivity: e,
		Queue:        e.Queue,
	})
	require.NoError(err)

	e.Operator, err = jobops.NewOperator(jobops.OperatorConfig{Jobs: e.Backend, Attachments: e.Backend, Blobs: e.Backend})
	require.NoError(err)

	e.Tracker, err = lifecycle.NewTracker(lifecycle.TrackerConfig{Repository: e.Storage})
	require.NoError(err)

	return e
}

// Check satisfies connectivity.Checker.
func (e *Env) Check(context.Context) bool { return e.online.Load() }

// SetOnline sets the connectivity of the environment.
func (e *Env) SetOnline(online bool) { e.online.Store(online) }

// Clock returns the fixed clock func.
func (e *Env) Clock() time.Time { return Now }

// AddJobs stores jobs on the backend.
func (e *Env) AddJobs(t *testing.T, jobs ...model.Job) {
	for _, j := range jobs {
		require.NoError(t, e.Backend.CreateJob(context.Background(), j))
	}
}

// Job returns a job stored on the backend.
func (e *Env) Job(t *testing.T, id string) model.Job {
	j, err := e.Backend.GetJob(context.Background(), id)
	require.NoError(t, err)
	return *j
}

// ClockIn clocks the worker in for today.
func (e *Env) ClockIn(t *testing.T, workerID string) {
	a := model.Attendance{WorkerID: workerID, Day: model.Day(Now)}
	require.NoError(t, a.ClockInAt(Now.Add(-time.Hour)))
	require.NoError(t, e.Backend.SaveAttendance(context.Background(), a))
}

// ScheduledJob returns a scheduled job assigned to w1 and w2.
func ScheduledJob(id string) model.Job {
	return model.Job{
		ID:           id,
		JobNo:        "JO-" + id,
		Name:         "Aircon service",
		Status:       model.JobStatusScheduled,
		Priority:     model.PriorityMedium,
		CustomerID:   "c1",
		CustomerName: "Acme Corp",
		Location: model.Location{
			Name:        "Acme HQ",
			Address:     "1 Main Street",
			Coordinates: model.Coordinates{Latitude: 1.30, Longitude: 103.85},
		},
		AssignedWorkers: []model.AssignedWorker{
			{WorkerID: "w1", WorkerName: "Worker One", Status: model.WorkerStatusPending},
			{WorkerID: "w2", WorkerName: "Worker Two", Status: model.WorkerStatusPending},
		},
		Tasks:     []model.Task{{ID: "t1", Name: "Inspect filters"}},
		Equipment: []model.Equipment{{SerialNumber: "SN1", ItemName: "Split unit", Status: model.EquipmentStatusAvailable}},
		StartDate: Now,
	}
}

// StartedJob returns a job in progress by w1.
func StartedJob(id string) model.Job {
	j := ScheduledJob(id)
	started := Now.Add(-30 * time.Minute)
	j.Status = model.JobStatusInProgress
	j.AssignedWorkers[0].Status = model.WorkerStatusInProgress
	j.AssignedWorkers[0].StartedAt = &started
	return j
}
