package backendmock

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/model"
)

// MockJobRepository is a mock of backend.JobRepository.
type MockJobRepository struct {
	mock.Mock
}

func (_m *MockJobRepository) ListJobs(ctx context.Context, q backend.JobQuery) ([]model.Job, error) {
	ret := _m.Called(ctx, q)

	var r0 []model.Job
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.Job)
	}
	return r0, ret.Error(1)
}

func (_m *MockJobRepository) GetJob(ctx context.Context, id string) (*model.Job, error) {
	ret := _m.Called(ctx, id)

	var r0 *model.Job
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Job)
	}
	return r0, ret.Error(1)
}

func (_m *MockJobRepository) CreateJob(ctx context.Context, j model.Job) error {
	ret := _m.Called(ctx, j)
	return ret.Error(0)
}

func (_m *MockJobRepository) UpdateJob(ctx context.Context, j model.Job) (model.Job, error) {
	ret := _m.Called(ctx, j)

	if rf, ok := ret.Get(0).(func(context.Context, model.Job) (model.Job, error)); ok {
		return rf(ctx, j)
	}
	return ret.Get(0).(model.Job), ret.Error(1)
}

// MockWorkerRepository is a mock of backend.WorkerRepository.
type MockWorkerRepository struct {
	mock.Mock
}

func (_m *MockWorkerRepository) GetWorker(ctx context.Context, id string) (*model.Worker, error) {
	ret := _m.Called(ctx, id)

	var r0 *model.Worker
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Worker)
	}
	return r0, ret.Error(1)
}

func (_m *MockWorkerRepository) GetWorkerByUID(ctx context.Context, uid string) (*model.Worker, error) {
	ret := _m.Called(ctx, uid)

	var r0 *model.Worker
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Worker)
	}
	return r0, ret.Error(1)
}

func (_m *MockWorkerRepository) CreateWorker(ctx context.Context, w model.Worker) error {
	ret := _m.Called(ctx, w)
	return ret.Error(0)
}

func (_m *MockWorkerRepository) SetPresence(ctx context.Context, id string, online bool, at time.Time) error {
	ret := _m.Called(ctx, id, online, at)
	return ret.Error(0)
}

// MockAttendanceRepository is a mock of backend.AttendanceRepository.
type MockAttendanceRepository struct {
	mock.Mock
}

func (_m *MockAttendanceRepository) GetAttendance(ctx context.Context, workerID, day string) (*model.Attendance, error) {
	ret := _m.Called(ctx, workerID, day)

	var r0 *model.Attendance
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Attendance)
	}
	return r0, ret.Error(1)
}

func (_m *MockAttendanceRepository) SaveAttendance(ctx context.Context, a model.Attendance) error {
	ret := _m.Called(ctx, a)
	return ret.Error(0)
}

// MockBlobStore is a mock of backend.BlobStore.
type MockBlobStore struct {
	mock.Mock
}

func (_m *MockBlobStore) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	ret := _m.Called(ctx, key, contentType, r)
	return ret.String(0), ret.Error(1)
}

// MockDirections is a mock of backend.Directions.
type MockDirections struct {
	mock.Mock
}

func (_m *MockDirections) Route(ctx context.Context, origin, destination model.Coordinates) (*model.Route, error) {
	ret := _m.Called(ctx, origin, destination)

	var r0 *model.Route
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Route)
	}
	return r0, ret.Error(1)
}

var (
	_ backend.JobRepository        = &MockJobRepository{}
	_ backend.WorkerRepository     = &MockWorkerRepository{}
	_ backend.AttendanceRepository = &MockAttendanceRepository{}
	_ backend.BlobStore            = &MockBlobStore{}
	_ backend.Directions           = &MockDirections{}
)
