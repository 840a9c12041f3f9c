package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/fieldwork/internal/model"
)

// MockActionRepository is a mock of storage.ActionRepository.
type MockActionRepository struct {
	mock.Mock
}

func (_m *MockActionRepository) AppendAction(ctx context.Context, a model.OfflineAction) (model.OfflineAction, error) {
	ret := _m.Called(ctx, a)

	if rf, ok := ret.Get(0).(func(context.Context, model.OfflineAction) (model.OfflineAction, error)); ok {
		return rf(ctx, a)
	}
	return ret.Get(0).(model.OfflineAction), ret.Error(1)
}

func (_m *MockActionRepository) ListActions(ctx context.Context) ([]model.OfflineAction, error) {
	ret := _m.Called(ctx)

	var r0 []model.OfflineAction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.OfflineAction)
	}
	return r0, ret.Error(1)
}

func (_m *MockActionRepository) DeleteAction(ctx context.Context, id string) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// MockProgressRepository is a mock of storage.ProgressRepository.
type MockProgressRepository struct {
	mock.Mock
}

func (_m *MockProgressRepository) GetProgress(ctx context.Context, jobID, workerID string) (*model.StageProgress, error) {
	ret := _m.Called(ctx, jobID, workerID)

	var r0 *model.StageProgress
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.StageProgress)
	}
	return r0, ret.Error(1)
}

func (_m *MockProgressRepository) SaveProgress(ctx context.Context, p model.StageProgress) error {
	ret := _m.Called(ctx, p)
	return ret.Error(0)
}

func (_m *MockProgressRepository) DeleteProgress(ctx context.Context, jobID, workerID string) error {
	ret := _m.Called(ctx, jobID, workerID)
	return ret.Error(0)
}

// MockJobCache is a mock of storage.JobCache.
type MockJobCache struct {
	mock.Mock
}

func (_m *MockJobCache) PutJob(ctx context.Context, j model.Job) error {
	ret := _m.Called(ctx, j)
	return ret.Error(0)
}

func (_m *MockJobCache) GetJob(ctx context.Context, id string) (*model.Job, error) {
	ret := _m.Called(ctx, id)

	var r0 *model.Job
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Job)
	}
	return r0, ret.Error(1)
}

func (_m *MockJobCache) ListJobs(ctx context.Context) ([]model.Job, error) {
	ret := _m.Called(ctx)

	var r0 []model.Job
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.Job)
	}
	return r0, ret.Error(1)
}

func (_m *MockJobCache) ClearJobs(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

// MockKV is a mock of storage.KV.
type MockKV struct {
	mock.Mock
}

func (_m *MockKV) GetValue(ctx context.Context, key string) ([]byte, error) {
	ret := _m.Called(ctx, key)

	var r0 []byte
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}
	return r0, ret.Error(1)
}

func (_m *MockKV) SetValue(ctx context.Context, key string, value []byte) error {
	ret := _m.Called(ctx, key, value)
	return ret.Error(0)
}

func (_m *MockKV) DeleteValue(ctx context.Context, key string) error {
	ret := _m.Called(ctx, key)
	return ret.Error(0)
}
