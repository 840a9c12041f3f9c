package jobops_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/fieldwork/internal/backend/memory"
	"github.com/slok/fieldwork/internal/jobops"
	"github.com/slok/fieldwork/internal/model"
)

var now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func scheduledJob() model.Job {
	return model.Job{
		ID:     "job-1",
		JobNo:  "JO-1001",
		Status: model.JobStatusScheduled,
		AssignedWorkers: []model.AssignedWorker{
			{WorkerID: "w1", Status: model.WorkerStatusPending},
			{WorkerID: "w2", Status: model.WorkerStatusPending},
		},
		Tasks:     []model.Task{{ID: "t1", Name: "Inspect"}},
		Equipment: []model.Equipment{{SerialNumber: "SN1", Status: model.EquipmentStatusAvailable}},
		StartDate: now,
	}
}

func newOperator(t *testing.T, jobs ...model.Job) (*jobops.Operator, *memory.Backend) {
	b, err := memory.NewBackend(memory.BackendConfig{})
	require.NoError(t, err)
	for _, j := range jobs {
		require.NoError(t, b.CreateJob(context.Background(), j))
	}

	op, err := jobops.NewOperator(jobops.OperatorConfig{Jobs: b, Attachments: b, Blobs: b})
	require.NoError(t, err)
	return op, b
}

func TestNewOperator(t *testing.T) {
	_, err := jobops.NewOperator(jobops.OperatorConfig{})
	assert.Error(t, err)
}

func TestOperatorStartJob(t *testing.T) {
	tests := map[string]struct {
		job        func() model.Job
		workerID   string
		expErr     error
		expApplied bool
	}{
		"Starting an assigned pending worker should start the job.": {
			job:      scheduledJob,
			workerID: "w1",
		},
		"A not assigned worker should fail.": {
			job:      scheduledJob,
			workerID: "w9",
			expErr:   model.ErrNotAssigned,
		},
		"An already started worker should fail.": {
			job: func() model.Job {
				j := scheduledJob()
				j.AssignedWorkers[0].Status = model.WorkerStatusInProgress
				return j
			},
			workerID:   "w1",
			expErr:     model.ErrNotAllowed,
			expApplied: true,
		},
		"A worker that already finished the job should fail as applied.": {
			job: func() model.Job {
				j := scheduledJob()
				j.Status = model.JobStatusCompleted
				j.AssignedWorkers[0].Status = model.WorkerStatusCompleted
				return j
			},
			workerID:   "w1",
			expErr:     model.ErrNotAllowed,
			expApplied: true,
		},
		"A completed job should fail.": {
			job: func() model.Job {
				j := scheduledJob()
				j.Status = model.JobStatusCompleted
				return j
			},
			workerID: "w1",
			expErr:   model.ErrNotAllowed,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			op, b := newOperator(t, test.job())

			j, err := op.StartJob(context.Background(), "job-1", test.workerID, now)
			if test.expErr != nil {
				assert.True(errors.Is(err, test.expErr), "got %v", err)
				assert.Equal(test.expApplied, jobops.IsApplied(err))
				stored, err := b.GetJob(context.Background(), "job-1")
				require.NoError(err)
				assert.Equal(1, stored.Version)
				return
			}

			require.NoError(err)
			assert.Equal(model.JobStatusInProgress, j.Status)
			w, _ := j.Worker(test.workerID)
			assert.Equal(model.WorkerStatusInProgress, w.Status)
			assert.Equal(now, *w.StartedAt)
			other, _ := j.Worker("w2")
			assert.Equal(model.WorkerStatusPending, other.Status)
			assert.Equal(2, j.Version)
			assert.Equal(now, j.UpdatedAt)
		})
	}
}

func TestOperatorTasks(t *testing.T) {
	ctx := context.Background()
	op, _ := newOperator(t, scheduledJob())

	_, err := op.AddTask(ctx, "job-1", model.Task{ID: "t2", Name: "  "}, now)
	assert.True(t, errors.Is(err, model.ErrNotValid))

	j, err := op.AddTask(ctx, "job-1", model.Task{ID: "t2", Name: "Replace filter"}, now)
	require.NoError(t, err)
	require.Len(t, j.Tasks, 2)

	j, err = op.AddTask(ctx, "job-1", model.Task{ID: "t2", Name: "Replace filter"}, now)
	require.NoError(t, err)
	assert.Len(t, j.Tasks, 2, "adding the same task twice should be a no-op")

	j, err = op.SetTaskDone(ctx, "job-1", "t2", "w1", true, now)
	require.NoError(t, err)
	assert.True(t, j.Tasks[1].Done)
	assert.Equal(t, "w1", j.Tasks[1].CompletedBy)
	assert.Equal(t, now, *j.Tasks[1].CompletedAt)

	j, err = op.SetTaskDone(ctx, "job-1", "t2", "w1", false, now)
	require.NoError(t, err)
	assert.False(t, j.Tasks[1].Done)
	assert.Nil(t, j.Tasks[1].CompletedAt)
	assert.Empty(t, j.Tasks[1].CompletedBy)

	j, err = op.DeleteTask(ctx, "job-1", "t1", now)
	require.NoError(t, err)
	require.Len(t, j.Tasks, 1)
	assert.Equal(t, "t2", j.Tasks[0].ID)

	_, err = op.DeleteTask(ctx, "job-1", "t1", now)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	_, err = op.SetTaskDone(ctx, "job-1", "t1", "w1", true, now)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestOperatorEquipment(t *testing.T) {
	ctx := context.Background()
	op, _ := newOperator(t, scheduledJob())

	j, err := op.SetEquipmentStatus(ctx, "job-1", "SN1", model.EquipmentStatusRepaired, "w1", now)
	require.NoError(t, err)
	assert.Equal(t, model.EquipmentStatusRepaired, j.Equipment[0].Status)
	assert.Equal(t, "w1", j.Equipment[0].UpdatedBy)

	_, err = op.SetEquipmentStatus(ctx, "job-1", "SN1", model.EquipmentStatus("lost"), "w1", now)
	assert.True(t, errors.Is(err, model.ErrNotValid))
	_, err = op.SetEquipmentStatus(ctx, "job-1", "SN9", model.EquipmentStatusFaulty, "w1", now)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestOperatorSubmitService(t *testing.T) {
	ctx := context.Background()
	op, _ := newOperator(t, scheduledJob())

	j, err := op.SubmitService(ctx, "job-1", "w1",
		[]model.Task{{ID: "t1", Name: "Inspect", Done: true}},
		[]model.Equipment{{SerialNumber: "SN1"}, {SerialNumber: "SN2", Status: model.EquipmentStatusReplaced}},
		now,
	)
	require.NoError(t, err)
	assert.True(t, j.Tasks[0].Done)
	require.Len(t, j.Equipment, 2)
	assert.Equal(t, model.EquipmentStatusAvailable, j.Equipment[0].Status)
	assert.Equal(t, "w1", j.Equipment[0].UpdatedBy)
	assert.Equal(t, model.EquipmentStatusReplaced, j.Equipment[1].Status)

	_, err = op.SubmitService(ctx, "job-1", "w9", nil, nil, now)
	assert.True(t, errors.Is(err, model.ErrNotAssigned))
}

func TestOperatorCompleteJob(t *testing.T) {
	started := func() model.Job {
		j := scheduledJob()
		j.Status = model.JobStatusInProgress
		j.AssignedWorkers[0].Status = model.WorkerStatusInProgress
		return j
	}

	tests := map[string]struct {
		job        func() model.Job
		signatures []model.SignatureKind
		expErr     error
	}{
		"Completing with both signatures should complete the job.": {
			job:        started,
			signatures: []model.SignatureKind{model.SignatureKindTechnician, model.SignatureKindCustomer},
		},
		"Completing without the customer signature should fail.": {
			job:        started,
			signatures: []model.SignatureKind{model.SignatureKindTechnician},
			expErr:     model.ErrNotAllowed,
		},
		"Completing without signatures should fail.": {
			job:    started,
			expErr: model.ErrNotAllowed,
		},
		"Completing a job another worker completed should fail.": {
			job: func() model.Job {
				j := started()
				j.Status = model.JobStatusCompleted
				j.AssignedWorkers[1].Status = model.WorkerStatusCompleted
				return j
			},
			signatures: []model.SignatureKind{model.SignatureKindTechnician, model.SignatureKindCustomer},
			expErr:     model.ErrNotAllowed,
		},
		"Completing a not started job should fail.": {
			job:        scheduledJob,
			signatures: []model.SignatureKind{model.SignatureKindTechnician, model.SignatureKindCustomer},
			expErr:     model.ErrNotAllowed,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()
			op, _ := newOperator(t, test.job())

			for _, k := range test.signatures {
				_, err := op.SaveSignature(ctx, "job-1", "w1", k, []byte("png"), now)
				require.NoError(err)
			}

			j, err := op.CompleteJob(ctx, "job-1", "w1", now)
			if test.expErr != nil {
				assert.True(errors.Is(err, test.expErr), "got %v", err)
				assert.False(jobops.IsApplied(err))
				return
			}

			require.NoError(err)
			assert.Equal(model.JobStatusCompleted, j.Status)
			assert.Equal(now, *j.CompletedAt)
			assert.Equal("w1", j.CompletedBy)
			w, _ := j.Worker("w1")
			assert.Equal(model.WorkerStatusCompleted, w.Status)
			assert.Equal(now, *w.EndedAt)

			_, err = op.CompleteJob(ctx, "job-1", "w1", now)
			assert.True(errors.Is(err, model.ErrNotAllowed), "a completed job can't be modified")
			assert.True(jobops.IsApplied(err))
		})
	}
}

func TestOperatorSaveSignature(t *testing.T) {
	ctx := context.Background()
	op, b := newOperator(t, scheduledJob())

	_, err := op.SaveSignature(ctx, "job-1", "w1", model.SignatureKindCustomer, nil, now)
	assert.True(t, errors.Is(err, model.ErrNotValid))

	sig, err := op.SaveSignature(ctx, "job-1", "w1", model.SignatureKindCustomer, []byte("png"), now)
	require.NoError(t, err)
	assert.Contains(t, sig.URL, "jobs/job-1/signatures/customer_w1_")

	got, err := b.GetSignature(ctx, "job-1", model.SignatureKindCustomer, "w1")
	require.NoError(t, err)
	assert.Equal(t, sig, *got)
}

func TestOperatorUploadImage(t *testing.T) {
	ctx := context.Background()
	op, b := newOperator(t, scheduledJob())

	_, err := op.UploadImage(ctx, model.Image{JobID: "job-1", Description: ""}, "image/jpeg", []byte("jpg"))
	assert.True(t, errors.Is(err, model.ErrNotValid))

	img := model.Image{ID: "img-1", JobID: "job-1", Description: "Before", UploadedBy: "w1", CreatedAt: now}
	got, err := op.UploadImage(ctx, img, "image/jpeg", []byte("jpg"))
	require.NoError(t, err)
	assert.Equal(t, "mem://jobs/job-1/images/img-1.jpg", got.URL)

	again, err := op.UploadImage(ctx, img, "image/jpeg", []byte("jpg"))
	require.NoError(t, err)
	assert.Equal(t, got, again)

	imgs, err := b.ListImages(ctx, "job-1")
	require.NoError(t, err)
	assert.Len(t, imgs, 1)

	require.NoError(t, op.DeleteImage(ctx, "job-1", "img-1"))
	imgs, err = b.ListImages(ctx, "job-1")
	require.NoError(t, err)
	assert.Empty(t, imgs)
}
