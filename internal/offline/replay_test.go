package offline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	backendmemory "github.com/slok/fieldwork/internal/backend/memory"
	"github.com/slok/fieldwork/internal/jobops"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/offline"
	"github.com/slok/fieldwork/internal/storage/memory"
)

func newReplayer(t *testing.T) (*offline.BackendReplayer, *backendmemory.Backend) {
	b, err := backendmemory.NewBackend(backendmemory.BackendConfig{})
	require.NoError(t, err)

	err = b.CreateJob(context.Background(), model.Job{
		ID:              "job-1",
		JobNo:           "JO-1001",
		Status:          model.JobStatusScheduled,
		AssignedWorkers: []model.AssignedWorker{{WorkerID: "w1", Status: model.WorkerStatusPending}},
		Tasks:           []model.Task{{ID: "t1", Name: "Inspect"}},
		Equipment:       []model.Equipment{{SerialNumber: "SN1", Status: model.EquipmentStatusAvailable}},
		StartDate:       t0,
	})
	require.NoError(t, err)

	op, err := jobops.NewOperator(jobops.OperatorConfig{Jobs: b, Attachments: b, Blobs: b})
	require.NoError(t, err)

	r, err := offline.NewBackendReplayer(op, nil)
	require.NoError(t, err)
	return r, b
}

func TestBackendReplayerDrainsAWorkSession(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	r, b := newReplayer(t)
	q := newQueue(t)

	require.NoError(b.SaveSignature(ctx, model.Signature{JobID: "job-1", Kind: model.SignatureKindTechnician, WorkerID: "w1"}))
	require.NoError(b.SaveSignature(ctx, model.Signature{JobID: "job-1", Kind: model.SignatureKindCustomer, WorkerID: "w1"}))

	enqueue := func(t model.ActionType, p any) { require.NoError(q.Enqueue(ctx, t, p)) }
	enqueue(model.ActionStartJob, offline.StartJobPayload{JobID: "job-1", WorkerID: "w1", At: t0})
	enqueue(model.ActionAddTask, offline.AddTaskPayload{JobID: "job-1", Task: model.Task{ID: "t2", Name: "Clean"}, At: t0})
	enqueue(model.ActionToggleTask, offline.ToggleTaskPayload{JobID: "job-1", TaskID: "t2", WorkerID: "w1", Done: true, At: t0})
	enqueue(model.ActionDeleteTask, offline.DeleteTaskPayload{JobID: "job-1", TaskID: "t1", At: t0})
	enqueue(model.ActionDeleteTask, offline.DeleteTaskPayload{JobID: "job-1", TaskID: "t1", At: t0})
	enqueue(model.ActionUpdateEquipment, offline.UpdateEquipmentPayload{JobID: "job-1", SerialNumber: "SN1", Status: model.EquipmentStatusReplaced, WorkerID: "w1", At: t0})
	enqueue(model.ActionUploadImage, offline.UploadImagePayload{
		Image:       model.Image{ID: "img-1", JobID: "job-1", Description: "After", UploadedBy: "w1", CreatedAt: t0},
		ContentType: "image/png",
		Data:        []byte("png"),
	})
	enqueue(model.ActionCompleteJob, offline.CompleteJobPayload{JobID: "job-1", WorkerID: "w1", At: t0})

	res, err := q.Drain(ctx, r)
	require.NoError(err)
	assert.Equal(offline.DrainResult{Replayed: 8}, res)

	j, err := b.GetJob(ctx, "job-1")
	require.NoError(err)
	assert.Equal(model.JobStatusCompleted, j.Status)
	require.Len(j.Tasks, 1)
	assert.Equal("t2", j.Tasks[0].ID)
	assert.True(j.Tasks[0].Done)
	assert.Equal(model.EquipmentStatusReplaced, j.Equipment[0].Status)
	w, _ := j.Worker("w1")
	assert.Equal(model.WorkerStatusCompleted, w.Status)

	imgs, err := b.ListImages(ctx, "job-1")
	require.NoError(err)
	require.Len(imgs, 1)
	data, ok := b.Blob("jobs/job-1/images/img-1.png")
	assert.True(ok)
	assert.Equal([]byte("png"), data)
}

func TestBackendReplayerReplay(t *testing.T) {
	tests := map[string]struct {
		action model.OfflineAction
		expErr error
	}{
		"An unknown action type should fail as unsupported.": {
			action: model.OfflineAction{ID: "1", Type: model.ActionType("SEND_EMAIL"), Payload: []byte(`{}`)},
			expErr: offline.ErrUnsupportedAction,
		},
		"A malformed payload should fail as not valid.": {
			action: model.OfflineAction{ID: "1", Type: model.ActionStartJob, Payload: []byte(`{`)},
			expErr: model.ErrNotValid,
		},
		"Completing without signatures should fail.": {
			action: model.OfflineAction{ID: "1", Type: model.ActionCompleteJob, Payload: []byte(`{"jobId":"job-1","workerId":"w1"}`)},
			expErr: model.ErrNotAllowed,
		},
		"Starting a missing job should fail.": {
			action: model.OfflineAction{ID: "1", Type: model.ActionStartJob, Payload: []byte(`{"jobId":"job-9","workerId":"w1"}`)},
			expErr: model.ErrNotFound,
		},
		"Updating the job status should succeed.": {
			action: model.OfflineAction{ID: "1", Type: model.ActionUpdateJobStatus, Payload: []byte(`{"jobId":"job-1","status":"Rescheduled"}`)},
		},
		"Submitting a service report should succeed.": {
			action: model.OfflineAction{ID: "1", Type: model.ActionSubmitService, Payload: []byte(`{"jobId":"job-1","workerId":"w1","tasks":[],"equipment":[]}`)},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			r, _ := newReplayer(t)

			err := r.Replay(context.Background(), test.action)
			if test.expErr != nil {
				assert.True(t, errors.Is(err, test.expErr), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// flakyDeleteRepository fails removing the first replayed action, like a
// process dying between the replay and the removal.
type flakyDeleteRepository struct {
	*memory.Repository
	failed bool
}

func (r *flakyDeleteRepository) DeleteAction(ctx context.Context, id string) error {
	if !r.failed {
		r.failed = true
		return errors.New("interrupted")
	}
	return r.Repository.DeleteAction(ctx, id)
}

func TestBackendReplayerAppliedActionsDoNotBlockTheQueue(t *testing.T) {
	tests := map[string]struct {
		actions []model.ActionType
	}{
		"A start replayed again after an interrupted drain should be a no-op.": {
			actions: []model.ActionType{model.ActionStartJob},
		},
		"A completion replayed again after an interrupted drain should be a no-op.": {
			actions: []model.ActionType{model.ActionStartJob, model.ActionCompleteJob},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()
			r, b := newReplayer(t)
			op, err := jobops.NewOperator(jobops.OperatorConfig{Jobs: b, Attachments: b, Blobs: b})
			require.NoError(err)

			require.NoError(b.SaveSignature(ctx, model.Signature{JobID: "job-1", Kind: model.SignatureKindTechnician, WorkerID: "w1"}))
			require.NoError(b.SaveSignature(ctx, model.Signature{JobID: "job-1", Kind: model.SignatureKindCustomer, WorkerID: "w1"}))

			repo, err := memory.NewRepository(memory.RepositoryConfig{})
			require.NoError(err)
			q, err := offline.NewQueue(offline.QueueConfig{Repository: &flakyDeleteRepository{Repository: repo}})
			require.NoError(err)

			for _, at := range test.actions {
				switch at {
				case model.ActionStartJob:
					require.NoError(q.Enqueue(ctx, at, offline.StartJobPayload{JobID: "job-1", WorkerID: "w1", At: t0}))
				case model.ActionCompleteJob:
					require.NoError(q.Enqueue(ctx, at, offline.CompleteJobPayload{JobID: "job-1", WorkerID: "w1", At: t0}))
				}
			}
			// Applying everything up front makes every replay a repeated one.
			for _, at := range test.actions {
				switch at {
				case model.ActionStartJob:
					_, err = op.StartJob(ctx, "job-1", "w1", t0)
				case model.ActionCompleteJob:
					_, err = op.CompleteJob(ctx, "job-1", "w1", t0)
				}
				require.NoError(err)
			}

			_, err = q.Drain(ctx, r)
			require.Error(err)

			res, err := q.Drain(ctx, r)
			require.NoError(err)
			assert.Equal(offline.DrainResult{Replayed: len(test.actions)}, res)

			res, err = q.Drain(ctx, r)
			require.NoError(err)
			assert.Equal(offline.DrainResult{}, res)

			pending, err := q.Pending(ctx)
			require.NoError(err)
			assert.Empty(pending)
		})
	}
}
