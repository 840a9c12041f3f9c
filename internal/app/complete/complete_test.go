package complete_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/fieldwork/internal/app/apptest"
	"github.com/slok/fieldwork/internal/app/complete"
	"github.com/slok/fieldwork/internal/model"
)

var pngData = []byte("\x89PNG\r\n\x1a\n")

func TestServiceRun(t *testing.T) {
	tests := map[string]struct {
		job         model.Job
		serviceDone bool
		signatures  []model.SignatureKind
		offline     bool
		expErr      error
		expQueued   bool
	}{
		"A serviced job with both signatures should be completed.": {
			job:         apptest.StartedJob("1"),
			serviceDone: true,
			signatures:  []model.SignatureKind{model.SignatureKindTechnician, model.SignatureKindCustomer},
		},
		"A job without customer signature should not be completed.": {
			job:         apptest.StartedJob("1"),
			serviceDone: true,
			signatures:  []model.SignatureKind{model.SignatureKindTechnician},
			expErr:      model.ErrNotAllowed,
		},
		"A job with the service pending should be rejected.": {
			job:        apptest.StartedJob("1"),
			signatures: []model.SignatureKind{model.SignatureKindTechnician, model.SignatureKindCustomer},
			expErr:     model.ErrNotAllowed,
		},
		"A job not started by the worker should be rejected.": {
			job:         apptest.ScheduledJob("1"),
			serviceDone: true,
			expErr:      model.ErrNotAllowed,
		},
		"Offline, the completion should be queued.": {
			job:         apptest.StartedJob("1"),
			serviceDone: true,
			offline:     true,
			expQueued:   true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			env := apptest.NewEnv(t)
			env.AddJobs(t, test.job)
			for _, k := range test.signatures {
				_, err := env.Operator.SaveSignature(ctx, "1", "w1", k, pngData, apptest.Now)
				require.NoError(err)
			}
			if test.serviceDone {
				_, err := env.Tracker.MarkDone(ctx, "1", "w1", model.StageService)
				require.NoError(err)
			}
			_, err := env.Source.Get(ctx, "1")
			require.NoError(err)
			env.SetOnline(!test.offline)

			svc, err := complete.NewService(complete.ServiceConfig{Source: env.Source, Operator: env.Operator, Tracker: env.Tracker, Now: env.Clock})
			require.NoError(err)

			res, err := svc.Run(ctx, complete.Request{Session: env.Session, JobID: "1"})
			if test.expErr != nil {
				assert.True(errors.Is(err, test.expErr), "got %v", err)
				assert.Equal(test.job.Status, env.Job(t, "1").Status)
				return
			}
			require.NoError(err)

			assert.Equal(test.expQueued, res.Queued)
			assert.Equal(model.JobStatusCompleted, res.Job.Status)
			w, _ := res.Job.Worker("w1")
			assert.Equal(model.WorkerStatusCompleted, w.Status)
			assert.True(res.Progress.Flags.Complete)

			if test.expQueued {
				pending, err := env.Queue.Pending(ctx)
				require.NoError(err)
				require.Len(pending, 1)
				assert.Equal(model.ActionCompleteJob, pending[0].Type)
			} else {
				assert.Equal(model.JobStatusCompleted, env.Job(t, "1").Status)
			}
		})
	}
}
