package stage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/fieldwork/internal/app/apptest"
	"github.com/slok/fieldwork/internal/app/stage"
	"github.com/slok/fieldwork/internal/lifecycle"
	"github.com/slok/fieldwork/internal/model"
)

func TestServiceRun(t *testing.T) {
	completed := apptest.StartedJob("1")
	completed.Status = model.JobStatusCompleted

	tests := map[string]struct {
		job         *model.Job
		serviceDone bool
		target      model.Stage
		expAllowed  bool
		expReason   lifecycle.Reason
		expActive   model.Stage
	}{
		"Details should always be allowed on an open job.": {
			job:        func() *model.Job { j := apptest.ScheduledJob("1"); return &j }(),
			target:     model.StageDetails,
			expAllowed: true,
			expActive:  model.StageDetails,
		},
		"Service on a job not started by the worker should be rejected.": {
			job:       func() *model.Job { j := apptest.ScheduledJob("1"); return &j }(),
			target:    model.StageService,
			expReason: lifecycle.ReasonJobNotStarted,
			expActive: model.StageDetails,
		},
		"Navigate on a completed job should be rejected as terminal.": {
			job:         &completed,
			serviceDone: true,
			target:      model.StageNavigate,
			expReason:   lifecycle.ReasonJobCompleted,
			expActive:   model.StageDetails,
		},
		"Complete before the service should be rejected.": {
			job:       func() *model.Job { j := apptest.StartedJob("1"); return &j }(),
			target:    model.StageComplete,
			expReason: lifecycle.ReasonServicePending,
			expActive: model.StageDetails,
		},
		"Complete after the service should be allowed.": {
			job:         func() *model.Job { j := apptest.StartedJob("1"); return &j }(),
			serviceDone: true,
			target:      model.StageComplete,
			expAllowed:  true,
			expActive:   model.StageComplete,
		},
		"A missing job should be rejected as unavailable.": {
			target:    model.StageService,
			expReason: lifecycle.ReasonJobUnavailable,
			expActive: model.StageDetails,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			env := apptest.NewEnv(t)
			if test.job != nil {
				env.AddJobs(t, *test.job)
			}
			if test.serviceDone {
				_, err := env.Tracker.MarkDone(ctx, "1", "w1", model.StageService)
				require.NoError(err)
			}

			svc, err := stage.NewService(stage.ServiceConfig{Source: env.Source, Tracker: env.Tracker})
			require.NoError(err)

			res, err := svc.Run(ctx, stage.Request{Session: env.Session, JobID: "1", Target: test.target})
			require.NoError(err)

			assert.Equal(test.expAllowed, res.Decision.Allowed)
			if !test.expAllowed {
				require.NotNil(res.Decision.Rejection)
				assert.Equal(test.expReason, res.Decision.Rejection.Reason)
			}
			assert.Equal(test.expActive, res.Progress.Active)
		})
	}
}
