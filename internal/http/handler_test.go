package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/fieldwork/internal/app/apptest"
	"github.com/slok/fieldwork/internal/app/customers"
	"github.com/slok/fieldwork/internal/app/dashboard"
	"github.com/slok/fieldwork/internal/app/joblist"
	"github.com/slok/fieldwork/internal/app/jobshow"
	"github.com/slok/fieldwork/internal/app/stage"
	"github.com/slok/fieldwork/internal/app/sync"
	fieldworkhttp "github.com/slok/fieldwork/internal/http"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/offline"
	"github.com/slok/fieldwork/internal/session"
)

type sessionsFunc func(ctx context.Context) (session.Session, error)

func (f sessionsFunc) Current(ctx context.Context) (session.Session, error) { return f(ctx) }

func newServer(t *testing.T, env *apptest.Env, signedIn bool) *echo.Echo {
	require := require.New(t)

	jl, err := joblist.NewService(joblist.ServiceConfig{Source: env.Source, Now: env.Clock})
	require.NoError(err)
	js, err := jobshow.NewService(jobshow.ServiceConfig{Source: env.Source, Tracker: env.Tracker, Attachments: env.Backend})
	require.NoError(err)
	st, err := stage.NewService(stage.ServiceConfig{Source: env.Source, Tracker: env.Tracker})
	require.NoError(err)
	cs, err := customers.NewService(customers.ServiceConfig{Source: env.Source})
	require.NoError(err)
	db, err := dashboard.NewService(dashboard.ServiceConfig{Source: env.Source, Workers: env.Backend, Attendance: env.Backend, Now: env.Clock})
	require.NoError(err)
	sy, err := sync.NewService(sync.ServiceConfig{
		Queue:        env.Queue,
		Replayer:     offline.ReplayerFunc(func(context.Context, model.OfflineAction) error { return nil }),
		Connectivity: env,
	})
	require.NoError(err)

	h, err := fieldworkhttp.NewHandler(fieldworkhttp.HandlerConfig{
		Sessions: sessionsFunc(func(context.Context) (session.Session, error) {
			if !signedIn {
				return session.Session{}, model.ErrNoSession
			}
			return env.Session, nil
		}),
		Jobs:         jl,
		Job:          js,
		Stage:        st,
		Customers:    cs,
		Dashboard:    db,
		Queue:        sy,
		Connectivity: env,
	})
	require.NoError(err)

	e := echo.New()
	fieldworkhttp.Register(e, h, fieldworkhttp.RoutesConfig{Gatherer: prometheus.NewRegistry()})
	return e
}

func TestHandler(t *testing.T) {
	tests := map[string]struct {
		signedIn  bool
		online    bool
		method    string
		path      string
		expStatus int
		expBody   func(t *testing.T, body map[string]any)
	}{
		"Health should report the connectivity.": {
			online:    true,
			method:    http.MethodGet,
			path:      "/healthz",
			expStatus: http.StatusOK,
			expBody: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "ok", body["status"])
				assert.Equal(t, true, body["online"])
			},
		},
		"Metrics should be served.": {
			method:    http.MethodGet,
			path:      "/metrics",
			expStatus: http.StatusOK,
		},
		"Without session the API should be unauthorized.": {
			online:    true,
			method:    http.MethodGet,
			path:      "/api/v1/jobs",
			expStatus: http.StatusUnauthorized,
			expBody: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Signed Out", body["title"])
			},
		},
		"Jobs should be listed for the worker.": {
			signedIn:  true,
			online:    true,
			method:    http.MethodGet,
			path:      "/api/v1/jobs?q=jo-2",
			expStatus: http.StatusOK,
			expBody: func(t *testing.T, body map[string]any) {
				assert.EqualValues(t, 1, body["count"])
				assert.Equal(t, false, body["cached"])
			},
		},
		"An unknown view should be a bad request.": {
			signedIn:  true,
			online:    true,
			method:    http.MethodGet,
			path:      "/api/v1/jobs?view=later",
			expStatus: http.StatusBadRequest,
		},
		"A missing job should be not found.": {
			signedIn:  true,
			online:    true,
			method:    http.MethodGet,
			path:      "/api/v1/jobs/404",
			expStatus: http.StatusNotFound,
		},
		"A rejected stage should be returned as a decision.": {
			signedIn:  true,
			online:    true,
			method:    http.MethodPost,
			path:      "/api/v1/jobs/1/stages/service",
			expStatus: http.StatusOK,
			expBody: func(t *testing.T, body map[string]any) {
				assert.Equal(t, false, body["allowed"])
				assert.Equal(t, "job-not-started", body["reason"])
				assert.Equal(t, "Action Required", body["title"])
			},
		},
		"An allowed stage should be returned as a decision.": {
			signedIn:  true,
			online:    true,
			method:    http.MethodPost,
			path:      "/api/v1/jobs/2/stages/navigate",
			expStatus: http.StatusOK,
			expBody: func(t *testing.T, body map[string]any) {
				assert.Equal(t, true, body["allowed"])
			},
		},
		"An unknown stage should be a bad request.": {
			signedIn:  true,
			online:    true,
			method:    http.MethodPost,
			path:      "/api/v1/jobs/1/stages/invoice",
			expStatus: http.StatusBadRequest,
		},
		"Customers should be derived from the jobs.": {
			signedIn:  true,
			online:    true,
			method:    http.MethodGet,
			path:      "/api/v1/customers",
			expStatus: http.StatusOK,
			expBody: func(t *testing.T, body map[string]any) {
				assert.EqualValues(t, 1, body["count"])
			},
		},
		"A customer should be returned with its jobs.": {
			signedIn:  true,
			online:    true,
			method:    http.MethodGet,
			path:      "/api/v1/customers/c1",
			expStatus: http.StatusOK,
			expBody: func(t *testing.T, body map[string]any) {
				assert.Len(t, body["jobs"], 2)
			},
		},
		"The dashboard should summarize the worker jobs.": {
			signedIn:  true,
			online:    true,
			method:    http.MethodGet,
			path:      "/api/v1/dashboard",
			expStatus: http.StatusOK,
			expBody: func(t *testing.T, body map[string]any) {
				assert.EqualValues(t, 2, body["totalAssigned"])
				assert.EqualValues(t, 1, body["inProgress"])
			},
		},
		"The queue should list the pending actions.": {
			signedIn:  true,
			online:    false,
			method:    http.MethodGet,
			path:      "/api/v1/queue",
			expStatus: http.StatusOK,
			expBody: func(t *testing.T, body map[string]any) {
				assert.Equal(t, false, body["online"])
				assert.Len(t, body["pending"], 1)
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			env := apptest.NewEnv(t)
			env.AddJobs(t, apptest.ScheduledJob("1"), apptest.StartedJob("2"))
			require.NoError(t, env.Backend.CreateWorker(context.Background(), model.Worker{ID: "w1", UID: "uid-1", FullName: "Worker One"}))
			require.NoError(t, env.Queue.Enqueue(context.Background(), model.ActionStartJob, offline.StartJobPayload{JobID: "1", WorkerID: "w1"}))
			env.SetOnline(test.online)

			e := newServer(t, env, test.signedIn)
			req := httptest.NewRequest(test.method, test.path, nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			require.Equal(t, test.expStatus, rec.Code, rec.Body.String())
			if test.expBody != nil {
				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				test.expBody(t, body)
			}
		})
	}
}
