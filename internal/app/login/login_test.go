package login_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/fieldwork/internal/app/apptest"
	"github.com/slok/fieldwork/internal/app/login"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/secret"
	"github.com/slok/fieldwork/internal/session"
)

func TestServiceRun(t *testing.T) {
	tests := map[string]struct {
		email    string
		password string
		expErr   error
		expJobs  int
	}{
		"Valid credentials should sign in and cache the assigned jobs.": {
			email:    "w1@example.com",
			password: "secret123",
			expJobs:  2,
		},
		"Missing password should fail validation.": {
			email:  "w1@example.com",
			expErr: model.ErrNotValid,
		},
		"Wrong password should fail authentication.": {
			email:    "w1@example.com",
			password: "wrong",
			expErr:   model.ErrUnauthenticated,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			env := apptest.NewEnv(t)
			env.AddJobs(t, apptest.ScheduledJob("1"), apptest.ScheduledJob("2"))
			_, err := env.Backend.Register(ctx, "uid-1", "w1@example.com", "secret123")
			require.NoError(err)
			require.NoError(env.Backend.CreateWorker(ctx, model.Worker{ID: "w1", UID: "uid-1", Email: "w1@example.com", FullName: "Worker One"}))

			secrets, err := secret.NewStore(env.Storage, "device-key")
			require.NoError(err)
			mgr, err := session.NewManager(session.ManagerConfig{
				Identity:     env.Backend,
				Workers:      env.Backend,
				Secrets:      secrets,
				Connectivity: env,
				BcryptCost:   4,
			})
			require.NoError(err)

			svc, err := login.NewService(login.ServiceConfig{Sessions: mgr, Jobs: env.Source})
			require.NoError(err)

			sess, err := svc.Run(ctx, login.Request{Email: test.email, Password: test.password})
			if test.expErr != nil {
				assert.True(errors.Is(err, test.expErr), "got %v", err)
				return
			}
			require.NoError(err)
			assert.Equal("w1", sess.WorkerID)

			cached, err := env.Storage.ListJobs(ctx)
			require.NoError(err)
			assert.Len(cached, test.expJobs)
		})
	}
}

func TestNewServiceRequiresSessions(t *testing.T) {
	_, err := login.NewService(login.ServiceConfig{})
	assert.Error(t, err)
}
