package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/slok/fieldwork/internal/backend/memory"
	"github.com/slok/fieldwork/internal/connectivity"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/secret"
	"github.com/slok/fieldwork/internal/session"
	storagememory "github.com/slok/fieldwork/internal/storage/memory"
)

var now = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

type env struct {
	backend *memory.Backend
	secrets *secret.Store
}

func newEnv(t *testing.T) env {
	ctx := context.Background()
	b, err := memory.NewBackend(memory.BackendConfig{})
	require.NoError(t, err)
	_, err = b.Register(ctx, "uid-1", "Ana@example.com", "s3cret")
	require.NoError(t, err)
	require.NoError(t, b.CreateWorker(ctx, model.Worker{ID: "w1", UID: "uid-1", Email: "ana@example.com", FullName: "Ana Diaz"}))

	kv, err := storagememory.NewRepository(storagememory.RepositoryConfig{})
	require.NoError(t, err)
	s, err := secret.NewStore(kv, "test")
	require.NoError(t, err)

	return env{backend: b, secrets: s}
}

func (e env) manager(t *testing.T, online bool) *session.Manager {
	m, err := session.NewManager(session.ManagerConfig{
		Identity:     e.backend,
		Workers:      e.backend,
		Secrets:      e.secrets,
		Connectivity: connectivity.Static(online),
		BcryptCost:   bcrypt.MinCost,
		Now:          func() time.Time { return now },
	})
	require.NoError(t, err)
	return m
}

func TestManagerSignIn(t *testing.T) {
	tests := map[string]struct {
		email    string
		password string
		expErr   error
		expSess  session.Session
	}{
		"Valid credentials should sign in the worker.": {
			email:    "ana@example.com",
			password: "s3cret",
			expSess:  session.Session{WorkerID: "w1", UID: "uid-1", Email: "ana@example.com", FullName: "Ana Diaz"},
		},
		"Missing email should fail before reaching the backend.": {
			password: "s3cret",
			expErr:   model.ErrNotValid,
		},
		"Missing password should fail before reaching the backend.": {
			email:  "ana@example.com",
			expErr: model.ErrNotValid,
		},
		"Wrong password should fail.": {
			email:    "ana@example.com",
			password: "nope",
			expErr:   model.ErrUnauthenticated,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()
			e := newEnv(t)
			m := e.manager(t, true)

			s, err := m.SignIn(ctx, test.email, test.password)
			if test.expErr != nil {
				assert.True(errors.Is(err, test.expErr), "got %v", err)
				_, err := m.Current(ctx)
				assert.True(errors.Is(err, model.ErrNoSession))
				return
			}

			require.NoError(err)
			assert.Equal(test.expSess, s)

			current, err := m.Current(ctx)
			require.NoError(err)
			assert.Equal(test.expSess, current)

			w, err := e.backend.GetWorker(ctx, "w1")
			require.NoError(err)
			assert.True(w.Online)
			assert.Equal(now, *w.LastSeen)
		})
	}
}

func TestManagerSignInWorkerWithoutProfile(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	_, err := e.backend.Register(ctx, "uid-2", "admin@example.com", "pass")
	require.NoError(t, err)

	_, err = e.manager(t, true).SignIn(ctx, "admin@example.com", "pass")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestManagerOfflineSignIn(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	e := newEnv(t)

	offline := e.manager(t, false)
	_, err := offline.SignIn(ctx, "ana@example.com", "s3cret")
	assert.True(errors.Is(err, model.ErrOffline), "never signed in workers can't sign in offline")

	online := e.manager(t, true)
	s, err := online.SignIn(ctx, "ana@example.com", "s3cret")
	require.NoError(err)
	require.NoError(online.SignOut(ctx, s))

	// The cached user is removed on sign out.
	_, err = offline.SignIn(ctx, "ana@example.com", "s3cret")
	assert.True(errors.Is(err, model.ErrOffline))

	_, err = online.SignIn(ctx, "ana@example.com", "s3cret")
	require.NoError(err)

	_, err = offline.SignIn(ctx, "ana@example.com", "wrong")
	assert.True(errors.Is(err, model.ErrUnauthenticated))
	_, err = offline.SignIn(ctx, "other@example.com", "s3cret")
	assert.True(errors.Is(err, model.ErrOffline))

	s, err = offline.SignIn(ctx, "ANA@example.com", "s3cret")
	require.NoError(err)
	assert.Equal(session.Session{WorkerID: "w1", UID: "uid-1", Email: "ana@example.com", FullName: "Ana Diaz", Offline: true}, s)
}

func TestManagerSignOut(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	e := newEnv(t)
	m := e.manager(t, true)

	s, err := m.SignIn(ctx, "ana@example.com", "s3cret")
	require.NoError(err)
	require.NoError(m.SignOut(ctx, s))

	_, err = m.Current(ctx)
	assert.True(errors.Is(err, model.ErrNoSession))

	w, err := e.backend.GetWorker(ctx, "w1")
	require.NoError(err)
	assert.False(w.Online)
}

func TestNewManager(t *testing.T) {
	_, err := session.NewManager(session.ManagerConfig{})
	assert.Error(t, err)
}
