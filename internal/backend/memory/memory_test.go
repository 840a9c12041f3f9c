package memory_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/backend/memory"
	"github.com/slok/fieldwork/internal/model"
)

func newBackend(t *testing.T) *memory.Backend {
	b, err := memory.NewBackend(memory.BackendConfig{})
	require.NoError(t, err)
	return b
}

func TestBackendIdentity(t *testing.T) {
	tests := map[string]struct {
		email    string
		password string
		expErr   error
	}{
		"Valid credentials should sign in.": {
			email:    "ana@example.com",
			password: "s3cret",
		},
		"Email should be case insensitive.": {
			email:    "  ANA@example.com",
			password: "s3cret",
		},
		"A wrong password should be rejected.": {
			email:    "ana@example.com",
			password: "nope",
			expErr:   model.ErrUnauthenticated,
		},
		"An unknown email should be rejected.": {
			email:    "bob@example.com",
			password: "s3cret",
			expErr:   model.ErrUnauthenticated,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := newBackend(t)
			_, err := b.Register(ctx, "u1", "ana@example.com", "s3cret")
			require.NoError(t, err)

			id, err := b.SignIn(ctx, test.email, test.password)
			if test.expErr != nil {
				assert.True(t, errors.Is(err, test.expErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u1", id.UID)
		})
	}
}

func TestBackendRegisterTwiceFails(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	_, err := b.Register(ctx, "u1", "ana@example.com", "a")
	require.NoError(t, err)
	_, err = b.Register(ctx, "u2", "Ana@Example.com", "b")
	assert.True(t, errors.Is(err, model.ErrAlreadyExists))
}

func TestBackendJobs(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	t0 := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, b.CreateJob(ctx, model.Job{ID: "j1", CustomerID: "c1", StartDate: t0, AssignedWorkers: []model.AssignedWorker{{WorkerID: "w1"}}}))
	require.NoError(t, b.CreateJob(ctx, model.Job{ID: "j2", CustomerID: "c2", StartDate: t0.Add(time.Hour), AssignedWorkers: []model.AssignedWorker{{WorkerID: "w1"}, {WorkerID: "w2"}}}))
	require.NoError(t, b.CreateJob(ctx, model.Job{ID: "j3", CustomerID: "c1", StartDate: t0.Add(2 * time.Hour)}))
	assert.True(t, errors.Is(b.CreateJob(ctx, model.Job{ID: "j1"}), model.ErrAlreadyExists))

	ids := func(q backend.JobQuery) string {
		jobs, err := b.ListJobs(ctx, q)
		require.NoError(t, err)
		res := []string{}
		for _, j := range jobs {
			res = append(res, j.ID)
		}
		return strings.Join(res, ",")
	}

	assert.Equal(t, "j3,j2,j1", ids(backend.JobQuery{}))
	assert.Equal(t, "j2,j1", ids(backend.JobQuery{WorkerID: "w1"}))
	assert.Equal(t, "j2", ids(backend.JobQuery{WorkerID: "w2"}))
	assert.Equal(t, "j3,j1", ids(backend.JobQuery{CustomerID: "c1"}))
}

func TestBackendUpdateJobOptimisticVersion(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	require.NoError(t, b.CreateJob(ctx, model.Job{ID: "j1", Status: model.JobStatusScheduled}))

	j, err := b.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, 1, j.Version)

	stale := *j
	j.Status = model.JobStatusInProgress
	updated, err := b.UpdateJob(ctx, *j)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)

	stale.Status = model.JobStatusCancelled
	_, err = b.UpdateJob(ctx, stale)
	assert.True(t, errors.Is(err, model.ErrConflict))

	got, err := b.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusInProgress, got.Status)

	_, err = b.UpdateJob(ctx, model.Job{ID: "missing"})
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestBackendWorkers(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	require.NoError(t, b.CreateWorker(ctx, model.Worker{ID: "w1", UID: "u1"}))

	w, err := b.GetWorkerByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "w1", w.ID)

	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, b.SetPresence(ctx, "w1", true, at))
	w, err = b.GetWorker(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, w.Online)
	assert.Equal(t, at, *w.LastSeen)

	_, err = b.GetWorkerByUID(ctx, "u9")
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.True(t, errors.Is(b.SetPresence(ctx, "w9", true, at), model.ErrNotFound))
}

func TestBackendAttachments(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)
	t0 := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	_, err := b.GetSignature(ctx, "j1", model.SignatureKindTechnician, "w1")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	require.NoError(t, b.SaveSignature(ctx, model.Signature{JobID: "j1", Kind: model.SignatureKindTechnician, WorkerID: "w1", URL: "a"}))
	require.NoError(t, b.SaveSignature(ctx, model.Signature{JobID: "j1", Kind: model.SignatureKindTechnician, WorkerID: "w1", URL: "b"}))
	s, err := b.GetSignature(ctx, "j1", model.SignatureKindTechnician, "w1")
	require.NoError(t, err)
	assert.Equal(t, "b", s.URL)

	require.NoError(t, b.AddImage(ctx, model.Image{ID: "i1", JobID: "j1", CreatedAt: t0}))
	require.NoError(t, b.AddImage(ctx, model.Image{ID: "i2", JobID: "j1", CreatedAt: t0.Add(time.Minute)}))
	imgs, err := b.ListImages(ctx, "j1")
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Equal(t, "i2", imgs[0].ID)

	require.NoError(t, b.DeleteImage(ctx, "j1", "i2"))
	assert.True(t, errors.Is(b.DeleteImage(ctx, "j1", "i2"), model.ErrNotFound))
}

func TestBackendBlobs(t *testing.T) {
	b := newBackend(t)

	url, err := b.Upload(context.Background(), "jobs/j1/images/x.jpg", "image/jpeg", strings.NewReader("img"))
	require.NoError(t, err)
	assert.Equal(t, "mem://jobs/j1/images/x.jpg", url)

	data, ok := b.Blob("jobs/j1/images/x.jpg")
	assert.True(t, ok)
	assert.Equal(t, []byte("img"), data)
}

func TestDirections(t *testing.T) {
	r, err := memory.Directions{}.Route(context.Background(),
		model.Coordinates{Latitude: 0, Longitude: 0},
		model.Coordinates{Latitude: 0, Longitude: 1},
	)
	require.NoError(t, err)
	assert.Len(t, r.Points, 2)
	assert.Equal(t, "111.2 km", r.Distance)
	assert.Equal(t, "167 mins", r.Duration)
}
