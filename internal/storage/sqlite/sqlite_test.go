package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/storage/sqlite"
)

func newRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{
		DBPath: filepath.Join(t.TempDir(), "fieldwork.db"),
		Logger: log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func jobFixture(id string, start time.Time) model.Job {
	return model.Job{
		ID:           id,
		JobNo:        "JO-" + id,
		Status:       model.JobStatusScheduled,
		Priority:     model.PriorityHigh,
		CustomerName: "Acme",
		AssignedWorkers: []model.AssignedWorker{
			{WorkerID: "w1", WorkerName: "Ana", Status: model.WorkerStatusPending},
		},
		Tasks:     []model.Task{{ID: "t1", Name: "Inspect", Priority: model.PriorityLow}},
		StartDate: start,
		Version:   3,
	}
}

func TestNewRepositoryRequiresPath(t *testing.T) {
	_, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{})
	assert.Error(t, err)
}

func TestRepositoryReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fieldwork.db")

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: path})
	require.NoError(t, err)
	require.NoError(t, repo.SetValue(ctx, "k", []byte("v")))
	require.NoError(t, repo.Close())

	repo, err = sqlite.NewRepository(ctx, sqlite.RepositoryConfig{DBPath: path})
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.GetValue(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestRepositoryProgress(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	repo := newRepo(t)

	_, err := repo.GetProgress(ctx, "job-1", "w1")
	assert.True(errors.Is(err, model.ErrNotFound))

	p := model.StageProgress{
		JobID:    "job-1",
		WorkerID: "w1",
		Active:   model.StageNavigate,
		Flags:    model.StageFlags{Details: true},
		Route: &model.Route{
			Origin:      model.Coordinates{Latitude: 1, Longitude: 2},
			Destination: model.Coordinates{Latitude: 3, Longitude: 4},
			Points:      []model.Coordinates{{Latitude: 1, Longitude: 2}, {Latitude: 3, Longitude: 4}},
			Distance:    "12.3 km",
			Duration:    "18 mins",
		},
	}
	require.NoError(repo.SaveProgress(ctx, p))

	got, err := repo.GetProgress(ctx, "job-1", "w1")
	require.NoError(err)
	assert.Equal(p, *got)

	p.Active = model.StageService
	p.Flags.Navigate = true
	p.Route = nil
	require.NoError(repo.SaveProgress(ctx, p))
	got, err = repo.GetProgress(ctx, "job-1", "w1")
	require.NoError(err)
	assert.Equal(p, *got)

	require.NoError(repo.DeleteProgress(ctx, "job-1", "w1"))
	_, err = repo.GetProgress(ctx, "job-1", "w1")
	assert.True(errors.Is(err, model.ErrNotFound))
}

func TestRepositoryJobCache(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	repo := newRepo(t)

	t0 := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	require.NoError(repo.PutJob(ctx, jobFixture("1", t0)))
	require.NoError(repo.PutJob(ctx, jobFixture("2", t0.Add(48*time.Hour))))
	require.NoError(repo.PutJob(ctx, jobFixture("3", t0.Add(-48*time.Hour))))

	j, err := repo.GetJob(ctx, "1")
	require.NoError(err)
	assert.Equal(jobFixture("1", t0), *j)

	updated := jobFixture("1", t0)
	updated.Status = model.JobStatusInProgress
	require.NoError(repo.PutJob(ctx, updated))
	j, err = repo.GetJob(ctx, "1")
	require.NoError(err)
	assert.Equal(model.JobStatusInProgress, j.Status)

	all, err := repo.ListJobs(ctx)
	require.NoError(err)
	require.Len(all, 3)
	assert.Equal([]string{"2", "1", "3"}, []string{all[0].ID, all[1].ID, all[2].ID})

	_, err = repo.GetJob(ctx, "9")
	assert.True(errors.Is(err, model.ErrNotFound))

	require.NoError(repo.ClearJobs(ctx))
	all, err = repo.ListJobs(ctx)
	require.NoError(err)
	assert.Empty(all)
}

func TestRepositoryKV(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	_, err := repo.GetValue(ctx, "missing")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	require.NoError(t, repo.SetValue(ctx, "k", []byte("v1")))
	require.NoError(t, repo.SetValue(ctx, "k", []byte("v2")))
	got, err := repo.GetValue(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, repo.DeleteValue(ctx, "k"))
	require.NoError(t, repo.DeleteValue(ctx, "k"))
	_, err = repo.GetValue(ctx, "k")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}
