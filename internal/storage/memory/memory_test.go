package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/storage/memory"
)

func TestRepositoryActions(t *testing.T) {
	tests := map[string]struct {
		actions func(ctx context.Context, t *testing.T, repo *memory.Repository)
	}{
		"Appended actions should be listed in insertion order with increasing sequences.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) {
				for _, id := range []string{"a", "b", "c"} {
					_, err := repo.AppendAction(ctx, model.OfflineAction{ID: id, Type: model.ActionStartJob})
					require.NoError(t, err)
				}

				got, err := repo.ListActions(ctx)
				require.NoError(t, err)
				require.Len(t, got, 3)
				assert.Equal(t, "a", got[0].ID)
				assert.Equal(t, "b", got[1].ID)
				assert.Equal(t, "c", got[2].ID)
				assert.Less(t, got[0].Seq, got[1].Seq)
				assert.Less(t, got[1].Seq, got[2].Seq)
			},
		},

		"Appending a duplicated action should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) {
				_, err := repo.AppendAction(ctx, model.OfflineAction{ID: "a"})
				require.NoError(t, err)
				_, err = repo.AppendAction(ctx, model.OfflineAction{ID: "a"})
				assert.True(t, errors.Is(err, model.ErrAlreadyExists))
			},
		},

		"Deleting an action should keep the order of the rest.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) {
				for _, id := range []string{"a", "b", "c"} {
					_, err := repo.AppendAction(ctx, model.OfflineAction{ID: id})
					require.NoError(t, err)
				}
				require.NoError(t, repo.DeleteAction(ctx, "b"))

				got, err := repo.ListActions(ctx)
				require.NoError(t, err)
				require.Len(t, got, 2)
				assert.Equal(t, "a", got[0].ID)
				assert.Equal(t, "c", got[1].ID)
			},
		},

		"Deleting a missing action should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) {
				err := repo.DeleteAction(ctx, "missing")
				assert.True(t, errors.Is(err, model.ErrNotFound))
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: log.Noop})
			require.NoError(t, err)

			test.actions(context.Background(), t, repo)
		})
	}
}

func TestRepositoryProgress(t *testing.T) {
	ctx := context.Background()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	_, err = repo.GetProgress(ctx, "j1", "w1")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	route := &model.Route{Points: []model.Coordinates{{Latitude: 1, Longitude: 2}}}
	err = repo.SaveProgress(ctx, model.StageProgress{JobID: "j1", WorkerID: "w1", Active: model.StageNavigate, Route: route})
	require.NoError(t, err)

	// Mutating the saved value must not change the stored one.
	route.Points[0].Latitude = 99

	got, err := repo.GetProgress(ctx, "j1", "w1")
	require.NoError(t, err)
	assert.Equal(t, model.StageNavigate, got.Active)
	assert.Equal(t, 1.0, got.Route.Points[0].Latitude)

	require.NoError(t, repo.DeleteProgress(ctx, "j1", "w1"))
	assert.True(t, errors.Is(repo.DeleteProgress(ctx, "j1", "w1"), model.ErrNotFound))
}

func TestRepositoryJobCache(t *testing.T) {
	ctx := context.Background()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.PutJob(ctx, model.Job{ID: "j1", StartDate: t0}))
	require.NoError(t, repo.PutJob(ctx, model.Job{ID: "j2", StartDate: t0.Add(24 * time.Hour)}))

	jobs, err := repo.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "j2", jobs[0].ID)
	assert.Equal(t, "j1", jobs[1].ID)

	j, err := repo.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, t0, j.StartDate)

	require.NoError(t, repo.ClearJobs(ctx))
	_, err = repo.GetJob(ctx, "j1")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestRepositoryKV(t *testing.T) {
	ctx := context.Background()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	_, err = repo.GetValue(ctx, "k")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	require.NoError(t, repo.SetValue(ctx, "k", []byte("v")))
	v, err := repo.GetValue(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, repo.DeleteValue(ctx, "k"))
	require.NoError(t, repo.DeleteValue(ctx, "k"))
	_, err = repo.GetValue(ctx, "k")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}
