package lib_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/fieldwork/pkg/lib"
)

const testFixtures = `workers:
  - id: w1
    uid: uid-1
    email: tech@example.com
    fullName: Field Tech
    isFieldWorker: true
    password: s3cret
jobs:
  - id: j1
    jobNo: JO-1001
    jobName: Aircon service
    jobStatus: Scheduled
    customerId: c1
    customerName: Acme Corp
    assignedWorkers:
      - workerId: w1
    taskList:
      - taskID: t1
        taskName: Inspect filters
    startDate: "2026-05-04T09:00:00Z"
  - id: j2
    jobNo: JO-1002
    jobName: Boiler check
    jobStatus: Scheduled
    customerId: c2
    customerName: Globex
    assignedWorkers:
      - workerId: w2
    startDate: "2026-05-05T09:00:00Z"
`

func writeFixtures(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(p, []byte(testFixtures), 0o644))
	return p
}

func newClient(t *testing.T, cfg lib.Config) *lib.Client {
	t.Helper()
	if cfg.Passphrase == "" {
		cfg.Passphrase = "test"
	}
	c, err := lib.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientRequiresSession(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, lib.Config{DataDir: t.TempDir(), Backend: lib.BackendMemory})

	_, err := c.ListJobs(ctx, nil)
	assert.ErrorIs(t, err, lib.ErrNoSession)

	_, err = c.CurrentSession(ctx)
	assert.ErrorIs(t, err, lib.ErrNoSession)
}

func TestClientSignIn(t *testing.T) {
	tests := map[string]struct {
		email    string
		password string
		expErr   error
	}{
		"Valid credentials should sign in.": {
			email:    "tech@example.com",
			password: "s3cret",
		},
		"A wrong password should fail.": {
			email:    "tech@example.com",
			password: "wrong",
			expErr:   lib.ErrUnauthenticated,
		},
		"A missing email should be invalid.": {
			password: "s3cret",
			expErr:   lib.ErrNotValid,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := newClient(t, lib.Config{DataDir: t.TempDir(), Backend: lib.BackendMemory})
			_, err := c.LoadFixtures(ctx, writeFixtures(t))
			require.NoError(t, err)

			s, err := c.SignIn(ctx, tc.email, tc.password)

			if tc.expErr != nil {
				assert.ErrorIs(t, err, tc.expErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "w1", s.WorkerID)
			assert.False(t, s.Offline)
		})
	}
}

func TestClientJobWorkflow(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	c := newClient(t, lib.Config{DataDir: t.TempDir(), Backend: lib.BackendMemory})

	res, err := c.LoadFixtures(ctx, writeFixtures(t))
	require.NoError(err)
	assert.Equal(1, res.Workers)
	assert.Equal(2, res.Jobs)

	_, err = c.SignIn(ctx, "tech@example.com", "s3cret")
	require.NoError(err)

	jobs, err := c.ListJobs(ctx, &lib.ListJobsOpts{Query: "aircon"})
	require.NoError(err)
	require.Len(jobs, 1)
	assert.Equal("JO-1001", jobs[0].JobNo)

	d, err := c.RequestStage(ctx, "j1", lib.StageService)
	require.NoError(err)
	assert.False(d.Allowed)
	assert.Equal("job-not-started", d.Reason)

	_, err = c.StartJob(ctx, "j1")
	assert.ErrorIs(err, lib.ErrNotAllowed)

	require.NoError(c.ClockIn(ctx))

	wr, err := c.StartJob(ctx, "j1")
	require.NoError(err)
	assert.False(wr.Queued)
	assert.Equal(lib.JobStatusInProgress, wr.Job.Status)

	d, err = c.RequestStage(ctx, "j1", lib.StageService)
	require.NoError(err)
	assert.True(d.Allowed)

	detail, err := c.GetJob(ctx, "j1")
	require.NoError(err)
	assert.Equal(lib.StageService, detail.Progress.Active)
	assert.Equal([]lib.Stage{lib.StageDetails, lib.StageNavigate}, detail.Progress.Done)

	_, err = c.RequestStage(ctx, "j1", "landing")
	assert.ErrorIs(err, lib.ErrNotValid)

	require.NoError(c.SignOut(ctx))
	_, err = c.CurrentSession(ctx)
	assert.ErrorIs(err, lib.ErrNoSession)
}

func TestClientOfflineQueue(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	// The SQLite backend outlives the clients so the offline device can
	// reconnect later.
	dir := t.TempDir()
	open := func(offline bool) *lib.Client {
		c, err := lib.New(ctx, lib.Config{DataDir: dir, Offline: offline, Passphrase: "test"})
		require.NoError(err)
		return c
	}

	c := open(false)
	_, err := c.LoadFixtures(ctx, writeFixtures(t))
	require.NoError(err)
	_, err = c.SignIn(ctx, "tech@example.com", "s3cret")
	require.NoError(err)
	require.NoError(c.Close())

	c = open(true)
	assert.False(c.Online(ctx))

	wr, err := c.StartJob(ctx, "j1")
	require.NoError(err)
	assert.True(wr.Queued)
	assert.Equal(lib.JobStatusInProgress, wr.Job.Status)

	err = c.ClockIn(ctx)
	assert.ErrorIs(err, lib.ErrOffline)

	pending, err := c.PendingActions(ctx)
	require.NoError(err)
	require.Len(pending, 1)
	assert.Equal("START_JOB", pending[0].Type)

	sr, err := c.Sync(ctx)
	require.NoError(err)
	assert.False(sr.Online)
	assert.Len(sr.Pending, 1)
	require.NoError(c.Close())

	c = open(false)
	defer c.Close()

	sr, err = c.Sync(ctx)
	require.NoError(err)
	assert.True(sr.Online)
	assert.Equal(1, sr.Replayed)
	assert.Empty(sr.Pending)

	jobs, err := c.ListJobs(ctx, nil)
	require.NoError(err)
	require.Len(jobs, 1)
	assert.Equal(lib.JobStatusInProgress, jobs[0].Status)

	assert.ErrorIs(c.DiscardAction(ctx, "missing"), lib.ErrNotFound)
}
