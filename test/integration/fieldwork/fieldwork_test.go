package fieldwork_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intfieldwork "github.com/slok/fieldwork/test/integration/fieldwork"
)

const fixtures = `workers:
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
    priority: High
    customerId: c1
    customerName: Acme Corp
    location:
      locationName: Acme HQ
      coordinates: {latitude: 1.3, longitude: 103.85}
    assignedWorkers:
      - workerId: w1
        workerName: Field Tech
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

// listItem matches the JSON output of `fieldwork jobs list --format json`.
type listItem struct {
	ID     string `json:"id"`
	JobNo  string `json:"job_no"`
	Status string `json:"status"`
}

// decision matches the JSON output of `fieldwork jobs stage --format json`.
type decision struct {
	Stage   string `json:"stage"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// action matches the JSON output of `fieldwork sync --format json`.
type action struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func newSignedInDevice(ctx context.Context, t *testing.T) intfieldwork.Device {
	t.Helper()

	config := intfieldwork.NewConfig(t)
	d := intfieldwork.NewDevice(t, config)

	_, stderr, err := d.Run(ctx, "seed", d.WriteFile(t, "fixtures.yaml", fixtures))
	require.NoError(t, err, string(stderr))

	_, stderr, err = d.Run(ctx, "login", "--email", "tech@example.com", "--password", "s3cret")
	require.NoError(t, err, string(stderr))

	return d
}

func listJobs(ctx context.Context, t *testing.T, d intfieldwork.Device, global ...string) []listItem {
	t.Helper()

	var items []listItem
	require.NoError(t, d.RunJSON(ctx, &items, append(global, "jobs", "list")...))
	return items
}

func TestIntegrationJobWorkflow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	d := newSignedInDevice(ctx, t)

	// Only the assigned jobs are listed.
	items := listJobs(ctx, t, d)
	require.Len(t, items, 1)
	assert.Equal(t, "JO-1001", items[0].JobNo)

	// The service stage is gated until the job is started.
	var dec decision
	require.NoError(t, d.RunJSON(ctx, &dec, "jobs", "stage", "j1", "service"))
	assert.False(t, dec.Allowed)
	assert.Equal(t, "job-not-started", dec.Reason)

	// Starting requires being clocked in.
	_, _, err := d.Run(ctx, "jobs", "start", "j1")
	require.Error(t, err)

	_, stderr, err := d.Run(ctx, "attendance", "clock-in")
	require.NoError(t, err, string(stderr))

	_, stderr, err = d.Run(ctx, "jobs", "start", "j1")
	require.NoError(t, err, string(stderr))

	dec = decision{}
	require.NoError(t, d.RunJSON(ctx, &dec, "jobs", "stage", "j1", "service"))
	assert.True(t, dec.Allowed)

	items = listJobs(ctx, t, d)
	require.Len(t, items, 1)
	assert.Equal(t, "In Progress", items[0].Status)

	// Completion needs both signatures.
	_, stderr, err = d.Run(ctx, "jobs", "service", "j1", "submit")
	require.NoError(t, err, string(stderr))
	_, _, err = d.Run(ctx, "jobs", "complete", "j1")
	assert.Error(t, err)
}

func TestIntegrationOfflineQueueReplay(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	d := newSignedInDevice(ctx, t)

	// Offline writes are applied on the cached job and queued.
	stdout, stderr, err := d.Run(ctx, "--offline", "jobs", "start", "j1")
	require.NoError(t, err, string(stderr))
	assert.Contains(t, string(stdout), "queued")

	items := listJobs(ctx, t, d, "--offline")
	require.Len(t, items, 1)
	assert.Equal(t, "In Progress", items[0].Status)

	var pending []action
	require.NoError(t, d.RunJSON(ctx, &pending, "sync", "--dry-run"))
	require.Len(t, pending, 1)
	assert.Equal(t, "START_JOB", pending[0].Type)

	// Back online the queue is drained.
	pending = nil
	require.NoError(t, d.RunJSON(ctx, &pending, "sync"))
	assert.Empty(t, pending)

	items = listJobs(ctx, t, d)
	require.Len(t, items, 1)
	assert.Equal(t, "In Progress", items[0].Status)
}
