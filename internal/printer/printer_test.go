package printer_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/fieldwork/internal/lifecycle"
	"github.com/slok/fieldwork/internal/model"
	"github.com/slok/fieldwork/internal/printer"
)

func jobFixture() model.Job {
	return model.Job{
		ID:           "j1",
		JobNo:        "JO-1001",
		Name:         "Aircon service",
		Status:       model.JobStatusInProgress,
		Priority:     model.PriorityHigh,
		CustomerName: "Acme Corp",
		Location:     model.Location{Name: "Acme HQ", Address: "1 Main Street"},
		StartDate:    time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
		AssignedWorkers: []model.AssignedWorker{
			{WorkerID: "w1", WorkerName: "Worker One", Status: model.WorkerStatusInProgress},
		},
		Tasks: []model.Task{
			{ID: "t1", Name: "Inspect filters", Priority: model.PriorityLow, Done: true},
			{ID: "t2", Name: "Clean coils", Priority: model.PriorityMedium},
		},
	}
}

func progressFixture() model.StageProgress {
	return model.StageProgress{
		JobID:    "j1",
		WorkerID: "w1",
		Active:   model.StageService,
		Flags:    model.StageFlags{Details: true, Navigate: true},
	}
}

func TestTablePrinterPrintJob(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintJob(jobFixture(), progressFixture(), nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Job:        JO-1001")
	assert.Contains(t, out, "Stage:      details ✓ > navigate ✓ > [service] > complete")
	assert.Contains(t, out, "[x] Inspect filters (Low) t1")
	assert.Contains(t, out, "[ ] Clean coils (Medium) t2")
}

func TestJSONPrinterPrintJob(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintJob(jobFixture(), progressFixture(), []model.Image{{ID: "img1", URL: "file:///tmp/img1.jpg"}})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"jobNo": "JO-1001"`)
	assert.Contains(t, out, `"jobStatus": "In Progress"`)
	assert.Contains(t, out, `"active": "service"`)
	assert.Contains(t, out, `"url": "file:///tmp/img1.jpg"`)
}

func TestTablePrinterPrintJobs(t *testing.T) {
	tests := map[string]struct {
		jobs     []model.Job
		expLines int
	}{
		"No jobs should print nothing.": {},
		"Jobs should be printed with a header.": {
			jobs:     []model.Job{jobFixture(), jobFixture()},
			expLines: 3,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			err := printer.NewTablePrinter(&buf).PrintJobs(test.jobs)
			require.NoError(t, err)

			out := strings.TrimSpace(buf.String())
			if test.expLines == 0 {
				assert.Empty(t, out)
				return
			}
			lines := strings.Split(out, "\n")
			assert.Len(t, lines, test.expLines)
			assert.True(t, strings.HasPrefix(lines[0], "JOB NO"))
		})
	}
}

func TestPrintDecision(t *testing.T) {
	rejected := lifecycle.Decision{
		Stage: model.StageService,
		Rejection: &lifecycle.Rejection{
			Reason:  lifecycle.ReasonJobNotStarted,
			Title:   "Action Required",
			Message: "Please start the job first.",
		},
	}

	var table bytes.Buffer
	require.NoError(t, printer.NewTablePrinter(&table).PrintDecision(rejected))
	assert.Equal(t, "Action Required: Please start the job first.\n", table.String())

	var js bytes.Buffer
	require.NoError(t, printer.NewJSONPrinter(&js).PrintDecision(rejected))
	assert.Contains(t, js.String(), `"allowed": false`)
	assert.Contains(t, js.String(), `"reason": "job-not-started"`)
}

func TestPrintDashboard(t *testing.T) {
	d := model.Dashboard{
		InProgress:    1,
		TotalAssigned: 4,
		WeekStart:     time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
		Weekly:        [7]int{2, 0, 1, 0, 0, 0, 1},
	}

	var table bytes.Buffer
	require.NoError(t, printer.NewTablePrinter(&table).PrintDashboard(d))
	assert.Contains(t, table.String(), "Week of 2026-05-04:")
	assert.Contains(t, table.String(), "  Mon ## 2\n")

	var js bytes.Buffer
	require.NoError(t, printer.NewJSONPrinter(&js).PrintDashboard(d))
	assert.Contains(t, js.String(), `"Mon": 2`)
	assert.Contains(t, js.String(), `"week_start": "2026-05-04"`)
}

func TestPrintQueue(t *testing.T) {
	actions := []model.OfflineAction{{
		ID:        "01ACTION",
		Seq:       1,
		Type:      model.ActionStartJob,
		Payload:   []byte(`{"jobId":"j1"}`),
		Timestamp: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
	}}

	var table bytes.Buffer
	require.NoError(t, printer.NewTablePrinter(&table).PrintQueue(actions))
	assert.Contains(t, table.String(), "START_JOB")
	assert.Contains(t, table.String(), "14 B")

	var js bytes.Buffer
	require.NoError(t, printer.NewJSONPrinter(&js).PrintQueue(actions))
	assert.Contains(t, js.String(), `"jobId": "j1"`)
}

func TestTablePrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintMessage("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(buf.String()))
}
