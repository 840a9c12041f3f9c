package printer

import (
	"time"

	"github.com/slok/fieldwork/internal/lifecycle"
	"github.com/slok/fieldwork/internal/model"
)

// Printer knows how to print the worker views in different formats.
type Printer interface {
	PrintJobs(jobs []model.Job) error
	PrintJob(job model.Job, progress model.StageProgress, images []model.Image) error
	PrintCustomers(customers []model.Customer) error
	PrintQueue(actions []model.OfflineAction) error
	PrintAttendance(a model.Attendance, working time.Duration) error
	PrintDashboard(d model.Dashboard) error
	PrintDecision(d lifecycle.Decision) error
	PrintRoute(r model.Route) error
	PrintMessage(msg string) error
}

var weekdays = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
