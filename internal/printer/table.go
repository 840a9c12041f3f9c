package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/slok/fieldwork/internal/lifecycle"
	"github.com/slok/fieldwork/internal/model"
)

// TablePrinter prints the worker views in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintJobs prints jobs in a table format.
func (t *TablePrinter) PrintJobs(jobs []model.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header.
	fmt.Fprintln(tw, "JOB NO\tNAME\tSTATUS\tCUSTOMER\tLOCATION\tSTART")

	// Print rows.
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			j.JobNo,
			j.Name,
			j.Status,
			j.CustomerName,
			j.Location.Name,
			FormatTimestamp(j.StartDate),
		)
	}

	return nil
}

// PrintJob prints the job details with the worker progress.
func (t *TablePrinter) PrintJob(j model.Job, progress model.StageProgress, images []model.Image) error {
	fmt.Fprintf(t.writer, "Job:        %s\n", j.JobNo)
	fmt.Fprintf(t.writer, "ID:         %s\n", j.ID)
	fmt.Fprintf(t.writer, "Name:       %s\n", j.Name)
	fmt.Fprintf(t.writer, "Status:     %s\n", j.Status)
	fmt.Fprintf(t.writer, "Priority:   %s\n", j.Priority)
	fmt.Fprintf(t.writer, "Customer:   %s\n", j.CustomerName)
	if j.Contact.FullName != "" {
		fmt.Fprintf(t.writer, "Contact:    %s %s\n", j.Contact.FullName, j.Contact.Phone)
	}
	fmt.Fprintf(t.writer, "Location:   %s, %s\n", j.Location.Name, j.Location.Address)
	fmt.Fprintf(t.writer, "Start:      %s\n", FormatTimestamp(j.StartDate))
	if j.CompletedAt != nil {
		fmt.Fprintf(t.writer, "Completed:  %s by %s\n", FormatTimestamp(*j.CompletedAt), j.CompletedBy)
	}

	fmt.Fprintf(t.writer, "Stage:      %s\n", stageLine(progress))

	if len(j.AssignedWorkers) > 0 {
		fmt.Fprintf(t.writer, "\nWorkers:\n")
		for _, w := range j.AssignedWorkers {
			fmt.Fprintf(t.writer, "  %s\t%s\n", w.WorkerName, w.Status)
		}
	}

	if len(j.Tasks) > 0 {
		fmt.Fprintf(t.writer, "\nTasks:\n")
		for _, task := range j.Tasks {
			mark := " "
			if task.Done {
				mark = "x"
			}
			fmt.Fprintf(t.writer, "  [%s] %s (%s) %s\n", mark, task.Name, task.Priority, task.ID)
		}
	}

	if len(j.Equipment) > 0 {
		fmt.Fprintf(t.writer, "\nEquipment:\n")
		for _, e := range j.Equipment {
			fmt.Fprintf(t.writer, "  %s\t%s\t%s\n", e.SerialNumber, e.ItemName, e.Status)
		}
	}

	if len(images) > 0 {
		fmt.Fprintf(t.writer, "\nImages:\n")
		for _, img := range images {
			fmt.Fprintf(t.writer, "  %s\t%s\t%s\n", img.ID, img.Description, TimeAgo(img.CreatedAt))
		}
	}

	return nil
}

func stageLine(p model.StageProgress) string {
	parts := make([]string, 0, len(model.Stages()))
	for _, s := range model.Stages() {
		name := string(s)
		if p.Flags.Done(s) {
			name += " ✓"
		}
		if s == p.Active {
			name = "[" + name + "]"
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, " > ")
}

// PrintCustomers prints customers in a table format.
func (t *TablePrinter) PrintCustomers(customers []model.Customer) error {
	if len(customers) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tNAME\tCONTACT\tADDRESS\tJOBS\tLATEST JOB")
	for _, c := range customers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			c.ID,
			c.Name,
			c.Contact.FullName,
			c.Location.Address,
			c.JobCount,
			c.LatestJobDate.UTC().Format(model.DayLayout),
		)
	}

	return nil
}

// PrintQueue prints the pending offline actions in a table format.
func (t *TablePrinter) PrintQueue(actions []model.OfflineAction) error {
	if len(actions) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "SEQ\tID\tTYPE\tSIZE\tQUEUED")
	for _, a := range actions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			a.Seq,
			a.ID,
			a.Type,
			FormatBytes(int64(len(a.Payload))),
			TimeAgo(a.Timestamp),
		)
	}

	return nil
}

// PrintAttendance prints the attendance of a day.
func (t *TablePrinter) PrintAttendance(a model.Attendance, working time.Duration) error {
	fmt.Fprintf(t.writer, "Day:        %s\n", a.Day)

	switch {
	case a.ClockIn == nil:
		fmt.Fprintf(t.writer, "Status:     not clocked in\n")
	case a.OnBreak:
		fmt.Fprintf(t.writer, "Status:     on break\n")
	case a.ClockedIn():
		fmt.Fprintf(t.writer, "Status:     working\n")
	default:
		fmt.Fprintf(t.writer, "Status:     clocked out\n")
	}

	if a.ClockIn != nil {
		fmt.Fprintf(t.writer, "Clock in:   %s\n", FormatTimestamp(*a.ClockIn))
	}
	if a.ClockOut != nil {
		fmt.Fprintf(t.writer, "Clock out:  %s\n", FormatTimestamp(*a.ClockOut))
	}
	fmt.Fprintf(t.writer, "Working:    %s\n", FormatDuration(working))
	fmt.Fprintf(t.writer, "Breaks:     %s\n", FormatDuration(a.TotalBreak))

	return nil
}

// PrintDashboard prints the dashboard summary and the weekly histogram.
func (t *TablePrinter) PrintDashboard(d model.Dashboard) error {
	fmt.Fprintf(t.writer, "In progress:  %d\n", d.InProgress)
	fmt.Fprintf(t.writer, "Upcoming:     %d\n", d.Upcoming)
	fmt.Fprintf(t.writer, "Overdue:      %d\n", d.Overdue)
	fmt.Fprintf(t.writer, "Rescheduled:  %d\n", d.Rescheduled)
	fmt.Fprintf(t.writer, "Assigned:     %d\n", d.TotalAssigned)

	fmt.Fprintf(t.writer, "\nWeek of %s:\n", d.WeekStart.Format(model.DayLayout))
	for i, n := range d.Weekly {
		fmt.Fprintf(t.writer, "  %s %s %d\n", weekdays[i], strings.Repeat("#", n), n)
	}

	return nil
}

// PrintDecision prints a stage decision.
func (t *TablePrinter) PrintDecision(d lifecycle.Decision) error {
	if d.Allowed {
		fmt.Fprintf(t.writer, "Section %s allowed\n", d.Stage)
		return nil
	}

	if d.Rejection == nil {
		fmt.Fprintf(t.writer, "Section %s not allowed\n", d.Stage)
		return nil
	}
	fmt.Fprintf(t.writer, "%s: %s\n", d.Rejection.Title, d.Rejection.Message)
	return nil
}

// PrintRoute prints a route summary.
func (t *TablePrinter) PrintRoute(r model.Route) error {
	fmt.Fprintf(t.writer, "From:       %s\n", r.Origin)
	fmt.Fprintf(t.writer, "To:         %s\n", r.Destination)
	fmt.Fprintf(t.writer, "Distance:   %s\n", r.Distance)
	fmt.Fprintf(t.writer, "Duration:   %s\n", r.Duration)
	fmt.Fprintf(t.writer, "Points:     %d\n", len(r.Points))
	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
