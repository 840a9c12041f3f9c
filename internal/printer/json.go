package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/fieldwork/internal/document"
	"github.com/slok/fieldwork/internal/lifecycle"
	"github.com/slok/fieldwork/internal/model"
)

// JSONPrinter prints the worker views in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// jobListItem represents a job in the list output (subset of fields).
type jobListItem struct {
	ID        string    `json:"id"`
	JobNo     string    `json:"job_no"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Customer  string    `json:"customer"`
	Location  string    `json:"location"`
	StartDate time.Time `json:"start_date"`
}

// jobOutput represents the full job output.
type jobOutput struct {
	Job      document.Job   `json:"job"`
	Progress progressOutput `json:"progress"`
	Images   []imageOutput  `json:"images,omitempty"`
}

type progressOutput struct {
	Active   string       `json:"active"`
	Details  bool         `json:"details"`
	Navigate bool         `json:"navigate"`
	Service  bool         `json:"service"`
	Complete bool         `json:"complete"`
	Route    *routeOutput `json:"route,omitempty"`
}

type imageOutput struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type routeOutput struct {
	Origin      [2]float64   `json:"origin"`
	Destination [2]float64   `json:"destination"`
	Distance    string       `json:"distance"`
	Duration    string       `json:"duration"`
	Points      [][2]float64 `json:"points"`
}

type customerOutput struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Contact       string    `json:"contact,omitempty"`
	Address       string    `json:"address,omitempty"`
	JobCount      int       `json:"job_count"`
	LatestJobDate time.Time `json:"latest_job_date"`
}

type actionOutput struct {
	ID        string          `json:"id"`
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type attendanceOutput struct {
	Day            string     `json:"day"`
	ClockIn        *time.Time `json:"clock_in"`
	ClockOut       *time.Time `json:"clock_out"`
	OnBreak        bool       `json:"on_break"`
	BreakSeconds   float64    `json:"break_seconds"`
	WorkingSeconds float64    `json:"working_seconds"`
}

type dashboardOutput struct {
	InProgress    int            `json:"in_progress"`
	Upcoming      int            `json:"upcoming"`
	Overdue       int            `json:"overdue"`
	Rescheduled   int            `json:"rescheduled"`
	TotalAssigned int            `json:"total_assigned"`
	WeekStart     string         `json:"week_start"`
	Weekly        map[string]int `json:"weekly"`
}

type decisionOutput struct {
	Stage   string `json:"stage"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintJobs prints jobs in JSON format with a subset of fields.
func (j *JSONPrinter) PrintJobs(jobs []model.Job) error {
	items := make([]jobListItem, len(jobs))
	for i, job := range jobs {
		items[i] = jobListItem{
			ID:        job.ID,
			JobNo:     job.JobNo,
			Name:      job.Name,
			Status:    string(job.Status),
			Customer:  job.CustomerName,
			Location:  job.Location.Name,
			StartDate: job.StartDate.UTC(),
		}
	}
	return j.encode(items)
}

// PrintJob prints the full job with the worker progress in JSON format.
func (j *JSONPrinter) PrintJob(job model.Job, progress model.StageProgress, images []model.Image) error {
	out := jobOutput{
		Job: document.JobFromModel(job),
		Progress: progressOutput{
			Active:   string(progress.Active),
			Details:  progress.Flags.Details,
			Navigate: progress.Flags.Navigate,
			Service:  progress.Flags.Service,
			Complete: progress.Flags.Complete,
		},
	}
	if progress.Route != nil {
		r := toRouteOutput(*progress.Route)
		out.Progress.Route = &r
	}
	for _, img := range images {
		out.Images = append(out.Images, imageOutput{
			ID:          img.ID,
			URL:         img.URL,
			Description: img.Description,
			UploadedBy:  img.UploadedBy,
			CreatedAt:   img.CreatedAt.UTC(),
		})
	}
	return j.encode(out)
}

// PrintCustomers prints customers in JSON format.
func (j *JSONPrinter) PrintCustomers(customers []model.Customer) error {
	items := make([]customerOutput, len(customers))
	for i, c := range customers {
		items[i] = customerOutput{
			ID:            c.ID,
			Name:          c.Name,
			Contact:       c.Contact.FullName,
			Address:       c.Location.Address,
			JobCount:      c.JobCount,
			LatestJobDate: c.LatestJobDate.UTC(),
		}
	}
	return j.encode(items)
}

// PrintQueue prints the pending offline actions in JSON format.
func (j *JSONPrinter) PrintQueue(actions []model.OfflineAction) error {
	items := make([]actionOutput, len(actions))
	for i, a := range actions {
		items[i] = actionOutput{
			ID:        a.ID,
			Seq:       a.Seq,
			Type:      string(a.Type),
			Timestamp: a.Timestamp.UTC(),
			Payload:   json.RawMessage(a.Payload),
		}
	}
	return j.encode(items)
}

// PrintAttendance prints the attendance of a day in JSON format.
func (j *JSONPrinter) PrintAttendance(a model.Attendance, working time.Duration) error {
	return j.encode(attendanceOutput{
		Day:            a.Day,
		ClockIn:        utcTime(a.ClockIn),
		ClockOut:       utcTime(a.ClockOut),
		OnBreak:        a.OnBreak,
		BreakSeconds:   a.TotalBreak.Seconds(),
		WorkingSeconds: working.Seconds(),
	})
}

// PrintDashboard prints the dashboard in JSON format.
func (j *JSONPrinter) PrintDashboard(d model.Dashboard) error {
	out := dashboardOutput{
		InProgress:    d.InProgress,
		Upcoming:      d.Upcoming,
		Overdue:       d.Overdue,
		Rescheduled:   d.Rescheduled,
		TotalAssigned: d.TotalAssigned,
		WeekStart:     d.WeekStart.Format(model.DayLayout),
		Weekly:        map[string]int{},
	}
	for i, n := range d.Weekly {
		out.Weekly[weekdays[i]] = n
	}
	return j.encode(out)
}

// PrintDecision prints a stage decision in JSON format.
func (j *JSONPrinter) PrintDecision(d lifecycle.Decision) error {
	out := decisionOutput{Stage: string(d.Stage), Allowed: d.Allowed}
	if d.Rejection != nil {
		out.Reason = string(d.Rejection.Reason)
		out.Title = d.Rejection.Title
		out.Message = d.Rejection.Message
	}
	return j.encode(out)
}

// PrintRoute prints a route in JSON format.
func (j *JSONPrinter) PrintRoute(r model.Route) error {
	return j.encode(toRouteOutput(r))
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func toRouteOutput(r model.Route) routeOutput {
	out := routeOutput{
		Origin:      [2]float64{r.Origin.Latitude, r.Origin.Longitude},
		Destination: [2]float64{r.Destination.Latitude, r.Destination.Longitude},
		Distance:    r.Distance,
		Duration:    r.Duration,
		Points:      make([][2]float64, 0, len(r.Points)),
	}
	for _, p := range r.Points {
		out.Points = append(out.Points, [2]float64{p.Latitude, p.Longitude})
	}
	return out
}

func utcTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
