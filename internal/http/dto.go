package http

import (
	"time"

	"github.com/slok/fieldwork/internal/app/customers"
	"github.com/slok/fieldwork/internal/app/dashboard"
	"github.com/slok/fieldwork/internal/app/jobshow"
	"github.com/slok/fieldwork/internal/app/stage"
	"github.com/slok/fieldwork/internal/app/sync"
	"github.com/slok/fieldwork/internal/document"
	"github.com/slok/fieldwork/internal/model"
)

type errorResponse struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status string `json:"status"`
	Online bool   `json:"online"`
}

type jobListResponse struct {
	Count  int            `json:"count"`
	Cached bool           `json:"cached"`
	Jobs   []document.Job `json:"jobs"`
}

func newJobListResponse(jobs []model.Job, cached bool) jobListResponse {
	r := jobListResponse{Count: len(jobs), Cached: cached, Jobs: make([]document.Job, 0, len(jobs))}
	for _, j := range jobs {
		r.Jobs = append(r.Jobs, document.JobFromModel(j))
	}
	return r
}

type progressResponse struct {
	Active string          `json:"active"`
	Done   map[string]bool `json:"done"`
	Route  *routeResponse  `json:"route,omitempty"`
}

type routeResponse struct {
	Distance string       `json:"distance"`
	Duration string       `json:"duration"`
	Points   [][2]float64 `json:"points"`
}

func newProgressResponse(p model.StageProgress) progressResponse {
	r := progressResponse{Active: string(p.Active), Done: map[string]bool{}}
	for _, s := range model.Stages() {
		r.Done[string(s)] = p.Flags.Done(s)
	}
	if p.Route != nil {
		rr := routeResponse{Distance: p.Route.Distance, Duration: p.Route.Duration, Points: make([][2]float64, 0, len(p.Route.Points))}
		for _, pt := range p.Route.Points {
			rr.Points = append(rr.Points, [2]float64{pt.Latitude, pt.Longitude})
		}
		r.Route = &rr
	}
	return r
}

type imageResponse struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	UploadedBy  string    `json:"uploadedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

type jobResponse struct {
	Job      document.Job     `json:"job"`
	Progress progressResponse `json:"progress"`
	Images   []imageResponse  `json:"images"`
	Cached   bool             `json:"cached"`
}

func newJobResponse(res jobshow.Result) jobResponse {
	r := jobResponse{
		Job:      document.JobFromModel(res.Job),
		Progress: newProgressResponse(res.Progress),
		Images:   make([]imageResponse, 0, len(res.Images)),
		Cached:   res.Cached,
	}
	for _, img := range res.Images {
		r.Images = append(r.Images, imageResponse{
			ID:          img.ID,
			URL:         img.URL,
			Description: img.Description,
			UploadedBy:  img.UploadedBy,
			CreatedAt:   img.CreatedAt.UTC(),
		})
	}
	return r
}

type decisionResponse struct {
	Stage    string           `json:"stage"`
	Allowed  bool             `json:"allowed"`
	Reason   string           `json:"reason,omitempty"`
	Title    string           `json:"title,omitempty"`
	Message  string           `json:"message,omitempty"`
	Progress progressResponse `json:"progress"`
}

func newDecisionResponse(res stage.Result) decisionResponse {
	r := decisionResponse{
		Stage:    string(res.Decision.Stage),
		Allowed:  res.Decision.Allowed,
		Progress: newProgressResponse(res.Progress),
	}
	if rj := res.Decision.Rejection; rj != nil {
		r.Reason = string(rj.Reason)
		r.Title = rj.Title
		r.Message = rj.Message
	}
	return r
}

type customerItem struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Contact       string    `json:"contact,omitempty"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	JobCount      int       `json:"jobCount"`
	LatestJobDate time.Time `json:"latestJobDate"`
}

func newCustomerItem(c model.Customer) customerItem {
	return customerItem{
		ID:            c.ID,
		Name:          c.Name,
		Contact:       c.Contact.FullName,
		Email:         c.Contact.Email,
		Phone:         c.Contact.Phone,
		Address:       c.Location.Address,
		JobCount:      c.JobCount,
		LatestJobDate: c.LatestJobDate.UTC(),
	}
}

type customerListResponse struct {
	Count     int            `json:"count"`
	Cached    bool           `json:"cached"`
	Customers []customerItem `json:"customers"`
}

func newCustomerListResponse(res customers.Result) customerListResponse {
	r := customerListResponse{Count: len(res.Customers), Cached: res.Cached, Customers: make([]customerItem, 0, len(res.Customers))}
	for _, c := range res.Customers {
		r.Customers = append(r.Customers, newCustomerItem(c))
	}
	return r
}

type customerResponse struct {
	Customer customerItem   `json:"customer"`
	Jobs     []document.Job `json:"jobs"`
	Cached   bool           `json:"cached"`
}

func newCustomerResponse(res customers.Result) customerResponse {
	r := customerResponse{Cached: res.Cached, Jobs: make([]document.Job, 0, len(res.Jobs))}
	if len(res.Customers) > 0 {
		r.Customer = newCustomerItem(res.Customers[0])
	}
	for _, j := range res.Jobs {
		r.Jobs = append(r.Jobs, document.JobFromModel(j))
	}
	return r
}

type dashboardResponse struct {
	Worker        string `json:"worker,omitempty"`
	ClockedIn     bool   `json:"clockedIn"`
	InProgress    int    `json:"inProgress"`
	Upcoming      int    `json:"upcoming"`
	Overdue       int    `json:"overdue"`
	Rescheduled   int    `json:"rescheduled"`
	TotalAssigned int    `json:"totalAssigned"`
	WeekStart     string `json:"weekStart"`
	Weekly        [7]int `json:"weekly"`
	Cached        bool   `json:"cached"`
}

func newDashboardResponse(res dashboard.Result) dashboardResponse {
	d := res.Dashboard
	r := dashboardResponse{
		InProgress:    d.InProgress,
		Upcoming:      d.Upcoming,
		Overdue:       d.Overdue,
		Rescheduled:   d.Rescheduled,
		TotalAssigned: d.TotalAssigned,
		WeekStart:     d.WeekStart.Format(model.DayLayout),
		Weekly:        d.Weekly,
		Cached:        res.Cached,
	}
	if res.Worker != nil {
		r.Worker = res.Worker.FullName
	}
	if res.Attendance != nil {
		r.ClockedIn = res.Attendance.ClockedIn()
	}
	return r
}

type actionItem struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type queueResponse struct {
	Online  bool         `json:"online"`
	Pending []actionItem `json:"pending"`
}

func newQueueResponse(res sync.Result) queueResponse {
	r := queueResponse{Online: res.Online, Pending: make([]actionItem, 0, len(res.Pending))}
	for _, a := range res.Pending {
		r.Pending = append(r.Pending, actionItem{ID: a.ID, Seq: a.Seq, Type: string(a.Type), Timestamp: a.Timestamp.UTC()})
	}
	return r
}
