package lifecycle

import (
	"fmt"

	"github.com/slok/fieldwork/internal/model"
)

// Reason identifies why a stage was rejected.
type Reason string

const (
	ReasonJobCompleted   Reason = "job-completed"
	ReasonJobUnavailable Reason = "job-unavailable"
	ReasonJobNotStarted  Reason = "job-not-started"
	ReasonServicePending Reason = "service-pending"
	ReasonUnknownStage   Reason = "unknown-stage"
)

// Rejection is the user facing explanation of a rejected stage.
type Rejection struct {
	Reason  Reason
	Title   string
	Message string
}

// Decision is the result of a stage request.
type Decision struct {
	Allowed   bool
	Stage     model.Stage
	Rejection *Rejection
}

// Err returns nil for allowed decisions and a model.ErrNotAllowed error with
// the rejection message otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	msg := "section not allowed"
	if d.Rejection != nil {
		msg = d.Rejection.Message
	}
	return fmt.Errorf("%s: %w", msg, model.ErrNotAllowed)
}

// Request is a request to enter a workflow stage.
type Request struct {
	Target   model.Stage
	Job      *model.Job
	WorkerID string
	Flags    model.StageFlags
}

// requirement is what a worker needs to enter a stage.
type requirement struct {
	started     bool
	serviceDone bool
}

// transitions is the stage transition table. Any stage can be reached from
// any other one (back navigation included) as long as its requirement holds.
var transitions = map[model.Stage]requirement{
	model.StageDetails:  {},
	model.StageNavigate: {started: true},
	model.StageService:  {started: true},
	model.StageComplete: {started: true, serviceDone: true},
}

var (
	rejectCompleted = Rejection{
		Reason:  ReasonJobCompleted,
		Title:   "Job Completed",
		Message: "This job has been completed and cannot be modified.",
	}
	rejectUnavailable = Rejection{
		Reason:  ReasonJobUnavailable,
		Title:   "Error",
		Message: "Job data not available",
	}
	rejectNotStarted = Rejection{
		Reason:  ReasonJobNotStarted,
		Title:   "Action Required",
		Message: "Please start the job first before accessing other sections.",
	}
	rejectServicePending = Rejection{
		Reason:  ReasonServicePending,
		Title:   "Action Required",
		Message: "Please complete the service section first.",
	}
)

// Decide decides if a worker can enter a stage of a job. Rules are evaluated
// in order and the first matching one wins.
func Decide(req Request) Decision {
	// Completed jobs are read only for everyone, the details section included.
	if req.Job != nil && req.Job.Status == model.JobStatusCompleted {
		return reject(req.Target, rejectCompleted)
	}

	if req.Target == model.StageDetails {
		return allow(req.Target)
	}

	if req.Job == nil {
		return reject(req.Target, rejectUnavailable)
	}

	reqmt, ok := transitions[req.Target]
	if !ok {
		return reject(req.Target, Rejection{
			Reason:  ReasonUnknownStage,
			Title:   "Error",
			Message: "Unknown section " + string(req.Target),
		})
	}

	if reqmt.started {
		w, ok := req.Job.Worker(req.WorkerID)
		if !ok || w.Status != model.WorkerStatusInProgress {
			return reject(req.Target, rejectNotStarted)
		}
	}

	if reqmt.serviceDone && !req.Flags.Service {
		return reject(req.Target, rejectServicePending)
	}

	return allow(req.Target)
}

func allow(s model.Stage) Decision {
	return Decision{Allowed: true, Stage: s}
}

func reject(s model.Stage, r Rejection) Decision {
	return Decision{Stage: s, Rejection: &r}
}
