package model

import (
	"fmt"
	"strings"
)

// Stage is a section of the job workflow.
type Stage string

const (
	StageDetails  Stage = "details"
	StageNavigate Stage = "navigate"
	StageService  Stage = "service"
	StageComplete Stage = "complete"
)

// Stages returns the stages in workflow order.
func Stages() []Stage {
	return []Stage{StageDetails, StageNavigate, StageService, StageComplete}
}

// ParseStage parses a stage ignoring case.
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages() {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q: %w", s, ErrNotValid)
}

// StageFlags tracks which workflow sections have been completed.
type StageFlags struct {
	Details  bool
	Navigate bool
	Service  bool
	Complete bool
}

// Done returns the flag of a stage.
func (f StageFlags) Done(s Stage) bool {
	switch s {
	case StageDetails:
		return f.Details
	case StageNavigate:
		return f.Navigate
	case StageService:
		return f.Service
	case StageComplete:
		return f.Complete
	}
	return false
}

// Set returns a copy of the flags with the stage marked as done.
func (f StageFlags) Set(s Stage) StageFlags {
	switch s {
	case StageDetails:
		f.Details = true
	case StageNavigate:
		f.Navigate = true
	case StageService:
		f.Service = true
	case StageComplete:
		f.Complete = true
	}
	return f
}

// StageProgress is the workflow state of a worker on a job.
type StageProgress struct {
	JobID    string
	WorkerID string
	Active   Stage
	Flags    StageFlags
	Route    *Route
}

// Route is a driving route to a job site.
type Route struct {
	Origin      Coordinates
	Destination Coordinates
	Points      []Coordinates
	Distance    string
	Duration    string
}
