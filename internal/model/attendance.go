package model

import (
	"fmt"
	"time"
)

// DayLayout is the layout used to key daily records.
const DayLayout = "2006-01-02"

// ClockEventType is the type of an attendance event.
type ClockEventType string

const (
	ClockEventClockIn    ClockEventType = "clock-in"
	ClockEventClockOut   ClockEventType = "clock-out"
	ClockEventBreakStart ClockEventType = "break-start"
	ClockEventBreakEnd   ClockEventType = "break-end"
)

// ClockEvent is a single attendance event.
type ClockEvent struct {
	Type ClockEventType
	At   time.Time
}

// Attendance is the shift record of a worker for a day.
type Attendance struct {
	WorkerID     string
	Day          string
	ClockIn      *time.Time
	ClockOut     *time.Time
	OnBreak      bool
	BreakStart   *time.Time
	TotalBreak   time.Duration
	TotalWorking time.Duration
	Events       []ClockEvent
}

// ClockedIn returns true if the worker is on shift.
func (a Attendance) ClockedIn() bool {
	return a.ClockIn != nil && a.ClockOut == nil
}

// Day returns the attendance day key of a time.
func Day(t time.Time) string { return t.Format(DayLayout) }

// ClockInAt opens the shift. Clocking in again after a clock out reopens it
// keeping the worked time of the day.
func (a *Attendance) ClockInAt(t time.Time) error {
	if a.ClockedIn() {
		return fmt.Errorf("already clocked in: %w", ErrNotAllowed)
	}

	a.ClockIn = &t
	a.ClockOut = nil
	a.OnBreak = false
	a.BreakStart = nil
	a.Events = append(a.Events, ClockEvent{Type: ClockEventClockIn, At: t})
	return nil
}

// ClockOutAt closes the shift, ending an ongoing break.
func (a *Attendance) ClockOutAt(t time.Time) error {
	if !a.ClockedIn() {
		return fmt.Errorf("not clocked in: %w", ErrNotAllowed)
	}

	a.TotalWorking += a.Working(t)
	if a.OnBreak {
		a.endBreak(t)
	}
	a.ClockOut = &t
	a.Events = append(a.Events, ClockEvent{Type: ClockEventClockOut, At: t})
	return nil
}

// StartBreakAt pauses the working time.
func (a *Attendance) StartBreakAt(t time.Time) error {
	if !a.ClockedIn() {
		return fmt.Errorf("clock in before taking a break: %w", ErrNotAllowed)
	}
	if a.OnBreak {
		return fmt.Errorf("already on break: %w", ErrNotAllowed)
	}

	a.OnBreak = true
	a.BreakStart = &t
	a.Events = append(a.Events, ClockEvent{Type: ClockEventBreakStart, At: t})
	return nil
}

// EndBreakAt resumes the working time.
func (a *Attendance) EndBreakAt(t time.Time) error {
	if !a.OnBreak {
		return fmt.Errorf("not on break: %w", ErrNotAllowed)
	}

	a.endBreak(t)
	a.Events = append(a.Events, ClockEvent{Type: ClockEventBreakEnd, At: t})
	return nil
}

func (a *Attendance) endBreak(t time.Time) {
	if a.BreakStart != nil && t.After(*a.BreakStart) {
		a.TotalBreak += t.Sub(*a.BreakStart)
	}
	a.OnBreak = false
	a.BreakStart = nil
}

// Working returns the working time of the current shift at t, without breaks.
func (a Attendance) Working(t time.Time) time.Duration {
	if !a.ClockedIn() {
		return 0
	}

	// Breaks of previous shifts of the day were already discounted.
	d := t.Sub(*a.ClockIn) - a.breaksSince(*a.ClockIn, t)
	if d < 0 {
		return 0
	}
	return d
}

// breaksSince returns the break time taken from since to t.
func (a Attendance) breaksSince(since, t time.Time) time.Duration {
	var total time.Duration
	var start *time.Time
	for _, e := range a.Events {
		if e.At.Before(since) {
			continue
		}
		switch e.Type {
		case ClockEventBreakStart:
			at := e.At
			start = &at
		case ClockEventBreakEnd:
			if start != nil {
				total += e.At.Sub(*start)
				start = nil
			}
		}
	}
	if start != nil && t.After(*start) {
		total += t.Sub(*start)
	}
	return total
}
