package document

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/slok/fieldwork/internal/model"
)

// Attendance is the stored shape of a daily attendance record.
type Attendance struct {
	WorkerID            string       `json:"workerId"`
	Day                 string       `json:"day"`
	ClockIn             string       `json:"clockIn,omitempty"`
	ClockOut            string       `json:"clockOut,omitempty"`
	IsBreak             bool         `json:"isBreak"`
	BreakStart          string       `json:"breakStart,omitempty"`
	TotalBreakSeconds   int64        `json:"totalBreakTime"`
	TotalWorkingSeconds int64        `json:"totalWorkingTime"`
	ClockEvents         []ClockEvent `json:"clockEvents,omitempty"`
}

// ClockEvent is the stored shape of an attendance event.
type ClockEvent struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// DecodeAttendance decodes and validates a JSON attendance document.
func DecodeAttendance(data []byte) (model.Attendance, error) {
	var d Attendance
	if err := unmarshal("attendance", data, &d); err != nil {
		return model.Attendance{}, err
	}

	if strings.TrimSpace(d.WorkerID) == "" {
		return model.Attendance{}, decodeErr("attendance.workerId", "missing")
	}
	if _, err := time.Parse(model.DayLayout, d.Day); err != nil {
		return model.Attendance{}, decodeErr("attendance.day", "invalid day %q", d.Day)
	}

	clockIn, err := parseOptionalTime("attendance.clockIn", d.ClockIn)
	if err != nil {
		return model.Attendance{}, err
	}
	clockOut, err := parseOptionalTime("attendance.clockOut", d.ClockOut)
	if err != nil {
		return model.Attendance{}, err
	}
	breakStart, err := parseOptionalTime("attendance.breakStart", d.BreakStart)
	if err != nil {
		return model.Attendance{}, err
	}

	a := model.Attendance{
		WorkerID:     d.WorkerID,
		Day:          d.Day,
		ClockIn:      clockIn,
		ClockOut:     clockOut,
		OnBreak:      d.IsBreak,
		BreakStart:   breakStart,
		TotalBreak:   time.Duration(d.TotalBreakSeconds) * time.Second,
		TotalWorking: time.Duration(d.TotalWorkingSeconds) * time.Second,
	}

	for i, e := range d.ClockEvents {
		field := fmt.Sprintf("attendance.clockEvents[%d]", i)
		switch model.ClockEventType(e.Type) {
		case model.ClockEventClockIn, model.ClockEventClockOut, model.ClockEventBreakStart, model.ClockEventBreakEnd:
		default:
			return model.Attendance{}, decodeErr(field+".type", "unknown event %q", e.Type)
		}
		at, err := parseTime(field+".timestamp", e.Timestamp)
		if err != nil {
			return model.Attendance{}, err
		}
		a.Events = append(a.Events, model.ClockEvent{Type: model.ClockEventType(e.Type), At: at})
	}

	return a, nil
}

// EncodeAttendance encodes an attendance record as a JSON document.
func EncodeAttendance(a model.Attendance) ([]byte, error) {
	d := Attendance{
		WorkerID:            a.WorkerID,
		Day:                 a.Day,
		ClockIn:             formatOptionalTime(a.ClockIn),
		ClockOut:            formatOptionalTime(a.ClockOut),
		IsBreak:             a.OnBreak,
		BreakStart:          formatOptionalTime(a.BreakStart),
		TotalBreakSeconds:   int64(a.TotalBreak / time.Second),
		TotalWorkingSeconds: int64(a.TotalWorking / time.Second),
	}
	for _, e := range a.Events {
		d.ClockEvents = append(d.ClockEvents, ClockEvent{Type: string(e.Type), Timestamp: formatTime(e.At)})
	}

	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("could not encode attendance: %w", err)
	}
	return data, nil
}
