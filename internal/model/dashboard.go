package model

import "time"

// Dashboard is the job summary of a worker.
type Dashboard struct {
	InProgress    int
	Upcoming      int
	Overdue       int
	Rescheduled   int
	TotalAssigned int
	WeekStart     time.Time
	// Weekly holds the number of assigned jobs per weekday, Monday first.
	Weekly [7]int
}
