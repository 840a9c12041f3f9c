package model

import "time"

// Customer is a customer derived from the jobs that reference it.
type Customer struct {
	ID            string
	Name          string
	Contact       Contact
	Location      Location
	JobCount      int
	LatestJobDate time.Time
}
