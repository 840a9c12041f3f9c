package filter

import (
	"sort"
	"strings"
	"time"

	"github.com/slok/fieldwork/internal/model"
)

// SearchJobs returns the jobs whose job number, customer name or location
// name contain the query, ignoring case. An empty query returns the jobs
// unchanged.
func SearchJobs(jobs []model.Job, query string) []model.Job {
	q := strings.ToLower(query)
	if q == "" {
		return jobs
	}

	res := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		if contains(j.JobNo, q) || contains(j.CustomerName, q) || contains(j.Location.Name, q) {
			res = append(res, j)
		}
	}

	return res
}

// PartitionJobs splits the jobs by start date against the reference time.
// Current jobs start at or after the reference, history jobs before it.
// Both keep the input order.
func PartitionJobs(jobs []model.Job, ref time.Time) (current, history []model.Job) {
	current = make([]model.Job, 0, len(jobs))
	history = make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.StartDate.Before(ref) {
			history = append(history, j)
			continue
		}
		current = append(current, j)
	}

	return current, history
}

// AssignedTo returns the jobs the worker is assigned to.
func AssignedTo(jobs []model.Job, workerID string) []model.Job {
	res := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.IsAssigned(workerID) {
			res = append(res, j)
		}
	}

	return res
}

// StartOfDay returns the midnight of the day of t in its location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Customers derives the customers referenced by the jobs. The contact and
// location of a customer are the ones of its most recent job. Customers are
// sorted by name.
func Customers(jobs []model.Job) []model.Customer {
	idx := map[string]int{}
	customers := []model.Customer{}
	for _, j := range jobs {
		id := j.CustomerID
		if id == "" {
			id = j.CustomerName
		}
		if id == "" {
			continue
		}

		i, ok := idx[id]
		if !ok {
			idx[id] = len(customers)
			customers = append(customers, model.Customer{
				ID:            id,
				Name:          j.CustomerName,
				Contact:       j.Contact,
				Location:      j.Location,
				LatestJobDate: j.StartDate,
			})
			i = len(customers) - 1
		}

		c := &customers[i]
		c.JobCount++
		if j.StartDate.After(c.LatestJobDate) {
			c.LatestJobDate = j.StartDate
			c.Contact = j.Contact
			c.Location = j.Location
			if j.CustomerName != "" {
				c.Name = j.CustomerName
			}
		}
	}

	sort.SliceStable(customers, func(i, j int) bool {
		return strings.ToLower(customers[i].Name) < strings.ToLower(customers[j].Name)
	})

	return customers
}

// SearchCustomers returns the customers whose name, contact name or address
// contain the query, ignoring case.
func SearchCustomers(customers []model.Customer, query string) []model.Customer {
	q := strings.ToLower(query)
	if q == "" {
		return customers
	}

	res := make([]model.Customer, 0, len(customers))
	for _, c := range customers {
		if contains(c.Name, q) || contains(c.Contact.FullName, q) || contains(c.Location.Address, q) {
			res = append(res, c)
		}
	}

	return res
}

func contains(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}
