package customers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/fieldwork/internal/app/apptest"
	"github.com/slok/fieldwork/internal/app/customers"
	"github.com/slok/fieldwork/internal/model"
)

func TestServiceRun(t *testing.T) {
	acmeOld := apptest.ScheduledJob("1")
	acmeOld.StartDate = apptest.Now.Add(-48 * time.Hour)
	acmeOld.Contact = model.Contact{FullName: "Old Contact"}

	acmeNew := apptest.ScheduledJob("2")
	acmeNew.Contact = model.Contact{FullName: "Jane Doe"}

	globex := apptest.ScheduledJob("3")
	globex.CustomerID = "c2"
	globex.CustomerName = "Globex"
	globex.Location.Address = "42 Harbour Road"

	tests := map[string]struct {
		req          customers.Request
		expCustomers []string
		expJobs      int
		expErr       error
	}{
		"All customers should be listed by name.": {
			expCustomers: []string{"Acme Corp", "Globex"},
		},
		"A search should match the contact name.": {
			req:          customers.Request{Query: "jane"},
			expCustomers: []string{"Acme Corp"},
		},
		"A search should match the address.": {
			req:          customers.Request{Query: "harbour"},
			expCustomers: []string{"Globex"},
		},
		"A single customer should include its jobs.": {
			req:          customers.Request{CustomerID: "c1"},
			expCustomers: []string{"Acme Corp"},
			expJobs:      2,
		},
		"A missing customer should fail.": {
			req:    customers.Request{CustomerID: "c9"},
			expErr: model.ErrNotFound,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			env := apptest.NewEnv(t)
			env.AddJobs(t, acmeOld, acmeNew, globex)

			svc, err := customers.NewService(customers.ServiceConfig{Source: env.Source})
			require.NoError(err)

			res, err := svc.Run(context.Background(), test.req)
			if test.expErr != nil {
				assert.True(errors.Is(err, test.expErr), "got %v", err)
				return
			}
			require.NoError(err)

			got := []string{}
			for _, c := range res.Customers {
				got = append(got, c.Name)
			}
			assert.Equal(test.expCustomers, got)
			assert.Len(res.Jobs, test.expJobs)
			if test.req.CustomerID == "c1" {
				assert.Equal(2, res.Customers[0].JobCount)
				assert.Equal("Jane Doe", res.Customers[0].Contact.FullName)
			}
		})
	}
}
