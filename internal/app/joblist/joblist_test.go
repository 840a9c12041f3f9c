package joblist_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/fieldwork/internal/app/apptest"
	"github.com/slok/fieldwork/internal/app/joblist"
)

func TestServiceRun(t *testing.T) {
	yesterday := apptest.ScheduledJob("old")
	yesterday.StartDate = apptest.Now.Add(-24 * time.Hour)
	yesterday.JobNo = "JO-0999"

	earlyToday := apptest.ScheduledJob("early")
	earlyToday.StartDate = time.Date(2026, 5, 4, 0, 30, 0, 0, time.UTC)
	earlyToday.JobNo = "JO-1000"

	today := apptest.ScheduledJob("today")
	today.JobNo = "JO-1001"

	notMine := apptest.ScheduledJob("other")
	notMine.AssignedWorkers = notMine.AssignedWorkers[1:]

	tests := map[string]struct {
		online  bool
		req     joblist.Request
		expIDs  []string
		expCach bool
	}{
		"All view should list every assigned job newest first.": {
			online: true,
			req:    joblist.Request{View: joblist.ViewAll},
			expIDs: []string{"today", "early", "old"},
		},
		"Current view should list the jobs starting today or later.": {
			online: true,
			req:    joblist.Request{View: joblist.ViewCurrent},
			expIDs: []string{"today", "early"},
		},
		"History view should list the jobs started before today.": {
			online: true,
			req:    joblist.Request{View: joblist.ViewHistory},
			expIDs: []string{"old"},
		},
		"A search should match the job number ignoring case.": {
			online: true,
			req:    joblist.Request{View: joblist.ViewAll, Query: "jo-1001"},
			expIDs: []string{"today"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			env := apptest.NewEnv(t)
			env.AddJobs(t, yesterday, earlyToday, today, notMine)
			env.SetOnline(test.online)

			svc, err := joblist.NewService(joblist.ServiceConfig{Source: env.Source, Now: env.Clock})
			require.NoError(err)

			req := test.req
			req.Session = env.Session
			res, err := svc.Run(context.Background(), req)
			require.NoError(err)

			gotIDs := []string{}
			for _, j := range res.Jobs {
				gotIDs = append(gotIDs, j.ID)
			}
			assert.Equal(test.expIDs, gotIDs)
			assert.Equal(test.expCach, res.Cached)
		})
	}
}

func TestServiceRunOfflineUsesCache(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	env := apptest.NewEnv(t)
	for i := 0; i < 50; i++ {
		j := apptest.ScheduledJob(fmt.Sprintf("j%02d", i))
		j.JobNo = fmt.Sprintf("JO-%04d", 1000+i)
		env.AddJobs(t, j)
	}

	svc, err := joblist.NewService(joblist.ServiceConfig{Source: env.Source, Now: env.Clock})
	require.NoError(err)

	// Warm the cache online, then search offline.
	_, err = svc.Run(context.Background(), joblist.Request{Session: env.Session})
	require.NoError(err)
	env.SetOnline(false)

	res, err := svc.Run(context.Background(), joblist.Request{Session: env.Session, Query: "jo-1002"})
	require.NoError(err)
	assert.True(res.Cached)
	require.Len(res.Jobs, 1)
	assert.Equal("JO-1002", res.Jobs[0].JobNo)
}

func TestParseView(t *testing.T) {
	v, err := joblist.ParseView("")
	require.NoError(t, err)
	assert.Equal(t, joblist.ViewAll, v)

	v, err = joblist.ParseView("History")
	require.NoError(t, err)
	assert.Equal(t, joblist.ViewHistory, v)

	_, err = joblist.ParseView("future")
	assert.Error(t, err)
}
