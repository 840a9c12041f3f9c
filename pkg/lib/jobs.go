package lib

import (
	"context"
	"fmt"

	"github.com/slok/fieldwork/internal/app/joblist"
	"github.com/slok/fieldwork/internal/app/jobshow"
	"github.com/slok/fieldwork/internal/app/jobstart"
	"github.com/slok/fieldwork/internal/app/stage"
	"github.com/slok/fieldwork/internal/model"
)

// ListJobs lists the jobs assigned to the signed in worker, newest first.
// Pass nil opts to list all of them.
func (c *Client) ListJobs(ctx context.Context, opts *ListJobsOpts) ([]Job, error) {
	s, err := c.dev.Session(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	svc, err := joblist.NewService(joblist.ServiceConfig{Source: c.dev.Source, Logger: c.logger})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	req := joblist.Request{Session: s, View: joblist.ViewAll}
	if opts != nil {
		req.Query = opts.Query
		if opts.View != "" {
			req.View = joblist.View(opts.View)
		}
	}

	res, err := svc.Run(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalJobList(res.Jobs), nil
}

// GetJob returns a job with the workflow state of the signed in worker.
func (c *Client) GetJob(ctx context.Context, jobID string) (*JobDetail, error) {
	s, err := c.dev.Session(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	svc, err := jobshow.NewService(jobshow.ServiceConfig{
		Source:      c.dev.Source,
		Tracker:     c.dev.Tracker,
		Attachments: c.dev.Backend,
		Logger:      c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, jobshow.Request{Session: s, JobID: jobID})
	if err != nil {
		return nil, mapError(err)
	}

	return &JobDetail{
		Job:      fromInternalJob(res.Job),
		Progress: fromInternalProgress(res.Progress),
		Cached:   res.Cached,
	}, nil
}

// StartJob starts working on a job. Online, the worker needs to be clocked in.
// Offline, the start is queued and [WriteResult].Queued is set.
func (c *Client) StartJob(ctx context.Context, jobID string) (*WriteResult, error) {
	s, err := c.dev.Session(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	svc, err := jobstart.NewService(jobstart.ServiceConfig{
		Source:     c.dev.Source,
		Operator:   c.dev.Operator,
		Tracker:    c.dev.Tracker,
		Attendance: c.dev.Backend,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, jobstart.Request{Session: s, JobID: jobID})
	if err != nil {
		return nil, mapError(err)
	}

	return &WriteResult{Job: fromInternalJob(res.Job), Queued: res.Queued}, nil
}

// RequestStage asks the workflow gate to enter a stage of a job. A rejection is
// returned as a not allowed [Decision], not as an error.
func (c *Client) RequestStage(ctx context.Context, jobID string, target Stage) (*Decision, error) {
	s, err := c.dev.Session(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	st, err := model.ParseStage(string(target))
	if err != nil {
		return nil, mapError(err)
	}

	svc, err := stage.NewService(stage.ServiceConfig{Source: c.dev.Source, Tracker: c.dev.Tracker, Logger: c.logger})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, stage.Request{Session: s, JobID: jobID, Target: st})
	if err != nil {
		return nil, mapError(err)
	}

	result := fromInternalDecision(res.Decision)
	return &result, nil
}
