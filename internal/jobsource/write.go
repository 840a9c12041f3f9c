package jobsource

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/slok/fieldwork/internal/model"
)

// Write is a job write that can be applied on the backend or deferred.
type Write struct {
	Action  model.ActionType
	Payload any
	// Online applies the write on the backend and returns the stored job.
	Online func(ctx context.Context) (model.Job, error)
	// Local applies the write on the cached job snapshot.
	Local func(j *model.Job) error
}

// WriteResult is the result of a job write.
type WriteResult struct {
	Job model.Job
	// Queued is true when the write was deferred to the offline queue.
	Queued bool
}

// Write applies a write on a read job. Jobs read from the backend are written
// on the backend, jobs read from the cache get the write applied locally and
// queued for replay. Writes never overtake queued ones: while the queue has
// pending writes they are drained first or the new write is queued too.
func (s *Source) Write(ctx context.Context, read Result, w Write) (WriteResult, error) {
	if s.writeOnline(ctx, read) {
		j, err := w.Online(ctx)
		if err != nil {
			return WriteResult{}, err
		}
		s.Cache(ctx, j)
		return WriteResult{Job: j}, nil
	}

	if s.queue == nil {
		return WriteResult{}, fmt.Errorf("%s requires connectivity: %w", w.Action, model.ErrOffline)
	}

	// Validate on a copy so a rejected write leaves the snapshot untouched.
	j := read.Job.Copy()
	if err := w.Local(&j); err != nil {
		return WriteResult{}, err
	}

	if err := s.queue.Enqueue(ctx, w.Action, w.Payload); err != nil {
		return WriteResult{}, fmt.Errorf("could not queue %s: %w", w.Action, err)
	}
	s.Cache(ctx, j)
	s.logger.Infof("Job %s write %s queued until connectivity is back", j.JobNo, w.Action)

	return WriteResult{Job: j, Queued: true}, nil
}

func (s *Source) writeOnline(ctx context.Context, read Result) bool {
	if s.queue == nil {
		return !read.Cached
	}

	pending, err := s.queue.Pending(ctx)
	if err != nil {
		s.logger.Warningf("could not list queued writes, queueing: %s", err)
		return false
	}
	if len(pending) == 0 {
		return !read.Cached
	}

	if s.drain == nil || !s.Online(ctx) {
		return false
	}
	if err := s.drain(ctx); err != nil {
		s.logger.Warningf("could not replay %d queued writes, queueing: %s", len(pending), err)
		return false
	}

	return true
}

// queuedJob is the part of the queued action payloads that names the job.
type queuedJob struct {
	JobID string `json:"jobId"`
	Image *struct {
		JobID string
	} `json:"image"`
}

// pendingJobs returns the IDs of the jobs with queued writes.
func (s *Source) pendingJobs(ctx context.Context) map[string]struct{} {
	if s.queue == nil {
		return nil
	}

	actions, err := s.queue.Pending(ctx)
	if err != nil {
		s.logger.Warningf("could not list queued writes: %s", err)
		return nil
	}

	ids := map[string]struct{}{}
	for _, a := range actions {
		var q queuedJob
		if err := json.Unmarshal(a.Payload, &q); err != nil {
			s.logger.Debugf("could not decode queued action %s: %s", a.ID, err)
			continue
		}
		if q.JobID != "" {
			ids[q.JobID] = struct{}{}
		}
		if q.Image != nil && q.Image.JobID != "" {
			ids[q.Image.JobID] = struct{}{}
		}
	}

	return ids
}
