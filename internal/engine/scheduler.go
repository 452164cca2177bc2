package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
)

// Scheduler manages the per-site work queue.  A job is unique per
// (site, user, category); enqueueing an existing one updates it in place
// instead of growing the queue.
type Scheduler struct {
	jobs JobStore
	now  func() time.Time
}

// NewScheduler builds a scheduler over the job store.
func NewScheduler(jobs JobStore) *Scheduler {
	return &Scheduler{jobs: jobs, now: time.Now}
}

// JobRequest describes the job to enqueue or refresh.
type JobRequest struct {
	SiteID    int64
	UserID    int64
	Username  string
	Category  string
	ServerID  int64
	HostID    *int64
	Priority  bool
	Skippable bool
}

// EnqueueOrUpdate creates the job for (site, user, category) or refreshes the
// existing one: username, server, host and flags are overwritten, the job is
// reactivated and its completion stamp cleared.
func (s *Scheduler) EnqueueOrUpdate(ctx context.Context, req JobRequest) (*model.Job, error) {
	if req.Category == "" {
		return nil, fmt.Errorf("enqueue job for user %d: empty category", req.UserID)
	}
	job, err := s.jobs.Find(ctx, req.SiteID, req.UserID, req.Category)
	if err != nil {
		return nil, fmt.Errorf("load job %d/%d/%s: %w", req.SiteID, req.UserID, req.Category, err)
	}
	if job == nil {
		job = &model.Job{SiteID: req.SiteID, UserID: req.UserID, Category: req.Category}
	}
	job.Username = req.Username
	job.ServerID = req.ServerID
	job.HostID = req.HostID
	job.Priority = req.Priority
	job.Skippable = req.Skippable
	job.Active = true
	job.CompletedAt = nil
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job %d/%d/%s: %w", req.SiteID, req.UserID, req.Category, err)
	}
	return job, nil
}

// Queue lists the site's active jobs in dequeue order.
func (s *Scheduler) Queue(ctx context.Context, siteID int64, filter JobFilter) ([]model.Job, error) {
	active := true
	filter.Active = &active
	jobs, err := s.jobs.List(ctx, siteID, filter)
	if err != nil {
		return nil, fmt.Errorf("list jobs for site %d: %w", siteID, err)
	}
	return jobs, nil
}

// Next returns the job a worker on the given server should run next, or nil
// when the queue is empty.
func (s *Scheduler) Next(ctx context.Context, siteID, serverID int64) (*model.Job, error) {
	jobs, err := s.Queue(ctx, siteID, JobFilter{ServerID: serverID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return &jobs[0], nil
}

// Complete soft-finishes a job: it stays in the table with active cleared
// and the completion time recorded.
func (s *Scheduler) Complete(ctx context.Context, jobID int64) error {
	if err := s.jobs.Complete(ctx, jobID, s.now().UTC()); err != nil {
		return fmt.Errorf("complete job %d: %w", jobID, err)
	}
	return nil
}
