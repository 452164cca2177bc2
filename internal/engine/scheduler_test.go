package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/engine"
)

func TestEnqueueOrUpdateIsUniquePerCategory(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := engine.NewScheduler(store.Jobs())

	job, err := s.EnqueueOrUpdate(ctx, engine.JobRequest{SiteID: 1, UserID: 10, Username: "alice", Category: "default", ServerID: 2})
	require.NoError(t, err)
	require.NotZero(t, job.ID)

	again, err := s.EnqueueOrUpdate(ctx, engine.JobRequest{SiteID: 1, UserID: 10, Username: "alice2", Category: "default", ServerID: 3, Priority: true})
	require.NoError(t, err)
	assert.Equal(t, job.ID, again.ID)
	assert.Equal(t, "alice2", again.Username)
	assert.EqualValues(t, 3, again.ServerID)
	assert.True(t, again.Priority)
	assert.Len(t, store.jobs, 1)

	// a different category is a separate queue entry
	other, err := s.EnqueueOrUpdate(ctx, engine.JobRequest{SiteID: 1, UserID: 10, Username: "alice2", Category: "paid_content", ServerID: 3})
	require.NoError(t, err)
	assert.NotEqual(t, job.ID, other.ID)
	assert.Len(t, store.jobs, 2)
}

func TestEnqueueRequiresCategory(t *testing.T) {
	s := engine.NewScheduler(newMemStore().Jobs())
	_, err := s.EnqueueOrUpdate(context.Background(), engine.JobRequest{SiteID: 1, UserID: 10})
	require.Error(t, err)
}

func TestEnqueueReactivatesCompletedJob(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := engine.NewScheduler(store.Jobs())

	job, err := s.EnqueueOrUpdate(ctx, engine.JobRequest{SiteID: 1, UserID: 10, Username: "alice", Category: "default"})
	require.NoError(t, err)
	require.NoError(t, s.Complete(ctx, job.ID))

	done, err := store.Jobs().Find(ctx, 1, 10, "default")
	require.NoError(t, err)
	assert.False(t, done.Active)
	require.NotNil(t, done.CompletedAt)

	_, err = s.EnqueueOrUpdate(ctx, engine.JobRequest{SiteID: 1, UserID: 10, Username: "alice", Category: "default"})
	require.NoError(t, err)
	redone, err := store.Jobs().Find(ctx, 1, 10, "default")
	require.NoError(t, err)
	assert.True(t, redone.Active)
	assert.Nil(t, redone.CompletedAt)
}

func TestQueueOrdersPriorityFirst(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := engine.NewScheduler(store.Jobs())

	_, err := s.EnqueueOrUpdate(ctx, engine.JobRequest{SiteID: 1, UserID: 10, Username: "a", Category: "default", ServerID: 2})
	require.NoError(t, err)
	_, err = s.EnqueueOrUpdate(ctx, engine.JobRequest{SiteID: 1, UserID: 11, Username: "b", Category: "default", ServerID: 2, Priority: true})
	require.NoError(t, err)
	_, err = s.EnqueueOrUpdate(ctx, engine.JobRequest{SiteID: 1, UserID: 12, Username: "c", Category: "default", ServerID: 2})
	require.NoError(t, err)

	jobs, err := s.Queue(ctx, 1, engine.JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.EqualValues(t, 11, jobs[0].UserID)
	assert.EqualValues(t, 10, jobs[1].UserID)
	assert.EqualValues(t, 12, jobs[2].UserID)
}

func TestQueueExcludesCompleted(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := engine.NewScheduler(store.Jobs())

	job, err := s.EnqueueOrUpdate(ctx, engine.JobRequest{SiteID: 1, UserID: 10, Username: "a", Category: "default"})
	require.NoError(t, err)
	_, err = s.EnqueueOrUpdate(ctx, engine.JobRequest{SiteID: 1, UserID: 11, Username: "b", Category: "default"})
	require.NoError(t, err)
	require.NoError(t, s.Complete(ctx, job.ID))

	jobs, err := s.Queue(ctx, 1, engine.JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.EqualValues(t, 11, jobs[0].UserID)
}

func TestNextPicksPerServer(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	s := engine.NewScheduler(store.Jobs())

	_, err := s.EnqueueOrUpdate(ctx, engine.JobRequest{SiteID: 1, UserID: 10, Username: "a", Category: "default", ServerID: 2})
	require.NoError(t, err)
	_, err = s.EnqueueOrUpdate(ctx, engine.JobRequest{SiteID: 1, UserID: 11, Username: "b", Category: "default", ServerID: 3})
	require.NoError(t, err)

	job, err := s.Next(ctx, 1, 3)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.EqualValues(t, 11, job.UserID)

	job, err = s.Next(ctx, 1, 4)
	require.NoError(t, err)
	assert.Nil(t, job)
}
