package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/engine"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
)

type recordingBus struct {
	published []model.Notification
	fail      bool
}

func (b *recordingBus) PublishNotification(_ context.Context, n *model.Notification) error {
	if b.fail {
		return errors.New("broker down")
	}
	b.published = append(b.published, *n)
	return nil
}

func TestMaybeNotifyAtMostOncePerKey(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	n := engine.NewNotifier(store.Notifications(), nil)

	require.NoError(t, n.MaybeNotify(ctx, 1, model.NotifyNewPerformer, nil))
	require.NoError(t, n.MaybeNotify(ctx, 1, model.NotifyNewPerformer, nil))
	assert.Len(t, store.notifications, 1)

	// a different category is a different key
	require.NoError(t, n.MaybeNotify(ctx, 1, model.NotifyNewPaidContent, nil))
	assert.Len(t, store.notifications, 2)
}

func TestMaybeNotifyObserverGetsOwnRow(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	n := engine.NewNotifier(store.Notifications(), nil)

	require.NoError(t, n.MaybeNotify(ctx, 1, model.NotifyNewPaidContent, nil))
	observer := int64(7)
	require.NoError(t, n.MaybeNotify(ctx, 1, model.NotifyNewPaidContent, &observer))
	require.NoError(t, n.MaybeNotify(ctx, 1, model.NotifyNewPaidContent, &observer))
	assert.Len(t, store.notifications, 2)

	row, err := store.Notifications().Find(ctx, 1, model.NotifyNewPaidContent, &observer)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, observer, *row.ObserverID)
}

func TestMaybeNotifyPublishesOnCreation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	bus := &recordingBus{}
	n := engine.NewNotifier(store.Notifications(), bus)

	require.NoError(t, n.MaybeNotify(ctx, 1, model.NotifyNewPerformer, nil))
	require.Len(t, bus.published, 1)
	assert.EqualValues(t, 1, bus.published[0].UserID)

	// an existing row publishes nothing
	require.NoError(t, n.MaybeNotify(ctx, 1, model.NotifyNewPerformer, nil))
	assert.Len(t, bus.published, 1)
}

func TestMaybeNotifyPublishFailureKeepsRow(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	n := engine.NewNotifier(store.Notifications(), &recordingBus{fail: true})

	require.NoError(t, n.MaybeNotify(ctx, 1, model.NotifyNewPerformer, nil))
	assert.Len(t, store.notifications, 1)
}

func TestPendingAndMarkDelivered(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	n := engine.NewNotifier(store.Notifications(), nil)

	require.NoError(t, n.MaybeNotify(ctx, 1, model.NotifyNewPerformer, nil))
	require.NoError(t, n.MaybeNotify(ctx, 2, model.NotifyNewPerformer, nil))

	rows, err := n.Pending(ctx, model.ChannelDiscord, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, n.MarkDelivered(ctx, rows[0].ID, model.ChannelDiscord))
	rows, err = n.Pending(ctx, model.ChannelDiscord, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// delivery state is per channel
	rows, err = n.Pending(ctx, model.ChannelTelegram, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
