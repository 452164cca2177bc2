package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DATAHOARDERS/UltimaScraperDB/internal/engine"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/model"
	"github.com/DATAHOARDERS/UltimaScraperDB/internal/snapshot"
)

var testClock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestReconciler(store *memStore) *engine.Reconciler {
	notifier := engine.NewNotifier(store.Notifications(), nil)
	return engine.NewReconciler("onlyfans", store, engine.NewClassifier(nil), notifier, engine.Options{
		Now: func() time.Time { return testClock },
	})
}

func performerSnap() *snapshot.User {
	created := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	return &snapshot.User{
		ID:        1,
		Username:  "alice",
		Performer: true,
		Profile: snapshot.Profile{
			Name:       "Alice",
			Price:      9.99,
			PostCount:  2,
			MediaCount: 2,
		},
		Posts: []snapshot.Content{
			{
				ID: 10, AuthorID: 1, Text: "first", CreatedAt: created,
				Media: []snapshot.Media{
					{ID: 100, URL: "https://cdn/a.jpg", Size: 1000, Category: model.MediaImage},
				},
			},
			{
				ID: 11, AuthorID: 1, Text: "second", CreatedAt: created,
				Media: []snapshot.Media{
					{ID: 101, URL: "https://cdn/b.mp4", Size: 5000, Category: model.MediaVideo},
				},
			},
		},
	}
}

func TestReconcileIdentityFirstRunCreatesEverything(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := newTestReconciler(store)

	identity, report, err := r.ReconcileIdentity(ctx, performerSnap())
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.EqualValues(t, 1, identity.ID)
	assert.Equal(t, "alice", identity.Username)
	require.NotNil(t, identity.LastCheckedAt)
	assert.True(t, identity.LastCheckedAt.Equal(testClock))

	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 2, report.Media)
	assert.Empty(t, report.ItemErrors)
	assert.NotEmpty(t, report.SessionID)

	assert.Len(t, store.medias, 2)
	assert.Len(t, store.assos, 2)
	// archived size rolls into the profile at session end
	info, err := store.Identities().Profile(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.EqualValues(t, 6000, info.Size)
}

func TestReconcileIdentityIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := newTestReconciler(store)

	_, _, err := r.ReconcileIdentity(ctx, performerSnap())
	require.NoError(t, err)
	historyAfterFirst := len(store.history)
	require.Equal(t, 1, historyAfterFirst)

	_, report, err := r.ReconcileIdentity(ctx, performerSnap())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 2, report.Updated)
	assert.Len(t, store.medias, 2)
	assert.Len(t, store.assos, 2)
	// unchanged profile appends no history entry
	assert.Len(t, store.history, historyAfterFirst)
}

func TestReconcileProfileChangeAppendsHistory(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := newTestReconciler(store)

	_, _, err := r.ReconcileIdentity(ctx, performerSnap())
	require.NoError(t, err)

	snap := performerSnap()
	snap.Profile.SubscriberCount = 50
	_, _, err = r.ReconcileIdentity(ctx, snap)
	require.NoError(t, err)
	require.Len(t, store.history, 2)
	assert.Equal(t, 50, store.history[1].SubscriberCount)
}

func TestReconcileSharedMediaDeduplicates(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := newTestReconciler(store)

	snap := performerSnap()
	// the same remote media appears in both posts
	snap.Posts[1].Media = []snapshot.Media{
		{ID: 100, URL: "https://cdn/a.jpg", Size: 1000, Category: model.MediaImage},
	}
	_, _, err := r.ReconcileIdentity(ctx, snap)
	require.NoError(t, err)

	assert.Len(t, store.medias, 1)
	assert.Len(t, store.assos, 2)
}

func TestReconcileReceiverMismatchSkipsItemOnly(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := newTestReconciler(store)

	stored := int64(7)
	store.content[model.ContentRef{Kind: model.KindMessage, ID: 20}] = model.ContentItem{
		Kind: model.KindMessage, ID: 20, UserID: 1, ReceiverID: &stored,
	}

	other := int64(8)
	created := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	snap := &snapshot.User{
		ID:       1,
		Username: "alice",
		Messages: []snapshot.Content{
			{ID: 20, AuthorID: 1, Text: "redirected", ReceiverID: &other, CreatedAt: created},
			{ID: 21, AuthorID: 1, Text: "fine", ReceiverID: &stored, CreatedAt: created},
		},
	}
	_, report, err := r.ReconcileIdentity(ctx, snap)
	require.NoError(t, err)

	require.Len(t, report.ItemErrors, 1)
	var mismatch *engine.ReceiverMismatchError
	require.ErrorAs(t, report.ItemErrors[0], &mismatch)
	assert.EqualValues(t, 20, mismatch.MessageID)

	// the sibling committed and the stored receiver survived
	assert.Equal(t, 1, report.Created)
	kept := store.content[model.ContentRef{Kind: model.KindMessage, ID: 20}]
	assert.Equal(t, stored, *kept.ReceiverID)
	assert.Empty(t, kept.Text)
}

func TestReconcileQueueIDOnlyWhenMassDerived(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := newTestReconciler(store)

	queue := int64(500)
	receiver := int64(2)
	created := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	snap := &snapshot.User{
		ID:       1,
		Username: "alice",
		Messages: []snapshot.Content{
			{ID: 20, AuthorID: 1, ReceiverID: &receiver, QueueID: &queue, CreatedAt: created},
			{ID: 21, AuthorID: 1, ReceiverID: &receiver, QueueID: &queue, MassDerived: true, CreatedAt: created},
		},
	}
	_, _, err := r.ReconcileIdentity(ctx, snap)
	require.NoError(t, err)

	plain := store.content[model.ContentRef{Kind: model.KindMessage, ID: 20}]
	assert.Nil(t, plain.QueueID)
	derived := store.content[model.ContentRef{Kind: model.KindMessage, ID: 21}]
	require.NotNil(t, derived.QueueID)
	assert.Equal(t, queue, *derived.QueueID)
}

func TestReconcileCheckpointRetries(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.failCheckpoints = 1
	r := newTestReconciler(store)

	_, report, err := r.ReconcileIdentity(ctx, performerSnap())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 2, store.checkpoints)
}

func TestReconcilePurchaseCreatesPlaceholderSupplier(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := newTestReconciler(store)

	snap := performerSnap()
	snap.Authed = &snapshot.Authed{
		Credential: snapshot.CredentialInfo{UserAgent: "ua", Valid: true},
		Purchases:  []snapshot.Purchase{{SupplierID: 99}},
	}
	_, _, err := r.ReconcileIdentity(ctx, snap)
	require.NoError(t, err)

	supplier, err := store.Identities().Get(ctx, 99)
	require.NoError(t, err)
	require.NotNil(t, supplier)
	assert.Equal(t, "u99", supplier.Username)
	assert.True(t, supplier.Performer)

	has, err := store.Subscriptions().HasPurchase(ctx, 99, 1)
	require.NoError(t, err)
	assert.True(t, has)

	buyer := int64(1)
	n, err := store.Notifications().Find(ctx, 99, model.NotifyNewPaidContent, &buyer)
	require.NoError(t, err)
	require.NotNil(t, n)

	// replaying the purchase raises nothing new
	before := len(store.notifications)
	_, _, err = r.ReconcileIdentity(ctx, snap)
	require.NoError(t, err)
	assert.Len(t, store.notifications, before)
}

func TestReconcileCredentialMatchesAndUpdates(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := newTestReconciler(store)

	cookie := "sess=abc"
	snap := performerSnap()
	snap.Authed = &snapshot.Authed{
		Credential: snapshot.CredentialInfo{Cookie: &cookie, UserAgent: "ua", Valid: true},
	}
	_, _, err := r.ReconcileIdentity(ctx, snap)
	require.NoError(t, err)

	creds, err := store.Identities().Credentials(ctx, 1)
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.True(t, creds[0].Active)

	// the same cookie updates in place rather than appending
	snap.Authed.Credential.Valid = false
	_, _, err = r.ReconcileIdentity(ctx, snap)
	require.NoError(t, err)
	creds, err = store.Identities().Credentials(ctx, 1)
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.False(t, creds[0].Active)
}

func TestReconcileNotifiesNewPerformerOnce(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := newTestReconciler(store)

	_, _, err := r.ReconcileIdentity(ctx, performerSnap())
	require.NoError(t, err)

	n, err := store.Notifications().Find(ctx, 1, model.NotifyNewPerformer, nil)
	require.NoError(t, err)
	require.NotNil(t, n)

	_, _, err = r.ReconcileIdentity(ctx, performerSnap())
	require.NoError(t, err)
	rows, err := store.Notifications().ListBySubject(ctx, 1, model.NotifyNewPerformer)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestReconcileNonPerformerRaisesNothing(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := newTestReconciler(store)

	snap := performerSnap()
	snap.Performer = false
	_, _, err := r.ReconcileIdentity(ctx, snap)
	require.NoError(t, err)
	assert.Empty(t, store.notifications)
}

func TestReconcileMassStatsEnsureMassMessageRow(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := newTestReconciler(store)

	created := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	snap := performerSnap()
	snap.Posts = nil
	snap.Authed = &snapshot.Authed{
		Credential: snapshot.CredentialInfo{UserAgent: "ua", Valid: true},
		MassStats: []snapshot.MassMessageStat{
			{ID: 300, Text: "promo", Price: 5, MediaCount: 1, SentCount: 40, ViewCount: 12, CreatedAt: created},
		},
	}
	_, _, err := r.ReconcileIdentity(ctx, snap)
	require.NoError(t, err)

	assert.Contains(t, store.massStats, int64(300))
	item, ok := store.content[model.ContentRef{Kind: model.KindMassMessage, ID: 300}]
	require.True(t, ok)
	require.NotNil(t, item.StatisticID)
	assert.EqualValues(t, 300, *item.StatisticID)
	assert.Equal(t, "promo", item.Text)
}

func TestReconcileSubscriptionsRecorded(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := newTestReconciler(store)

	expires := testClock.Add(30 * 24 * time.Hour)
	snap := performerSnap()
	snap.Authed = &snapshot.Authed{
		Credential: snapshot.CredentialInfo{UserAgent: "ua", Valid: true},
		Subscriptions: []snapshot.Subscription{
			{UserID: 5, Active: true, PaidContent: true, ExpiresAt: expires},
		},
	}
	_, _, err := r.ReconcileIdentity(ctx, snap)
	require.NoError(t, err)

	edge, err := store.Subscriptions().Get(ctx, 5, 1)
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.True(t, edge.Active)
	assert.True(t, edge.ExpiresAt.Equal(expires))
}

func TestReconcileSubscriptionCreatesPlaceholderOwner(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := newTestReconciler(store)

	snap := performerSnap()
	snap.Authed = &snapshot.Authed{
		Credential: snapshot.CredentialInfo{UserAgent: "ua", Valid: true},
		Subscriptions: []snapshot.Subscription{
			{UserID: 555, Active: true, ExpiresAt: testClock.Add(30 * 24 * time.Hour)},
		},
	}
	_, _, err := r.ReconcileIdentity(ctx, snap)
	require.NoError(t, err)

	// the edge must have an owner row to reference
	owner, err := store.Identities().Get(ctx, 555)
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, "u555", owner.Username)
	assert.True(t, owner.Performer)

	edge, err := store.Subscriptions().Get(ctx, 555, 1)
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.True(t, edge.Active)
}

func TestReconcileAttachesFilePathOnce(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := newTestReconciler(store)

	snap := performerSnap()
	snap.Posts = snap.Posts[:1]
	snap.Posts[0].Media[0].Filename = "a.jpg"
	_, _, err := r.ReconcileIdentity(ctx, snap)
	require.NoError(t, err)
	require.Len(t, store.filepaths, 1)
	assert.Equal(t, "a.jpg", store.filepaths[0].Path)

	_, _, err = r.ReconcileIdentity(ctx, snap)
	require.NoError(t, err)
	assert.Len(t, store.filepaths, 1)
}

func TestReconcileArchivesComments(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := newTestReconciler(store)

	created := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	snap := performerSnap()
	snap.Posts = snap.Posts[:1]
	snap.Posts[0].Comments = []snapshot.Comment{
		{ID: 900, UserID: 5, Text: "nice", LikesCount: 3, CreatedAt: created},
	}
	_, _, err := r.ReconcileIdentity(ctx, snap)
	require.NoError(t, err)
	require.Contains(t, store.comments, int64(900))

	// comments are append-only; a changed replay does not rewrite them
	snap.Posts[0].Comments[0].Text = "edited"
	_, _, err = r.ReconcileIdentity(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, "nice", store.comments[900].Text)
}
