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

func TestReconcileNameRecordsOldNameAsAlias(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := engine.NewResolver(store.Identities())

	identity := &model.Identity{ID: 7, Username: "alice"}
	require.NoError(t, store.Identities().Save(ctx, identity))

	require.NoError(t, r.ReconcileName(ctx, identity, "alice2"))
	assert.Equal(t, "alice2", identity.Username)

	aliases, err := store.Identities().Aliases(ctx, 7)
	require.NoError(t, err)
	require.Len(t, aliases, 1)
	assert.Equal(t, "alice", aliases[0].Username)

	// re-applying the same rename stays idempotent
	require.NoError(t, r.ReconcileName(ctx, identity, "alice2"))
	aliases, err = store.Identities().Aliases(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, aliases, 1)
}

func TestReconcileNamePlaceholderNeverAliased(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := engine.NewResolver(store.Identities())

	identity := &model.Identity{ID: 42}
	require.NoError(t, r.ReconcileName(ctx, identity, ""))
	assert.Equal(t, "u42", identity.Username)

	// real name arrives; the placeholder must not be recorded as an alias
	require.NoError(t, r.ReconcileName(ctx, identity, "bob"))
	assert.Equal(t, "bob", identity.Username)
	aliases, err := store.Identities().Aliases(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, aliases)
}

func TestReconcileNamePlaceholderKeepsRealName(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := engine.NewResolver(store.Identities())

	identity := &model.Identity{ID: 9, Username: "carol"}
	require.NoError(t, r.ReconcileName(ctx, identity, "u9"))
	assert.Equal(t, "carol", identity.Username)
}

func TestReconcileNamePlaceholderPromotesNewestAlias(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := engine.NewResolver(store.Identities())

	require.NoError(t, store.Identities().AddAlias(ctx, 5, "old_name"))
	require.NoError(t, store.Identities().AddAlias(ctx, 5, "newer_name"))

	identity := &model.Identity{ID: 5, Username: "u5"}
	require.NoError(t, r.ReconcileName(ctx, identity, "u5"))
	assert.Equal(t, "newer_name", identity.Username)
}

func TestResolveByNameFallsBackToAliases(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := engine.NewResolver(store.Identities())

	require.NoError(t, store.Identities().Save(ctx, &model.Identity{ID: 3, Username: "dora2"}))
	require.NoError(t, store.Identities().AddAlias(ctx, 3, "dora"))

	got, err := r.ResolveByName(ctx, "dora")
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.ID)

	_, err = r.ResolveByName(ctx, "nobody")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestResolveByNameAmbiguousAlias(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := engine.NewResolver(store.Identities())

	require.NoError(t, store.Identities().AddAlias(ctx, 11, "shared"))
	require.NoError(t, store.Identities().AddAlias(ctx, 4, "shared"))

	_, err := r.ResolveByName(ctx, "shared")
	var ambiguous *engine.AmbiguousAliasError
	require.True(t, errors.As(err, &ambiguous))
	assert.Equal(t, []int64{4, 11}, ambiguous.OwnerIDs)
	assert.True(t, engine.IsConflict(err))
}
