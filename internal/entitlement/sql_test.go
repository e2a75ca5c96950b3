// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

package entitlement_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagforge/tagforge/internal/entitlement"
)

func newSQLiteStore(t *testing.T) *entitlement.SQLStore {
	t.Helper()
	store, err := entitlement.OpenSQLite(filepath.Join(t.TempDir(), "tags.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	require.NoError(t, store.Migrate())
	return store
}

func TestSQLStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	ent := entitlement.New()
	ent.Add("dragon")
	ent.Equip("mystic")
	require.NoError(t, store.Save(ctx, "player-1", ent))

	loaded := store.Load(ctx, "player-1")
	assert.Equal(t, []string{"dragon", "mystic"}, loaded.Owned)
	assert.Equal(t, "mystic", loaded.Equipped)
}

func TestSQLStore_LoadMissingReturnsEmpty(t *testing.T) {
	store := newSQLiteStore(t)
	loaded := store.Load(context.Background(), "never-seen")
	require.NotNil(t, loaded)
	assert.True(t, loaded.IsEmpty())
}

func TestSQLStore_UpsertLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	first := entitlement.New()
	first.Equip("dragon")
	require.NoError(t, store.Save(ctx, "player-1", first))

	second := entitlement.New()
	second.Equip("mystic")
	require.NoError(t, store.Save(ctx, "player-1", second))

	loaded := store.Load(ctx, "player-1")
	assert.Equal(t, []string{"mystic"}, loaded.Owned)
	assert.Equal(t, "mystic", loaded.Equipped)
}

func TestSQLStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	ent := entitlement.New()
	ent.Add("dragon")
	require.NoError(t, store.Save(ctx, "player-1", ent))
	require.NoError(t, store.Delete(ctx, "player-1"))
	assert.True(t, store.Load(ctx, "player-1").IsEmpty())

	require.NoError(t, store.Delete(ctx, "player-1"))
}

func TestSQLStore_MigrateIsIdempotent(t *testing.T) {
	store := newSQLiteStore(t)
	require.NoError(t, store.Migrate())
}

func TestSQLStore_Journal(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	rec := entitlement.NewTransactionRecord("player-1", "dragon", 5000, "UNLOCKED_PAID")
	require.NoError(t, store.Record(ctx, rec))

	// Same ULID twice violates the primary key; the journal is append-only.
	require.Error(t, store.Record(ctx, rec))
}
