// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

package entitlement_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagforge/tagforge/internal/entitlement"
)

func newFileStore(t *testing.T) *entitlement.FileStore {
	t.Helper()
	store, err := entitlement.NewFileStore(filepath.Join(t.TempDir(), "playerdata"), nil)
	require.NoError(t, err)
	return store
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	ent := entitlement.New()
	ent.Add("dragon")
	ent.Equip("mystic")
	require.NoError(t, store.Save(ctx, "player-1", ent))

	loaded := store.Load(ctx, "player-1")
	assert.Equal(t, []string{"dragon", "mystic"}, loaded.Owned)
	assert.Equal(t, "mystic", loaded.Equipped)
	assert.Equal(t, entitlement.CurrentDataVersion, loaded.DataVersion)
}

func TestFileStore_LoadMissingReturnsEmpty(t *testing.T) {
	store := newFileStore(t)
	loaded := store.Load(context.Background(), "never-seen")
	require.NotNil(t, loaded)
	assert.True(t, loaded.IsEmpty())
}

func TestFileStore_CorruptDocumentTreatedAsEmpty(t *testing.T) {
	store := newFileStore(t)
	path := filepath.Join(store.Dir(), "player-1.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	loaded := store.Load(context.Background(), "player-1")
	require.NotNil(t, loaded)
	assert.True(t, loaded.IsEmpty())
}

func TestFileStore_LoadRepairsInvariant(t *testing.T) {
	// A hand-edited document can violate equipped-implies-owned; the store
	// clears the equipped slot on load rather than serving invalid state.
	store := newFileStore(t)
	path := filepath.Join(store.Dir(), "player-1.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"dataVersion":1,"owned":["dragon"],"equipped":"mystic"}`), 0o644))

	loaded := store.Load(context.Background(), "player-1")
	assert.Empty(t, loaded.Equipped)
	assert.True(t, loaded.Owns("dragon"))
}

func TestFileStore_SaveIsIdempotentUpsert(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	ent := entitlement.New()
	ent.Equip("dragon")
	require.NoError(t, store.Save(ctx, "player-1", ent))
	require.NoError(t, store.Save(ctx, "player-1", ent))

	loaded := store.Load(ctx, "player-1")
	assert.Equal(t, []string{"dragon"}, loaded.Owned)
}

func TestFileStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	ent := entitlement.New()
	ent.Add("dragon")
	require.NoError(t, store.Save(ctx, "player-1", ent))
	require.NoError(t, store.Delete(ctx, "player-1"))
	assert.True(t, store.Load(ctx, "player-1").IsEmpty())

	// Deleting a missing record is not an error.
	require.NoError(t, store.Delete(ctx, "player-1"))
}

func TestFileStore_Journal(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	rec := entitlement.NewTransactionRecord("player-1", "dragon", 5000, "UNLOCKED_PAID")
	require.NoError(t, store.Record(ctx, rec))
	require.NoError(t, store.Record(ctx, rec))

	data, err := os.ReadFile(filepath.Join(store.Dir(), "journal.ndjson"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tagId":"dragon"`)
	assert.Contains(t, string(data), rec.ID.String())
}

func TestFileStore_PlayerIDs(t *testing.T) {
	ctx := context.Background()
	store := newFileStore(t)

	ent := entitlement.New()
	ent.Add("dragon")
	require.NoError(t, store.Save(ctx, "alpha", ent))
	require.NoError(t, store.Save(ctx, "beta", ent))
	require.NoError(t, store.Record(ctx,
		entitlement.NewTransactionRecord("alpha", "dragon", 0, "UNLOCKED_FREE")))

	ids, err := store.PlayerIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, ids)
}
