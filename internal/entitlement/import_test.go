// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

package entitlement_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagforge/tagforge/internal/entitlement"
)

func TestImportLegacy(t *testing.T) {
	t.Run("imports all records into the SQL backend", func(t *testing.T) {
		ctx := context.Background()
		sourceDir := filepath.Join(t.TempDir(), "playerdata")
		source, err := entitlement.NewFileStore(sourceDir, nil)
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			ent := entitlement.New()
			ent.Add("dragon")
			if i%2 == 0 {
				ent.Equip("mystic")
			}
			require.NoError(t, source.Save(ctx, fmt.Sprintf("player-%d", i), ent))
		}

		target := newSQLiteStore(t)
		result, err := entitlement.ImportLegacy(ctx, target, sourceDir, nil)
		require.NoError(t, err)
		assert.Equal(t, 5, result.Imported)
		assert.Equal(t, 0, result.Failed)

		for i := 0; i < 5; i++ {
			loaded := target.Load(ctx, fmt.Sprintf("player-%d", i))
			assert.True(t, loaded.Owns("dragon"), "player-%d", i)
			if i%2 == 0 {
				assert.Equal(t, "mystic", loaded.Equipped, "player-%d", i)
			} else {
				assert.Empty(t, loaded.Equipped, "player-%d", i)
			}
		}

		// Source directory is renamed to mark completion.
		_, statErr := os.Stat(sourceDir)
		assert.True(t, os.IsNotExist(statErr))
		_, statErr = os.Stat(sourceDir + "_legacy")
		assert.NoError(t, statErr)
	})

	t.Run("rerun after rename is a no-op", func(t *testing.T) {
		ctx := context.Background()
		sourceDir := filepath.Join(t.TempDir(), "playerdata")
		source, err := entitlement.NewFileStore(sourceDir, nil)
		require.NoError(t, err)

		ent := entitlement.New()
		ent.Add("dragon")
		require.NoError(t, source.Save(ctx, "player-1", ent))

		target := newSQLiteStore(t)
		_, err = entitlement.ImportLegacy(ctx, target, sourceDir, nil)
		require.NoError(t, err)

		result, err := entitlement.ImportLegacy(ctx, target, sourceDir, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Imported)
	})

	t.Run("corrupt record is skipped, batch continues", func(t *testing.T) {
		ctx := context.Background()
		sourceDir := filepath.Join(t.TempDir(), "playerdata")
		source, err := entitlement.NewFileStore(sourceDir, nil)
		require.NoError(t, err)

		ent := entitlement.New()
		ent.Add("dragon")
		require.NoError(t, source.Save(ctx, "good", ent))
		require.NoError(t, os.WriteFile(
			filepath.Join(sourceDir, "bad.json"), []byte("{broken"), 0o644))

		target := newSQLiteStore(t)
		result, err := entitlement.ImportLegacy(ctx, target, sourceDir, nil)
		require.NoError(t, err)

		// The corrupt record loads as empty and is skipped rather than
		// written as a useless row.
		assert.Equal(t, 1, result.Imported)
		assert.True(t, target.Load(ctx, "good").Owns("dragon"))
		assert.True(t, target.Load(ctx, "bad").IsEmpty())
	})

	t.Run("missing source directory is a no-op", func(t *testing.T) {
		target := newSQLiteStore(t)
		result, err := entitlement.ImportLegacy(context.Background(), target,
			filepath.Join(t.TempDir(), "never-existed"), nil)
		require.NoError(t, err)
		assert.Zero(t, result.Imported)
	})
}
