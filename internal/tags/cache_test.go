// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

package tags_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tagforge/tagforge/internal/tags"
)

func TestDecisionCache(t *testing.T) {
	t.Run("miss then hit", func(t *testing.T) {
		cache := tags.NewDecisionCache()

		_, ok := cache.Get("alice", "mystic")
		assert.False(t, ok)

		cache.Put("alice", "mystic", true)
		decision, ok := cache.Get("alice", "mystic")
		assert.True(t, ok)
		assert.True(t, decision)
	})

	t.Run("tag keys are case-insensitive", func(t *testing.T) {
		cache := tags.NewDecisionCache()
		cache.Put("alice", "Mystic", false)

		decision, ok := cache.Get("alice", "MYSTIC")
		assert.True(t, ok)
		assert.False(t, decision)
	})

	t.Run("invalidate drops one player only", func(t *testing.T) {
		cache := tags.NewDecisionCache()
		cache.Put("alice", "mystic", true)
		cache.Put("bob", "mystic", true)

		cache.Invalidate("alice")

		_, ok := cache.Get("alice", "mystic")
		assert.False(t, ok)
		_, ok = cache.Get("bob", "mystic")
		assert.True(t, ok)
	})

	t.Run("invalidate all", func(t *testing.T) {
		cache := tags.NewDecisionCache()
		cache.Put("alice", "mystic", true)
		cache.Put("bob", "dragon", false)

		cache.InvalidateAll()

		_, ok := cache.Get("alice", "mystic")
		assert.False(t, ok)
		_, ok = cache.Get("bob", "dragon")
		assert.False(t, ok)
	})
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", tags.ResultNotFound.String())
	assert.Equal(t, "UNLOCKED_PAID", tags.ResultUnlockedPaid.String())
	assert.Equal(t, "UNKNOWN", tags.Result(99).String())
}

func TestResult_Granted(t *testing.T) {
	assert.True(t, tags.ResultUnlockedFree.Granted())
	assert.True(t, tags.ResultUnlockedPaid.Granted())
	assert.True(t, tags.ResultEquippedAlreadyOwned.Granted())
	assert.False(t, tags.ResultUnequipped.Granted())
	assert.False(t, tags.ResultNotEnoughMoney.Granted())
}
