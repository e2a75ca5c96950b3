// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TagForge Contributors

package perms_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagforge/tagforge/internal/perms"
	"github.com/tagforge/tagforge/pkg/errutil"
)

func TestArbiter_FailOpenWithoutProviders(t *testing.T) {
	ctx := context.Background()
	arb := perms.NewArbiter(nil)

	// No provider registered: checks pass, writes do not.
	assert.True(t, arb.Has(ctx, "player-1", "tag.mystic"))
	assert.False(t, arb.Grant(ctx, "player-1", "tag.mystic"))
	assert.False(t, arb.Revoke(ctx, "player-1", "tag.mystic"))
}

func TestArbiter_FirstAvailableAnswers(t *testing.T) {
	ctx := context.Background()
	strict, err := perms.NewStaticProvider(nil, nil)
	require.NoError(t, err)
	lenient, err := perms.NewStaticProvider([]string{"tag.*"}, nil)
	require.NoError(t, err)

	arb := perms.NewArbiter(nil, strict, lenient)

	// The first provider denies; the second is never consulted.
	assert.False(t, arb.Has(ctx, "player-1", "tag.mystic"))

	active, ok := arb.Active()
	require.True(t, ok)
	assert.Equal(t, "static", active.Name())
	assert.Equal(t, []string{"static", "static"}, arb.Providers())
}

func TestStaticProvider_Has(t *testing.T) {
	ctx := context.Background()
	provider, err := perms.NewStaticProvider(
		[]string{"chat.*"},
		map[string][]string{
			"vip":   {"tag.*"},
			"basic": {"tag.mystic"},
		},
	)
	require.NoError(t, err)

	t.Run("defaults apply to every player", func(t *testing.T) {
		assert.True(t, provider.Has(ctx, "anyone", "chat.color"))
	})

	t.Run("per-player wildcard", func(t *testing.T) {
		assert.True(t, provider.Has(ctx, "vip", "tag.dragon"))
		assert.False(t, provider.Has(ctx, "basic", "tag.dragon"))
		assert.True(t, provider.Has(ctx, "basic", "tag.mystic"))
	})

	t.Run("unknown player has only defaults", func(t *testing.T) {
		assert.False(t, provider.Has(ctx, "stranger", "tag.mystic"))
	})
}

func TestStaticProvider_GrantRevoke(t *testing.T) {
	ctx := context.Background()
	provider, err := perms.NewStaticProvider(nil, nil)
	require.NoError(t, err)

	assert.False(t, provider.Has(ctx, "p", "tag.mystic"))
	require.True(t, provider.Grant(ctx, "p", "tag.mystic"))
	assert.True(t, provider.Has(ctx, "p", "tag.mystic"))

	// Granting twice is idempotent.
	require.True(t, provider.Grant(ctx, "p", "tag.mystic"))

	require.True(t, provider.Revoke(ctx, "p", "tag.mystic"))
	assert.False(t, provider.Has(ctx, "p", "tag.mystic"))

	// Revoking an absent node reports failure.
	assert.False(t, provider.Revoke(ctx, "p", "tag.mystic"))
}

func TestNewStaticProvider_InvalidPattern(t *testing.T) {
	_, err := perms.NewStaticProvider([]string{"tag.["}, nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "INVALID_NODE_PATTERN")
}
