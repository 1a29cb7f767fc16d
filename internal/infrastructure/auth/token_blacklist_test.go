package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTokenBlacklist_AddToBlacklist(t *testing.T) {
	bl := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	err := bl.AddToBlacklist(ctx, "jti-1", time.Minute)
	require.NoError(t, err)

	blacklisted, err := bl.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, blacklisted)

	blacklisted, err = bl.IsBlacklisted(ctx, "jti-unknown")
	require.NoError(t, err)
	assert.False(t, blacklisted)
}

func TestInMemoryTokenBlacklist_ExpirationCleanup(t *testing.T) {
	bl := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	err := bl.AddToBlacklist(ctx, "jti-short", 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	blacklisted, err := bl.IsBlacklisted(ctx, "jti-short")
	require.NoError(t, err)
	assert.False(t, blacklisted, "expired entries should fall out of the blacklist")
}

func TestInMemoryTokenBlacklist_MultipleTokens(t *testing.T) {
	bl := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	require.NoError(t, bl.AddToBlacklist(ctx, "jti-a", time.Minute))
	require.NoError(t, bl.AddToBlacklist(ctx, "jti-b", time.Minute))

	for _, jti := range []string{"jti-a", "jti-b"} {
		blacklisted, err := bl.IsBlacklisted(ctx, jti)
		require.NoError(t, err)
		assert.True(t, blacklisted, jti)
	}
}
