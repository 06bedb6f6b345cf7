package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/hotelbooking/internal/storage/memory"
)

func TestIdempotencyStoreKeepsFirstBinding(t *testing.T) {
	t.Parallel()

	s := memory.NewIdempotencyStore(time.Hour)
	ctx := context.Background()

	claimed, _, err := s.Claim(ctx, "k")
	require.NoError(t, err)
	assert.True(t, claimed)

	require.NoError(t, s.Bind(ctx, "k", 7))
	require.NoError(t, s.Bind(ctx, "k", 8))

	claimed, id, err := s.Claim(ctx, "k")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, uint(7), id)

	require.NoError(t, s.Release(ctx, "k"))

	_, id, err = s.Claim(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, uint(7), id, "release keeps bound keys")
}

func TestIdempotencyStorePendingClaim(t *testing.T) {
	t.Parallel()

	s := memory.NewIdempotencyStore(time.Hour)
	ctx := context.Background()

	claimed, _, err := s.Claim(ctx, "k")
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, id, err := s.Claim(ctx, "k")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Zero(t, id)

	require.NoError(t, s.Release(ctx, "k"))

	claimed, _, err = s.Claim(ctx, "k")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestIdempotencyStoreExpiresClaims(t *testing.T) {
	t.Parallel()

	clock := time.Date(2030, time.March, 1, 12, 0, 0, 0, time.UTC)
	s := memory.NewIdempotencyStore(time.Hour).WithClock(func() time.Time { return clock })
	ctx := context.Background()

	claimed, _, err := s.Claim(ctx, "pending")
	require.NoError(t, err)
	require.True(t, claimed)

	claimed, _, err = s.Claim(ctx, "bound")
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, s.Bind(ctx, "bound", 3))

	clock = clock.Add(2 * time.Minute)

	claimed, _, err = s.Claim(ctx, "pending")
	require.NoError(t, err)
	assert.True(t, claimed, "abandoned claims expire")

	_, id, err := s.Claim(ctx, "bound")
	require.NoError(t, err)
	assert.Equal(t, uint(3), id)
}
