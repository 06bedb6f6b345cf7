package migration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/hotelbooking/internal/logger"
	"github.com/avstrong/hotelbooking/internal/migration"
	"github.com/avstrong/hotelbooking/internal/storage/memory"
)

func TestUpSeedsOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := logger.Discard()
	db := memory.New(memory.Config{L: l}) //nolint:exhaustruct
	now := time.Date(2030, time.March, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, migration.Up(ctx, l, db, now))
	require.NoError(t, migration.Up(ctx, l, db, now))

	cities, err := db.ListCities(ctx)
	require.NoError(t, err)
	assert.Len(t, cities, 1)

	hotels, err := db.ListHotels(ctx, nil)
	require.NoError(t, err)
	require.Len(t, hotels, 2)

	rooms, err := db.ListRooms(ctx, hotels[0].ID)
	require.NoError(t, err)
	assert.Len(t, rooms, 5)

	dealsList, err := db.ListDeals(ctx, &hotels[0].ID, now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, dealsList, 1)
}
