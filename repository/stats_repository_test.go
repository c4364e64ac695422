package repository

import (
	"context"
	"testing"

	"bankroll/domain/entities"
	"bankroll/repository/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsRepository_MarkEventProcessed(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	stats := NewStatsRepository(testDB.DB)

	eventID := uuid.New()

	fresh, err := stats.MarkEventProcessed(ctx, eventID, "stats.wager_placed")
	require.NoError(t, err)
	assert.True(t, fresh)

	// The same event redelivered to the same handler is rejected.
	fresh, err = stats.MarkEventProcessed(ctx, eventID, "stats.wager_placed")
	require.NoError(t, err)
	assert.False(t, fresh)

	// A different handler processes the same event independently.
	fresh, err = stats.MarkEventProcessed(ctx, eventID, "stats.wager_settled")
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestStatsRepository_CreateAndUpdate(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	stats := NewStatsRepository(testDB.DB)

	row, err := stats.GetForUpdate(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, row)

	row, err = stats.CreateForUpdate(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 0, row.TotalWagers)
	assert.True(t, row.TotalWinnings.IsZero())

	row.ApplySettlement(true, decimal.NewFromInt(150))
	require.NoError(t, stats.Update(ctx, row))

	saved, err := stats.GetForUpdate(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, 1, saved.TotalWagers)
	assert.Equal(t, 1, saved.WagersWon)
	assert.True(t, saved.TotalWinnings.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 100.0, saved.WinRate)
}

func TestStatsRepository_ListTop(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	stats := NewStatsRepository(testDB.DB)

	for userID, winnings := range map[int64]int64{1: 100, 2: 900, 3: 500} {
		require.NoError(t, stats.Upsert(ctx, &entities.UserStats{
			UserID:            userID,
			TotalWinnings:     decimal.NewFromInt(winnings),
			TotalStaked:       decimal.Zero,
			ActiveStaked:      decimal.Zero,
			TotalStakeRewards: decimal.Zero,
		}))
	}

	top, err := stats.ListTop(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(2), top[0].UserID)
	assert.Equal(t, int64(3), top[1].UserID)
}
