package services

import (
	"context"
	"testing"
	"time"

	"bankroll/domain/entities"
	"bankroll/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLeaderboardService_GetLeaderboard(t *testing.T) {
	ctx := context.Background()
	uow := testhelpers.NewFakeUnitOfWork()
	service := NewLeaderboardService(testhelpers.NewFakeUowFactory(uow), testhelpers.FixedClock{Time: testNow})

	rows := []*entities.UserStats{
		{UserID: 7, TotalWinnings: decimal.NewFromInt(900), WinRate: 60, TotalWagers: 10, LongestStreak: 4},
		{UserID: 3, TotalWinnings: decimal.NewFromInt(450), WinRate: 50, TotalWagers: 8, LongestStreak: 2},
	}
	uow.Stats.On("ListTop", ctx, 5).Return(rows, nil)

	entries, err := service.GetLeaderboard(ctx, 5)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, int64(7), entries[0].UserID)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, int64(3), entries[1].UserID)
}

func TestLeaderboardService_GetLeaderboard_DefaultLimit(t *testing.T) {
	ctx := context.Background()
	uow := testhelpers.NewFakeUnitOfWork()
	service := NewLeaderboardService(testhelpers.NewFakeUowFactory(uow), testhelpers.FixedClock{Time: testNow})

	uow.Stats.On("ListTop", ctx, 10).Return([]*entities.UserStats{}, nil)

	entries, err := service.GetLeaderboard(ctx, 0)

	require.NoError(t, err)
	assert.Empty(t, entries)
	uow.Stats.AssertCalled(t, "ListTop", ctx, 10)
}

func TestLeaderboardService_Rebuild(t *testing.T) {
	ctx := context.Background()
	uow := testhelpers.NewFakeUnitOfWork()
	service := NewLeaderboardService(testhelpers.NewFakeUowFactory(uow), testhelpers.FixedClock{Time: testNow})

	settledAt := testNow.Add(-time.Hour)
	wagers := []*entities.Wager{
		{ID: 1, UserID: 5, Status: entities.WagerStatusWon, PotentialPayout: decimal.NewFromInt(200), SettledAt: &settledAt},
		{ID: 2, UserID: 5, Status: entities.WagerStatusWon, PotentialPayout: decimal.NewFromInt(100), SettledAt: &settledAt},
		{ID: 3, UserID: 5, Status: entities.WagerStatusLost, SettledAt: &settledAt},
		{ID: 4, UserID: 5, Status: entities.WagerStatusWon, PotentialPayout: decimal.NewFromInt(50), SettledAt: &settledAt},
	}
	positions := []*entities.StakePosition{
		{ID: 1, UserID: 5, Principal: decimal.NewFromInt(300), StartedAt: testNow.Add(-48 * time.Hour)},
		{ID: 2, UserID: 5, Principal: decimal.NewFromInt(200), StartedAt: testNow.Add(-24 * time.Hour)},
	}
	account := newTestAccount(5, 1000, 0)

	uow.Wagers.On("ListSettledByUser", ctx, int64(5)).Return(wagers, nil)
	uow.Stakes.On("ListOpenByUser", ctx, int64(5)).Return(positions, nil)
	uow.Accounts.On("GetByUserID", ctx, int64(5)).Return(account, nil)
	uow.Ledger.On("SumByKindAndSource", ctx, account.ID, entities.EntryKindDebit, entities.EntrySourceStake).Return(decimal.NewFromInt(800), nil)
	uow.Ledger.On("SumByKindAndSource", ctx, account.ID, entities.EntryKindCredit, entities.EntrySourceReward).Return(decimal.RequireFromString("7.8904"), nil)
	uow.Stats.On("Upsert", ctx, mock.AnythingOfType("*entities.UserStats")).Return(nil)

	stats, err := service.Rebuild(ctx, 5)

	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalWagers)
	assert.Equal(t, 3, stats.WagersWon)
	assert.Equal(t, 1, stats.WagersLost)
	assert.True(t, stats.TotalWinnings.Equal(decimal.NewFromInt(350)))
	assert.Equal(t, 75.0, stats.WinRate)
	// Won, won, lost, won: the streak resets mid-run.
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 2, stats.LongestStreak)
	assert.True(t, stats.ActiveStaked.Equal(decimal.NewFromInt(500)))
	assert.True(t, stats.TotalStaked.Equal(decimal.NewFromInt(800)))
	assert.True(t, stats.TotalStakeRewards.Equal(decimal.RequireFromString("7.8904")))
	require.NotNil(t, stats.LastStakeAt)
	assert.Equal(t, testNow.Add(-24*time.Hour), *stats.LastStakeAt)
	assert.Equal(t, testNow, stats.UpdatedAt)
	assert.Equal(t, 1, uow.Committed)
}

func TestLeaderboardService_Rebuild_NoHistory(t *testing.T) {
	ctx := context.Background()
	uow := testhelpers.NewFakeUnitOfWork()
	service := NewLeaderboardService(testhelpers.NewFakeUowFactory(uow), testhelpers.FixedClock{Time: testNow})

	uow.Wagers.On("ListSettledByUser", ctx, int64(5)).Return([]*entities.Wager{}, nil)
	uow.Stakes.On("ListOpenByUser", ctx, int64(5)).Return([]*entities.StakePosition{}, nil)
	uow.Accounts.On("GetByUserID", ctx, int64(5)).Return(nil, nil)
	uow.Stats.On("Upsert", ctx, mock.Anything).Return(nil)

	stats, err := service.Rebuild(ctx, 5)

	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalWagers)
	assert.Equal(t, 0.0, stats.WinRate)
	assert.True(t, stats.TotalStaked.IsZero())
	// No account row means no ledger sums to query.
	uow.Ledger.AssertNotCalled(t, "SumByKindAndSource", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
