package application

import (
	"context"
	"testing"
	"time"

	"bankroll/domain/entities"
	domainevents "bankroll/domain/events"
	"bankroll/domain/testhelpers"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var aggNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newAggStats(userID int64) *entities.UserStats {
	return &entities.UserStats{
		UserID:            userID,
		TotalWinnings:     decimal.Zero,
		TotalStaked:       decimal.Zero,
		ActiveStaked:      decimal.Zero,
		TotalStakeRewards: decimal.Zero,
	}
}

func TestStatsAggregator_HandleWagerPlaced_CreatesRow(t *testing.T) {
	ctx := context.Background()
	uow := testhelpers.NewFakeUnitOfWork()
	agg := NewStatsAggregator(testhelpers.NewFakeUowFactory(uow))

	event := domainevents.NewWagerPlacedEvent(1, 10, 2, decimal.NewFromInt(100), aggNow)

	uow.Stats.On("MarkEventProcessed", ctx, event.ID(), "stats.wager_placed").Return(true, nil)
	uow.Stats.On("GetForUpdate", ctx, int64(1)).Return(nil, nil)
	uow.Stats.On("CreateForUpdate", ctx, int64(1)).Return(newAggStats(1), nil)
	uow.Stats.On("Update", ctx, mock.MatchedBy(func(s *entities.UserStats) bool {
		// Placement stamps activity but does not count the wager; the
		// counter belongs to settlement.
		return s.TotalWagers == 0 && s.LastWagerAt != nil && s.LastWagerAt.Equal(aggNow)
	})).Return(nil)

	require.NoError(t, agg.HandleWagerPlaced(ctx, event))
	assert.Equal(t, 1, uow.Committed)
}

func TestStatsAggregator_HandleWagerPlaced_Duplicate(t *testing.T) {
	ctx := context.Background()
	uow := testhelpers.NewFakeUnitOfWork()
	agg := NewStatsAggregator(testhelpers.NewFakeUowFactory(uow))

	event := domainevents.NewWagerPlacedEvent(1, 10, 2, decimal.NewFromInt(100), aggNow)
	uow.Stats.On("MarkEventProcessed", ctx, event.ID(), "stats.wager_placed").Return(false, nil)

	require.NoError(t, agg.HandleWagerPlaced(ctx, event))
	// A redelivered event touches nothing past the dedupe record.
	uow.Stats.AssertNotCalled(t, "GetForUpdate", mock.Anything, mock.Anything)
	assert.Equal(t, 0, uow.Committed)
}

func TestStatsAggregator_HandleWagerSettled(t *testing.T) {
	ctx := context.Background()
	uow := testhelpers.NewFakeUnitOfWork()
	agg := NewStatsAggregator(testhelpers.NewFakeUowFactory(uow))

	stats := newAggStats(1)
	stats.TotalWagers = 3
	stats.WagersWon = 1
	stats.WagersLost = 2

	event := domainevents.NewWagerSettledEvent(1, 10, 2, true, decimal.NewFromInt(50), decimal.NewFromInt(100), aggNow)
	uow.Stats.On("MarkEventProcessed", ctx, event.ID(), "stats.wager_settled").Return(true, nil)
	uow.Stats.On("GetForUpdate", ctx, int64(1)).Return(stats, nil)
	uow.Stats.On("Update", ctx, stats).Return(nil)

	require.NoError(t, agg.HandleWagerSettled(ctx, event))

	assert.Equal(t, 4, stats.TotalWagers)
	assert.Equal(t, 2, stats.WagersWon)
	assert.True(t, stats.TotalWinnings.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 50.0, stats.WinRate)
	assert.Equal(t, 1, stats.CurrentStreak)
}

func TestStatsAggregator_HandleWagerSettled_MissingRow(t *testing.T) {
	ctx := context.Background()
	uow := testhelpers.NewFakeUnitOfWork()
	agg := NewStatsAggregator(testhelpers.NewFakeUowFactory(uow))

	event := domainevents.NewWagerSettledEvent(1, 10, 2, true, decimal.NewFromInt(50), decimal.NewFromInt(100), aggNow)
	uow.Stats.On("MarkEventProcessed", ctx, event.ID(), "stats.wager_settled").Return(true, nil)
	uow.Stats.On("GetForUpdate", ctx, int64(1)).Return(nil, nil)

	err := agg.HandleWagerSettled(ctx, event)

	// A settlement without a placement row means the projection is
	// corrupt; the handler must not invent a row.
	assert.ErrorIs(t, err, entities.ErrStatsRowMissing)
	uow.Stats.AssertNotCalled(t, "CreateForUpdate", mock.Anything, mock.Anything)
	assert.Equal(t, 0, uow.Committed)
	assert.Equal(t, 1, uow.RolledBck)
}

func TestStatsAggregator_HandleStakeDebited(t *testing.T) {
	ctx := context.Background()

	t.Run("stake", func(t *testing.T) {
		uow := testhelpers.NewFakeUnitOfWork()
		agg := NewStatsAggregator(testhelpers.NewFakeUowFactory(uow))
		stats := newAggStats(1)

		event := domainevents.NewStakeDebitedEvent(1, 3, decimal.NewFromInt(500), domainevents.StakeReasonStake, aggNow)
		uow.Stats.On("MarkEventProcessed", ctx, event.ID(), "stats.stake_debited").Return(true, nil)
		uow.Stats.On("GetForUpdate", ctx, int64(1)).Return(stats, nil)
		uow.Stats.On("Update", ctx, stats).Return(nil)

		require.NoError(t, agg.HandleStakeDebited(ctx, event))
		assert.True(t, stats.TotalStaked.Equal(decimal.NewFromInt(500)))
		assert.True(t, stats.ActiveStaked.Equal(decimal.NewFromInt(500)))
		require.NotNil(t, stats.LastStakeAt)
	})

	t.Run("unstake", func(t *testing.T) {
		uow := testhelpers.NewFakeUnitOfWork()
		agg := NewStatsAggregator(testhelpers.NewFakeUowFactory(uow))
		stats := newAggStats(1)
		stats.TotalStaked = decimal.NewFromInt(500)
		stats.ActiveStaked = decimal.NewFromInt(500)

		event := domainevents.NewStakeDebitedEvent(1, 3, decimal.NewFromInt(500), domainevents.StakeReasonUnstake, aggNow)
		uow.Stats.On("MarkEventProcessed", ctx, event.ID(), "stats.stake_debited").Return(true, nil)
		uow.Stats.On("GetForUpdate", ctx, int64(1)).Return(stats, nil)
		uow.Stats.On("Update", ctx, stats).Return(nil)

		require.NoError(t, agg.HandleStakeDebited(ctx, event))
		// Lifetime total keeps the stake; only the active figure drops.
		assert.True(t, stats.TotalStaked.Equal(decimal.NewFromInt(500)))
		assert.True(t, stats.ActiveStaked.IsZero())
	})

	t.Run("unstake below zero fails", func(t *testing.T) {
		uow := testhelpers.NewFakeUnitOfWork()
		agg := NewStatsAggregator(testhelpers.NewFakeUowFactory(uow))
		stats := newAggStats(1)
		stats.ActiveStaked = decimal.NewFromInt(100)

		event := domainevents.NewStakeDebitedEvent(1, 3, decimal.NewFromInt(500), domainevents.StakeReasonUnstake, aggNow)
		uow.Stats.On("MarkEventProcessed", ctx, event.ID(), "stats.stake_debited").Return(true, nil)
		uow.Stats.On("GetForUpdate", ctx, int64(1)).Return(stats, nil)

		err := agg.HandleStakeDebited(ctx, event)
		require.Error(t, err)
		assert.Equal(t, 0, uow.Committed)
	})

	t.Run("unknown reason fails", func(t *testing.T) {
		uow := testhelpers.NewFakeUnitOfWork()
		agg := NewStatsAggregator(testhelpers.NewFakeUowFactory(uow))

		event := domainevents.NewStakeDebitedEvent(1, 3, decimal.NewFromInt(500), "rebalance", aggNow)
		uow.Stats.On("MarkEventProcessed", ctx, event.ID(), "stats.stake_debited").Return(true, nil)
		uow.Stats.On("GetForUpdate", ctx, int64(1)).Return(newAggStats(1), nil)

		err := agg.HandleStakeDebited(ctx, event)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rebalance")
	})
}

func TestStatsAggregator_HandleStakeCredited(t *testing.T) {
	ctx := context.Background()
	uow := testhelpers.NewFakeUnitOfWork()
	agg := NewStatsAggregator(testhelpers.NewFakeUowFactory(uow))

	stats := newAggStats(1)
	stats.TotalStakeRewards = decimal.RequireFromString("5.25")

	event := domainevents.NewStakeCreditedEvent(1, 3, decimal.RequireFromString("9.863"), aggNow)
	uow.Stats.On("MarkEventProcessed", ctx, event.ID(), "stats.stake_credited").Return(true, nil)
	uow.Stats.On("GetForUpdate", ctx, int64(1)).Return(stats, nil)
	uow.Stats.On("Update", ctx, stats).Return(nil)

	require.NoError(t, agg.HandleStakeCredited(ctx, event))
	assert.True(t, stats.TotalStakeRewards.Equal(decimal.RequireFromString("15.113")))
}

func TestStatsAggregator_HandleStakeCredited_MissingRow(t *testing.T) {
	ctx := context.Background()
	uow := testhelpers.NewFakeUnitOfWork()
	agg := NewStatsAggregator(testhelpers.NewFakeUowFactory(uow))

	event := domainevents.NewStakeCreditedEvent(1, 3, decimal.NewFromInt(10), aggNow)
	uow.Stats.On("MarkEventProcessed", ctx, event.ID(), "stats.stake_credited").Return(true, nil)
	uow.Stats.On("GetForUpdate", ctx, int64(1)).Return(nil, nil)

	assert.ErrorIs(t, agg.HandleStakeCredited(ctx, event), entities.ErrStatsRowMissing)
}

func TestStatsAggregator_EventIDsDistinguishHandlers(t *testing.T) {
	// Two different events never share an ID, so dedupe records keyed by
	// event ID and handler name cannot collide.
	a := domainevents.NewWagerPlacedEvent(1, 10, 2, decimal.NewFromInt(100), aggNow)
	b := domainevents.NewWagerPlacedEvent(1, 10, 2, decimal.NewFromInt(100), aggNow)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotEqual(t, uuid.Nil, a.ID())
}
