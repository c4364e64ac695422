package services

import (
	"context"
	"testing"
	"time"

	"bankroll/domain/entities"
	domainevents "bankroll/domain/events"
	"bankroll/domain/interfaces"
	"bankroll/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newOpenMatch(id int64) *entities.Match {
	return &entities.Match{
		ID:       id,
		HomeTeam: "Arsenal",
		AwayTeam: "Chelsea",
		HomeOdds: decimal.NewFromFloat(2.0),
		DrawOdds: decimal.NewFromFloat(3.5),
		AwayOdds: decimal.NewFromFloat(4.0),
		Status:   entities.MatchStatusUpcoming,
		StartsAt: testNow.Add(2 * time.Hour),
	}
}

func TestBettingService_PlaceWager(t *testing.T) {
	ctx := context.Background()
	uow := testhelpers.NewFakeUnitOfWork()
	service := NewBettingService(testhelpers.NewFakeUowFactory(uow), testhelpers.FixedClock{Time: testNow})

	match := newOpenMatch(7)
	account := newTestAccount(1, 200, 0)

	uow.Matches.On("GetByID", ctx, int64(7)).Return(match, nil)
	uow.Wagers.On("GetByUserAndMatch", ctx, int64(1), int64(7)).Return(nil, nil)
	uow.Wagers.On("Create", ctx, mock.AnythingOfType("*entities.Wager")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*entities.Wager).ID = 42
	})
	uow.Accounts.On("GetForUpdate", ctx, int64(1)).Return(account, nil)
	uow.Ledger.On("ExistsByIdempotencyKey", ctx, account.ID, "wager:place:42", entities.EntryKindDebit, entities.EntrySourceBet).Return(false, nil)
	uow.Accounts.On("UpdateBalances", ctx, account).Return(nil)
	uow.Ledger.On("Record", ctx, mock.AnythingOfType("*entities.LedgerEntry")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*entities.LedgerEntry).ID = 9001
	})
	uow.Wagers.On("Update", ctx, mock.AnythingOfType("*entities.Wager")).Return(nil)

	wager, err := service.PlaceWager(ctx, interfaces.PlaceWagerRequest{
		UserID:    1,
		MatchID:   7,
		Amount:    decimal.NewFromInt(50),
		Predicted: entities.OutcomeHome,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), wager.ID)
	assert.True(t, wager.Odds.Equal(decimal.NewFromFloat(2.0)), "odds snapshot")
	assert.True(t, wager.PotentialPayout.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, wager.StakeEntryID)
	assert.Equal(t, int64(9001), *wager.StakeEntryID)
	assert.True(t, account.AvailableBalance.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 1, uow.Committed)

	require.Len(t, uow.Publisher.Events, 1)
	placed, ok := uow.Publisher.Events[0].(domainevents.WagerPlacedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(42), placed.WagerID)
}

func TestBettingService_PlaceWager_MatchNotOpen(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(m *entities.Match)
	}{
		{"already live", func(m *entities.Match) { m.Status = entities.MatchStatusLive }},
		{"already started", func(m *entities.Match) { m.StartsAt = testNow.Add(-time.Minute) }},
		{"cancelled", func(m *entities.Match) { m.Status = entities.MatchStatusCancelled }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uow := testhelpers.NewFakeUnitOfWork()
			service := NewBettingService(testhelpers.NewFakeUowFactory(uow), testhelpers.FixedClock{Time: testNow})

			match := newOpenMatch(7)
			tt.setup(match)
			uow.Matches.On("GetByID", ctx, int64(7)).Return(match, nil)

			_, err := service.PlaceWager(ctx, interfaces.PlaceWagerRequest{
				UserID: 1, MatchID: 7, Amount: decimal.NewFromInt(50), Predicted: entities.OutcomeHome,
			})

			assert.ErrorIs(t, err, entities.ErrMatchNotOpen)
			assert.Equal(t, 0, uow.Committed)
		})
	}
}

func TestBettingService_PlaceWager_Duplicate(t *testing.T) {
	ctx := context.Background()
	uow := testhelpers.NewFakeUnitOfWork()
	service := NewBettingService(testhelpers.NewFakeUowFactory(uow), testhelpers.FixedClock{Time: testNow})

	uow.Matches.On("GetByID", ctx, int64(7)).Return(newOpenMatch(7), nil)
	uow.Wagers.On("GetByUserAndMatch", ctx, int64(1), int64(7)).Return(&entities.Wager{ID: 5}, nil)

	_, err := service.PlaceWager(ctx, interfaces.PlaceWagerRequest{
		UserID: 1, MatchID: 7, Amount: decimal.NewFromInt(50), Predicted: entities.OutcomeHome,
	})

	assert.ErrorIs(t, err, entities.ErrDuplicateWager)
}

func TestBettingService_PlaceWager_VoucherFunded(t *testing.T) {
	ctx := context.Background()
	uow := testhelpers.NewFakeUnitOfWork()
	service := NewBettingService(testhelpers.NewFakeUowFactory(uow), testhelpers.FixedClock{Time: testNow})

	voucher := &entities.Voucher{
		ID:           "v-1",
		UserID:       1,
		Denomination: decimal.NewFromInt(50),
	}
	uow.Matches.On("GetByID", ctx, int64(7)).Return(newOpenMatch(7), nil)
	uow.Wagers.On("GetByUserAndMatch", ctx, int64(1), int64(7)).Return(nil, nil)
	uow.Vouchers.On("GetForUpdate", ctx, "v-1").Return(voucher, nil)
	uow.Wagers.On("Create", ctx, mock.AnythingOfType("*entities.Wager")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*entities.Wager).ID = 42
	})
	uow.Vouchers.On("Consume", ctx, "v-1", int64(42)).Return(true, nil)

	wager, err := service.PlaceWager(ctx, interfaces.PlaceWagerRequest{
		UserID: 1, MatchID: 7, Amount: decimal.NewFromInt(50), Predicted: entities.OutcomeDraw, VoucherID: "v-1",
	})

	require.NoError(t, err)
	assert.True(t, wager.VoucherFunded())
	// No account debit for voucher-funded wagers.
	uow.Accounts.AssertNotCalled(t, "GetForUpdate", mock.Anything, mock.Anything)
	assert.Equal(t, 1, uow.Committed)
}

func TestBettingService_PlaceWager_VoucherMismatch(t *testing.T) {
	ctx := context.Background()
	uow := testhelpers.NewFakeUnitOfWork()
	service := NewBettingService(testhelpers.NewFakeUowFactory(uow), testhelpers.FixedClock{Time: testNow})

	voucher := &entities.Voucher{ID: "v-1", UserID: 1, Denomination: decimal.NewFromInt(25)}
	uow.Matches.On("GetByID", ctx, int64(7)).Return(newOpenMatch(7), nil)
	uow.Wagers.On("GetByUserAndMatch", ctx, int64(1), int64(7)).Return(nil, nil)
	uow.Vouchers.On("GetForUpdate", ctx, "v-1").Return(voucher, nil)

	_, err := service.PlaceWager(ctx, interfaces.PlaceWagerRequest{
		UserID: 1, MatchID: 7, Amount: decimal.NewFromInt(50), Predicted: entities.OutcomeDraw, VoucherID: "v-1",
	})

	assert.ErrorIs(t, err, entities.ErrVoucherAmountMismatch)
	assert.Equal(t, 0, uow.Committed)
}

func TestBettingService_PlaceWager_VoucherOwnedByOther(t *testing.T) {
	ctx := context.Background()
	uow := testhelpers.NewFakeUnitOfWork()
	service := NewBettingService(testhelpers.NewFakeUowFactory(uow), testhelpers.FixedClock{Time: testNow})

	voucher := &entities.Voucher{ID: "v-1", UserID: 2, Denomination: decimal.NewFromInt(50)}
	uow.Matches.On("GetByID", ctx, int64(7)).Return(newOpenMatch(7), nil)
	uow.Wagers.On("GetByUserAndMatch", ctx, int64(1), int64(7)).Return(nil, nil)
	uow.Vouchers.On("GetForUpdate", ctx, "v-1").Return(voucher, nil)

	_, err := service.PlaceWager(ctx, interfaces.PlaceWagerRequest{
		UserID: 1, MatchID: 7, Amount: decimal.NewFromInt(50), Predicted: entities.OutcomeDraw, VoucherID: "v-1",
	})

	assert.ErrorIs(t, err, entities.ErrVoucherInvalid)
}

func TestBettingService_SettleMatch(t *testing.T) {
	ctx := context.Background()

	finished := newOpenMatch(7)
	finished.Status = entities.MatchStatusFinished
	result := entities.OutcomeHome
	finished.Result = &result

	// One uow for the read phase, one per wager settlement.
	readUow := testhelpers.NewFakeUnitOfWork()
	winUow := testhelpers.NewFakeUnitOfWork()
	loseUow := testhelpers.NewFakeUnitOfWork()
	service := NewBettingService(testhelpers.NewFakeUowFactory(readUow, winUow, loseUow), testhelpers.FixedClock{Time: testNow})

	readUow.Matches.On("GetByID", ctx, int64(7)).Return(finished, nil)
	readUow.Wagers.On("ListPendingByMatch", ctx, int64(7)).Return([]int64{10, 11}, nil)

	winner := &entities.Wager{
		ID: 10, UserID: 1, MatchID: 7,
		Amount:          decimal.NewFromInt(50),
		Predicted:       entities.OutcomeHome,
		Odds:            decimal.NewFromFloat(2.0),
		PotentialPayout: decimal.NewFromInt(100),
		Status:          entities.WagerStatusPending,
	}
	winAccount := newTestAccount(1, 0, 0)
	winUow.Wagers.On("GetByIDForUpdate", ctx, int64(10)).Return(winner, nil)
	winUow.Accounts.On("GetForUpdate", ctx, int64(1)).Return(winAccount, nil)
	winUow.Ledger.On("ExistsByIdempotencyKey", ctx, winAccount.ID, "wager:settle:10", entities.EntryKindCredit, entities.EntrySourceBet).Return(false, nil)
	winUow.Accounts.On("UpdateBalances", ctx, winAccount).Return(nil)
	winUow.Ledger.On("Record", ctx, mock.Anything).Return(nil)
	winUow.Wagers.On("Update", ctx, winner).Return(nil)

	loser := &entities.Wager{
		ID: 11, UserID: 2, MatchID: 7,
		Amount:          decimal.NewFromInt(30),
		Predicted:       entities.OutcomeAway,
		Odds:            decimal.NewFromFloat(4.0),
		PotentialPayout: decimal.NewFromInt(120),
		Status:          entities.WagerStatusPending,
	}
	loseUow.Wagers.On("GetByIDForUpdate", ctx, int64(11)).Return(loser, nil)
	loseUow.Wagers.On("Update", ctx, loser).Return(nil)

	summary, err := service.SettleMatch(ctx, 7)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Settled)
	assert.Equal(t, 1, summary.Won)
	assert.Equal(t, 1, summary.Lost)
	assert.Equal(t, 0, summary.Failed)
	assert.True(t, summary.TotalPayout.Equal(decimal.NewFromInt(100)))

	// Winner: stake 50 at odds 2.00 pays exactly 100.
	assert.True(t, winAccount.AvailableBalance.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, entities.WagerStatusWon, winner.Status)
	require.NotNil(t, winner.SettledAt)

	// Loser: no balance movement, just the status flip.
	assert.Equal(t, entities.WagerStatusLost, loser.Status)
	loseUow.Accounts.AssertNotCalled(t, "GetForUpdate", mock.Anything, mock.Anything)

	// Settled events publish per wager, after each commit.
	require.Len(t, winUow.Publisher.Events, 1)
	require.Len(t, loseUow.Publisher.Events, 1)
	settled := winUow.Publisher.Events[0].(domainevents.WagerSettledEvent)
	assert.True(t, settled.Won)
	assert.True(t, settled.Payout.Equal(decimal.NewFromInt(100)))
}

func TestBettingService_SettleMatch_IsolatesFailures(t *testing.T) {
	ctx := context.Background()

	finished := newOpenMatch(7)
	finished.Status = entities.MatchStatusFinished
	result := entities.OutcomeDraw
	finished.Result = &result

	readUow := testhelpers.NewFakeUnitOfWork()
	failUow := testhelpers.NewFakeUnitOfWork()
	okUow := testhelpers.NewFakeUnitOfWork()
	service := NewBettingService(testhelpers.NewFakeUowFactory(readUow, failUow, okUow), testhelpers.FixedClock{Time: testNow})

	readUow.Matches.On("GetByID", ctx, int64(7)).Return(finished, nil)
	readUow.Wagers.On("ListPendingByMatch", ctx, int64(7)).Return([]int64{10, 11}, nil)

	// First wager vanished between listing and locking.
	failUow.Wagers.On("GetByIDForUpdate", ctx, int64(10)).Return(nil, nil)

	survivor := &entities.Wager{
		ID: 11, UserID: 2, MatchID: 7,
		Amount: decimal.NewFromInt(30), Predicted: entities.OutcomeAway,
		PotentialPayout: decimal.NewFromInt(120),
		Status:          entities.WagerStatusPending,
	}
	okUow.Wagers.On("GetByIDForUpdate", ctx, int64(11)).Return(survivor, nil)
	okUow.Wagers.On("Update", ctx, survivor).Return(nil)

	summary, err := service.SettleMatch(ctx, 7)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Settled)
	assert.Equal(t, entities.WagerStatusLost, survivor.Status)
}

func TestBettingService_SettleMatch_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("not finished", func(t *testing.T) {
		uow := testhelpers.NewFakeUnitOfWork()
		service := NewBettingService(testhelpers.NewFakeUowFactory(uow), testhelpers.FixedClock{Time: testNow})
		uow.Matches.On("GetByID", ctx, int64(7)).Return(newOpenMatch(7), nil)

		_, err := service.SettleMatch(ctx, 7)
		assert.ErrorIs(t, err, entities.ErrMatchNotFinished)
	})

	t.Run("no result", func(t *testing.T) {
		uow := testhelpers.NewFakeUnitOfWork()
		service := NewBettingService(testhelpers.NewFakeUowFactory(uow), testhelpers.FixedClock{Time: testNow})
		match := newOpenMatch(7)
		match.Status = entities.MatchStatusFinished
		uow.Matches.On("GetByID", ctx, int64(7)).Return(match, nil)

		_, err := service.SettleMatch(ctx, 7)
		assert.ErrorIs(t, err, entities.ErrOutcomeUndetermined)
	})

	t.Run("unknown match", func(t *testing.T) {
		uow := testhelpers.NewFakeUnitOfWork()
		service := NewBettingService(testhelpers.NewFakeUowFactory(uow), testhelpers.FixedClock{Time: testNow})
		uow.Matches.On("GetByID", ctx, int64(7)).Return(nil, nil)

		_, err := service.SettleMatch(ctx, 7)
		assert.ErrorIs(t, err, entities.ErrMatchNotFound)
	})
}

func TestBettingService_CancelWager(t *testing.T) {
	ctx := context.Background()

	newPendingWager := func() *entities.Wager {
		return &entities.Wager{
			ID: 42, UserID: 1, MatchID: 7,
			Amount: decimal.NewFromInt(50),
			Status: entities.WagerStatusPending,
		}
	}

	t.Run("owner refund", func(t *testing.T) {
		uow := testhelpers.NewFakeUnitOfWork()
		service := NewBettingService(testhelpers.NewFakeUowFactory(uow), testhelpers.FixedClock{Time: testNow})

		wager := newPendingWager()
		account := newTestAccount(1, 0, 0)
		uow.Wagers.On("GetByIDForUpdate", ctx, int64(42)).Return(wager, nil)
		uow.Accounts.On("GetForUpdate", ctx, int64(1)).Return(account, nil)
		uow.Ledger.On("ExistsByIdempotencyKey", ctx, account.ID, "wager:cancel:42", entities.EntryKindCredit, entities.EntrySourceBet).Return(false, nil)
		uow.Accounts.On("UpdateBalances", ctx, account).Return(nil)
		uow.Ledger.On("Record", ctx, mock.Anything).Return(nil)
		uow.Wagers.On("Update", ctx, wager).Return(nil)

		cancelled, err := service.CancelWager(ctx, 42, 1, false)

		require.NoError(t, err)
		assert.Equal(t, entities.WagerStatusCancelled, cancelled.Status)
		assert.True(t, account.AvailableBalance.Equal(decimal.NewFromInt(50)))
	})

	t.Run("stranger forbidden", func(t *testing.T) {
		uow := testhelpers.NewFakeUnitOfWork()
		service := NewBettingService(testhelpers.NewFakeUowFactory(uow), testhelpers.FixedClock{Time: testNow})

		uow.Wagers.On("GetByIDForUpdate", ctx, int64(42)).Return(newPendingWager(), nil)

		_, err := service.CancelWager(ctx, 42, 999, false)
		assert.ErrorIs(t, err, entities.ErrForbidden)
	})

	t.Run("admin may cancel", func(t *testing.T) {
		uow := testhelpers.NewFakeUnitOfWork()
		service := NewBettingService(testhelpers.NewFakeUowFactory(uow), testhelpers.FixedClock{Time: testNow})

		wager := newPendingWager()
		account := newTestAccount(1, 0, 0)
		uow.Wagers.On("GetByIDForUpdate", ctx, int64(42)).Return(wager, nil)
		uow.Accounts.On("GetForUpdate", ctx, int64(1)).Return(account, nil)
		uow.Ledger.On("ExistsByIdempotencyKey", ctx, account.ID, "wager:cancel:42", entities.EntryKindCredit, entities.EntrySourceBet).Return(false, nil)
		uow.Accounts.On("UpdateBalances", ctx, account).Return(nil)
		uow.Ledger.On("Record", ctx, mock.Anything).Return(nil)
		uow.Wagers.On("Update", ctx, wager).Return(nil)

		_, err := service.CancelWager(ctx, 42, 999, true)
		require.NoError(t, err)
	})

	t.Run("voucher funded refunds nothing", func(t *testing.T) {
		uow := testhelpers.NewFakeUnitOfWork()
		service := NewBettingService(testhelpers.NewFakeUowFactory(uow), testhelpers.FixedClock{Time: testNow})

		wager := newPendingWager()
		voucherID := "v-1"
		wager.VoucherID = &voucherID
		uow.Wagers.On("GetByIDForUpdate", ctx, int64(42)).Return(wager, nil)
		uow.Wagers.On("Update", ctx, wager).Return(nil)

		cancelled, err := service.CancelWager(ctx, 42, 1, false)

		require.NoError(t, err)
		assert.Equal(t, entities.WagerStatusCancelled, cancelled.Status)
		uow.Accounts.AssertNotCalled(t, "GetForUpdate", mock.Anything, mock.Anything)
	})

	t.Run("already settled", func(t *testing.T) {
		uow := testhelpers.NewFakeUnitOfWork()
		service := NewBettingService(testhelpers.NewFakeUowFactory(uow), testhelpers.FixedClock{Time: testNow})

		wager := newPendingWager()
		wager.Status = entities.WagerStatusWon
		uow.Wagers.On("GetByIDForUpdate", ctx, int64(42)).Return(wager, nil)

		_, err := service.CancelWager(ctx, 42, 1, false)
		assert.ErrorIs(t, err, entities.ErrWagerNotPending)
	})
}
