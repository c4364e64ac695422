package testutil

import (
	"time"

	"bankroll/domain/entities"

	"github.com/shopspring/decimal"
)

// CreateTestMatch creates an upcoming match with fixed odds, starting an
// hour from now.
func CreateTestMatch(home, away string) *entities.Match {
	return &entities.Match{
		HomeTeam: home,
		AwayTeam: away,
		HomeOdds: decimal.RequireFromString("2.00"),
		DrawOdds: decimal.RequireFromString("3.50"),
		AwayOdds: decimal.RequireFromString("4.00"),
		Status:   entities.MatchStatusUpcoming,
		StartsAt: time.Now().UTC().Add(time.Hour),
	}
}

// CreateTestWager creates a pending wager on the match's home outcome.
func CreateTestWager(userID int64, match *entities.Match, amount decimal.Decimal) *entities.Wager {
	return &entities.Wager{
		UserID:          userID,
		MatchID:         match.ID,
		Amount:          amount,
		Predicted:       entities.OutcomeHome,
		Odds:            match.HomeOdds,
		PotentialPayout: amount.Mul(match.HomeOdds).Round(4),
		Status:          entities.WagerStatusPending,
	}
}

// CreateTestVoucher creates an unconsumed voucher for the user.
func CreateTestVoucher(id string, userID int64, denomination decimal.Decimal) *entities.Voucher {
	return &entities.Voucher{
		ID:           id,
		UserID:       userID,
		Denomination: denomination,
	}
}

// CreateTestStakePosition creates an open position that matured yesterday.
func CreateTestStakePosition(userID int64, principal decimal.Decimal, stakeEntryID int64) *entities.StakePosition {
	now := time.Now().UTC()
	return &entities.StakePosition{
		UserID:       userID,
		Principal:    principal,
		Reward:       entities.StakeReward(principal, decimal.NewFromInt(12), 30),
		APR:          decimal.NewFromInt(12),
		TermDays:     30,
		Penalty:      decimal.Zero,
		Status:       entities.StakePositionOpen,
		StakeEntryID: stakeEntryID,
		StartedAt:    now.AddDate(0, 0, -31),
		MaturesAt:    now.AddDate(0, 0, -1),
	}
}
