package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserStats is the per-user ranking record maintained by the stats
// aggregator. It is a derived projection over ledger activity: it can be
// dropped and rebuilt from wagers and ledger aggregates at any time, and
// is never a source of truth for balances.
type UserStats struct {
	UserID            int64           `db:"user_id"`
	TotalWagers       int             `db:"total_wagers"`
	WagersWon         int             `db:"wagers_won"`
	WagersLost        int             `db:"wagers_lost"`
	TotalWinnings     decimal.Decimal `db:"total_winnings"`
	WinRate           float64         `db:"win_rate"`
	CurrentStreak     int             `db:"current_streak"`
	LongestStreak     int             `db:"longest_streak"`
	TotalStaked       decimal.Decimal `db:"total_staked"`
	ActiveStaked      decimal.Decimal `db:"active_staked"`
	TotalStakeRewards decimal.Decimal `db:"total_stake_rewards"`
	LastWagerAt       *time.Time      `db:"last_wager_at"`
	LastStakeAt       *time.Time      `db:"last_stake_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// RecomputeWinRate derives the win rate from wins over total settled
// wagers. The rate is always recomputed, never drifted incrementally.
func (s *UserStats) RecomputeWinRate() {
	settled := s.WagersWon + s.WagersLost
	if settled == 0 {
		s.WinRate = 0
		return
	}
	s.WinRate = float64(s.WagersWon) / float64(settled) * 100
}

// ApplySettlement folds one settled wager into the counters and streaks.
func (s *UserStats) ApplySettlement(won bool, payout decimal.Decimal) {
	s.TotalWagers++
	if won {
		s.WagersWon++
		s.TotalWinnings = s.TotalWinnings.Add(payout)
		s.CurrentStreak++
		if s.CurrentStreak > s.LongestStreak {
			s.LongestStreak = s.CurrentStreak
		}
	} else {
		s.WagersLost++
		s.CurrentStreak = 0
	}
	s.RecomputeWinRate()
}

// LeaderboardEntry is one ranked row of the leaderboard read model.
type LeaderboardEntry struct {
	Rank          int
	UserID        int64
	TotalWinnings decimal.Decimal
	WinRate       float64
	TotalWagers   int
	LongestStreak int
	TotalStaked   decimal.Decimal
}
