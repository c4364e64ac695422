package services

import (
	"context"
	"fmt"

	"bankroll/domain/entities"
	"bankroll/domain/interfaces"

	"github.com/shopspring/decimal"
)

type leaderboardService struct {
	uowFactory interfaces.UnitOfWorkFactory
	clock      interfaces.Clock
}

// NewLeaderboardService creates the consolidated read model over the
// stats projection.
func NewLeaderboardService(uowFactory interfaces.UnitOfWorkFactory, clock interfaces.Clock) interfaces.LeaderboardService {
	return &leaderboardService{
		uowFactory: uowFactory,
		clock:      clock,
	}
}

// GetLeaderboard returns the top users ranked by total winnings.
func (s *leaderboardService) GetLeaderboard(ctx context.Context, limit int) ([]*entities.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	rows, err := uow.StatsRepository().ListTop(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stats: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	entries := make([]*entities.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, &entities.LeaderboardEntry{
			Rank:          i + 1,
			UserID:        row.UserID,
			TotalWinnings: row.TotalWinnings,
			WinRate:       row.WinRate,
			TotalWagers:   row.TotalWagers,
			LongestStreak: row.LongestStreak,
			TotalStaked:   row.TotalStaked,
		})
	}
	return entries, nil
}

// Rebuild recomputes one user's stats row from the settled wager history
// and staking positions. The projection is derived, so a rebuild is the
// recovery path when the event-driven counters are suspect.
func (s *leaderboardService) Rebuild(ctx context.Context, userID int64) (*entities.UserStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wagers, err := uow.WagerRepository().ListSettledByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list settled wagers: %w", err)
	}

	stats := &entities.UserStats{
		UserID:            userID,
		TotalWinnings:     decimal.Zero,
		TotalStaked:       decimal.Zero,
		ActiveStaked:      decimal.Zero,
		TotalStakeRewards: decimal.Zero,
	}

	// Replay settlements oldest first so streaks come out identical to
	// the event-driven path.
	for _, w := range wagers {
		won := w.Status == entities.WagerStatusWon
		payout := decimal.Zero
		if won {
			payout = w.PotentialPayout
		}
		stats.ApplySettlement(won, payout)
		if w.SettledAt != nil {
			stats.LastWagerAt = w.SettledAt
		}
	}

	positions, err := uow.StakeRepository().ListOpenByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stake positions: %w", err)
	}
	for _, p := range positions {
		stats.ActiveStaked = stats.ActiveStaked.Add(p.Principal)
		if stats.LastStakeAt == nil || p.StartedAt.After(*stats.LastStakeAt) {
			started := p.StartedAt
			stats.LastStakeAt = &started
		}
	}

	// Lifetime staking totals come from the ledger, which also covers
	// closed positions.
	account, err := uow.AccountRepository().GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account != nil {
		staked, err := uow.LedgerRepository().SumByKindAndSource(ctx, account.ID, entities.EntryKindDebit, entities.EntrySourceStake)
		if err != nil {
			return nil, fmt.Errorf("failed to sum staked: %w", err)
		}
		rewards, err := uow.LedgerRepository().SumByKindAndSource(ctx, account.ID, entities.EntryKindCredit, entities.EntrySourceReward)
		if err != nil {
			return nil, fmt.Errorf("failed to sum rewards: %w", err)
		}
		stats.TotalStaked = staked
		stats.TotalStakeRewards = rewards
	}

	stats.UpdatedAt = s.clock.Now()
	if err := uow.StatsRepository().Upsert(ctx, stats); err != nil {
		return nil, fmt.Errorf("failed to upsert stats: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return stats, nil
}
