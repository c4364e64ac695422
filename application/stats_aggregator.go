package application

import (
	"context"
	"fmt"

	"bankroll/domain/entities"
	domainevents "bankroll/domain/events"
	"bankroll/domain/interfaces"
	"bankroll/observability"

	log "github.com/sirupsen/logrus"
)

// StatsAggregator maintains the per-user statistics projection from the
// domain event stream. Delivery is at-least-once, so every handler first
// records the event ID and skips events it has already processed; the
// dedupe record and the stats mutation commit in the same transaction.
type StatsAggregator struct {
	uowFactory interfaces.UnitOfWorkFactory
}

// NewStatsAggregator creates a new stats aggregator
func NewStatsAggregator(uowFactory interfaces.UnitOfWorkFactory) *StatsAggregator {
	return &StatsAggregator{uowFactory: uowFactory}
}

// HandleWagerPlaced ensures the user's stats row exists and stamps the
// wager activity time. This is the only handler that creates rows; every
// later event for the user finds the row already present.
func (a *StatsAggregator) HandleWagerPlaced(ctx context.Context, event domainevents.WagerPlacedEvent) error {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	fresh, err := uow.StatsRepository().MarkEventProcessed(ctx, event.ID(), handlerWagerPlaced)
	if err != nil {
		return fmt.Errorf("failed to record event id: %w", err)
	}
	if !fresh {
		return nil
	}

	stats, err := uow.StatsRepository().GetForUpdate(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("failed to lock stats row: %w", err)
	}
	if stats == nil {
		if stats, err = uow.StatsRepository().CreateForUpdate(ctx, event.UserID); err != nil {
			return fmt.Errorf("failed to create stats row: %w", err)
		}
	}

	placedAt := event.PlacedAt
	stats.LastWagerAt = &placedAt
	if err := uow.StatsRepository().Update(ctx, stats); err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}

	return uow.Commit()
}

// HandleWagerSettled folds one settlement into the counters, streaks and
// win rate. The stats row must already exist; a missing row means the
// placement event was lost and the projection is corrupt, so the handler
// fails loudly instead of papering over it.
func (a *StatsAggregator) HandleWagerSettled(ctx context.Context, event domainevents.WagerSettledEvent) error {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	fresh, err := uow.StatsRepository().MarkEventProcessed(ctx, event.ID(), handlerWagerSettled)
	if err != nil {
		return fmt.Errorf("failed to record event id: %w", err)
	}
	if !fresh {
		return nil
	}

	stats, err := a.requireStats(ctx, uow, event.UserID)
	if err != nil {
		return err
	}

	stats.ApplySettlement(event.Won, event.Payout)
	settledAt := event.SettledAt
	stats.LastWagerAt = &settledAt
	if err := uow.StatsRepository().Update(ctx, stats); err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}

	return uow.Commit()
}

// HandleStakeDebited tracks principal moving into and out of staking.
func (a *StatsAggregator) HandleStakeDebited(ctx context.Context, event domainevents.StakeDebitedEvent) error {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	fresh, err := uow.StatsRepository().MarkEventProcessed(ctx, event.ID(), handlerStakeDebited)
	if err != nil {
		return fmt.Errorf("failed to record event id: %w", err)
	}
	if !fresh {
		return nil
	}

	stats, err := uow.StatsRepository().GetForUpdate(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("failed to lock stats row: %w", err)
	}
	if stats == nil {
		if stats, err = uow.StatsRepository().CreateForUpdate(ctx, event.UserID); err != nil {
			return fmt.Errorf("failed to create stats row: %w", err)
		}
	}

	switch event.Reason {
	case domainevents.StakeReasonStake:
		stats.TotalStaked = stats.TotalStaked.Add(event.Amount)
		stats.ActiveStaked = stats.ActiveStaked.Add(event.Amount)
		movedAt := event.MovedAt
		stats.LastStakeAt = &movedAt
	case domainevents.StakeReasonUnstake:
		stats.ActiveStaked = stats.ActiveStaked.Sub(event.Amount)
		if stats.ActiveStaked.IsNegative() {
			return fmt.Errorf("active stake for user %d went negative after event %s", event.UserID, event.ID())
		}
	default:
		return fmt.Errorf("unknown stake movement reason %q", event.Reason)
	}

	if err := uow.StatsRepository().Update(ctx, stats); err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}

	return uow.Commit()
}

// HandleStakeCredited accumulates staking reward income. The row must
// exist: rewards always follow a stake movement for the same user.
func (a *StatsAggregator) HandleStakeCredited(ctx context.Context, event domainevents.StakeCreditedEvent) error {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	fresh, err := uow.StatsRepository().MarkEventProcessed(ctx, event.ID(), handlerStakeCredited)
	if err != nil {
		return fmt.Errorf("failed to record event id: %w", err)
	}
	if !fresh {
		return nil
	}

	stats, err := a.requireStats(ctx, uow, event.UserID)
	if err != nil {
		return err
	}

	stats.TotalStakeRewards = stats.TotalStakeRewards.Add(event.Reward)
	if err := uow.StatsRepository().Update(ctx, stats); err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}

	return uow.Commit()
}

// requireStats locks an existing stats row or fails.
func (a *StatsAggregator) requireStats(ctx context.Context, uow interfaces.UnitOfWork, userID int64) (*entities.UserStats, error) {
	stats, err := uow.StatsRepository().GetForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock stats row: %w", err)
	}
	if stats == nil {
		return nil, fmt.Errorf("stats row for user %d: %w", userID, entities.ErrStatsRowMissing)
	}
	return stats, nil
}

// Handler names used for event dedupe records and failure metrics.
const (
	handlerWagerPlaced   = "stats.wager_placed"
	handlerWagerSettled  = "stats.wager_settled"
	handlerStakeDebited  = "stats.stake_debited"
	handlerStakeCredited = "stats.stake_credited"
)

// reportFailure logs a handler error and bumps the failure counter.
func reportFailure(handler string, event domainevents.Event, err error) {
	log.WithFields(log.Fields{
		"handler": handler,
		"eventID": event.ID(),
		"error":   err,
	}).Error("Stats aggregator handler failed")
	observability.StatsHandlerFailures.WithLabelValues(handler).Inc()
}
