package services

import (
	"context"
	"fmt"

	"bankroll/config"
	"bankroll/domain/entities"
	domainevents "bankroll/domain/events"
	"bankroll/domain/interfaces"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

type stakingService struct {
	uowFactory interfaces.UnitOfWorkFactory
	clock      interfaces.Clock
}

// NewStakingService creates a new staking service
func NewStakingService(uowFactory interfaces.UnitOfWorkFactory, clock interfaces.Clock) interfaces.StakingService {
	return &stakingService{
		uowFactory: uowFactory,
		clock:      clock,
	}
}

// Stake locks principal for the configured fixed term at the configured
// rate. The reward is computed and stored at stake time, so later rate
// changes never affect the position. A caller-supplied idempotency key
// guards the debit, so a retry after a timeout cannot open a second
// position; without one each call opens a fresh position.
func (s *stakingService) Stake(ctx context.Context, userID int64, amount decimal.Decimal, idempotencyKey string) (*entities.StakePosition, error) {
	if !amount.IsPositive() {
		return nil, entities.ErrInvalidAmount
	}

	cfg := config.Get()
	if amount.LessThan(cfg.StakingMin()) {
		return nil, entities.ErrStakeBelowMinimum
	}
	if amount.GreaterThan(cfg.StakingMax()) {
		return nil, entities.ErrStakeAboveMaximum
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	now := s.clock.Now()
	position := &entities.StakePosition{
		UserID:    userID,
		Principal: amount,
		Reward:    entities.StakeReward(amount, cfg.APRDecimal(), cfg.StakingTermDays),
		APR:       cfg.APRDecimal(),
		TermDays:  cfg.StakingTermDays,
		Penalty:   decimal.Zero,
		Status:    entities.StakePositionOpen,
		StartedAt: now,
		MaturesAt: now.AddDate(0, 0, cfg.StakingTermDays),
	}

	debitKey := fmt.Sprintf("stake:open:%d:%d", userID, now.UnixNano())
	if idempotencyKey != "" {
		debitKey = fmt.Sprintf("stake:open:%s", idempotencyKey)
	}

	_, entry, err := applyMutation(ctx, uow.AccountRepository(), uow.LedgerRepository(), mutation{
		UserID:         userID,
		Amount:         amount,
		Op:             entities.BalanceOpDebit,
		Kind:           entities.EntryKindDebit,
		Source:         entities.EntrySourceStake,
		IdempotencyKey: debitKey,
		Metadata:       map[string]any{"term_days": cfg.StakingTermDays, "apr": cfg.StakingAPR},
	})
	if err != nil {
		return nil, err
	}

	position.StakeEntryID = entry.ID
	if err := uow.StakeRepository().Create(ctx, position); err != nil {
		return nil, fmt.Errorf("failed to create stake position: %w", err)
	}

	uow.EventBus().Publish(domainevents.NewStakeDebitedEvent(userID, position.ID, amount, domainevents.StakeReasonStake, now))

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return position, nil
}

// Claim closes a matured position, returning the principal and crediting
// the stored reward.
func (s *stakingService) Claim(ctx context.Context, userID, stakeID int64) (*entities.StakePosition, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	position, err := s.lockOpenPosition(ctx, uow, userID, stakeID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !position.Matured(now) {
		return nil, entities.ErrStakeNotMatured
	}

	// Principal and reward are credited as separate entries so the audit
	// trail keeps reward income apart from returned principal.
	if _, _, err := applyMutation(ctx, uow.AccountRepository(), uow.LedgerRepository(), mutation{
		UserID:         userID,
		Amount:         position.Principal,
		Op:             entities.BalanceOpCredit,
		Kind:           entities.EntryKindCredit,
		Source:         entities.EntrySourceStake,
		IdempotencyKey: fmt.Sprintf("stake:claim:%d", position.ID),
		Metadata:       map[string]any{"stake_id": position.ID},
		RelatedID:      &position.StakeEntryID,
	}); err != nil {
		return nil, err
	}

	if position.Reward.IsPositive() {
		if _, _, err := applyMutation(ctx, uow.AccountRepository(), uow.LedgerRepository(), mutation{
			UserID:         userID,
			Amount:         position.Reward,
			Op:             entities.BalanceOpCredit,
			Kind:           entities.EntryKindCredit,
			Source:         entities.EntrySourceReward,
			IdempotencyKey: fmt.Sprintf("stake:reward:%d", position.ID),
			Metadata:       map[string]any{"stake_id": position.ID},
			RelatedID:      &position.StakeEntryID,
		}); err != nil {
			return nil, err
		}
	}

	position.Status = entities.StakePositionClosed
	position.ClosedAt = &now
	if err := uow.StakeRepository().Close(ctx, position); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(domainevents.NewStakeCreditedEvent(userID, position.ID, position.Reward, now))
	uow.EventBus().Publish(domainevents.NewStakeDebitedEvent(userID, position.ID, position.Principal, domainevents.StakeReasonUnstake, now))

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return position, nil
}

// EarlyExit closes an open position before maturity. The penalty is a
// percentage of principal; the rest returns to the available balance and
// no reward is paid.
func (s *stakingService) EarlyExit(ctx context.Context, userID, stakeID int64, penaltyPercent decimal.Decimal) (*entities.StakePosition, error) {
	if penaltyPercent.IsNegative() || penaltyPercent.GreaterThan(oneHundred) {
		return nil, entities.ErrInvalidPenalty
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	position, err := s.lockOpenPosition(ctx, uow, userID, stakeID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	penalty := position.Principal.Mul(penaltyPercent).Div(oneHundred).Round(4)
	returned := position.Principal.Sub(penalty)

	if returned.IsPositive() {
		if _, _, err := applyMutation(ctx, uow.AccountRepository(), uow.LedgerRepository(), mutation{
			UserID:         userID,
			Amount:         returned,
			Op:             entities.BalanceOpCredit,
			Kind:           entities.EntryKindCredit,
			Source:         entities.EntrySourceStake,
			IdempotencyKey: fmt.Sprintf("stake:exit:%d", position.ID),
			Metadata:       map[string]any{"stake_id": position.ID, "penalty": penalty.String()},
			RelatedID:      &position.StakeEntryID,
		}); err != nil {
			return nil, err
		}
	}

	position.Status = entities.StakePositionEarlyExit
	position.Penalty = penalty
	position.ClosedAt = &now
	if err := uow.StakeRepository().Close(ctx, position); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(domainevents.NewStakeDebitedEvent(userID, position.ID, position.Principal, domainevents.StakeReasonUnstake, now))

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return position, nil
}

func (s *stakingService) lockOpenPosition(ctx context.Context, uow interfaces.UnitOfWork, userID, stakeID int64) (*entities.StakePosition, error) {
	position, err := uow.StakeRepository().GetByIDForUpdate(ctx, stakeID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock stake position: %w", err)
	}
	if position == nil || position.UserID != userID {
		return nil, entities.ErrStakeNotFound
	}
	if !position.IsOpen() {
		return nil, entities.ErrStakeAlreadyClosed
	}
	return position, nil
}
