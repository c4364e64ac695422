package services

import (
	"context"
	"fmt"

	"bankroll/domain/entities"
	"bankroll/domain/interfaces"
)

type balanceService struct {
	uowFactory interfaces.UnitOfWorkFactory
}

// NewBalanceService creates a new balance service
func NewBalanceService(uowFactory interfaces.UnitOfWorkFactory) interfaces.BalanceService {
	return &balanceService{
		uowFactory: uowFactory,
	}
}

// Credit increases the available balance.
func (s *balanceService) Credit(ctx context.Context, req interfaces.MutationRequest) (*entities.Account, error) {
	return s.apply(ctx, req, entities.BalanceOpCredit, entities.EntryKindCredit)
}

// Debit decreases the available balance.
func (s *balanceService) Debit(ctx context.Context, req interfaces.MutationRequest) (*entities.Account, error) {
	return s.apply(ctx, req, entities.BalanceOpDebit, entities.EntryKindDebit)
}

// Lock moves funds from available to locked.
func (s *balanceService) Lock(ctx context.Context, req interfaces.MutationRequest) (*entities.Account, error) {
	return s.apply(ctx, req, entities.BalanceOpLock, entities.EntryKindDebit)
}

// Unlock moves funds from locked back to available.
func (s *balanceService) Unlock(ctx context.Context, req interfaces.MutationRequest) (*entities.Account, error) {
	return s.apply(ctx, req, entities.BalanceOpUnlock, entities.EntryKindCredit)
}

// ConsumeLocked removes funds from the locked balance permanently.
func (s *balanceService) ConsumeLocked(ctx context.Context, req interfaces.MutationRequest) (*entities.Account, error) {
	return s.apply(ctx, req, entities.BalanceOpConsume, entities.EntryKindDebit)
}

// GetAccount reads an account without locking. Returns nil when the user
// has never been referenced.
func (s *balanceService) GetAccount(ctx context.Context, userID int64) (*entities.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return account, nil
}

// apply runs one mutation in its own exclusive transaction. Validation
// failures roll the transaction back in full; no partial ledger write
// survives a failed operation.
func (s *balanceService) apply(ctx context.Context, req interfaces.MutationRequest, op entities.BalanceOp, kind entities.EntryKind) (*entities.Account, error) {
	// Amount validation happens before any locking.
	if !req.Amount.IsPositive() {
		return nil, entities.ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	account, _, err := applyMutation(ctx, uow.AccountRepository(), uow.LedgerRepository(), mutation{
		UserID:         req.UserID,
		Amount:         req.Amount,
		Op:             op,
		Kind:           kind,
		Source:         req.Source,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return account, nil
}
