package services

import (
	"context"
	"fmt"

	"bankroll/domain/entities"
	"bankroll/domain/interfaces"

	"github.com/shopspring/decimal"
)

// mutation describes one balance change to apply under an account lock.
type mutation struct {
	UserID         int64
	Amount         decimal.Decimal
	Op             entities.BalanceOp
	Kind           entities.EntryKind
	Source         entities.EntrySource
	IdempotencyKey string
	Metadata       map[string]any
	RelatedID      *int64
}

// applyMutation is the single entry point for all balance changes. It
// locks the account (creating it lazily), checks the idempotency key
// inside the lock, validates preconditions, and writes the new balances
// together with the audit entry. Callers supply the open transaction via
// the repositories; commit/rollback stays with them.
func applyMutation(ctx context.Context, accounts interfaces.AccountRepository, ledger interfaces.LedgerRepository, m mutation) (*entities.Account, *entities.LedgerEntry, error) {
	if !m.Amount.IsPositive() {
		return nil, nil, entities.ErrInvalidAmount
	}

	account, err := accounts.GetForUpdate(ctx, m.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock account: %w", err)
	}

	// The idempotency check runs under the row lock, never before it:
	// checking first and locking later would let two retries both pass
	// the check and both mutate.
	if m.IdempotencyKey != "" {
		exists, err := ledger.ExistsByIdempotencyKey(ctx, account.ID, m.IdempotencyKey, m.Kind, m.Source)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if exists {
			return nil, nil, entities.ErrAlreadyProcessed
		}
	}

	entry := &entities.LedgerEntry{
		AccountID:       account.ID,
		UserID:          m.UserID,
		Amount:          m.Amount,
		Kind:            m.Kind,
		Source:          m.Source,
		Operation:       m.Op,
		Metadata:        m.Metadata,
		RelatedID:       m.RelatedID,
		AvailableBefore: account.AvailableBalance,
		LockedBefore:    account.LockedBalance,
	}
	if m.IdempotencyKey != "" {
		key := m.IdempotencyKey
		entry.IdempotencyKey = &key
	}

	switch m.Op {
	case entities.BalanceOpCredit:
		account.AvailableBalance = account.AvailableBalance.Add(m.Amount)
	case entities.BalanceOpDebit:
		if !account.CanDebit(m.Amount) {
			return nil, nil, entities.ErrInsufficientFunds
		}
		account.AvailableBalance = account.AvailableBalance.Sub(m.Amount)
	case entities.BalanceOpLock:
		if !account.CanDebit(m.Amount) {
			return nil, nil, entities.ErrInsufficientFunds
		}
		account.AvailableBalance = account.AvailableBalance.Sub(m.Amount)
		account.LockedBalance = account.LockedBalance.Add(m.Amount)
	case entities.BalanceOpUnlock:
		if !account.CanRelease(m.Amount) {
			return nil, nil, entities.ErrInsufficientLockedFunds
		}
		account.LockedBalance = account.LockedBalance.Sub(m.Amount)
		account.AvailableBalance = account.AvailableBalance.Add(m.Amount)
	case entities.BalanceOpConsume:
		if !account.CanRelease(m.Amount) {
			return nil, nil, entities.ErrInsufficientLockedFunds
		}
		account.LockedBalance = account.LockedBalance.Sub(m.Amount)
	default:
		return nil, nil, fmt.Errorf("unknown balance operation %q", m.Op)
	}

	entry.AvailableAfter = account.AvailableBalance
	entry.LockedAfter = account.LockedBalance

	if err := accounts.UpdateBalances(ctx, account); err != nil {
		return nil, nil, fmt.Errorf("failed to update balances: %w", err)
	}
	if err := ledger.Record(ctx, entry); err != nil {
		return nil, nil, fmt.Errorf("failed to record ledger entry: %w", err)
	}

	return account, entry, nil
}
