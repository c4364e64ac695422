package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind is the direction of a ledger entry.
type EntryKind string

const (
	EntryKindCredit EntryKind = "credit"
	EntryKindDebit  EntryKind = "debit"
)

// EntrySource categorizes what caused a balance mutation.
type EntrySource string

const (
	EntrySourceBet        EntrySource = "bet"
	EntrySourceStake      EntrySource = "stake"
	EntrySourceReward     EntrySource = "reward"
	EntrySourceDeposit    EntrySource = "deposit"
	EntrySourceWithdrawal EntrySource = "withdrawal"
	EntrySourceSpin       EntrySource = "spin"
)

// BalanceOp identifies which balance field an entry mutated and how.
type BalanceOp string

const (
	BalanceOpCredit  BalanceOp = "credit"  // available += amount
	BalanceOpDebit   BalanceOp = "debit"   // available -= amount
	BalanceOpLock    BalanceOp = "lock"    // available -> locked
	BalanceOpUnlock  BalanceOp = "unlock"  // locked -> available
	BalanceOpConsume BalanceOp = "consume" // locked -= amount, funds leave the account
)

// LedgerEntry is the immutable audit record of one balance mutation.
// Entries are written in the same transaction as the balance update and
// are never mutated or deleted. Before/after snapshots cover both balance
// fields so the full account state at every committed point is recoverable.
type LedgerEntry struct {
	ID              int64           `db:"id"`
	AccountID       int64           `db:"account_id"`
	UserID          int64           `db:"user_id"`
	Amount          decimal.Decimal `db:"amount"`
	Kind            EntryKind       `db:"kind"`
	Source          EntrySource     `db:"source"`
	Operation       BalanceOp       `db:"operation"`
	IdempotencyKey  *string         `db:"idempotency_key"`
	AvailableBefore decimal.Decimal `db:"available_before"`
	AvailableAfter  decimal.Decimal `db:"available_after"`
	LockedBefore    decimal.Decimal `db:"locked_before"`
	LockedAfter     decimal.Decimal `db:"locked_after"`
	Metadata        map[string]any  `db:"metadata"`
	RelatedID       *int64          `db:"related_id"`
	CreatedAt       time.Time       `db:"created_at"`
}

// SignedAmount returns the entry amount signed by kind: credits positive,
// debits negative.
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Kind == EntryKindDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}
