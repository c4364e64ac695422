package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds a user's spendable and locked balances. One account per
// user, created lazily on first reference and never deleted. Both balances
// are exact decimals and must never go negative.
type Account struct {
	ID               int64           `db:"id"`
	UserID           int64           `db:"user_id"`
	AvailableBalance decimal.Decimal `db:"available_balance"`
	LockedBalance    decimal.Decimal `db:"locked_balance"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// CanDebit reports whether the available balance covers amount.
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	return a.AvailableBalance.GreaterThanOrEqual(amount)
}

// CanRelease reports whether the locked balance covers amount.
func (a *Account) CanRelease(amount decimal.Decimal) bool {
	return a.LockedBalance.GreaterThanOrEqual(amount)
}

// Total returns available plus locked balance.
func (a *Account) Total() decimal.Decimal {
	return a.AvailableBalance.Add(a.LockedBalance)
}
