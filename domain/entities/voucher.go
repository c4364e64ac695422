package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Voucher is a single-use, fixed-denomination wager credit issued to one
// user. It substitutes for the account debit when placing a wager of
// exactly its denomination and is consumed atomically with placement.
type Voucher struct {
	ID           string          `db:"id"`
	UserID       int64           `db:"user_id"`
	Denomination decimal.Decimal `db:"denomination"`
	WagerID      *int64          `db:"wager_id"`
	IssuedAt     time.Time       `db:"issued_at"`
	ConsumedAt   *time.Time      `db:"consumed_at"`
}

// Consumable reports whether the voucher can still fund a wager.
func (v *Voucher) Consumable() bool {
	return v.ConsumedAt == nil
}
