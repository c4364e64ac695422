package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// WagerStatus is the settlement state of a wager. The only legal
// transitions are pending -> won, pending -> lost, pending -> cancelled;
// terminal states are immutable.
type WagerStatus string

const (
	WagerStatusPending   WagerStatus = "pending"
	WagerStatusWon       WagerStatus = "won"
	WagerStatusLost      WagerStatus = "lost"
	WagerStatusCancelled WagerStatus = "cancelled"
)

// Wager is a user's single wager on a match. A match accepts at most one
// wager per user. Odds are snapshotted at placement and the potential
// payout is fixed as stake times those odds.
type Wager struct {
	ID               int64           `db:"id"`
	UserID           int64           `db:"user_id"`
	MatchID          int64           `db:"match_id"`
	Amount           decimal.Decimal `db:"amount"`
	Predicted        Outcome         `db:"predicted"`
	Odds             decimal.Decimal `db:"odds"`
	PotentialPayout  decimal.Decimal `db:"potential_payout"`
	Status           WagerStatus     `db:"status"`
	VoucherID        *string         `db:"voucher_id"`
	StakeEntryID     *int64          `db:"stake_entry_id"`
	SettledAt        *time.Time      `db:"settled_at"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// IsPending reports whether the wager can still be settled or cancelled.
func (w *Wager) IsPending() bool {
	return w.Status == WagerStatusPending
}

// VoucherFunded reports whether the stake came from a voucher instead of
// the user's account. Voucher-funded wagers refund nothing on cancel.
func (w *Wager) VoucherFunded() bool {
	return w.VoucherID != nil
}

// CanTransitionTo validates a status transition.
func (w *Wager) CanTransitionTo(next WagerStatus) bool {
	if w.Status != WagerStatusPending {
		return false
	}
	switch next {
	case WagerStatusWon, WagerStatusLost, WagerStatusCancelled:
		return true
	default:
		return false
	}
}
