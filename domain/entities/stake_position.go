package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// StakePositionStatus is the lifecycle state of a staking position.
type StakePositionStatus string

const (
	StakePositionOpen      StakePositionStatus = "open"
	StakePositionClosed    StakePositionStatus = "closed"
	StakePositionEarlyExit StakePositionStatus = "early_exit"
)

// StakePosition is a fixed-term, fixed-rate lock of funds. The reward is
// computed once at stake time (principal x apr/365/100 x termDays) and
// stored, so later rate changes never affect open positions. The position
// links back to the ledger entry that debited the principal.
type StakePosition struct {
	ID           int64               `db:"id"`
	UserID       int64               `db:"user_id"`
	Principal    decimal.Decimal     `db:"principal"`
	Reward       decimal.Decimal     `db:"reward"`
	APR          decimal.Decimal     `db:"apr"`
	TermDays     int                 `db:"term_days"`
	Penalty      decimal.Decimal     `db:"penalty"`
	Status       StakePositionStatus `db:"status"`
	StakeEntryID int64               `db:"stake_entry_id"`
	StartedAt    time.Time           `db:"started_at"`
	MaturesAt    time.Time           `db:"matures_at"`
	ClosedAt     *time.Time          `db:"closed_at"`
}

// IsOpen reports whether the position can still be claimed or exited.
func (p *StakePosition) IsOpen() bool {
	return p.Status == StakePositionOpen
}

// Matured reports whether the position has reached its maturity date.
func (p *StakePosition) Matured(now time.Time) bool {
	return !now.Before(p.MaturesAt)
}

// StakeReward computes the fixed-term reward for a principal:
// principal x (apr/365/100) x termDays, rounded to 4 decimal places.
func StakeReward(principal, apr decimal.Decimal, termDays int) decimal.Decimal {
	daily := apr.Div(decimal.NewFromInt(365)).Div(decimal.NewFromInt(100))
	return principal.Mul(daily).Mul(decimal.NewFromInt(int64(termDays))).Round(4)
}
