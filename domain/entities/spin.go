package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SpinWeightTotal is the normalizing constant the outcome weights must
// sum to. A table that does not sum to this is a startup error.
const SpinWeightTotal = 1000

// SpinOutcome is one payout category in the weighted outcome table.
type SpinOutcome struct {
	Category   string          `json:"category"`
	Weight     int64           `json:"weight"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

// SpinTable is the fixed probability distribution over payout categories.
// Outcomes are mapped from a uniform draw through cumulative weights, so
// table order is part of the distribution's identity and is preserved.
type SpinTable struct {
	Outcomes []SpinOutcome `json:"outcomes"`
}

// Validate checks the configuration invariants: at least one outcome,
// strictly positive weights, and weights summing to SpinWeightTotal.
func (t SpinTable) Validate() error {
	if len(t.Outcomes) == 0 {
		return fmt.Errorf("spin table has no outcomes")
	}
	var sum int64
	for _, o := range t.Outcomes {
		if o.Weight <= 0 {
			return fmt.Errorf("spin outcome %q has non-positive weight %d", o.Category, o.Weight)
		}
		if o.Multiplier.IsNegative() {
			return fmt.Errorf("spin outcome %q has negative multiplier", o.Category)
		}
		sum += o.Weight
	}
	if sum != SpinWeightTotal {
		return fmt.Errorf("spin table weights sum to %d, want %d", sum, SpinWeightTotal)
	}
	return nil
}

// Pick maps a uniform draw in [0, SpinWeightTotal) to an outcome via the
// cumulative weight table.
func (t SpinTable) Pick(draw int64) (SpinOutcome, error) {
	if draw < 0 || draw >= SpinWeightTotal {
		return SpinOutcome{}, fmt.Errorf("draw %d outside [0, %d)", draw, SpinWeightTotal)
	}
	var cum int64
	for _, o := range t.Outcomes {
		cum += o.Weight
		if draw < cum {
			return o, nil
		}
	}
	// Unreachable when Validate passed.
	return SpinOutcome{}, fmt.Errorf("draw %d not covered by table", draw)
}

// DefaultSpinTable is the stock distribution: weights 5/50/150/300/495
// over a total of 1000.
func DefaultSpinTable() SpinTable {
	return SpinTable{Outcomes: []SpinOutcome{
		{Category: "jackpot", Weight: 5, Multiplier: decimal.NewFromInt(50)},
		{Category: "big_win", Weight: 50, Multiplier: decimal.NewFromInt(10)},
		{Category: "win", Weight: 150, Multiplier: decimal.NewFromInt(2)},
		{Category: "refund", Weight: 300, Multiplier: decimal.NewFromInt(1)},
		{Category: "loss", Weight: 495, Multiplier: decimal.Zero},
	}}
}

// SpinStatus records whether the payout credit succeeded. A failed credit
// does not invalidate the spin: the draw is final once recorded.
type SpinStatus string

const (
	SpinStatusCompleted    SpinStatus = "completed"
	SpinStatusPayoutFailed SpinStatus = "payout_failed"
)

// SpinRecord is one executed spin, keyed by a globally unique session key.
// Replaying the same session key returns the original record unchanged.
// SeedDigest is a hash of the random seed; the raw seed is never stored.
type SpinRecord struct {
	ID            int64           `db:"id"`
	UserID        int64           `db:"user_id"`
	SessionKey    string          `db:"session_key"`
	Stake         decimal.Decimal `db:"stake"`
	Category      string          `db:"category"`
	Multiplier    decimal.Decimal `db:"multiplier"`
	Payout        decimal.Decimal `db:"payout"`
	Status        SpinStatus      `db:"status"`
	SeedDigest    string          `db:"seed_digest"`
	TableSnapshot SpinTable       `db:"table_snapshot"`
	CreatedAt     time.Time       `db:"created_at"`
}
