package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType represents different types of domain events in the system
type EventType string

const (
	EventTypeWagerPlaced   EventType = "wager_placed"
	EventTypeWagerSettled  EventType = "wager_settled"
	EventTypeStakeCredited EventType = "stake_credited"
	EventTypeStakeDebited  EventType = "stake_debited"
	EventTypeSpinExecuted  EventType = "spin_executed"
)

// Stake movement reasons carried on StakeDebitedEvent. Only "unstake"
// releases a user's active-stake total in the aggregator.
const (
	StakeReasonStake   = "stake"
	StakeReasonUnstake = "unstake"
)

// Event is the base interface for all domain events. Delivery is
// at-least-once: every event carries a unique ID so consumers can
// deduplicate redelivered events.
type Event interface {
	Type() EventType
	ID() uuid.UUID
}

// base carries the identity shared by all events.
type base struct {
	EventID uuid.UUID
}

func (b base) ID() uuid.UUID { return b.EventID }

func newBase() base { return base{EventID: uuid.New()} }

// WagerPlacedEvent is emitted after a wager is durably created.
type WagerPlacedEvent struct {
	base
	UserID   int64
	WagerID  int64
	MatchID  int64
	Amount   decimal.Decimal
	PlacedAt time.Time
}

// NewWagerPlacedEvent creates a WagerPlacedEvent with a fresh event ID.
func NewWagerPlacedEvent(userID, wagerID, matchID int64, amount decimal.Decimal, placedAt time.Time) WagerPlacedEvent {
	return WagerPlacedEvent{base: newBase(), UserID: userID, WagerID: wagerID, MatchID: matchID, Amount: amount, PlacedAt: placedAt}
}

func (e WagerPlacedEvent) Type() EventType { return EventTypeWagerPlaced }

// WagerSettledEvent is emitted once per wager after its settlement
// transaction commits.
type WagerSettledEvent struct {
	base
	UserID    int64
	WagerID   int64
	MatchID   int64
	Won       bool
	Amount    decimal.Decimal
	Payout    decimal.Decimal
	SettledAt time.Time
}

// NewWagerSettledEvent creates a WagerSettledEvent with a fresh event ID.
func NewWagerSettledEvent(userID, wagerID, matchID int64, won bool, amount, payout decimal.Decimal, settledAt time.Time) WagerSettledEvent {
	return WagerSettledEvent{base: newBase(), UserID: userID, WagerID: wagerID, MatchID: matchID, Won: won, Amount: amount, Payout: payout, SettledAt: settledAt}
}

func (e WagerSettledEvent) Type() EventType { return EventTypeWagerSettled }

// StakeCreditedEvent is emitted when a staking reward is credited.
type StakeCreditedEvent struct {
	base
	UserID     int64
	StakeID    int64
	Reward     decimal.Decimal
	CreditedAt time.Time
}

// NewStakeCreditedEvent creates a StakeCreditedEvent with a fresh event ID.
func NewStakeCreditedEvent(userID, stakeID int64, reward decimal.Decimal, creditedAt time.Time) StakeCreditedEvent {
	return StakeCreditedEvent{base: newBase(), UserID: userID, StakeID: stakeID, Reward: reward, CreditedAt: creditedAt}
}

func (e StakeCreditedEvent) Type() EventType { return EventTypeStakeCredited }

// StakeDebitedEvent is emitted when principal moves in or out of a stake
// position. Reason is one of the StakeReason constants.
type StakeDebitedEvent struct {
	base
	UserID  int64
	StakeID int64
	Amount  decimal.Decimal
	Reason  string
	MovedAt time.Time
}

// NewStakeDebitedEvent creates a StakeDebitedEvent with a fresh event ID.
func NewStakeDebitedEvent(userID, stakeID int64, amount decimal.Decimal, reason string, movedAt time.Time) StakeDebitedEvent {
	return StakeDebitedEvent{base: newBase(), UserID: userID, StakeID: stakeID, Amount: amount, Reason: reason, MovedAt: movedAt}
}

func (e StakeDebitedEvent) Type() EventType { return EventTypeStakeDebited }

// SpinExecutedEvent is emitted after a spin record commits.
type SpinExecutedEvent struct {
	base
	UserID     int64
	SpinID     int64
	SessionKey string
	Category   string
	Payout     decimal.Decimal
	ExecutedAt time.Time
}

// NewSpinExecutedEvent creates a SpinExecutedEvent with a fresh event ID.
func NewSpinExecutedEvent(userID, spinID int64, sessionKey, category string, payout decimal.Decimal, executedAt time.Time) SpinExecutedEvent {
	return SpinExecutedEvent{base: newBase(), UserID: userID, SpinID: spinID, SessionKey: sessionKey, Category: category, Payout: payout, ExecutedAt: executedAt}
}

func (e SpinExecutedEvent) Type() EventType { return EventTypeSpinExecuted }
