package entities

import "errors"

// Domain errors returned by the engines. Callers discriminate with errors.Is;
// services wrap these with additional context via fmt.Errorf and %w.
var (
	// Balance engine
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrInsufficientFunds       = errors.New("insufficient available balance")
	ErrInsufficientLockedFunds = errors.New("insufficient locked balance")
	ErrAlreadyProcessed        = errors.New("idempotency key already processed")

	// Bet engine
	ErrDuplicateWager      = errors.New("user already has a wager on this match")
	ErrMatchNotOpen        = errors.New("match is not open for wagering")
	ErrMatchNotFinished    = errors.New("match is not finished")
	ErrOutcomeUndetermined = errors.New("match result has not been determined")
	ErrAlreadySettled      = errors.New("wager has already been settled")
	ErrWagerNotPending     = errors.New("wager is not pending")
	ErrInvalidOutcome      = errors.New("unrecognized outcome")
	ErrForbidden           = errors.New("caller may not modify this wager")
	ErrWagerNotFound       = errors.New("wager not found")
	ErrMatchNotFound       = errors.New("match not found")

	// Staking engine
	ErrStakeBelowMinimum  = errors.New("stake amount below configured minimum")
	ErrStakeAboveMaximum  = errors.New("stake amount above configured maximum")
	ErrStakeNotFound      = errors.New("stake position not found")
	ErrStakeNotMatured    = errors.New("stake position has not matured")
	ErrStakeAlreadyClosed = errors.New("stake position is already closed")
	ErrInvalidPenalty     = errors.New("penalty percent must be between 0 and 100")

	// Stats aggregator
	ErrStatsRowMissing = errors.New("user stats row missing for update")

	// Voucher collaborator
	ErrVoucherInvalid        = errors.New("voucher is not valid for this user")
	ErrVoucherAmountMismatch = errors.New("voucher denomination does not match stake")
)
