package interfaces

import (
	"context"
	"time"

	"bankroll/domain/entities"

	"github.com/shopspring/decimal"
)

// MutationRequest carries the caller-supplied parts of a balance mutation.
type MutationRequest struct {
	UserID         int64
	Amount         decimal.Decimal
	Source         entities.EntrySource
	IdempotencyKey string
	Metadata       map[string]any
}

// BalanceService is the balance engine: five primitive mutations, each
// executed in one exclusive transaction scoped to a single account.
type BalanceService interface {
	Credit(ctx context.Context, req MutationRequest) (*entities.Account, error)
	Debit(ctx context.Context, req MutationRequest) (*entities.Account, error)
	Lock(ctx context.Context, req MutationRequest) (*entities.Account, error)
	Unlock(ctx context.Context, req MutationRequest) (*entities.Account, error)
	ConsumeLocked(ctx context.Context, req MutationRequest) (*entities.Account, error)
	GetAccount(ctx context.Context, userID int64) (*entities.Account, error)
}

// PlaceWagerRequest carries wager placement parameters. VoucherID, when
// set, substitutes a pre-validated voucher for the account debit.
type PlaceWagerRequest struct {
	UserID    int64
	MatchID   int64
	Amount    decimal.Decimal
	Predicted entities.Outcome
	VoucherID string
}

// SettlementSummary reports the outcome of settling one match.
type SettlementSummary struct {
	MatchID     int64
	Settled     int
	Won         int
	Lost        int
	Failed      int
	TotalPayout decimal.Decimal
}

// BettingService is the bet engine.
type BettingService interface {
	PlaceWager(ctx context.Context, req PlaceWagerRequest) (*entities.Wager, error)
	// SettleMatch settles every pending wager on a finished match, one
	// transaction per wager. Individual wager failures are isolated and
	// reported in the summary; settlement is resumable because only
	// pending wagers are selected.
	SettleMatch(ctx context.Context, matchID int64) (*SettlementSummary, error)
	CancelWager(ctx context.Context, wagerID, callerID int64, isAdmin bool) (*entities.Wager, error)
}

// StakingService is the staking engine.
type StakingService interface {
	// Stake opens a fixed-term position. A non-empty idempotencyKey
	// makes client retries safe; an empty key opens an independent
	// position per call.
	Stake(ctx context.Context, userID int64, amount decimal.Decimal, idempotencyKey string) (*entities.StakePosition, error)
	Claim(ctx context.Context, userID, stakeID int64) (*entities.StakePosition, error)
	EarlyExit(ctx context.Context, userID, stakeID int64, penaltyPercent decimal.Decimal) (*entities.StakePosition, error)
}

// SpinService is the randomized-payout engine.
type SpinService interface {
	// ExecuteSpin runs one spin. The session key is derived from
	// (userID, requestedAt, stake, clientSeed); replaying the same key
	// returns the original record without re-executing.
	ExecuteSpin(ctx context.Context, userID int64, stake decimal.Decimal, requestedAt time.Time, clientSeed string) (*entities.SpinRecord, error)
}

// LeaderboardService is the consolidated read model over UserStats.
type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, limit int) ([]*entities.LeaderboardEntry, error)
	// Rebuild recomputes one user's stats row from settled wagers and
	// ledger aggregates. The projection is derived and rebuildable.
	Rebuild(ctx context.Context, userID int64) (*entities.UserStats, error)
}

// VoucherService issues and inspects single-use wager vouchers.
// Consumption is not exposed here: vouchers are consumed inside the
// wager placement transaction, never independently.
type VoucherService interface {
	IssueVoucher(ctx context.Context, userID int64, denomination decimal.Decimal) (*entities.Voucher, error)
	GetVoucher(ctx context.Context, voucherID string) (*entities.Voucher, error)
}
