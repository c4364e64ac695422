package interfaces

import (
	"context"
	"time"

	"bankroll/domain/entities"
	domainevents "bankroll/domain/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository manages account rows and their exclusive locks.
type AccountRepository interface {
	// GetForUpdate resolves the account for userID, creating it lazily
	// with zero balances, and takes an exclusive row lock for the
	// duration of the surrounding transaction.
	GetForUpdate(ctx context.Context, userID int64) (*entities.Account, error)
	// GetByUserID reads an account without locking. Returns nil when the
	// user has never been referenced.
	GetByUserID(ctx context.Context, userID int64) (*entities.Account, error)
	// UpdateBalances persists both balance fields of a locked account.
	UpdateBalances(ctx context.Context, account *entities.Account) error
}

// LedgerRepository appends to and queries the immutable audit log.
type LedgerRepository interface {
	// Record appends one ledger entry, filling ID and CreatedAt.
	Record(ctx context.Context, entry *entities.LedgerEntry) error
	// ExistsByIdempotencyKey reports whether an entry with the same key,
	// kind and source was already recorded for the account. Must be
	// called with the account row lock held.
	ExistsByIdempotencyKey(ctx context.Context, accountID int64, key string, kind entities.EntryKind, source entities.EntrySource) (bool, error)
	// GetByAccount lists entries for an account, newest first.
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*entities.LedgerEntry, error)
	// NetChange sums signed entry amounts for an account.
	NetChange(ctx context.Context, accountID int64) (decimal.Decimal, error)
	// SumByKindAndSource sums entry amounts for an account filtered by
	// kind and source. Used by the stats rebuild path.
	SumByKindAndSource(ctx context.Context, accountID int64, kind entities.EntryKind, source entities.EntrySource) (decimal.Decimal, error)
}

// MatchRepository manages wagerable matches.
type MatchRepository interface {
	GetByID(ctx context.Context, matchID int64) (*entities.Match, error)
	Create(ctx context.Context, match *entities.Match) error
	// SetResult finishes a match with a resolved outcome.
	SetResult(ctx context.Context, matchID int64, result entities.Outcome) error
	// UpdateStatus transitions the match lifecycle state.
	UpdateStatus(ctx context.Context, matchID int64, status entities.MatchStatus) error
	// ListFinishedWithPending returns IDs of finished matches that still
	// have pending wagers, oldest first.
	ListFinishedWithPending(ctx context.Context) ([]int64, error)
}

// WagerRepository manages wagers and their settlement state.
type WagerRepository interface {
	Create(ctx context.Context, wager *entities.Wager) error
	GetByID(ctx context.Context, wagerID int64) (*entities.Wager, error)
	// GetByIDForUpdate locks the wager row for settlement/cancellation.
	GetByIDForUpdate(ctx context.Context, wagerID int64) (*entities.Wager, error)
	// GetByUserAndMatch returns the user's wager on a match, nil if none.
	GetByUserAndMatch(ctx context.Context, userID, matchID int64) (*entities.Wager, error)
	// ListPendingByMatch returns IDs of all pending wagers on a match.
	ListPendingByMatch(ctx context.Context, matchID int64) ([]int64, error)
	// ListSettledByUser returns a user's settled wagers, oldest first.
	ListSettledByUser(ctx context.Context, userID int64) ([]*entities.Wager, error)
	// Update persists status, settlement timestamp and entry linkage.
	Update(ctx context.Context, wager *entities.Wager) error
}

// StakeRepository manages staking positions.
type StakeRepository interface {
	Create(ctx context.Context, position *entities.StakePosition) error
	// GetByIDForUpdate locks the position row for claim/exit.
	GetByIDForUpdate(ctx context.Context, stakeID int64) (*entities.StakePosition, error)
	ListOpenByUser(ctx context.Context, userID int64) ([]*entities.StakePosition, error)
	// Close marks the position closed, recording penalty and close time.
	Close(ctx context.Context, position *entities.StakePosition) error
}

// VoucherRepository manages single-use wager vouchers.
type VoucherRepository interface {
	Create(ctx context.Context, voucher *entities.Voucher) error
	// GetByID reads a voucher without locking, nil if none.
	GetByID(ctx context.Context, voucherID string) (*entities.Voucher, error)
	// GetForUpdate locks the voucher row for consumption.
	GetForUpdate(ctx context.Context, voucherID string) (*entities.Voucher, error)
	// Consume marks an unconsumed voucher as spent on a wager. Returns
	// false when the voucher was already consumed.
	Consume(ctx context.Context, voucherID string, wagerID int64) (bool, error)
}

// SpinRepository manages spin records keyed by session key.
type SpinRepository interface {
	// GetBySessionKey returns the record for a session key, nil if none.
	GetBySessionKey(ctx context.Context, sessionKey string) (*entities.SpinRecord, error)
	// Create appends a spin record. The session key is globally unique;
	// a duplicate insert fails rather than overwriting.
	Create(ctx context.Context, record *entities.SpinRecord) error
	// UpdateStatus records a payout-credit failure on an existing spin.
	UpdateStatus(ctx context.Context, spinID int64, status entities.SpinStatus) error
}

// StatsRepository manages the per-user statistics projection.
type StatsRepository interface {
	// GetForUpdate locks the stats row for userID. Returns nil when the
	// row does not exist.
	GetForUpdate(ctx context.Context, userID int64) (*entities.UserStats, error)
	// CreateForUpdate inserts a zeroed stats row and locks it.
	CreateForUpdate(ctx context.Context, userID int64) (*entities.UserStats, error)
	Update(ctx context.Context, stats *entities.UserStats) error
	// Upsert replaces a stats row wholesale (rebuild path).
	Upsert(ctx context.Context, stats *entities.UserStats) error
	// ListTop returns stats rows ordered by total winnings descending.
	ListTop(ctx context.Context, limit int) ([]*entities.UserStats, error)
	// MarkEventProcessed records an event ID for a handler, returning
	// false when the event was already processed (duplicate delivery).
	MarkEventProcessed(ctx context.Context, eventID uuid.UUID, handler string) (bool, error)
}

// EventPublisher publishes domain events. Inside a unit of work this is
// transactional: events are held until commit and dropped on rollback.
type EventPublisher interface {
	Publish(event domainevents.Event)
}

// UnitOfWork represents one database transaction plus its pending events.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	AccountRepository() AccountRepository
	LedgerRepository() LedgerRepository
	MatchRepository() MatchRepository
	WagerRepository() WagerRepository
	StakeRepository() StakeRepository
	VoucherRepository() VoucherRepository
	SpinRepository() SpinRepository
	StatsRepository() StatsRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work.
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// Clock abstracts time for the staking and betting engines so maturity
// and open-for-wagering checks are testable.
type Clock interface {
	Now() time.Time
}
