package repository

import (
	"context"
	"fmt"

	"bankroll/database"
	"bankroll/domain/interfaces"
	"bankroll/events"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	accountRepo      interfaces.AccountRepository
	ledgerRepo       interfaces.LedgerRepository
	matchRepo        interfaces.MatchRepository
	wagerRepo        interfaces.WagerRepository
	stakeRepo        interfaces.StakeRepository
	voucherRepo      interfaces.VoucherRepository
	spinRepo         interfaces.SpinRepository
	statsRepo        interfaces.StatsRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) interfaces.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() interfaces.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.accountRepo = newAccountRepositoryWithTx(tx)
	u.ledgerRepo = newLedgerRepositoryWithTx(tx)
	u.matchRepo = newMatchRepositoryWithTx(tx)
	u.wagerRepo = newWagerRepositoryWithTx(tx)
	u.stakeRepo = newStakeRepositoryWithTx(tx)
	u.voucherRepo = newVoucherRepositoryWithTx(tx)
	u.spinRepo = newSpinRepositoryWithTx(tx)
	u.statsRepo = newStatsRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and flushes pending events on success
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit. Event delivery is
	// best-effort once the database state is durable.
	if u.transactionalBus != nil {
		_ = u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() interfaces.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// LedgerRepository returns the ledger repository for this unit of work
func (u *unitOfWork) LedgerRepository() interfaces.LedgerRepository {
	if u.ledgerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ledgerRepo
}

// MatchRepository returns the match repository for this unit of work
func (u *unitOfWork) MatchRepository() interfaces.MatchRepository {
	if u.matchRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.matchRepo
}

// WagerRepository returns the wager repository for this unit of work
func (u *unitOfWork) WagerRepository() interfaces.WagerRepository {
	if u.wagerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.wagerRepo
}

// StakeRepository returns the stake repository for this unit of work
func (u *unitOfWork) StakeRepository() interfaces.StakeRepository {
	if u.stakeRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.stakeRepo
}

// VoucherRepository returns the voucher repository for this unit of work
func (u *unitOfWork) VoucherRepository() interfaces.VoucherRepository {
	if u.voucherRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.voucherRepo
}

// SpinRepository returns the spin repository for this unit of work
func (u *unitOfWork) SpinRepository() interfaces.SpinRepository {
	if u.spinRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.spinRepo
}

// StatsRepository returns the stats repository for this unit of work
func (u *unitOfWork) StatsRepository() interfaces.StatsRepository {
	if u.statsRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.statsRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
