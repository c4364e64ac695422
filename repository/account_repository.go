package repository

import (
	"context"
	"fmt"

	"bankroll/database"
	"bankroll/domain/entities"

	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q Queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx Queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

// GetForUpdate resolves the account for a user, creating it lazily with
// zero balances, and takes an exclusive row lock. The lock is the sole
// serialization point for all mutations of this account and is held until
// the surrounding transaction commits or rolls back.
func (r *AccountRepository) GetForUpdate(ctx context.Context, userID int64) (*entities.Account, error) {
	// Lazy creation first so the FOR UPDATE below always finds a row.
	insertQuery := `
		INSERT INTO accounts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, insertQuery, userID); err != nil {
		return nil, fmt.Errorf("failed to ensure account for user %d: %w", userID, err)
	}

	query := `
		SELECT id, user_id, available_balance, locked_balance, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
		FOR UPDATE
	`

	var account entities.Account
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&account.ID,
		&account.UserID,
		&account.AvailableBalance,
		&account.LockedBalance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account for user %d: %w", userID, err)
	}

	return &account, nil
}

// GetByUserID retrieves an account without locking. Returns nil when the
// user has never been referenced.
func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (*entities.Account, error) {
	query := `
		SELECT id, user_id, available_balance, locked_balance, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
	`

	var account entities.Account
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&account.ID,
		&account.UserID,
		&account.AvailableBalance,
		&account.LockedBalance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account for user %d: %w", userID, err)
	}

	return &account, nil
}

// UpdateBalances persists both balance fields of a locked account.
func (r *AccountRepository) UpdateBalances(ctx context.Context, account *entities.Account) error {
	query := `
		UPDATE accounts
		SET available_balance = $1, locked_balance = $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.q.Exec(ctx, query, account.AvailableBalance, account.LockedBalance, account.ID)
	if err != nil {
		return fmt.Errorf("failed to update balances for account %d: %w", account.ID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", account.ID)
	}

	return nil
}
