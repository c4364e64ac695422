package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"bankroll/database"
	"bankroll/domain/entities"

	"github.com/shopspring/decimal"
)

// LedgerRepository implements the LedgerRepository interface
type LedgerRepository struct {
	q Queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

// newLedgerRepositoryWithTx creates a new ledger repository with a transaction
func newLedgerRepositoryWithTx(tx Queryable) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Record appends one immutable ledger entry inside the caller's
// transaction. Entries are never updated or deleted afterwards.
func (r *LedgerRepository) Record(ctx context.Context, entry *entities.LedgerEntry) error {
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal entry metadata: %w", err)
	}

	query := `
		INSERT INTO ledger_entries
		(account_id, user_id, amount, kind, source, operation, idempotency_key,
		 available_before, available_after, locked_before, locked_after, metadata, related_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		entry.AccountID,
		entry.UserID,
		entry.Amount,
		entry.Kind,
		entry.Source,
		entry.Operation,
		entry.IdempotencyKey,
		entry.AvailableBefore,
		entry.AvailableAfter,
		entry.LockedBefore,
		entry.LockedAfter,
		metadataJSON,
		entry.RelatedID,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record ledger entry for account %d: %w", entry.AccountID, err)
	}

	return nil
}

// ExistsByIdempotencyKey reports whether a matching entry was already
// recorded. Callers hold the account row lock, which closes the race
// between this check and the subsequent mutation.
func (r *LedgerRepository) ExistsByIdempotencyKey(ctx context.Context, accountID int64, key string, kind entities.EntryKind, source entities.EntrySource) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM ledger_entries
			WHERE account_id = $1 AND idempotency_key = $2 AND kind = $3 AND source = $4
		)
	`

	var exists bool
	err := r.q.QueryRow(ctx, query, accountID, key, kind, source).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check idempotency key for account %d: %w", accountID, err)
	}

	return exists, nil
}

// GetByAccount lists ledger entries for an account, newest first.
func (r *LedgerRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*entities.LedgerEntry, error) {
	query := `
		SELECT id, account_id, user_id, amount, kind, source, operation, idempotency_key,
		       available_before, available_after, locked_before, locked_after, metadata, related_id, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var entries []*entities.LedgerEntry
	for rows.Next() {
		var entry entities.LedgerEntry
		var metadataJSON []byte

		err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.UserID,
			&entry.Amount,
			&entry.Kind,
			&entry.Source,
			&entry.Operation,
			&entry.IdempotencyKey,
			&entry.AvailableBefore,
			&entry.AvailableAfter,
			&entry.LockedBefore,
			&entry.LockedAfter,
			&metadataJSON,
			&entry.RelatedID,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal entry metadata: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}

// NetChange sums signed entry amounts for an account. For an account that
// started at zero this equals available plus locked minus consumed funds
// and is used by the rebuild path and audit checks.
func (r *LedgerRepository) NetChange(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN kind = 'credit' THEN amount ELSE -amount END), 0)
		FROM ledger_entries
		WHERE account_id = $1
	`

	var net decimal.Decimal
	err := r.q.QueryRow(ctx, query, accountID).Scan(&net)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum ledger entries for account %d: %w", accountID, err)
	}

	return net, nil
}

// SumByKindAndSource sums entry amounts for an account filtered by kind
// and source.
func (r *LedgerRepository) SumByKindAndSource(ctx context.Context, accountID int64, kind entities.EntryKind, source entities.EntrySource) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE account_id = $1 AND kind = $2 AND source = $3
	`

	var sum decimal.Decimal
	err := r.q.QueryRow(ctx, query, accountID, kind, source).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum ledger entries for account %d: %w", accountID, err)
	}

	return sum, nil
}
