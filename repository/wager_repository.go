package repository

import (
	"context"
	"fmt"

	"bankroll/database"
	"bankroll/domain/entities"

	"github.com/jackc/pgx/v5"
)

// WagerRepository implements the WagerRepository interface
type WagerRepository struct {
	q Queryable
}

// NewWagerRepository creates a new wager repository
func NewWagerRepository(db *database.DB) *WagerRepository {
	return &WagerRepository{q: db.Pool}
}

// newWagerRepositoryWithTx creates a new wager repository with a transaction
func newWagerRepositoryWithTx(tx Queryable) *WagerRepository {
	return &WagerRepository{q: tx}
}

const wagerColumns = `id, user_id, match_id, amount, predicted, odds, potential_payout, status, voucher_id, stake_entry_id, settled_at, created_at, updated_at`

func scanWager(row pgx.Row) (*entities.Wager, error) {
	var wager entities.Wager
	err := row.Scan(
		&wager.ID,
		&wager.UserID,
		&wager.MatchID,
		&wager.Amount,
		&wager.Predicted,
		&wager.Odds,
		&wager.PotentialPayout,
		&wager.Status,
		&wager.VoucherID,
		&wager.StakeEntryID,
		&wager.SettledAt,
		&wager.CreatedAt,
		&wager.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &wager, nil
}

// Create inserts a new pending wager. The unique (user_id, match_id)
// constraint backs the one-wager-per-match rule.
func (r *WagerRepository) Create(ctx context.Context, wager *entities.Wager) error {
	query := `
		INSERT INTO wagers (user_id, match_id, amount, predicted, odds, potential_payout, status, voucher_id, stake_entry_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		wager.UserID,
		wager.MatchID,
		wager.Amount,
		wager.Predicted,
		wager.Odds,
		wager.PotentialPayout,
		wager.Status,
		wager.VoucherID,
		wager.StakeEntryID,
	).Scan(&wager.ID, &wager.CreatedAt, &wager.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create wager for user %d on match %d: %w", wager.UserID, wager.MatchID, err)
	}

	return nil
}

// GetByID retrieves a wager by ID. Returns nil when not found.
func (r *WagerRepository) GetByID(ctx context.Context, wagerID int64) (*entities.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE id = $1`

	wager, err := scanWager(r.q.QueryRow(ctx, query, wagerID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wager %d: %w", wagerID, err)
	}

	return wager, nil
}

// GetByIDForUpdate retrieves a wager and locks its row for settlement or
// cancellation. Returns nil when not found.
func (r *WagerRepository) GetByIDForUpdate(ctx context.Context, wagerID int64) (*entities.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE id = $1 FOR UPDATE`

	wager, err := scanWager(r.q.QueryRow(ctx, query, wagerID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock wager %d: %w", wagerID, err)
	}

	return wager, nil
}

// GetByUserAndMatch returns the user's wager on a match, nil if none.
func (r *WagerRepository) GetByUserAndMatch(ctx context.Context, userID, matchID int64) (*entities.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE user_id = $1 AND match_id = $2`

	wager, err := scanWager(r.q.QueryRow(ctx, query, userID, matchID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wager for user %d on match %d: %w", userID, matchID, err)
	}

	return wager, nil
}

// ListPendingByMatch returns the IDs of all pending wagers on a match.
// Settlement selects only pending wagers, which is what makes a partial
// settlement batch safely resumable.
func (r *WagerRepository) ListPendingByMatch(ctx context.Context, matchID int64) ([]int64, error) {
	query := `
		SELECT id FROM wagers
		WHERE match_id = $1 AND status = 'pending'
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending wagers for match %d: %w", matchID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan wager id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending wagers: %w", err)
	}

	return ids, nil
}

// ListSettledByUser returns a user's settled wagers in settlement order.
func (r *WagerRepository) ListSettledByUser(ctx context.Context, userID int64) ([]*entities.Wager, error) {
	query := `
		SELECT ` + wagerColumns + ` FROM wagers
		WHERE user_id = $1 AND status IN ('won', 'lost')
		ORDER BY settled_at, id
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list settled wagers for user %d: %w", userID, err)
	}
	defer rows.Close()

	var wagers []*entities.Wager
	for rows.Next() {
		wager, err := scanWager(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wager: %w", err)
		}
		wagers = append(wagers, wager)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settled wagers: %w", err)
	}

	return wagers, nil
}

// Update persists the wager's status, settlement timestamp and ledger
// entry linkage.
func (r *WagerRepository) Update(ctx context.Context, wager *entities.Wager) error {
	query := `
		UPDATE wagers
		SET status = $1, settled_at = $2, stake_entry_id = $3, updated_at = NOW()
		WHERE id = $4
	`

	tag, err := r.q.Exec(ctx, query, wager.Status, wager.SettledAt, wager.StakeEntryID, wager.ID)
	if err != nil {
		return fmt.Errorf("failed to update wager %d: %w", wager.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wager %d not found", wager.ID)
	}

	return nil
}
