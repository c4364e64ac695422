package repository

import (
	"context"
	"fmt"

	"bankroll/database"
	"bankroll/domain/entities"

	"github.com/jackc/pgx/v5"
)

// StakeRepository implements the StakeRepository interface
type StakeRepository struct {
	q Queryable
}

// NewStakeRepository creates a new stake repository
func NewStakeRepository(db *database.DB) *StakeRepository {
	return &StakeRepository{q: db.Pool}
}

// newStakeRepositoryWithTx creates a new stake repository with a transaction
func newStakeRepositoryWithTx(tx Queryable) *StakeRepository {
	return &StakeRepository{q: tx}
}

const stakeColumns = `id, user_id, principal, reward, apr, term_days, penalty, status, stake_entry_id, started_at, matures_at, closed_at`

func scanStake(row pgx.Row) (*entities.StakePosition, error) {
	var position entities.StakePosition
	err := row.Scan(
		&position.ID,
		&position.UserID,
		&position.Principal,
		&position.Reward,
		&position.APR,
		&position.TermDays,
		&position.Penalty,
		&position.Status,
		&position.StakeEntryID,
		&position.StartedAt,
		&position.MaturesAt,
		&position.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	return &position, nil
}

// Create inserts a new open stake position linked to its opening ledger
// entry.
func (r *StakeRepository) Create(ctx context.Context, position *entities.StakePosition) error {
	query := `
		INSERT INTO stake_positions (user_id, principal, reward, apr, term_days, status, stake_entry_id, started_at, matures_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query,
		position.UserID,
		position.Principal,
		position.Reward,
		position.APR,
		position.TermDays,
		position.Status,
		position.StakeEntryID,
		position.StartedAt,
		position.MaturesAt,
	).Scan(&position.ID)

	if err != nil {
		return fmt.Errorf("failed to create stake position for user %d: %w", position.UserID, err)
	}

	return nil
}

// GetByIDForUpdate retrieves a stake position and locks its row. Returns
// nil when not found.
func (r *StakeRepository) GetByIDForUpdate(ctx context.Context, stakeID int64) (*entities.StakePosition, error) {
	query := `SELECT ` + stakeColumns + ` FROM stake_positions WHERE id = $1 FOR UPDATE`

	position, err := scanStake(r.q.QueryRow(ctx, query, stakeID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock stake position %d: %w", stakeID, err)
	}

	return position, nil
}

// ListOpenByUser returns a user's open stake positions, oldest first.
func (r *StakeRepository) ListOpenByUser(ctx context.Context, userID int64) ([]*entities.StakePosition, error) {
	query := `
		SELECT ` + stakeColumns + ` FROM stake_positions
		WHERE user_id = $1 AND status = 'open'
		ORDER BY started_at
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open stakes for user %d: %w", userID, err)
	}
	defer rows.Close()

	var positions []*entities.StakePosition
	for rows.Next() {
		position, err := scanStake(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stake position: %w", err)
		}
		positions = append(positions, position)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stake positions: %w", err)
	}

	return positions, nil
}

// Close marks a position closed, recording status, penalty and close time.
func (r *StakeRepository) Close(ctx context.Context, position *entities.StakePosition) error {
	query := `
		UPDATE stake_positions
		SET status = $1, penalty = $2, closed_at = $3
		WHERE id = $4 AND status = 'open'
	`

	tag, err := r.q.Exec(ctx, query, position.Status, position.Penalty, position.ClosedAt, position.ID)
	if err != nil {
		return fmt.Errorf("failed to close stake position %d: %w", position.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stake position %d not open", position.ID)
	}

	return nil
}
