package repository

import (
	"context"
	"fmt"

	"bankroll/database"
	"bankroll/domain/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StatsRepository implements the StatsRepository interface
type StatsRepository struct {
	q Queryable
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *database.DB) *StatsRepository {
	return &StatsRepository{q: db.Pool}
}

// newStatsRepositoryWithTx creates a new stats repository with a transaction
func newStatsRepositoryWithTx(tx Queryable) *StatsRepository {
	return &StatsRepository{q: tx}
}

const statsColumns = `user_id, total_wagers, wagers_won, wagers_lost, total_winnings, win_rate,
	current_streak, longest_streak, total_staked, active_staked, total_stake_rewards,
	last_wager_at, last_stake_at, updated_at`

func scanStats(row pgx.Row) (*entities.UserStats, error) {
	var stats entities.UserStats
	err := row.Scan(
		&stats.UserID,
		&stats.TotalWagers,
		&stats.WagersWon,
		&stats.WagersLost,
		&stats.TotalWinnings,
		&stats.WinRate,
		&stats.CurrentStreak,
		&stats.LongestStreak,
		&stats.TotalStaked,
		&stats.ActiveStaked,
		&stats.TotalStakeRewards,
		&stats.LastWagerAt,
		&stats.LastStakeAt,
		&stats.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetForUpdate locks the stats row for a user. Returns nil when the row
// does not exist; handlers that expect an existing row treat that as a
// missed creation event, not something to paper over.
func (r *StatsRepository) GetForUpdate(ctx context.Context, userID int64) (*entities.UserStats, error) {
	query := `SELECT ` + statsColumns + ` FROM user_stats WHERE user_id = $1 FOR UPDATE`

	stats, err := scanStats(r.q.QueryRow(ctx, query, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock stats for user %d: %w", userID, err)
	}

	return stats, nil
}

// CreateForUpdate inserts a zeroed stats row for a user and locks it.
// Safe under concurrent creation: the insert is a no-op when the row
// already exists.
func (r *StatsRepository) CreateForUpdate(ctx context.Context, userID int64) (*entities.UserStats, error) {
	insertQuery := `
		INSERT INTO user_stats (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, insertQuery, userID); err != nil {
		return nil, fmt.Errorf("failed to create stats row for user %d: %w", userID, err)
	}

	stats, err := r.GetForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return nil, fmt.Errorf("stats row for user %d missing after create", userID)
	}

	return stats, nil
}

// Update persists a locked stats row.
func (r *StatsRepository) Update(ctx context.Context, stats *entities.UserStats) error {
	query := `
		UPDATE user_stats
		SET total_wagers = $1, wagers_won = $2, wagers_lost = $3, total_winnings = $4,
		    win_rate = $5, current_streak = $6, longest_streak = $7, total_staked = $8,
		    active_staked = $9, total_stake_rewards = $10, last_wager_at = $11,
		    last_stake_at = $12, updated_at = NOW()
		WHERE user_id = $13
	`

	tag, err := r.q.Exec(ctx, query,
		stats.TotalWagers,
		stats.WagersWon,
		stats.WagersLost,
		stats.TotalWinnings,
		stats.WinRate,
		stats.CurrentStreak,
		stats.LongestStreak,
		stats.TotalStaked,
		stats.ActiveStaked,
		stats.TotalStakeRewards,
		stats.LastWagerAt,
		stats.LastStakeAt,
		stats.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update stats for user %d: %w", stats.UserID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stats row for user %d not found", stats.UserID)
	}

	return nil
}

// Upsert replaces a stats row wholesale. Used by the rebuild path, which
// recomputes the projection from wagers and ledger aggregates.
func (r *StatsRepository) Upsert(ctx context.Context, stats *entities.UserStats) error {
	query := `
		INSERT INTO user_stats (user_id, total_wagers, wagers_won, wagers_lost, total_winnings,
			win_rate, current_streak, longest_streak, total_staked, active_staked,
			total_stake_rewards, last_wager_at, last_stake_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			total_wagers = EXCLUDED.total_wagers,
			wagers_won = EXCLUDED.wagers_won,
			wagers_lost = EXCLUDED.wagers_lost,
			total_winnings = EXCLUDED.total_winnings,
			win_rate = EXCLUDED.win_rate,
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			total_staked = EXCLUDED.total_staked,
			active_staked = EXCLUDED.active_staked,
			total_stake_rewards = EXCLUDED.total_stake_rewards,
			last_wager_at = EXCLUDED.last_wager_at,
			last_stake_at = EXCLUDED.last_stake_at,
			updated_at = NOW()
	`

	_, err := r.q.Exec(ctx, query,
		stats.UserID,
		stats.TotalWagers,
		stats.WagersWon,
		stats.WagersLost,
		stats.TotalWinnings,
		stats.WinRate,
		stats.CurrentStreak,
		stats.LongestStreak,
		stats.TotalStaked,
		stats.ActiveStaked,
		stats.TotalStakeRewards,
		stats.LastWagerAt,
		stats.LastStakeAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert stats for user %d: %w", stats.UserID, err)
	}

	return nil
}

// ListTop returns stats rows ordered by total winnings descending.
func (r *StatsRepository) ListTop(ctx context.Context, limit int) ([]*entities.UserStats, error) {
	query := `SELECT ` + statsColumns + ` FROM user_stats ORDER BY total_winnings DESC, user_id LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top stats: %w", err)
	}
	defer rows.Close()

	var results []*entities.UserStats
	for rows.Next() {
		stats, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		results = append(results, stats)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stats rows: %w", err)
	}

	return results, nil
}

// MarkEventProcessed records an event ID for a handler. Returns false
// when the event was already recorded, which is how handlers stay
// idempotent under at-least-once delivery.
func (r *StatsRepository) MarkEventProcessed(ctx context.Context, eventID uuid.UUID, handler string) (bool, error) {
	query := `
		INSERT INTO processed_events (event_id, handler)
		VALUES ($1, $2)
		ON CONFLICT (event_id, handler) DO NOTHING
	`

	tag, err := r.q.Exec(ctx, query, eventID, handler)
	if err != nil {
		return false, fmt.Errorf("failed to mark event %s processed: %w", eventID, err)
	}

	return tag.RowsAffected() > 0, nil
}
