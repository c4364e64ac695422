package repository

import (
	"context"
	"fmt"

	"bankroll/database"
	"bankroll/domain/entities"

	"github.com/jackc/pgx/v5"
)

// MatchRepository implements the MatchRepository interface
type MatchRepository struct {
	q Queryable
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *database.DB) *MatchRepository {
	return &MatchRepository{q: db.Pool}
}

// newMatchRepositoryWithTx creates a new match repository with a transaction
func newMatchRepositoryWithTx(tx Queryable) *MatchRepository {
	return &MatchRepository{q: tx}
}

const matchColumns = `id, home_team, away_team, home_odds, draw_odds, away_odds, status, result, starts_at, created_at, updated_at`

func scanMatch(row pgx.Row) (*entities.Match, error) {
	var match entities.Match
	err := row.Scan(
		&match.ID,
		&match.HomeTeam,
		&match.AwayTeam,
		&match.HomeOdds,
		&match.DrawOdds,
		&match.AwayOdds,
		&match.Status,
		&match.Result,
		&match.StartsAt,
		&match.CreatedAt,
		&match.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// GetByID retrieves a match by ID. Returns nil when not found.
func (r *MatchRepository) GetByID(ctx context.Context, matchID int64) (*entities.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match, err := scanMatch(r.q.QueryRow(ctx, query, matchID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %d: %w", matchID, err)
	}

	return match, nil
}

// Create inserts a new match.
func (r *MatchRepository) Create(ctx context.Context, match *entities.Match) error {
	query := `
		INSERT INTO matches (home_team, away_team, home_odds, draw_odds, away_odds, status, starts_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		match.HomeTeam,
		match.AwayTeam,
		match.HomeOdds,
		match.DrawOdds,
		match.AwayOdds,
		match.Status,
		match.StartsAt,
	).Scan(&match.ID, &match.CreatedAt, &match.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}

	return nil
}

// SetResult finishes a match with a resolved outcome.
func (r *MatchRepository) SetResult(ctx context.Context, matchID int64, result entities.Outcome) error {
	query := `
		UPDATE matches
		SET status = 'finished', result = $1, updated_at = NOW()
		WHERE id = $2
	`

	tag, err := r.q.Exec(ctx, query, result, matchID)
	if err != nil {
		return fmt.Errorf("failed to set result for match %d: %w", matchID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("match %d not found", matchID)
	}

	return nil
}

// UpdateStatus transitions the match lifecycle state.
func (r *MatchRepository) UpdateStatus(ctx context.Context, matchID int64, status entities.MatchStatus) error {
	query := `
		UPDATE matches
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	tag, err := r.q.Exec(ctx, query, status, matchID)
	if err != nil {
		return fmt.Errorf("failed to update status for match %d: %w", matchID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("match %d not found", matchID)
	}

	return nil
}

// ListFinishedWithPending returns IDs of finished matches that still have
// pending wagers, oldest first.
func (r *MatchRepository) ListFinishedWithPending(ctx context.Context) ([]int64, error) {
	query := `
		SELECT DISTINCT m.id
		FROM matches m
		JOIN wagers w ON w.match_id = m.id AND w.status = 'pending'
		WHERE m.status = 'finished'
		ORDER BY m.id
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list finished matches with pending wagers: %w", err)
	}
	defer rows.Close()

	var matchIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan match id: %w", err)
		}
		matchIDs = append(matchIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate match ids: %w", err)
	}

	return matchIDs, nil
}
