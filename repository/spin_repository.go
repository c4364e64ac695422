package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"bankroll/database"
	"bankroll/domain/entities"

	"github.com/jackc/pgx/v5"
)

// SpinRepository implements the SpinRepository interface
type SpinRepository struct {
	q Queryable
}

// NewSpinRepository creates a new spin repository
func NewSpinRepository(db *database.DB) *SpinRepository {
	return &SpinRepository{q: db.Pool}
}

// newSpinRepositoryWithTx creates a new spin repository with a transaction
func newSpinRepositoryWithTx(tx Queryable) *SpinRepository {
	return &SpinRepository{q: tx}
}

// GetBySessionKey returns the spin record for a session key, nil if none.
// Session keys are globally unique; a repeated key returns the original
// result instead of executing a second spin.
func (r *SpinRepository) GetBySessionKey(ctx context.Context, sessionKey string) (*entities.SpinRecord, error) {
	query := `
		SELECT id, user_id, session_key, stake, category, multiplier, payout, status, seed_digest, table_snapshot, created_at
		FROM spin_records
		WHERE session_key = $1
	`

	var record entities.SpinRecord
	var snapshotJSON []byte
	err := r.q.QueryRow(ctx, query, sessionKey).Scan(
		&record.ID,
		&record.UserID,
		&record.SessionKey,
		&record.Stake,
		&record.Category,
		&record.Multiplier,
		&record.Payout,
		&record.Status,
		&record.SeedDigest,
		&snapshotJSON,
		&record.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get spin record for session %s: %w", sessionKey, err)
	}

	if err := json.Unmarshal(snapshotJSON, &record.TableSnapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal spin table snapshot: %w", err)
	}

	return &record, nil
}

// Create appends a spin record. The unique session key constraint rejects
// a concurrent duplicate rather than overwriting the original draw.
func (r *SpinRepository) Create(ctx context.Context, record *entities.SpinRecord) error {
	snapshotJSON, err := json.Marshal(record.TableSnapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal spin table snapshot: %w", err)
	}

	query := `
		INSERT INTO spin_records (user_id, session_key, stake, category, multiplier, payout, status, seed_digest, table_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		record.UserID,
		record.SessionKey,
		record.Stake,
		record.Category,
		record.Multiplier,
		record.Payout,
		record.Status,
		record.SeedDigest,
		snapshotJSON,
	).Scan(&record.ID, &record.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create spin record for session %s: %w", record.SessionKey, err)
	}

	return nil
}

// UpdateStatus records a payout-credit failure on an existing spin. The
// draw itself is final; only the status changes.
func (r *SpinRepository) UpdateStatus(ctx context.Context, spinID int64, status entities.SpinStatus) error {
	query := `UPDATE spin_records SET status = $1 WHERE id = $2`

	tag, err := r.q.Exec(ctx, query, status, spinID)
	if err != nil {
		return fmt.Errorf("failed to update spin %d status: %w", spinID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("spin record %d not found", spinID)
	}

	return nil
}
