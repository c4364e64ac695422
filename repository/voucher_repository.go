package repository

import (
	"context"
	"fmt"

	"bankroll/database"
	"bankroll/domain/entities"

	"github.com/jackc/pgx/v5"
)

// VoucherRepository implements the VoucherRepository interface
type VoucherRepository struct {
	q Queryable
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *database.DB) *VoucherRepository {
	return &VoucherRepository{q: db.Pool}
}

// newVoucherRepositoryWithTx creates a new voucher repository with a transaction
func newVoucherRepositoryWithTx(tx Queryable) *VoucherRepository {
	return &VoucherRepository{q: tx}
}

const voucherColumns = `id, user_id, denomination, wager_id, issued_at, consumed_at`

func scanVoucher(row pgx.Row) (*entities.Voucher, error) {
	var voucher entities.Voucher
	err := row.Scan(
		&voucher.ID,
		&voucher.UserID,
		&voucher.Denomination,
		&voucher.WagerID,
		&voucher.IssuedAt,
		&voucher.ConsumedAt,
	)
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

// Create inserts a new voucher.
func (r *VoucherRepository) Create(ctx context.Context, voucher *entities.Voucher) error {
	query := `
		INSERT INTO vouchers (id, user_id, denomination)
		VALUES ($1, $2, $3)
		RETURNING issued_at
	`

	err := r.q.QueryRow(ctx, query, voucher.ID, voucher.UserID, voucher.Denomination).Scan(&voucher.IssuedAt)
	if err != nil {
		return fmt.Errorf("failed to create voucher for user %d: %w", voucher.UserID, err)
	}

	return nil
}

// GetByID retrieves a voucher without locking. Returns nil when not found.
func (r *VoucherRepository) GetByID(ctx context.Context, voucherID string) (*entities.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id = $1`

	voucher, err := scanVoucher(r.q.QueryRow(ctx, query, voucherID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voucher %s: %w", voucherID, err)
	}

	return voucher, nil
}

// GetForUpdate locks the voucher row for the duration of the caller's
// transaction. Returns nil when not found.
func (r *VoucherRepository) GetForUpdate(ctx context.Context, voucherID string) (*entities.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id = $1 FOR UPDATE`

	voucher, err := scanVoucher(r.q.QueryRow(ctx, query, voucherID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock voucher %s: %w", voucherID, err)
	}

	return voucher, nil
}

// Consume marks an unconsumed voucher as spent on a wager. The guard on
// consumed_at makes a double consume a no-op reported as false.
func (r *VoucherRepository) Consume(ctx context.Context, voucherID string, wagerID int64) (bool, error) {
	query := `
		UPDATE vouchers
		SET consumed_at = NOW(), wager_id = $1
		WHERE id = $2 AND consumed_at IS NULL
	`

	tag, err := r.q.Exec(ctx, query, wagerID, voucherID)
	if err != nil {
		return false, fmt.Errorf("failed to consume voucher %s: %w", voucherID, err)
	}

	return tag.RowsAffected() > 0, nil
}
