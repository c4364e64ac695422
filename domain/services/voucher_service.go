package services

import (
	"context"
	"fmt"

	"bankroll/domain/entities"
	"bankroll/domain/interfaces"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type voucherService struct {
	uowFactory interfaces.UnitOfWorkFactory
}

// NewVoucherService creates a new voucher service
func NewVoucherService(uowFactory interfaces.UnitOfWorkFactory) interfaces.VoucherService {
	return &voucherService{uowFactory: uowFactory}
}

// IssueVoucher creates a single-use wager voucher for a user. Vouchers
// never touch the account balance; they only substitute for the debit of
// a wager matching their denomination.
func (s *voucherService) IssueVoucher(ctx context.Context, userID int64, denomination decimal.Decimal) (*entities.Voucher, error) {
	if !denomination.IsPositive() {
		return nil, entities.ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	voucher := &entities.Voucher{
		ID:           uuid.NewString(),
		UserID:       userID,
		Denomination: denomination,
	}
	if err := uow.VoucherRepository().Create(ctx, voucher); err != nil {
		return nil, fmt.Errorf("failed to create voucher: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return voucher, nil
}

// GetVoucher retrieves a voucher by ID.
func (s *voucherService) GetVoucher(ctx context.Context, voucherID string) (*entities.Voucher, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	voucher, err := uow.VoucherRepository().GetByID(ctx, voucherID)
	if err != nil {
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}
	if voucher == nil {
		return nil, entities.ErrVoucherInvalid
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return voucher, nil
}
