package services

import (
	"context"
	"fmt"

	"bankroll/domain/entities"
	domainevents "bankroll/domain/events"
	"bankroll/domain/interfaces"
	"bankroll/observability"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type bettingService struct {
	uowFactory interfaces.UnitOfWorkFactory
	clock      interfaces.Clock
}

// NewBettingService creates a new betting service
func NewBettingService(uowFactory interfaces.UnitOfWorkFactory, clock interfaces.Clock) interfaces.BettingService {
	return &bettingService{
		uowFactory: uowFactory,
		clock:      clock,
	}
}

// PlaceWager places a pending wager on an open match. Odds are
// snapshotted at placement. The stake is debited from the account unless
// a voucher of matching denomination substitutes for it; the voucher is
// consumed exactly once, atomically with wager creation.
func (s *bettingService) PlaceWager(ctx context.Context, req interfaces.PlaceWagerRequest) (*entities.Wager, error) {
	if !req.Amount.IsPositive() {
		return nil, entities.ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	match, err := uow.MatchRepository().GetByID(ctx, req.MatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match == nil {
		return nil, entities.ErrMatchNotFound
	}
	if !match.OpenForWagering(s.clock.Now()) {
		return nil, entities.ErrMatchNotOpen
	}

	existing, err := uow.WagerRepository().GetByUserAndMatch(ctx, req.UserID, req.MatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing wager: %w", err)
	}
	if existing != nil {
		return nil, entities.ErrDuplicateWager
	}

	odds, err := match.OddsFor(req.Predicted)
	if err != nil {
		return nil, err
	}

	wager := &entities.Wager{
		UserID:          req.UserID,
		MatchID:         req.MatchID,
		Amount:          req.Amount,
		Predicted:       req.Predicted,
		Odds:            odds,
		PotentialPayout: req.Amount.Mul(odds),
		Status:          entities.WagerStatusPending,
	}

	if req.VoucherID != "" {
		// A voucher substitutes for the account debit. The voucher row is
		// locked and consumed inside this transaction, so a failed
		// placement never burns the voucher and a concurrent placement
		// cannot spend it twice.
		voucher, err := uow.VoucherRepository().GetForUpdate(ctx, req.VoucherID)
		if err != nil {
			return nil, fmt.Errorf("failed to lock voucher: %w", err)
		}
		if voucher == nil || voucher.UserID != req.UserID || !voucher.Consumable() {
			return nil, entities.ErrVoucherInvalid
		}
		if !voucher.Denomination.Equal(req.Amount) {
			return nil, entities.ErrVoucherAmountMismatch
		}
		voucherID := req.VoucherID
		wager.VoucherID = &voucherID
	}

	if err := uow.WagerRepository().Create(ctx, wager); err != nil {
		return nil, fmt.Errorf("failed to create wager: %w", err)
	}

	if wager.VoucherFunded() {
		consumed, err := uow.VoucherRepository().Consume(ctx, req.VoucherID, wager.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to consume voucher: %w", err)
		}
		if !consumed {
			return nil, entities.ErrVoucherInvalid
		}
	} else {
		_, entry, err := applyMutation(ctx, uow.AccountRepository(), uow.LedgerRepository(), mutation{
			UserID:         req.UserID,
			Amount:         req.Amount,
			Op:             entities.BalanceOpDebit,
			Kind:           entities.EntryKindDebit,
			Source:         entities.EntrySourceBet,
			IdempotencyKey: fmt.Sprintf("wager:place:%d", wager.ID),
			Metadata:       map[string]any{"match_id": req.MatchID, "predicted": req.Predicted},
			RelatedID:      &wager.ID,
		})
		if err != nil {
			return nil, err
		}

		wager.StakeEntryID = &entry.ID
		if err := uow.WagerRepository().Update(ctx, wager); err != nil {
			return nil, fmt.Errorf("failed to link stake entry: %w", err)
		}
	}

	uow.EventBus().Publish(domainevents.NewWagerPlacedEvent(req.UserID, wager.ID, req.MatchID, req.Amount, s.clock.Now()))

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return wager, nil
}

// SettleMatch settles every pending wager on a finished match. Each wager
// settles in its own transaction under its own account lock, so one
// wager's failure never corrupts another's ledger state, and unrelated
// users' wagers never contend. Only pending wagers are selected, which
// makes a partially settled batch safe to re-run.
func (s *bettingService) SettleMatch(ctx context.Context, matchID int64) (*interfaces.SettlementSummary, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match == nil {
		return nil, entities.ErrMatchNotFound
	}
	if match.Status != entities.MatchStatusFinished {
		return nil, entities.ErrMatchNotFinished
	}
	if match.Result == nil {
		return nil, entities.ErrOutcomeUndetermined
	}
	result := *match.Result

	pendingIDs, err := uow.WagerRepository().ListPendingByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending wagers: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	summary := &interfaces.SettlementSummary{MatchID: matchID, TotalPayout: decimal.Zero}
	for _, wagerID := range pendingIDs {
		won, payout, err := s.settleOne(ctx, wagerID, result)
		if err != nil {
			// Isolate the failure: the other wagers still settle, and a
			// re-run picks this one up again because it stayed pending.
			log.WithFields(log.Fields{
				"matchID": matchID,
				"wagerID": wagerID,
				"error":   err,
			}).Error("Failed to settle wager")
			summary.Failed++
			continue
		}
		summary.Settled++
		if won {
			summary.Won++
			summary.TotalPayout = summary.TotalPayout.Add(payout)
		} else {
			summary.Lost++
		}
	}

	return summary, nil
}

// settleOne settles a single wager in its own transaction. The settled
// event is published only after the wager's mutation is durably committed.
func (s *bettingService) settleOne(ctx context.Context, wagerID int64, result entities.Outcome) (won bool, payout decimal.Decimal, err error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wager, err := uow.WagerRepository().GetByIDForUpdate(ctx, wagerID)
	if err != nil {
		return false, decimal.Zero, fmt.Errorf("failed to lock wager: %w", err)
	}
	if wager == nil {
		return false, decimal.Zero, entities.ErrWagerNotFound
	}
	if !wager.IsPending() {
		// Already settled by an earlier run; nothing to redo.
		return false, decimal.Zero, entities.ErrAlreadySettled
	}

	now := s.clock.Now()
	won = wager.Predicted == result
	payout = decimal.Zero

	if won {
		wager.Status = entities.WagerStatusWon
		payout = wager.PotentialPayout
		_, _, err := applyMutation(ctx, uow.AccountRepository(), uow.LedgerRepository(), mutation{
			UserID:         wager.UserID,
			Amount:         payout,
			Op:             entities.BalanceOpCredit,
			Kind:           entities.EntryKindCredit,
			Source:         entities.EntrySourceBet,
			IdempotencyKey: fmt.Sprintf("wager:settle:%d", wager.ID),
			Metadata:       map[string]any{"match_id": wager.MatchID, "result": result},
			RelatedID:      &wager.ID,
		})
		if err != nil {
			return false, decimal.Zero, err
		}
	} else {
		wager.Status = entities.WagerStatusLost
	}

	wager.SettledAt = &now
	if err := uow.WagerRepository().Update(ctx, wager); err != nil {
		return false, decimal.Zero, fmt.Errorf("failed to update wager: %w", err)
	}

	uow.EventBus().Publish(domainevents.NewWagerSettledEvent(wager.UserID, wager.ID, wager.MatchID, won, wager.Amount, payout, now))

	if err := uow.Commit(); err != nil {
		return false, decimal.Zero, fmt.Errorf("failed to commit transaction: %w", err)
	}

	label := "lost"
	if won {
		label = "won"
	}
	observability.WagersSettled.WithLabelValues(label).Inc()

	return won, payout, nil
}

// CancelWager cancels a pending wager and refunds the stake. Only the
// owner or an administrator may cancel. Voucher-funded wagers refund
// nothing: no account debit happened at placement.
func (s *bettingService) CancelWager(ctx context.Context, wagerID, callerID int64, isAdmin bool) (*entities.Wager, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wager, err := uow.WagerRepository().GetByIDForUpdate(ctx, wagerID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wager: %w", err)
	}
	if wager == nil {
		return nil, entities.ErrWagerNotFound
	}
	if wager.UserID != callerID && !isAdmin {
		return nil, entities.ErrForbidden
	}
	if !wager.IsPending() {
		return nil, entities.ErrWagerNotPending
	}

	if !wager.VoucherFunded() {
		_, _, err := applyMutation(ctx, uow.AccountRepository(), uow.LedgerRepository(), mutation{
			UserID:         wager.UserID,
			Amount:         wager.Amount,
			Op:             entities.BalanceOpCredit,
			Kind:           entities.EntryKindCredit,
			Source:         entities.EntrySourceBet,
			IdempotencyKey: fmt.Sprintf("wager:cancel:%d", wager.ID),
			Metadata:       map[string]any{"match_id": wager.MatchID, "cancelled_by": callerID},
			RelatedID:      &wager.ID,
		})
		if err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	wager.Status = entities.WagerStatusCancelled
	wager.SettledAt = &now
	if err := uow.WagerRepository().Update(ctx, wager); err != nil {
		return nil, fmt.Errorf("failed to update wager: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return wager, nil
}
