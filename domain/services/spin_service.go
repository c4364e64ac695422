package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"bankroll/config"
	"bankroll/domain/entities"
	domainevents "bankroll/domain/events"
	"bankroll/domain/interfaces"
	"bankroll/observability"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type spinService struct {
	uowFactory interfaces.UnitOfWorkFactory
	// entropy is the randomness source for draws. Production uses
	// crypto/rand.Reader; tests inject a deterministic reader.
	entropy io.Reader
}

// NewSpinService creates a spin service backed by crypto/rand.
func NewSpinService(uowFactory interfaces.UnitOfWorkFactory) interfaces.SpinService {
	return NewSpinServiceWithEntropy(uowFactory, rand.Reader)
}

// NewSpinServiceWithEntropy creates a spin service with an explicit
// randomness source. Test use only.
func NewSpinServiceWithEntropy(uowFactory interfaces.UnitOfWorkFactory, entropy io.Reader) interfaces.SpinService {
	return &spinService{
		uowFactory: uowFactory,
		entropy:    entropy,
	}
}

// ExecuteSpin runs one spin for the user. The session key derived from
// the request parameters makes the call replay-safe: a repeated request
// returns the original record without drawing again or moving funds.
//
// The spin runs in two transactions. The first debits the stake and
// commits the drawn outcome; the second credits the payout. A payout
// failure marks the record payout_failed instead of voiding the spin,
// because the draw is final once recorded.
func (s *spinService) ExecuteSpin(ctx context.Context, userID int64, stake decimal.Decimal, requestedAt time.Time, clientSeed string) (*entities.SpinRecord, error) {
	if !stake.IsPositive() {
		return nil, entities.ErrInvalidAmount
	}
	cfg := config.Get()
	if stake.LessThan(cfg.SpinMin()) {
		return nil, entities.ErrInvalidAmount
	}

	sessionKey := spinSessionKey(userID, stake, requestedAt, clientSeed)

	record, replayed, err := s.executeDraw(ctx, userID, stake, sessionKey, cfg.SpinTable(), requestedAt)
	if err != nil {
		return nil, err
	}
	if replayed {
		return record, nil
	}

	if record.Payout.IsPositive() {
		if err := s.creditPayout(ctx, record); err != nil {
			log.WithFields(log.Fields{
				"user_id":     userID,
				"session_key": sessionKey,
				"payout":      record.Payout,
				"error":       err,
			}).Error("Spin payout credit failed")
			observability.SpinPayoutFailures.Inc()
			if markErr := s.markPayoutFailed(ctx, record); markErr != nil {
				log.WithFields(log.Fields{
					"spin_id": record.ID,
					"error":   markErr,
				}).Error("Failed to mark spin payout failure")
			}
		}
	}

	return record, nil
}

// executeDraw runs the replay check, the stake debit and the draw in one
// transaction. The second return value is true when the session key was
// already used and the stored record is returned instead.
func (s *spinService) executeDraw(ctx context.Context, userID int64, stake decimal.Decimal, sessionKey string, table entities.SpinTable, requestedAt time.Time) (*entities.SpinRecord, bool, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	// Replay check. The session key column is unique and the stake debit
	// is keyed on it, so a concurrent duplicate cannot double-spin.
	if existing, err := uow.SpinRepository().GetBySessionKey(ctx, sessionKey); err != nil {
		return nil, false, fmt.Errorf("failed to check session key: %w", err)
	} else if existing != nil {
		return existing, true, nil
	}

	// The seed is hashed for the audit record and never stored raw.
	seed := make([]byte, 32)
	if _, err := io.ReadFull(s.entropy, seed); err != nil {
		return nil, false, fmt.Errorf("failed to read entropy: %w", err)
	}
	draw := int64(binary.BigEndian.Uint64(seed[:8]) % entities.SpinWeightTotal)
	seedDigest := sha256.Sum256(seed)

	outcome, err := table.Pick(draw)
	if err != nil {
		return nil, false, fmt.Errorf("failed to pick outcome: %w", err)
	}

	if _, _, err := applyMutation(ctx, uow.AccountRepository(), uow.LedgerRepository(), mutation{
		UserID:         userID,
		Amount:         stake,
		Op:             entities.BalanceOpDebit,
		Kind:           entities.EntryKindDebit,
		Source:         entities.EntrySourceSpin,
		IdempotencyKey: fmt.Sprintf("spin:stake:%s", sessionKey),
		Metadata:       map[string]any{"session_key": sessionKey},
	}); err != nil {
		// A concurrent duplicate passes the replay check before the
		// winner commits, then blocks on the account lock and trips the
		// idempotency key. Hand it the winner's record instead.
		if errors.Is(err, entities.ErrAlreadyProcessed) {
			existing, readErr := uow.SpinRepository().GetBySessionKey(ctx, sessionKey)
			if readErr != nil {
				return nil, false, fmt.Errorf("failed to load replayed spin: %w", readErr)
			}
			if existing != nil {
				return existing, true, nil
			}
		}
		return nil, false, err
	}

	record := &entities.SpinRecord{
		UserID:        userID,
		SessionKey:    sessionKey,
		Stake:         stake,
		Category:      outcome.Category,
		Multiplier:    outcome.Multiplier,
		Payout:        stake.Mul(outcome.Multiplier).Round(4),
		Status:        entities.SpinStatusCompleted,
		SeedDigest:    hex.EncodeToString(seedDigest[:]),
		TableSnapshot: table,
	}
	if err := uow.SpinRepository().Create(ctx, record); err != nil {
		return nil, false, fmt.Errorf("failed to create spin record: %w", err)
	}

	uow.EventBus().Publish(domainevents.NewSpinExecutedEvent(userID, record.ID, sessionKey, outcome.Category, record.Payout, requestedAt))

	if err := uow.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return record, false, nil
}

// creditPayout credits the spin payout in its own transaction, keyed so
// a retry after a crash cannot pay twice.
func (s *spinService) creditPayout(ctx context.Context, record *entities.SpinRecord) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, _, err := applyMutation(ctx, uow.AccountRepository(), uow.LedgerRepository(), mutation{
		UserID:         record.UserID,
		Amount:         record.Payout,
		Op:             entities.BalanceOpCredit,
		Kind:           entities.EntryKindCredit,
		Source:         entities.EntrySourceSpin,
		IdempotencyKey: fmt.Sprintf("spin:payout:%s", record.SessionKey),
		Metadata:       map[string]any{"session_key": record.SessionKey, "category": record.Category},
		RelatedID:      &record.ID,
	}); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *spinService) markPayoutFailed(ctx context.Context, record *entities.SpinRecord) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.SpinRepository().UpdateStatus(ctx, record.ID, entities.SpinStatusPayoutFailed); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	record.Status = entities.SpinStatusPayoutFailed
	return nil
}

// spinSessionKey derives the replay-protection key from the request
// parameters. Identical requests map to identical keys.
func spinSessionKey(userID int64, stake decimal.Decimal, requestedAt time.Time, clientSeed string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%d|%s|%s", userID, requestedAt.UnixNano(), stake.String(), clientSeed)
	return hex.EncodeToString(h.Sum(nil))
}
