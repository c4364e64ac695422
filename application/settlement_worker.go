package application

import (
	"context"
	"fmt"
	"time"

	"bankroll/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// SettlementWorker periodically settles wagers on finished matches.
// Settlement is resumable and per-wager idempotent, so rerunning over a
// partially settled match only picks up what is still pending.
type SettlementWorker struct {
	uowFactory interfaces.UnitOfWorkFactory
	betting    interfaces.BettingService
}

// NewSettlementWorker creates a new settlement worker
func NewSettlementWorker(uowFactory interfaces.UnitOfWorkFactory, betting interfaces.BettingService) *SettlementWorker {
	return &SettlementWorker{
		uowFactory: uowFactory,
		betting:    betting,
	}
}

// Start begins the settlement loop. The returned function stops it.
func (w *SettlementWorker) Start(ctx context.Context, interval time.Duration) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Infof("Settlement worker started, interval %v", interval)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Settlement worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Settlement worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				if err := w.settleFinishedMatches(ctx); err != nil {
					log.Errorf("Error settling finished matches: %v", err)
				}
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// settleFinishedMatches finds finished matches that still have pending
// wagers and settles each one.
func (w *SettlementWorker) settleFinishedMatches(ctx context.Context) error {
	matchIDs, err := w.listUnsettled(ctx)
	if err != nil {
		return err
	}

	for _, matchID := range matchIDs {
		summary, err := w.betting.SettleMatch(ctx, matchID)
		if err != nil {
			log.WithFields(log.Fields{
				"matchID": matchID,
				"error":   err,
			}).Error("Failed to settle match")
			continue
		}
		log.WithFields(log.Fields{
			"matchID": summary.MatchID,
			"settled": summary.Settled,
			"won":     summary.Won,
			"lost":    summary.Lost,
			"failed":  summary.Failed,
			"payout":  summary.TotalPayout,
		}).Info("Settled match")
	}

	return nil
}

func (w *SettlementWorker) listUnsettled(ctx context.Context) ([]int64, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	matchIDs, err := uow.MatchRepository().ListFinishedWithPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsettled matches: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return matchIDs, nil
}
