package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"bankroll/application"
	"bankroll/config"
	"bankroll/database"
	"bankroll/domain/services"
	"bankroll/events"
	"bankroll/repository"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := config.Get()

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	log.Info("Starting bankroll core...")

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("Running migrations...")
	if err := database.MigrateUp(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	clock := services.NewClock()

	bettingService := services.NewBettingService(uowFactory, clock)

	application.RegisterSubscriptions(eventBus, uowFactory)

	settlementWorker := application.NewSettlementWorker(uowFactory, bettingService)
	stopWorker := settlementWorker.Start(ctx, 30*time.Second)
	defer stopWorker()
	log.Info("Services initialized successfully")

	// Metrics endpoint.
	metricsServer := &http.Server{Addr: ":9100", Handler: promhttp.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Metrics server stopped")
		}
	}()

	log.WithField("environment", cfg.Environment).Info("Bankroll core is running")
	<-ctx.Done()

	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Metrics server shutdown failed")
	}

	log.Info("Closing database connection...")
	db.Close()

	log.Info("Shutdown completed")
	return nil
}
