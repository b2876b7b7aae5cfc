// Command escalate performs one escalation sweep over all runner balances
// and exits. Intended for external cron setups or manual operation.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/pasabuyph/backend/internal/config"
	"github.com/pasabuyph/backend/internal/db"
	"github.com/pasabuyph/backend/internal/logger"
	"github.com/pasabuyph/backend/internal/repository"
	"github.com/pasabuyph/backend/internal/scheduler"
	"github.com/pasabuyph/backend/internal/service"
	"github.com/pasabuyph/backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("escalate: failed to load configuration: %v", err)
	}

	logger.Init("info")
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("escalate: failed to connect to database: %v", err)
	}
	defer dbConn.Close()

	userRepo := repository.NewUserRepository(dbConn)
	ledgerRepo := repository.NewLedgerRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Escalation notices from the one-shot run are persisted only; there is
	// no long-lived hub for live delivery, the next sweep of the server's
	// websocket clients picks them up from the feed.
	hub := ws.NewHub()
	go hub.Run()
	notificationService := service.NewNotificationService(notificationRepo, hub)

	sweep := scheduler.New(ledgerRepo, userRepo, notificationService, logger.Log)
	if err := sweep.Run(ctx); err != nil {
		logger.Log.WithError(err).Error("escalation sweep failed")
		os.Exit(1)
	}
}
