package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"

	"github.com/pasabuyph/backend/internal/config"
	"github.com/pasabuyph/backend/internal/db"
	httpHandlers "github.com/pasabuyph/backend/internal/http/handlers"
	httpRouter "github.com/pasabuyph/backend/internal/http/router"
	"github.com/pasabuyph/backend/internal/logger"
	"github.com/pasabuyph/backend/internal/repository"
	"github.com/pasabuyph/backend/internal/scheduler"
	"github.com/pasabuyph/backend/internal/service"
	"github.com/pasabuyph/backend/internal/storage"
	"github.com/pasabuyph/backend/internal/ws"
)

func main() {
	// Context for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: failed to load configuration: %v", err)
	}

	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Database connection and migrations.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: failed to connect to database: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: migrations failed: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	proofStorage, err := storage.NewProofStorage(cfg.ProofStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: failed to prepare the proof store: %v", err)
	}

	// Repositories.
	userRepo := repository.NewUserRepository(dbConn)
	errandRepo := repository.NewErrandRepository(dbConn)
	paymentRepo := repository.NewErrandPaymentRepository(dbConn)
	ledgerRepo := repository.NewLedgerRepository(dbConn)
	repaymentRepo := repository.NewRepaymentRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Websocket hub.
	hub := ws.NewHub()
	go hub.Run()

	// Services.
	authService := service.NewAuthService(userRepo, tokenManager)
	notificationService := service.NewNotificationService(notificationRepo, hub)
	paymentService := service.NewPaymentService(paymentRepo, errandRepo, notificationService)
	ledgerService := service.NewLedgerService(ledgerRepo)
	repaymentService := service.NewRepaymentService(repaymentRepo, userRepo, notificationService)

	// HTTP handlers.
	authHandler := httpHandlers.NewAuthHandler(authService)
	paymentHandler := httpHandlers.NewPaymentHandler(paymentService, proofStorage)
	balanceHandler := httpHandlers.NewBalanceHandler(ledgerService, repaymentService, proofStorage)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	engine := httpRouter.SetupRouter(cfg, authHandler, paymentHandler, balanceHandler, notificationHandler, wsHandler, healthHandler, tokenManager)

	// Daily escalation sweep over runner balances.
	sweep := scheduler.New(ledgerRepo, userRepo, notificationService, logger.Log)
	cronRunner := cron.New()
	if _, err := cronRunner.AddFunc(cfg.EscalationSchedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if err := sweep.Run(runCtx); err != nil {
			logger.Log.WithError(err).Error("escalation sweep failed")
		}
	}); err != nil {
		log.Fatalf("main: invalid escalation schedule %q: %v", cfg.EscalationSchedule, err)
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: http server shutdown error: %v", err)
		}
	}()

	log.Printf("main: HTTP server listening on port %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: server exited with error: %v", err)
	}
}

// safeClose closes the database connection.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: failed to close database: %v", err)
	}
}
