package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openraise/escrow-backend/internal/app"
	redisclient "github.com/openraise/escrow-backend/internal/clients/redis"
	"github.com/openraise/escrow-backend/internal/clients/treasury"
	"github.com/openraise/escrow-backend/internal/db"
	"github.com/openraise/escrow-backend/internal/handlers"
	"github.com/openraise/escrow-backend/internal/logger"
	"github.com/openraise/escrow-backend/internal/middleware"
	"github.com/openraise/escrow-backend/internal/observability"
	"github.com/openraise/escrow-backend/internal/repos"
	"github.com/openraise/escrow-backend/internal/server"
	"github.com/openraise/escrow-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config
	cfg, err := app.LoadConfig(log)
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Tracing
	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "escrow-backend",
		Environment: cfg.Environment,
	})

	// Database
	database, err := db.NewDatabaseService(log)
	if err != nil {
		log.Fatal("Database init failed", "error", err)
	}
	if err := database.AutoMigrateAll(); err != nil {
		log.Fatal("Database auto migration failed", "error", err)
	}
	gdb := database.DB()

	// Repos
	log.Info("Setting up repos...")
	projectRepo := repos.NewProjectRepo(gdb, log)
	contribRepo := repos.NewContributionRepo(gdb, log)
	refundRepo := repos.NewRefundRepo(gdb, log)
	settlementRepo := repos.NewSettlementRepo(gdb, log)
	eventRepo := repos.NewProjectEventRepo(gdb, log)

	// Collaborators
	clock := services.NewSystemClock()
	locks := services.NewProjectLocks()

	var transfer services.ValueTransfer
	if cfg.TreasuryURL != "" {
		client, err := treasury.NewClient(cfg.TreasuryURL, cfg.TreasuryAPIKey, log)
		if err != nil {
			log.Fatal("Treasury client init failed", "error", err)
		}
		transfer = client
	} else {
		log.Warn("TREASURY_URL not set, transfers run in dry-run mode")
		transfer = services.NewLoggingTransfer(log)
	}

	var worklist services.Worklist
	if os.Getenv("REDIS_ADDR") != "" {
		redisWorklist, err := redisclient.NewWorklist(log)
		if err != nil {
			log.Fatal("Redis worklist init failed", "error", err)
		}
		defer redisWorklist.Close()
		worklist = redisWorklist
	} else {
		log.Warn("REDIS_ADDR not set, using in-memory worklist")
		worklist = services.NewMemoryWorklist()
	}

	// Services
	log.Info("Setting up services...")
	registry := services.NewRegistryService(gdb, projectRepo, eventRepo, locks, log)
	contributions := services.NewContributionService(gdb, projectRepo, contribRepo, locks, clock, log)
	settlement, err := services.NewSettlementService(gdb, projectRepo, settlementRepo, transfer, locks, clock, cfg.FeeRateBasisPoints, cfg.FeeRecipient, log)
	if err != nil {
		log.Fatal("Settlement service init failed", "error", err)
	}
	refunds := services.NewRefundService(gdb, refundRepo, transfer, locks, clock, log)
	automation := services.NewAutomationService(registry, projectRepo, worklist, clock, log)
	escrow := services.NewEscrowService(registry, contributions, settlement, refunds, transfer, log)
	auth := services.NewAuthService(cfg.JWTSecretKey, cfg.OperatorPassword, cfg.TokenTTL, clock, log)

	// HTTP
	router := server.NewRouter(server.RouterConfig{
		ServiceName:         "escrow-backend",
		AllowOrigins:        cfg.AllowOrigins,
		AuthHandler:         handlers.NewAuthHandler(auth),
		AuthMiddleware:      middleware.NewAuthMiddleware(log, auth),
		ProjectHandler:      handlers.NewProjectHandler(registry, escrow),
		ContributionHandler: handlers.NewContributionHandler(contributions, escrow),
		RefundHandler:       handlers.NewRefundHandler(refunds),
		SettlementHandler:   handlers.NewSettlementHandler(settlement),
		AutomationHandler:   handlers.NewAutomationHandler(automation),
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if shutdownOTel != nil {
			_ = shutdownOTel(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("Server exited with error", "error", err)
	}
	log.Info("Server stopped")
}
