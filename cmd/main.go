package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fmt"

	httpadapter "flashbid/internal/adapter/http"
	"flashbid/internal/adapter/memory"
	"flashbid/internal/adapter/postgres"
	"flashbid/internal/adapter/usecase"
	"flashbid/internal/adapter/ws"
	"flashbid/internal/config"
	"flashbid/internal/db"
)

// main is the entry point of the auction engine. It loads configuration,
// optionally runs database migrations and seeding, initializes the
// database pool, repositories and in-memory adapters, then starts the
// settlement scheduler, the snapshot broadcaster and the HTTP server. On
// receiving a termination signal it gracefully shuts down the server.
func main() {
	exitCode := 1
	defer func() {
		if r := recover(); r != nil {
			panic(r)
		} else {
			os.Exit(exitCode)
		}
	}()

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	var logger *slog.Logger
	{
		// Initialise structured logger based on configuration.
		var handler slog.Handler
		level := cfg.Log.SlogLevel()
		switch cfg.Log.SlogFormat() {
		case "json":
			handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		default:
			handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		}
		logger = slog.New(handler)
	}

	// Optionally run migrations if configured. We use the Psql sub-config.
	if cfg.Psql.RunMigrations {
		if err = db.Migrate(cfg.Psql.Addr.String()); err != nil {
			logger.Error("migration error", slog.Any("error", err))
		} else {
			logger.Info("migrations applied successfully")
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.Psql)
	if err != nil {
		logger.Error("database connection error", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Psql.RunSeed {
		if err = db.Seed(ctx, pool); err != nil {
			logger.Error("seed error", slog.Any("error", err))
		} else {
			logger.Info("demo data seeded")
		}
	}

	campaigns := postgres.NewCampaignRepository(pool)
	bids := postgres.NewBidRepository(pool)
	awards := postgres.NewAwardRepository(pool)
	inventory := postgres.NewInventoryRepository(pool)

	index := memory.NewRankings()
	locks := memory.NewLeaseLocks()
	counters := memory.NewStockCounters()

	guard := usecase.NewInventoryGuard(locks, counters, inventory, logger, usecase.GuardConfig{
		LockTTL:     cfg.Engine.LockTTL,
		MaxAttempts: cfg.Engine.ReserveAttempts,
		Backoff:     cfg.Engine.ReserveBackoff,
	})

	hub := ws.NewHub(logger)
	engine := usecase.NewBidEngine(campaigns, bids, awards, index, hub, logger)
	settler := usecase.NewSettler(campaigns, bids, awards, index, guard, hub, logger,
		cfg.Engine.SettleInterval, cfg.Engine.SettleTimeout)

	go settler.Run(ctx)
	go hub.RunSnapshots(ctx, cfg.Engine.SnapshotInterval, engine.Snapshot)

	admission := httpadapter.NewAdmission(httpadapter.AdmissionConfig{
		BidderLimit: cfg.Engine.BidderRateLimit,
		IPLimit:     cfg.Engine.IPRateLimit,
		Window:      cfg.Engine.RateWindow,
	}, logger)
	go admission.RunJanitor(ctx, time.Minute)

	metrics := httpadapter.NewMetrics()
	handler := httpadapter.NewHandler(engine, hub, admission, metrics, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("server listening", slog.Int("port", int(cfg.HTTP.Port)))
		if err = srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	value := <-quit
	exitCode = 128 + int(value.(syscall.Signal))

	ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	} else {
		logger.Info("server gracefully stopped")
	}
}
