package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/attaboy/lottery/internal/app"
	"github.com/attaboy/lottery/internal/auth"
	"github.com/attaboy/lottery/internal/guard"
	"github.com/attaboy/lottery/internal/handler"
	"github.com/attaboy/lottery/internal/infra"
	"github.com/attaboy/lottery/internal/projection"
	"github.com/attaboy/lottery/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Parse JWT expiry durations
	playerExpiry, err := time.ParseDuration(cfg.JWTPlayerExpiry)
	if err != nil {
		return fmt.Errorf("parse player JWT expiry: %w", err)
	}
	adminExpiry, err := time.ParseDuration(cfg.JWTAdminExpiry)
	if err != nil {
		return fmt.Errorf("parse admin JWT expiry: %w", err)
	}
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, playerExpiry, adminExpiry)

	health := map[string]handler.HealthCheck{}

	// Stores
	var stores app.Stores
	switch cfg.StoreBackend {
	case infra.BackendPostgres:
		if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		pool, err := infra.NewPostgresPool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		logger.Info("connected to postgres")

		stores = app.Stores{
			Games:   repository.NewGameRepository(pool),
			Tickets: repository.NewTicketRepository(pool),
			Prizes:  repository.NewPrizeRepository(pool),
			Users:   repository.NewUserRepository(pool),
			Outbox:  repository.NewOutboxRepository(pool),
		}
		health["postgres"] = func(ctx context.Context) error { return infra.HealthCheck(ctx, pool) }
	default:
		stores = app.MemoryStores()
		logger.Warn("using in-memory stores; state is lost on restart")
	}

	opts := app.Options{
		InitialGrant:      cfg.InitialGrant,
		CancelTimeout:     cfg.CancelTimeout,
		ReconcileInterval: cfg.ReconcileInterval,
	}
	if cfg.PurchaseRateLimit > 0 {
		opts.PurchaseLimit = guard.NewRateLimiter(cfg.PurchaseRateLimit, time.Minute)
		if err := opts.PurchaseLimit.StartSweeper(ctx, 5*time.Minute, logger); err != nil {
			return fmt.Errorf("start rate limit sweeper: %w", err)
		}
	}

	// Redis-backed lock and balance cache
	if cfg.RedisURL != "" {
		rdb, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		if cfg.LockBackend == infra.BackendRedis {
			opts.Locker = guard.NewRedisLocker(rdb, cfg.LockTTL, logger)
		}
		if cfg.BalanceCache {
			opts.BalanceStore = projection.NewRedisStore(rdb)
		}
		health["redis"] = func(ctx context.Context) error { return infra.RedisHealthCheck(ctx, rdb) }
	}

	core := app.Assemble(stores, opts, logger)

	// Outbox -> Kafka
	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer producer.Close()
	infra.NewOutboxPoller(stores.Outbox, producer, logger).Start(ctx)

	// Finish cancellations interrupted by crashes or store outages
	if err := core.Reconciler.Start(ctx); err != nil {
		return fmt.Errorf("start reconciler: %w", err)
	}

	r := app.NewRouter(app.RouterDeps{
		Core:        core,
		JWTMgr:      jwtMgr,
		Logger:      logger,
		Health:      health,
		CORSOrigins: cfg.CORSAllowedOrigins,
	})

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.CancelTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr, "store_backend", cfg.StoreBackend, "lock_backend", cfg.LockBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
