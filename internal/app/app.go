package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ayo6706/moneybank/internal/api"
	"github.com/ayo6706/moneybank/internal/api/handler"
	"github.com/ayo6706/moneybank/internal/api/middleware"
	"github.com/ayo6706/moneybank/internal/bank"
	"github.com/ayo6706/moneybank/internal/config"
	"github.com/ayo6706/moneybank/internal/db"
	"github.com/ayo6706/moneybank/internal/idempotency"
	"github.com/ayo6706/moneybank/internal/observability"
	"github.com/ayo6706/moneybank/internal/repository"
	"github.com/ayo6706/moneybank/internal/service"
	"github.com/ayo6706/moneybank/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run loads configuration from the environment and serves until SIGINT or SIGTERM.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Serve(ctx, cfg, logger)
}

// Serve wires the optional database and Redis dependencies, starts the rate
// refresh worker when rates are persisted, and serves HTTP until ctx is done.
func Serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	observability.Init()

	health := map[string]handler.Pinger{}
	var repo service.RateRepository
	if cfg.DatabaseURL != "" {
		opts := db.DefaultPoolOptions()
		opts.MaxConns = cfg.DatabaseMaxConns
		pool, err := db.Open(ctx, cfg.DatabaseURL, opts, logger)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer pool.Close()
		repo = repository.NewRateRepository(repository.NewStore(pool))
		health["database"] = pool
	} else {
		logger.Warn("DATABASE_URL not set; exchange rates are kept in memory only")
	}

	var idemStore middleware.IdempotencyStore
	if cfg.RedisURL != "" {
		redisClient, err := newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		idemStore = idempotency.NewStore(redisClient, cfg.IdempotencyTTL)
		health["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	} else {
		logger.Warn("REDIS_URL not set; Idempotency-Key headers are ignored")
	}

	svc := service.NewExchangeService(bank.New(), repo)
	if err := svc.Refresh(ctx); err != nil {
		return fmt.Errorf("load persisted rates: %w", err)
	}
	if err := svc.Seed(ctx, cfg.SeedRates); err != nil {
		return err
	}
	logger.Info("exchange rates loaded", zap.Int("count", len(svc.Bank().Rates())))

	stopWorker := func() {}
	if repo != nil {
		stopWorker = worker.NewRateRefreshWorker(svc).WithInterval(cfg.RateRefreshInterval).Run(ctx)
	}
	defer stopWorker()

	router := api.NewRouter(cfg, logger, svc, idemStore, health)
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort), zap.Bool("auth", cfg.AuthEnabled()))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

// NewLogger builds a production zap logger at the named level.
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
