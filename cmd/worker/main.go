package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vecinal/backend/config"
	"github.com/vecinal/backend/internal/mailer"
	"github.com/vecinal/backend/internal/notifications"
	"github.com/vecinal/backend/internal/worker"
	"github.com/vecinal/backend/pkg/database"
	"github.com/vecinal/backend/pkg/queue"
	"github.com/vecinal/backend/pkg/redis"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolConfig{
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: time.Duration(cfg.Database.ConnLifetimeMin) * time.Minute,
	}, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, logger)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	defer rdb.Close()

	w := worker.New(
		queue.NewQueue(rdb.Client, logger),
		mailer.New(cfg.Email, logger),
		notifications.NewRepository(pool),
		logger,
	)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("worker stopped", zap.Error(err))
	}
}
