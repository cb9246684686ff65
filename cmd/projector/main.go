package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/example/material-stock/internal/config"
	"github.com/example/material-stock/internal/infrastructure/cache"
	"github.com/example/material-stock/internal/infrastructure/kafka"
	"github.com/example/material-stock/internal/infrastructure/store"
	"github.com/example/material-stock/internal/logger"
	"github.com/example/material-stock/internal/message"
	"github.com/example/material-stock/internal/metrics"
	"github.com/example/material-stock/internal/projection"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	zl, err := logger.New(cfg.Logging, "projector")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.ConnectPostgres(ctx, cfg.Database.URL, store.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		zl.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis.URL)
	if err != nil {
		zl.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	router := message.NewRouter(zl)
	projection.NewProjector(
		store.NewPostgresLedger(db),
		store.NewPostgresCatalog(db),
		cache.NewRegionCache(redisClient, cfg.Redis.Prefix, cfg.Redis.TTL),
		cfg.Redis.Region,
		zl, m,
	).Register(router)

	retry := kafka.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.Kafka.RetryAttempts
	retry.Backoff = cfg.Kafka.RetryBackoff

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Recalculate, cfg.Kafka.ConsumerGroup+"-projector", retry, zl)
	defer consumer.Close()

	go func() {
		if err := metrics.Serve(ctx, cfg.Metrics.Port, reg, zl); err != nil {
			zl.Error("metrics server failed", zap.Error(err))
		}
	}()

	zl.Info("projector started",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topics.Recalculate),
		zap.String("cache_region", cfg.Redis.Region))

	if err := consumer.Consume(ctx, router.HandleMessage); err != nil && ctx.Err() == nil {
		zl.Fatal("projector stopped", zap.Error(err))
	}
	zl.Info("projector stopped")
}
