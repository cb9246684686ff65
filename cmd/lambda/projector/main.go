package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/example/material-stock/internal/config"
	"github.com/example/material-stock/internal/infrastructure/cache"
	"github.com/example/material-stock/internal/infrastructure/kinesis"
	"github.com/example/material-stock/internal/infrastructure/store"
	"github.com/example/material-stock/internal/logger"
	"github.com/example/material-stock/internal/message"
	"github.com/example/material-stock/internal/projection"
)

var (
	router *message.Router
	zl     *zap.Logger
)

func init() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	zl, err = logger.New(cfg.Logging, "lambda-projector")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	ctx := context.Background()
	db, err := store.ConnectPostgres(ctx, cfg.Database.URL, store.PoolConfig{
		MaxOpenConns: 2,
		MaxIdleConns: 2,
	})
	if err != nil {
		zl.Fatal("failed to connect to postgres", zap.Error(err))
	}
	redisClient, err := cache.NewRedis(ctx, cfg.Redis.URL)
	if err != nil {
		zl.Fatal("failed to connect to redis", zap.Error(err))
	}

	router = message.NewRouter(zl)
	projection.NewProjector(
		store.NewPostgresLedger(db),
		store.NewPostgresCatalog(db),
		cache.NewRegionCache(redisClient, cfg.Redis.Prefix, cfg.Redis.TTL),
		cfg.Redis.Region,
		zl, nil,
	).Register(router)
}

func handler(ctx context.Context, kinesisEvent events.KinesisEvent) (events.KinesisEventResponse, error) {
	resp := kinesis.Process(ctx, router, kinesisEvent, func(record events.KinesisEventRecord, err error) {
		zl.Error("failed to process record",
			zap.String("event_id", record.EventID),
			zap.String("sequence", record.Kinesis.SequenceNumber),
			zap.Error(err))
	})
	zl.Info("batch processed",
		zap.Int("records", len(kinesisEvent.Records)),
		zap.Int("retry", len(resp.BatchItemFailures)))
	return resp, nil
}

func main() {
	lambda.Start(handler)
}
