package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/example/material-stock/internal/config"
	"github.com/example/material-stock/internal/infrastructure/kafka"
	"github.com/example/material-stock/internal/infrastructure/store"
	"github.com/example/material-stock/internal/logger"
	"github.com/example/material-stock/internal/message"
	"github.com/example/material-stock/internal/metrics"
	"github.com/example/material-stock/internal/reservation"
)

// The reserver turns reserving stock events into per-unit reservation
// messages and applies those messages to the ledger.
func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	zl, err := logger.New(cfg.Logging, "reserver")
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

	topics := kafka.Topics{
		StockEvents: cfg.Kafka.Topics.StockEvents,
		Reserves:    cfg.Kafka.Topics.Reserves,
		Recalculate: cfg.Kafka.Topics.Recalculate,
	}
	producer := kafka.NewProducer(cfg.Kafka.Brokers, topics, zl)
	defer producer.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	router := message.NewRouter(zl)
	reservation.NewSubscriber(store.NewPostgresEventStore(db), producer, zl).Register(router)
	reservation.NewHandler(store.NewPostgresLedger(db), producer, zl, m).Register(router)

	retry := kafka.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.Kafka.RetryAttempts
	retry.Backoff = cfg.Kafka.RetryBackoff

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 3)
	run := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && ctx.Err() == nil {
				errCh <- err
				cancel()
			}
		}()
	}

	for _, topic := range []string{topics.StockEvents, topics.Reserves} {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, topic, cfg.Kafka.ConsumerGroup+"-reserver", retry, zl)
		defer consumer.Close()
		run(func() error { return consumer.Consume(ctx, router.HandleMessage) })
	}
	run(func() error { return metrics.Serve(ctx, cfg.Metrics.Port, reg, zl) })

	zl.Info("reserver started",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("stock_topic", topics.StockEvents),
		zap.String("reserve_topic", topics.Reserves))

	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		zl.Fatal("reserver failed", zap.Error(err))
	}
	zl.Info("reserver stopped")
}
