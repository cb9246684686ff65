package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/example/material-stock/internal/api"
	"github.com/example/material-stock/internal/auth"
	"github.com/example/material-stock/internal/command"
	"github.com/example/material-stock/internal/config"
	"github.com/example/material-stock/internal/domain/stock"
	"github.com/example/material-stock/internal/infrastructure/cache"
	"github.com/example/material-stock/internal/infrastructure/kafka"
	"github.com/example/material-stock/internal/infrastructure/store"
	"github.com/example/material-stock/internal/logger"
	"github.com/example/material-stock/internal/metrics"
	"github.com/example/material-stock/internal/query"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ValidateAPI(); err != nil {
		log.Fatalf("invalid api config: %v", err)
	}

	zl, err := logger.New(cfg.Logging, "api")
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
	regionCache := cache.NewRegionCache(redisClient, cfg.Redis.Prefix, cfg.Redis.TTL)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, kafka.Topics{
		StockEvents: cfg.Kafka.Topics.StockEvents,
		Reserves:    cfg.Kafka.Topics.Reserves,
		Recalculate: cfg.Kafka.Topics.Recalculate,
	}, zl)
	defer producer.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	stocks := stock.NewService(store.NewPostgresUnitOfWork(db), producer, zl, m)
	handlers := api.NewHandlers(
		command.NewHandler(stocks),
		query.NewHandler(store.NewPostgresEventStore(db), store.NewPostgresLedger(db), regionCache, cfg.Redis.Region, zl),
		zl,
	)
	router := api.NewRouter(api.RouterConfig{
		Handlers:   handlers,
		JWTService: auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry),
		Gatherer:   reg,
		Logger:     zl,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	go func() {
		zl.Info("api server started", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("api server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}
