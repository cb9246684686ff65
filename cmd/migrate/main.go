package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/example/material-stock/internal/config"
	"github.com/example/material-stock/internal/infrastructure/store"
	"github.com/example/material-stock/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	timeout := flag.Duration("timeout", time.Minute, "migration timeout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	zl, err := logger.New(cfg.Logging, "migrate")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := store.ConnectPostgres(ctx, cfg.Database.URL, store.PoolConfig{MaxOpenConns: 1})
	if err != nil {
		zl.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if err := store.Migrate(ctx, db); err != nil {
		zl.Fatal("migration failed", zap.Error(err))
	}
	zl.Info("schema is up to date")
}
