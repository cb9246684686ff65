package store

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/example/material-stock/internal/domain/stock"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func ConnectPostgres(ctx context.Context, dsn string, pool PoolConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, err
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS material_stock_total (
		id           UUID PRIMARY KEY,
		material     TEXT NOT NULL,
		offer        TEXT NULL,
		variation    TEXT NULL,
		modification TEXT NULL,
		usr          TEXT NULL,
		profile      TEXT NOT NULL,
		storage      TEXT NULL,
		total        INTEGER NOT NULL DEFAULT 0 CHECK (total >= 0),
		reserve      INTEGER NOT NULL DEFAULT 0 CHECK (reserve >= 0),
		price        INTEGER NOT NULL DEFAULT 0,
		comment      TEXT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_material_stock_total_key
		ON material_stock_total (material, profile, offer, variation, modification)`,
	`CREATE TABLE IF NOT EXISTS material_stock (
		id            UUID PRIMARY KEY,
		current_event UUID NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS material_stock_event (
		id          UUID PRIMARY KEY,
		stock_id    UUID NOT NULL,
		previous_id UUID NULL,
		status      TEXT NOT NULL CHECK (status IN (` + statusList() + `)),
		number      TEXT NOT NULL,
		profile     TEXT NOT NULL,
		destination TEXT NULL,
		usr         TEXT NULL,
		comment     TEXT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_material_stock_event_stock ON material_stock_event (stock_id, status)`,
	`CREATE TABLE IF NOT EXISTS material_stock_material (
		id           UUID PRIMARY KEY,
		event_id     UUID NOT NULL REFERENCES material_stock_event (id) ON DELETE CASCADE,
		material     TEXT NOT NULL,
		offer        TEXT NULL,
		variation    TEXT NULL,
		modification TEXT NULL,
		total        INTEGER NOT NULL CHECK (total >= 1),
		storage      TEXT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS material_stock_order (
		event_id UUID PRIMARY KEY REFERENCES material_stock_event (id),
		ord      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_material_stock_order_ord ON material_stock_order (ord)`,
	`CREATE TABLE IF NOT EXISTS catalog_quantity (
		level    TEXT NOT NULL,
		ref      TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (level, ref)
	)`,
}

// statusList renders every stock status as a quoted SQL list.
func statusList() string {
	quoted := make([]string, 0, len(stock.Statuses()))
	for _, st := range stock.Statuses() {
		quoted = append(quoted, "'"+st.String()+"'")
	}
	return strings.Join(quoted, ", ")
}

// Migrate creates the tables used by the Postgres stores.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
