package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/example/material-stock/internal/catalog"
)

// PostgresCatalog reads and writes catalog_quantity, the quantity field
// the catalog exposes for each product, offer, variation and modification.
type PostgresCatalog struct {
	db *sqlx.DB
}

func NewPostgresCatalog(db *sqlx.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (c *PostgresCatalog) FindHolder(ctx context.Context, level catalog.Level, ref string) (*catalog.Holder, error) {
	var h catalog.Holder
	err := c.db.GetContext(ctx, &h, `SELECT level, ref, quantity FROM catalog_quantity WHERE level = $1 AND ref = $2`, string(level), ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrHolderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *PostgresCatalog) SetQuantity(ctx context.Context, h *catalog.Holder, quantity int) error {
	res, err := c.db.ExecContext(ctx, `UPDATE catalog_quantity SET quantity = $3 WHERE level = $1 AND ref = $2`, string(h.Level), h.Ref, quantity)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return catalog.ErrHolderNotFound
	}
	h.Quantity = quantity
	return nil
}

// MemoryCatalog is an in-process catalog.Store.
type MemoryCatalog struct {
	mu      sync.RWMutex
	holders map[catalog.Candidate]int
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{holders: make(map[catalog.Candidate]int)}
}

// Register adds a holder with zero quantity.
func (c *MemoryCatalog) Register(level catalog.Level, ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holders[catalog.Candidate{Level: level, Ref: ref}] = 0
}

func (c *MemoryCatalog) FindHolder(_ context.Context, level catalog.Level, ref string) (*catalog.Holder, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.holders[catalog.Candidate{Level: level, Ref: ref}]
	if !ok {
		return nil, catalog.ErrHolderNotFound
	}
	return &catalog.Holder{Level: level, Ref: ref, Quantity: q}, nil
}

func (c *MemoryCatalog) SetQuantity(_ context.Context, h *catalog.Holder, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := catalog.Candidate{Level: h.Level, Ref: h.Ref}
	if _, ok := c.holders[key]; !ok {
		return catalog.ErrHolderNotFound
	}
	c.holders[key] = quantity
	h.Quantity = quantity
	return nil
}

var (
	_ catalog.Store = (*PostgresCatalog)(nil)
	_ catalog.Store = (*MemoryCatalog)(nil)
)
