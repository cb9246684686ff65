package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/material-stock/internal/metrics"
)

const (
	OpAddTotal   = "add_total"
	OpSubTotal   = "sub_total"
	OpAddReserve = "add_reserve"
	OpSubReserve = "sub_reserve"
)

// Ledger validates and applies guarded mutations on top of a Store and
// turns zero-affected updates into ErrStaleRow.
type Ledger struct {
	store   Store
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func New(store Store, logger *zap.Logger, m *metrics.Metrics) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: store, logger: logger, metrics: m}
}

// Create inserts a new row. Only a positive initial total is accepted and
// the reserve always starts at zero.
func (l *Ledger) Create(ctx context.Context, row *Row) error {
	if row.Material == "" {
		return NewValidationError("material", "is required")
	}
	if row.Profile == "" {
		return NewValidationError("profile", "is required")
	}
	if row.Total <= 0 {
		return NewValidationError("total", "must be positive")
	}
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	row.Reserve = 0
	row.CreatedAt = now
	row.UpdatedAt = now

	if err := l.store.Create(ctx, row); err != nil {
		return fmt.Errorf("failed to create ledger row: %w", err)
	}
	l.logger.Debug("ledger row created",
		zap.String("row_id", row.ID),
		zap.String("profile", row.Profile),
		zap.String("sku", row.SKU().String()),
		zap.Int("total", row.Total))
	return nil
}

func (l *Ledger) Get(ctx context.Context, id string) (*Row, error) {
	return l.store.Get(ctx, id)
}

func (l *Ledger) AddTotal(ctx context.Context, id string, n int) error {
	if n <= 0 {
		return NewValidationError("n", "must be positive")
	}
	return l.apply(ctx, OpAddTotal, id, n, l.store.AddTotal)
}

func (l *Ledger) SubTotal(ctx context.Context, id string, n int) error {
	if n <= 0 {
		return NewValidationError("n", "must be positive")
	}
	return l.apply(ctx, OpSubTotal, id, n, l.store.SubTotal)
}

func (l *Ledger) AddReserve(ctx context.Context, id string, n int) error {
	if n <= 0 {
		return NewValidationError("n", "must be positive")
	}
	return l.apply(ctx, OpAddReserve, id, n, l.store.AddReserve)
}

// SubReserve accepts n == 0; the store clamps the reserve at zero.
func (l *Ledger) SubReserve(ctx context.Context, id string, n int) error {
	if n < 0 {
		return NewValidationError("n", "must not be negative")
	}
	return l.apply(ctx, OpSubReserve, id, n, l.store.SubReserve)
}

func (l *Ledger) apply(ctx context.Context, op, id string, n int, update func(context.Context, string, int) (int64, error)) error {
	affected, err := update(ctx, id, n)
	if err != nil {
		l.metrics.LedgerMutation(op, "error")
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	if affected == 0 {
		l.metrics.LedgerMutation(op, "stale")
		return fmt.Errorf("%s %s by %d: %w", op, id, n, ErrStaleRow)
	}
	l.metrics.LedgerMutation(op, "ok")
	return nil
}

func (l *Ledger) FindOneBySubReserve(ctx context.Context, key Key) (*Row, error) {
	return l.store.FindOneBySubReserve(ctx, key)
}

func (l *Ledger) FindOneByReserveMax(ctx context.Context, key Key) (*Row, error) {
	return l.store.FindOneByReserveMax(ctx, key)
}

func (l *Ledger) FindOneByTotalMax(ctx context.Context, key Key) (*Row, error) {
	return l.store.FindOneByTotalMax(ctx, key)
}

func (l *Ledger) FindOneByLocation(ctx context.Context, key Key, storage *string) (*Row, error) {
	return l.store.FindOneByLocation(ctx, key, storage)
}

func (l *Ledger) SumAvailable(ctx context.Context, sku SKU) (int, error) {
	return l.store.SumAvailable(ctx, sku)
}
