package query

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/material-stock/internal/domain/ledger"
	"github.com/example/material-stock/internal/domain/stock"
)

type EventReader interface {
	Current(ctx context.Context, stockID string) (*stock.Event, error)
	History(ctx context.Context, stockID string) ([]stock.Event, error)
}

type TotalsReader interface {
	ListByKey(ctx context.Context, key ledger.Key) ([]ledger.Row, error)
	SumAvailable(ctx context.Context, sku ledger.SKU) (int, error)
}

// Cache is the region cache the projector clears after each recalculation.
type Cache interface {
	Get(ctx context.Context, region, key string, dest any) (bool, error)
	Set(ctx context.Context, region, key string, value any) error
}

// Availability is the global available quantity of one SKU.
type Availability struct {
	SKU       ledger.SKU `json:"sku"`
	Available int        `json:"available"`
}

type Handler struct {
	events EventReader
	totals TotalsReader
	cache  Cache
	region string
	logger *zap.Logger
}

func NewHandler(events EventReader, totals TotalsReader, cache Cache, region string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{events: events, totals: totals, cache: cache, region: region, logger: logger.Named("query")}
}

func (h *Handler) GetStock(ctx context.Context, stockID string) (*stock.Event, error) {
	return h.events.Current(ctx, stockID)
}

// History returns the events of a stock oldest first. A non-empty status
// keeps only the events with that status.
func (h *Handler) History(ctx context.Context, stockID, status string) ([]stock.Event, error) {
	events, err := h.events.History(ctx, stockID)
	if err != nil || status == "" {
		return events, err
	}
	want, err := stock.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	filtered := make([]stock.Event, 0, len(events))
	for _, e := range events {
		if e.Status == want {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// ListTotals returns the ledger rows for one SKU in one profile.
func (h *Handler) ListTotals(ctx context.Context, key ledger.Key) ([]ledger.Row, error) {
	if key.Material == "" {
		return nil, ledger.NewValidationError("material", "is required")
	}
	if key.Profile == "" {
		return nil, ledger.NewValidationError("profile", "is required")
	}
	rows, err := h.totals.ListByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list totals: %w", err)
	}
	if rows == nil {
		rows = []ledger.Row{}
	}
	return rows, nil
}

// Availability reads through the cache region. Cache failures fall back to
// the ledger.
func (h *Handler) Availability(ctx context.Context, sku ledger.SKU) (*Availability, error) {
	if sku.Material == "" {
		return nil, ledger.NewValidationError("material", "is required")
	}
	key := "availability:" + sku.String()

	if h.cache != nil {
		var cached Availability
		hit, err := h.cache.Get(ctx, h.region, key, &cached)
		if err != nil {
			h.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	available, err := h.totals.SumAvailable(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("sum available: %w", err)
	}
	result := &Availability{SKU: sku, Available: available}

	if h.cache != nil {
		if err := h.cache.Set(ctx, h.region, key, result); err != nil {
			h.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return result, nil
}
