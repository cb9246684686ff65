package projection

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/material-stock/internal/catalog"
	"github.com/example/material-stock/internal/domain/ledger"
	"github.com/example/material-stock/internal/message"
	"github.com/example/material-stock/internal/metrics"
)

// Cache clears named read-through cache regions.
type Cache interface {
	Clear(ctx context.Context, region string) error
}

// Availability is the part of the ledger the projector reads.
type Availability interface {
	SumAvailable(ctx context.Context, sku ledger.SKU) (int, error)
}

// Projector writes the global available quantity of a SKU onto its most
// specific catalog record and clears the cached catalog region.
type Projector struct {
	ledger  Availability
	catalog catalog.Store
	cache   Cache
	region  string
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewProjector(ledger Availability, catalog catalog.Store, cache Cache, region string, logger *zap.Logger, m *metrics.Metrics) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{
		ledger:  ledger,
		catalog: catalog,
		cache:   cache,
		region:  region,
		logger:  logger.Named("projector"),
		metrics: m,
	}
}

func (p *Projector) Recalculate(ctx context.Context, msg message.Recalculate) error {
	holder, err := catalog.Resolve(ctx, p.catalog, msg.SKU)
	if errors.Is(err, catalog.ErrHolderNotFound) {
		p.metrics.Recalculation("no_holder")
		p.logger.Warn("no catalog record holds quantity for sku", zap.String("sku", msg.SKU.String()))
		return nil
	}
	if err != nil {
		p.metrics.Recalculation("error")
		return fmt.Errorf("resolve catalog holder: %w", err)
	}

	available, err := p.ledger.SumAvailable(ctx, msg.SKU)
	if err != nil {
		p.metrics.Recalculation("error")
		return fmt.Errorf("sum available: %w", err)
	}

	if err := p.catalog.SetQuantity(ctx, holder, available); err != nil {
		p.metrics.Recalculation("error")
		return fmt.Errorf("set quantity on %s %s: %w", holder.Level, holder.Ref, err)
	}

	if p.cache != nil {
		if err := p.cache.Clear(ctx, p.region); err != nil {
			p.metrics.Recalculation("error")
			return fmt.Errorf("clear cache region %s: %w", p.region, err)
		}
	}

	p.metrics.Recalculation("ok")
	p.logger.Debug("quantity recalculated",
		zap.String("sku", msg.SKU.String()),
		zap.String("level", string(holder.Level)),
		zap.String("ref", holder.Ref),
		zap.Int("quantity", available))
	return nil
}

func (p *Projector) Register(r *message.Router) {
	r.Handle(message.TypeRecalculate, func(ctx context.Context, env *message.Envelope) error {
		var msg message.Recalculate
		if err := env.Unmarshal(&msg); err != nil {
			return err
		}
		return p.Recalculate(ctx, msg)
	})
}
