package reservation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/material-stock/internal/domain/ledger"
	"github.com/example/material-stock/internal/message"
	"github.com/example/material-stock/internal/metrics"
)

const (
	opAdd = "add"
	opSub = "sub"
)

// Handler applies unit-granular reservation messages to the ledger.
//
// Adding is strict: a missing row is a fatal error because stock that does
// not exist cannot be promised. Releasing is lenient: nothing to release is
// logged and the message is considered handled. A lost race on the guarded
// update is logged and swallowed in both cases so the transport may redeliver.
type Handler struct {
	ledger     *ledger.Ledger
	dispatcher message.Dispatcher
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewHandler(store ledger.Store, dispatcher message.Dispatcher, logger *zap.Logger, m *metrics.Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("reservation")
	return &Handler{
		ledger:     ledger.New(store, logger, m),
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    m,
	}
}

func (h *Handler) AddReserve(ctx context.Context, msg message.AddReserve) error {
	key := msg.LedgerKey()
	row, err := h.ledger.FindOneBySubReserve(ctx, key)
	if errors.Is(err, ledger.ErrRowNotFound) {
		h.metrics.Reservation(opAdd, "not_found")
		h.logger.Error("no stock with spare capacity to reserve", keyFields(key)...)
		return message.Fatal(fmt.Errorf("reserve %s at %s: %w", key.SKU, key.Profile, err))
	}
	if err != nil {
		return err
	}

	if err := h.ledger.AddReserve(ctx, row.ID, 1); err != nil {
		if errors.Is(err, ledger.ErrStaleRow) {
			h.lostRace(opAdd, key, row.ID, err)
			return nil
		}
		return err
	}
	h.metrics.Reservation(opAdd, "reserved")
	h.recalculate(ctx, key.SKU)
	return nil
}

func (h *Handler) SubReserve(ctx context.Context, msg message.SubReserve) error {
	key := msg.LedgerKey()
	row, err := h.ledger.FindOneByReserveMax(ctx, key)
	if errors.Is(err, ledger.ErrRowNotFound) {
		h.metrics.Reservation(opSub, "not_found")
		h.logger.Error("no reservation to release", keyFields(key)...)
		return nil
	}
	if err != nil {
		return err
	}

	if err := h.ledger.SubReserve(ctx, row.ID, 1); err != nil {
		if errors.Is(err, ledger.ErrStaleRow) {
			h.lostRace(opSub, key, row.ID, err)
			return nil
		}
		return err
	}
	h.metrics.Reservation(opSub, "released")
	h.recalculate(ctx, key.SKU)
	return nil
}

// Register wires the handler into a message router.
func (h *Handler) Register(r *message.Router) {
	r.Handle(message.TypeAddReserve, func(ctx context.Context, env *message.Envelope) error {
		var msg message.AddReserve
		if err := env.Unmarshal(&msg); err != nil {
			return err
		}
		return h.AddReserve(ctx, msg)
	})
	r.Handle(message.TypeSubReserve, func(ctx context.Context, env *message.Envelope) error {
		var msg message.SubReserve
		if err := env.Unmarshal(&msg); err != nil {
			return err
		}
		return h.SubReserve(ctx, msg)
	})
}

func (h *Handler) lostRace(op string, key ledger.Key, rowID string, err error) {
	h.metrics.Reservation(op, "stale")
	fields := append(keyFields(key), zap.String("op", op), zap.String("row_id", rowID), zap.Error(err))
	h.logger.Error("reservation lost race on ledger row", fields...)
}

func (h *Handler) recalculate(ctx context.Context, sku ledger.SKU) {
	if h.dispatcher == nil {
		return
	}
	if err := h.dispatcher.Dispatch(ctx, message.Recalculate{SKU: sku}); err != nil {
		h.logger.Error("failed to dispatch recalculation", zap.String("sku", sku.String()), zap.Error(err))
	}
}

func keyFields(key ledger.Key) []zap.Field {
	return []zap.Field{
		zap.String("profile", key.Profile),
		zap.String("sku", key.SKU.String()),
	}
}
