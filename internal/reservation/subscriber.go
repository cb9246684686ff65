package reservation

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/material-stock/internal/domain/stock"
	"github.com/example/material-stock/internal/message"
)

// EventReader loads stock events by id.
type EventReader interface {
	Get(ctx context.Context, eventID string) (*stock.Event, error)
}

// Subscriber turns stock transitions into unit reservation messages. A
// stock entering a reserving status (package, moving, divide) reserves one
// unit per message for every unit of every line at its profile.
type Subscriber struct {
	events     EventReader
	dispatcher message.Dispatcher
	logger     *zap.Logger
}

func NewSubscriber(events EventReader, dispatcher message.Dispatcher, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{events: events, dispatcher: dispatcher, logger: logger.Named("subscriber")}
}

func (s *Subscriber) OnStockEvent(ctx context.Context, msg message.StockEvent) error {
	current, err := s.events.Get(ctx, msg.EventID)
	if errors.Is(err, stock.ErrStockNotFound) {
		return message.Fatal(err)
	}
	if err != nil {
		return err
	}
	if !current.Status.Reserving() {
		return nil
	}

	if msg.PreviousEventID != nil {
		previous, err := s.events.Get(ctx, *msg.PreviousEventID)
		if err != nil && !errors.Is(err, stock.ErrStockNotFound) {
			return err
		}
		if previous != nil && previous.Status.Reserving() {
			return nil
		}
	}

	var msgs []message.Message
	for _, line := range current.Lines {
		for i := 0; i < line.Total; i++ {
			msgs = append(msgs, message.NewAddReserve(current.Profile, line.SKU()))
		}
	}
	s.logger.Info("reserving stock for event",
		zap.String("stock_id", current.StockID),
		zap.String("event_id", current.ID),
		zap.String("status", current.Status.String()),
		zap.Int("units", len(msgs)))
	return s.dispatcher.Dispatch(ctx, msgs...)
}

func (s *Subscriber) Register(r *message.Router) {
	r.Handle(message.TypeStockEvent, func(ctx context.Context, env *message.Envelope) error {
		var msg message.StockEvent
		if err := env.Unmarshal(&msg); err != nil {
			return err
		}
		return s.OnStockEvent(ctx, msg)
	})
}
