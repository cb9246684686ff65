package command

import (
	"context"

	"github.com/example/material-stock/internal/domain/stock"
)

type StockService interface {
	Handle(ctx context.Context, cmd stock.Command) (*stock.Event, error)
}

// Handler turns request bodies into stock commands issued by actor.
type Handler struct {
	stocks StockService
}

func NewHandler(stocks StockService) *Handler {
	return &Handler{stocks: stocks}
}

func (h *Handler) Incoming(ctx context.Context, actor stock.Actor, cmd Incoming) (*stock.Event, error) {
	return h.stocks.Handle(ctx, stock.IncomingCommand{
		Actor:   actor,
		StockID: cmd.StockID,
		Number:  cmd.Number,
		Comment: cmd.Comment,
		Lines:   toLines(cmd.Lines),
	})
}

func (h *Handler) Purchase(ctx context.Context, actor stock.Actor, cmd Purchase) (*stock.Event, error) {
	return h.stocks.Handle(ctx, stock.PurchaseCommand{
		Actor:   actor,
		StockID: cmd.StockID,
		Number:  cmd.Number,
		Comment: cmd.Comment,
		Lines:   toLines(cmd.Lines),
	})
}

func (h *Handler) Package(ctx context.Context, actor stock.Actor, cmd Package) (*stock.Event, error) {
	return h.stocks.Handle(ctx, stock.PackageCommand{
		Actor:   actor,
		Order:   cmd.Order,
		Number:  cmd.Number,
		Comment: cmd.Comment,
		Lines:   toLines(cmd.Lines),
	})
}

// Transfer starts a moving or divide transfer depending on kind.
func (h *Handler) Transfer(ctx context.Context, actor stock.Actor, kind stock.Status, cmd Transfer) (*stock.Event, error) {
	return h.stocks.Handle(ctx, stock.TransferCommand{
		Actor:       actor,
		Kind:        kind,
		Destination: cmd.Destination,
		Order:       cmd.Order,
		Number:      cmd.Number,
		Comment:     cmd.Comment,
		Lines:       toLines(cmd.Lines),
	})
}

func (h *Handler) Cancel(ctx context.Context, actor stock.Actor, stockID string, cmd Close) (*stock.Event, error) {
	return h.stocks.Handle(ctx, stock.CancelCommand{Actor: actor, StockID: stockID, Comment: cmd.Comment})
}

func (h *Handler) Delete(ctx context.Context, actor stock.Actor, stockID string, cmd Close) (*stock.Event, error) {
	return h.stocks.Handle(ctx, stock.DeleteCommand{Actor: actor, StockID: stockID, Comment: cmd.Comment})
}

func toLines(in []Line) []stock.MaterialLine {
	if len(in) == 0 {
		return nil
	}
	out := make([]stock.MaterialLine, 0, len(in))
	for _, l := range in {
		out = append(out, stock.MaterialLine{
			Material:        l.Material,
			Offer:           l.Offer,
			Variation:       l.Variation,
			Modification:    l.Modification,
			Total:           l.Total,
			StorageLocation: l.Storage,
		})
	}
	return out
}
