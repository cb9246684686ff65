package message

import (
	"context"
	"time"

	"github.com/example/material-stock/internal/domain/ledger"
)

const (
	TypeStockEvent  = "stock.event"
	TypeAddReserve  = "reserve.add"
	TypeSubReserve  = "reserve.sub"
	TypeRecalculate = "quantity.recalculate"
)

// Message is a payload that can be put on the bus.
type Message interface {
	Type() string
	// Key groups related messages on partitioned transports.
	Key() string
}

// Dispatcher delivers messages at least once. No ordering is promised.
type Dispatcher interface {
	Dispatch(ctx context.Context, msgs ...Message) error
}

// StockEvent announces that a stock moved to a new current event.
type StockEvent struct {
	StockID         string    `json:"stock_id"`
	EventID         string    `json:"event_id"`
	PreviousEventID *string   `json:"previous_event_id,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func (StockEvent) Type() string  { return TypeStockEvent }
func (m StockEvent) Key() string { return m.StockID }

// Reservation addresses one unit of a SKU at a profile.
type Reservation struct {
	Profile string `json:"profile"`
	ledger.SKU
}

func (r Reservation) LedgerKey() ledger.Key {
	return ledger.NewKey(r.Profile, r.SKU)
}

type AddReserve struct {
	Reservation
}

type SubReserve struct {
	Reservation
}

func (AddReserve) Type() string  { return TypeAddReserve }
func (m AddReserve) Key() string { return m.Profile + ":" + m.Material }
func (SubReserve) Type() string  { return TypeSubReserve }
func (m SubReserve) Key() string { return m.Profile + ":" + m.Material }

// Recalculate asks for the global available quantity of a SKU to be
// written back to the catalog.
type Recalculate struct {
	ledger.SKU
}

func (Recalculate) Type() string  { return TypeRecalculate }
func (m Recalculate) Key() string { return m.Material }

func NewAddReserve(profile string, sku ledger.SKU) AddReserve {
	return AddReserve{Reservation{Profile: profile, SKU: sku}}
}

func NewSubReserve(profile string, sku ledger.SKU) SubReserve {
	return SubReserve{Reservation{Profile: profile, SKU: sku}}
}
