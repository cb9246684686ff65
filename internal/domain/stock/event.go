package stock

import (
	"time"

	"github.com/example/material-stock/internal/domain/ledger"
)

// Event is one immutable snapshot of a stock request. Editing a stock
// appends a new Event and moves the stock's current pointer to it.
type Event struct {
	ID          string         `db:"id" json:"event_id"`
	StockID     string         `db:"stock_id" json:"stock_id"`
	PreviousID  *string        `db:"previous_id" json:"previous_event_id,omitempty"`
	Status      Status         `db:"status" json:"status"`
	Number      string         `db:"number" json:"number"`
	Profile     string         `db:"profile" json:"profile"`
	Destination *string        `db:"destination" json:"destination,omitempty"`
	Order       *string        `db:"ord" json:"order,omitempty"`
	User        *string        `db:"usr" json:"user,omitempty"`
	Comment     *string        `db:"comment" json:"comment,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	Lines       []MaterialLine `db:"-" json:"lines"`
}

// MaterialLine is one SKU line of a stock event.
type MaterialLine struct {
	ID              string  `db:"id" json:"id"`
	EventID         string  `db:"event_id" json:"-"`
	Material        string  `db:"material" json:"material"`
	Offer           *string `db:"offer" json:"offer,omitempty"`
	Variation       *string `db:"variation" json:"variation,omitempty"`
	Modification    *string `db:"modification" json:"modification,omitempty"`
	Total           int     `db:"total" json:"total"`
	StorageLocation *string `db:"storage" json:"storage,omitempty"`
}

func (l MaterialLine) SKU() ledger.SKU {
	return ledger.SKU{
		Material:     l.Material,
		Offer:        l.Offer,
		Variation:    l.Variation,
		Modification: l.Modification,
	}
}

func (l MaterialLine) validate() error {
	if l.Material == "" {
		return ledger.NewValidationError("lines.material", "is required")
	}
	if l.Total < 1 {
		return ledger.NewValidationError("lines.total", "must be at least 1")
	}
	return nil
}

// SKUs returns the distinct SKUs of the event's lines in line order.
func (e *Event) SKUs() []ledger.SKU {
	var out []ledger.SKU
	for _, line := range e.Lines {
		sku := line.SKU()
		dup := false
		for _, seen := range out {
			if seen.Matches(sku) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, sku)
		}
	}
	return out
}
