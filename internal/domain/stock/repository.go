package stock

import (
	"context"

	"github.com/example/material-stock/internal/domain/ledger"
)

// EventRepository stores the append-only event log and the per-stock
// current pointer.
type EventRepository interface {
	// Append inserts e with its lines and order link and makes it current.
	// When e.PreviousID is set the pointer only moves if it still points at
	// that event; otherwise ErrConcurrentEdit is returned.
	Append(ctx context.Context, e *Event) error
	// Current returns the event the stock currently points at.
	Current(ctx context.Context, stockID string) (*Event, error)
	Get(ctx context.Context, eventID string) (*Event, error)
	History(ctx context.Context, stockID string) ([]Event, error)
	// ExistsStatus reports whether any event of the stock holds status.
	ExistsStatus(ctx context.Context, stockID string, status Status) (bool, error)
	// FindPackage returns the current package event for order at profile.
	FindPackage(ctx context.Context, order, profile string) (*Event, error)
}

// Repositories is the set of stores sharing one transaction.
type Repositories interface {
	Events() EventRepository
	Ledger() ledger.Store
}

// UnitOfWork runs fn in a transaction and commits when fn returns nil.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}
