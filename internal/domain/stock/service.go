package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/material-stock/internal/domain/ledger"
	"github.com/example/material-stock/internal/message"
	"github.com/example/material-stock/internal/metrics"
)

// Service is the stock event state machine. Every accepted command appends
// one event, applies its ledger effects in the same unit of work and, after
// commit, announces the new event on the bus.
type Service struct {
	uow        UnitOfWork
	dispatcher message.Dispatcher
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewService(uow UnitOfWork, dispatcher message.Dispatcher, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		uow:        uow,
		dispatcher: dispatcher,
		logger:     logger.Named("stock"),
		metrics:    m,
	}
}

// Handle validates cmd, runs its transition and returns the new current event.
func (s *Service) Handle(ctx context.Context, cmd Command) (*Event, error) {
	target := cmd.Target()
	if err := cmd.Validate(); err != nil {
		s.metrics.Transition(target.String(), ErrorCode(err))
		return nil, err
	}

	var (
		result  *Event
		touched []ledger.SKU
	)
	err := s.uow.Execute(ctx, func(repos Repositories) error {
		tx := &transition{
			events: repos.Events(),
			ledger: ledger.New(repos.Ledger(), s.logger, s.metrics),
		}
		var err error
		switch c := cmd.(type) {
		case IncomingCommand:
			result, touched, err = tx.incoming(ctx, c)
		case PurchaseCommand:
			result, err = tx.purchase(ctx, c)
		case PackageCommand:
			result, err = tx.pack(ctx, c)
		case TransferCommand:
			result, err = tx.transfer(ctx, c)
		case CancelCommand:
			result, err = tx.cancel(ctx, c)
		case DeleteCommand:
			result, err = tx.delete(ctx, c)
		default:
			err = fmt.Errorf("%w: unsupported command %T", ErrInvalidTransition, cmd)
		}
		return err
	})
	if err != nil {
		s.metrics.Transition(target.String(), ErrorCode(err))
		s.logger.Warn("stock transition rejected",
			zap.String("status", target.String()),
			zap.String("code", ErrorCode(err)),
			zap.Error(err))
		return nil, err
	}

	s.metrics.Transition(target.String(), "ok")
	s.logger.Info("stock transition committed",
		zap.String("stock_id", result.StockID),
		zap.String("event_id", result.ID),
		zap.String("status", result.Status.String()))
	s.publish(ctx, result, touched)
	return result, nil
}

func (s *Service) Incoming(ctx context.Context, cmd IncomingCommand) (*Event, error) {
	return s.Handle(ctx, cmd)
}

func (s *Service) Purchase(ctx context.Context, cmd PurchaseCommand) (*Event, error) {
	return s.Handle(ctx, cmd)
}

func (s *Service) Package(ctx context.Context, cmd PackageCommand) (*Event, error) {
	return s.Handle(ctx, cmd)
}

func (s *Service) Transfer(ctx context.Context, cmd TransferCommand) (*Event, error) {
	return s.Handle(ctx, cmd)
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Event, error) {
	return s.Handle(ctx, cmd)
}

func (s *Service) Delete(ctx context.Context, cmd DeleteCommand) (*Event, error) {
	return s.Handle(ctx, cmd)
}

// publish runs after commit. The transition already happened, so delivery
// failures are logged for redelivery tooling and not returned.
func (s *Service) publish(ctx context.Context, e *Event, touched []ledger.SKU) {
	if s.dispatcher == nil {
		return
	}
	msgs := []message.Message{message.StockEvent{
		StockID:         e.StockID,
		EventID:         e.ID,
		PreviousEventID: e.PreviousID,
		OccurredAt:      e.CreatedAt,
	}}
	for _, sku := range touched {
		msgs = append(msgs, message.Recalculate{SKU: sku})
	}
	if err := s.dispatcher.Dispatch(ctx, msgs...); err != nil {
		s.logger.Error("failed to dispatch stock event",
			zap.String("stock_id", e.StockID),
			zap.String("event_id", e.ID),
			zap.Error(err))
	}
}

// transition holds the stores bound to one unit of work.
type transition struct {
	events EventRepository
	ledger *ledger.Ledger
}

func (t *transition) incoming(ctx context.Context, c IncomingCommand) (*Event, []ledger.SKU, error) {
	if c.StockID == "" {
		next := newEvent(StatusIncoming, c.Actor, c.Number, c.Comment, c.Lines)
		if err := t.receive(ctx, next.Profile, c.User, next.Lines); err != nil {
			return nil, nil, err
		}
		if err := t.commit(ctx, nil, next); err != nil {
			return nil, nil, err
		}
		return next, next.SKUs(), nil
	}

	current, err := t.current(ctx, c.StockID)
	if err != nil {
		return nil, nil, err
	}
	if current.Status == StatusIncoming {
		return nil, nil, ErrIncomingImmutable
	}
	if !CanTransition(current.Status, StatusIncoming) {
		return nil, nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, StatusIncoming)
	}
	if err := t.guard(ctx, current, StatusIncoming); err != nil {
		return nil, nil, err
	}

	lines := c.Lines
	if len(lines) == 0 {
		lines = current.Lines
	}
	// An arrival may only place the transferred goods (storage locations
	// may change), never a different quantity.
	if current.Status.IsTransfer() && !sameQuantities(lines, current.Lines) {
		return nil, nil, ErrArrivalMismatch
	}
	next := current.successor(StatusIncoming, c.User, c.Comment, lines)
	if c.Number != "" {
		next.Number = c.Number
	}

	if current.Status.IsTransfer() {
		// Arrival: goods leave the source warehouse's reserve and land at
		// the destination.
		if err := t.settle(ctx, current.Profile, current.Lines); err != nil {
			return nil, nil, err
		}
		next.Profile = *current.Destination
		next.Destination = nil
	}
	if err := t.receive(ctx, next.Profile, c.User, next.Lines); err != nil {
		return nil, nil, err
	}
	if err := t.commit(ctx, current, next); err != nil {
		return nil, nil, err
	}
	return next, next.SKUs(), nil
}

func (t *transition) purchase(ctx context.Context, c PurchaseCommand) (*Event, error) {
	if c.StockID == "" {
		next := newEvent(StatusPurchase, c.Actor, c.Number, c.Comment, c.Lines)
		return next, t.commit(ctx, nil, next)
	}
	current, err := t.current(ctx, c.StockID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, StatusPurchase) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, StatusPurchase)
	}
	next := current.successor(StatusPurchase, c.User, c.Comment, c.Lines)
	if c.Number != "" {
		next.Number = c.Number
	}
	return next, t.commit(ctx, current, next)
}

func (t *transition) pack(ctx context.Context, c PackageCommand) (*Event, error) {
	existing, err := t.events.FindPackage(ctx, c.Order, c.Profile)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: order %s stock %s", ErrPackageExists, c.Order, existing.StockID)
	}
	next := newEvent(StatusPackage, c.Actor, c.Number, c.Comment, c.Lines)
	order := c.Order
	next.Order = &order
	return next, t.commit(ctx, nil, next)
}

func (t *transition) transfer(ctx context.Context, c TransferCommand) (*Event, error) {
	next := newEvent(c.Kind, c.Actor, c.Number, c.Comment, c.Lines)
	destination := c.Destination
	next.Destination = &destination
	next.Order = c.Order
	return next, t.commit(ctx, nil, next)
}

func (t *transition) cancel(ctx context.Context, c CancelCommand) (*Event, error) {
	current, err := t.current(ctx, c.StockID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, StatusCancel) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, StatusCancel)
	}
	if err := t.guard(ctx, current, StatusCancel); err != nil {
		return nil, err
	}
	next := current.successor(StatusCancel, c.User, c.Comment, current.Lines)
	return next, t.commit(ctx, current, next)
}

func (t *transition) delete(ctx context.Context, c DeleteCommand) (*Event, error) {
	current, err := t.current(ctx, c.StockID)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusPurchase {
		return nil, ErrDeleteNotPurchase
	}
	if current.Order != nil {
		return nil, ErrDeleteOrderLinked
	}
	if len(current.Lines) != 1 {
		return nil, ErrDeleteMultipleLines
	}
	if err := t.guard(ctx, current, StatusError); err != nil {
		return nil, err
	}
	next := current.successor(StatusError, c.User, c.Comment, current.Lines)
	return next, t.commit(ctx, current, next)
}

func (t *transition) current(ctx context.Context, stockID string) (*Event, error) {
	current, err := t.events.Current(ctx, stockID)
	if err != nil {
		return nil, err
	}
	return current, nil
}

// guard rejects a status that another event of the same stock already
// holds. It runs before any ledger effect of the transition.
func (t *transition) guard(ctx context.Context, current *Event, status Status) error {
	if !status.Unique() {
		return nil
	}
	exists, err := t.events.ExistsStatus(ctx, current.StockID, status)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrStatusExists, status)
	}
	return nil
}

// commit appends next. A nil current means next opens a new stock.
func (t *transition) commit(ctx context.Context, current, next *Event) error {
	if current != nil && (next.PreviousID == nil || *next.PreviousID != current.ID) {
		return ErrConcurrentEdit
	}
	return t.events.Append(ctx, next)
}

// receive adds each line to its storage location row, creating the row on
// first arrival.
func (t *transition) receive(ctx context.Context, profile string, user *string, lines []MaterialLine) error {
	for _, line := range lines {
		key := ledger.NewKey(profile, line.SKU())
		row, err := t.ledger.FindOneByLocation(ctx, key, line.StorageLocation)
		switch {
		case err == nil:
			err = t.ledger.AddTotal(ctx, row.ID, line.Total)
			if err == nil {
				continue
			}
			// The row was emptied and collected between lookup and update.
			if !errors.Is(err, ledger.ErrStaleRow) {
				return err
			}
		case !errors.Is(err, ledger.ErrRowNotFound):
			return err
		}

		if err := t.ledger.Create(ctx, &ledger.Row{
			Material:        line.Material,
			Offer:           line.Offer,
			Variation:       line.Variation,
			Modification:    line.Modification,
			User:            user,
			Profile:         profile,
			StorageLocation: line.StorageLocation,
			Total:           line.Total,
		}); err != nil {
			return err
		}
	}
	return nil
}

// settle consumes reserved stock at the source warehouse, most reserved
// location first.
func (t *transition) settle(ctx context.Context, profile string, lines []MaterialLine) error {
	for _, line := range lines {
		key := ledger.NewKey(profile, line.SKU())
		remaining := line.Total
		for remaining > 0 {
			row, err := t.ledger.FindOneByReserveMax(ctx, key)
			if errors.Is(err, ledger.ErrRowNotFound) {
				return fmt.Errorf("%w: %d of %s at %s", ErrInsufficientReserve, remaining, key.SKU, profile)
			}
			if err != nil {
				return err
			}
			take := min(remaining, row.Reserve)
			if err := t.ledger.SubReserve(ctx, row.ID, take); err != nil {
				return err
			}
			if err := t.ledger.SubTotal(ctx, row.ID, take); err != nil {
				return err
			}
			remaining -= take
		}
	}
	return nil
}

func newEvent(status Status, actor Actor, number string, comment *string, lines []MaterialLine) *Event {
	e := &Event{
		ID:        uuid.New().String(),
		StockID:   uuid.New().String(),
		Status:    status,
		Profile:   actor.Profile,
		User:      actor.User,
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	}
	if number == "" {
		number = defaultNumber(e.CreatedAt)
	}
	e.Number = number
	e.Lines = cloneLines(lines, e.ID)
	return e
}

// successor builds the event that supersedes e.
func (e *Event) successor(status Status, user, comment *string, lines []MaterialLine) *Event {
	prev := e.ID
	next := &Event{
		ID:          uuid.New().String(),
		StockID:     e.StockID,
		PreviousID:  &prev,
		Status:      status,
		Number:      e.Number,
		Profile:     e.Profile,
		Destination: e.Destination,
		Order:       e.Order,
		User:        user,
		Comment:     comment,
		CreatedAt:   time.Now().UTC(),
	}
	if next.Comment == nil {
		next.Comment = e.Comment
	}
	next.Lines = cloneLines(lines, next.ID)
	return next
}

// sameQuantities reports whether a and b carry the same total per SKU.
func sameQuantities(a, b []MaterialLine) bool {
	return equalTotals(totalsBySKU(a), totalsBySKU(b))
}

type skuTotal struct {
	sku   ledger.SKU
	total int
}

func totalsBySKU(lines []MaterialLine) []skuTotal {
	var out []skuTotal
next:
	for _, line := range lines {
		sku := line.SKU()
		for i := range out {
			if out[i].sku.Matches(sku) {
				out[i].total += line.Total
				continue next
			}
		}
		out = append(out, skuTotal{sku: sku, total: line.Total})
	}
	return out
}

func equalTotals(a, b []skuTotal) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		found := false
		for _, y := range b {
			if x.sku.Matches(y.sku) {
				found = x.total == y.total
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func cloneLines(lines []MaterialLine, eventID string) []MaterialLine {
	out := make([]MaterialLine, len(lines))
	for i, line := range lines {
		line.ID = uuid.New().String()
		line.EventID = eventID
		out[i] = line
	}
	return out
}

func defaultNumber(t time.Time) string {
	return t.Format("060102150405.000")
}
