package store

import (
	"context"
	"sort"
	"sync"

	"github.com/example/material-stock/internal/domain/ledger"
	"github.com/example/material-stock/internal/domain/stock"
)

// MemoryEventStore is an in-process stock.EventRepository.
type MemoryEventStore struct {
	mu      sync.RWMutex
	events  map[string]*stock.Event // eventID -> event
	history map[string][]string     // stockID -> eventIDs in append order
	current map[string]string       // stockID -> current eventID
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{
		events:  make(map[string]*stock.Event),
		history: make(map[string][]string),
		current: make(map[string]string),
	}
}

func (s *MemoryEventStore) Append(_ context.Context, e *stock.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	head, exists := s.current[e.StockID]
	if e.PreviousID == nil && exists {
		return stock.ErrConcurrentEdit
	}
	if e.PreviousID != nil && (!exists || head != *e.PreviousID) {
		return stock.ErrConcurrentEdit
	}

	s.events[e.ID] = copyEvent(e)
	s.history[e.StockID] = append(s.history[e.StockID], e.ID)
	s.current[e.StockID] = e.ID
	return nil
}

func (s *MemoryEventStore) Current(_ context.Context, stockID string) (*stock.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.current[stockID]
	if !ok {
		return nil, stock.ErrStockNotFound
	}
	return copyEvent(s.events[id]), nil
}

func (s *MemoryEventStore) Get(_ context.Context, eventID string) (*stock.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[eventID]
	if !ok {
		return nil, stock.ErrStockNotFound
	}
	return copyEvent(e), nil
}

func (s *MemoryEventStore) History(_ context.Context, stockID string) ([]stock.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, ok := s.history[stockID]
	if !ok {
		return nil, stock.ErrStockNotFound
	}
	out := make([]stock.Event, 0, len(ids))
	for _, id := range ids {
		out = append(out, *copyEvent(s.events[id]))
	}
	return out, nil
}

func (s *MemoryEventStore) ExistsStatus(_ context.Context, stockID string, status stock.Status) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.history[stockID] {
		if s.events[id].Status == status {
			return true, nil
		}
	}
	return false, nil
}

// FindPackage returns nil when the order has no current package event at profile.
func (s *MemoryEventStore) FindPackage(_ context.Context, order, profile string) (*stock.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stockIDs := make([]string, 0, len(s.current))
	for stockID := range s.current {
		stockIDs = append(stockIDs, stockID)
	}
	sort.Strings(stockIDs)

	for _, stockID := range stockIDs {
		e := s.events[s.current[stockID]]
		if e.Status == stock.StatusPackage && e.Profile == profile && e.Order != nil && *e.Order == order {
			return copyEvent(e), nil
		}
	}
	return nil, nil
}

type eventSnapshot struct {
	events  map[string]*stock.Event
	history map[string][]string
	current map[string]string
}

func (s *MemoryEventStore) snapshot() eventSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := eventSnapshot{
		events:  make(map[string]*stock.Event, len(s.events)),
		history: make(map[string][]string, len(s.history)),
		current: make(map[string]string, len(s.current)),
	}
	for id, e := range s.events {
		snap.events[id] = e
	}
	for id, ids := range s.history {
		snap.history[id] = append([]string(nil), ids...)
	}
	for id, cur := range s.current {
		snap.current[id] = cur
	}
	return snap
}

func (s *MemoryEventStore) restore(snap eventSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = snap.events
	s.history = snap.history
	s.current = snap.current
}

func copyEvent(e *stock.Event) *stock.Event {
	c := *e
	c.Lines = append([]stock.MaterialLine(nil), e.Lines...)
	return &c
}

// MemoryUnitOfWork serializes units of work over the in-memory stores.
// When fn fails both stores are restored to their state before the call,
// which also discards writes made outside the unit of work meanwhile.
type MemoryUnitOfWork struct {
	mu     sync.Mutex
	events *MemoryEventStore
	ledger *MemoryLedger
}

func NewMemoryUnitOfWork(events *MemoryEventStore, ledger *MemoryLedger) *MemoryUnitOfWork {
	return &MemoryUnitOfWork{events: events, ledger: ledger}
}

func (u *MemoryUnitOfWork) Execute(_ context.Context, fn func(repos stock.Repositories) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	events := u.events.snapshot()
	rows := u.ledger.snapshot()
	if err := fn(memoryRepos{u}); err != nil {
		u.events.restore(events)
		u.ledger.restore(rows)
		return err
	}
	return nil
}

type memoryRepos struct {
	u *MemoryUnitOfWork
}

func (r memoryRepos) Events() stock.EventRepository { return r.u.events }
func (r memoryRepos) Ledger() ledger.Store          { return r.u.ledger }
