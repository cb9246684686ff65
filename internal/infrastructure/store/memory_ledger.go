package store

import (
	"context"
	"sync"

	"github.com/example/material-stock/internal/domain/ledger"
)

// MemoryLedger is an in-process ledger.Store. Each guarded update and its
// zero-row cleanup run under one lock, so they are atomic with respect to
// every other call.
type MemoryLedger struct {
	mu   sync.RWMutex
	rows map[string]*ledger.Row
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{rows: make(map[string]*ledger.Row)}
}

// snapshot copies every row; restore puts such a copy back.
func (m *MemoryLedger) snapshot() map[string]ledger.Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := make(map[string]ledger.Row, len(m.rows))
	for id, row := range m.rows {
		rows[id] = *row
	}
	return rows
}

func (m *MemoryLedger) restore(rows map[string]ledger.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = make(map[string]*ledger.Row, len(rows))
	for id, row := range rows {
		copied := row
		m.rows[id] = &copied
	}
}

func (m *MemoryLedger) Create(_ context.Context, row *ledger.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *row
	m.rows[row.ID] = &copied
	return nil
}

func (m *MemoryLedger) Get(_ context.Context, id string) (*ledger.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, ledger.ErrRowNotFound
	}
	copied := *row
	return &copied, nil
}

func (m *MemoryLedger) AddTotal(_ context.Context, id string, n int) (int64, error) {
	return m.update(id, func(r *ledger.Row) bool {
		r.Total += n
		return true
	})
}

func (m *MemoryLedger) SubTotal(_ context.Context, id string, n int) (int64, error) {
	return m.update(id, func(r *ledger.Row) bool {
		if r.Total == 0 || r.Total < n {
			return false
		}
		r.Total -= n
		return true
	})
}

func (m *MemoryLedger) AddReserve(_ context.Context, id string, n int) (int64, error) {
	return m.update(id, func(r *ledger.Row) bool {
		if r.Reserve+n > r.Total {
			return false
		}
		r.Reserve += n
		return true
	})
}

func (m *MemoryLedger) SubReserve(_ context.Context, id string, n int) (int64, error) {
	return m.update(id, func(r *ledger.Row) bool {
		if r.Reserve == 0 {
			return false
		}
		r.Reserve = max(r.Reserve-n, 0)
		return true
	})
}

// update applies guard+change to one row and drops the row once it is empty.
func (m *MemoryLedger) update(id string, change func(*ledger.Row) bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok {
		return 0, nil
	}
	next := *row
	if !change(&next) {
		return 0, nil
	}
	if next.Empty() {
		delete(m.rows, id)
		return 1, nil
	}
	m.rows[id] = &next
	return 1, nil
}

func (m *MemoryLedger) FindOneBySubReserve(_ context.Context, key ledger.Key) (*ledger.Row, error) {
	return found(ledger.SelectBySubReserve(m.byKey(key)))
}

func (m *MemoryLedger) FindOneByReserveMax(_ context.Context, key ledger.Key) (*ledger.Row, error) {
	return found(ledger.SelectByReserveMax(m.byKey(key)))
}

func (m *MemoryLedger) FindOneByTotalMax(_ context.Context, key ledger.Key) (*ledger.Row, error) {
	return found(ledger.SelectByTotalMax(m.byKey(key)))
}

func (m *MemoryLedger) FindOneByLocation(_ context.Context, key ledger.Key, storage *string) (*ledger.Row, error) {
	var rows []ledger.Row
	for _, r := range m.byKey(key) {
		if r.MatchesLocation(key, storage) {
			rows = append(rows, r)
		}
	}
	return found(ledger.SelectByTotalMax(rows))
}

func (m *MemoryLedger) ListByKey(_ context.Context, key ledger.Key) ([]ledger.Row, error) {
	return m.byKey(key), nil
}

func (m *MemoryLedger) SumAvailable(_ context.Context, sku ledger.SKU) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := 0
	for _, r := range m.rows {
		if r.SKU().Matches(sku) {
			sum += r.Total - r.Reserve
		}
	}
	return sum, nil
}

// Len returns the number of stored rows.
func (m *MemoryLedger) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

func (m *MemoryLedger) byKey(key ledger.Key) []ledger.Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rows []ledger.Row
	for _, r := range m.rows {
		if r.MatchesKey(key) {
			rows = append(rows, *r)
		}
	}
	return rows
}

func found(row *ledger.Row, ok bool) (*ledger.Row, error) {
	if !ok {
		return nil, ledger.ErrRowNotFound
	}
	return row, nil
}
