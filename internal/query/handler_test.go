package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/material-stock/internal/domain/ledger"
	"github.com/example/material-stock/internal/domain/stock"
	cachemocks "github.com/example/material-stock/internal/infrastructure/cache/mocks"
	"github.com/example/material-stock/internal/infrastructure/store"
	"github.com/example/material-stock/internal/message/mocks"
)

const region = "catalog"

type testEnv struct {
	handler *Handler
	stocks  *stock.Service
	ledger  *store.MemoryLedger
	cache   *cachemocks.MockCache
}

func newTestQueryHandler() *testEnv {
	events := store.NewMemoryEventStore()
	ldg := store.NewMemoryLedger()
	cache := cachemocks.NewMockCache()
	svc := stock.NewService(store.NewMemoryUnitOfWork(events, ldg), mocks.NewMockDispatcher(), nil, nil)
	return &testEnv{
		handler: NewHandler(events, ldg, cache, region, nil),
		stocks:  svc,
		ledger:  ldg,
		cache:   cache,
	}
}

func (e *testEnv) receive(t *testing.T, profile, material string, total int) *stock.Event {
	t.Helper()
	ev, err := e.stocks.Incoming(context.Background(), stock.IncomingCommand{
		Actor: stock.Actor{Profile: profile},
		Lines: []stock.MaterialLine{{Material: material, Total: total}},
	})
	require.NoError(t, err)
	return ev
}

type failingCache struct{}

func (failingCache) Get(context.Context, string, string, any) (bool, error) {
	return false, errors.New("redis down")
}

func (failingCache) Set(context.Context, string, string, any) error {
	return errors.New("redis down")
}

// ============================================
// Stock Query Tests
// ============================================

func TestHandler_GetStockAndHistory(t *testing.T) {
	env := newTestQueryHandler()
	ctx := context.Background()
	first := env.receive(t, "P", "M", 4)

	_, err := env.stocks.Cancel(ctx, stock.CancelCommand{Actor: stock.Actor{Profile: "P"}, StockID: first.StockID})
	require.NoError(t, err)

	current, err := env.handler.GetStock(ctx, first.StockID)
	require.NoError(t, err)
	assert.Equal(t, stock.StatusCancel, current.Status)

	history, err := env.handler.History(ctx, first.StockID, "")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, stock.StatusIncoming, history[0].Status)

	cancelled, err := env.handler.History(ctx, first.StockID, "cancel")
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, stock.StatusCancel, cancelled[0].Status)

	none, err := env.handler.History(ctx, first.StockID, "package")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = env.handler.History(ctx, first.StockID, "shipped")
	assert.ErrorIs(t, err, stock.ErrUnknownStatus)
}

func TestHandler_GetStock_NotFound(t *testing.T) {
	env := newTestQueryHandler()

	_, err := env.handler.GetStock(context.Background(), "missing")

	assert.ErrorIs(t, err, stock.ErrStockNotFound)
}

func TestHandler_ListTotals(t *testing.T) {
	env := newTestQueryHandler()
	env.receive(t, "P", "M", 4)

	rows, err := env.handler.ListTotals(context.Background(), ledger.NewKey("P", ledger.SKU{Material: "M"}))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].Total)

	rows, err = env.handler.ListTotals(context.Background(), ledger.NewKey("other", ledger.SKU{Material: "M"}))
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)

	_, err = env.handler.ListTotals(context.Background(), ledger.NewKey("P", ledger.SKU{}))
	assert.True(t, ledger.IsValidation(err))
}

// ============================================
// Availability Tests
// ============================================

func TestHandler_Availability_ReadThrough(t *testing.T) {
	env := newTestQueryHandler()
	ctx := context.Background()
	sku := ledger.SKU{Material: "M"}
	env.receive(t, "P1", "M", 4)
	env.receive(t, "P2", "M", 6)

	got, err := env.handler.Availability(ctx, sku)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Available)

	// Served from cache until the region is cleared.
	env.receive(t, "P1", "M", 5)
	got, err = env.handler.Availability(ctx, sku)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Available)

	require.NoError(t, env.cache.Clear(ctx, region))
	got, err = env.handler.Availability(ctx, sku)
	require.NoError(t, err)
	assert.Equal(t, 15, got.Available)
}

func TestHandler_Availability_CacheFailureFallsBack(t *testing.T) {
	env := newTestQueryHandler()
	env.handler = NewHandler(nil, env.ledger, failingCache{}, region, nil)
	env.receive(t, "P", "M", 3)

	got, err := env.handler.Availability(context.Background(), ledger.SKU{Material: "M"})

	require.NoError(t, err)
	assert.Equal(t, 3, got.Available)
}

func TestHandler_Availability_RequiresMaterial(t *testing.T) {
	env := newTestQueryHandler()

	_, err := env.handler.Availability(context.Background(), ledger.SKU{})

	assert.True(t, ledger.IsValidation(err))
}
