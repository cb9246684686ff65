package reservation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/material-stock/internal/domain/stock"
	"github.com/example/material-stock/internal/infrastructure/store"
	"github.com/example/material-stock/internal/message"
	"github.com/example/material-stock/internal/message/mocks"
)

func strPtr(s string) *string { return &s }

func newTestSubscriber(t *testing.T, events ...*stock.Event) (*Subscriber, *mocks.MockDispatcher) {
	t.Helper()
	es := store.NewMemoryEventStore()
	for _, e := range events {
		require.NoError(t, es.Append(context.Background(), e))
	}
	dispatcher := mocks.NewMockDispatcher()
	return NewSubscriber(es, dispatcher, nil), dispatcher
}

func TestSubscriber_PackageReservesEveryUnit(t *testing.T) {
	pkg := &stock.Event{ID: "e1", StockID: "s1", Status: stock.StatusPackage, Profile: "P", Lines: []stock.MaterialLine{
		{Material: "M", Total: 3},
		{Material: "N", Offer: strPtr("O"), Total: 2},
	}}
	sub, dispatcher := newTestSubscriber(t, pkg)

	err := sub.OnStockEvent(context.Background(), message.StockEvent{StockID: "s1", EventID: "e1"})

	require.NoError(t, err)
	adds := dispatcher.OfType(message.TypeAddReserve)
	require.Len(t, adds, 5)
	first := adds[0].(message.AddReserve)
	assert.Equal(t, "P", first.Profile)
	assert.Equal(t, "M", first.Material)
	last := adds[4].(message.AddReserve)
	assert.Equal(t, "N", last.Material)
	assert.Equal(t, "O", *last.Offer)
}

func TestSubscriber_NonReservingStatusIsIgnored(t *testing.T) {
	incoming := &stock.Event{ID: "e1", StockID: "s1", Status: stock.StatusIncoming, Profile: "P",
		Lines: []stock.MaterialLine{{Material: "M", Total: 3}}}
	sub, dispatcher := newTestSubscriber(t, incoming)

	require.NoError(t, sub.OnStockEvent(context.Background(), message.StockEvent{StockID: "s1", EventID: "e1"}))

	assert.Empty(t, dispatcher.Messages)
}

func TestSubscriber_CancelOfPackageDoesNotReserveAgain(t *testing.T) {
	lines := []stock.MaterialLine{{Material: "M", Total: 3}}
	pkg := &stock.Event{ID: "e1", StockID: "s1", Status: stock.StatusPackage, Profile: "P", Lines: lines}
	cancelled := &stock.Event{ID: "e2", StockID: "s1", PreviousID: strPtr("e1"), Status: stock.StatusCancel, Profile: "P", Lines: lines}
	sub, dispatcher := newTestSubscriber(t, pkg, cancelled)

	require.NoError(t, sub.OnStockEvent(context.Background(), message.StockEvent{StockID: "s1", EventID: "e2", PreviousEventID: strPtr("e1")}))

	assert.Empty(t, dispatcher.Messages)
}

func TestSubscriber_UnknownEventIsFatal(t *testing.T) {
	sub, _ := newTestSubscriber(t)

	err := sub.OnStockEvent(context.Background(), message.StockEvent{StockID: "s1", EventID: "missing"})

	assert.True(t, message.IsFatal(err))
	assert.ErrorIs(t, err, stock.ErrStockNotFound)
}
