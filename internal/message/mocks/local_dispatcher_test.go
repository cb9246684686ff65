package mocks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/material-stock/internal/domain/ledger"
	"github.com/example/material-stock/internal/message"
)

// ============================================
// LocalDispatcher Tests
// ============================================

func TestLocalDispatcher_NestedDispatchIsQueued(t *testing.T) {
	router := message.NewRouter(nil)
	dispatcher := NewLocalDispatcher(router)

	var order []string
	router.Handle(message.TypeAddReserve, func(ctx context.Context, env *message.Envelope) error {
		order = append(order, "add")
		return dispatcher.Dispatch(ctx, message.Recalculate{SKU: ledger.SKU{Material: "m-1"}})
	})
	router.Handle(message.TypeRecalculate, func(_ context.Context, _ *message.Envelope) error {
		order = append(order, "recalculate")
		return nil
	})

	err := dispatcher.Dispatch(context.Background(),
		message.NewAddReserve("p", ledger.SKU{Material: "m-1"}),
		message.NewAddReserve("p", ledger.SKU{Material: "m-1"}),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"add", "add", "recalculate", "recalculate"}, order)
}

func TestLocalDispatcher_ReturnsFirstErrorAndDrains(t *testing.T) {
	router := message.NewRouter(nil)
	dispatcher := NewLocalDispatcher(router)

	first := errors.New("first")
	calls := 0
	router.Handle(message.TypeSubReserve, func(_ context.Context, _ *message.Envelope) error {
		calls++
		if calls == 1 {
			return first
		}
		return errors.New("second")
	})

	sku := ledger.SKU{Material: "m-1"}
	err := dispatcher.Dispatch(context.Background(), message.NewSubReserve("p", sku), message.NewSubReserve("p", sku))
	assert.ErrorIs(t, err, first)
	assert.Equal(t, 2, calls)
}
