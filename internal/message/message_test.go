package message

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/material-stock/internal/domain/ledger"
)

func strPtr(s string) *string { return &s }

// ============================================
// Envelope Tests
// ============================================

func TestEncodeDecode_AddReserve(t *testing.T) {
	msg := NewAddReserve("warehouse-1", ledger.SKU{Material: "m-1", Offer: strPtr("o-1")})

	data, err := Encode(msg)
	require.NoError(t, err)

	env, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, TypeAddReserve, env.Type)
	assert.NotEmpty(t, env.ID)
	assert.False(t, env.OccurredAt.IsZero())

	var got AddReserve
	require.NoError(t, env.Unmarshal(&got))
	assert.Equal(t, "warehouse-1", got.Profile)
	assert.Equal(t, "m-1", got.Material)
	require.NotNil(t, got.Offer)
	assert.Equal(t, "o-1", *got.Offer)
	assert.Nil(t, got.Variation)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "{"},
		{name: "missing type", data: `{"id":"1","payload":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			assert.ErrorIs(t, err, ErrMalformedEnvelope)
		})
	}
}

func TestEnvelope_UnmarshalBadPayloadIsFatal(t *testing.T) {
	env := &Envelope{Type: TypeRecalculate, Payload: []byte(`"nope"`)}

	var got Recalculate
	err := env.Unmarshal(&got)
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestMessage_Keys(t *testing.T) {
	sku := ledger.SKU{Material: "m-1"}

	assert.Equal(t, "stock-1", StockEvent{StockID: "stock-1"}.Key())
	assert.Equal(t, "p:m-1", NewAddReserve("p", sku).Key())
	assert.Equal(t, "p:m-1", NewSubReserve("p", sku).Key())
	assert.Equal(t, "m-1", Recalculate{SKU: sku}.Key())
	assert.Equal(t, ledger.NewKey("p", sku), NewSubReserve("p", sku).LedgerKey())
}

// ============================================
// Fatal Tests
// ============================================

func TestFatal(t *testing.T) {
	base := errors.New("boom")

	assert.Nil(t, Fatal(nil))
	assert.False(t, IsFatal(base))
	assert.True(t, IsFatal(Fatal(base)))
	assert.ErrorIs(t, Fatal(base), base)
	assert.Equal(t, "boom", Fatal(base).Error())
}

// ============================================
// Router Tests
// ============================================

func TestRouter_HandleMessage(t *testing.T) {
	router := NewRouter(nil)

	var got []string
	router.Handle(TypeRecalculate, func(_ context.Context, env *Envelope) error {
		var msg Recalculate
		if err := env.Unmarshal(&msg); err != nil {
			return err
		}
		got = append(got, msg.Material)
		return nil
	})

	data, err := Encode(Recalculate{SKU: ledger.SKU{Material: "m-1"}})
	require.NoError(t, err)
	require.NoError(t, router.HandleMessage(context.Background(), nil, data))
	assert.Equal(t, []string{"m-1"}, got)

	other, err := Encode(NewAddReserve("p", ledger.SKU{Material: "m-2"}))
	require.NoError(t, err)
	assert.NoError(t, router.HandleMessage(context.Background(), nil, other))
	assert.Len(t, got, 1)
}

func TestRouter_HandleMessage_UndecodableIsFatal(t *testing.T) {
	router := NewRouter(nil)

	err := router.HandleMessage(context.Background(), nil, []byte("garbage"))
	assert.True(t, IsFatal(err))
}
