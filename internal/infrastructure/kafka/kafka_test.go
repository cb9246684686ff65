package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/material-stock/internal/domain/ledger"
	"github.com/example/material-stock/internal/message"
)

type fakeWriter struct {
	written []kafka.Message
	err     error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func testTopics() Topics {
	return Topics{StockEvents: "stock-events", Reserves: "stock-reserves", Recalculate: "stock-recalculate"}
}

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

// ============================================
// Producer Tests
// ============================================

func TestProducer_Dispatch_RoutesByType(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, testTopics(), nil)
	sku := ledger.SKU{Material: "M"}

	err := p.Dispatch(context.Background(),
		message.StockEvent{StockID: "s1", EventID: "e1"},
		message.NewAddReserve("P", sku),
		message.NewSubReserve("P", sku),
		message.Recalculate{SKU: sku},
	)

	require.NoError(t, err)
	require.Len(t, w.written, 4)
	assert.Equal(t, "stock-events", w.written[0].Topic)
	assert.Equal(t, "s1", string(w.written[0].Key))
	assert.Equal(t, "stock-reserves", w.written[1].Topic)
	assert.Equal(t, "P:M", string(w.written[1].Key))
	assert.Equal(t, "stock-reserves", w.written[2].Topic)
	assert.Equal(t, "stock-recalculate", w.written[3].Topic)

	env, err := message.Decode(w.written[3].Value)
	require.NoError(t, err)
	assert.Equal(t, message.TypeRecalculate, env.Type)
}

func TestProducer_Dispatch_MissingTopic(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, Topics{StockEvents: "stock-events"}, nil)

	err := p.Dispatch(context.Background(), message.Recalculate{SKU: ledger.SKU{Material: "M"}})

	require.Error(t, err)
	assert.Empty(t, w.written)
}

func TestProducer_Dispatch_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	p := newProducer(w, testTopics(), nil)

	err := p.Dispatch(context.Background(), message.StockEvent{StockID: "s1", EventID: "e1"})

	assert.ErrorContains(t, err, "broker unavailable")
}

func TestProducer_Dispatch_Empty(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, testTopics(), nil)

	assert.NoError(t, p.Dispatch(context.Background()))
	assert.Empty(t, w.written)
}

// ============================================
// Consumer Tests
// ============================================

func newTestConsumer(attempts int, msgs ...kafka.Message) (*Consumer, *fakeReader, *observer.ObservedLogs, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{queue: msgs, cancel: cancel}
	core, logs := observer.New(zap.DebugLevel)
	return newConsumer(reader, fastRetry(attempts), zap.New(core)), reader, logs, ctx
}

func TestConsumer_CommitsHandledMessages(t *testing.T) {
	c, reader, _, ctx := newTestConsumer(3,
		kafka.Message{Key: []byte("a"), Offset: 1},
		kafka.Message{Key: []byte("b"), Offset: 2},
	)

	var seen []string
	err := c.Consume(ctx, func(_ context.Context, key, _ []byte) error {
		seen = append(seen, string(key))
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Len(t, reader.committed, 2)
}

func TestConsumer_FatalErrorIsCommittedWithoutRetry(t *testing.T) {
	c, reader, logs, ctx := newTestConsumer(3, kafka.Message{Key: []byte("a"), Offset: 7})

	calls := 0
	err := c.Consume(ctx, func(context.Context, []byte, []byte) error {
		calls++
		return message.Fatal(errors.New("no stock"))
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Len(t, reader.committed, 1)
	assert.Equal(t, 1, logs.FilterMessage("dropping message after fatal handler error").Len())
}

func TestConsumer_TransientErrorRetriesThenSucceeds(t *testing.T) {
	c, reader, logs, ctx := newTestConsumer(3, kafka.Message{Key: []byte("a")})

	calls := 0
	err := c.Consume(ctx, func(context.Context, []byte, []byte) error {
		calls++
		if calls < 3 {
			return errors.New("db timeout")
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, calls)
	assert.Len(t, reader.committed, 1)
	assert.Equal(t, 2, logs.FilterMessage("handler failed, retrying").Len())
}

func TestConsumer_RetriesExhaustedStopsWithoutCommit(t *testing.T) {
	c, reader, _, ctx := newTestConsumer(2,
		kafka.Message{Key: []byte("a")},
		kafka.Message{Key: []byte("b")},
	)

	calls := 0
	err := c.Consume(ctx, func(context.Context, []byte, []byte) error {
		calls++
		return errors.New("db timeout")
	})

	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 2, calls)
	assert.Empty(t, reader.committed)
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 10, Backoff: 100 * time.Millisecond, MaxBackoff: time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{9, time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.delay(tt.attempt), "attempt %d", tt.attempt)
	}
}
