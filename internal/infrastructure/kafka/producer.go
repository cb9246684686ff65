package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/example/material-stock/internal/message"
)

// Topics maps message types onto Kafka topics.
type Topics struct {
	StockEvents string
	Reserves    string
	Recalculate string
}

func (t Topics) For(msgType string) (string, error) {
	var topic string
	switch msgType {
	case message.TypeStockEvent:
		topic = t.StockEvents
	case message.TypeAddReserve, message.TypeSubReserve:
		topic = t.Reserves
	case message.TypeRecalculate:
		topic = t.Recalculate
	}
	if topic == "" {
		return "", fmt.Errorf("no topic configured for message type %q", msgType)
	}
	return topic, nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes domain messages as JSON envelopes. It satisfies
// message.Dispatcher.
type Producer struct {
	writer messageWriter
	topics Topics
	logger *zap.Logger
}

func NewProducer(brokers []string, topics Topics, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return newProducer(writer, topics, logger)
}

func newProducer(w messageWriter, topics Topics, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Producer{writer: w, topics: topics, logger: logger.Named("producer")}
}

func (p *Producer) Dispatch(ctx context.Context, msgs ...message.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	out := make([]kafka.Message, 0, len(msgs))
	for _, msg := range msgs {
		topic, err := p.topics.For(msg.Type())
		if err != nil {
			return err
		}
		data, err := message.Encode(msg)
		if err != nil {
			return err
		}
		out = append(out, kafka.Message{
			Topic: topic,
			Key:   []byte(msg.Key()),
			Value: data,
			Time:  time.Now(),
		})
	}

	if err := p.writer.WriteMessages(ctx, out...); err != nil {
		return fmt.Errorf("failed to write %d messages: %w", len(out), err)
	}
	p.logger.Debug("messages published", zap.Int("count", len(out)))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

var _ message.Dispatcher = (*Producer)(nil)
