package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/example/material-stock/internal/message"
)

type MessageHandler func(ctx context.Context, key, value []byte) error

// RetryPolicy bounds redelivery of a message whose handler failed with a
// non-fatal error.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, Backoff: 200 * time.Millisecond, MaxBackoff: 5 * time.Second}
}

// delay doubles the backoff for each attempt already made, capped at MaxBackoff.
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.Backoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return d
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader messageReader
	retry  RetryPolicy
	logger *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, retry RetryPolicy, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	if logger == nil {
		logger = zap.NewNop()
	}
	return newConsumer(reader, retry, logger.With(zap.String("topic", topic)))
}

func newConsumer(r messageReader, retry RetryPolicy, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &Consumer{reader: r, retry: retry, logger: logger.Named("consumer")}
}

// Consume processes messages until ctx is cancelled. A message is committed
// once its handler succeeds or fails fatally. When retries of a non-fatal
// failure are exhausted the message stays uncommitted and Consume returns
// the error so the group redelivers it after restart.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to fetch message", zap.Error(err))
			continue
		}

		if err := c.handle(ctx, msg, handler); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to commit message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message, handler MessageHandler) error {
	fields := []zap.Field{
		zap.ByteString("key", msg.Key),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	}

	var err error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		err = handler(ctx, msg.Key, msg.Value)
		if err == nil {
			return nil
		}
		if message.IsFatal(err) {
			c.logger.Error("dropping message after fatal handler error", append(fields, zap.Error(err))...)
			return nil
		}
		if attempt == c.retry.MaxAttempts {
			break
		}

		wait := c.retry.delay(attempt)
		c.logger.Warn("handler failed, retrying",
			append(fields, zap.Int("attempt", attempt), zap.Duration("backoff", wait), zap.Error(err))...)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	c.logger.Error("retries exhausted", append(fields, zap.Error(err))...)
	return errors.Join(ErrRetriesExhausted, err)
}

var ErrRetriesExhausted = errors.New("message handler retries exhausted")

func (c *Consumer) Close() error {
	return c.reader.Close()
}
