package kafka

import (
	"context"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DefaultMaxAttempts is how many times a message is handed to the handler before it is
// logged and committed without being processed.
const DefaultMaxAttempts = 10

// MessageHandler processes one message. Returning an error leaves the offset uncommitted so
// the message is redelivered.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads one or more topics as part of a consumer group.
type Consumer struct {
	reader      messageReader
	logger      *zap.Logger
	maxAttempts int
	retryDelay  time.Duration
}

// NewConsumer creates a group consumer for the given topics.
func NewConsumer(brokers []string, groupID string, topics []string, logger *zap.Logger) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        brokers,
		GroupID:        groupID,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
	return &Consumer{
		reader:      reader,
		logger:      logger,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  time.Second,
	}
}

// Consume fetches messages until ctx is cancelled. A handler error pauses briefly and retries
// the same message; after maxAttempts failures the message is dropped so the partition
// keeps moving.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			c.logger.Error("failed to fetch kafka message", zap.Error(err))
			if err := c.wait(ctx); err != nil {
				return err
			}
			continue
		}

		for attempt := 1; ; attempt++ {
			err := handler(ctx, msg)
			if err == nil {
				break
			}
			if attempt >= c.maxAttempts {
				c.logger.Error("handler failed, dropping message",
					zap.String("topic", msg.Topic),
					zap.Int64("offset", msg.Offset),
					zap.String("key", string(msg.Key)),
					zap.Int("attempts", attempt),
					zap.Error(err),
				)
				break
			}
			c.logger.Warn("handler failed, retrying message",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if err := c.wait(ctx); err != nil {
				return err
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit kafka offset",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

func (c *Consumer) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.retryDelay):
		return nil
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
