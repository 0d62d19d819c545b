// Package kafka wraps segmentio/kafka-go for serve mode: extraction requests
// are read from one topic and summaries are published as JSON to another.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/resilience"
	"github.com/segmentio/kafka-go"
)

// MessageHandler processes one message. A fatal error (see errors.IsFatal)
// marks the message as poison: it is logged and committed so it is never
// redelivered. Any other error is retried in place; if the message still
// fails, the consumer stops without committing it.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DefaultHandlerRetry bounds how long one message is retried before the
// consumer gives up on it.
var DefaultHandlerRetry = resilience.RetryConfig{
	MaxAttempts:  5,
	InitialDelay: 200 * time.Millisecond,
	MaxDelay:     5 * time.Second,
}

// Consumer handles the messages of one topic in offset order.
type Consumer struct {
	reader  Reader
	logger  *slog.Logger
	handler MessageHandler
	retry   resilience.RetryConfig
}

// NewConsumer returns a group consumer for topic starting at the earliest
// uncommitted offset.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	return newConsumer(r, topic, handler, DefaultHandlerRetry)
}

func newConsumer(r Reader, topic string, handler MessageHandler, retry resilience.RetryConfig) *Consumer {
	return &Consumer{
		reader:  r,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
		handler: handler,
		retry:   retry,
	}
}

// Start fetches and handles messages until ctx is cancelled. A message that
// keeps failing with a non-fatal error stops the consumer with that error and
// stays uncommitted, so the group redelivers it once a consumer rejoins.
// Committing a later offset would skip it.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return c.reader.Close()
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}

		err = resilience.Retry(ctx, "handle message", c.retry, func(ctx context.Context) error {
			return c.handler(ctx, msg.Key, msg.Value)
		})
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping, message left uncommitted",
					"partition", msg.Partition,
					"offset", msg.Offset,
				)
				return c.reader.Close()
			}
			if !apperrors.IsFatal(err) {
				c.logger.Error("failed to process message, stopping before it is skipped",
					"partition", msg.Partition,
					"offset", msg.Offset,
					"error", err,
				)
				c.reader.Close()
				return fmt.Errorf("partition %d offset %d: %w", msg.Partition, msg.Offset, err)
			}
			c.logger.Warn("dropping poison message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", string(msg.Key),
				"error", err,
			)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a message value into T. Undecodable values are
// reported as ErrInvalidInput so the consumer drops them.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, apperrors.Newf(apperrors.ErrInvalidInput, "decoding kafka message: %v", err)
	}
	return result, nil
}

// EncodeJSON is the inverse of DecodeJSON.
func EncodeJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding kafka message: %w", err)
	}
	return data, nil
}
