// Package consumer serves extraction requests streamed through Kafka and
// publishes one summary per request.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor"
	apperrors "github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/pkg/resilience"
)

var publishRetry = resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second}

// Request asks for the patterns of one sentence or lattice.
type Request struct {
	ID      string `json:"id"`
	Input   string `json:"input"`
	Lattice bool   `json:"lattice"`
}

// Response is published for every request, successful or not.
type Response struct {
	extractor.Summary
	Error string `json:"error,omitempty"`
}

// Extractor is implemented by *extractor.Engine.
type Extractor interface {
	ExtractSentence(ctx context.Context, in extractor.Input) (extractor.Result, error)
}

// Publisher is implemented by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// Tracker accumulates per-request outcomes. *stats.Aggregator implements it.
type Tracker interface {
	Record(s extractor.Summary)
	RecordFailure()
}

// ExtractConsumer runs a Kafka consumer built with HandleMessage.
type ExtractConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New wraps kafkaConsumer.
func New(kafkaConsumer *kafka.Consumer) *ExtractConsumer {
	return &ExtractConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "extract-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (ec *ExtractConsumer) Start(ctx context.Context) error {
	ec.logger.Info("extract consumer starting")
	return ec.consumer.Start(ctx)
}

// HandleMessage returns a handler that extracts each request and publishes
// its Response keyed by request ID. tracker may be nil.
//
// Undecodable requests and malformed lattices are fatal: the error response
// is published and the message is dropped. Publishing is retried with backoff
// and a final failure is returned as a retryable error.
func HandleMessage(ext Extractor, pub Publisher, tracker Tracker) kafka.MessageHandler {
	logger := slog.Default().With("component", "extract-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		req, err := kafka.DecodeJSON[Request](value)
		if err != nil {
			if tracker != nil {
				tracker.RecordFailure()
			}
			return err
		}
		if req.ID == "" {
			req.ID = string(key)
		}

		res, extractErr := ext.ExtractSentence(ctx, extractor.Input{ID: req.ID, Text: req.Input, Lattice: req.Lattice})
		resp := Response{Summary: res.Summary}
		resp.ID = req.ID
		if extractErr != nil {
			if !apperrors.IsFatal(extractErr) {
				return fmt.Errorf("extracting request %s: %w", req.ID, extractErr)
			}
			resp.Error = extractErr.Error()
			if tracker != nil {
				tracker.RecordFailure()
			}
		} else if tracker != nil {
			tracker.Record(res.Summary)
		}

		event := kafka.Event{Key: req.ID, Value: resp}
		err = resilience.Retry(ctx, "publish response", publishRetry, func(ctx context.Context) error {
			return pub.Publish(ctx, event)
		})
		if err != nil {
			return fmt.Errorf("publishing response %s: %w", req.ID, err)
		}

		if extractErr != nil {
			return extractErr
		}
		logger.Debug("request extracted",
			"id", req.ID,
			"patterns", res.Patterns,
			"duration", res.Duration,
		)
		return nil
	}
}
