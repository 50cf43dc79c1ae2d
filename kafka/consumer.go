package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-svc/config"
	"checkout-svc/middleware"
	"checkout-svc/models"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// EventHandler processes one decoded order event.
type EventHandler func(ctx context.Context, event models.OrderEvent) error

// MessageReader is the part of *kafkago.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

func NewReader(cfg config.KafkaConfig) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
}

type Consumer struct {
	reader     MessageReader
	handler    EventHandler
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

func NewConsumer(reader MessageReader, handler EventHandler, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader:     reader,
		handler:    handler,
		maxRetries: 3,
		backoff:    time.Second,
		logger:     logger,
	}
}

// Run consumes until ctx is canceled. A message is committed once it has
// been handled or has exhausted its retries.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Kafka consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		if err := c.handleMessageWithRetry(ctx, msg); err != nil {
			c.logger.Error("Failed to handle message after retries",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to commit message: %w", err)
		}
	}
}

var errMalformed = errors.New("malformed event")

func (c *Consumer) handleMessageWithRetry(ctx context.Context, msg kafkago.Message) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		err := c.handleMessage(ctx, msg)
		if err == nil || errors.Is(err, errMalformed) {
			return err
		}
		lastErr = err
		if attempt < c.maxRetries {
			backoff := time.Duration(attempt) * c.backoff
			c.logger.Warn("Retrying message handling",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Consumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	ctx = otel.GetTextMapPropagator().Extract(ctx, headerCarrier(msg.Headers))
	ctx, span := otel.Tracer("checkout-notifier").Start(ctx, "ProcessOrderEvent")
	defer span.End()

	var event models.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", errMalformed, err)
	}
	span.SetAttributes(
		attribute.String("event.type", event.EventType),
		attribute.String("order.number", event.Confirmation.OrderNumber),
	)

	if event.EventType != models.EventOrderCreated {
		c.logger.Debug("Unknown event type", zap.String("event_type", event.EventType))
		return nil
	}

	if err := c.handler(ctx, event); err != nil {
		span.RecordError(err)
		return err
	}

	c.logger.Info("Order event handled",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("order_number", event.Confirmation.OrderNumber),
	)
	return nil
}

// headerCarrier adapts kafka-go headers to a TextMapCarrier for extraction.
type headerCarrier []kafkago.Header

func (c headerCarrier) Get(key string) string {
	for _, h := range c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {}

func (c headerCarrier) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = h.Key
	}
	return keys
}
