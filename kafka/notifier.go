package kafka

import (
	"context"
	"fmt"
	"time"

	"checkout-svc/circuitbreaker"
	"checkout-svc/models"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// OrderEventNotifier hands order confirmations to the notifier process by
// publishing an order_created event.
type OrderEventNotifier struct {
	producer       sarama.SyncProducer
	topic          string
	circuitBreaker *circuitbreaker.CircuitBreaker
	now            func() time.Time
	logger         *zap.Logger
}

func NewOrderEventNotifier(producer sarama.SyncProducer, topic string, logger *zap.Logger) *OrderEventNotifier {
	return &OrderEventNotifier{
		producer:       producer,
		topic:          topic,
		circuitBreaker: circuitbreaker.NewCircuitBreaker(5, 30*time.Second),
		now:            time.Now,
		logger:         logger,
	}
}

func (n *OrderEventNotifier) SendOrderConfirmation(ctx context.Context, email, name string, confirmation models.OrderConfirmation) error {
	event := models.OrderEvent{
		EventType:     models.EventOrderCreated,
		CustomerName:  name,
		CustomerEmail: email,
		Confirmation:  confirmation,
		OccurredAt:    n.now().UTC(),
	}
	return n.circuitBreaker.Execute(ctx, func() error {
		// SendMessage ignores ctx and may block through sarama's own retries.
		done := make(chan error, 1)
		go func() { done <- PublishEvent(ctx, n.producer, n.topic, confirmation.OrderNumber, event, n.logger) }()

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return fmt.Errorf("publish order event %s: %w", confirmation.OrderNumber, ctx.Err())
		}
	})
}
