package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"checkout-svc/models"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func confirmation() models.OrderConfirmation {
	return models.OrderConfirmation{
		OrderNumber: "ABCDEF0123",
		Items:       []models.ConfirmationItem{{ProductID: "p1", Quantity: 2, Price: decimal.RequireFromString("10.00")}},
		Total:       decimal.RequireFromString("18.00"),
	}
}

func TestOrderEventNotifier_PublishesOrderCreated(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var event models.OrderEvent
		if err := json.Unmarshal(val, &event); err != nil {
			return err
		}
		if event.EventType != models.EventOrderCreated {
			return fmt.Errorf("unexpected event type %q", event.EventType)
		}
		if event.CustomerEmail != "ada@example.com" || event.Confirmation.OrderNumber != "ABCDEF0123" {
			return fmt.Errorf("unexpected event %+v", event)
		}
		return nil
	})

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	n := NewOrderEventNotifier(producer, "order_events", logger)

	err := n.SendOrderConfirmation(context.Background(), "ada@example.com", "Ada", confirmation())
	assert.NoError(t, err)
}

func TestOrderEventNotifier_ReportsSendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	n := NewOrderEventNotifier(producer, "order_events", logger)

	err := n.SendOrderConfirmation(context.Background(), "ada@example.com", "Ada", confirmation())
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

// stalledProducer blocks in SendMessage until release is closed.
type stalledProducer struct {
	sarama.SyncProducer
	release chan struct{}
}

func (p *stalledProducer) SendMessage(*sarama.ProducerMessage) (int32, int64, error) {
	<-p.release
	return 0, 0, nil
}

func TestOrderEventNotifier_StopsWaitingAtDeadline(t *testing.T) {
	producer := &stalledProducer{release: make(chan struct{})}
	defer close(producer.release)

	// The stalled send finishes after the test returns, so it must not log to t.
	n := NewOrderEventNotifier(producer, "order_events", zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := n.SendOrderConfirmation(ctx, "ada@example.com", "Ada", confirmation())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSaramaHeaderCarrier(t *testing.T) {
	var c saramaHeaderCarrier
	c.Set("traceparent", "00-abc-def-01")

	assert.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	assert.Equal(t, []string{"traceparent"}, c.Keys())
	assert.Empty(t, c.Get("missing"))
}

// fakeReader serves msgs in order, then cancels the consumer.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafkago.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		r.cancel()
		return kafkago.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func eventMessage(t *testing.T, offset int64) kafkago.Message {
	data, err := json.Marshal(models.OrderEvent{
		EventType:     models.EventOrderCreated,
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		Confirmation:  confirmation(),
	})
	require.NoError(t, err)
	return kafkago.Message{Topic: "order_events", Offset: offset, Value: data}
}

func runConsumer(t *testing.T, msgs []kafkago.Message, handler EventHandler) *fakeReader {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &fakeReader{msgs: msgs, cancel: cancel}

	c := NewConsumer(reader, handler, zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel)))
	c.backoff = time.Millisecond

	require.NoError(t, c.Run(ctx))
	return reader
}

func TestConsumer_RetriesThenCommits(t *testing.T) {
	calls := 0
	reader := runConsumer(t, []kafkago.Message{eventMessage(t, 7)}, func(_ context.Context, event models.OrderEvent) error {
		calls++
		if calls < 3 {
			return errors.New("smtp busy")
		}
		assert.Equal(t, "ABCDEF0123", event.Confirmation.OrderNumber)
		return nil
	})

	assert.Equal(t, 3, calls)
	assert.Equal(t, []int64{7}, reader.committed)
}

func TestConsumer_SkipsMalformedMessages(t *testing.T) {
	calls := 0
	msgs := []kafkago.Message{
		{Topic: "order_events", Offset: 1, Value: []byte("{not json")},
		eventMessage(t, 2),
	}
	reader := runConsumer(t, msgs, func(context.Context, models.OrderEvent) error {
		calls++
		return nil
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestConsumer_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	reader := runConsumer(t, []kafkago.Message{eventMessage(t, 3)}, func(context.Context, models.OrderEvent) error {
		calls++
		return errors.New("smtp down")
	})

	assert.Equal(t, 3, calls)
	assert.Equal(t, []int64{3}, reader.committed)
}
