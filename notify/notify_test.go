package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"checkout-svc/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gopkg.in/gomail.v2"
)

type captureSender struct {
	mu    sync.Mutex
	sent  []*gomail.Message
	err   error
	delay time.Duration
}

func (s *captureSender) DialAndSend(msgs ...*gomail.Message) error {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msgs...)
	return s.err
}

func sampleConfirmation() models.OrderConfirmation {
	return models.OrderConfirmation{
		OrderNumber: "ABCDEF0123",
		Items: []models.ConfirmationItem{
			{ProductID: "p1", Quantity: 2, Price: decimal.RequireFromString("10")},
		},
		Total: decimal.RequireFromString("18"),
	}
}

func TestMailer_SendsHTMLConfirmation(t *testing.T) {
	sender := &captureSender{}
	m := NewMailerWithSender(sender, "orders@shop.local", zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel)))

	err := m.SendOrderConfirmation(context.Background(), "ada@example.com", "Ada", sampleConfirmation())

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"Order confirmation #ABCDEF0123"}, msg.GetHeader("Subject"))
	assert.Equal(t, []string{"orders@shop.local"}, msg.GetHeader("From"))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	body := buf.String()
	assert.True(t, strings.Contains(body, "ABCDEF0123"))
	assert.True(t, strings.Contains(body, "18.00"))
	assert.True(t, strings.Contains(body, "10.00"))
}

func TestMailer_EscapesCustomerName(t *testing.T) {
	sender := &captureSender{}
	m := NewMailerWithSender(sender, "orders@shop.local", zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel)))

	require.NoError(t, m.SendOrderConfirmation(context.Background(), "x@example.com", "<script>", sampleConfirmation()))

	var buf bytes.Buffer
	_, err := sender.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.True(t, strings.Contains(buf.String(), "Hi &lt;script&gt;"))
}

func TestMailer_ReportsSendFailure(t *testing.T) {
	sender := &captureSender{err: errors.New("connection refused")}
	m := NewMailerWithSender(sender, "orders@shop.local", zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel)))

	err := m.HandleOrderEvent(context.Background(), models.OrderEvent{
		EventType:     models.EventOrderCreated,
		CustomerEmail: "ada@example.com",
		Confirmation:  sampleConfirmation(),
	})

	assert.Error(t, err)
}

func TestMailer_HonoursContextDeadline(t *testing.T) {
	sender := &captureSender{delay: 200 * time.Millisecond}
	m := NewMailerWithSender(sender, "orders@shop.local", zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := m.SendOrderConfirmation(ctx, "ada@example.com", "Ada", sampleConfirmation())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type failingNotifier struct{ err error }

func (f failingNotifier) SendOrderConfirmation(context.Context, string, string, models.OrderConfirmation) error {
	return f.err
}

func TestInstrument_PassesErrorsThrough(t *testing.T) {
	boom := errors.New("boom")
	assert.ErrorIs(t, Instrument(failingNotifier{err: boom}).SendOrderConfirmation(context.Background(), "", "", sampleConfirmation()), boom)
	assert.NoError(t, Instrument(NewLogNotifier(zaptest.NewLogger(t))).SendOrderConfirmation(context.Background(), "a@b.c", "A", sampleConfirmation()))
}
