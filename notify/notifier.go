package notify

import (
	"context"

	"checkout-svc/checkout"
	"checkout-svc/middleware"
	"checkout-svc/models"

	"go.uber.org/zap"
)

// LogNotifier only logs confirmations. Used when no mail or broker is
// configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendOrderConfirmation(ctx context.Context, email, name string, confirmation models.OrderConfirmation) error {
	n.logger.Info("Order confirmation",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("order_number", confirmation.OrderNumber),
		zap.String("email", email),
		zap.String("name", name),
		zap.Int("items", len(confirmation.Items)),
		zap.String("total", confirmation.Total.StringFixed(checkout.MoneyPlaces)),
	)
	return nil
}

type instrumented struct {
	next checkout.Notifier
}

// Instrument counts sent and failed confirmations.
func Instrument(next checkout.Notifier) checkout.Notifier {
	return instrumented{next: next}
}

func (n instrumented) SendOrderConfirmation(ctx context.Context, email, name string, confirmation models.OrderConfirmation) error {
	err := n.next.SendOrderConfirmation(ctx, email, name, confirmation)
	if err != nil {
		middleware.RecordNotification("failed")
		return err
	}
	middleware.RecordNotification("sent")
	return nil
}
