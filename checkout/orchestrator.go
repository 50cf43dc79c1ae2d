package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkout-svc/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultTxTimeout     = 5 * time.Second
	DefaultNotifyTimeout = 5 * time.Second
	DefaultCurrency      = "USD"
)

// PlaceOrderInput is a verified and priced cart ready to be persisted.
type PlaceOrderInput struct {
	UserID   *string
	Lines    []VerifiedLine
	Quote    Quote
	Shipping models.ShippingDetails
}

type PlacedOrder struct {
	Order models.Order
	Items []models.OrderItem
}

// Orchestrator is the only writer of orders, order items and stock
// decrements.
type Orchestrator struct {
	store         Store
	notifier      Notifier
	logger        *zap.Logger
	now           func() time.Time
	newID         func() string
	txTimeout     time.Duration
	notifyTimeout time.Duration
	currency      string
}

type OrchestratorOption func(*Orchestrator)

func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

func WithIDGenerator(newID func() string) OrchestratorOption {
	return func(o *Orchestrator) { o.newID = newID }
}

func WithTxTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.txTimeout = d }
}

func WithNotifyTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.notifyTimeout = d }
}

func WithCurrency(currency string) OrchestratorOption {
	return func(o *Orchestrator) { o.currency = currency }
}

func NewOrchestrator(store Store, notifier Notifier, logger *zap.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:         store,
		notifier:      notifier,
		logger:        logger,
		now:           time.Now,
		newID:         uuid.NewString,
		txTimeout:     DefaultTxTimeout,
		notifyTimeout: DefaultNotifyTimeout,
		currency:      DefaultCurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PlaceOrder persists the order header, its items, the stock decrements and
// the payment record in one transaction, then sends the confirmation.
func (o *Orchestrator) PlaceOrder(ctx context.Context, in PlaceOrderInput) (PlacedOrder, error) {
	if len(in.Lines) == 0 {
		return PlacedOrder{}, fmt.Errorf("%w: no items", ErrInvalidCart)
	}

	now := o.now().UTC()
	order := models.Order{
		ID:          o.newID(),
		UserID:      in.UserID,
		OrderNumber: o.orderNumber(),
		Status:      models.OrderStatusPending,
		TotalAmount: in.Quote.Total,
		Shipping:    in.Shipping,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	items := make([]models.OrderItem, 0, len(in.Lines))
	for _, line := range in.Lines {
		items = append(items, models.OrderItem{
			ID:              o.newID(),
			OrderID:         order.ID,
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.UnitPrice,
		})
	}

	payment := models.Payment{
		ID:         o.newID(),
		OrderID:    order.ID,
		MethodType: models.PaymentMethodMock,
		Amount:     order.TotalAmount,
		Status:     models.PaymentStatusSucceeded,
		Currency:   o.currency,
		CreatedAt:  now,
	}

	if err := o.commit(ctx, order, items, payment); err != nil {
		return PlacedOrder{}, err
	}

	o.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int("items", len(items)),
		zap.String("total", order.TotalAmount.StringFixed(MoneyPlaces)),
	)

	o.notify(ctx, order, items)
	return PlacedOrder{Order: order, Items: items}, nil
}

func (o *Orchestrator) commit(ctx context.Context, order models.Order, items []models.OrderItem, payment models.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, o.txTimeout)
	defer cancel()

	err := o.store.InTx(ctx, func(tx Tx) error {
		if err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for _, item := range items {
			if err := tx.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("insert item for product %s: %w", item.ProductID, err)
			}
			// Re-checked here even though verification passed: another
			// checkout may have taken the stock since.
			ok, err := tx.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return fmt.Errorf("decrement stock for product %s: %w", item.ProductID, err)
			}
			if !ok {
				return fmt.Errorf("product %s: %w", item.ProductID, ErrInsufficientStock)
			}
		}
		if err := tx.InsertPayment(ctx, payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		return nil
	})
	if err == nil {
		return nil
	}

	err = classifyTxError(ctx, err)
	if errors.Is(err, ErrPersistence) {
		o.logger.Error("Order transaction failed",
			zap.String("order_id", order.ID),
			zap.String("order_number", order.OrderNumber),
			zap.Error(err),
		)
	}
	return err
}

func (o *Orchestrator) notify(ctx context.Context, order models.Order, items []models.OrderItem) {
	if o.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.notifyTimeout)
	defer cancel()

	confirmation := models.OrderConfirmation{
		OrderNumber: order.OrderNumber,
		Items:       make([]models.ConfirmationItem, 0, len(items)),
		Total:       order.TotalAmount,
	}
	for _, item := range items {
		confirmation.Items = append(confirmation.Items, models.ConfirmationItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.PriceAtPurchase,
		})
	}

	if err := o.notifier.SendOrderConfirmation(ctx, order.Shipping.Email, order.Shipping.Name, confirmation); err != nil {
		o.logger.Warn("Order confirmation not sent",
			zap.String("order_id", order.ID),
			zap.String("order_number", order.OrderNumber),
			zap.Error(err),
		)
	}
}

// orderNumber is the first ten hex digits of a fresh UUID, upper-cased.
func (o *Orchestrator) orderNumber() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:10]
}

// classifyTxError keeps domain and retryable errors as they are and wraps
// everything else as a persistence failure.
func classifyTxError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrTxTimeout),
		errors.Is(err, ErrTxConflict):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTxTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
}
