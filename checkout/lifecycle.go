package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-svc/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// transitions lists the statuses each status may move to. Delivered and
// Cancelled are terminal.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped: {models.OrderStatusDelivered},
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Lifecycle moves orders between statuses and keeps the history trail.
type Lifecycle struct {
	store     Store
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
	txTimeout time.Duration
}

func NewLifecycle(store Store, logger *zap.Logger, now func() time.Time, txTimeout time.Duration) *Lifecycle {
	if now == nil {
		now = time.Now
	}
	if txTimeout <= 0 {
		txTimeout = DefaultTxTimeout
	}
	return &Lifecycle{
		store:     store,
		logger:    logger,
		now:       now,
		newID:     uuid.NewString,
		txTimeout: txTimeout,
	}
}

// Transition sets the order's status and appends the matching history row
// in one transaction.
func (l *Lifecycle) Transition(ctx context.Context, orderID string, next models.OrderStatus) (models.StatusHistory, error) {
	if !next.Valid() {
		return models.StatusHistory{}, fmt.Errorf("%w: %q", ErrUnknownStatus, next)
	}

	ctx, cancel := context.WithTimeout(ctx, l.txTimeout)
	defer cancel()

	entry := models.StatusHistory{
		ID:        l.newID(),
		OrderID:   orderID,
		Status:    next,
		CreatedAt: l.now().UTC(),
	}

	var previous models.OrderStatus
	err := l.store.InTx(ctx, func(tx Tx) error {
		current, err := tx.LockOrderStatus(ctx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(current, next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
		}
		previous = current

		if err := tx.UpdateOrderStatus(ctx, orderID, next, entry.CreatedAt); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if err := tx.AppendHistory(ctx, entry); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		return nil
	})
	if err != nil {
		err = classifyTxError(ctx, err)
		if errors.Is(err, ErrPersistence) {
			l.logger.Error("Status transition failed",
				zap.String("order_id", orderID),
				zap.String("status", string(next)),
				zap.Error(err),
			)
		}
		return models.StatusHistory{}, err
	}

	l.logger.Info("Order status changed",
		zap.String("order_id", orderID),
		zap.String("from", string(previous)),
		zap.String("to", string(next)),
	)
	return entry, nil
}
