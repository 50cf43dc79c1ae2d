package checkout

import (
	"context"
	"time"

	"checkout-svc/models"
)

// CatalogReader looks products up by id. It returns ErrProductNotFound for
// unknown ids.
type CatalogReader interface {
	GetProduct(ctx context.Context, id string) (models.Product, error)
}

// DiscountStore finds promotional codes. FindActiveDiscountByCode returns
// ErrDiscountNotFound or ErrDiscountExpired when the code cannot be used at
// now. An empty eligible id list means the discount applies to every product.
type DiscountStore interface {
	FindActiveDiscountByCode(ctx context.Context, code string, now time.Time) (models.Discount, error)
	ListEligibleProductIDs(ctx context.Context, discountID string) ([]string, error)
}

// Tx is the set of writes the engine performs inside one transaction.
type Tx interface {
	InsertOrder(ctx context.Context, order models.Order) error
	InsertItem(ctx context.Context, item models.OrderItem) error
	// DecrementStock subtracts qty only if at least qty units remain and
	// reports whether the guard held.
	DecrementStock(ctx context.Context, productID string, qty int) (bool, error)
	InsertPayment(ctx context.Context, payment models.Payment) error

	// LockOrderStatus returns the current status and holds the row until the
	// transaction ends. Unknown ids yield ErrOrderNotFound.
	LockOrderStatus(ctx context.Context, orderID string) (models.OrderStatus, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, at time.Time) error
	AppendHistory(ctx context.Context, entry models.StatusHistory) error
}

// Store runs fn in a transaction: committed if fn returns nil, rolled back
// otherwise.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Notifier sends order confirmations. Failures never affect the order.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, email, name string, confirmation models.OrderConfirmation) error
}
