package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"checkout-svc/checkout"
	"checkout-svc/models"
)

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) InsertOrder(ctx context.Context, o models.Order) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, order_number, status, total_amount,
			shipping_name, shipping_email, shipping_phone, shipping_address_line1,
			shipping_city, shipping_state_province, shipping_postal_code, shipping_country,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		o.ID, o.UserID, o.OrderNumber, o.Status, o.TotalAmount,
		o.Shipping.Name, o.Shipping.Email, nullString(o.Shipping.PhoneNumber), nullString(o.Shipping.AddressLine1),
		nullString(o.Shipping.City), nullString(o.Shipping.StateProvince), nullString(o.Shipping.PostalCode), nullString(o.Shipping.Country),
		o.CreatedAt, o.UpdatedAt,
	)
	return err
}

func (t *sqlTx) InsertItem(ctx context.Context, item models.OrderItem) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO order_items (id, order_id, product_id, quantity, price_at_purchase) VALUES ($1, $2, $3, $4, $5)",
		item.ID, item.OrderID, item.ProductID, item.Quantity, item.PriceAtPurchase,
	)
	return err
}

func (t *sqlTx) DecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE products SET stock_quantity = stock_quantity - $1, updated_at = NOW() WHERE id = $2 AND is_active AND stock_quantity >= $1",
		qty, productID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (t *sqlTx) InsertPayment(ctx context.Context, p models.Payment) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO payments (id, order_id, method_type, provider_transaction_id, amount, status, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.OrderID, p.MethodType, p.ProviderTransactionID, p.Amount, p.Status, p.Currency, p.CreatedAt,
	)
	return err
}

func (t *sqlTx) LockOrderStatus(ctx context.Context, orderID string) (models.OrderStatus, error) {
	var status models.OrderStatus
	err := t.tx.QueryRowContext(ctx, "SELECT status FROM orders WHERE id = $1 FOR UPDATE", orderID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("order %s: %w", orderID, checkout.ErrOrderNotFound)
	}
	return status, err
}

func (t *sqlTx) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, "UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3", status, at, orderID)
	return err
}

func (t *sqlTx) AppendHistory(ctx context.Context, h models.StatusHistory) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO order_status_history (id, order_id, status, created_at) VALUES ($1, $2, $3, $4)",
		h.ID, h.OrderID, h.Status, h.CreatedAt,
	)
	return err
}
