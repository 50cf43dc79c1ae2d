package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"checkout-svc/checkout"
	"checkout-svc/models"
)

// OrderStore serves the read side of orders.
type OrderStore struct {
	db *sql.DB
}

func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

const selectOrder = `SELECT id, user_id, order_number, status, total_amount,
	shipping_name, shipping_email, shipping_phone, shipping_address_line1,
	shipping_city, shipping_state_province, shipping_postal_code, shipping_country,
	created_at, updated_at
FROM orders WHERE id = $1`

// FindOrderDetails returns the order with its items and its status history
// in chronological order.
func (s *OrderStore) FindOrderDetails(ctx context.Context, orderID string) (models.OrderDetails, error) {
	var details models.OrderDetails
	var userID sql.NullString
	var phone, address, city, state, postal, country sql.NullString
	o := &details.Order
	err := s.db.QueryRowContext(ctx, selectOrder, orderID).Scan(
		&o.ID, &userID, &o.OrderNumber, &o.Status, &o.TotalAmount,
		&o.Shipping.Name, &o.Shipping.Email, &phone, &address,
		&city, &state, &postal, &country,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.OrderDetails{}, fmt.Errorf("order %s: %w", orderID, checkout.ErrOrderNotFound)
	}
	if err != nil {
		return models.OrderDetails{}, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if userID.Valid {
		o.UserID = &userID.String
	}
	o.Shipping.PhoneNumber = phone.String
	o.Shipping.AddressLine1 = address.String
	o.Shipping.City = city.String
	o.Shipping.StateProvince = state.String
	o.Shipping.PostalCode = postal.String
	o.Shipping.Country = country.String

	if details.Items, err = s.items(ctx, orderID); err != nil {
		return models.OrderDetails{}, err
	}
	if details.History, err = s.history(ctx, orderID); err != nil {
		return models.OrderDetails{}, err
	}
	return details, nil
}

func (s *OrderStore) items(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price_at_purchase
		FROM order_items oi JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1 ORDER BY p.name, oi.id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.PriceAtPurchase); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *OrderStore) history(ctx context.Context, orderID string) ([]models.StatusHistory, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, order_id, status, created_at FROM order_status_history WHERE order_id = $1 ORDER BY created_at, id",
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list history for order %s: %w", orderID, err)
	}
	defer rows.Close()

	history := []models.StatusHistory{}
	for rows.Next() {
		var h models.StatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

const listOrders = `SELECT o.id, o.user_id, o.order_number, o.status, o.total_amount, o.created_at,
	COALESCE(SUM(oi.quantity), 0)
FROM orders o LEFT JOIN order_items oi ON oi.order_id = o.id`

// ListOrders returns orders newest first. A nil userID lists every order.
func (s *OrderStore) ListOrders(ctx context.Context, userID *string, limit, offset int) ([]models.OrderSummary, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if userID == nil {
		rows, err = s.db.QueryContext(ctx,
			listOrders+" GROUP BY o.id ORDER BY o.created_at DESC LIMIT $1 OFFSET $2",
			limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx,
			listOrders+" WHERE o.user_id = $1 GROUP BY o.id ORDER BY o.created_at DESC LIMIT $2 OFFSET $3",
			*userID, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.OrderSummary{}
	for rows.Next() {
		var (
			o     models.OrderSummary
			owner sql.NullString
		)
		if err := rows.Scan(&o.ID, &owner, &o.OrderNumber, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.TotalItems); err != nil {
			return nil, err
		}
		if owner.Valid {
			o.UserID = &owner.String
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
