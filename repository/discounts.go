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

type DiscountStore struct {
	db *sql.DB
}

func NewDiscountStore(db *sql.DB) *DiscountStore {
	return &DiscountStore{db: db}
}

// FindActiveDiscountByCode loads the discount with this exact code and checks
// it against now in Go so the active-window rule lives in one place.
func (s *DiscountStore) FindActiveDiscountByCode(ctx context.Context, code string, now time.Time) (models.Discount, error) {
	var (
		d           models.Discount
		description sql.NullString
		start, end  sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, code, description, discount_type, value, start_date, end_date, is_active FROM discounts WHERE code = $1",
		code,
	).Scan(&d.ID, &d.Code, &description, &d.DiscountType, &d.Value, &start, &end, &d.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Discount{}, fmt.Errorf("code %q: %w", code, checkout.ErrDiscountNotFound)
	}
	if err != nil {
		return models.Discount{}, fmt.Errorf("find discount %q: %w", code, err)
	}

	d.Description = description.String
	if start.Valid {
		d.StartDate = &start.Time
	}
	if end.Valid {
		d.EndDate = &end.Time
	}

	if err := checkout.CheckDiscountActive(d, now); err != nil {
		return models.Discount{}, err
	}
	return d, nil
}

func (s *DiscountStore) ListEligibleProductIDs(ctx context.Context, discountID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT product_id FROM product_discounts WHERE discount_id = $1 ORDER BY product_id",
		discountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
