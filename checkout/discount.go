package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkout-svc/models"

	"go.uber.org/zap"
)

// AppliedDiscount is a resolved promotion. The zero value applies nothing.
type AppliedDiscount struct {
	Discount *models.Discount
	// Eligible holds the product ids the discount is limited to; empty means
	// every product.
	Eligible map[string]struct{}
}

// NoDiscount is the result of an absent or unusable promo code at checkout.
var NoDiscount = AppliedDiscount{}

func (a AppliedDiscount) Applies(productID string) bool {
	if a.Discount == nil {
		return false
	}
	if len(a.Eligible) == 0 {
		return true
	}
	_, ok := a.Eligible[productID]
	return ok
}

// CheckDiscountActive classifies d against now: inactive or not yet started
// codes are not found, codes past their end date are expired.
func CheckDiscountActive(d models.Discount, now time.Time) error {
	switch {
	case !d.IsActive, !d.Started(now):
		return fmt.Errorf("code %q: %w", d.Code, ErrDiscountNotFound)
	case d.Ended(now):
		return fmt.Errorf("code %q: %w", d.Code, ErrDiscountExpired)
	}
	return nil
}

type Resolver struct {
	store  DiscountStore
	now    func() time.Time
	logger *zap.Logger
}

func NewResolver(store DiscountStore, now func() time.Time, logger *zap.Logger) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{store: store, now: now, logger: logger}
}

// Resolve is the strict lookup used by the promo preview: an unknown or
// expired code is an error.
func (r *Resolver) Resolve(ctx context.Context, code string) (AppliedDiscount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return NoDiscount, fmt.Errorf("empty code: %w", ErrDiscountNotFound)
	}
	return r.lookup(ctx, code)
}

// ResolveForCheckout never fails on a bad code: unknown and expired codes
// contribute no discount. Store failures still abort the checkout.
func (r *Resolver) ResolveForCheckout(ctx context.Context, code string) (AppliedDiscount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return NoDiscount, nil
	}

	applied, err := r.lookup(ctx, code)
	if errors.Is(err, ErrDiscountNotFound) || errors.Is(err, ErrDiscountExpired) {
		r.logger.Info("Promo code ignored at checkout", zap.String("code", code), zap.Error(err))
		return NoDiscount, nil
	}
	if err != nil {
		return NoDiscount, err
	}
	return applied, nil
}

func (r *Resolver) lookup(ctx context.Context, code string) (AppliedDiscount, error) {
	d, err := r.store.FindActiveDiscountByCode(ctx, code, r.now())
	if err != nil {
		return NoDiscount, err
	}

	ids, err := r.store.ListEligibleProductIDs(ctx, d.ID)
	if err != nil {
		return NoDiscount, fmt.Errorf("list products for discount %s: %w", d.ID, err)
	}

	eligible := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		eligible[id] = struct{}{}
	}
	return AppliedDiscount{Discount: &d, Eligible: eligible}, nil
}
