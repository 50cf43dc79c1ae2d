package checkout

import (
	"context"
	"testing"
	"time"

	"checkout-svc/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func discountFixture() *fakeDiscounts {
	past := fixedNow.Add(-48 * time.Hour)
	yesterday := fixedNow.Add(-24 * time.Hour)
	tomorrow := fixedNow.Add(24 * time.Hour)

	return &fakeDiscounts{
		discounts: map[string]models.Discount{
			"SAVE10":   {ID: "d1", Code: "SAVE10", DiscountType: models.DiscountTypePercentage, Value: money("10"), IsActive: true},
			"WINDOW":   {ID: "d2", Code: "WINDOW", DiscountType: models.DiscountTypeFixedAmount, Value: money("1"), IsActive: true, StartDate: &yesterday, EndDate: &tomorrow},
			"OLD":      {ID: "d3", Code: "OLD", DiscountType: models.DiscountTypePercentage, Value: money("5"), IsActive: true, StartDate: &past, EndDate: &yesterday},
			"SOON":     {ID: "d4", Code: "SOON", DiscountType: models.DiscountTypePercentage, Value: money("5"), IsActive: true, StartDate: &tomorrow},
			"DISABLED": {ID: "d5", Code: "DISABLED", DiscountType: models.DiscountTypePercentage, Value: money("5"), IsActive: false},
		},
		eligible: map[string][]string{"d2": {"p1", "p2"}},
	}
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(discountFixture(), clock, zaptest.NewLogger(t))

	applied, err := r.Resolve(context.Background(), "SAVE10")
	require.NoError(t, err)
	require.NotNil(t, applied.Discount)
	assert.Equal(t, "d1", applied.Discount.ID)
	assert.Empty(t, applied.Eligible)
	assert.True(t, applied.Applies("anything"))

	applied, err = r.Resolve(context.Background(), " WINDOW ")
	require.NoError(t, err)
	assert.True(t, applied.Applies("p1"))
	assert.False(t, applied.Applies("p3"))
}

func TestResolver_ResolveIsStrict(t *testing.T) {
	r := NewResolver(discountFixture(), clock, zaptest.NewLogger(t))

	tests := []struct {
		code string
		want error
	}{
		{"", ErrDiscountNotFound},
		{"NOPE", ErrDiscountNotFound},
		{"SOON", ErrDiscountNotFound},
		{"DISABLED", ErrDiscountNotFound},
		{"OLD", ErrDiscountExpired},
	}
	for _, tt := range tests {
		_, err := r.Resolve(context.Background(), tt.code)
		assert.ErrorIs(t, err, tt.want, "code %q", tt.code)
	}
}

func TestResolver_ResolveForCheckoutIsLenient(t *testing.T) {
	r := NewResolver(discountFixture(), clock, zaptest.NewLogger(t))

	for _, code := range []string{"", "NOPE", "OLD", "SOON", "DISABLED"} {
		applied, err := r.ResolveForCheckout(context.Background(), code)
		require.NoError(t, err, "code %q", code)
		assert.Nil(t, applied.Discount)
		assert.False(t, applied.Applies("p1"))
	}
}

func TestResolver_ResolveForCheckoutPropagatesStoreFailure(t *testing.T) {
	store := discountFixture()
	store.err = errBoom
	r := NewResolver(store, clock, zaptest.NewLogger(t))

	_, err := r.ResolveForCheckout(context.Background(), "SAVE10")
	assert.ErrorIs(t, err, errBoom)
}

func TestCheckDiscountActive_OpenBounds(t *testing.T) {
	d := models.Discount{Code: "X", IsActive: true}
	assert.NoError(t, CheckDiscountActive(d, fixedNow))

	end := fixedNow
	d.EndDate = &end
	assert.NoError(t, CheckDiscountActive(d, fixedNow), "end date is inclusive")
	assert.ErrorIs(t, CheckDiscountActive(d, fixedNow.Add(time.Second)), ErrDiscountExpired)
}
