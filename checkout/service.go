package checkout

import (
	"context"
	"errors"
	"fmt"

	"checkout-svc/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("checkout-service")

// Request is an already validated checkout submission.
type Request struct {
	UserID    *string
	Items     []models.CartItem
	PromoCode string
	Shipping  models.ShippingDetails
}

type Receipt struct {
	Order models.Order
	Items []models.OrderItem
	Quote Quote
}

// Service wires verification, discount resolution, pricing and order
// placement into the checkout flow.
type Service struct {
	verifier     *Verifier
	resolver     *Resolver
	orchestrator *Orchestrator
	// previewCatalog serves the promo preview, which may read through a cache.
	previewCatalog CatalogReader
	logger         *zap.Logger
}

func NewService(verifier *Verifier, resolver *Resolver, orchestrator *Orchestrator, previewCatalog CatalogReader, logger *zap.Logger) *Service {
	return &Service{
		verifier:       verifier,
		resolver:       resolver,
		orchestrator:   orchestrator,
		previewCatalog: previewCatalog,
		logger:         logger,
	}
}

func (s *Service) Checkout(ctx context.Context, req Request) (Receipt, error) {
	ctx, span := tracer.Start(ctx, "Checkout")
	defer span.End()

	span.SetAttributes(
		attribute.Int("cart.lines", len(req.Items)),
		attribute.Bool("promo.present", req.PromoCode != ""),
	)

	lines, err := s.verifier.Verify(ctx, req.Items)
	if err != nil {
		span.RecordError(err)
		return Receipt{}, err
	}

	applied, err := s.resolver.ResolveForCheckout(ctx, req.PromoCode)
	if err != nil {
		span.RecordError(err)
		return Receipt{}, fmt.Errorf("resolve promo code: %w", err)
	}

	quote := Price(lines, applied)
	span.SetAttributes(
		attribute.String("order.subtotal", quote.Subtotal.StringFixed(MoneyPlaces)),
		attribute.String("order.discount", quote.Discount.StringFixed(MoneyPlaces)),
	)

	placed, err := s.orchestrator.PlaceOrder(ctx, PlaceOrderInput{
		UserID:   req.UserID,
		Lines:    lines,
		Quote:    quote,
		Shipping: req.Shipping,
	})
	if err != nil {
		span.RecordError(err)
		return Receipt{}, err
	}

	span.SetAttributes(attribute.String("order.id", placed.Order.ID))
	return Receipt{Order: placed.Order, Items: placed.Items, Quote: quote}, nil
}

// PreviewDiscount prices a cart with a promo code without reserving
// anything. Unknown products are skipped; a bad code is an error.
func (s *Service) PreviewDiscount(ctx context.Context, code string, items []models.CartItem) (Quote, error) {
	ctx, span := tracer.Start(ctx, "PreviewDiscount")
	defer span.End()

	applied, err := s.resolver.Resolve(ctx, code)
	if err != nil {
		span.RecordError(err)
		return Quote{}, err
	}

	lines := make([]VerifiedLine, 0, len(items))
	for _, item := range items {
		p, err := s.previewCatalog.GetProduct(ctx, item.ProductID)
		if errors.Is(err, ErrProductNotFound) {
			s.logger.Debug("Preview skipped unknown product", zap.String("product_id", item.ProductID))
			continue
		}
		if err != nil {
			span.RecordError(err)
			return Quote{}, fmt.Errorf("look up product %s: %w", item.ProductID, err)
		}
		lines = append(lines, VerifiedLine{ProductID: item.ProductID, UnitPrice: p.Price, Quantity: item.Quantity})
	}

	return Price(lines, applied), nil
}
