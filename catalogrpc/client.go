package catalogrpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-svc/checkout"
	"checkout-svc/circuitbreaker"
	"checkout-svc/models"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// Client is a CatalogReader backed by a remote catalog service.
type Client struct {
	cc             grpc.ClientConnInterface
	conn           *grpc.ClientConn
	circuitBreaker *circuitbreaker.CircuitBreaker
	logger         *zap.Logger
}

// Dial connects to the catalog service at address.
func Dial(address string, logger *zap.Logger) (*Client, error) {
	conn, err := grpc.NewClient(
		address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to catalog service: %w", err)
	}

	c := NewClient(conn, logger)
	c.conn = conn
	return c, nil
}

func NewClient(cc grpc.ClientConnInterface, logger *zap.Logger) *Client {
	return &Client{
		cc: cc,
		circuitBreaker: circuitbreaker.NewCircuitBreaker(5, 30*time.Second,
			circuitbreaker.WithFailurePredicate(isUnavailable)),
		logger: logger,
	}
}

// isUnavailable separates transport trouble from answers like NotFound,
// which must not open the breaker.
func isUnavailable(err error) bool {
	switch status.Code(err) {
	case codes.NotFound, codes.InvalidArgument:
		return false
	}
	return true
}

func (c *Client) GetProduct(ctx context.Context, id string) (models.Product, error) {
	var resp GetProductResponse

	err := c.circuitBreaker.Execute(ctx, func() error {
		return c.cc.Invoke(ctx, getProductMethod, &GetProductRequest{ProductID: id}, &resp,
			grpc.CallContentSubtype(codecName))
	})

	switch {
	case err == nil:
		return resp.Product, nil
	case status.Code(err) == codes.NotFound:
		return models.Product{}, fmt.Errorf("product %s: %w", id, checkout.ErrProductNotFound)
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		c.logger.Warn("Catalog circuit open", zap.String("product_id", id))
	}
	return models.Product{}, fmt.Errorf("catalog get product %s: %w", id, err)
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
