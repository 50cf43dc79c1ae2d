package catalogrpc

import (
	"context"
	"errors"

	"checkout-svc/checkout"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server exposes a CatalogReader over gRPC.
type Server struct {
	catalog checkout.CatalogReader
	logger  *zap.Logger
}

func NewServer(catalog checkout.CatalogReader, logger *zap.Logger) *Server {
	return &Server{catalog: catalog, logger: logger}
}

func (s *Server) GetProduct(ctx context.Context, req *GetProductRequest) (*GetProductResponse, error) {
	ctx, span := otel.Tracer("catalog-service").Start(ctx, "GetProduct")
	defer span.End()

	if req.ProductID == "" {
		return nil, status.Error(codes.InvalidArgument, "product_id is required")
	}
	span.SetAttributes(attribute.String("product.id", req.ProductID))

	p, err := s.catalog.GetProduct(ctx, req.ProductID)
	if errors.Is(err, checkout.ErrProductNotFound) {
		return nil, status.Errorf(codes.NotFound, "product %s not found", req.ProductID)
	}
	if err != nil {
		span.RecordError(err)
		s.logger.Error("Failed to get product", zap.String("product_id", req.ProductID), zap.Error(err))
		return nil, status.Error(codes.Internal, "internal error")
	}

	return &GetProductResponse{Product: p}, nil
}
