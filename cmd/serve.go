package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"checkout-svc/cache"
	"checkout-svc/catalogrpc"
	"checkout-svc/checkout"
	"checkout-svc/config"
	"checkout-svc/database"
	"checkout-svc/handlers"
	"checkout-svc/kafka"
	"checkout-svc/middleware"
	"checkout-svc/notify"
	"checkout-svc/repository"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the catalog gRPC server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET must be set")
			}

			logger, err := newLogger()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	shutdownTracing, err := middleware.InitTracing(cfg.ServiceName, cfg.JaegerEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	db, err := database.InitDB(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	dbCatalog := repository.NewCatalogStore(db)
	var catalog checkout.CatalogReader = dbCatalog
	if cfg.CatalogSource == config.CatalogSourceGRPC {
		client, err := catalogrpc.Dial(cfg.CatalogAddr, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		catalog = client
	}

	previewCatalog := catalog
	var (
		idempotency handlers.IdempotencyStore
		invalidator handlers.ProductInvalidator
	)
	if rdb, err := cache.InitRedis(cfg.Redis, logger); err != nil {
		logger.Warn("Redis unavailable, running without product cache and idempotency keys", zap.Error(err))
	} else {
		defer rdb.Close()
		products := cache.NewProductCache(rdb, catalog, cfg.Redis.ProductTTL, logger)
		previewCatalog = products
		invalidator = products
		idempotency = cache.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL, logger)
	}

	notifier, closeNotifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	store := repository.NewStore(db, logger)
	orchestrator := checkout.NewOrchestrator(store, notify.Instrument(notifier), logger,
		checkout.WithTxTimeout(cfg.TxTimeout),
		checkout.WithNotifyTimeout(cfg.NotifyTimeout),
		checkout.WithCurrency(cfg.Currency),
	)
	service := checkout.NewService(
		checkout.NewVerifier(catalog),
		checkout.NewResolver(repository.NewDiscountStore(db), time.Now, logger),
		orchestrator,
		previewCatalog,
		logger,
	)
	lifecycle := checkout.NewLifecycle(store, logger, time.Now, cfg.TxTimeout)

	router := newRouter(cfg, logger,
		handlers.NewCheckoutHandler(service, idempotency, invalidator, logger),
		handlers.NewOrderHandler(repository.NewOrderStore(db), lifecycle, logger),
	)
	restSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port: %w", err)
	}
	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)
	catalogrpc.RegisterCatalogServer(grpcServer, catalogrpc.NewServer(dbCatalog, logger))

	errCh := make(chan error, 2)
	go func() {
		if err := restSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("REST server: %w", err)
		}
	}()
	logger.Info("REST API started", zap.String("addr", cfg.HTTPAddr))

	go func() {
		if err := grpcServer.Serve(grpcListener); err != nil {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()
	logger.Info("gRPC server started", zap.String("addr", cfg.GRPCAddr))

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		logger.Error("Server failed", zap.Error(serveErr))
	}

	logger.Info("Shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := restSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("REST server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()

	logger.Info("Servers exited")
	return serveErr
}

// newNotifier picks the confirmation channel for NOTIFY_MODE. The returned
// func releases whatever the notifier holds.
func newNotifier(cfg config.Config, logger *zap.Logger) (checkout.Notifier, func(), error) {
	switch cfg.NotifyMode {
	case config.NotifyModeKafka:
		producer, err := kafka.InitProducer(cfg.Kafka, logger)
		if err != nil {
			return nil, nil, err
		}
		closeProducer := func() {
			if err := producer.Close(); err != nil {
				logger.Warn("Failed to close Kafka producer", zap.Error(err))
			}
		}
		return kafka.NewOrderEventNotifier(producer, cfg.Kafka.Topic, logger), closeProducer, nil
	case config.NotifyModeSMTP:
		return notify.NewMailer(cfg.SMTP, logger), func() {}, nil
	default:
		return notify.NewLogNotifier(logger), func() {}, nil
	}
}

func newRouter(cfg config.Config, logger *zap.Logger, checkoutHandler *handlers.CheckoutHandler, orderHandler *handlers.OrderHandler) *gin.Engine {
	handlers.UseJSONFieldNames()
	secret := []byte(cfg.JWTSecret)

	router := gin.New()
	router.Use(gin.Recovery())
	// Must run first so later middleware sees the extracted trace context.
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", middleware.PrometheusHandler())

	router.POST("/checkout", middleware.Authenticate(secret, false), checkoutHandler.Checkout)
	router.POST("/discounts/apply", checkoutHandler.PreviewDiscount)

	orders := router.Group("/orders", middleware.Authenticate(secret, true))
	orders.GET("", orderHandler.ListOrders)
	orders.GET("/:id", orderHandler.GetOrder)
	orders.PATCH("/:id/status", middleware.RequireRole(middleware.RoleAdmin), orderHandler.UpdateStatus)

	return router
}
