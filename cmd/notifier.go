package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"checkout-svc/config"
	"checkout-svc/kafka"
	"checkout-svc/middleware"
	"checkout-svc/notify"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newNotifierCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notifier",
		Short: "Consume order events and send confirmation e-mails",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := newLogger()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer logger.Sync()

			shutdownTracing, err := middleware.InitTracing(cfg.ServiceName+"-notifier", cfg.JaegerEndpoint)
			if err != nil {
				return err
			}
			defer shutdownTracing()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reader := kafka.NewReader(cfg.Kafka)
			defer func() {
				if err := reader.Close(); err != nil {
					logger.Warn("Failed to close Kafka reader", zap.Error(err))
				}
			}()

			mailer := notify.NewMailer(cfg.SMTP, logger)
			consumer := kafka.NewConsumer(reader, mailer.HandleOrderEvent, logger)

			logger.Info("Notifier started",
				zap.Strings("brokers", cfg.Kafka.Brokers),
				zap.String("topic", cfg.Kafka.Topic),
				zap.String("group_id", cfg.Kafka.GroupID),
			)
			if err := consumer.Run(ctx); err != nil {
				return err
			}
			logger.Info("Notifier stopped")
			return nil
		},
	}
}
