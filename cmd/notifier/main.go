package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/example/merch-storefront/internal/bootstrap"
	"github.com/example/merch-storefront/internal/config"
	"github.com/example/merch-storefront/internal/infrastructure/kafka"
	"github.com/example/merch-storefront/internal/logging"
	"github.com/example/merch-storefront/internal/notification"
	"go.uber.org/zap"
)

// Dedicated group so every event reaches the notifier as well as the projector
const consumerGroup = "email-notifier"

func main() {
	logger := logging.Must("notifier")
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("notifier stopped", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.UseKafka() {
		return errors.New("KAFKA_BROKERS is required")
	}

	siteCfg, _, err := bootstrap.Site(cfg)
	if err != nil {
		return err
	}

	// The ledger backs submissions this process did not see on the stream
	ledger, closeLedger, err := bootstrap.Ledger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	handler := notification.NewHandler(bootstrap.Mailer(cfg, siteCfg.Brand, logger), ledger, cfg.Bank, logger)
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, consumerGroup, logger)
	defer consumer.Close()

	logger.Info("consuming order events",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", consumerGroup),
		zap.String("sender", string(cfg.Sender)),
	)
	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutting down")
	return nil
}
