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
	"github.com/example/merch-storefront/internal/projection"
	"go.uber.org/zap"
)

const consumerGroup = "order-projector"

func main() {
	logger := logging.Must("projector")
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("projector stopped", zap.Error(err))
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

	ledger, closeLedger, err := bootstrap.Ledger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	projector := projection.NewProjector(ledger, logger)
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, consumerGroup, logger)
	defer consumer.Close()

	logger.Info("consuming order events",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", consumerGroup),
		zap.String("ledger", string(cfg.Ledger)),
	)
	if err := consumer.Consume(ctx, projector.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutting down")
	return nil
}
