package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/example/merch-storefront/internal/bootstrap"
	"github.com/example/merch-storefront/internal/config"
	"github.com/example/merch-storefront/internal/infrastructure/kafka"
	"github.com/example/merch-storefront/internal/logging"
	"github.com/example/merch-storefront/internal/notification"
	"github.com/example/merch-storefront/internal/projection"
	"github.com/example/merch-storefront/internal/tui"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "shop: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.NewFile("shop", cfg.LogFile)
	if err != nil {
		return fmt.Errorf("open log %s: %w", cfg.LogFile, err)
	}
	defer logger.Sync()

	ctx := context.Background()

	siteCfg, cat, err := bootstrap.Site(cfg)
	if err != nil {
		return err
	}

	ledger, closeLedger, err := bootstrap.Ledger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	var events tui.Publisher
	if cfg.UseKafka() {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		events = producer
	} else {
		projector := projection.NewProjector(ledger, logger)
		notifier := notification.NewHandler(bootstrap.Mailer(cfg, siteCfg.Brand, logger), ledger, cfg.Bank, logger)
		events = kafka.NewLocalPublisher(projector.HandleEvent, notifier.HandleEvent)
	}

	app := tui.NewApp(siteCfg, cat, bootstrap.Payments(cfg, siteCfg, logger), events, logger)
	logger.Info("storefront opened", zap.String("brand", siteCfg.Brand), zap.Int("catalog_items", cat.Len()))

	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run storefront: %w", err)
	}
	logger.Info("storefront closed")
	return nil
}
