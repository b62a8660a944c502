package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/merch-storefront/internal/api"
	"github.com/example/merch-storefront/internal/auth"
	"github.com/example/merch-storefront/internal/bootstrap"
	"github.com/example/merch-storefront/internal/config"
	"github.com/example/merch-storefront/internal/infrastructure/kafka"
	"github.com/example/merch-storefront/internal/logging"
	"github.com/example/merch-storefront/internal/notification"
	"github.com/example/merch-storefront/internal/projection"
	"github.com/example/merch-storefront/internal/shop"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type publisher interface {
	shop.Publisher
	Close() error
}

func main() {
	logger := logging.Must("api")
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("api stopped", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateAPI(); err != nil {
		return err
	}

	siteCfg, cat, err := bootstrap.Site(cfg)
	if err != nil {
		return err
	}

	ledger, closeLedger, err := bootstrap.Ledger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	sessions, closeSessions, err := bootstrap.Sessions(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	var events publisher
	if cfg.UseKafka() {
		logger.Info("publishing order events to kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
		events = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	} else {
		// No broker: project and notify in-process
		logger.Info("publishing order events in-process")
		projector := projection.NewProjector(ledger, logger)
		notifier := notification.NewHandler(bootstrap.Mailer(cfg, siteCfg.Brand, logger), ledger, cfg.Bank, logger)
		events = kafka.NewLocalPublisher(projector.HandleEvent, notifier.HandleEvent)
	}
	defer events.Close()

	payments := bootstrap.Payments(cfg, siteCfg, logger)
	svc := shop.NewService(cat, sessions, payments, ledger, events, siteCfg.Currency, logger)
	defer svc.Close()

	tokens := auth.NewSessionTokens(cfg.JWTSecret, cfg.SessionTTL)
	router := api.NewRouter(api.NewHandlers(svc, siteCfg, logger), tokens, api.RouterConfig{
		WebDir:         cfg.WebDir,
		SecureCookie:   cfg.SecureCookie,
		RequestTimeout: cfg.RequestTimeout,
	}, logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, "merch-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("brand", siteCfg.Brand),
			zap.Int("catalog_items", cat.Len()),
			zap.String("ledger", string(cfg.Ledger)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	return nil
}
