// Package bootstrap builds the components the binaries share from Config.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/example/merch-storefront/internal/config"
	"github.com/example/merch-storefront/internal/domain/catalog"
	"github.com/example/merch-storefront/internal/email"
	"github.com/example/merch-storefront/internal/infrastructure/store"
	"github.com/example/merch-storefront/internal/payment"
	"github.com/example/merch-storefront/internal/session"
	"github.com/example/merch-storefront/internal/site"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Closer releases a backend connection
type Closer func() error

func noopCloser() error { return nil }

// Site loads the presentation shell and the catalog it carries
func Site(cfg *config.Config) (site.Config, *catalog.Catalog, error) {
	siteCfg, err := site.Load(cfg.SiteConfig)
	if err != nil {
		return site.Config{}, nil, err
	}
	cat, err := siteCfg.BuildCatalog()
	if err != nil {
		return site.Config{}, nil, fmt.Errorf("site: catalog: %w", err)
	}
	return siteCfg, cat, nil
}

// Ledger opens the configured order ledger
func Ledger(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.OrderLedger, Closer, error) {
	switch cfg.Ledger {
	case config.LedgerPostgres:
		db, err := store.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.RunMigrations(db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logger.Info("using postgres ledger")
		return store.NewPostgresLedger(db), db.Close, nil

	case config.LedgerDynamoDB:
		client, err := DynamoClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using dynamodb ledger", zap.String("table", cfg.DynamoTable))
		return store.NewDynamoLedger(client, cfg.DynamoTable), noopCloser, nil

	default:
		logger.Info("using in-memory ledger")
		return store.NewMemoryLedger(), noopCloser, nil
	}
}

// DynamoClient builds a DynamoDB client from the default AWS credential
// chain. DYNAMODB_ENDPOINT points it at a local emulator.
func DynamoClient(ctx context.Context, cfg *config.Config) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
		}
	}), nil
}

// Sessions returns a Redis backed store when REDIS_ADDR is set and an
// in-memory one otherwise
func Sessions(ctx context.Context, cfg *config.Config, logger *zap.Logger) (session.Store, Closer, error) {
	if cfg.RedisAddr == "" {
		logger.Info("using in-memory sessions")
		return session.NewMemoryStore(cfg.SessionTTL), noopCloser, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("using redis sessions", zap.String("addr", cfg.RedisAddr))
	return session.NewRedisStore(client, cfg.SessionTTL), client.Close, nil
}

// Payments registers the wallet, bank transfer and mobile money adapters.
// The gateways are sandboxes scripted by the SANDBOX_* settings, guarded by
// circuit breakers.
func Payments(cfg *config.Config, siteCfg site.Config, logger *zap.Logger) *payment.Registry {
	wallet := payment.NewBreakerWalletGateway(
		payment.NewSandboxWallet(cfg.SandboxWalletOutcome, cfg.SandboxPayerEmail),
		cfg.Breaker, logger,
	)
	mobile := payment.NewBreakerMobileMoneyGateway(
		payment.NewSandboxMobileMoney(cfg.SandboxMobileMoneyOutcome, cfg.SandboxPendingPolls),
		cfg.Breaker, logger,
	)

	mmCfg := cfg.MobileMoney
	if mmCfg.Brand == "" {
		mmCfg.Brand = siteCfg.Brand
	}

	return payment.NewRegistry(
		payment.NewWalletAdapter(wallet, siteCfg.Brand, logger),
		payment.NewBankTransferAdapter(cfg.Bank, siteCfg.ReferencePrefix, logger),
		payment.NewMobileMoneyAdapter(mobile, mmCfg, logger),
	)
}

// Mailer builds the email service over the configured sender
func Mailer(cfg *config.Config, brand string, logger *zap.Logger) *email.Service {
	var sender email.Sender
	switch cfg.Sender {
	case config.SenderSMTP:
		logger.Info("sending email over smtp", zap.String("host", cfg.SMTPHost), zap.String("port", cfg.SMTPPort))
		sender = email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	default:
		sender = email.NewLogSender(logger)
	}
	return email.NewService(sender, brand)
}
