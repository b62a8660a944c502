package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/merch-storefront/internal/bootstrap"
	"github.com/example/merch-storefront/internal/config"
	"github.com/example/merch-storefront/internal/infrastructure/kinesis"
	"github.com/example/merch-storefront/internal/logging"
	"github.com/example/merch-storefront/internal/notification"
	"go.uber.org/zap"
)

// streamHandler mails customers from the orders table stream, delivered
// through Kinesis in DynamoDB Streams format
type streamHandler struct {
	notifier kinesis.Notifier
	logger   *zap.Logger
}

func (h *streamHandler) Handle(ctx context.Context, kinesisEvent events.KinesisEvent) (events.KinesisEventResponse, error) {
	h.logger.Info("received records", zap.Int("count", len(kinesisEvent.Records)))

	var batchItemFailures []events.KinesisBatchItemFailure
	fail := func(record events.KinesisEventRecord) {
		batchItemFailures = append(batchItemFailures, events.KinesisBatchItemFailure{
			ItemIdentifier: record.Kinesis.SequenceNumber,
		})
	}

	for _, record := range kinesisEvent.Records {
		change, err := kinesis.ConvertFromKinesisRecord(record)
		if err != nil {
			h.logger.Error("failed to convert record", zap.String("event_id", record.EventID), zap.Error(err))
			fail(record)
			continue
		}

		// Removals
		if change == nil {
			continue
		}

		if err := kinesis.Dispatch(ctx, change, h.notifier); err != nil {
			h.logger.Error("failed to notify",
				zap.String("event_id", record.EventID),
				zap.String("order_id", change.New.OrderID),
				zap.Error(err),
			)
			fail(record)
		}
	}

	h.logger.Info("processed records",
		zap.Int("succeeded", len(kinesisEvent.Records)-len(batchItemFailures)),
		zap.Int("total", len(kinesisEvent.Records)),
	)
	return events.KinesisEventResponse{BatchItemFailures: batchItemFailures}, nil
}

func main() {
	logger := logging.Must("lambda-notifier")
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	siteCfg, _, err := bootstrap.Site(cfg)
	if err != nil {
		logger.Fatal("failed to load site", zap.Error(err))
	}

	// Stream images carry the whole submission, so no ledger lookups
	notifier := notification.NewHandler(bootstrap.Mailer(cfg, siteCfg.Brand, logger), nil, cfg.Bank, logger)

	logger.Info("initialized", zap.String("sender", string(cfg.Sender)))
	lambda.Start((&streamHandler{notifier: notifier, logger: logger}).Handle)
}
