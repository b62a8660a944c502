package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/merch-storefront/internal/domain/order"
	"github.com/example/merch-storefront/internal/infrastructure/store"
	"go.uber.org/zap"
)

const maxSaveAttempts = 3

// Projector folds order events into the ledger
type Projector struct {
	ledger store.OrderLedger
	logger *zap.Logger
}

func NewProjector(ledger store.OrderLedger, logger *zap.Logger) *Projector {
	return &Projector{
		ledger: ledger,
		logger: logger.Named("projector"),
	}
}

// HandleEvent applies one JSON encoded order.Event. Events the ledger
// rejects as out of order are logged and dropped.
func (p *Projector) HandleEvent(ctx context.Context, key, value []byte) error {
	var event order.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.OrderID == "" {
		event.OrderID = string(key)
	}

	log := p.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("order_id", event.OrderID),
	)
	log.Debug("received event")

	for attempt := 1; ; attempt++ {
		err := p.apply(ctx, event)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, store.ErrVersionConflict) && attempt < maxSaveAttempts:
			log.Debug("ledger version conflict, retrying", zap.Int("attempt", attempt))
		case isRejected(err):
			log.Warn("event rejected by ledger", zap.Error(err))
			return nil
		default:
			return err
		}
	}
}

func (p *Projector) apply(ctx context.Context, event order.Event) error {
	record, err := p.ledger.Get(ctx, event.OrderID)
	if errors.Is(err, order.ErrOrderNotFound) {
		record = &order.Record{}
	} else if err != nil {
		return fmt.Errorf("failed to load order %s: %w", event.OrderID, err)
	}

	if err := record.Apply(event); err != nil {
		return err
	}

	if err := p.ledger.Save(ctx, record); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("failed to save order %s: %w", event.OrderID, err)
	}

	p.logger.Info("order projected",
		zap.String("order_id", record.OrderID),
		zap.String("status", string(record.Status)),
		zap.Int("version", record.Version),
	)
	return nil
}

func isRejected(err error) bool {
	return errors.Is(err, order.ErrOrderNotFound) ||
		errors.Is(err, order.ErrInvalidStatus) ||
		errors.Is(err, order.ErrOrderAlreadyPaid) ||
		errors.Is(err, order.ErrNotAwaiting) ||
		errors.Is(err, order.ErrEmptyOrder) ||
		errors.Is(err, order.ErrUnknownEvent)
}
