package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/merch-storefront/internal/domain/order"
)

// LocalPublisher delivers order events to in-process handlers when no
// broker is configured. Handlers run synchronously in registration order
// and receive the same key/value bytes a Kafka consumer would.
type LocalPublisher struct {
	handlers []MessageHandler
}

func NewLocalPublisher(handlers ...MessageHandler) *LocalPublisher {
	return &LocalPublisher{handlers: handlers}
}

func (p *LocalPublisher) Publish(ctx context.Context, e order.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", e.Type, err)
	}

	var errs []error
	for _, h := range p.handlers {
		if err := h(ctx, []byte(e.OrderID), data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *LocalPublisher) Close() error { return nil }
