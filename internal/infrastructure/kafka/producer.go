package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/merch-storefront/internal/domain/order"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes order events keyed by order id, so every event of one
// order lands on the same partition in order.
type Producer struct {
	writer messageWriter
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer}
}

func (p *Producer) Publish(ctx context.Context, e order.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", e.Type, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.OrderID),
		Value: data,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", e.Type, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
