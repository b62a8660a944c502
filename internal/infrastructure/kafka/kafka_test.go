package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/merch-storefront/internal/domain/order"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockWriter struct {
	Messages []kafka.Message
	Err      error
	Closed   bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.Closed = true
	return nil
}

type mockReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	FetchErrs []error
	Committed []kafka.Message
}

func (m *mockReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	if len(m.FetchErrs) > 0 {
		err := m.FetchErrs[0]
		m.FetchErrs = m.FetchErrs[1:]
		m.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(m.queue) > 0 {
		msg := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		return msg, nil
	}
	m.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *mockReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Committed = append(m.Committed, msgs...)
	return nil
}

func (m *mockReader) Close() error { return nil }

func (m *mockReader) committed() []kafka.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]kafka.Message(nil), m.Committed...)
}

func testEvent(t *testing.T) order.Event {
	t.Helper()
	e, err := order.Failed("ORD-123456", "wallet", "failed to capture wallet payment")
	require.NoError(t, err)
	return e
}

// ============================================
// Producer Tests
// ============================================

func TestProducer_Publish(t *testing.T) {
	w := &mockWriter{}
	p := &Producer{writer: w}
	e := testEvent(t)

	require.NoError(t, p.Publish(context.Background(), e))

	require.Len(t, w.Messages, 1)
	msg := w.Messages[0]
	assert.Equal(t, "ORD-123456", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, order.EventPaymentFailed, string(msg.Headers[0].Value))

	var decoded order.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, order.EventPaymentFailed, decoded.Type)
}

func TestProducer_PublishError(t *testing.T) {
	p := &Producer{writer: &mockWriter{Err: errors.New("broker down")}}

	err := p.Publish(context.Background(), testEvent(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

// ============================================
// Consumer Tests
// ============================================

func TestConsumer_HandlesAndCommits(t *testing.T) {
	r := &mockReader{
		queue: []kafka.Message{
			{Key: []byte("ORD-1"), Value: []byte(`{"a":1}`), Offset: 1},
			{Key: []byte("ORD-2"), Value: []byte(`{"a":2}`), Offset: 2},
		},
		FetchErrs: []error{errors.New("transient")},
	}
	c := &Consumer{reader: r, logger: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var keys []string
	handler := func(_ context.Context, key, _ []byte) error {
		mu.Lock()
		defer mu.Unlock()
		keys = append(keys, string(key))
		if string(key) == "ORD-1" {
			return errors.New("handler failed")
		}
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- c.Consume(ctx, handler) }()

	assert.Eventually(t, func() bool { return len(r.committed()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"ORD-1", "ORD-2"}, keys)
}

// ============================================
// LocalPublisher Tests
// ============================================

func TestLocalPublisher_DispatchesToAllHandlers(t *testing.T) {
	var calls []string
	record := func(name string, err error) MessageHandler {
		return func(_ context.Context, key, value []byte) error {
			var e order.Event
			require.NoError(t, json.Unmarshal(value, &e))
			calls = append(calls, name+":"+string(key)+":"+e.Type)
			return err
		}
	}

	p := NewLocalPublisher(record("projector", nil), record("notifier", errors.New("smtp down")))

	err := p.Publish(context.Background(), testEvent(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.Equal(t, []string{
		"projector:ORD-123456:" + order.EventPaymentFailed,
		"notifier:ORD-123456:" + order.EventPaymentFailed,
	}, calls)
}
