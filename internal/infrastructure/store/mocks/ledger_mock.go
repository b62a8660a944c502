package mocks

import (
	"context"
	"sync"

	"github.com/example/merch-storefront/internal/domain/order"
	"github.com/example/merch-storefront/internal/infrastructure/store"
)

// MockOrderLedger is a mock implementation of store.OrderLedger for testing
type MockOrderLedger struct {
	mu      sync.RWMutex
	records map[string]order.Record

	// For tracking calls in tests
	SaveCalls    []order.Record
	SaveErr      error
	GetErr       error
	SaveCallback func(ctx context.Context, r *order.Record) error
}

var _ store.OrderLedger = (*MockOrderLedger)(nil)

// NewMockOrderLedger creates a new MockOrderLedger
func NewMockOrderLedger() *MockOrderLedger {
	return &MockOrderLedger{
		records:   make(map[string]order.Record),
		SaveCalls: make([]order.Record, 0),
	}
}

// Seed stores a record without recording a call
func (m *MockOrderLedger) Seed(r order.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.OrderID] = r
}

func (m *MockOrderLedger) Get(_ context.Context, orderID string) (*order.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	r, ok := m.records[orderID]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return &r, nil
}

func (m *MockOrderLedger) FindByReference(_ context.Context, reference string) (*order.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, r := range m.records {
		if r.PaymentReference == reference {
			return &r, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (m *MockOrderLedger) Save(ctx context.Context, r *order.Record) error {
	m.mu.Lock()
	m.SaveCalls = append(m.SaveCalls, *r)
	m.mu.Unlock()

	if m.SaveCallback != nil {
		return m.SaveCallback(ctx, r)
	}
	if m.SaveErr != nil {
		return m.SaveErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.OrderID] = *r
	return nil
}

func (m *MockOrderLedger) List(_ context.Context) ([]order.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]order.Record, 0, len(m.records))
	for _, r := range m.records {
		records = append(records, r)
	}
	return records, nil
}

// Saved returns a copy of the recorded Save calls
func (m *MockOrderLedger) Saved() []order.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]order.Record(nil), m.SaveCalls...)
}
