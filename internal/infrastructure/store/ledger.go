package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/example/merch-storefront/internal/domain/order"
)

var ErrVersionConflict = errors.New("order was modified concurrently")

// OrderLedger stores the projected state of every submitted order.
// Save is optimistic: it only succeeds when the stored version is one
// behind the record being written.
type OrderLedger interface {
	Get(ctx context.Context, orderID string) (*order.Record, error)
	FindByReference(ctx context.Context, reference string) (*order.Record, error)
	Save(ctx context.Context, r *order.Record) error
	List(ctx context.Context) ([]order.Record, error)
}

// MemoryLedger is the in-process ledger used when no database is configured
type MemoryLedger struct {
	mu          sync.RWMutex
	records     map[string]order.Record
	byReference map[string]string // payment reference -> order id
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		records:     make(map[string]order.Record),
		byReference: make(map[string]string),
	}
}

func (l *MemoryLedger) Get(_ context.Context, orderID string) (*order.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	r, ok := l.records[orderID]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return cloneRecord(r), nil
}

func (l *MemoryLedger) FindByReference(_ context.Context, reference string) (*order.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id, ok := l.byReference[reference]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return cloneRecord(l.records[id]), nil
}

func (l *MemoryLedger) Save(_ context.Context, r *order.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.records[r.OrderID]
	if (ok && current.Version != r.Version-1) || (!ok && r.Version != 1) {
		return ErrVersionConflict
	}
	if ok && current.PaymentReference != "" && current.PaymentReference != r.PaymentReference {
		delete(l.byReference, current.PaymentReference)
	}

	l.records[r.OrderID] = *cloneRecord(*r)
	if r.PaymentReference != "" {
		l.byReference[r.PaymentReference] = r.OrderID
	}
	return nil
}

// List returns all records, newest first
func (l *MemoryLedger) List(_ context.Context) ([]order.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records := make([]order.Record, 0, len(l.records))
	for _, r := range l.records {
		records = append(records, *cloneRecord(r))
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func cloneRecord(r order.Record) *order.Record {
	r.Items = append([]order.Item(nil), r.Items...)
	return &r
}
