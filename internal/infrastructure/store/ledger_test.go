package store

import (
	"context"
	"testing"
	"time"

	"github.com/example/merch-storefront/internal/domain/order"
	"github.com/example/merch-storefront/internal/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(orderID string, createdAt time.Time) *order.Record {
	r := &order.Record{
		Status:    order.StatusSubmitted,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
		Version:   1,
	}
	r.Submission = order.Submission{
		OrderID:       orderID,
		CustomerEmail: "fan@example.com",
		CustomerName:  "Sam Fan",
		CustomerPhone: "0712345678",
		Items: []order.Item{
			{ItemID: 1, Name: "Band T-Shirt", Size: "M", Quantity: 2, UnitPrice: decimal.NewFromInt(25)},
		},
		Total:       decimal.NewFromInt(50),
		Currency:    "USD",
		Method:      payment.MethodBankTransfer,
		SubmittedAt: createdAt,
	}
	return r
}

// ============================================
// MemoryLedger Tests
// ============================================

func TestMemoryLedger_SaveAndGet(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()
	r := testRecord("ORD-000001", time.Now())

	require.NoError(t, ledger.Save(ctx, r))
	got, err := ledger.Get(ctx, "ORD-000001")

	require.NoError(t, err)
	assert.Equal(t, order.StatusSubmitted, got.Status)
	assert.Equal(t, "Sam Fan", got.CustomerName)
	assert.Len(t, got.Items, 1)
}

func TestMemoryLedger_GetMissing(t *testing.T) {
	ledger := NewMemoryLedger()

	got, err := ledger.Get(context.Background(), "ORD-404")

	assert.ErrorIs(t, err, order.ErrOrderNotFound)
	assert.Nil(t, got)
}

func TestMemoryLedger_ReturnsCopies(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()
	require.NoError(t, ledger.Save(ctx, testRecord("ORD-000001", time.Now())))

	got, err := ledger.Get(ctx, "ORD-000001")
	require.NoError(t, err)
	got.Items[0].Quantity = 99

	again, err := ledger.Get(ctx, "ORD-000001")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Items[0].Quantity)
}

func TestMemoryLedger_VersionConflict(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()
	r := testRecord("ORD-000001", time.Now())
	require.NoError(t, ledger.Save(ctx, r))

	tests := []struct {
		name    string
		version int
		wantErr error
	}{
		{"same version again", 1, ErrVersionConflict},
		{"skipping a version", 3, ErrVersionConflict},
		{"next version", 2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := *r
			next.Version = tt.version
			err := ledger.Save(ctx, &next)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	fresh := testRecord("ORD-000002", time.Now())
	fresh.Version = 2
	assert.ErrorIs(t, ledger.Save(ctx, fresh), ErrVersionConflict)
}

func TestMemoryLedger_FindByReference(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()
	r := testRecord("ORD-000001", time.Now())
	require.NoError(t, ledger.Save(ctx, r))

	_, err := ledger.FindByReference(ctx, "JH-1-ABC")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	r.Version = 2
	r.Status = order.StatusAwaitingTransfer
	r.PaymentReference = "JH-1-ABC"
	require.NoError(t, ledger.Save(ctx, r))

	got, err := ledger.FindByReference(ctx, "JH-1-ABC")
	require.NoError(t, err)
	assert.Equal(t, "ORD-000001", got.OrderID)

	r.Version = 3
	r.Status = order.StatusFailed
	r.PaymentReference = ""
	require.NoError(t, ledger.Save(ctx, r))

	_, err = ledger.FindByReference(ctx, "JH-1-ABC")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestMemoryLedger_ListNewestFirst(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.Save(ctx, testRecord("ORD-000001", base)))
	require.NoError(t, ledger.Save(ctx, testRecord("ORD-000003", base.Add(2*time.Hour))))
	require.NoError(t, ledger.Save(ctx, testRecord("ORD-000002", base.Add(time.Hour))))

	records, err := ledger.List(ctx)

	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "ORD-000003", records[0].OrderID)
	assert.Equal(t, "ORD-000002", records[1].OrderID)
	assert.Equal(t, "ORD-000001", records[2].OrderID)
}
