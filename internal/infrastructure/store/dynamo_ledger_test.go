package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/example/merch-storefront/internal/domain/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo keeps items keyed by order_id and honours the ledger's
// version condition
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	PutCalls   []*dynamodb.PutItemInput
	QueryCalls []*dynamodb.QueryInput
	Err        error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func attrString(item map[string]types.AttributeValue, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func attrNumber(item map[string]types.AttributeValue, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberN); ok {
		return v.Value
	}
	return ""
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return &dynamodb.GetItemOutput{Item: f.items[attrString(in.Key, "order_id")]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PutCalls = append(f.PutCalls, in)
	if f.Err != nil {
		return nil, f.Err
	}

	id := attrString(in.Item, "order_id")
	if current, ok := f.items[id]; ok {
		if attrNumber(current, "version") != attrNumber(in.ExpressionAttributeValues, ":prev") {
			return nil, &types.ConditionalCheckFailedException{Message: strPtr("version mismatch")}
		}
	}
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.QueryCalls = append(f.QueryCalls, in)
	if f.Err != nil {
		return nil, f.Err
	}

	ref := attrString(in.ExpressionAttributeValues, ":ref")
	var out []map[string]types.AttributeValue
	for _, item := range f.items {
		if attrString(item, "payment_reference") == ref {
			out = append(out, item)
		}
	}
	return &dynamodb.QueryOutput{Items: out}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]map[string]types.AttributeValue, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, item)
	}
	return &dynamodb.ScanOutput{Items: out}, nil
}

func strPtr(s string) *string { return &s }

func TestDynamoLedger_SaveAndGet(t *testing.T) {
	db := newFakeDynamo()
	ledger := NewDynamoLedger(db, "orders")
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 123, time.UTC)

	require.NoError(t, ledger.Save(ctx, testRecord("ORD-000001", created)))
	got, err := ledger.Get(ctx, "ORD-000001")

	require.NoError(t, err)
	assert.Equal(t, "ORD-000001", got.OrderID)
	assert.Equal(t, order.StatusSubmitted, got.Status)
	assert.Equal(t, "50", got.Total.String())
	assert.True(t, got.CreatedAt.Equal(created))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "M", got.Items[0].Size)

	require.Len(t, db.PutCalls, 1)
	assert.Equal(t, "orders", *db.PutCalls[0].TableName)
	_, hasRef := db.PutCalls[0].Item["payment_reference"]
	assert.False(t, hasRef, "empty reference must not be written to the index key")
}

func TestDynamoLedger_GetMissing(t *testing.T) {
	ledger := NewDynamoLedger(newFakeDynamo(), "orders")

	_, err := ledger.Get(context.Background(), "ORD-404")

	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestDynamoLedger_VersionConflict(t *testing.T) {
	ledger := NewDynamoLedger(newFakeDynamo(), "orders")
	ctx := context.Background()
	r := testRecord("ORD-000001", time.Now())
	require.NoError(t, ledger.Save(ctx, r))

	err := ledger.Save(ctx, r)

	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestDynamoLedger_FindByReference(t *testing.T) {
	db := newFakeDynamo()
	ledger := NewDynamoLedger(db, "orders")
	ctx := context.Background()
	r := testRecord("ORD-000001", time.Now())
	r.Status = order.StatusAwaitingTransfer
	r.PaymentReference = "JH-1-ABC"
	require.NoError(t, ledger.Save(ctx, r))

	got, err := ledger.FindByReference(ctx, "JH-1-ABC")

	require.NoError(t, err)
	assert.Equal(t, "ORD-000001", got.OrderID)
	require.Len(t, db.QueryCalls, 1)
	assert.Equal(t, ReferenceIndex, *db.QueryCalls[0].IndexName)

	_, err = ledger.FindByReference(ctx, "JH-2-XYZ")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestDynamoLedger_List(t *testing.T) {
	ledger := NewDynamoLedger(newFakeDynamo(), "orders")
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, ledger.Save(ctx, testRecord("ORD-000001", base)))
	require.NoError(t, ledger.Save(ctx, testRecord("ORD-000002", base.Add(time.Minute))))

	records, err := ledger.List(ctx)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ORD-000002", records[0].OrderID)
}

func TestDynamoLedger_ClientError(t *testing.T) {
	db := newFakeDynamo()
	db.Err = errors.New("throttled")
	ledger := NewDynamoLedger(db, "orders")
	ctx := context.Background()

	_, err := ledger.Get(ctx, "ORD-000001")
	require.Error(t, err)
	assert.NotErrorIs(t, err, order.ErrOrderNotFound)

	err = ledger.Save(ctx, testRecord("ORD-000001", time.Now()))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrVersionConflict)
}

func TestToDynamoItem_RoundTrip(t *testing.T) {
	r := testRecord("ORD-000001", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	r.Version = 4

	item, err := ToDynamoItem(r)
	require.NoError(t, err)
	assert.Equal(t, "50.00", item.Total)
	assert.Equal(t, "bank_transfer", item.PaymentMethod)
	assert.Equal(t, 4, item.Version)

	back, err := item.Record()
	require.NoError(t, err)
	assert.Equal(t, r.OrderID, back.OrderID)
	assert.Equal(t, r.Method, back.Method)
	assert.True(t, r.Total.Equal(back.Total))
	require.Len(t, back.Items, 1)
	assert.Equal(t, 2, back.Items[0].Quantity)
	assert.True(t, back.Items[0].UnitPrice.Equal(r.Items[0].UnitPrice))
}
