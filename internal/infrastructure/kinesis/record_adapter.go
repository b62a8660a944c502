package kinesis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/merch-storefront/internal/domain/order"
	"github.com/example/merch-storefront/internal/infrastructure/store"
	"github.com/example/merch-storefront/internal/payment"
)

// LedgerChange is one write to the orders table as seen on its stream.
// Old is nil for inserts.
type LedgerChange struct {
	EventName string
	Old       *order.Record
	New       *order.Record
}

// ConvertFromKinesisRecord converts a Kinesis record (DynamoDB Streams format) to a LedgerChange.
// Returns nil for removals.
func ConvertFromKinesisRecord(record events.KinesisEventRecord) (*LedgerChange, error) {
	var dynamoDBRecord events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &dynamoDBRecord); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DynamoDB record: %w", err)
	}
	return ConvertFromDynamoDBStreamRecord(dynamoDBRecord)
}

// ConvertFromDynamoDBStreamRecord converts a DynamoDB Stream record to a LedgerChange.
func ConvertFromDynamoDBStreamRecord(record events.DynamoDBEventRecord) (*LedgerChange, error) {
	if record.EventName != "INSERT" && record.EventName != "MODIFY" {
		return nil, nil
	}

	change := &LedgerChange{EventName: record.EventName}

	newRecord, err := convertDynamoDBImage(record.Change.NewImage)
	if err != nil {
		return nil, fmt.Errorf("new image: %w", err)
	}
	change.New = newRecord

	if record.EventName == "MODIFY" && record.Change.OldImage != nil {
		oldRecord, err := convertDynamoDBImage(record.Change.OldImage)
		if err != nil {
			return nil, fmt.Errorf("old image: %w", err)
		}
		change.Old = oldRecord
	}

	return change, nil
}

// convertDynamoDBImage reads a ledger item out of stream attribute values.
func convertDynamoDBImage(image map[string]events.DynamoDBAttributeValue) (*order.Record, error) {
	if image == nil {
		return nil, fmt.Errorf("DynamoDB image is nil")
	}

	item := store.DynamoItem{
		OrderID:          stringAttr(image, "order_id"),
		CustomerEmail:    stringAttr(image, "customer_email"),
		CustomerName:     stringAttr(image, "customer_name"),
		CustomerPhone:    stringAttr(image, "customer_phone"),
		CustomerAddress:  stringAttr(image, "customer_address"),
		CustomerCity:     stringAttr(image, "customer_city"),
		CustomerCountry:  stringAttr(image, "customer_country"),
		Items:            stringAttr(image, "items"),
		Total:            stringAttr(image, "total"),
		Currency:         stringAttr(image, "currency"),
		PaymentMethod:    stringAttr(image, "payment_method"),
		Status:           stringAttr(image, "status"),
		PaymentReference: stringAttr(image, "payment_reference"),
		FailureReason:    stringAttr(image, "failure_reason"),
		SubmittedAt:      stringAttr(image, "submitted_at"),
		CreatedAt:        stringAttr(image, "created_at"),
		UpdatedAt:        stringAttr(image, "updated_at"),
	}
	if v, ok := image["version"]; ok {
		version, err := v.Integer()
		if err != nil {
			return nil, fmt.Errorf("failed to parse version: %w", err)
		}
		item.Version = int(version)
	}

	if item.OrderID == "" || item.Status == "" || item.Total == "" {
		return nil, fmt.Errorf("missing required fields: order_id=%s, status=%s, total=%s",
			item.OrderID, item.Status, item.Total)
	}

	return item.Record()
}

func stringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	v, ok := image[key]
	if !ok || v.DataType() != events.DataTypeString {
		return ""
	}
	return v.String()
}

// PaymentSucceeded reports whether this change is the move out of
// submitted into a paid or awaiting-transfer state
func (c LedgerChange) PaymentSucceeded() (payment.Result, bool) {
	if c.New == nil {
		return payment.Result{}, false
	}
	status := payment.StatusCompleted
	switch c.New.Status {
	case order.StatusPaid:
	case order.StatusAwaitingTransfer:
		status = payment.StatusPendingTransfer
	default:
		return payment.Result{}, false
	}
	if c.Old != nil && c.Old.Status != order.StatusSubmitted && c.Old.Status != order.StatusFailed {
		return payment.Result{}, false
	}

	return payment.Result{
		Success:   true,
		Method:    c.New.Method,
		Reference: c.New.PaymentReference,
		Amount:    c.New.Total,
		Currency:  c.New.Currency,
		Status:    status,
	}, true
}

// TransferVerified reports whether this change settles a bank transfer
func (c LedgerChange) TransferVerified() bool {
	return c.Old != nil && c.New != nil &&
		c.Old.Status == order.StatusAwaitingTransfer && c.New.Status == order.StatusPaid
}

// Notifier receives the customer-facing consequences of ledger changes
type Notifier interface {
	NotifyPaymentSucceeded(ctx context.Context, sub order.Submission, res payment.Result) error
	NotifyTransferVerified(ctx context.Context, sub order.Submission, reference string, verifiedAt time.Time) error
}

// Dispatch forwards a change to n. Changes that need no email are ignored.
func Dispatch(ctx context.Context, change *LedgerChange, n Notifier) error {
	if change == nil {
		return nil
	}
	if change.TransferVerified() {
		return n.NotifyTransferVerified(ctx, change.New.Submission, change.New.PaymentReference, change.New.UpdatedAt)
	}
	if res, ok := change.PaymentSucceeded(); ok {
		return n.NotifyPaymentSucceeded(ctx, change.New.Submission, res)
	}
	return nil
}
