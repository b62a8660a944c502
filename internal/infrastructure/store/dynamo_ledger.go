package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/example/merch-storefront/internal/domain/order"
	"github.com/example/merch-storefront/internal/payment"
	"github.com/shopspring/decimal"
)

// ReferenceIndex is the GSI keyed by payment_reference
const ReferenceIndex = "reference-index"

// DynamoAPI is the subset of the DynamoDB client the ledger uses
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoLedger stores ledger records in DynamoDB. Table changes are
// streamed to Kinesis through the DynamoDB Kinesis integration, which
// feeds the serverless notifier.
type DynamoLedger struct {
	client    DynamoAPI
	tableName string
}

// DynamoItem is the table item layout. Numeric and time values are
// stored as strings so stream consumers can parse them without the SDK.
type DynamoItem struct {
	OrderID          string `dynamodbav:"order_id"`
	CustomerEmail    string `dynamodbav:"customer_email"`
	CustomerName     string `dynamodbav:"customer_name"`
	CustomerPhone    string `dynamodbav:"customer_phone"`
	CustomerAddress  string `dynamodbav:"customer_address,omitempty"`
	CustomerCity     string `dynamodbav:"customer_city,omitempty"`
	CustomerCountry  string `dynamodbav:"customer_country,omitempty"`
	Items            string `dynamodbav:"items"`
	Total            string `dynamodbav:"total"`
	Currency         string `dynamodbav:"currency"`
	PaymentMethod    string `dynamodbav:"payment_method"`
	Status           string `dynamodbav:"status"`
	PaymentReference string `dynamodbav:"payment_reference,omitempty"`
	FailureReason    string `dynamodbav:"failure_reason,omitempty"`
	SubmittedAt      string `dynamodbav:"submitted_at"`
	CreatedAt        string `dynamodbav:"created_at"`
	UpdatedAt        string `dynamodbav:"updated_at"`
	Version          int    `dynamodbav:"version"`
}

func NewDynamoLedger(client DynamoAPI, tableName string) *DynamoLedger {
	return &DynamoLedger{
		client:    client,
		tableName: tableName,
	}
}

func (l *DynamoLedger) Get(ctx context.Context, orderID string) (*order.Record, error) {
	result, err := l.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(l.tableName),
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if result.Item == nil {
		return nil, order.ErrOrderNotFound
	}
	return unmarshalRecord(result.Item)
}

func (l *DynamoLedger) FindByReference(ctx context.Context, reference string) (*order.Record, error) {
	result, err := l.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(l.tableName),
		IndexName:              aws.String(ReferenceIndex),
		KeyConditionExpression: aws.String("payment_reference = :ref"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ref": &types.AttributeValueMemberS{Value: reference},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query reference index: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, order.ErrOrderNotFound
	}
	return unmarshalRecord(result.Items[0])
}

func (l *DynamoLedger) Save(ctx context.Context, r *order.Record) error {
	item, err := ToDynamoItem(r)
	if err != nil {
		return err
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	// Optimistic locking on the version attribute
	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(order_id) OR version = :prev"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prev": &types.AttributeValueMemberN{Value: strconv.Itoa(r.Version - 1)},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrVersionConflict
		}
		return fmt.Errorf("failed to put order: %w", err)
	}
	return nil
}

// List scans the table. Intended for operator tooling on small tables.
func (l *DynamoLedger) List(ctx context.Context) ([]order.Record, error) {
	var (
		records  []order.Record
		startKey map[string]types.AttributeValue
	)
	for {
		out, err := l.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(l.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan orders: %w", err)
		}
		for _, item := range out.Items {
			r, err := unmarshalRecord(item)
			if err != nil {
				return nil, err
			}
			records = append(records, *r)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// ToDynamoItem flattens a record into the table layout
func ToDynamoItem(r *order.Record) (DynamoItem, error) {
	itemsJSON, err := json.Marshal(r.Items)
	if err != nil {
		return DynamoItem{}, fmt.Errorf("failed to marshal order items: %w", err)
	}
	return DynamoItem{
		OrderID:          r.OrderID,
		CustomerEmail:    r.CustomerEmail,
		CustomerName:     r.CustomerName,
		CustomerPhone:    r.CustomerPhone,
		CustomerAddress:  r.CustomerAddress,
		CustomerCity:     r.CustomerCity,
		CustomerCountry:  r.CustomerCountry,
		Items:            string(itemsJSON),
		Total:            r.Total.StringFixed(2),
		Currency:         r.Currency,
		PaymentMethod:    string(r.Method),
		Status:           string(r.Status),
		PaymentReference: r.PaymentReference,
		FailureReason:    r.FailureReason,
		SubmittedAt:      r.SubmittedAt.Format(time.RFC3339Nano),
		CreatedAt:        r.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:        r.UpdatedAt.Format(time.RFC3339Nano),
		Version:          r.Version,
	}, nil
}

// Record rebuilds the ledger record from the table layout
func (d DynamoItem) Record() (*order.Record, error) {
	r := &order.Record{
		Status:           order.Status(d.Status),
		PaymentReference: d.PaymentReference,
		FailureReason:    d.FailureReason,
		Version:          d.Version,
	}
	r.OrderID = d.OrderID
	r.CustomerEmail = d.CustomerEmail
	r.CustomerName = d.CustomerName
	r.CustomerPhone = d.CustomerPhone
	r.CustomerAddress = d.CustomerAddress
	r.CustomerCity = d.CustomerCity
	r.CustomerCountry = d.CustomerCountry
	r.Currency = d.Currency
	r.Method = payment.Method(d.PaymentMethod)

	var err error
	if d.Items != "" {
		if err = json.Unmarshal([]byte(d.Items), &r.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
		}
	}
	if r.Total, err = decimal.NewFromString(d.Total); err != nil {
		return nil, fmt.Errorf("failed to parse total: %w", err)
	}
	if r.SubmittedAt, err = parseTime(d.SubmittedAt); err != nil {
		return nil, fmt.Errorf("failed to parse submitted_at: %w", err)
	}
	if r.CreatedAt, err = parseTime(d.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if r.UpdatedAt, err = parseTime(d.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return r, nil
}

func unmarshalRecord(item map[string]types.AttributeValue) (*order.Record, error) {
	var d DynamoItem
	if err := attributevalue.UnmarshalMap(item, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return d.Record()
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
