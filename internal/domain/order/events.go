package order

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/merch-storefront/internal/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderSubmitted       = "OrderSubmitted"
	EventPaymentSucceeded     = "PaymentSucceeded"
	EventPaymentFailed        = "PaymentFailed"
	EventBankTransferVerified = "BankTransferVerified"
)

type Item struct {
	ItemID    int             `json:"item_id"`
	Name      string          `json:"name"`
	Size      string          `json:"size,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Submission is the order request formed when the buyer submits details
type Submission struct {
	OrderID         string          `json:"order_id"`
	CustomerEmail   string          `json:"customer_email"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerAddress string          `json:"customer_address,omitempty"`
	CustomerCity    string          `json:"customer_city,omitempty"`
	CustomerCountry string          `json:"customer_country,omitempty"`
	Items           []Item          `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	Method          payment.Method  `json:"payment_method"`
	SubmittedAt     time.Time       `json:"submitted_at"`
}

// PaymentRequest is the adapter input for this submission
func (s Submission) PaymentRequest() payment.Request {
	items := make([]payment.LineItem, len(s.Items))
	for i, it := range s.Items {
		items[i] = payment.LineItem{Name: it.Name, Size: it.Size, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return payment.Request{
		OrderID:       s.OrderID,
		Amount:        s.Total,
		Currency:      s.Currency,
		Items:         items,
		CustomerEmail: s.CustomerEmail,
		CustomerName:  s.CustomerName,
		CustomerPhone: s.CustomerPhone,
	}
}

type OrderSubmitted struct {
	Submission
}

type PaymentSucceeded struct {
	OrderID     string         `json:"order_id"`
	Result      payment.Result `json:"result"`
	SucceededAt time.Time      `json:"succeeded_at"`
}

type PaymentFailed struct {
	OrderID  string         `json:"order_id"`
	Method   payment.Method `json:"payment_method"`
	Reason   string         `json:"reason"`
	FailedAt time.Time      `json:"failed_at"`
}

type BankTransferVerified struct {
	OrderID       string          `json:"order_id"`
	Reference     string          `json:"reference"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	BankReference string          `json:"bank_reference,omitempty"`
	VerifiedAt    time.Time       `json:"verified_at"`
}

// Event is the envelope carried on the order topic
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"event_type"`
	OrderID    string          `json:"order_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

func NewEvent(eventType, orderID string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		OrderID:    orderID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}, nil
}

// Decode unmarshals the payload into v
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", e.Type, err)
	}
	return nil
}

func Submitted(s Submission) (Event, error) {
	return NewEvent(EventOrderSubmitted, s.OrderID, OrderSubmitted{Submission: s})
}

func Succeeded(orderID string, res payment.Result) (Event, error) {
	return NewEvent(EventPaymentSucceeded, orderID, PaymentSucceeded{OrderID: orderID, Result: res, SucceededAt: time.Now().UTC()})
}

func Failed(orderID string, method payment.Method, reason string) (Event, error) {
	return NewEvent(EventPaymentFailed, orderID, PaymentFailed{OrderID: orderID, Method: method, Reason: reason, FailedAt: time.Now().UTC()})
}

func TransferVerified(orderID string, v payment.TransferVerification) (Event, error) {
	return NewEvent(EventBankTransferVerified, orderID, BankTransferVerified{
		OrderID:       orderID,
		Reference:     v.Reference,
		Amount:        v.Amount,
		Currency:      v.Currency,
		BankReference: v.BankReference,
		VerifiedAt:    time.Now().UTC(),
	})
}
