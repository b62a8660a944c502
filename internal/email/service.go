package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/merch-storefront/internal/payment"
	"github.com/shopspring/decimal"
)

var ErrNoRecipient = errors.New("email has no recipient")

// OrderItem represents an item in an order for email purposes
type OrderItem struct {
	Name      string
	Size      string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the order data every template renders
type Order struct {
	OrderID       string
	CustomerName  string
	CustomerEmail string
	Items         []OrderItem
	Total         decimal.Decimal
	Currency      string
	Method        payment.Method
	Reference     string
}

// Service renders and sends the storefront's transactional emails
type Service struct {
	sender Sender
	brand  string
}

func NewService(sender Sender, brand string) *Service {
	return &Service{
		sender: sender,
		brand:  brand,
	}
}

// SendOrderConfirmation is sent once a payment succeeds
func (s *Service) SendOrderConfirmation(ctx context.Context, o Order) error {
	body, err := render(orderConfirmationTmpl, struct {
		Brand string
		Order
		MethodLabel string
	}{s.brand, o, o.Method.Label()})
	if err != nil {
		return err
	}
	return s.send(ctx, o.CustomerEmail, fmt.Sprintf("Order Confirmation - Order #%s", o.OrderID), body)
}

// SendTransferInstructions tells the buyer where to send a bank transfer
func (s *Service) SendTransferInstructions(ctx context.Context, o Order, bank payment.BankDetails, instructions []string) error {
	if len(instructions) == 0 {
		instructions = payment.TransferInstructions(o.Reference, o.Total, o.Currency)
	}
	body, err := render(transferInstructionsTmpl, struct {
		Brand string
		Order
		Bank         payment.BankDetails
		Instructions []string
	}{s.brand, o, bank, instructions})
	if err != nil {
		return err
	}
	return s.send(ctx, o.CustomerEmail, fmt.Sprintf("Bank Transfer Instructions - Order #%s", o.OrderID), body)
}

// SendPaymentConfirmed is sent when a bank transfer has been verified
func (s *Service) SendPaymentConfirmed(ctx context.Context, o Order, verifiedAt time.Time) error {
	body, err := render(paymentConfirmedTmpl, struct {
		Brand string
		Order
		VerifiedAt string
	}{s.brand, o, verifiedAt.UTC().Format("2006-01-02 15:04 MST")})
	if err != nil {
		return err
	}
	return s.send(ctx, o.CustomerEmail, fmt.Sprintf("Payment Confirmed - Order #%s", o.OrderID), body)
}

func (s *Service) send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return ErrNoRecipient
	}
	return s.sender.Send(ctx, Message{To: to, Subject: subject, HTML: body})
}
