package checkout

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/merch-storefront/internal/domain/cart"
	"github.com/example/merch-storefront/internal/domain/catalog"
	"github.com/example/merch-storefront/internal/domain/order"
	"github.com/example/merch-storefront/internal/payment"
)

type Stage string

const (
	StageCart         Stage = "cart"
	StagePayment      Stage = "payment"
	StageDetails      Stage = "details"
	StageConfirmation Stage = "confirmation"
)

type PaymentState string

const (
	PaymentIdle       PaymentState = "idle"
	PaymentProcessing PaymentState = "processing"
	PaymentFailed     PaymentState = "failed"
	PaymentSucceeded  PaymentState = "succeeded"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrWrongStage        = errors.New("action not available at this checkout stage")
	ErrUnknownMethod     = payment.ErrUnknownMethod
	ErrNoMethod          = errors.New("no payment method selected")
	ErrCartLocked        = errors.New("cart can only be changed before checkout")
	ErrCannotGoBack      = errors.New("no previous checkout stage")
	ErrPaymentInProgress = errors.New("payment is being processed")
	ErrStaleResult       = errors.New("payment result does not belong to the current attempt")
)

// previous defines the one-step back transitions
var previous = map[Stage]Stage{
	StagePayment: StageCart,
	StageDetails: StagePayment,
}

var now = time.Now

// NewOrderID returns ORD- followed by the last six digits of the unix
// millisecond clock. Uniqueness is best-effort.
func NewOrderID(t time.Time) string {
	return fmt.Sprintf("ORD-%06d", t.UnixMilli()%1_000_000)
}

// Session is one checkout attempt layered on a cart. It is not safe for
// concurrent use; callers serialize access.
type Session struct {
	ID            string          `json:"id"`
	Stage         Stage           `json:"stage"`
	Cart          cart.Cart       `json:"cart"`
	Method        payment.Method  `json:"payment_method,omitempty"`
	Customer      Customer        `json:"customer"`
	OrderID       string          `json:"order_id,omitempty"`
	Currency      string          `json:"currency"`
	Payment       PaymentState    `json:"payment_status"`
	FailureReason string          `json:"failure_reason,omitempty"`
	Result        *payment.Result `json:"result,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func NewSession(id, currency string) *Session {
	t := now()
	return &Session{
		ID:        id,
		Stage:     StageCart,
		Currency:  currency,
		Payment:   PaymentIdle,
		CreatedAt: t,
		UpdatedAt: t,
	}
}

func (s *Session) touch() { s.UpdatedAt = now() }

func (s *Session) requireStage(stage Stage) error {
	if s.Stage != stage {
		return fmt.Errorf("%w: at %s, need %s", ErrWrongStage, s.Stage, stage)
	}
	return nil
}

// AddItem adds one unit of item to the cart
func (s *Session) AddItem(item catalog.Item, size string) error {
	if s.Stage != StageCart {
		return ErrCartLocked
	}
	if err := s.Cart.AddItem(item, size); err != nil {
		return err
	}
	s.touch()
	return nil
}

func (s *Session) RemoveItem(itemID int, size string) error {
	if s.Stage != StageCart {
		return ErrCartLocked
	}
	s.Cart.RemoveItem(itemID, size)
	s.touch()
	return nil
}

func (s *Session) SetQuantity(itemID int, size string, quantity int) error {
	if s.Stage != StageCart {
		return ErrCartLocked
	}
	if err := s.Cart.SetQuantity(itemID, size, quantity); err != nil {
		return err
	}
	s.touch()
	return nil
}

// ProceedToPayment leaves the cart stage
func (s *Session) ProceedToPayment() error {
	if err := s.requireStage(StageCart); err != nil {
		return err
	}
	if s.Cart.IsEmpty() {
		return ErrEmptyCart
	}
	s.Stage = StagePayment
	s.touch()
	return nil
}

// SelectMethod records the chosen method and moves to details
func (s *Session) SelectMethod(name string) error {
	if err := s.requireStage(StagePayment); err != nil {
		return err
	}
	method, err := payment.ParseMethod(strings.TrimSpace(name))
	if err != nil {
		return err
	}
	s.Method = method
	s.Stage = StageDetails
	s.touch()
	return nil
}

// Back moves one stage backwards
func (s *Session) Back() error {
	if s.Payment == PaymentProcessing {
		return ErrPaymentInProgress
	}
	prev, ok := previous[s.Stage]
	if !ok {
		return fmt.Errorf("%w: at %s", ErrCannotGoBack, s.Stage)
	}
	s.Stage = prev
	s.touch()
	return nil
}

// Submit validates the customer details and forms the order. The order id
// is assigned on the first submission and kept for retries.
func (s *Session) Submit(c Customer) (order.Submission, error) {
	if err := s.requireStage(StageDetails); err != nil {
		return order.Submission{}, err
	}
	if s.Payment == PaymentProcessing {
		return order.Submission{}, ErrPaymentInProgress
	}
	if s.Method == "" {
		return order.Submission{}, ErrNoMethod
	}
	if s.Cart.IsEmpty() {
		return order.Submission{}, ErrEmptyCart
	}

	c = c.normalized()
	if err := c.Validate(); err != nil {
		return order.Submission{}, err
	}

	t := now()
	s.Customer = c
	if s.OrderID == "" {
		s.OrderID = NewOrderID(t)
	}
	s.Payment = PaymentProcessing
	s.FailureReason = ""
	s.Result = nil
	s.UpdatedAt = t

	return s.submission(t), nil
}

func (s *Session) submission(t time.Time) order.Submission {
	lines := s.Cart.Lines()
	items := make([]order.Item, len(lines))
	for i, l := range lines {
		items[i] = order.Item{ItemID: l.ItemID, Name: l.Name, Size: l.Size, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	return order.Submission{
		OrderID:         s.OrderID,
		CustomerEmail:   s.Customer.Email,
		CustomerName:    s.Customer.Name,
		CustomerPhone:   s.Customer.Phone,
		CustomerAddress: s.Customer.Address,
		CustomerCity:    s.Customer.City,
		CustomerCountry: s.Customer.Country,
		Items:           items,
		Total:           s.Cart.Total(),
		Currency:        s.Currency,
		Method:          s.Method,
		SubmittedAt:     t,
	}
}

// ApplyResult records the adapter outcome for orderID. Success moves to
// confirmation; failure stays at details so the buyer can retry.
func (s *Session) ApplyResult(orderID string, res payment.Result) error {
	if s.Payment != PaymentProcessing || s.Stage != StageDetails || orderID != s.OrderID {
		return ErrStaleResult
	}
	if res.Success {
		s.Payment = PaymentSucceeded
		s.Result = &res
		s.Stage = StageConfirmation
	} else {
		s.Payment = PaymentFailed
		s.FailureReason = res.Error
	}
	s.touch()
	return nil
}

// Reset clears the cart and returns to a fresh cart stage under the same id
func (s *Session) Reset() {
	s.Cart.Clear()
	s.Stage = StageCart
	s.Method = ""
	s.Customer = Customer{}
	s.OrderID = ""
	s.Payment = PaymentIdle
	s.FailureReason = ""
	s.Result = nil
	s.touch()
}

func (s *Session) Processing() bool { return s.Payment == PaymentProcessing }
