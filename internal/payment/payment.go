package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodWallet       Method = "wallet"
	MethodBankTransfer Method = "bank_transfer"
	MethodMobileMoney  Method = "mobile_money"
)

// Methods lists the supported methods in display order
var Methods = []Method{MethodWallet, MethodBankTransfer, MethodMobileMoney}

var (
	ErrUnknownMethod      = errors.New("unknown payment method")
	ErrAdapterMissing     = errors.New("no adapter registered for payment method")
	ErrGatewayRejected    = errors.New("payment gateway rejected the request")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// ParseMethod validates a client supplied method name
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

func (m Method) Label() string {
	switch m {
	case MethodWallet:
		return "Online wallet"
	case MethodBankTransfer:
		return "Bank transfer"
	case MethodMobileMoney:
		return "Mobile money"
	}
	return string(m)
}

type Status string

const (
	StatusCompleted       Status = "completed"
	StatusPendingTransfer Status = "pending_transfer"
)

type LineItem struct {
	Name      string          `json:"name"`
	Size      string          `json:"size,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type Request struct {
	OrderID       string          `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Items         []LineItem      `json:"items"`
	CustomerEmail string          `json:"customer_email"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
}

// Result is the single outcome an adapter reports for one Pay call
type Result struct {
	Success      bool            `json:"success"`
	Method       Method          `json:"method,omitempty"`
	Reference    string          `json:"transaction_or_reference,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency,omitempty"`
	Status       Status          `json:"status,omitempty"`
	PayerEmail   string          `json:"payer_email,omitempty"`
	BankDetails  *BankDetails    `json:"bank_details,omitempty"`
	Instructions []string        `json:"instructions,omitempty"`
	Error        string          `json:"error,omitempty"`
}

func Failure(method Method, reason string) Result {
	return Result{Method: method, Error: reason}
}

// MarshalJSON drops the success-only fields from failures
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Method  Method `json:"method,omitempty"`
			Error   string `json:"error"`
		}{false, r.Method, r.Error})
	}
	type plain Result
	return json.Marshal(plain(r))
}

// Adapter performs one payment method. Pay returns immediately; the channel
// receives exactly one Result and is then closed.
type Adapter interface {
	Method() Method
	Pay(ctx context.Context, req Request) <-chan Result
}

// Registry resolves the adapter for a chosen method
type Registry struct {
	adapters map[Method]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Method]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Method()] = a
	}
	return r
}

func (r *Registry) Get(m Method) (Adapter, error) {
	a, ok := r.adapters[m]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdapterMissing, m)
	}
	return a, nil
}

func deliver(run func() Result) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		ch <- run()
	}()
	return ch
}
