package api

import (
	"github.com/example/merch-storefront/internal/domain/cart"
	"github.com/example/merch-storefront/internal/domain/checkout"
	"github.com/example/merch-storefront/internal/payment"
	"github.com/shopspring/decimal"
)

type LineView struct {
	cart.Line
	Subtotal decimal.Decimal `json:"subtotal"`
}

// SessionView is everything a client needs to render the current checkout stage
type SessionView struct {
	Stage         checkout.Stage        `json:"stage"`
	Lines         []LineView            `json:"lines"`
	Total         decimal.Decimal       `json:"total"`
	ItemCount     int                   `json:"item_count"`
	Currency      string                `json:"currency"`
	Method        payment.Method        `json:"payment_method,omitempty"`
	MethodLabel   string                `json:"payment_method_label,omitempty"`
	OrderID       string                `json:"order_id,omitempty"`
	PaymentStatus checkout.PaymentState `json:"payment_status"`
	FailureReason string                `json:"failure_reason,omitempty"`
	Customer      *checkout.Customer    `json:"customer,omitempty"`
	Result        *payment.Result       `json:"result,omitempty"`
	Instructions  []string              `json:"instructions,omitempty"`
}

func newSessionView(s *checkout.Session) SessionView {
	lines := s.Cart.Lines()
	views := make([]LineView, len(lines))
	for i, l := range lines {
		views[i] = LineView{Line: l, Subtotal: l.Subtotal()}
	}

	v := SessionView{
		Stage:         s.Stage,
		Lines:         views,
		Total:         s.Cart.Total(),
		ItemCount:     s.Cart.ItemCount(),
		Currency:      s.Currency,
		Method:        s.Method,
		OrderID:       s.OrderID,
		PaymentStatus: s.Payment,
		FailureReason: s.FailureReason,
		Result:        s.Result,
		Instructions:  s.Instructions(),
	}
	if s.Method != "" {
		v.MethodLabel = s.Method.Label()
	}
	if s.Customer != (checkout.Customer{}) {
		c := s.Customer
		v.Customer = &c
	}
	return v
}
