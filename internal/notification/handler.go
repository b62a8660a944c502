package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/merch-storefront/internal/domain/order"
	"github.com/example/merch-storefront/internal/email"
	"github.com/example/merch-storefront/internal/infrastructure/store"
	"github.com/example/merch-storefront/internal/payment"
	"go.uber.org/zap"
)

const maxPending = 10_000

// Mailer sends the storefront's transactional emails
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, o email.Order) error
	SendTransferInstructions(ctx context.Context, o email.Order, bank payment.BankDetails, instructions []string) error
	SendPaymentConfirmed(ctx context.Context, o email.Order, verifiedAt time.Time) error
}

// Handler turns order events into customer emails. Submissions seen on
// the stream are kept until the order no longer needs mail; anything else
// is looked up in the ledger.
type Handler struct {
	mailer Mailer
	ledger store.OrderLedger
	bank   payment.BankDetails
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]order.Submission
}

// NewHandler creates a notification handler. ledger may be nil.
func NewHandler(mailer Mailer, ledger store.OrderLedger, bank payment.BankDetails, logger *zap.Logger) *Handler {
	return &Handler{
		mailer:  mailer,
		ledger:  ledger,
		bank:    bank,
		logger:  logger.Named("notifier"),
		pending: make(map[string]order.Submission),
	}
}

// HandleEvent processes one JSON encoded order.Event
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event order.Event
	if err := json.Unmarshal(value, &event); err != nil {
		h.logger.Error("failed to unmarshal event", zap.Error(err))
		return err
	}

	switch event.Type {
	case order.EventOrderSubmitted:
		var e order.OrderSubmitted
		if err := event.Decode(&e); err != nil {
			return err
		}
		h.remember(e.Submission)

	case order.EventPaymentSucceeded:
		var e order.PaymentSucceeded
		if err := event.Decode(&e); err != nil {
			return err
		}
		sub, ok := h.lookup(ctx, event.OrderID)
		if !ok {
			return nil
		}
		return h.NotifyPaymentSucceeded(ctx, sub, e.Result)

	case order.EventBankTransferVerified:
		var e order.BankTransferVerified
		if err := event.Decode(&e); err != nil {
			return err
		}
		sub, ok := h.lookup(ctx, event.OrderID)
		if !ok {
			return nil
		}
		return h.NotifyTransferVerified(ctx, sub, e.Reference, e.VerifiedAt)
	}

	return nil
}

// NotifyPaymentSucceeded sends the order confirmation and, for bank
// transfers, the transfer instructions
func (h *Handler) NotifyPaymentSucceeded(ctx context.Context, sub order.Submission, res payment.Result) error {
	msg := toEmailOrder(sub, res.Reference)
	if res.Method != "" {
		msg.Method = res.Method
	}

	if err := h.mailer.SendOrderConfirmation(ctx, msg); err != nil {
		h.logger.Error("failed to send order confirmation", zap.String("order_id", sub.OrderID), zap.Error(err))
		return fmt.Errorf("order confirmation for %s: %w", sub.OrderID, err)
	}
	h.logger.Info("order confirmation sent", zap.String("order_id", sub.OrderID), zap.String("to", sub.CustomerEmail))

	if msg.Method != payment.MethodBankTransfer {
		h.forget(sub.OrderID)
		return nil
	}

	bank := h.bank
	if res.BankDetails != nil {
		bank = *res.BankDetails
	}
	if err := h.mailer.SendTransferInstructions(ctx, msg, bank, res.Instructions); err != nil {
		h.logger.Error("failed to send transfer instructions", zap.String("order_id", sub.OrderID), zap.Error(err))
		return fmt.Errorf("transfer instructions for %s: %w", sub.OrderID, err)
	}
	h.logger.Info("transfer instructions sent", zap.String("order_id", sub.OrderID), zap.String("reference", res.Reference))
	return nil
}

// NotifyTransferVerified confirms a verified bank transfer to the buyer
func (h *Handler) NotifyTransferVerified(ctx context.Context, sub order.Submission, reference string, verifiedAt time.Time) error {
	if err := h.mailer.SendPaymentConfirmed(ctx, toEmailOrder(sub, reference), verifiedAt); err != nil {
		h.logger.Error("failed to send payment confirmation", zap.String("order_id", sub.OrderID), zap.Error(err))
		return fmt.Errorf("payment confirmation for %s: %w", sub.OrderID, err)
	}
	h.forget(sub.OrderID)
	h.logger.Info("payment confirmation sent", zap.String("order_id", sub.OrderID), zap.String("reference", reference))
	return nil
}

func (h *Handler) remember(sub order.Submission) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.pending[sub.OrderID]; !ok && len(h.pending) >= maxPending {
		for id := range h.pending {
			delete(h.pending, id)
			break
		}
	}
	h.pending[sub.OrderID] = sub
}

func (h *Handler) forget(orderID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, orderID)
}

func (h *Handler) lookup(ctx context.Context, orderID string) (order.Submission, bool) {
	h.mu.Lock()
	sub, ok := h.pending[orderID]
	h.mu.Unlock()
	if ok {
		return sub, true
	}

	if h.ledger != nil {
		r, err := h.ledger.Get(ctx, orderID)
		if err == nil {
			return r.Submission, true
		}
		if !errors.Is(err, order.ErrOrderNotFound) {
			h.logger.Error("error loading order", zap.String("order_id", orderID), zap.Error(err))
			return order.Submission{}, false
		}
	}

	h.logger.Warn("order not found, skipping notification", zap.String("order_id", orderID))
	return order.Submission{}, false
}

func toEmailOrder(sub order.Submission, reference string) email.Order {
	items := make([]email.OrderItem, len(sub.Items))
	for i, it := range sub.Items {
		items[i] = email.OrderItem{
			Name:      it.Name,
			Size:      it.Size,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}
	return email.Order{
		OrderID:       sub.OrderID,
		CustomerName:  sub.CustomerName,
		CustomerEmail: sub.CustomerEmail,
		Items:         items,
		Total:         sub.Total,
		Currency:      sub.Currency,
		Method:        sub.Method,
		Reference:     reference,
	}
}
