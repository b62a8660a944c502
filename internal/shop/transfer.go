package shop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/merch-storefront/internal/domain/order"
	"github.com/example/merch-storefront/internal/payment"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TransferPendingVerification = "pending_verification"
	TransferVerified            = "verified"
)

// TransferStatus is the verification state of one bank-transfer reference
type TransferStatus struct {
	Reference string          `json:"reference"`
	OrderID   string          `json:"order_id"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func transferStatus(r *order.Record) TransferStatus {
	status := string(r.Status)
	switch r.Status {
	case order.StatusAwaitingTransfer:
		status = TransferPendingVerification
	case order.StatusPaid:
		status = TransferVerified
	}
	return TransferStatus{
		Reference: r.PaymentReference,
		OrderID:   r.OrderID,
		Status:    status,
		Amount:    r.Total,
		Currency:  r.Currency,
		UpdatedAt: r.UpdatedAt,
	}
}

// VerifyTransfer matches a bank's report against the order awaiting that
// reference and publishes BankTransferVerified
func (s *Service) VerifyTransfer(ctx context.Context, v payment.TransferVerification) (TransferStatus, error) {
	if err := v.Validate(); err != nil {
		return TransferStatus{}, err
	}

	r, err := s.ledger.FindByReference(ctx, v.Reference)
	if err != nil {
		return TransferStatus{}, err
	}
	if r.Method != payment.MethodBankTransfer {
		return TransferStatus{}, fmt.Errorf("%w: paid by %s", order.ErrNotAwaiting, r.Method)
	}
	switch r.Status {
	case order.StatusPaid:
		return TransferStatus{}, order.ErrOrderAlreadyPaid
	case order.StatusAwaitingTransfer:
	default:
		return TransferStatus{}, fmt.Errorf("%w: status %s", order.ErrNotAwaiting, r.Status)
	}
	if err := v.Matches(r.Total, r.Currency); err != nil {
		return TransferStatus{}, err
	}

	e, err := order.TransferVerified(r.OrderID, v)
	if err != nil {
		return TransferStatus{}, err
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		return TransferStatus{}, fmt.Errorf("publish verification: %w", err)
	}

	s.logger.Info("bank transfer verified",
		zap.String("order_id", r.OrderID),
		zap.String("reference", v.Reference),
		zap.String("bank_reference", v.BankReference),
	)

	status := transferStatus(r)
	status.Status = TransferVerified
	status.UpdatedAt = e.OccurredAt
	return status, nil
}

// TransferStatusOf reports the verification state for a reference
func (s *Service) TransferStatusOf(ctx context.Context, reference string) (TransferStatus, error) {
	r, err := s.ledger.FindByReference(ctx, reference)
	if err != nil {
		return TransferStatus{}, err
	}
	if r.Method != payment.MethodBankTransfer {
		return TransferStatus{}, order.ErrOrderNotFound
	}
	return transferStatus(r), nil
}

// IsVerificationError reports whether err came from a malformed or
// mismatched verification
func IsVerificationError(err error) bool {
	return errors.Is(err, payment.ErrInvalidVerification) ||
		errors.Is(err, payment.ErrAmountMismatch) ||
		errors.Is(err, payment.ErrCurrencyMismatch)
}
