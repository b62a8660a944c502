package order

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/example/merch-storefront/internal/payment"
)

type Status string

const (
	StatusSubmitted        Status = "submitted"
	StatusAwaitingTransfer Status = "awaiting_transfer"
	StatusPaid             Status = "paid"
	StatusFailed           Status = "failed"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrEmptyOrder       = errors.New("order must have at least one item")
	ErrInvalidStatus    = errors.New("invalid order status transition")
	ErrOrderAlreadyPaid = errors.New("order is already paid")
	ErrNotAwaiting      = errors.New("order is not awaiting a bank transfer")
	ErrUnknownEvent     = errors.New("unknown order event")
)

// validTransitions defines allowed state transitions. A failed order can be
// submitted again under the same id.
var validTransitions = map[Status][]Status{
	StatusSubmitted:        {StatusSubmitted, StatusAwaitingTransfer, StatusPaid, StatusFailed},
	StatusFailed:           {StatusSubmitted, StatusFailed},
	StatusAwaitingTransfer: {StatusPaid},
	StatusPaid:             {}, // terminal state
}

// Record is the ledger entry for one order
type Record struct {
	Submission
	Status           Status    `json:"status"`
	PaymentReference string    `json:"payment_reference,omitempty"`
	FailureReason    string    `json:"failure_reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Version          int       `json:"version"`
}

// CanTransitionTo checks if the record can move to the target status
func (r *Record) CanTransitionTo(target Status) bool {
	return slices.Contains(validTransitions[r.Status], target)
}

func (r *Record) transitionError(target Status) error {
	switch {
	case r.Status == "":
		return ErrOrderNotFound
	case r.Status == StatusPaid:
		return ErrOrderAlreadyPaid
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, r.Status, target)
	}
}

func (r *Record) transition(target Status, at time.Time) error {
	if r.Status == "" && target == StatusSubmitted {
		r.Status = target
		r.UpdatedAt = at
		return nil
	}
	if !r.CanTransitionTo(target) {
		return r.transitionError(target)
	}
	r.Status = target
	r.UpdatedAt = at
	return nil
}

// Apply folds one event into the record
func (r *Record) Apply(e Event) error {
	switch e.Type {
	case EventOrderSubmitted:
		var data OrderSubmitted
		if err := e.Decode(&data); err != nil {
			return err
		}
		if len(data.Items) == 0 {
			return ErrEmptyOrder
		}
		if err := r.transition(StatusSubmitted, data.SubmittedAt); err != nil {
			return err
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = data.SubmittedAt
		}
		r.Submission = data.Submission
		r.PaymentReference = ""
		r.FailureReason = ""

	case EventPaymentSucceeded:
		var data PaymentSucceeded
		if err := e.Decode(&data); err != nil {
			return err
		}
		target := StatusPaid
		if data.Result.Status == payment.StatusPendingTransfer {
			target = StatusAwaitingTransfer
		}
		if err := r.transition(target, data.SucceededAt); err != nil {
			return err
		}
		r.Method = data.Result.Method
		r.PaymentReference = data.Result.Reference
		r.FailureReason = ""

	case EventPaymentFailed:
		var data PaymentFailed
		if err := e.Decode(&data); err != nil {
			return err
		}
		if err := r.transition(StatusFailed, data.FailedAt); err != nil {
			return err
		}
		r.Method = data.Method
		r.FailureReason = data.Reason

	case EventBankTransferVerified:
		var data BankTransferVerified
		if err := e.Decode(&data); err != nil {
			return err
		}
		if r.Status != StatusAwaitingTransfer {
			if r.Status == StatusPaid {
				return ErrOrderAlreadyPaid
			}
			return fmt.Errorf("%w: status is %s", ErrNotAwaiting, r.Status)
		}
		if err := r.transition(StatusPaid, data.VerifiedAt); err != nil {
			return err
		}

	default:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, e.Type)
	}

	r.OrderID = e.OrderID
	r.Version++
	return nil
}
