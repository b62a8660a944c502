package payment

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const referenceAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

var (
	ErrInvalidVerification = errors.New("transfer verification is incomplete")
	ErrAmountMismatch      = errors.New("transferred amount does not match the order total")
	ErrCurrencyMismatch    = errors.New("transferred currency does not match the order currency")
)

type BankDetails struct {
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number"`
	SwiftCode     string `json:"swift_code"`
	IBAN          string `json:"iban,omitempty"`
}

// TransferVerification is what the bank (or an operator) reports after a
// transfer lands
type TransferVerification struct {
	Reference       string          `json:"reference"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	SenderName      string          `json:"sender_name,omitempty"`
	SenderAccount   string          `json:"sender_account,omitempty"`
	TransactionDate string          `json:"transaction_date,omitempty"`
	BankReference   string          `json:"bank_reference,omitempty"`
}

func (v TransferVerification) Validate() error {
	switch {
	case v.Reference == "":
		return fmt.Errorf("%w: reference is required", ErrInvalidVerification)
	case !v.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", ErrInvalidVerification)
	case v.Currency == "":
		return fmt.Errorf("%w: currency is required", ErrInvalidVerification)
	}
	return nil
}

// Matches checks the verification against the expected order amount
func (v TransferVerification) Matches(amount decimal.Decimal, currency string) error {
	if !v.Amount.Equal(amount) {
		return fmt.Errorf("%w: got %s, want %s", ErrAmountMismatch, v.Amount.StringFixed(2), amount.StringFixed(2))
	}
	if v.Currency != currency {
		return fmt.Errorf("%w: got %s, want %s", ErrCurrencyMismatch, v.Currency, currency)
	}
	return nil
}

// TransferInstructions are the steps shown to a buyer paying by transfer
func TransferInstructions(reference string, amount decimal.Decimal, currency string) []string {
	return []string{
		fmt.Sprintf("Transfer exactly %s %s to the account details provided", currency, amount.StringFixed(2)),
		fmt.Sprintf("Use reference: %s (IMPORTANT: This must be included in your transfer)", reference),
		"Your order will be processed once we verify the payment (1-3 business days)",
		"Keep your bank transfer receipt for your records",
		"Contact us if you don't receive confirmation within 3 business days",
	}
}

type BankTransferAdapter struct {
	details BankDetails
	prefix  string
	now     func() time.Time
	logger  *zap.Logger
}

func NewBankTransferAdapter(details BankDetails, referencePrefix string, logger *zap.Logger) *BankTransferAdapter {
	return &BankTransferAdapter{
		details: details,
		prefix:  referencePrefix,
		now:     time.Now,
		logger:  logger.Named("bank_transfer"),
	}
}

func (a *BankTransferAdapter) Method() Method { return MethodBankTransfer }

func (a *BankTransferAdapter) Details() BankDetails { return a.details }

// NewReference returns <prefix>-<unix millis>-<9 base36 chars>
func (a *BankTransferAdapter) NewReference() string {
	return fmt.Sprintf("%s-%d-%s", a.prefix, a.now().UnixMilli(), randomBase36(9))
}

func (a *BankTransferAdapter) Pay(ctx context.Context, req Request) <-chan Result {
	return deliver(func() Result {
		if err := ctx.Err(); err != nil {
			return Failure(MethodBankTransfer, reasonCancelled)
		}

		reference := a.NewReference()
		details := a.details
		a.logger.Info("transfer order created",
			zap.String("order_id", req.OrderID),
			zap.String("reference", reference),
			zap.String("amount", req.Amount.StringFixed(2)),
		)
		return Result{
			Success:      true,
			Method:       MethodBankTransfer,
			Reference:    reference,
			Amount:       req.Amount,
			Currency:     req.Currency,
			Status:       StatusPendingTransfer,
			BankDetails:  &details,
			Instructions: TransferInstructions(reference, req.Amount, req.Currency),
		}
	})
}

func randomBase36(n int) string {
	base := big.NewInt(int64(len(referenceAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, base)
		if err != nil {
			idx = big.NewInt(int64(time.Now().UnixNano() % int64(len(referenceAlphabet))))
		}
		out[i] = referenceAlphabet[idx.Int64()]
	}
	return string(out)
}
