package payment

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testBankDetails = BankDetails{
	BankName:      "Example Music Bank",
	AccountName:   "Example Music LLC",
	AccountNumber: "1234567890",
	RoutingNumber: "021000021",
	SwiftCode:     "EXMBANKXXX",
}

func TestBankTransferAdapter_NewReference(t *testing.T) {
	adapter := NewBankTransferAdapter(testBankDetails, "JH", zap.NewNop())
	adapter.now = func() time.Time { return time.UnixMilli(1700000000123) }

	ref := adapter.NewReference()

	assert.Regexp(t, regexp.MustCompile(`^JH-1700000000123-[0-9a-z]{9}$`), ref)
	assert.NotEqual(t, ref, adapter.NewReference())
}

func TestBankTransferAdapter_Pay(t *testing.T) {
	adapter := NewBankTransferAdapter(testBankDetails, "JH", zap.NewNop())

	res := receive(t, adapter.Pay(context.Background(), testRequest()))

	require.True(t, res.Success)
	assert.Equal(t, MethodBankTransfer, res.Method)
	assert.Equal(t, StatusPendingTransfer, res.Status)
	assert.Regexp(t, `^JH-\d+-[0-9a-z]{9}$`, res.Reference)
	require.NotNil(t, res.BankDetails)
	assert.Equal(t, testBankDetails, *res.BankDetails)
	require.Len(t, res.Instructions, 5)
	assert.Equal(t, "Transfer exactly USD 60.00 to the account details provided", res.Instructions[0])
	assert.Contains(t, res.Instructions[1], res.Reference)
}

func TestBankTransferAdapter_Pay_CancelledContext(t *testing.T) {
	adapter := NewBankTransferAdapter(testBankDetails, "JH", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := receive(t, adapter.Pay(ctx, testRequest()))

	assert.False(t, res.Success)
}

func TestTransferInstructions(t *testing.T) {
	lines := TransferInstructions("JH-1-abc", decimal.RequireFromString("12.5"), "EUR")

	assert.Equal(t, []string{
		"Transfer exactly EUR 12.50 to the account details provided",
		"Use reference: JH-1-abc (IMPORTANT: This must be included in your transfer)",
		"Your order will be processed once we verify the payment (1-3 business days)",
		"Keep your bank transfer receipt for your records",
		"Contact us if you don't receive confirmation within 3 business days",
	}, lines)
}

// ============================================
// Verification Tests
// ============================================

func TestTransferVerification_Validate(t *testing.T) {
	tests := []struct {
		name    string
		v       TransferVerification
		wantErr bool
	}{
		{"complete", TransferVerification{Reference: "JH-1-a", Amount: decimal.NewFromInt(60), Currency: "USD"}, false},
		{"missing reference", TransferVerification{Amount: decimal.NewFromInt(60), Currency: "USD"}, true},
		{"zero amount", TransferVerification{Reference: "JH-1-a", Currency: "USD"}, true},
		{"negative amount", TransferVerification{Reference: "JH-1-a", Amount: decimal.NewFromInt(-1), Currency: "USD"}, true},
		{"missing currency", TransferVerification{Reference: "JH-1-a", Amount: decimal.NewFromInt(60)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidVerification)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransferVerification_Matches(t *testing.T) {
	v := TransferVerification{Reference: "JH-1-a", Amount: decimal.RequireFromString("60.00"), Currency: "USD"}

	assert.NoError(t, v.Matches(decimal.NewFromInt(60), "USD"))
	assert.ErrorIs(t, v.Matches(decimal.NewFromInt(61), "USD"), ErrAmountMismatch)
	assert.ErrorIs(t, v.Matches(decimal.NewFromInt(60), "EUR"), ErrCurrencyMismatch)
}
