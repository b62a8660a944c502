package shop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/merch-storefront/internal/domain/cart"
	"github.com/example/merch-storefront/internal/domain/catalog"
	"github.com/example/merch-storefront/internal/domain/checkout"
	"github.com/example/merch-storefront/internal/domain/order"
	"github.com/example/merch-storefront/internal/infrastructure/store/mocks"
	"github.com/example/merch-storefront/internal/payment"
	"github.com/example/merch-storefront/internal/session"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sessionID = "sess-1"

type recordingPublisher struct {
	mu     sync.Mutex
	events []order.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e order.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// fakeAdapter hands every Pay call a result sent by the test, or closes the
// channel when the payment context is cancelled
type fakeAdapter struct {
	method  payment.Method
	results chan payment.Result

	mu       sync.Mutex
	requests []payment.Request
}

func newFakeAdapter(m payment.Method) *fakeAdapter {
	return &fakeAdapter{method: m, results: make(chan payment.Result, 4)}
}

func (a *fakeAdapter) Method() payment.Method { return a.method }

func (a *fakeAdapter) Pay(ctx context.Context, req payment.Request) <-chan payment.Result {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	a.mu.Unlock()

	ch := make(chan payment.Result, 1)
	go func() {
		defer close(ch)
		select {
		case res := <-a.results:
			ch <- res
		case <-ctx.Done():
		}
	}()
	return ch
}

func (a *fakeAdapter) calls() []payment.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]payment.Request(nil), a.requests...)
}

type testService struct {
	*Service
	sessions  *session.MemoryStore
	ledger    *mocks.MockOrderLedger
	publisher *recordingPublisher
	wallet    *fakeAdapter
	bank      *fakeAdapter
}

func newTestService(t *testing.T) *testService {
	t.Helper()
	sessions := session.NewMemoryStore(time.Hour)
	ledger := mocks.NewMockOrderLedger()
	publisher := &recordingPublisher{}
	wallet := newFakeAdapter(payment.MethodWallet)
	bank := newFakeAdapter(payment.MethodBankTransfer)

	svc := NewService(catalog.Default(), sessions, payment.NewRegistry(wallet, bank), ledger, publisher, "USD", zap.NewNop())
	t.Cleanup(svc.Close)

	return &testService{Service: svc, sessions: sessions, ledger: ledger, publisher: publisher, wallet: wallet, bank: bank}
}

func fan() checkout.Customer {
	return checkout.Customer{Email: "fan@example.com", Name: "Sam Fan", Phone: "0712345678"}
}

// toDetails fills the cart with a vinyl and walks to the details stage
func (ts *testService) toDetails(t *testing.T, method payment.Method) {
	t.Helper()
	ctx := context.Background()
	_, err := ts.AddToCart(ctx, AddToCart{SessionID: sessionID, ItemID: 2})
	require.NoError(t, err)
	_, err = ts.ProceedToPayment(ctx, sessionID)
	require.NoError(t, err)
	_, err = ts.SelectMethod(ctx, SelectMethod{SessionID: sessionID, Method: string(method)})
	require.NoError(t, err)
}

func (ts *testService) waitIdle(t *testing.T) *checkout.Session {
	t.Helper()
	require.Eventually(t, func() bool { return !ts.Processing(sessionID) }, time.Second, 5*time.Millisecond)
	sess, err := ts.Session(context.Background(), sessionID)
	require.NoError(t, err)
	return sess
}

// ============================================
// Cart Tests
// ============================================

func TestService_Session_NewSessionAtCart(t *testing.T) {
	ts := newTestService(t)

	sess, err := ts.Session(context.Background(), sessionID)

	require.NoError(t, err)
	assert.Equal(t, sessionID, sess.ID)
	assert.Equal(t, checkout.StageCart, sess.Stage)
	assert.Equal(t, "USD", sess.Currency)
	assert.True(t, sess.Cart.IsEmpty())
}

func TestService_AddToCart_PersistsSession(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()

	_, err := ts.AddToCart(ctx, AddToCart{SessionID: sessionID, ItemID: 1, Size: "M"})
	require.NoError(t, err)
	sess, err := ts.AddToCart(ctx, AddToCart{SessionID: sessionID, ItemID: 1, Size: "M"})
	require.NoError(t, err)

	assert.Equal(t, 2, sess.Cart.ItemCount())
	assert.True(t, decimal.NewFromInt(50).Equal(sess.Cart.Total()))

	stored, err := ts.sessions.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Cart.ItemCount())
}

func TestService_AddToCart_SizeRequired(t *testing.T) {
	ts := newTestService(t)

	sess, err := ts.AddToCart(context.Background(), AddToCart{SessionID: sessionID, ItemID: 4})

	assert.Nil(t, sess)
	assert.ErrorIs(t, err, cart.ErrSizeRequired)
	var sizeErr *SizeRequiredError
	require.True(t, errors.As(err, &sizeErr))
	assert.Equal(t, []string{"S", "M", "L", "XL", "XXL"}, sizeErr.Item.Sizes)
}

func TestService_AddToCart_UnknownItem(t *testing.T) {
	ts := newTestService(t)

	_, err := ts.AddToCart(context.Background(), AddToCart{SessionID: sessionID, ItemID: 99})

	assert.ErrorIs(t, err, catalog.ErrItemNotFound)
	_, getErr := ts.sessions.Get(context.Background(), sessionID)
	assert.ErrorIs(t, getErr, session.ErrSessionNotFound)
}

func TestService_SetQuantityAndRemove(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()

	_, err := ts.AddToCart(ctx, AddToCart{SessionID: sessionID, ItemID: 3})
	require.NoError(t, err)

	sess, err := ts.SetQuantity(ctx, SetQuantity{SessionID: sessionID, ItemID: 3, Quantity: 4})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60).Equal(sess.Cart.Total()))

	sess, err = ts.RemoveFromCart(ctx, RemoveFromCart{SessionID: sessionID, ItemID: 3})
	require.NoError(t, err)
	assert.True(t, sess.Cart.IsEmpty())
}

func TestService_ProceedToPayment_EmptyCart(t *testing.T) {
	ts := newTestService(t)

	_, err := ts.ProceedToPayment(context.Background(), sessionID)

	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
}

// ============================================
// Checkout Tests
// ============================================

func TestService_SelectMethod_NoAdapter(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()

	_, err := ts.AddToCart(ctx, AddToCart{SessionID: sessionID, ItemID: 2})
	require.NoError(t, err)
	_, err = ts.ProceedToPayment(ctx, sessionID)
	require.NoError(t, err)

	_, err = ts.SelectMethod(ctx, SelectMethod{SessionID: sessionID, Method: string(payment.MethodMobileMoney)})
	assert.ErrorIs(t, err, payment.ErrAdapterMissing)

	sess, err := ts.Session(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, checkout.StagePayment, sess.Stage)
}

func TestService_Submit_Success(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()
	ts.toDetails(t, payment.MethodWallet)

	sess, err := ts.Submit(ctx, SubmitDetails{SessionID: sessionID, Customer: fan()})
	require.NoError(t, err)
	assert.Equal(t, checkout.PaymentProcessing, sess.Payment)
	assert.NotEmpty(t, sess.OrderID)

	ts.wallet.results <- payment.Result{
		Success:   true,
		Method:    payment.MethodWallet,
		Reference: "CAPTURE-1",
		Amount:    decimal.NewFromInt(35),
		Currency:  "USD",
		Status:    payment.StatusCompleted,
	}

	final := ts.waitIdle(t)
	assert.Equal(t, checkout.StageConfirmation, final.Stage)
	assert.Equal(t, checkout.PaymentSucceeded, final.Payment)
	require.NotNil(t, final.Result)
	assert.Equal(t, "CAPTURE-1", final.Result.Reference)
	assert.NotEmpty(t, final.Instructions())

	assert.Equal(t, []string{order.EventOrderSubmitted, order.EventPaymentSucceeded}, ts.publisher.types())

	reqs := ts.wallet.calls()
	require.Len(t, reqs, 1)
	assert.Equal(t, sess.OrderID, reqs[0].OrderID)
	assert.True(t, decimal.NewFromInt(35).Equal(reqs[0].Amount))
}

func TestService_Submit_FailureKeepsDetailsAndOrderID(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()
	ts.toDetails(t, payment.MethodWallet)

	first, err := ts.Submit(ctx, SubmitDetails{SessionID: sessionID, Customer: fan()})
	require.NoError(t, err)
	ts.wallet.results <- payment.Failure(payment.MethodWallet, "Payment was declined")

	failed := ts.waitIdle(t)
	assert.Equal(t, checkout.StageDetails, failed.Stage)
	assert.Equal(t, checkout.PaymentFailed, failed.Payment)
	assert.Equal(t, "Payment was declined", failed.FailureReason)

	retry, err := ts.Submit(ctx, SubmitDetails{SessionID: sessionID, Customer: fan()})
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, retry.OrderID)
	ts.wallet.results <- payment.Result{Success: true, Method: payment.MethodWallet, Reference: "CAPTURE-2", Amount: decimal.NewFromInt(35), Currency: "USD"}

	final := ts.waitIdle(t)
	assert.Equal(t, checkout.StageConfirmation, final.Stage)
	assert.Equal(t, []string{
		order.EventOrderSubmitted,
		order.EventPaymentFailed,
		order.EventOrderSubmitted,
		order.EventPaymentSucceeded,
	}, ts.publisher.types())
}

func TestService_Submit_MissingFields(t *testing.T) {
	ts := newTestService(t)
	ts.toDetails(t, payment.MethodWallet)

	_, err := ts.Submit(context.Background(), SubmitDetails{SessionID: sessionID, Customer: checkout.Customer{Email: "fan@example.com"}})

	assert.ErrorIs(t, err, checkout.ErrMissingField)
	assert.Empty(t, ts.publisher.types())
	assert.Empty(t, ts.wallet.calls())
}

func TestService_Submit_WhileProcessing(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()
	ts.toDetails(t, payment.MethodWallet)

	_, err := ts.Submit(ctx, SubmitDetails{SessionID: sessionID, Customer: fan()})
	require.NoError(t, err)

	_, err = ts.Submit(ctx, SubmitDetails{SessionID: sessionID, Customer: fan()})
	assert.ErrorIs(t, err, checkout.ErrPaymentInProgress)

	_, err = ts.Back(ctx, sessionID)
	assert.ErrorIs(t, err, checkout.ErrPaymentInProgress)
}

func TestService_Submit_PublishFailureDoesNotBlockCheckout(t *testing.T) {
	ts := newTestService(t)
	ts.publisher.err = errors.New("broker down")
	ts.toDetails(t, payment.MethodWallet)

	_, err := ts.Submit(context.Background(), SubmitDetails{SessionID: sessionID, Customer: fan()})
	require.NoError(t, err)
	ts.wallet.results <- payment.Result{Success: true, Method: payment.MethodWallet, Reference: "CAPTURE-1", Amount: decimal.NewFromInt(35), Currency: "USD"}

	final := ts.waitIdle(t)
	assert.Equal(t, checkout.StageConfirmation, final.Stage)
}

func TestService_Reset_CancelsPayment(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()
	ts.toDetails(t, payment.MethodWallet)

	_, err := ts.Submit(ctx, SubmitDetails{SessionID: sessionID, Customer: fan()})
	require.NoError(t, err)

	sess, err := ts.Reset(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, checkout.StageCart, sess.Stage)
	assert.True(t, sess.Cart.IsEmpty())

	require.Eventually(t, func() bool { return len(ts.publisher.types()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{order.EventOrderSubmitted, order.EventPaymentFailed}, ts.publisher.types())

	final := ts.waitIdle(t)
	assert.Equal(t, checkout.StageCart, final.Stage)
	assert.Equal(t, checkout.PaymentIdle, final.Payment)
}

func TestService_Abandon_DeletesSession(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()
	ts.toDetails(t, payment.MethodWallet)

	_, err := ts.Submit(ctx, SubmitDetails{SessionID: sessionID, Customer: fan()})
	require.NoError(t, err)

	require.NoError(t, ts.Abandon(ctx, sessionID))
	require.Eventually(t, func() bool { return !ts.Processing(sessionID) }, time.Second, 5*time.Millisecond)

	_, err = ts.sessions.Get(ctx, sessionID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

// ============================================
// Bank Transfer Verification Tests
// ============================================

func awaitingRecord(reference string) order.Record {
	return order.Record{
		Submission: order.Submission{
			OrderID:  "ORD-123456",
			Total:    decimal.NewFromInt(35),
			Currency: "USD",
			Method:   payment.MethodBankTransfer,
		},
		Status:           order.StatusAwaitingTransfer,
		PaymentReference: reference,
		Version:          2,
	}
}

func verification(reference string) payment.TransferVerification {
	return payment.TransferVerification{
		Reference:     reference,
		Amount:        decimal.NewFromInt(35),
		Currency:      "USD",
		BankReference: "BANK-99",
	}
}

func TestService_VerifyTransfer_Success(t *testing.T) {
	ts := newTestService(t)
	ts.ledger.Seed(awaitingRecord("JH-1-ABC"))

	status, err := ts.VerifyTransfer(context.Background(), verification("JH-1-ABC"))

	require.NoError(t, err)
	assert.Equal(t, TransferVerified, status.Status)
	assert.Equal(t, "ORD-123456", status.OrderID)
	assert.Equal(t, []string{order.EventBankTransferVerified}, ts.publisher.types())
}

func TestService_VerifyTransfer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		record  func() order.Record
		verify  payment.TransferVerification
		wantErr error
	}{
		{
			name:    "unknown reference",
			record:  func() order.Record { return awaitingRecord("JH-1-ABC") },
			verify:  verification("JH-9-XYZ"),
			wantErr: order.ErrOrderNotFound,
		},
		{
			name: "already paid",
			record: func() order.Record {
				r := awaitingRecord("JH-1-ABC")
				r.Status = order.StatusPaid
				return r
			},
			verify:  verification("JH-1-ABC"),
			wantErr: order.ErrOrderAlreadyPaid,
		},
		{
			name:   "amount mismatch",
			record: func() order.Record { return awaitingRecord("JH-1-ABC") },
			verify: func() payment.TransferVerification {
				v := verification("JH-1-ABC")
				v.Amount = decimal.NewFromInt(30)
				return v
			}(),
			wantErr: payment.ErrAmountMismatch,
		},
		{
			name:   "currency mismatch",
			record: func() order.Record { return awaitingRecord("JH-1-ABC") },
			verify: func() payment.TransferVerification {
				v := verification("JH-1-ABC")
				v.Currency = "EUR"
				return v
			}(),
			wantErr: payment.ErrCurrencyMismatch,
		},
		{
			name:    "incomplete verification",
			record:  func() order.Record { return awaitingRecord("JH-1-ABC") },
			verify:  payment.TransferVerification{Reference: "JH-1-ABC"},
			wantErr: payment.ErrInvalidVerification,
		},
		{
			name: "not a bank transfer",
			record: func() order.Record {
				r := awaitingRecord("JH-1-ABC")
				r.Method = payment.MethodWallet
				r.Status = order.StatusPaid
				return r
			},
			verify:  verification("JH-1-ABC"),
			wantErr: order.ErrNotAwaiting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestService(t)
			ts.ledger.Seed(tt.record())

			_, err := ts.VerifyTransfer(context.Background(), tt.verify)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, ts.publisher.types())
		})
	}
}

func TestService_VerifyTransfer_IsVerificationError(t *testing.T) {
	assert.True(t, IsVerificationError(payment.ErrAmountMismatch))
	assert.True(t, IsVerificationError(payment.ErrInvalidVerification))
	assert.False(t, IsVerificationError(order.ErrOrderNotFound))
}

func TestService_TransferStatusOf(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()
	ts.ledger.Seed(awaitingRecord("JH-1-ABC"))

	status, err := ts.TransferStatusOf(ctx, "JH-1-ABC")
	require.NoError(t, err)
	assert.Equal(t, TransferPendingVerification, status.Status)
	assert.True(t, decimal.NewFromInt(35).Equal(status.Amount))

	paid := awaitingRecord("JH-1-ABC")
	paid.Status = order.StatusPaid
	ts.ledger.Seed(paid)

	status, err = ts.TransferStatusOf(ctx, "JH-1-ABC")
	require.NoError(t, err)
	assert.Equal(t, TransferVerified, status.Status)

	_, err = ts.TransferStatusOf(ctx, "missing")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}
