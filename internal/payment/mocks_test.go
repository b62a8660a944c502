package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type mockWalletGateway struct {
	CreateOrderCalls  []WalletOrder
	CaptureOrderCalls []string
	CreateOrderFunc   func(order WalletOrder) (string, error)
	CaptureOrderFunc  func(id string) (WalletCapture, error)
}

func (m *mockWalletGateway) CreateOrder(ctx context.Context, order WalletOrder) (string, error) {
	m.CreateOrderCalls = append(m.CreateOrderCalls, order)
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(order)
	}
	return "WO-1", nil
}

func (m *mockWalletGateway) CaptureOrder(ctx context.Context, id string) (WalletCapture, error) {
	m.CaptureOrderCalls = append(m.CaptureOrderCalls, id)
	if m.CaptureOrderFunc != nil {
		return m.CaptureOrderFunc(id)
	}
	return WalletCapture{ID: "CAP-1", Status: walletCaptureSuccess}, nil
}

type mockMobileMoneyGateway struct {
	mu         sync.Mutex
	PushCalls  []PushRequest
	QueryCalls int
	PushFunc   func(req PushRequest) (string, error)
	QueryFunc  func(call int) (PushResult, error)
}

func (m *mockMobileMoneyGateway) InitiatePush(ctx context.Context, req PushRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PushCalls = append(m.PushCalls, req)
	if m.PushFunc != nil {
		return m.PushFunc(req)
	}
	return "checkout-1", nil
}

func (m *mockMobileMoneyGateway) QueryStatus(ctx context.Context, checkoutID string) (PushResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCalls++
	if m.QueryFunc != nil {
		return m.QueryFunc(m.QueryCalls)
	}
	return PushResult{Status: PushPending}, nil
}

func (m *mockMobileMoneyGateway) queries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.QueryCalls
}

// receive waits for the single result and checks the channel is closed after it
func receive(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case res, ok := <-ch:
		require.True(t, ok, "channel closed without a result")
		select {
		case _, open := <-ch:
			require.False(t, open, "adapter sent more than one result")
		case <-time.After(time.Second):
			t.Fatal("channel not closed after result")
		}
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for payment result")
	}
	return Result{}
}
