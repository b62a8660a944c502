package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SandboxOutcome scripts how a sandbox gateway answers
type SandboxOutcome string

const (
	OutcomeApprove SandboxOutcome = "approve"
	OutcomeDecline SandboxOutcome = "decline"
	OutcomeError   SandboxOutcome = "error"
	OutcomeStall   SandboxOutcome = "stall"
)

var (
	ErrSandboxUnreachable = errors.New("sandbox gateway unreachable")
	ErrSandboxUnknownID   = errors.New("sandbox gateway does not know this id")
)

func ParseSandboxOutcome(s string) (SandboxOutcome, error) {
	switch o := SandboxOutcome(strings.ToLower(strings.TrimSpace(s))); o {
	case OutcomeApprove, OutcomeDecline, OutcomeError, OutcomeStall:
		return o, nil
	case "":
		return OutcomeApprove, nil
	}
	return "", fmt.Errorf("unknown sandbox outcome %q", s)
}

// SandboxWallet is an in-memory wallet provider
type SandboxWallet struct {
	mu         sync.Mutex
	outcome    SandboxOutcome
	payerEmail string
	orders     map[string]WalletOrder
}

func NewSandboxWallet(outcome SandboxOutcome, payerEmail string) *SandboxWallet {
	return &SandboxWallet{
		outcome:    outcome,
		payerEmail: payerEmail,
		orders:     make(map[string]WalletOrder),
	}
}

func (w *SandboxWallet) SetOutcome(o SandboxOutcome) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.outcome = o
}

func (w *SandboxWallet) CreateOrder(ctx context.Context, order WalletOrder) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.outcome == OutcomeError {
		return "", ErrSandboxUnreachable
	}
	id := "WO-" + strings.ToUpper(uuid.NewString()[:13])
	w.orders[id] = order
	return id, nil
}

func (w *SandboxWallet) CaptureOrder(ctx context.Context, walletOrderID string) (WalletCapture, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	order, ok := w.orders[walletOrderID]
	if !ok {
		return WalletCapture{}, fmt.Errorf("%w: %s", ErrSandboxUnknownID, walletOrderID)
	}
	delete(w.orders, walletOrderID)

	switch w.outcome {
	case OutcomeError:
		return WalletCapture{}, ErrSandboxUnreachable
	case OutcomeDecline:
		return WalletCapture{}, fmt.Errorf("%w: instrument declined", ErrGatewayRejected)
	case OutcomeStall:
		return WalletCapture{ID: walletOrderID, Status: "PENDING"}, nil
	}
	return WalletCapture{
		ID:         "CAP-" + strings.ToUpper(uuid.NewString()[:13]),
		Status:     walletCaptureSuccess,
		Amount:     order.Total,
		Currency:   order.Currency,
		PayerEmail: w.payerEmail,
	}, nil
}

// SandboxMobileMoney answers pending for a number of queries before
// settling according to its outcome
type SandboxMobileMoney struct {
	mu           sync.Mutex
	outcome      SandboxOutcome
	pendingPolls int
	pushes       map[string]int
	Requests     []PushRequest
}

func NewSandboxMobileMoney(outcome SandboxOutcome, pendingPolls int) *SandboxMobileMoney {
	return &SandboxMobileMoney{
		outcome:      outcome,
		pendingPolls: pendingPolls,
		pushes:       make(map[string]int),
	}
}

func (m *SandboxMobileMoney) SetOutcome(o SandboxOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcome = o
}

func (m *SandboxMobileMoney) InitiatePush(ctx context.Context, req PushRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.outcome == OutcomeError {
		return "", ErrSandboxUnreachable
	}
	m.Requests = append(m.Requests, req)
	id := "ws_CO_" + uuid.NewString()
	m.pushes[id] = 0
	return id, nil
}

func (m *SandboxMobileMoney) QueryStatus(ctx context.Context, checkoutID string) (PushResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	polls, ok := m.pushes[checkoutID]
	if !ok {
		return PushResult{}, fmt.Errorf("%w: %s", ErrSandboxUnknownID, checkoutID)
	}
	m.pushes[checkoutID] = polls + 1

	if m.outcome == OutcomeStall || polls < m.pendingPolls {
		return PushResult{Status: PushPending}, nil
	}
	switch m.outcome {
	case OutcomeError:
		return PushResult{}, ErrSandboxUnreachable
	case OutcomeDecline:
		return PushResult{Status: PushCancelled, Description: "Request cancelled by user"}, nil
	}
	return PushResult{
		Status:        PushCompleted,
		ReceiptNumber: strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10]),
	}, nil
}
