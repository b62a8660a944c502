package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	walletIntentCapture  = "CAPTURE"
	walletCaptureSuccess = "COMPLETED"
)

// WalletOrder is the purchase unit sent to the wallet provider
type WalletOrder struct {
	Intent      string          `json:"intent"`
	ReferenceID string          `json:"reference_id"`
	CustomID    string          `json:"custom_id"`
	InvoiceID   string          `json:"invoice_id"`
	Description string          `json:"description"`
	Currency    string          `json:"currency_code"`
	Total       decimal.Decimal `json:"value"`
	Items       []LineItem      `json:"items"`
}

type WalletCapture struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency_code"`
	PayerEmail string          `json:"payer_email"`
}

// WalletGateway is the online wallet provider
type WalletGateway interface {
	CreateOrder(ctx context.Context, order WalletOrder) (string, error)
	CaptureOrder(ctx context.Context, walletOrderID string) (WalletCapture, error)
}

type WalletAdapter struct {
	gateway WalletGateway
	brand   string
	logger  *zap.Logger
}

func NewWalletAdapter(gateway WalletGateway, brand string, logger *zap.Logger) *WalletAdapter {
	return &WalletAdapter{gateway: gateway, brand: brand, logger: logger.Named("wallet")}
}

func (a *WalletAdapter) Method() Method { return MethodWallet }

func (a *WalletAdapter) Pay(ctx context.Context, req Request) <-chan Result {
	return deliver(func() Result { return a.pay(ctx, req) })
}

func (a *WalletAdapter) pay(ctx context.Context, req Request) Result {
	order := WalletOrder{
		Intent:      walletIntentCapture,
		ReferenceID: req.OrderID,
		CustomID:    req.OrderID,
		InvoiceID:   req.OrderID,
		Description: fmt.Sprintf("%s Merchandise - Order #%s", a.brand, req.OrderID),
		Currency:    req.Currency,
		Total:       req.Amount.Round(2),
		Items:       req.Items,
	}

	walletOrderID, err := a.gateway.CreateOrder(ctx, order)
	if err != nil {
		a.logger.Warn("create order failed", zap.String("order_id", req.OrderID), zap.Error(err))
		return Failure(MethodWallet, failureReason(err, "failed to create wallet order"))
	}

	capture, err := a.gateway.CaptureOrder(ctx, walletOrderID)
	if err != nil {
		a.logger.Warn("capture failed", zap.String("order_id", req.OrderID), zap.String("wallet_order_id", walletOrderID), zap.Error(err))
		return Failure(MethodWallet, failureReason(err, "failed to capture wallet payment"))
	}
	if capture.Status != walletCaptureSuccess {
		a.logger.Warn("capture not completed", zap.String("order_id", req.OrderID), zap.String("status", capture.Status))
		return Failure(MethodWallet, "wallet payment was not completed")
	}

	a.logger.Info("payment captured", zap.String("order_id", req.OrderID), zap.String("capture_id", capture.ID))
	return Result{
		Success:    true,
		Method:     MethodWallet,
		Reference:  capture.ID,
		Amount:     capture.Amount,
		Currency:   capture.Currency,
		Status:     StatusCompleted,
		PayerEmail: capture.PayerEmail,
	}
}
