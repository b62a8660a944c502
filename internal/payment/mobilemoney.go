package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
)

const (
	DefaultCountryCode  = "254"
	DefaultPollInterval = 10 * time.Second
	DefaultMaxAttempts  = 30
	minPhoneDigits      = 10
)

const (
	reasonInvalidPhone = "Please enter a valid phone number"
	reasonPushFailed   = "Mobile money payment initiation failed"
	reasonDeclined     = "Payment was cancelled or failed"
	reasonStatusCheck  = "Failed to check payment status"
	reasonTimeout      = "Payment timeout - please try again"
	reasonCancelled    = "Payment cancelled"
)

var ErrInvalidPhone = errors.New("invalid phone number")

type PushStatus string

const (
	PushPending   PushStatus = "pending"
	PushCompleted PushStatus = "completed"
	PushCancelled PushStatus = "cancelled"
	PushFailed    PushStatus = "failed"
)

// PushRequest asks the provider to prompt the buyer's handset
type PushRequest struct {
	Phone            string `json:"phone"`
	Amount           int64  `json:"amount"`
	AccountReference string `json:"account_reference"`
	Description      string `json:"description"`
}

type PushResult struct {
	Status        PushStatus `json:"status"`
	ReceiptNumber string     `json:"receipt_number,omitempty"`
	Description   string     `json:"description,omitempty"`
}

// MobileMoneyGateway is the push payment provider
type MobileMoneyGateway interface {
	InitiatePush(ctx context.Context, req PushRequest) (string, error)
	QueryStatus(ctx context.Context, checkoutID string) (PushResult, error)
}

type MobileMoneyConfig struct {
	CountryCode  string
	PollInterval time.Duration
	MaxAttempts  int
	Brand        string
}

func (c MobileMoneyConfig) withDefaults() MobileMoneyConfig {
	if c.CountryCode == "" {
		c.CountryCode = DefaultCountryCode
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

// NormalizePhone keeps digits only and prefixes local numbers with the
// country code
func NormalizePhone(raw, countryCode string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)

	switch {
	case strings.HasPrefix(digits, "0"):
		digits = countryCode + digits[1:]
	case strings.HasPrefix(digits, "7"), strings.HasPrefix(digits, "1"):
		digits = countryCode + digits
	}

	if len(digits) < minPhoneDigits {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
	}
	return digits, nil
}

type MobileMoneyAdapter struct {
	gateway MobileMoneyGateway
	cfg     MobileMoneyConfig
	logger  *zap.Logger
}

func NewMobileMoneyAdapter(gateway MobileMoneyGateway, cfg MobileMoneyConfig, logger *zap.Logger) *MobileMoneyAdapter {
	return &MobileMoneyAdapter{
		gateway: gateway,
		cfg:     cfg.withDefaults(),
		logger:  logger.Named("mobile_money"),
	}
}

func (a *MobileMoneyAdapter) Method() Method { return MethodMobileMoney }

func (a *MobileMoneyAdapter) Pay(ctx context.Context, req Request) <-chan Result {
	return deliver(func() Result { return a.pay(ctx, req) })
}

func (a *MobileMoneyAdapter) pay(ctx context.Context, req Request) Result {
	phone, err := NormalizePhone(req.CustomerPhone, a.cfg.CountryCode)
	if err != nil {
		return Failure(MethodMobileMoney, reasonInvalidPhone)
	}

	push := PushRequest{
		Phone:            phone,
		Amount:           req.Amount.Round(0).IntPart(),
		AccountReference: req.OrderID,
		Description:      fmt.Sprintf("%s Merch - %s", a.cfg.Brand, req.OrderID),
	}
	checkoutID, err := a.gateway.InitiatePush(ctx, push)
	if err != nil {
		a.logger.Warn("push failed", zap.String("order_id", req.OrderID), zap.Error(err))
		return Failure(MethodMobileMoney, failureReason(err, reasonPushFailed))
	}

	a.logger.Info("push sent", zap.String("order_id", req.OrderID), zap.String("checkout_id", checkoutID))
	return a.poll(ctx, req, checkoutID)
}

// poll queries immediately, then once per interval, for at most MaxAttempts
// queries
func (a *MobileMoneyAdapter) poll(ctx context.Context, req Request, checkoutID string) Result {
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return Failure(MethodMobileMoney, reasonCancelled)
		}

		status, err := a.gateway.QueryStatus(ctx, checkoutID)
		if err != nil {
			if ctx.Err() != nil {
				return Failure(MethodMobileMoney, reasonCancelled)
			}
			a.logger.Warn("status query failed", zap.String("checkout_id", checkoutID), zap.Error(err))
			return Failure(MethodMobileMoney, reasonStatusCheck)
		}

		switch status.Status {
		case PushCompleted:
			a.logger.Info("payment completed", zap.String("order_id", req.OrderID), zap.String("receipt", status.ReceiptNumber))
			return Result{
				Success:   true,
				Method:    MethodMobileMoney,
				Reference: status.ReceiptNumber,
				Amount:    req.Amount,
				Currency:  req.Currency,
				Status:    StatusCompleted,
			}
		case PushFailed, PushCancelled:
			a.logger.Info("payment declined", zap.String("order_id", req.OrderID), zap.String("status", string(status.Status)), zap.String("description", status.Description))
			return Failure(MethodMobileMoney, reasonDeclined)
		}

		if attempt >= a.cfg.MaxAttempts {
			a.logger.Warn("payment timed out", zap.String("order_id", req.OrderID), zap.Int("attempts", attempt))
			return Failure(MethodMobileMoney, reasonTimeout)
		}

		select {
		case <-ctx.Done():
			a.logger.Info("polling stopped", zap.String("order_id", req.OrderID), zap.Int("attempts", attempt))
			return Failure(MethodMobileMoney, reasonCancelled)
		case <-ticker.C:
		}
	}
}
