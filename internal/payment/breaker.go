package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	return s
}

func newBreaker(name string, s BreakerSettings, logger *zap.Logger) *gobreaker.CircuitBreaker[any] {
	s = s.withDefaults()
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		// a declined payment is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrGatewayRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

func execute[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	var zero T
	v, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %s: %v", ErrGatewayUnavailable, cb.Name(), err)
		}
		return zero, err
	}
	return v.(T), nil
}

// BreakerWalletGateway fails fast once the wallet provider keeps erroring
type BreakerWalletGateway struct {
	next WalletGateway
	cb   *gobreaker.CircuitBreaker[any]
}

func NewBreakerWalletGateway(next WalletGateway, s BreakerSettings, logger *zap.Logger) *BreakerWalletGateway {
	return &BreakerWalletGateway{next: next, cb: newBreaker("wallet", s, logger)}
}

func (g *BreakerWalletGateway) CreateOrder(ctx context.Context, order WalletOrder) (string, error) {
	return execute(g.cb, func() (string, error) { return g.next.CreateOrder(ctx, order) })
}

func (g *BreakerWalletGateway) CaptureOrder(ctx context.Context, walletOrderID string) (WalletCapture, error) {
	return execute(g.cb, func() (WalletCapture, error) { return g.next.CaptureOrder(ctx, walletOrderID) })
}

func (g *BreakerWalletGateway) State() gobreaker.State { return g.cb.State() }

// BreakerMobileMoneyGateway fails fast once the push provider keeps erroring
type BreakerMobileMoneyGateway struct {
	next MobileMoneyGateway
	cb   *gobreaker.CircuitBreaker[any]
}

func NewBreakerMobileMoneyGateway(next MobileMoneyGateway, s BreakerSettings, logger *zap.Logger) *BreakerMobileMoneyGateway {
	return &BreakerMobileMoneyGateway{next: next, cb: newBreaker("mobile_money", s, logger)}
}

func (g *BreakerMobileMoneyGateway) InitiatePush(ctx context.Context, req PushRequest) (string, error) {
	return execute(g.cb, func() (string, error) { return g.next.InitiatePush(ctx, req) })
}

func (g *BreakerMobileMoneyGateway) QueryStatus(ctx context.Context, checkoutID string) (PushResult, error) {
	return execute(g.cb, func() (PushResult, error) { return g.next.QueryStatus(ctx, checkoutID) })
}

func (g *BreakerMobileMoneyGateway) State() gobreaker.State { return g.cb.State() }
