package shop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/merch-storefront/internal/domain/cart"
	"github.com/example/merch-storefront/internal/domain/catalog"
	"github.com/example/merch-storefront/internal/domain/checkout"
	"github.com/example/merch-storefront/internal/domain/order"
	"github.com/example/merch-storefront/internal/infrastructure/store"
	"github.com/example/merch-storefront/internal/payment"
	"github.com/example/merch-storefront/internal/session"
	"go.uber.org/zap"
)

const resultTimeout = 10 * time.Second

// Publisher delivers order events to the projector and notifier
type Publisher interface {
	Publish(ctx context.Context, e order.Event) error
}

// SizeRequiredError is returned when a sized item is added without a size
type SizeRequiredError struct {
	Item catalog.Item
}

func (e *SizeRequiredError) Error() string {
	return fmt.Sprintf("%s requires a size", e.Item.Name)
}

func (e *SizeRequiredError) Unwrap() error { return cart.ErrSizeRequired }

type attempt struct {
	orderID string
	cancel  context.CancelFunc
}

// Service coordinates checkout sessions for the HTTP API. Each session is
// mutated under its own lock; payment adapters run on their own goroutine
// and report back under the same lock.
type Service struct {
	catalog   *catalog.Catalog
	sessions  session.Store
	payments  *payment.Registry
	ledger    store.OrderLedger
	publisher Publisher
	currency  string
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	inflight map[string]*attempt
}

func NewService(
	cat *catalog.Catalog,
	sessions session.Store,
	payments *payment.Registry,
	ledger store.OrderLedger,
	publisher Publisher,
	currency string,
	logger *zap.Logger,
) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		catalog:   cat,
		sessions:  sessions,
		payments:  payments,
		ledger:    ledger,
		publisher: publisher,
		currency:  currency,
		logger:    logger.Named("shop"),
		ctx:       ctx,
		cancel:    cancel,
		locks:     make(map[string]*sync.Mutex),
		inflight:  make(map[string]*attempt),
	}
}

func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

func (s *Service) Currency() string { return s.currency }

// Session returns the stored session or a fresh one at the cart stage
func (s *Service) Session(ctx context.Context, sessionID string) (*checkout.Session, error) {
	unlock := s.lock(sessionID)
	defer unlock()
	return s.load(ctx, sessionID)
}

// AddToCart resolves the item against the catalog and adds one unit
func (s *Service) AddToCart(ctx context.Context, cmd AddToCart) (*checkout.Session, error) {
	item, err := s.catalog.Get(cmd.ItemID)
	if err != nil {
		return nil, err
	}
	if item.RequiresSize() && cmd.Size == "" {
		return nil, &SizeRequiredError{Item: item}
	}
	return s.update(ctx, cmd.SessionID, func(sess *checkout.Session) error {
		return sess.AddItem(item, cmd.Size)
	})
}

func (s *Service) SetQuantity(ctx context.Context, cmd SetQuantity) (*checkout.Session, error) {
	return s.update(ctx, cmd.SessionID, func(sess *checkout.Session) error {
		return sess.SetQuantity(cmd.ItemID, cmd.Size, cmd.Quantity)
	})
}

func (s *Service) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) (*checkout.Session, error) {
	return s.update(ctx, cmd.SessionID, func(sess *checkout.Session) error {
		return sess.RemoveItem(cmd.ItemID, cmd.Size)
	})
}

func (s *Service) ProceedToPayment(ctx context.Context, sessionID string) (*checkout.Session, error) {
	return s.update(ctx, sessionID, (*checkout.Session).ProceedToPayment)
}

func (s *Service) SelectMethod(ctx context.Context, cmd SelectMethod) (*checkout.Session, error) {
	return s.update(ctx, cmd.SessionID, func(sess *checkout.Session) error {
		if err := sess.SelectMethod(cmd.Method); err != nil {
			return err
		}
		_, err := s.payments.Get(sess.Method)
		return err
	})
}

func (s *Service) Back(ctx context.Context, sessionID string) (*checkout.Session, error) {
	return s.update(ctx, sessionID, (*checkout.Session).Back)
}

// Submit validates the buyer's details, publishes OrderSubmitted and
// starts the payment adapter. It returns while the payment is processing.
func (s *Service) Submit(ctx context.Context, cmd SubmitDetails) (*checkout.Session, error) {
	unlock := s.lock(cmd.SessionID)
	defer unlock()

	sess, err := s.load(ctx, cmd.SessionID)
	if err != nil {
		return nil, err
	}
	adapter, err := s.payments.Get(sess.Method)
	if sess.Method != "" && err != nil {
		return nil, err
	}

	sub, err := sess.Submit(cmd.Customer)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	log := s.logger.With(zap.String("session_id", sess.ID), zap.String("order_id", sub.OrderID))
	log.Info("order submitted", zap.String("method", string(sub.Method)), zap.String("total", sub.Total.StringFixed(2)))
	s.publish(ctx, sub.OrderID, func() (order.Event, error) { return order.Submitted(sub) })

	payCtx, cancel := context.WithCancel(s.ctx)
	s.mu.Lock()
	if prev, ok := s.inflight[sess.ID]; ok {
		prev.cancel()
	}
	a := &attempt{orderID: sub.OrderID, cancel: cancel}
	s.inflight[sess.ID] = a
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runPayment(payCtx, sess.ID, sub, adapter, a)

	return sess, nil
}

// Reset cancels any in-flight payment and empties the session
func (s *Service) Reset(ctx context.Context, sessionID string) (*checkout.Session, error) {
	s.cancelPayment(sessionID)
	return s.update(ctx, sessionID, func(sess *checkout.Session) error {
		sess.Reset()
		return nil
	})
}

// Abandon cancels any in-flight payment and deletes the session
func (s *Service) Abandon(ctx context.Context, sessionID string) error {
	s.cancelPayment(sessionID)

	unlock := s.lock(sessionID)
	defer unlock()
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.logger.Info("session abandoned", zap.String("session_id", sessionID))
	return nil
}

// Close cancels all in-flight payments and waits for their goroutines
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Service) runPayment(ctx context.Context, sessionID string, sub order.Submission, adapter payment.Adapter, a *attempt) {
	defer s.wg.Done()
	defer s.finish(sessionID, a)

	res, ok := <-adapter.Pay(ctx, sub.PaymentRequest())
	switch {
	case !ok && ctx.Err() != nil:
		res = payment.Failure(sub.Method, "Payment cancelled")
	case !ok:
		res = payment.Failure(sub.Method, "payment adapter returned no result")
	}

	// The request that started the payment is long gone
	applyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resultTimeout)
	defer cancel()
	s.applyResult(applyCtx, sessionID, sub, res)
}

func (s *Service) applyResult(ctx context.Context, sessionID string, sub order.Submission, res payment.Result) {
	log := s.logger.With(zap.String("session_id", sessionID), zap.String("order_id", sub.OrderID))

	if res.Success {
		log.Info("payment succeeded", zap.String("method", string(res.Method)), zap.String("reference", res.Reference))
		s.publish(ctx, sub.OrderID, func() (order.Event, error) { return order.Succeeded(sub.OrderID, res) })
	} else {
		log.Warn("payment failed", zap.String("method", string(sub.Method)), zap.String("reason", res.Error))
		s.publish(ctx, sub.OrderID, func() (order.Event, error) { return order.Failed(sub.OrderID, sub.Method, res.Error) })
	}

	unlock := s.lock(sessionID)
	defer unlock()

	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		log.Debug("session gone before payment result arrived")
		return
	}
	if err != nil {
		log.Error("failed to load session for payment result", zap.Error(err))
		return
	}

	if err := sess.ApplyResult(sub.OrderID, res); err != nil {
		log.Debug("payment result ignored", zap.Error(err))
		return
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		log.Error("failed to save payment result", zap.Error(err))
	}
}

// publish logs failures; a lost event never rolls back the checkout
func (s *Service) publish(ctx context.Context, orderID string, build func() (order.Event, error)) {
	e, err := build()
	if err == nil {
		err = s.publisher.Publish(ctx, e)
	}
	if err != nil {
		s.logger.Error("failed to publish order event", zap.String("order_id", orderID), zap.Error(err))
	}
}

func (s *Service) cancelPayment(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.inflight[sessionID]; ok {
		a.cancel()
		delete(s.inflight, sessionID)
	}
}

func (s *Service) finish(sessionID string, a *attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.cancel()
	if s.inflight[sessionID] == a {
		delete(s.inflight, sessionID)
	}
}

// Processing reports whether a payment is running for the session
func (s *Service) Processing(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[sessionID]
	return ok
}

func (s *Service) update(ctx context.Context, sessionID string, fn func(*checkout.Session) error) (*checkout.Session, error) {
	unlock := s.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

func (s *Service) load(ctx context.Context, sessionID string) (*checkout.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return checkout.NewSession(sessionID, s.currency), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// lock serializes work on one session. Locks are never removed; the map
// grows with the number of sessions seen by this process.
func (s *Service) lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}
