// Package tui is the terminal storefront. It owns one checkout session and
// follows the bubbletea model: keys and payment results arrive as messages,
// Update mutates the session, View renders the current stage.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/example/merch-storefront/internal/domain/cart"
	"github.com/example/merch-storefront/internal/domain/catalog"
	"github.com/example/merch-storefront/internal/domain/checkout"
	"github.com/example/merch-storefront/internal/domain/order"
	"github.com/example/merch-storefront/internal/payment"
	"github.com/example/merch-storefront/internal/site"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher receives the order events the storefront emits
type Publisher interface {
	Publish(ctx context.Context, e order.Event) error
}

// screen is derived from the session stage plus the size modal and the
// in-flight payment
type screen int

const (
	screenStorefront screen = iota
	screenSizeModal
	screenPaymentMethod
	screenDetails
	screenProcessing
	screenConfirmation
)

type pane int

const (
	paneCatalog pane = iota
	paneCart
)

// paymentResultMsg carries an adapter outcome back into Update
type paymentResultMsg struct {
	sub    order.Submission
	result payment.Result
}

type publishedMsg struct {
	eventType string
	err       error
}

// App is the storefront model
type App struct {
	site      site.Config
	catalog   *catalog.Catalog
	payments  *payment.Registry
	publisher Publisher
	logger    *zap.Logger

	session *checkout.Session
	gate    cart.SizeGate

	focus         pane
	catalogCursor int
	cartCursor    int
	sizeCursor    int
	methodCursor  int
	form          detailsForm
	spinner       spinner.Model

	ctx    context.Context
	cancel context.CancelFunc // cancels the in-flight payment

	status string
	err    error
	width  int
	height int
}

func NewApp(cfg site.Config, cat *catalog.Catalog, payments *payment.Registry, publisher Publisher, logger *zap.Logger) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle

	return &App{
		site:      cfg,
		catalog:   cat,
		payments:  payments,
		publisher: publisher,
		logger:    logger.Named("tui"),
		session:   checkout.NewSession(uuid.NewString(), cfg.Currency),
		form:      newDetailsForm(),
		spinner:   sp,
		ctx:       context.Background(),
	}
}

func (a *App) Init() tea.Cmd {
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		return a, nil

	case spinner.TickMsg:
		if a.screen() != screenProcessing {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case paymentResultMsg:
		return a, a.handleResult(msg)

	case publishedMsg:
		if msg.err != nil {
			a.logger.Error("failed to publish order event", zap.String("event_type", msg.eventType), zap.Error(msg.err))
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, a.quit()
		}
		return a, a.handleKey(msg)
	}
	return a, nil
}

func (a *App) screen() screen {
	switch {
	case a.gate.IsOpen():
		return screenSizeModal
	case a.session.Processing():
		return screenProcessing
	}
	switch a.session.Stage {
	case checkout.StagePayment:
		return screenPaymentMethod
	case checkout.StageDetails:
		return screenDetails
	case checkout.StageConfirmation:
		return screenConfirmation
	}
	return screenStorefront
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	a.err = nil
	switch a.screen() {
	case screenSizeModal:
		return a.sizeModalKey(msg)
	case screenPaymentMethod:
		return a.paymentKey(msg)
	case screenDetails:
		return a.detailsKey(msg)
	case screenProcessing:
		return a.processingKey(msg)
	case screenConfirmation:
		return a.confirmationKey(msg)
	}
	return a.storefrontKey(msg)
}

func (a *App) storefrontKey(msg tea.KeyMsg) tea.Cmd {
	a.status = ""
	switch msg.String() {
	case "q":
		return a.quit()
	case "tab":
		if a.focus == paneCatalog && !a.session.Cart.IsEmpty() {
			a.focus = paneCart
		} else {
			a.focus = paneCatalog
		}
	case "up", "k":
		a.moveCursor(-1)
	case "down", "j":
		a.moveCursor(1)
	case "enter", "a":
		if a.focus == paneCatalog {
			a.addSelected()
		}
	case "+", "=":
		a.changeQuantity(1)
	case "-":
		a.changeQuantity(-1)
	case "x":
		a.removeSelected()
	case "c":
		a.setErr(a.session.ProceedToPayment())
	case "r":
		a.reset()
	}
	return nil
}

func (a *App) moveCursor(delta int) {
	if a.focus == paneCart {
		a.cartCursor = clamp(a.cartCursor+delta, len(a.session.Cart.Items))
		return
	}
	a.catalogCursor = clamp(a.catalogCursor+delta, a.catalog.Len())
}

func (a *App) addSelected() {
	items := a.catalog.Items()
	if len(items) == 0 {
		return
	}
	item := items[a.catalogCursor]
	if a.gate.Request(item) {
		a.sizeCursor = 0
		return
	}
	if a.setErr(a.session.AddItem(item, "")) {
		a.status = "Added " + item.Name
	}
}

func (a *App) selectedLine() (cart.Line, bool) {
	lines := a.session.Cart.Items
	if a.focus != paneCart || len(lines) == 0 {
		return cart.Line{}, false
	}
	return lines[clamp(a.cartCursor, len(lines))], true
}

func (a *App) changeQuantity(delta int) {
	line, ok := a.selectedLine()
	if !ok {
		return
	}
	a.setErr(a.session.SetQuantity(line.ItemID, line.Size, line.Quantity+delta))
	a.syncCartFocus()
}

func (a *App) removeSelected() {
	line, ok := a.selectedLine()
	if !ok {
		return
	}
	a.setErr(a.session.RemoveItem(line.ItemID, line.Size))
	a.syncCartFocus()
}

func (a *App) syncCartFocus() {
	if a.session.Cart.IsEmpty() {
		a.focus = paneCatalog
		a.cartCursor = 0
		return
	}
	a.cartCursor = clamp(a.cartCursor, len(a.session.Cart.Items))
}

func (a *App) sizeModalKey(msg tea.KeyMsg) tea.Cmd {
	options := a.gate.Options()
	switch msg.String() {
	case "esc", "q":
		a.gate.Cancel()
	case "up", "k", "left", "h":
		a.sizeCursor = clamp(a.sizeCursor-1, len(options))
	case "down", "j", "right", "l":
		a.sizeCursor = clamp(a.sizeCursor+1, len(options))
	case "enter", "a":
		item, size, err := a.gate.Select(options[a.sizeCursor])
		if !a.setErr(err) {
			return nil
		}
		if a.setErr(a.session.AddItem(item, size)) {
			a.status = "Added " + item.Name + " (" + size + ")"
		}
	}
	return nil
}

func (a *App) paymentKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return a.quit()
	case "up", "k":
		a.methodCursor = clamp(a.methodCursor-1, len(payment.Methods))
	case "down", "j":
		a.methodCursor = clamp(a.methodCursor+1, len(payment.Methods))
	case "enter":
		method := payment.Methods[a.methodCursor]
		if _, err := a.payments.Get(method); !a.setErr(err) {
			return nil
		}
		if a.setErr(a.session.SelectMethod(string(method))) {
			return a.form.focus(0)
		}
	case "b", "esc":
		a.setErr(a.session.Back())
	case "r":
		a.reset()
	}
	return nil
}

func (a *App) detailsKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		a.setErr(a.session.Back())
		return nil
	case "ctrl+s":
		return a.submit()
	case "enter":
		if a.form.onLast() {
			return a.submit()
		}
		return a.form.next()
	case "tab", "down":
		return a.form.next()
	case "shift+tab", "up":
		return a.form.prev()
	}
	return a.form.update(msg)
}

func (a *App) processingKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return a.quit()
	case "r":
		a.reset()
	}
	return nil
}

func (a *App) confirmationKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return a.quit()
	case "r", "enter":
		a.reset()
	}
	return nil
}

// submit forms the order and starts the adapter. The result comes back as
// a paymentResultMsg so the poll loop never blocks input.
func (a *App) submit() tea.Cmd {
	adapter, err := a.payments.Get(a.session.Method)
	if !a.setErr(err) {
		return nil
	}
	sub, err := a.session.Submit(a.form.customer())
	if !a.setErr(err) {
		return nil
	}

	ctx, cancel := context.WithCancel(a.ctx)
	a.cancel = cancel
	results := adapter.Pay(ctx, sub.PaymentRequest())

	a.logger.Info("order submitted", zap.String("order_id", sub.OrderID), zap.String("method", string(sub.Method)))
	return tea.Batch(
		a.spinner.Tick,
		a.publish(func() (order.Event, error) { return order.Submitted(sub) }),
		waitForResult(ctx, sub, results),
	)
}

func waitForResult(ctx context.Context, sub order.Submission, results <-chan payment.Result) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-results
		if !ok {
			reason := "payment adapter returned no result"
			if ctx.Err() != nil {
				reason = "Payment cancelled"
			}
			res = payment.Failure(sub.Method, reason)
		}
		return paymentResultMsg{sub: sub, result: res}
	}
}

func (a *App) handleResult(msg paymentResultMsg) tea.Cmd {
	res := msg.result
	orderID := msg.sub.OrderID

	var event func() (order.Event, error)
	if res.Success {
		event = func() (order.Event, error) { return order.Succeeded(orderID, res) }
	} else {
		event = func() (order.Event, error) { return order.Failed(orderID, msg.sub.Method, res.Error) }
	}

	err := a.session.ApplyResult(orderID, res)
	if errors.Is(err, checkout.ErrStaleResult) {
		a.logger.Debug("payment result ignored", zap.String("order_id", orderID))
		return a.publish(event)
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if res.Success {
		a.logger.Info("payment succeeded", zap.String("order_id", orderID), zap.String("reference", res.Reference))
	} else {
		a.logger.Warn("payment failed", zap.String("order_id", orderID), zap.String("reason", res.Error))
		return tea.Batch(a.publish(event), a.form.focus(0))
	}
	return a.publish(event)
}

func (a *App) publish(build func() (order.Event, error)) tea.Cmd {
	if a.publisher == nil {
		return nil
	}
	ctx := a.ctx
	return func() tea.Msg {
		e, err := build()
		if err == nil {
			err = a.publisher.Publish(ctx, e)
		}
		return publishedMsg{eventType: e.Type, err: err}
	}
}

func (a *App) reset() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.gate.Cancel()
	a.session.Reset()
	a.form = newDetailsForm()
	a.focus = paneCatalog
	a.cartCursor = 0
	a.methodCursor = 0
	a.status = ""
}

func (a *App) quit() tea.Cmd {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	return tea.Quit
}

// setErr records err for display and reports whether the action succeeded
func (a *App) setErr(err error) bool {
	a.err = err
	return err == nil
}

func clamp(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
