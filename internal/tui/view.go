package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/example/merch-storefront/internal/domain/checkout"
	"github.com/example/merch-storefront/internal/payment"
	"github.com/shopspring/decimal"
)

var (
	accentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#5B2A86")).Padding(0, 1)
	taglineStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#A0AEC0"))
	headingStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F7B801"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4CAF50"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	successStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4CAF50"))
	paneStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#555555")).Padding(0, 1)
	activePane    = paneStyle.BorderForeground(lipgloss.Color("#F7B801"))
	modalStyle    = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#F7B801")).Padding(1, 2)
)

func (a *App) View() string {
	var body string
	switch a.screen() {
	case screenSizeModal:
		body = a.sizeModalView()
	case screenPaymentMethod:
		body = a.paymentView()
	case screenDetails:
		body = a.detailsView()
	case screenProcessing:
		body = a.processingView()
	case screenConfirmation:
		body = a.confirmationView()
	default:
		body = a.storefrontView()
	}

	parts := []string{a.headerView(), body}
	if a.err != nil {
		parts = append(parts, errorStyle.Render("! "+a.err.Error()))
	} else if a.status != "" {
		parts = append(parts, successStyle.Render(a.status))
	}
	parts = append(parts, mutedStyle.Render(a.helpText()))
	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

func (a *App) headerView() string {
	title := titleStyle.Render(a.site.ArtistName)
	if a.site.Tagline == "" {
		return title + "\n"
	}
	return title + " " + taglineStyle.Render(a.site.Tagline) + "\n"
}

func (a *App) money(d decimal.Decimal) string {
	return a.session.Currency + " " + d.StringFixed(2)
}

func (a *App) storefrontView() string {
	var catalogLines []string
	catalogLines = append(catalogLines, headingStyle.Render("Merch"))
	for i, item := range a.catalog.Items() {
		line := fmt.Sprintf("%-16s %s", item.Name, a.money(item.Price))
		if item.RequiresSize() {
			line += mutedStyle.Render("  " + strings.Join(item.Sizes, "/"))
		}
		catalogLines = append(catalogLines, a.cursorLine(a.focus == paneCatalog && i == a.catalogCursor, line))
	}

	left := paneStyle
	right := paneStyle
	if a.focus == paneCatalog {
		left = activePane
	} else {
		right = activePane
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		left.Render(strings.Join(catalogLines, "\n")),
		right.Render(a.cartView()),
	)
}

func (a *App) cartView() string {
	c := a.session.Cart
	lines := []string{headingStyle.Render(fmt.Sprintf("Cart (%d)", c.ItemCount()))}
	if c.IsEmpty() {
		lines = append(lines, mutedStyle.Render("Your cart is empty"))
		return strings.Join(lines, "\n")
	}
	for i, l := range c.Items {
		name := l.Name
		if l.Size != "" {
			name += " (" + l.Size + ")"
		}
		line := fmt.Sprintf("%-20s x%-3d %s", name, l.Quantity, a.money(l.Subtotal()))
		lines = append(lines, a.cursorLine(a.focus == paneCart && i == a.cartCursor, line))
	}
	lines = append(lines, "", "Total: "+accentStyle.Render(a.money(c.Total())))
	return strings.Join(lines, "\n")
}

func (a *App) sizeModalView() string {
	item, _ := a.gate.Pending()
	lines := []string{headingStyle.Render("Choose a size for " + item.Name), ""}
	for i, size := range a.gate.Options() {
		lines = append(lines, a.cursorLine(i == a.sizeCursor, size))
	}
	return modalStyle.Render(strings.Join(lines, "\n"))
}

func (a *App) paymentView() string {
	lines := []string{
		headingStyle.Render("Payment method"),
		mutedStyle.Render("Order total: " + a.money(a.session.Cart.Total())),
		"",
	}
	for i, m := range payment.Methods {
		label := m.Label()
		if _, err := a.payments.Get(m); err != nil {
			label += mutedStyle.Render(" (unavailable)")
		}
		lines = append(lines, a.cursorLine(i == a.methodCursor, label))
	}
	return paneStyle.Render(strings.Join(lines, "\n"))
}

func (a *App) detailsView() string {
	lines := []string{
		headingStyle.Render("Your details"),
		mutedStyle.Render(fmt.Sprintf("Paying %s by %s", a.money(a.session.Cart.Total()), a.session.Method.Label())),
		"",
	}
	if a.session.Payment == checkout.PaymentFailed {
		lines = append(lines, errorStyle.Render("Payment failed: "+a.session.FailureReason), mutedStyle.Render("Submit again to retry or esc to pick another method"), "")
	}
	for i, f := range formFields {
		label := f.label
		if f.required {
			label += "*"
		}
		label = fmt.Sprintf("%-11s", label)
		if i == a.form.cursor {
			label = selectedStyle.Render(label)
		} else {
			label = normalStyle.Render(label)
		}
		lines = append(lines, label+" "+a.form.inputs[i].View())
	}
	return paneStyle.Render(strings.Join(lines, "\n"))
}

func (a *App) processingView() string {
	msg := "Processing payment..."
	if a.session.Method == payment.MethodMobileMoney {
		msg = "Check your phone and enter your PIN to approve the payment..."
	}
	return paneStyle.Render(a.spinner.View() + " " + msg + "\n" + mutedStyle.Render("Order "+a.session.OrderID))
}

func (a *App) confirmationView() string {
	lines := []string{
		successStyle.Render("Thank you for your order!"),
		"Order " + accentStyle.Render(a.session.OrderID),
		"",
	}
	lines = append(lines, a.session.Instructions()...)
	return paneStyle.Render(strings.Join(lines, "\n"))
}

func (a *App) cursorLine(selected bool, text string) string {
	if selected {
		return selectedStyle.Render("> " + text)
	}
	return normalStyle.Render("  " + text)
}

func (a *App) helpText() string {
	switch a.screen() {
	case screenSizeModal:
		return "↑/↓ choose • enter add • esc cancel"
	case screenPaymentMethod:
		return "↑/↓ choose • enter select • b back • r reset • q quit"
	case screenDetails:
		return "tab/↑/↓ move • enter next/submit • ctrl+s submit • esc back • ctrl+c quit"
	case screenProcessing:
		return "r cancel and reset • q quit"
	case screenConfirmation:
		return "r new order • q quit"
	}
	return "↑/↓ move • tab switch pane • a add • +/- quantity • x remove • c checkout • r reset • q quit"
}
