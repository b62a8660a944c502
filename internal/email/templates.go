package email

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"
)

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
}

const layoutHead = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">`

const layoutFoot = `
	<p>If you have any questions, please don't hesitate to contact us.</p>
	<p>Best regards,<br>{{.Brand}} Team</p>
</body>
</html>`

const itemsTable = `
	<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
		<thead>
			<tr style="background: #f8f9fa;">
				<th style="padding: 12px; text-align: left;">Item</th>
				<th style="padding: 12px; text-align: center;">Qty</th>
				<th style="padding: 12px; text-align: right;">Price</th>
				<th style="padding: 12px; text-align: right;">Subtotal</th>
			</tr>
		</thead>
		<tbody>
			{{- range .Items}}
			<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">{{.Name}}{{if .Size}} ({{.Size}}){{end}}</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">{{.Quantity}}</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">{{$.Currency}} {{money .UnitPrice}}</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">{{$.Currency}} {{money .Subtotal}}</td>
			</tr>
			{{- end}}
		</tbody>
	</table>
	<p style="text-align: right; font-size: 20px; font-weight: bold;">Total: {{.Currency}} {{money .Total}}</p>`

var orderConfirmationTmpl = template.Must(template.New("order_confirmation").Funcs(funcs).Parse(layoutHead + `
	<h2>Thank you for your order!</h2>
	<p>Dear {{.CustomerName}},</p>
	<p>We have received your order <strong>#{{.OrderID}}</strong>.</p>
	<p><strong>Payment method:</strong> {{.MethodLabel}}{{if .Reference}}<br><strong>Reference:</strong> {{.Reference}}{{end}}</p>
` + itemsTable + layoutFoot))

var transferInstructionsTmpl = template.Must(template.New("transfer_instructions").Funcs(funcs).Parse(layoutHead + `
	<h2>Thank you for your order!</h2>
	<p>Dear {{.CustomerName}},</p>
	<p>Please complete your payment using the bank transfer details below:</p>

	<div style="background: #f5f5f5; padding: 20px; margin: 20px 0; border-radius: 8px;">
		<h3>Bank Transfer Details</h3>
		<p><strong>Bank Name:</strong> {{.Bank.BankName}}</p>
		<p><strong>Account Name:</strong> {{.Bank.AccountName}}</p>
		<p><strong>Account Number:</strong> {{.Bank.AccountNumber}}</p>
		<p><strong>Routing Number:</strong> {{.Bank.RoutingNumber}}</p>
		<p><strong>SWIFT Code:</strong> {{.Bank.SwiftCode}}</p>
		{{- if .Bank.IBAN}}
		<p><strong>IBAN:</strong> {{.Bank.IBAN}}</p>
		{{- end}}
	</div>

	<div style="background: #fff3cd; padding: 15px; margin: 20px 0; border-radius: 8px; border-left: 4px solid #ffc107;">
		<h4>IMPORTANT: Payment Reference</h4>
		<p style="font-size: 18px; font-weight: bold; color: #856404;">Reference: {{.Reference}}</p>
		<p>Please include this reference in your bank transfer to ensure proper processing.</p>
	</div>

	<h4>Order #{{.OrderID}}</h4>
` + itemsTable + `

	<h4>Next Steps:</h4>
	<ol>
		{{- range .Instructions}}
		<li>{{.}}</li>
		{{- end}}
	</ol>
` + layoutFoot))

var paymentConfirmedTmpl = template.Must(template.New("payment_confirmed").Funcs(funcs).Parse(layoutHead + `
	<h2>Payment Confirmed!</h2>
	<p>Dear {{.CustomerName}},</p>
	<p>Your bank transfer has been verified and your order is now being processed.</p>
	<p><strong>Order:</strong> #{{.OrderID}}<br>
	<strong>Reference:</strong> {{.Reference}}<br>
	<strong>Amount:</strong> {{.Currency}} {{money .Total}}<br>
	<strong>Verified:</strong> {{.VerifiedAt}}</p>
	<p>You will receive shipping information once your order is dispatched.</p>
` + layoutFoot))

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
