package email

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"
)

type NoticeKind string

const (
	NoticeOrderReceived NoticeKind = "received"
	NoticeOutOfStock    NoticeKind = "out_of_stock"
	NoticePaid          NoticeKind = "paid"
	NoticePaymentFailed NoticeKind = "payment_failed"
)

// Subject returns the email subject line for the notice
func (k NoticeKind) Subject() string {
	switch k {
	case NoticeOrderReceived:
		return "We received your order"
	case NoticeOutOfStock:
		return "Your order could not be fulfilled"
	case NoticePaid:
		return "Payment confirmed"
	case NoticePaymentFailed:
		return "Payment not approved"
	default:
		return "Order update"
	}
}

func (k NoticeKind) message() string {
	switch k {
	case NoticeOrderReceived:
		return "Thank you for your order. It is reserved and waiting for payment."
	case NoticeOutOfStock:
		return "Some of the products you ordered are out of stock, so the order was closed without charge."
	case NoticePaid:
		return "Your payment was approved and the order is confirmed."
	case NoticePaymentFailed:
		return "Your payment was not approved. The order was closed and no amount was charged."
	default:
		return "The status of your order changed."
	}
}

// OrderNotice carries what the status email shows
type OrderNotice struct {
	Kind       NoticeKind
	OrderID    string
	ClientName string
	Status     string
	Total      decimal.Decimal
	Currency   string
}

// BuildOrderStatusBody builds the HTML body of an order status email
func BuildOrderStatusBody(n OrderNotice) string {
	greeting := "Hello,"
	if n.ClientName != "" {
		greeting = fmt.Sprintf("Hello %s,", html.EscapeString(n.ClientName))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">%s</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">%s</p>
		<p>%s</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Order</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
			<p style="margin: 10px 0 0 0; font-size: 14px; color: #666;">Status: %s</p>
		</div>

		<div style="text-align: right; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<span style="font-size: 14px; color: #666;">Total</span>
			<span style="font-size: 24px; font-weight: bold; color: #667eea; margin-left: 10px;">%s %s</span>
		</div>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This is an automated message. Please contact support if you have any questions.
		</p>
	</div>
</body>
</html>`,
		n.Kind.Subject(),
		greeting,
		n.Kind.message(),
		html.EscapeString(n.OrderID),
		html.EscapeString(n.Status),
		html.EscapeString(n.Currency),
		FormatAmount(n.Total),
	)
}

// FormatAmount renders an amount with two decimals and comma separators
func FormatAmount(d decimal.Decimal) string {
	str := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(str, ".")

	var result strings.Builder
	if d.IsNegative() {
		result.WriteString("-")
	}
	remainder := len(whole) % 3
	if remainder > 0 {
		result.WriteString(whole[:remainder])
	}
	for i := remainder; i < len(whole); i += 3 {
		if result.Len() > 0 && !(result.Len() == 1 && d.IsNegative()) {
			result.WriteString(",")
		}
		result.WriteString(whole[i : i+3])
	}
	result.WriteString(".")
	result.WriteString(frac)

	return result.String()
}
