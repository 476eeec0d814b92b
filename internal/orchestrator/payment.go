package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/example/order-orchestrator/internal/domain/order"
	"github.com/example/order-orchestrator/internal/infrastructure/gateway"
	"github.com/example/order-orchestrator/internal/infrastructure/lock"
)

type PaymentMethod string

const (
	MethodCard PaymentMethod = "CARD"
	MethodPIX  PaymentMethod = "PIX"

	statusApproved = "APPROVED"

	saveTimeout = 10 * time.Second
)

// ParsePaymentMethod accepts CARD or PIX in any case
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s))); m {
	case MethodCard, MethodPIX:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPaymentMethod, s)
	}
}

// ProcessPayment charges a CREATED order and closes it as CLOSED_SUCCESS or
// FAILED_NOT_PAID. Gateway failures leave the order untouched.
func (o *Orchestrator) ProcessPayment(ctx context.Context, orderID, method string) (*order.Order, error) {
	pm, err := ParsePaymentMethod(method)
	if err != nil {
		return nil, err
	}

	if o.locker != nil {
		release, err := o.locker.Acquire(ctx, "payment:"+orderID)
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, fmt.Errorf("%w: %s", ErrPaymentInProgress, orderID)
		}
		if err != nil {
			return nil, fmt.Errorf("acquire payment lock: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Printf("[Orchestrator] Failed to release payment lock for order %s: %v", orderID, err)
			}
		}()
	}

	current, err := o.store.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: order %s is %s", order.ErrInvalidTransition, orderID, current.Status)
	}

	started := time.Now()
	token, err := o.payments.GenerateToken(ctx, gateway.TokenRequest{
		GrantType:    o.cfg.GrantType,
		ClientID:     o.cfg.ClientID,
		ClientSecret: o.cfg.ClientSecret,
		Scope:        o.cfg.Scope,
	})
	if err != nil {
		return o.paymentError(current, pm, started, err)
	}

	var approved bool
	switch pm {
	case MethodCard:
		approved, err = o.chargeCard(ctx, current, token.AccessToken)
	case MethodPIX:
		approved, err = o.chargePIX(ctx, current, token.AccessToken)
	}
	if err != nil {
		return o.paymentError(current, pm, started, err)
	}

	target := order.StatusFailedNotPaid
	if approved {
		target = order.StatusClosedSuccess
	}
	if err := current.TransitionTo(target, o.now()); err != nil {
		return nil, err
	}

	// the charge already happened, so the result is recorded even if the caller left
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := o.store.Save(sctx, current); err != nil {
		return nil, fmt.Errorf("save payment result: %w", err)
	}

	outcome := "declined"
	if approved {
		outcome = "approved"
	}
	log.Printf("[Orchestrator] Order %s payment via %s %s", orderID, pm, outcome)
	o.metrics.PaymentProcessed(string(pm), outcome, time.Since(started))
	o.publish(ctx, order.EventForStatus(current.Status), current)
	return current, nil
}

func (o *Orchestrator) paymentError(current *order.Order, pm PaymentMethod, started time.Time, err error) (*order.Order, error) {
	if errors.Is(err, ErrPaymentPending) {
		log.Printf("[Orchestrator] Order %s payment via %s still pending: %v", current.ID, pm, err)
		o.metrics.PaymentProcessed(string(pm), "pending", time.Since(started))
		return current, err
	}
	log.Printf("[Orchestrator] Order %s payment via %s failed: %v", current.ID, pm, err)
	o.metrics.PaymentProcessed(string(pm), "error", time.Since(started))
	return nil, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
}

func (o *Orchestrator) chargeCard(ctx context.Context, current *order.Order, token string) (bool, error) {
	items := make([]gateway.ChargeItem, len(current.Items))
	for i, item := range current.Items {
		items[i] = gateway.ChargeItem{
			Name:       item.ProductSKU,
			Quantity:   item.Quantity,
			UnitAmount: item.Price.InexactFloat64(),
		}
	}

	resp, err := o.payments.ChargeCard(ctx, gateway.CardChargeRequest{
		SellerID: o.cfg.SellerID,
		Amount:   current.Total.InexactFloat64(),
		Currency: o.cfg.Currency,
		Order: gateway.ChargeOrder{
			OrderID: current.ID,
			Items:   items,
		},
		Customer: gateway.ChargeCustomer{
			CustomerID: strconv.FormatInt(current.ClientID, 10),
		},
		Credit: gateway.ChargeCredit{Installments: 1},
	}, token)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(resp.Status, statusApproved), nil
}

func (o *Orchestrator) chargePIX(ctx context.Context, current *order.Order, token string) (bool, error) {
	qr, err := o.payments.GenerateQR(ctx, gateway.QRChargeRequest{
		Amount:     current.Total.InexactFloat64(),
		Currency:   o.cfg.Currency,
		OrderID:    current.ID,
		CustomerID: strconv.FormatInt(current.ClientID, 10),
	}, token)
	if err != nil {
		return false, err
	}

	paymentID := qr.PaymentID
	if paymentID == "" {
		paymentID = current.ID
	}
	return o.pollApproval(ctx, paymentID, token)
}
